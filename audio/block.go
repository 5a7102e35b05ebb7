package audio

import (
	"context"
	"errors"
	"sync"

	"github.com/Perf-Org-5KRepos/streamtotext/metrics"
)

// Block is a lazy sequence of chunks covering one continuous span of
// audio. NextChunk returns ErrNoMoreChunks once the span is over,
// either because the underlying producer ran out or because the owner
// called End. A Block is single-consumer: one NextChunk may be in
// flight at a time.
type Block interface {
	// NextChunk returns the next chunk of the span. Ending the block
	// while a fetch is pending unblocks the call in bounded time with
	// ErrNoMoreChunks.
	NextChunk(ctx context.Context) (Chunk, error)

	// End terminates the span. Safe to call from any goroutine, and
	// more than once.
	End()

	// Ended reports whether the span has terminated. Monotonic: once
	// true it never reverts.
	Ended() bool
}

// fetchResult carries the outcome of one chunk fetch.
type fetchResult struct {
	chunk Chunk
	err   error
}

// blockState carries the ended signal shared by every Block
// implementation, plus the result channel of a fetch that lost a race,
// so its completion can be awaited before shared producer state is
// touched again. pending belongs to the single consumer.
type blockState struct {
	done    chan struct{}
	once    sync.Once
	pending chan fetchResult
}

func newBlockState() blockState {
	return blockState{done: make(chan struct{})}
}

func (b *blockState) End() {
	b.once.Do(func() { close(b.done) })
}

func (b *blockState) Ended() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// nextChunk races fetch against the ended signal, whichever completes
// first wins. A losing fetch is actively cancelled through its context
// and reports into a buffered channel, so the producer goroutine never
// leaks; its result channel is kept as pending and drained before the
// next fetch starts, so no two fetches ever touch the producer at
// once. A fetch that returns ErrNoMoreChunks ends the block.
func (b *blockState) nextChunk(ctx context.Context, fetch func(context.Context) (Chunk, error)) (Chunk, error) {
	if err := b.awaitPending(ctx); err != nil {
		return Chunk{}, err
	}
	if b.Ended() {
		return Chunk{}, ErrNoMoreChunks
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	res := make(chan fetchResult, 1)
	go func() {
		c, err := fetch(fetchCtx)
		res <- fetchResult{chunk: c, err: err}
	}()

	select {
	case <-ctx.Done():
		b.pending = res
		return Chunk{}, ctx.Err()
	case <-b.done:
		b.pending = res
		return Chunk{}, ErrNoMoreChunks
	case r := <-res:
		if r.err != nil {
			if errors.Is(r.err, ErrNoMoreChunks) {
				b.End()
			}
			return Chunk{}, r.err
		}
		metrics.ChunksProduced.Inc()
		return r.chunk, nil
	}
}

// awaitPending waits out a fetch that lost an earlier race. The fetch
// was cancelled through its context when the race was decided, so it
// resolves promptly.
func (b *blockState) awaitPending(ctx context.Context) error {
	if b.pending == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.pending:
		b.pending = nil
		return nil
	}
}

// FuncBlock adapts a pull-style fetch function into a Block. Each call
// to NextChunk races the fetch against the ended signal, so ending the
// block unblocks a stuck fetch in bounded time. fetch signals
// exhaustion by returning ErrNoMoreChunks.
type FuncBlock struct {
	blockState
	fetch func(ctx context.Context) (Chunk, error)
}

// NewFuncBlock creates a Block delegating chunk production to fetch.
func NewFuncBlock(fetch func(ctx context.Context) (Chunk, error)) *FuncBlock {
	return &FuncBlock{
		blockState: newBlockState(),
		fetch:      fetch,
	}
}

func (b *FuncBlock) NextChunk(ctx context.Context) (Chunk, error) {
	return b.nextChunk(ctx, b.fetch)
}

// QueueBlock is a Block whose chunks are pushed by an external
// producer, possibly running outside the cooperative domain (a capture
// callback thread). Push is the only method safe to call from the
// producer context; everything else belongs to the single consumer.
// Closing the channel is the reserved end-of-stream sentinel.
type QueueBlock struct {
	blockState
	ch        chan Chunk
	closeOnce sync.Once
	owned     bool
}

// NewQueueBlock creates a queue-backed block with its own channel of
// the given buffer size.
func NewQueueBlock(buffer int) *QueueBlock {
	return &QueueBlock{
		blockState: newBlockState(),
		ch:         make(chan Chunk, buffer),
		owned:      true,
	}
}

// NewQueueBlockFrom creates a queue-backed block over a channel owned
// by the caller. The caller signals end-of-stream by closing ch; the
// block never closes it.
func NewQueueBlockFrom(ch chan Chunk) *QueueBlock {
	return &QueueBlock{
		blockState: newBlockState(),
		ch:         ch,
	}
}

func (b *QueueBlock) NextChunk(ctx context.Context) (Chunk, error) {
	if b.Ended() {
		return Chunk{}, ErrNoMoreChunks
	}

	select {
	case <-ctx.Done():
		return Chunk{}, ctx.Err()
	case <-b.done:
		return Chunk{}, ErrNoMoreChunks
	case c, ok := <-b.ch:
		if !ok {
			b.End()
			return Chunk{}, ErrNoMoreChunks
		}
		metrics.ChunksProduced.Inc()
		return c, nil
	}
}

// Push hands a chunk over from the producer context without blocking
// and reports whether it was accepted. A full queue drops the chunk;
// the consumer is lagging and fresher audio is more useful than stale.
func (b *QueueBlock) Push(c Chunk) bool {
	select {
	case b.ch <- c:
		return true
	default:
		metrics.ChunksDropped.Inc()
		return false
	}
}

// CloseSend signals end-of-stream to the consumer side. Only valid for
// blocks created with NewQueueBlock; no Push may follow it.
func (b *QueueBlock) CloseSend() {
	if !b.owned {
		return
	}
	b.closeOnce.Do(func() { close(b.ch) })
}
