package audio

import (
	"context"
	"errors"
)

// ChunkIterator is the pull side of a lazy chunk sequence. NextChunk
// returns ErrNoMoreChunks once the sequence is exhausted. Every Block
// is a ChunkIterator.
type ChunkIterator interface {
	NextChunk(ctx context.Context) (Chunk, error)
}

// Resegmenter repackages an upstream chunk sequence into chunks of
// exactly chunkSize samples. The final chunk at end-of-stream may be
// shorter; no samples are lost or duplicated.
type Resegmenter struct {
	upstream  ChunkIterator
	chunkSize int
	leftover  *Chunk
	exhausted bool
}

// NewResegmenter wraps upstream so that every yielded chunk holds
// chunkSize samples.
func NewResegmenter(upstream ChunkIterator, chunkSize int) *Resegmenter {
	return &Resegmenter{
		upstream:  upstream,
		chunkSize: chunkSize,
	}
}

func (r *Resegmenter) NextChunk(ctx context.Context) (Chunk, error) {
	if r.exhausted && r.leftover == nil {
		return Chunk{}, ErrNoMoreChunks
	}

	var pending []Chunk
	total := 0

	if r.leftover != nil {
		pending = append(pending, *r.leftover)
		total = SampleCount(*r.leftover)
		r.leftover = nil
	}

	for total < r.chunkSize && !r.exhausted {
		chunk, err := r.upstream.NextChunk(ctx)
		if errors.Is(err, ErrNoMoreChunks) {
			r.exhausted = true
			break
		}
		if err != nil {
			return Chunk{}, err
		}

		pending = append(pending, chunk)
		total += SampleCount(chunk)
	}

	if total == 0 {
		return Chunk{}, ErrNoMoreChunks
	}

	merged := Merge(pending)
	if total > r.chunkSize {
		head, rest := Split(merged, r.chunkSize)
		r.leftover = &rest
		return head, nil
	}
	return merged, nil
}

// RecentIterator forwards an upstream iterator while retaining the last
// chunks it produced in a sliding window.
type RecentIterator struct {
	upstream ChunkIterator
	window   *Window
}

// NewRecentIterator wraps upstream with a memory of its last
// memorySize chunks.
func NewRecentIterator(upstream ChunkIterator, memorySize int) *RecentIterator {
	return &RecentIterator{
		upstream: upstream,
		window:   NewWindow(memorySize),
	}
}

func (it *RecentIterator) NextChunk(ctx context.Context) (Chunk, error) {
	c, err := it.upstream.NextChunk(ctx)
	if err != nil {
		return Chunk{}, err
	}
	it.window.Push(c)
	return c, nil
}

// Memory returns the retained chunks in production order.
func (it *RecentIterator) Memory() []Chunk {
	return it.window.Items()
}
