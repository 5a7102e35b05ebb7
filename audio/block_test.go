package audio

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueBlock(t *testing.T) {
	t.Run("pushed chunks come back in order and the sentinel ends the block", func(t *testing.T) {
		blk := NewQueueBlock(8)
		for i := 0; i < 3; i++ {
			if !blk.Push(constChunk(int16(i), 4)) {
				t.Fatalf("push %d rejected", i)
			}
		}
		blk.CloseSend()

		for i := 0; i < 3; i++ {
			c, err := blk.NextChunk(context.Background())
			if err != nil {
				t.Fatalf("chunk %d: unexpected error: %v", i, err)
			}
			if got := BytesToInt16(c.Audio)[0]; got != int16(i) {
				t.Errorf("chunk %d: expected %d, got %d", i, i, got)
			}
		}

		if _, err := blk.NextChunk(context.Background()); !errors.Is(err, ErrNoMoreChunks) {
			t.Fatalf("expected ErrNoMoreChunks, got %v", err)
		}
		if !blk.Ended() {
			t.Error("expected block to be ended after the sentinel")
		}
	})

	t.Run("a full queue drops the push instead of blocking", func(t *testing.T) {
		blk := NewQueueBlock(1)
		if !blk.Push(constChunk(1, 4)) {
			t.Fatal("first push rejected")
		}
		if blk.Push(constChunk(2, 4)) {
			t.Error("expected push into a full queue to be dropped")
		}
	})

	t.Run("ending the block unblocks a pending read in bounded time", func(t *testing.T) {
		blk := NewQueueBlock(1)

		errCh := make(chan error, 1)
		go func() {
			_, err := blk.NextChunk(context.Background())
			errCh <- err
		}()

		time.Sleep(10 * time.Millisecond)
		blk.End()

		select {
		case err := <-errCh:
			if !errors.Is(err, ErrNoMoreChunks) {
				t.Errorf("expected ErrNoMoreChunks, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("pending read did not unblock after End")
		}
	})

	t.Run("cancelled context interrupts a pending read", func(t *testing.T) {
		blk := NewQueueBlock(1)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := blk.NextChunk(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if blk.Ended() {
			t.Error("cancellation must not end the block")
		}
	})

	t.Run("external channel closure is the end-of-stream sentinel", func(t *testing.T) {
		ch := make(chan Chunk, 1)
		blk := NewQueueBlockFrom(ch)
		ch <- constChunk(7, 4)
		close(ch)

		if _, err := blk.NextChunk(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := blk.NextChunk(context.Background()); !errors.Is(err, ErrNoMoreChunks) {
			t.Errorf("expected ErrNoMoreChunks, got %v", err)
		}
	})
}

func TestFuncBlock(t *testing.T) {
	t.Run("delegates to fetch until it reports exhaustion", func(t *testing.T) {
		n := 0
		blk := NewFuncBlock(func(ctx context.Context) (Chunk, error) {
			if n >= 3 {
				return Chunk{}, ErrNoMoreChunks
			}
			n++
			return constChunk(int16(n), 4), nil
		})

		out := drain(t, blk)
		if len(out) != 3 {
			t.Fatalf("expected 3 chunks, got %d", len(out))
		}
		if !blk.Ended() {
			t.Error("expected block to be ended after fetch exhaustion")
		}
	})

	t.Run("ending the block terminates a fetch that never responds", func(t *testing.T) {
		blk := NewFuncBlock(func(ctx context.Context) (Chunk, error) {
			<-ctx.Done()
			return Chunk{}, ctx.Err()
		})

		errCh := make(chan error, 1)
		go func() {
			_, err := blk.NextChunk(context.Background())
			errCh <- err
		}()

		time.Sleep(10 * time.Millisecond)
		blk.End()

		select {
		case err := <-errCh:
			if !errors.Is(err, ErrNoMoreChunks) {
				t.Errorf("expected ErrNoMoreChunks, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("pending fetch did not unblock after End")
		}
	})

	t.Run("a read after a raced End waits out the losing fetch", func(t *testing.T) {
		var finished atomic.Bool
		release := make(chan struct{})
		blk := NewFuncBlock(func(ctx context.Context) (Chunk, error) {
			<-ctx.Done()
			<-release
			finished.Store(true)
			return Chunk{}, ctx.Err()
		})

		errCh := make(chan error, 1)
		go func() {
			_, err := blk.NextChunk(context.Background())
			errCh <- err
		}()

		time.Sleep(10 * time.Millisecond)
		blk.End()
		if err := <-errCh; !errors.Is(err, ErrNoMoreChunks) {
			t.Fatalf("expected ErrNoMoreChunks, got %v", err)
		}

		go func() {
			time.Sleep(20 * time.Millisecond)
			close(release)
		}()

		if _, err := blk.NextChunk(context.Background()); !errors.Is(err, ErrNoMoreChunks) {
			t.Fatalf("expected ErrNoMoreChunks, got %v", err)
		}
		if !finished.Load() {
			t.Error("the next read returned while the losing fetch was still running")
		}
	})

	t.Run("fetch errors other than exhaustion do not end the block", func(t *testing.T) {
		boom := errors.New("boom")
		blk := NewFuncBlock(func(ctx context.Context) (Chunk, error) {
			return Chunk{}, boom
		})

		if _, err := blk.NextChunk(context.Background()); !errors.Is(err, boom) {
			t.Fatalf("expected fetch error, got %v", err)
		}
		if blk.Ended() {
			t.Error("a transient fetch error must not end the block")
		}
	})

	t.Run("every read after End reports exhaustion", func(t *testing.T) {
		blk := NewFuncBlock(func(ctx context.Context) (Chunk, error) {
			return constChunk(1, 4), nil
		})
		blk.End()
		blk.End() // idempotent

		for i := 0; i < 2; i++ {
			if _, err := blk.NextChunk(context.Background()); !errors.Is(err, ErrNoMoreChunks) {
				t.Errorf("read %d: expected ErrNoMoreChunks, got %v", i, err)
			}
		}
	})
}
