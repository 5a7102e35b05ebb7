package audio

import (
	"context"
	"errors"
	"testing"
)

// fakeSource yields a fixed sequence of blocks, then ErrNoMoreBlocks.
type fakeSource struct {
	blocks []Block
	i      int

	started bool
	stopped bool
	last    Block

	startErr error
	stopErr  error
}

func (s *fakeSource) Start(ctx context.Context) error {
	s.started = true
	return s.startErr
}

func (s *fakeSource) Stop() error {
	s.stopped = true
	if s.last != nil {
		s.last.End()
	}
	return s.stopErr
}

func (s *fakeSource) NextBlock(ctx context.Context) (Block, error) {
	if s.i >= len(s.blocks) {
		return nil, ErrNoMoreBlocks
	}
	blk := s.blocks[s.i]
	s.i++
	s.last = blk
	return blk, nil
}

// blockOf wraps a fixed chunk sequence as a single block.
func blockOf(chunks ...Chunk) Block {
	it := &sliceIter{chunks: chunks}
	return NewFuncBlock(it.NextChunk)
}

func TestListen(t *testing.T) {
	t.Run("starts before fn and stops on every exit path", func(t *testing.T) {
		src := &fakeSource{}
		err := Listen(context.Background(), src, func(ctx context.Context) error {
			if !src.started {
				t.Error("fn ran before the source was started")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !src.stopped {
			t.Error("source was not stopped")
		}
	})

	t.Run("fn error propagates and the source still stops", func(t *testing.T) {
		src := &fakeSource{}
		boom := errors.New("boom")
		err := Listen(context.Background(), src, func(ctx context.Context) error {
			return boom
		})
		if !errors.Is(err, boom) {
			t.Errorf("expected fn error, got %v", err)
		}
		if !src.stopped {
			t.Error("source was not stopped after fn error")
		}
	})

	t.Run("start error short-circuits fn", func(t *testing.T) {
		boom := errors.New("no device")
		src := &fakeSource{startErr: boom}
		ran := false
		err := Listen(context.Background(), src, func(ctx context.Context) error {
			ran = true
			return nil
		})
		if !errors.Is(err, boom) {
			t.Errorf("expected start error, got %v", err)
		}
		if ran {
			t.Error("fn ran despite start failure")
		}
		if src.stopped {
			t.Error("source was stopped despite never starting")
		}
	})

	t.Run("stop error surfaces only when fn succeeded", func(t *testing.T) {
		stopErr := errors.New("teardown failed")

		src := &fakeSource{stopErr: stopErr}
		err := Listen(context.Background(), src, func(ctx context.Context) error { return nil })
		if !errors.Is(err, stopErr) {
			t.Errorf("expected stop error, got %v", err)
		}

		fnErr := errors.New("boom")
		src = &fakeSource{stopErr: stopErr}
		err = Listen(context.Background(), src, func(ctx context.Context) error { return fnErr })
		if !errors.Is(err, fnErr) {
			t.Errorf("expected fn error to win, got %v", err)
		}
	})

	t.Run("stopping the source ends its last block", func(t *testing.T) {
		blk := blockOf(constChunk(1, 4))
		src := &fakeSource{blocks: []Block{blk}}

		err := Listen(context.Background(), src, func(ctx context.Context) error {
			got, err := src.NextBlock(ctx)
			if err != nil {
				return err
			}
			if got.Ended() {
				t.Error("fresh block is already ended")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !blk.Ended() {
			t.Error("expected the last block to be ended by Stop")
		}
	})
}
