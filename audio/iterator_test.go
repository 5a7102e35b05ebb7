package audio

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

// sliceIter yields a fixed slice of chunks, then ErrNoMoreChunks.
type sliceIter struct {
	chunks []Chunk
	i      int
}

func (s *sliceIter) NextChunk(ctx context.Context) (Chunk, error) {
	if s.i >= len(s.chunks) {
		return Chunk{}, ErrNoMoreChunks
	}
	c := s.chunks[s.i]
	s.i++
	return c, nil
}

// drain pulls chunks until exhaustion and fails the test on any other
// error.
func drain(t *testing.T, it ChunkIterator) []Chunk {
	t.Helper()

	var out []Chunk
	for {
		c, err := it.NextChunk(context.Background())
		if errors.Is(err, ErrNoMoreChunks) {
			return out
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out = append(out, c)
	}
}

func TestResegmenter(t *testing.T) {
	t.Run("three chunks of 100 samples resegment to 160, 160 and a 20-sample tail", func(t *testing.T) {
		upstream := &sliceIter{chunks: []Chunk{
			rampChunk(0, 100), rampChunk(100, 100), rampChunk(200, 100),
		}}
		reseg := NewResegmenter(upstream, 160)

		out := drain(t, reseg)

		expected := []int{160, 160, 20}
		if len(out) != len(expected) {
			t.Fatalf("expected %d chunks, got %d", len(expected), len(out))
		}
		for i, want := range expected {
			if got := SampleCount(out[i]); got != want {
				t.Errorf("chunk %d: expected %d samples, got %d", i, want, got)
			}
		}

		var joined []byte
		for _, c := range out {
			joined = append(joined, c.Audio...)
		}
		if !bytes.Equal(joined, Merge([]Chunk{rampChunk(0, 100), rampChunk(100, 100), rampChunk(200, 100)}).Audio) {
			t.Error("resegmented stream does not reproduce the input samples")
		}
	})

	t.Run("chunks already at the target size pass through unchanged", func(t *testing.T) {
		upstream := &sliceIter{chunks: []Chunk{rampChunk(0, 160), rampChunk(160, 160)}}
		reseg := NewResegmenter(upstream, 160)

		out := drain(t, reseg)
		if len(out) != 2 {
			t.Fatalf("expected 2 chunks, got %d", len(out))
		}
		for i, c := range out {
			if SampleCount(c) != 160 {
				t.Errorf("chunk %d: expected 160 samples, got %d", i, SampleCount(c))
			}
		}
	})

	t.Run("small upstream chunks accumulate into one target-sized chunk", func(t *testing.T) {
		upstream := &sliceIter{chunks: []Chunk{
			rampChunk(0, 50), rampChunk(50, 50), rampChunk(100, 50), rampChunk(150, 10),
		}}
		reseg := NewResegmenter(upstream, 160)

		out := drain(t, reseg)
		if len(out) != 1 {
			t.Fatalf("expected 1 chunk, got %d", len(out))
		}
		if SampleCount(out[0]) != 160 {
			t.Errorf("expected 160 samples, got %d", SampleCount(out[0]))
		}
	})

	t.Run("empty upstream is immediately exhausted", func(t *testing.T) {
		reseg := NewResegmenter(&sliceIter{}, 160)
		if _, err := reseg.NextChunk(context.Background()); !errors.Is(err, ErrNoMoreChunks) {
			t.Errorf("expected ErrNoMoreChunks, got %v", err)
		}
	})

	t.Run("exhaustion is sticky", func(t *testing.T) {
		reseg := NewResegmenter(&sliceIter{chunks: []Chunk{rampChunk(0, 10)}}, 160)
		drain(t, reseg)
		if _, err := reseg.NextChunk(context.Background()); !errors.Is(err, ErrNoMoreChunks) {
			t.Errorf("expected ErrNoMoreChunks after exhaustion, got %v", err)
		}
	})
}

func TestRecentIterator(t *testing.T) {
	t.Run("forwards chunks and remembers the last few in order", func(t *testing.T) {
		upstream := &sliceIter{chunks: []Chunk{
			constChunk(1, 4), constChunk(2, 4), constChunk(3, 4), constChunk(4, 4),
		}}
		recent := NewRecentIterator(upstream, 2)

		out := drain(t, recent)
		if len(out) != 4 {
			t.Fatalf("expected 4 chunks forwarded, got %d", len(out))
		}

		memory := recent.Memory()
		if len(memory) != 2 {
			t.Fatalf("expected memory of 2 chunks, got %d", len(memory))
		}
		for i, want := range []int16{3, 4} {
			if got := BytesToInt16(memory[i].Audio)[0]; got != want {
				t.Errorf("memory %d: expected %d, got %d", i, want, got)
			}
		}
	})

	t.Run("errors pass through without touching the memory", func(t *testing.T) {
		recent := NewRecentIterator(&sliceIter{}, 2)
		if _, err := recent.NextChunk(context.Background()); !errors.Is(err, ErrNoMoreChunks) {
			t.Errorf("expected ErrNoMoreChunks, got %v", err)
		}
		if len(recent.Memory()) != 0 {
			t.Error("expected empty memory after upstream error")
		}
	})
}
