package audio

import (
	"math"
	"testing"
)

func TestRMS(t *testing.T) {
	t.Run("constant 16-bit amplitude yields that amplitude", func(t *testing.T) {
		c := constChunk(1000, 16)
		if got := RMS(c.Audio, 2); got != 1000 {
			t.Errorf("expected 1000, got %f", got)
		}
	})

	t.Run("mixed 16-bit samples", func(t *testing.T) {
		audio := Int16ToBytes([]int16{6, -8})
		want := math.Sqrt((36 + 64) / 2.0)
		if got := RMS(audio, 2); math.Abs(got-want) > 1e-9 {
			t.Errorf("expected %f, got %f", want, got)
		}
	})

	t.Run("8-bit samples", func(t *testing.T) {
		audio := []byte{3, 0xfc}
		want := math.Sqrt((9 + 16) / 2.0)
		if got := RMS(audio, 1); math.Abs(got-want) > 1e-9 {
			t.Errorf("expected %f, got %f", want, got)
		}
	})

	t.Run("empty audio and unsupported widths yield zero", func(t *testing.T) {
		if got := RMS(nil, 2); got != 0 {
			t.Errorf("empty: expected 0, got %f", got)
		}
		if got := RMS(make([]byte, 12), 3); got != 0 {
			t.Errorf("width 3: expected 0, got %f", got)
		}
	})
}

func TestMedianRMS(t *testing.T) {
	t.Run("odd window takes the middle per-chunk RMS", func(t *testing.T) {
		chunks := []Chunk{constChunk(30, 4), constChunk(10, 4), constChunk(20, 4)}
		if got := MedianRMS(chunks); got != 20 {
			t.Errorf("expected 20, got %f", got)
		}
	})

	t.Run("even window takes the upper middle element", func(t *testing.T) {
		chunks := []Chunk{constChunk(10, 4), constChunk(40, 4), constChunk(20, 4), constChunk(30, 4)}
		if got := MedianRMS(chunks); got != 30 {
			t.Errorf("expected 30, got %f", got)
		}
	})

	t.Run("empty window yields zero", func(t *testing.T) {
		if got := MedianRMS(nil); got != 0 {
			t.Errorf("expected 0, got %f", got)
		}
	})
}

func TestMedianFlux(t *testing.T) {
	t.Run("a steady signal has zero flux", func(t *testing.T) {
		chunks := []Chunk{constChunk(1000, 64), constChunk(1000, 64), constChunk(1000, 64)}
		if got := MedianFlux(chunks); got != 0 {
			t.Errorf("expected 0, got %f", got)
		}
	})

	t.Run("an onset registers as positive flux", func(t *testing.T) {
		chunks := []Chunk{constChunk(0, 64), constChunk(10000, 64)}
		if got := MedianFlux(chunks); got <= 0 {
			t.Errorf("expected positive flux, got %f", got)
		}
	})

	t.Run("fewer than two chunks yields zero", func(t *testing.T) {
		if got := MedianFlux([]Chunk{constChunk(1000, 64)}); got != 0 {
			t.Errorf("expected 0, got %f", got)
		}
	})
}
