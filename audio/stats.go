package audio

import (
	"math"
	"sort"
)

// Statistic reduces a window of equally sized chunks to a single value
// compared against the squelch level.
type Statistic func(chunks []Chunk) float64

// RMS computes the root-mean-square amplitude of raw samples. Widths of
// 1 (signed 8-bit) and 2 (signed 16-bit little-endian) are supported;
// other widths yield 0.
func RMS(audio []byte, width int) float64 {
	var sum float64
	var n int

	switch width {
	case 1:
		n = len(audio)
		for _, b := range audio {
			v := float64(int8(b))
			sum += v * v
		}
	case 2:
		n = len(audio) / 2
		for i := 0; i < n; i++ {
			v := float64(int16(audio[i*2]) | int16(audio[i*2+1])<<8)
			sum += v * v
		}
	}

	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

// MedianRMS is the default squelch statistic: per-chunk RMS, median
// across the window. The median resists the isolated transient spikes
// that would skew a mean.
func MedianRMS(chunks []Chunk) float64 {
	if len(chunks) == 0 {
		return 0
	}

	vals := make([]float64, len(chunks))
	for i, c := range chunks {
		vals[i] = RMS(c.Audio, c.Width)
	}
	return median(vals)
}

// median returns the 50th-percentile value: element len/2 of the
// ascending sort.
func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}
