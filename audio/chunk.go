package audio

import "time"

// Chunk is an immutable run of contiguous raw samples plus format
// metadata. Audio holds len(Audio)/Width samples of Width bytes each at
// Freq hertz; Start is the timestamp of the first sample.
//
// A Chunk may be a view over a larger buffer: the halves returned by
// Split alias the original storage, so callers must never mutate Audio
// in place.
type Chunk struct {
	Start time.Time
	Audio []byte
	Width int
	Freq  int
}

// SampleCount returns the number of samples held by c.
func SampleCount(c Chunk) int {
	return len(c.Audio) / c.Width
}

// Duration returns the span of audio held by c.
func (c Chunk) Duration() time.Duration {
	if c.Freq == 0 {
		return 0
	}
	return time.Duration(SampleCount(c)) * time.Second / time.Duration(c.Freq)
}

// Merge concatenates the audio of a non-empty ordered sequence of
// chunks sharing width and frequency. The merged chunk keeps only the
// first chunk's Start; the timestamps of later constituents are
// deliberately discarded.
func Merge(chunks []Chunk) Chunk {
	if len(chunks) == 0 {
		panic("audio: Merge of empty chunk sequence")
	}
	if len(chunks) == 1 {
		return chunks[0]
	}

	total := 0
	for _, c := range chunks {
		total += len(c.Audio)
	}

	buf := make([]byte, 0, total)
	for _, c := range chunks {
		buf = append(buf, c.Audio...)
	}

	return Chunk{
		Start: chunks[0].Start,
		Audio: buf,
		Width: chunks[0].Width,
		Freq:  chunks[0].Freq,
	}
}

// Split partitions c at sampleOffset, 0 <= sampleOffset <=
// SampleCount(c). Both halves keep c's Start, Width and Freq, and both
// alias c's storage.
func Split(c Chunk, sampleOffset int) (Chunk, Chunk) {
	off := sampleOffset * c.Width

	first := Chunk{Start: c.Start, Audio: c.Audio[:off], Width: c.Width, Freq: c.Freq}
	second := Chunk{Start: c.Start, Audio: c.Audio[off:], Width: c.Width, Freq: c.Freq}

	return first, second
}
