// Package media provides file-backed audio sources. Every source
// yields a single continuous block per acquisition, reading the file
// front to back, downmixed to mono 16-bit PCM.
package media

import "errors"

// ErrUnsupportedChannelCount is returned when a file carries more than
// two channels; only mono and stereo input are supported.
var ErrUnsupportedChannelCount = errors.New("unsupported channel count")

// ErrUnsupportedBitDepth is returned when a file stores samples at a
// depth the source cannot scale to 16-bit.
var ErrUnsupportedBitDepth = errors.New("unsupported bit depth")

const defaultChunkFrames = 8192

// singleBlock tracks sources that expose exactly one continuous span
// per acquisition, a file read front to back.
type singleBlock struct {
	returned bool
}

func (s *singleBlock) take() bool {
	if s.returned {
		return false
	}
	s.returned = true
	return true
}

func (s *singleBlock) reset() {
	s.returned = false
}

// downmixStereo averages interleaved stereo samples into mono with
// equal 0.5 weights per channel.
func downmixStereo(samples []int16) []int16 {
	mono := make([]int16, len(samples)/2)
	for i := range mono {
		mono[i] = int16((int32(samples[i*2]) + int32(samples[i*2+1])) / 2)
	}
	return mono
}
