package media

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jfreymuth/oggvorbis"
	"github.com/spf13/afero"

	"github.com/Perf-Org-5KRepos/streamtotext/audio"
)

// VorbisSource reads an ogg/vorbis file as an audio.Source. Decoded
// float samples are converted to 16-bit and downmixed to mono.
type VorbisSource struct {
	fs          afero.Fs
	path        string
	chunkFrames int

	file     afero.File
	dec      *oggvorbis.Reader
	freq     int
	channels int

	epoch     time.Time
	posFrames int64
	single    singleBlock
	last      audio.Block
}

// NewVorbisSource creates a source reading path from fs in chunks of
// chunkFrames frames (0 uses a default).
func NewVorbisSource(fs afero.Fs, path string, chunkFrames int) (*VorbisSource, error) {
	if fs == nil {
		return nil, fmt.Errorf("filesystem is nil")
	}
	if path == "" {
		return nil, fmt.Errorf("path is empty")
	}
	if chunkFrames == 0 {
		chunkFrames = defaultChunkFrames
	}

	return &VorbisSource{
		fs:          fs,
		path:        path,
		chunkFrames: chunkFrames,
	}, nil
}

// Freq returns the sample rate in hertz. Valid after Start.
func (v *VorbisSource) Freq() int { return v.freq }

func (v *VorbisSource) Start(ctx context.Context) error {
	f, err := v.fs.Open(v.path)
	if err != nil {
		return err
	}

	dec, err := oggvorbis.NewReader(f)
	if err != nil {
		_ = f.Close()
		return err
	}
	if dec.Channels() > 2 {
		_ = f.Close()
		return fmt.Errorf("%w: %d channels in %s", ErrUnsupportedChannelCount, dec.Channels(), v.path)
	}

	v.file = f
	v.dec = dec
	v.freq = dec.SampleRate()
	v.channels = dec.Channels()
	v.epoch = time.Now()
	v.posFrames = 0
	v.single.reset()
	return nil
}

func (v *VorbisSource) Stop() error {
	if v.last != nil {
		v.last.End()
	}
	if v.file == nil {
		return nil
	}
	err := v.file.Close()
	v.file = nil
	v.dec = nil
	return err
}

func (v *VorbisSource) NextBlock(ctx context.Context) (audio.Block, error) {
	if !v.single.take() {
		return nil, audio.ErrNoMoreBlocks
	}
	blk := audio.NewFuncBlock(v.readChunk)
	v.last = blk
	return blk, nil
}

func (v *VorbisSource) readChunk(ctx context.Context) (audio.Chunk, error) {
	buf := make([]float32, v.chunkFrames*v.channels)

	n, err := v.dec.Read(buf)
	if n == 0 {
		if err == io.EOF || err == nil {
			return audio.Chunk{}, audio.ErrNoMoreChunks
		}
		return audio.Chunk{}, err
	}

	n -= n % v.channels
	samples := floatToInt16(buf[:n])
	if v.channels == 2 {
		samples = downmixStereo(samples)
	}

	start := v.epoch.Add(time.Duration(v.posFrames) * time.Second / time.Duration(v.freq))
	v.posFrames += int64(len(samples))

	return audio.Chunk{
		Start: start,
		Audio: audio.Int16ToBytes(samples),
		Width: 2,
		Freq:  v.freq,
	}, nil
}

// floatToInt16 scales normalized [-1,1] samples to signed 16-bit with
// clamping.
func floatToInt16(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, s := range in {
		v := s * 32767
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}
