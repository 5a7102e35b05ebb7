package media

import (
	"context"
	"fmt"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"

	"github.com/Perf-Org-5KRepos/streamtotext/audio"
)

// WaveSource reads a wav file as an audio.Source. Stereo files are
// downmixed to mono before chunks are built; more than two channels is
// a precondition violation.
type WaveSource struct {
	fs          afero.Fs
	path        string
	chunkFrames int

	file     afero.File
	dec      *wav.Decoder
	depth    int
	freq     int
	channels int

	epoch     time.Time
	posFrames int64
	single    singleBlock
	last      audio.Block
}

// NewWaveSource creates a source reading path from fs in chunks of
// chunkFrames frames (0 uses a default).
func NewWaveSource(fs afero.Fs, path string, chunkFrames int) (*WaveSource, error) {
	if fs == nil {
		return nil, fmt.Errorf("filesystem is nil")
	}
	if path == "" {
		return nil, fmt.Errorf("path is empty")
	}
	if chunkFrames == 0 {
		chunkFrames = defaultChunkFrames
	}

	return &WaveSource{
		fs:          fs,
		path:        path,
		chunkFrames: chunkFrames,
	}, nil
}

// Width returns bytes per sample of the chunks this source produces.
// Files at other depths are scaled to 16-bit at ingestion.
func (w *WaveSource) Width() int { return 2 }

// Freq returns the sample rate in hertz. Valid after Start.
func (w *WaveSource) Freq() int { return w.freq }

func (w *WaveSource) Start(ctx context.Context) error {
	f, err := w.fs.Open(w.path)
	if err != nil {
		return err
	}

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if dec.Err() != nil {
		_ = f.Close()
		return dec.Err()
	}
	if !dec.WasPCMAccessed() {
		if err := dec.FwdToPCM(); err != nil {
			_ = f.Close()
			return err
		}
	}

	channels := int(dec.NumChans)
	if channels > 2 {
		_ = f.Close()
		return fmt.Errorf("%w: %d channels in %s", ErrUnsupportedChannelCount, channels, w.path)
	}

	depth := int(dec.BitDepth)
	switch depth {
	case 8, 16, 24, 32:
	default:
		_ = f.Close()
		return fmt.Errorf("%w: %d bits in %s", ErrUnsupportedBitDepth, depth, w.path)
	}

	w.file = f
	w.dec = dec
	w.depth = depth
	w.freq = int(dec.SampleRate)
	w.channels = channels
	w.epoch = time.Now()
	w.posFrames = 0
	w.single.reset()
	return nil
}

func (w *WaveSource) Stop() error {
	if w.last != nil {
		w.last.End()
	}
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.dec = nil
	return err
}

func (w *WaveSource) NextBlock(ctx context.Context) (audio.Block, error) {
	if !w.single.take() {
		return nil, audio.ErrNoMoreBlocks
	}
	blk := audio.NewFuncBlock(w.readChunk)
	w.last = blk
	return blk, nil
}

// readChunk pulls up to chunkFrames frames from the decoder and wraps
// them as a mono chunk. A zero-length read signals end-of-stream.
func (w *WaveSource) readChunk(ctx context.Context) (audio.Chunk, error) {
	buf := &gaudio.IntBuffer{
		Format: &gaudio.Format{NumChannels: w.channels, SampleRate: w.freq},
		Data:   make([]int, w.chunkFrames*w.channels),
	}

	n, err := w.dec.PCMBuffer(buf)
	if err != nil {
		return audio.Chunk{}, err
	}
	if n == 0 {
		return audio.Chunk{}, audio.ErrNoMoreChunks
	}

	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = sampleTo16(buf.Data[i], w.depth)
	}
	if w.channels == 2 {
		samples = downmixStereo(samples)
	}

	start := w.epoch.Add(time.Duration(w.posFrames) * time.Second / time.Duration(w.freq))
	w.posFrames += int64(len(samples))

	return audio.Chunk{
		Start: start,
		Audio: audio.Int16ToBytes(samples),
		Width: 2,
		Freq:  w.freq,
	}, nil
}

// sampleTo16 scales one decoded PCM value to signed 16-bit. Wav stores
// 8-bit audio unsigned around 128; wider depths shift down.
func sampleTo16(v, depth int) int16 {
	switch depth {
	case 8:
		return int16((v - 128) << 8)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		return int16(v)
	}
}
