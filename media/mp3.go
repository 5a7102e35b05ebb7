package media

import (
	"context"
	"fmt"
	"io"
	"time"

	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/spf13/afero"

	"github.com/Perf-Org-5KRepos/streamtotext/audio"
)

// MP3Source reads an mp3 file as an audio.Source. The decoder always
// emits 16-bit stereo, which is downmixed to mono.
type MP3Source struct {
	fs          afero.Fs
	path        string
	chunkFrames int

	file afero.File
	dec  *mp3.Decoder
	freq int

	epoch     time.Time
	posFrames int64
	single    singleBlock
	last      audio.Block
}

// NewMP3Source creates a source reading path from fs in chunks of
// chunkFrames frames (0 uses a default).
func NewMP3Source(fs afero.Fs, path string, chunkFrames int) (*MP3Source, error) {
	if fs == nil {
		return nil, fmt.Errorf("filesystem is nil")
	}
	if path == "" {
		return nil, fmt.Errorf("path is empty")
	}
	if chunkFrames == 0 {
		chunkFrames = defaultChunkFrames
	}

	return &MP3Source{
		fs:          fs,
		path:        path,
		chunkFrames: chunkFrames,
	}, nil
}

// Freq returns the sample rate in hertz. Valid after Start.
func (m *MP3Source) Freq() int { return m.freq }

func (m *MP3Source) Start(ctx context.Context) error {
	f, err := m.fs.Open(m.path)
	if err != nil {
		return err
	}

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		_ = f.Close()
		return err
	}

	m.file = f
	m.dec = dec
	m.freq = dec.SampleRate()
	m.epoch = time.Now()
	m.posFrames = 0
	m.single.reset()
	return nil
}

func (m *MP3Source) Stop() error {
	if m.last != nil {
		m.last.End()
	}
	if m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	m.dec = nil
	return err
}

func (m *MP3Source) NextBlock(ctx context.Context) (audio.Block, error) {
	if !m.single.take() {
		return nil, audio.ErrNoMoreBlocks
	}
	blk := audio.NewFuncBlock(m.readChunk)
	m.last = blk
	return blk, nil
}

func (m *MP3Source) readChunk(ctx context.Context) (audio.Chunk, error) {
	// go-mp3 emits 16-bit stereo: 4 bytes per frame.
	buf := make([]byte, m.chunkFrames*4)

	n, err := io.ReadFull(m.dec, buf)
	if n == 0 {
		return audio.Chunk{}, audio.ErrNoMoreChunks
	}
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return audio.Chunk{}, err
	}

	// Truncate to whole frames.
	n -= n % 4
	mono := downmixStereo(audio.BytesToInt16(buf[:n]))

	start := m.epoch.Add(time.Duration(m.posFrames) * time.Second / time.Duration(m.freq))
	m.posFrames += int64(len(mono))

	return audio.Chunk{
		Start: start,
		Audio: audio.Int16ToBytes(mono),
		Width: 2,
		Freq:  m.freq,
	}, nil
}
