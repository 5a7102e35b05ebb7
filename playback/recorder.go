package playback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	wave "github.com/zenwerk/go-wave"

	"github.com/Perf-Org-5KRepos/streamtotext/audio"
)

// Recorder writes each block of a source to its own timestamped wav
// file. Pointed at a squelch-gated source, it captures one file per
// detected utterance.
type Recorder struct {
	fs   afero.Fs
	src  audio.Source
	freq int
}

// NewRecorder creates a recorder writing 16-bit mono wav files at freq
// hertz onto fs.
func NewRecorder(fs afero.Fs, src audio.Source, freq int) (*Recorder, error) {
	if fs == nil {
		return nil, errors.New("filesystem is nil")
	}
	if src == nil {
		return nil, errors.New("source is nil")
	}
	if freq <= 0 {
		return nil, errors.New("frequency must be positive")
	}

	return &Recorder{
		fs:   fs,
		src:  src,
		freq: freq,
	}, nil
}

// Record drains the source, writing one wav file per block, and
// returns the file names written.
func (r *Recorder) Record(ctx context.Context) ([]string, error) {
	var names []string

	err := audio.Listen(ctx, r.src, func(ctx context.Context) error {
		for {
			blk, err := r.src.NextBlock(ctx)
			if errors.Is(err, audio.ErrNoMoreBlocks) {
				return nil
			}
			if err != nil {
				return err
			}

			name := fmt.Sprintf("utterance-%d.wav", time.Now().UnixNano())
			if err := r.writeBlock(ctx, blk, name); err != nil {
				return err
			}
			names = append(names, name)
			log.Info().Str("file", name).Msg("utterance recorded")
		}
	})
	return names, err
}

func (r *Recorder) writeBlock(ctx context.Context, blk audio.Block, name string) error {
	f, err := r.fs.Create(name)
	if err != nil {
		return err
	}

	writer, err := wave.NewWriter(wave.WriterParam{
		Out:           f,
		Channel:       1,
		SampleRate:    r.freq,
		BitsPerSample: 16,
	})
	if err != nil {
		_ = f.Close()
		return err
	}
	defer func() {
		if err := writer.Close(); err != nil {
			log.Warn().Err(err).Str("file", name).Msg("wav writer close failed")
		}
	}()

	for {
		chunk, err := blk.NextChunk(ctx)
		if errors.Is(err, audio.ErrNoMoreChunks) {
			return nil
		}
		if err != nil {
			return err
		}

		if _, err := writer.WriteSample16(audio.BytesToInt16(chunk.Audio)); err != nil {
			return err
		}
	}
}
