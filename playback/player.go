// Package playback provides development-aid consumers for audio
// sources: a speaker player and a wav recorder. Neither is needed for
// transcription, but both are very useful while developing sources and
// processors.
package playback

import (
	"context"
	"errors"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog/log"

	"github.com/Perf-Org-5KRepos/streamtotext/audio"
)

// Player writes chunk audio from a source to the default output
// device.
type Player struct {
	src    audio.Source
	freq   int
	frames int
}

// NewPlayer creates a player for 16-bit mono audio at freq hertz.
func NewPlayer(src audio.Source, freq int) (*Player, error) {
	if src == nil {
		return nil, errors.New("source is nil")
	}
	if freq <= 0 {
		return nil, errors.New("frequency must be positive")
	}

	return &Player{
		src:    src,
		freq:   freq,
		frames: 1024,
	}, nil
}

// Play drains the source into the output device. It blocks until the
// source runs out of audio or ctx is cancelled.
func (p *Player) Play(ctx context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := portaudio.Terminate(); err != nil {
			log.Warn().Err(err).Msg("portaudio terminate failed")
		}
	}()

	buf := make([]int16, p.frames)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(p.freq), len(buf), &buf)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return err
	}
	defer func() {
		if err := stream.Stop(); err != nil {
			log.Warn().Err(err).Msg("output stream stop failed")
		}
	}()

	var pending []int16
	return audio.Listen(ctx, p.src, func(ctx context.Context) error {
		for {
			blk, err := p.src.NextBlock(ctx)
			if errors.Is(err, audio.ErrNoMoreBlocks) {
				return p.drain(stream, buf, pending)
			}
			if err != nil {
				return err
			}

			for {
				chunk, err := blk.NextChunk(ctx)
				if errors.Is(err, audio.ErrNoMoreChunks) {
					break
				}
				if err != nil {
					return err
				}

				pending = append(pending, audio.BytesToInt16(chunk.Audio)...)
				for len(pending) >= len(buf) {
					copy(buf, pending[:len(buf)])
					pending = pending[len(buf):]
					if err := stream.Write(); err != nil {
						return err
					}
				}
			}
		}
	})
}

// drain pads the tail out to one full buffer of silence and writes it.
func (p *Player) drain(stream *portaudio.Stream, buf, pending []int16) error {
	if len(pending) == 0 {
		return nil
	}
	n := copy(buf, pending)
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	return stream.Write()
}
