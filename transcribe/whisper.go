package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Perf-Org-5KRepos/streamtotext/audio"
)

type whisperImpl struct {
	model whisper.Model
}

// Config configures the whisper transcriber.
type Config struct {
	Model whisper.Model
}

// New creates a transcriber running a local whisper model. The model
// expects 16kHz mono input; run the source through a RateConverter if
// it captures at another rate.
func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if cfg.Model == nil {
		return nil, fmt.Errorf("model is nil")
	}

	return &whisperImpl{
		model: cfg.Model,
	}, nil
}

func (w *whisperImpl) Transcribe(ctx context.Context, src audio.Source) (<-chan Event, error) {
	events := make(chan Event, 16)

	go func() {
		defer close(events)

		err := audio.Listen(ctx, src, func(ctx context.Context) error {
			for {
				blk, err := src.NextBlock(ctx)
				if errors.Is(err, audio.ErrNoMoreBlocks) {
					return nil
				}
				if err != nil {
					return err
				}

				if err := w.transcribeBlock(ctx, blk, events); err != nil {
					return err
				}
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("transcription stopped")
		}
	}()

	return events, nil
}

// transcribeBlock drains one utterance, runs the model over it and
// emits an event per accepted segment.
func (w *whisperImpl) transcribeBlock(ctx context.Context, blk audio.Block, events chan<- Event) error {
	var chunks []audio.Chunk
	for {
		chunk, err := blk.NextChunk(ctx)
		if errors.Is(err, audio.ErrNoMoreChunks) {
			break
		}
		if err != nil {
			return err
		}
		chunks = append(chunks, chunk)
	}
	if len(chunks) == 0 {
		return nil
	}

	utterance := audio.Merge(chunks)
	data := toFloat32(utterance)

	wctx, err := w.model.NewContext()
	if err != nil {
		return err
	}

	var cb whisper.SegmentCallback
	if err := wctx.Process(data, cb); err != nil {
		return err
	}

	segments, err := collectSegments(wctx)
	if err != nil {
		return err
	}

	for _, seg := range segments {
		ev := Event{
			ID:    uuid.New(),
			Start: utterance.Start.Add(seg.Start),
			End:   utterance.Start.Add(seg.End),
			Text:  seg.Text,
		}
		if err := emit(ctx, events, ev); err != nil {
			return err
		}
	}
	return nil
}

// emit delivers one event unless the consumer has gone away, so a
// cancelled context never strands the listen goroutine mid-send.
func emit(ctx context.Context, events chan<- Event, ev Event) error {
	select {
	case events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// collectSegments drains the processing context, skipping bracketed
// non-speech annotations and repeated text.
func collectSegments(wctx whisper.Context) ([]whisper.Segment, error) {
	seenText := make(map[string]bool)
	var segments []whisper.Segment

	for {
		segment, err := wctx.NextSegment()
		if err == io.EOF {
			return segments, nil
		} else if err != nil {
			return nil, err
		}

		if len(segment.Text) > 0 && (segment.Text[0] == '(' || segment.Text[0] == '[' ||
			segment.Text[len(segment.Text)-1] == ')' || segment.Text[len(segment.Text)-1] == ']') {
			continue
		}

		if seenText[segment.Text] {
			continue
		}
		seenText[segment.Text] = true

		segments = append(segments, segment)
	}
}

func toFloat32(c audio.Chunk) []float32 {
	samples := audio.BytesToInt16(c.Audio)
	data := make([]float32, len(samples))
	for i, s := range samples {
		data[i] = float32(s) / 32768
	}
	return data
}
