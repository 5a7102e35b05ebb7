package audio

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RateConverter is a processor resampling every block of the wrapped
// source to a target rate. Resampler state is threaded across the
// chunks of one block, never reset mid-span, so chunk boundaries
// introduce no discontinuity. Output chunks keep the input chunk's
// Start and carry Width 2 at the target frequency.
//
// Input chunks must be mono 16-bit; downmixing happens at ingestion.
type RateConverter struct {
	src     Source
	outRate int
	last    Block
}

// NewRateConverter wraps src with a resampling stage targeting outRate.
func NewRateConverter(src Source, outRate int) (*RateConverter, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: source is nil", ErrInvalidConfiguration)
	}
	if outRate <= 0 {
		return nil, fmt.Errorf("%w: output rate must be positive, got %d", ErrInvalidConfiguration, outRate)
	}

	return &RateConverter{
		src:     src,
		outRate: outRate,
	}, nil
}

func (r *RateConverter) Start(ctx context.Context) error {
	return r.src.Start(ctx)
}

// Stop stops the wrapped source first, then ends the last emitted
// block so no consumer is left iterating a dead span.
func (r *RateConverter) Stop() error {
	err := r.src.Stop()
	if r.last != nil {
		r.last.End()
	}
	return err
}

func (r *RateConverter) NextBlock(ctx context.Context) (Block, error) {
	inner, err := r.src.NextBlock(ctx)
	if err != nil {
		return nil, err
	}

	blk := &rateBlock{
		blockState: newBlockState(),
		src:        inner,
		outRate:    r.outRate,
	}
	r.last = blk
	return blk, nil
}

type rateBlock struct {
	blockState
	src       Block
	outRate   int
	rs        *resampler
	flushed   bool
	tailStart time.Time
}

func (b *rateBlock) NextChunk(ctx context.Context) (Chunk, error) {
	return b.nextChunk(ctx, b.fetch)
}

func (b *rateBlock) fetch(ctx context.Context) (Chunk, error) {
	for {
		chunk, err := b.src.NextChunk(ctx)
		if errors.Is(err, ErrNoMoreChunks) {
			return b.fetchTail()
		}
		if err != nil {
			return Chunk{}, err
		}
		if chunk.Width != 2 {
			return Chunk{}, fmt.Errorf("%w: rate conversion needs 16-bit samples, got width %d",
				ErrInvalidSampleWidth, chunk.Width)
		}

		if b.rs == nil {
			b.rs = newResampler(chunk.Freq, b.outRate)
		}
		b.tailStart = chunk.Start.Add(chunk.Duration())

		out := b.rs.process(BytesToInt16(chunk.Audio))
		if len(out) == 0 {
			// Not enough input yet for one output sample.
			continue
		}

		return Chunk{
			Start: chunk.Start,
			Audio: Int16ToBytes(out),
			Width: 2,
			Freq:  b.outRate,
		}, nil
	}
}

// fetchTail emits the samples still pending in the resampler once the
// inner block is exhausted. The tail is stamped with the end of the
// last input chunk, which is where its audio begins.
func (b *rateBlock) fetchTail() (Chunk, error) {
	if b.flushed || b.rs == nil {
		return Chunk{}, ErrNoMoreChunks
	}
	b.flushed = true

	out := b.rs.flush()
	if len(out) == 0 {
		return Chunk{}, ErrNoMoreChunks
	}
	return Chunk{
		Start: b.tailStart,
		Audio: Int16ToBytes(out),
		Width: 2,
		Freq:  b.outRate,
	}, nil
}
