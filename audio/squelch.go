package audio

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Perf-Org-5KRepos/streamtotext/metrics"
)

// Hysteresis: once triggered, the gate holds until the statistic falls
// below this fraction of the squelch level. The 20% band prevents rapid
// toggling when the signal hovers at the threshold.
const hysteresisRatio = 0.8

// Squelch defaults, sized for 16-bit audio around 16kHz.
const (
	DefaultSampleSize    = 1600
	DefaultPrefixSamples = 4
	DefaultDetectTime    = 10 * time.Second
	DefaultPercentile    = 0.8
	squelchSampleWidth   = 2
)

// SquelchConfig configures a Squelch processor. Zero values fall back
// to the package defaults; Level may instead be calibrated with
// DetectLevel before Start.
type SquelchConfig struct {
	// SampleSize is the number of samples per evaluation chunk.
	SampleSize int
	// PrefixSamples is the window capacity, in evaluation chunks, used
	// both for the statistic and for pre-roll replay on trigger.
	PrefixSamples int
	// Level is the trigger threshold. Required before Start unless
	// DetectLevel runs first.
	Level float64
	// Statistic reduces the window to the value compared against Level.
	// Defaults to MedianRMS.
	Statistic Statistic
}

// Squelch is a processor that passes audio through only while a
// volume-derived statistic indicates activity. Each emitted block is
// one detected utterance: its first chunk replays the pre-roll window
// so consumers get lead-in audio from before the onset, and the block
// ends itself the instant the de-trigger condition is met.
type Squelch struct {
	src        Source
	sampleSize int
	prefix     int
	level      float64
	levelSet   bool
	stat       Statistic

	srcBlock  Block
	recent    *RecentIterator
	last      Block
	lastGated *squelchBlock
}

// NewSquelch wraps src with a voice-activity gate.
func NewSquelch(src Source, cfg *SquelchConfig) (*Squelch, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: source is nil", ErrInvalidConfiguration)
	}
	if cfg == nil {
		cfg = &SquelchConfig{}
	}
	if cfg.SampleSize < 0 || cfg.PrefixSamples < 0 {
		return nil, fmt.Errorf("%w: sample size and prefix samples must be positive", ErrInvalidConfiguration)
	}

	s := &Squelch{
		src:        src,
		sampleSize: cfg.SampleSize,
		prefix:     cfg.PrefixSamples,
		stat:       cfg.Statistic,
	}
	if s.sampleSize == 0 {
		s.sampleSize = DefaultSampleSize
	}
	if s.prefix == 0 {
		s.prefix = DefaultPrefixSamples
	}
	if s.stat == nil {
		s.stat = MedianRMS
	}
	if cfg.Level != 0 {
		s.SetLevel(cfg.Level)
	}
	return s, nil
}

// Level returns the current squelch level.
func (s *Squelch) Level() float64 {
	return s.level
}

// SetLevel sets the trigger threshold directly instead of calibrating.
func (s *Squelch) SetLevel(level float64) {
	s.level = level
	s.levelSet = true
	metrics.SquelchLevel.Set(level)
}

// Start validates that a level is configured, then starts the wrapped
// source. Own state precedes the wrapped source so the gate is ready
// before upstream delivery begins.
func (s *Squelch) Start(ctx context.Context) error {
	if !s.levelSet {
		return ErrSquelchLevelNotSet
	}
	return s.src.Start(ctx)
}

// Stop stops the wrapped source first so upstream delivery ceases
// before the gate's own state is torn down, then ends the last emitted
// block.
func (s *Squelch) Stop() error {
	err := s.src.Stop()
	if s.last != nil {
		s.last.End()
	}
	s.srcBlock = nil
	s.recent = nil
	s.lastGated = nil
	return err
}

// NextBlock scans upstream audio until the trigger condition fires and
// returns the gated block for that utterance. When an upstream block
// ends while silent, scanning continues on the next upstream block;
// only exhaustion of the wrapped source ends iteration.
func (s *Squelch) NextBlock(ctx context.Context) (Block, error) {
	// A gated block ended mid-fetch may still have that fetch inside
	// the shared iterator; wait it out before scanning resumes.
	if s.lastGated != nil {
		if err := s.lastGated.awaitPending(ctx); err != nil {
			return nil, err
		}
		s.lastGated = nil
	}

	for {
		if s.srcBlock == nil || s.srcBlock.Ended() {
			blk, err := s.src.NextBlock(ctx)
			if err != nil {
				return nil, err
			}
			s.srcBlock = blk
			s.recent = NewRecentIterator(NewResegmenter(blk, s.sampleSize), s.prefix)
		}

		for {
			_, err := s.recent.NextChunk(ctx)
			if errors.Is(err, ErrNoMoreChunks) {
				s.srcBlock.End()
				break
			}
			if err != nil {
				return nil, err
			}

			if checkSquelch(s.stat, s.level, false, s.recent.Memory()) {
				metrics.SquelchTriggers.Inc()
				metrics.BlocksEmitted.Inc()
				log.Debug().Float64("level", s.level).Msg("squelch triggered")

				blk := &squelchBlock{
					blockState: newBlockState(),
					recent:     s.recent,
					level:      s.level,
					stat:       s.stat,
				}
				s.last = blk
				s.lastGated = blk
				return blk, nil
			}
		}
	}
}

// checkSquelch applies the hysteresis rule: from silent, trigger when
// the statistic exceeds level; from triggered, stay up until it falls
// below hysteresisRatio of level.
func checkSquelch(stat Statistic, level float64, triggered bool, chunks []Chunk) bool {
	v := stat(chunks)
	if triggered {
		return v >= level*hysteresisRatio
	}
	return v > level
}

// squelchBlock streams one detected utterance. The first chunk is the
// merged pre-roll window; subsequent chunks come live from the shared
// iterator while the de-trigger condition is re-evaluated on each step.
type squelchBlock struct {
	blockState
	recent     *RecentIterator
	level      float64
	stat       Statistic
	sentPrefix bool
}

func (b *squelchBlock) NextChunk(ctx context.Context) (Chunk, error) {
	return b.nextChunk(ctx, b.fetch)
}

func (b *squelchBlock) fetch(ctx context.Context) (Chunk, error) {
	if !b.sentPrefix {
		b.sentPrefix = true
		return Merge(b.recent.Memory()), nil
	}

	chunk, err := b.recent.NextChunk(ctx)
	if err != nil {
		return Chunk{}, err
	}

	if !checkSquelch(b.stat, b.level, true, b.recent.Memory()) {
		log.Debug().Float64("level", b.level).Msg("squelch released")
		return Chunk{}, ErrNoMoreChunks
	}
	return chunk, nil
}

// DetectLevel calibrates the squelch threshold from live audio. It
// holds a scoped acquisition on the wrapped source for detectTime,
// collects evaluation-sized chunks, computes per-chunk RMS discarding
// partial boundary chunks, and picks the value at the given percentile
// of the ascending sort. The chosen level is installed on s and
// returned.
//
// Calibration is bounded by wall clock, not chunk count, since arrival
// rate depends on the live source.
func (s *Squelch) DetectLevel(ctx context.Context, detectTime time.Duration, percentile float64) (float64, error) {
	if detectTime <= 0 {
		detectTime = DefaultDetectTime
	}
	if percentile <= 0 || percentile > 1 {
		percentile = DefaultPercentile
	}

	calCtx, cancel := context.WithTimeout(ctx, detectTime)
	defer cancel()

	var collected []Chunk
	err := Listen(ctx, s.src, func(ctx context.Context) error {
		for {
			blk, err := s.src.NextBlock(calCtx)
			if errors.Is(err, ErrNoMoreBlocks) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			if err != nil {
				return err
			}

			reseg := NewResegmenter(blk, s.sampleSize)
			for {
				chunk, err := reseg.NextChunk(calCtx)
				if errors.Is(err, ErrNoMoreChunks) {
					break
				}
				if errors.Is(err, context.DeadlineExceeded) {
					return nil
				}
				if err != nil {
					return err
				}
				collected = append(collected, chunk)
			}
		}
	})
	if err != nil {
		return 0, err
	}

	rmsVals := make([]float64, 0, len(collected))
	for _, c := range collected {
		// Partial boundary chunks would skew the distribution.
		if len(c.Audio) != s.sampleSize*squelchSampleWidth {
			continue
		}
		rmsVals = append(rmsVals, RMS(c.Audio, c.Width))
	}
	if len(rmsVals) == 0 {
		return 0, ErrNoCalibrationAudio
	}

	sort.Float64s(rmsVals)
	idx := int(percentile * float64(len(rmsVals)))
	if idx >= len(rmsVals) {
		idx = len(rmsVals) - 1
	}

	level := rmsVals[idx]
	s.SetLevel(level)
	log.Info().Float64("level", level).Int("samples", len(rmsVals)).Msg("squelch level calibrated")
	return level, nil
}
