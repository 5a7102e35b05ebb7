// Package capture provides audio sources backed by local input
// devices via portaudio.
package capture

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog/log"

	"github.com/Perf-Org-5KRepos/streamtotext/audio"
	"github.com/Perf-Org-5KRepos/streamtotext/metrics"
)

// ErrNoDefaultInputDevice is returned by Microphone.Start when the host
// has no default capture device.
var ErrNoDefaultInputDevice = errors.New("no default input device")

const (
	defaultRate      = 16000
	defaultFrames    = 1600
	defaultQueueSize = 64
)

// Config configures a Microphone. Zero values fall back to 16kHz mono
// capture with 1600-frame buffers.
type Config struct {
	// Rate is the capture sample rate in hertz.
	Rate int
	// Frames is the number of frames per capture buffer, which becomes
	// the size of each pushed chunk.
	Frames int
	// QueueSize bounds the handoff queue between the capture callback
	// and the consumer. When full, new chunks are dropped.
	QueueSize int
}

// Microphone is an audio.Source capturing 16-bit mono audio from the
// default input device. The portaudio callback runs on a thread
// outside the cooperative domain; chunks cross over exclusively
// through a queue-backed block.
type Microphone struct {
	rate      int
	frames    int
	queueSize int

	running atomic.Bool
	stream  *portaudio.Stream
	ch      chan audio.Chunk
	last    audio.Block
}

// NewMicrophone creates a microphone source. The device itself is not
// touched until Start.
func NewMicrophone(cfg *Config) *Microphone {
	if cfg == nil {
		cfg = &Config{}
	}

	m := &Microphone{
		rate:      cfg.Rate,
		frames:    cfg.Frames,
		queueSize: cfg.QueueSize,
	}
	if m.rate == 0 {
		m.rate = defaultRate
	}
	if m.frames == 0 {
		m.frames = defaultFrames
	}
	if m.queueSize == 0 {
		m.queueSize = defaultQueueSize
	}
	return m
}

// Start initializes portaudio, verifies a default input device exists
// and begins capturing into the handoff queue.
func (m *Microphone) Start(ctx context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return err
	}

	dev, err := portaudio.DefaultInputDevice()
	if err != nil || dev == nil {
		if termErr := portaudio.Terminate(); termErr != nil {
			log.Warn().Err(termErr).Msg("portaudio terminate failed")
		}
		return ErrNoDefaultInputDevice
	}

	m.ch = make(chan audio.Chunk, m.queueSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.rate), m.frames, m.onCapture)
	if err != nil {
		if termErr := portaudio.Terminate(); termErr != nil {
			log.Warn().Err(termErr).Msg("portaudio terminate failed")
		}
		return err
	}
	m.stream = stream

	m.running.Store(true)
	if err := stream.Start(); err != nil {
		m.running.Store(false)
		return errors.Join(err, stream.Close(), portaudio.Terminate())
	}

	log.Info().Str("device", dev.Name).Int("rate", m.rate).Int("frames", m.frames).Msg("microphone started")
	return nil
}

// onCapture runs on the portaudio thread. It copies the reused capture
// buffer into a fresh chunk and hands it over without blocking.
func (m *Microphone) onCapture(in []int16) {
	if !m.running.Load() {
		return
	}

	samples := make([]int16, len(in))
	copy(samples, in)

	chunk := audio.Chunk{
		Start: time.Now(),
		Audio: audio.Int16ToBytes(samples),
		Width: 2,
		Freq:  m.rate,
	}

	select {
	case m.ch <- chunk:
	default:
		metrics.ChunksDropped.Inc()
	}
}

// Stop halts capture, signals end-of-stream to any block still being
// iterated and releases the device. Teardown failures are collected
// and reported together; each step still runs.
func (m *Microphone) Stop() error {
	m.running.Store(false)

	var errs []error
	if m.stream != nil {
		// Stop drains in-flight callbacks before the channel closes, so
		// no push can race the sentinel.
		if err := m.stream.Stop(); err != nil {
			errs = append(errs, err)
		}
		if err := m.stream.Close(); err != nil {
			errs = append(errs, err)
		}
		m.stream = nil
	}

	if m.ch != nil {
		close(m.ch)
		m.ch = nil
	}
	if m.last != nil {
		m.last.End()
	}

	if err := portaudio.Terminate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		log.Warn().Err(err).Msg("microphone teardown reported errors")
		return err
	}
	return nil
}

// NextBlock returns a queue-backed block over the capture handoff
// queue. Successive blocks share the queue, so each continues where
// the previous one was ended.
func (m *Microphone) NextBlock(ctx context.Context) (audio.Block, error) {
	// A microphone that is not capturing has no more spans to offer.
	if m.ch == nil {
		return nil, audio.ErrNoMoreBlocks
	}
	blk := audio.NewQueueBlockFrom(m.ch)
	m.last = blk
	return blk, nil
}
