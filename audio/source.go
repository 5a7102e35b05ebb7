package audio

import "context"

// Source provides audio for the lifetime of one acquisition. Audio is
// obtained by starting the source (directly or through Listen) and
// iterating blocks with NextBlock until ErrNoMoreBlocks.
//
// Lifecycle is not started -> started -> stopped, terminal per
// acquisition. Stopping a source while its most recent block is being
// iterated ends that block, so consumers observe clean termination.
type Source interface {
	// Start opens whatever the source needs to deliver audio: devices,
	// files, the wrapped source of a processor.
	Start(ctx context.Context) error

	// Stop tears the acquisition down. It ends the last produced block.
	Stop() error

	// NextBlock returns the next continuous span of audio, or
	// ErrNoMoreBlocks when the source is exhausted.
	NextBlock(ctx context.Context) (Block, error)
}

// Listen scopes an acquisition on src: it starts the source, runs fn,
// and stops the source on every exit path. A stop failure is returned
// only when fn itself succeeded.
func Listen(ctx context.Context, src Source, fn func(ctx context.Context) error) (err error) {
	if err = src.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopErr := src.Stop()
		if err == nil {
			err = stopErr
		}
	}()
	return fn(ctx)
}
