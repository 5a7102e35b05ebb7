package audio

import "errors"

var (
	// ErrNoMoreChunks terminates chunk iteration over a Block. It is the
	// normal end-of-stream signal, not a failure.
	ErrNoMoreChunks = errors.New("no more audio chunks")

	// ErrNoMoreBlocks terminates block iteration over a Source.
	ErrNoMoreBlocks = errors.New("no more audio blocks")

	// ErrSquelchLevelNotSet is returned by Squelch.Start when neither
	// SetLevel nor DetectLevel ran before the acquisition.
	ErrSquelchLevelNotSet = errors.New("squelch level not set")

	// ErrInvalidConfiguration wraps construction-time parameter errors.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidSampleWidth is returned when a component receives chunks
	// whose sample width it cannot process.
	ErrInvalidSampleWidth = errors.New("invalid sample width")

	// ErrNoCalibrationAudio is returned by DetectLevel when the source
	// produced no full-sized chunks within the calibration window.
	ErrNoCalibrationAudio = errors.New("no audio collected for calibration")
)
