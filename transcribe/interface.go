package transcribe

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Perf-Org-5KRepos/streamtotext/audio"
)

// Event is one transcribed utterance.
type Event struct {
	ID    uuid.UUID
	Start time.Time
	End   time.Time
	Text  string
}

// Interface consumes a gated audio source and produces an asynchronous
// stream of transcription events. The channel closes when the source
// is exhausted or the context is cancelled.
type Interface interface {
	Transcribe(ctx context.Context, src audio.Source) (<-chan Event, error)
}
