package transcribe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEmit(t *testing.T) {
	t.Run("delivers when the consumer is ready", func(t *testing.T) {
		events := make(chan Event, 1)
		ev := Event{ID: uuid.New(), Text: "hello"}

		if err := emit(context.Background(), events, ev); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got := <-events
		if got.Text != "hello" {
			t.Errorf("expected %q, got %q", "hello", got.Text)
		}
	})

	t.Run("abandons the send when the consumer is gone", func(t *testing.T) {
		events := make(chan Event) // nobody receiving
		ctx, cancel := context.WithCancel(context.Background())

		errCh := make(chan error, 1)
		go func() {
			errCh <- emit(ctx, events, Event{ID: uuid.New()})
		}()

		time.Sleep(10 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("emit did not unblock after cancellation")
		}
	})
}
