// Package publisher emits scan lifecycle events to downstream consumers.
package publisher

import (
	"context"
	"time"
)

// ScanEvent is the notification payload published when a scan finishes.
type ScanEvent struct {
	ScanID     string    `json:"scan_id"`
	URL        string    `json:"url"`
	Status     string    `json:"status"`
	Pages      int       `json:"pages"`
	Score      int       `json:"score"`
	FinishedAt time.Time `json:"finished_at"`
}

// Publisher pushes scan events to a topic. Implementations must be safe
// for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// NoOp discards events. Used when no event transport is configured.
type NoOp struct{}

// Publish for NoOp does nothing.
func (NoOp) Publish(_ context.Context, _ string, _ any) (string, error) {
	return "noop", nil
}
