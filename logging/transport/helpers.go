package transport

import (
	"context"

	"github.com/SJAGSINGH/SuttonHouse-MarkMon/logging"
)

const (
	// EventSubscribed is emitted when a dashboard client attaches.
	EventSubscribed logging.EventType = "transport.subscribed"
	// EventDropped is emitted when a subscriber is removed after a write
	// failure or disconnect.
	EventDropped logging.EventType = "transport.dropped"
)

// DropPayload explains a subscriber removal.
type DropPayload struct {
	Reason string `json:"reason"`
}

// Subscribed publishes a debug event for a new subscriber.
func Subscribed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSubscribed,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryTransport,
	})
}

// Dropped publishes a debug event for a removed subscriber.
func Dropped(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload DropPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDropped,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryTransport,
		Payload:  payload,
	})
}
