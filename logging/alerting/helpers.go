package alerting

import (
	"context"

	"github.com/SJAGSINGH/SuttonHouse-MarkMon/logging"
)

const (
	// EventWarRaised is emitted when the war flag flips to active.
	EventWarRaised logging.EventType = "alert.war_raised"
	// EventWarCleared is emitted when the war flag flips back off.
	EventWarCleared logging.EventType = "alert.war_cleared"
)

// WarPayload carries the human-readable trigger clauses.
type WarPayload struct {
	Reason string `json:"reason"`
}

// WarRaised publishes a warning event when the war flag trips.
func WarRaised(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload WarPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventWarRaised,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryAlert,
		Payload:  payload,
	})
}

// WarCleared publishes an info event when the war flag resets.
func WarCleared(ctx context.Context, pub logging.Publisher, actor logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventWarCleared,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryAlert,
	})
}
