package feed

import (
	"context"

	"github.com/SJAGSINGH/SuttonHouse-MarkMon/logging"
)

const (
	// EventIngestAccepted is emitted when a webhook payload was merged.
	EventIngestAccepted logging.EventType = "feed.ingest_accepted"
	// EventIngestRejected is emitted when a webhook payload was refused.
	EventIngestRejected logging.EventType = "feed.ingest_rejected"
	// EventSnapshotRestored is emitted when the warm-start snapshot loads.
	EventSnapshotRestored logging.EventType = "feed.snapshot_restored"
)

// IngestPayload captures what an accepted payload contributed.
type IngestPayload struct {
	Dialects []string `json:"dialects"`
	Bytes    int      `json:"bytes"`
}

// RejectPayload names why a payload was refused.
type RejectPayload struct {
	Reason string `json:"reason"`
}

// IngestAccepted publishes an info event for a merged payload.
func IngestAccepted(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload IngestPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventIngestAccepted,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryIngest,
		Payload:  payload,
	})
}

// IngestRejected publishes a warning event for a refused payload.
func IngestRejected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload RejectPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventIngestRejected,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryIngest,
		Payload:  payload,
	})
}

// SnapshotRestored publishes an info event when a warm-start snapshot is
// adopted at boot.
func SnapshotRestored(ctx context.Context, pub logging.Publisher, actor logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSnapshotRestored,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryIngest,
	})
}
