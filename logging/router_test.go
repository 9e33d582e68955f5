package logging_test

import (
	"context"
	"testing"
	"time"

	"github.com/SJAGSINGH/SuttonHouse-MarkMon/logging"
	"github.com/SJAGSINGH/SuttonHouse-MarkMon/logging/sinks"
)

func closeRouter(t *testing.T, r *logging.Router) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Close(ctx); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestRouterDeliversToSink(t *testing.T) {
	mem := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	router, err := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "memory", Sink: mem}})
	if err != nil {
		t.Fatalf("new router failed: %v", err)
	}

	router.Publish(context.Background(), logging.Event{
		Type:     "feed.ingest_accepted",
		Actor:    logging.EntityRef{ID: "webhook", Kind: logging.EntityKindFeed},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryIngest,
	})
	closeRouter(t, router)

	events := mem.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	got := events[0]
	if got.Type != "feed.ingest_accepted" || got.Actor.Kind != logging.EntityKindFeed {
		t.Fatalf("unexpected event %+v", got)
	}
	if got.Time.IsZero() {
		t.Fatalf("router must stamp event time")
	}
}

func TestRouterSeverityFilter(t *testing.T) {
	mem := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityWarn
	router, err := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "memory", Sink: mem}})
	if err != nil {
		t.Fatalf("new router failed: %v", err)
	}

	router.Publish(context.Background(), logging.Event{Type: "a", Severity: logging.SeverityInfo})
	router.Publish(context.Background(), logging.Event{Type: "b", Severity: logging.SeverityError})
	closeRouter(t, router)

	events := mem.Events()
	if len(events) != 1 || events[0].Type != "b" {
		t.Fatalf("severity filter failed, got %+v", events)
	}
}

func TestRouterStampsConfiguredFields(t *testing.T) {
	mem := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"service": "markmon"}
	router, err := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "memory", Sink: mem}})
	if err != nil {
		t.Fatalf("new router failed: %v", err)
	}

	router.Publish(context.Background(), logging.Event{Type: "x", Severity: logging.SeverityInfo})
	closeRouter(t, router)

	events := mem.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Extra["service"] != "markmon" {
		t.Fatalf("configured field missing: %+v", events[0].Extra)
	}
}

func TestRouterIgnoresEmptyType(t *testing.T) {
	mem := sinks.NewMemorySink()
	router, err := logging.NewRouter(nil, logging.DefaultConfig(), []logging.NamedSink{{Name: "memory", Sink: mem}})
	if err != nil {
		t.Fatalf("new router failed: %v", err)
	}
	router.Publish(context.Background(), logging.Event{})
	closeRouter(t, router)
	if len(mem.Events()) != 0 {
		t.Fatalf("typeless event must be dropped")
	}
}

func TestWithFieldsDoesNotClobber(t *testing.T) {
	var captured logging.Event
	p := logging.WithFields(logging.PublisherFunc(func(ctx context.Context, event logging.Event) {
		captured = event
	}), map[string]any{"service": "markmon", "env": "test"})

	p.Publish(context.Background(), logging.Event{
		Type:  "x",
		Extra: map[string]any{"service": "override"},
	})

	if captured.Extra["service"] != "override" {
		t.Fatalf("event field must win over wrapper field, got %v", captured.Extra)
	}
	if captured.Extra["env"] != "test" {
		t.Fatalf("wrapper field missing, got %v", captured.Extra)
	}
}
