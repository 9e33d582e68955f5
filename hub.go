package markmon

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SJAGSINGH/SuttonHouse-MarkMon/logging"
	"github.com/SJAGSINGH/SuttonHouse-MarkMon/logging/alerting"
	"github.com/SJAGSINGH/SuttonHouse-MarkMon/logging/feed"
	"github.com/SJAGSINGH/SuttonHouse-MarkMon/logging/transport"
)

const writeWait = 10 * time.Second

// websocket.TextMessage, without importing gorilla here; the transport layer
// owns the real connections.
const textMessage = 1

// Published event names.
const (
	EventMacroUpdate  = "macro_update"
	EventSecretUpdate = "secret_update"
)

// subscriberConn is the slice of *websocket.Conn the hub needs; tests swap in
// recording fakes.
type subscriberConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Subscriber is one attached dashboard client. Writes are serialised per
// connection and bounded by writeWait.
type Subscriber struct {
	id   string
	conn subscriberConn
	mu   sync.Mutex
}

func (s *Subscriber) ID() string { return s.id }

// WriteText sends one text frame, refreshing the write deadline first.
func (s *Subscriber) WriteText(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(textMessage, data)
}

func (s *Subscriber) close() {
	s.conn.Close()
}

// IngestRecorder persists an audit trail of accepted payloads.
type IngestRecorder interface {
	Record(receivedAt time.Time, dialects []string, body []byte) error
}

// stateMessage is the wire envelope for both broadcast events.
type stateMessage struct {
	Event      string          `json:"event"`
	State      *CanonicalState `json:"state,omitempty"`
	Secret     *Secret         `json:"secret,omitempty"`
	ServerTime int64           `json:"serverTime"`
}

// HubConfig wires the hub's collaborators. A nil Logger falls back to
// log.Default, a nil Publisher to the nop publisher; the rest are optional.
type HubConfig struct {
	Snapshots SnapshotStore
	Journal   IngestRecorder
	Publisher logging.Publisher
	Logger    *log.Logger
	Clock     func() time.Time
}

// Hub owns the canonical state and all live subscribers. A single mutex
// covers the whole stamp-normalize-recompute-snapshot-clone sequence so
// subscribers never observe a partially-updated state.
type Hub struct {
	mu          sync.Mutex
	state       *CanonicalState
	subscribers map[string]*Subscriber

	snapshots SnapshotStore
	journal   IngestRecorder
	publisher logging.Publisher
	logger    *log.Logger
	now       func() time.Time
}

// NewHub constructs the hub, hydrating state from the snapshot store when a
// fresh-enough snapshot exists.
func NewHub(cfg HubConfig) *Hub {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	state := NewCanonicalState()
	if cfg.Snapshots != nil {
		if restored, ok := cfg.Snapshots.Load(); ok {
			state = restored
			feed.SnapshotRestored(context.Background(), publisher, logging.EntityRef{ID: "snapshot", Kind: logging.EntityKindSystem})
			logger.Printf("restored state from snapshot (server_ts=%d)", *state.ServerTS)
		}
	}
	setWarMetric(state.Secret.War.Active)

	return &Hub{
		state:       state,
		subscribers: make(map[string]*Subscriber),
		snapshots:   cfg.Snapshots,
		journal:     cfg.Journal,
		publisher:   publisher,
		logger:      logger,
		now:         now,
	}
}

// Ingest merges one decoded payload into the canonical state, persists the
// snapshot, and pushes the new state to every subscriber. raw is the original
// request body, kept only for the journal.
func (h *Hub) Ingest(raw []byte, data map[string]any) (*CanonicalState, []string) {
	data = UnwrapEnvelope(data)
	receivedAt := h.now()

	h.mu.Lock()
	ts := h.state.Stamp(receivedAt)
	warBefore := h.state.Secret.War.Active
	res := h.state.ApplyPayload(data)
	h.state.trackSource(data, ts)
	if h.snapshots != nil {
		if err := h.snapshots.Save(h.state); err != nil {
			h.logger.Printf("failed to save snapshot: %v", err)
		}
	}
	snapshot := h.state.Clone()
	h.mu.Unlock()

	if len(res.Dialects) == 0 {
		IncWebhookMetric("none")
	}
	for _, dialect := range res.Dialects {
		IncWebhookMetric(dialect)
	}
	setWarMetric(snapshot.Secret.War.Active)

	ctx := context.Background()
	feedActor := logging.EntityRef{ID: "webhook", Kind: logging.EntityKindFeed}
	feed.IngestAccepted(ctx, h.publisher, feedActor, feed.IngestPayload{Dialects: res.Dialects, Bytes: len(raw)})
	if warBefore != snapshot.Secret.War.Active {
		warActor := logging.EntityRef{ID: "war", Kind: logging.EntityKindInstrument}
		if snapshot.Secret.War.Active {
			alerting.WarRaised(ctx, h.publisher, warActor, alerting.WarPayload{Reason: snapshot.Secret.War.Reason})
		} else {
			alerting.WarCleared(ctx, h.publisher, warActor)
		}
	}

	if h.journal != nil {
		if err := h.journal.Record(receivedAt, res.Dialects, raw); err != nil {
			h.logger.Printf("failed to journal payload: %v", err)
		}
	}

	h.broadcast(EventMacroUpdate, snapshot, nil)
	if res.SecretTouched {
		secret := snapshot.Secret
		h.broadcast(EventSecretUpdate, nil, &secret)
	}
	return snapshot, res.Dialects
}

// Subscribe registers a connection and returns the initial replay frame,
// carrying the state as it stood at registration time.
func (h *Hub) Subscribe(conn subscriberConn) (*Subscriber, []byte, error) {
	sub := &Subscriber{id: uuid.NewString(), conn: conn}

	h.mu.Lock()
	h.subscribers[sub.id] = sub
	snapshot := h.state.Clone()
	count := len(h.subscribers)
	h.mu.Unlock()

	setSubscribersMetric(count)
	transport.Subscribed(context.Background(), h.publisher, logging.EntityRef{ID: sub.id, Kind: logging.EntityKindClient})

	initial, err := json.Marshal(stateMessage{
		Event:      EventMacroUpdate,
		State:      snapshot,
		ServerTime: h.now().UnixMilli(),
	})
	if err != nil {
		h.Unsubscribe(sub.id, "marshal_error")
		return nil, nil, err
	}
	return sub, initial, nil
}

// Unsubscribe removes a subscriber and closes its connection.
func (h *Hub) Unsubscribe(id, reason string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	count := len(h.subscribers)
	h.mu.Unlock()

	if !ok {
		return
	}
	sub.close()
	setSubscribersMetric(count)
	transport.Dropped(context.Background(), h.publisher, logging.EntityRef{ID: id, Kind: logging.EntityKindClient}, transport.DropPayload{Reason: reason})
}

// broadcast fans one event out to every subscriber. Fire-and-forget: a
// failing subscriber is dropped, nothing is retried.
func (h *Hub) broadcast(event string, state *CanonicalState, secret *Secret) {
	data, err := json.Marshal(stateMessage{
		Event:      event,
		State:      state,
		Secret:     secret,
		ServerTime: h.now().UnixMilli(),
	})
	if err != nil {
		h.logger.Printf("failed to marshal %s message: %v", event, err)
		return
	}

	h.mu.Lock()
	subs := make(map[string]*Subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}
	h.mu.Unlock()

	for id, sub := range subs {
		if err := sub.WriteText(data); err != nil {
			h.logger.Printf("failed to send %s to %s: %v", event, id, err)
			h.Unsubscribe(id, "write_error")
		}
	}
	IncBroadcastMetric(event)
}

// StateSnapshot returns an independent copy of the current state.
func (h *Hub) StateSnapshot() *CanonicalState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.Clone()
}

// SubscriberCount reports the number of attached clients.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
