package net

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	markmon "github.com/SJAGSINGH/SuttonHouse-MarkMon"
	"github.com/SJAGSINGH/SuttonHouse-MarkMon/internal/journal"
	"github.com/SJAGSINGH/SuttonHouse-MarkMon/logging"
	"github.com/SJAGSINGH/SuttonHouse-MarkMon/logging/feed"
)

const maxBodyBytes = 1 << 20

// HistoryReader is the read side of the ingestion journal.
type HistoryReader interface {
	Recent(limit int) ([]journal.Entry, error)
}

type HTTPHandlerConfig struct {
	ClientDir         string
	WebhookSecret     string
	DashboardPassword string
	Logger            *log.Logger
	Publisher         logging.Publisher
	History           HistoryReader
	PasswordLimiter   *AttemptLimiter
}

type clientMessage struct {
	Type   string `json:"type"`
	SentAt int64  `json:"sentAt"`
}

type heartbeatMessage struct {
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
}

// NewHTTPHandler wires the full HTTP surface: webhook ingestion, state
// reads, the password gate, the journal read side, metrics, the websocket
// endpoint, and optional static dashboard serving.
func NewHTTPHandler(hub *markmon.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	limiter := cfg.PasswordLimiter
	if limiter == nil {
		limiter = NewAttemptLimiter(6, 5*time.Minute)
	}

	mux := nethttp.NewServeMux()
	feedActor := logging.EntityRef{ID: "webhook", Kind: logging.EntityKindFeed}

	handleIngest := func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		if !authorized(r, cfg.WebhookSecret) {
			logger.Printf("rejected webhook: unauthorised")
			markmon.IncWebhookRejectMetric("unauthorized")
			feed.IngestRejected(r.Context(), publisher, feedActor, feed.RejectPayload{Reason: "unauthorized"})
			httpError(w, "unauthorized", nethttp.StatusUnauthorized)
			return
		}

		// Ingestion failures must never be fatal to the process.
		defer func() {
			if rec := recover(); rec != nil {
				logger.Printf("error in webhook: %v", rec)
				markmon.IncWebhookRejectMetric("panic")
				httpError(w, fmt.Sprint(rec), nethttp.StatusBadRequest)
			}
		}()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			httpError(w, "failed to read body", nethttp.StatusBadRequest)
			return
		}
		data, err := markmon.DecodePayload(r.Header.Get("Content-Type"), body)
		if err != nil {
			markmon.IncWebhookRejectMetric("invalid_payload")
			feed.IngestRejected(r.Context(), publisher, feedActor, feed.RejectPayload{Reason: "invalid_payload"})
			httpError(w, err.Error(), nethttp.StatusBadRequest)
			return
		}

		hub.Ingest(body, data)

		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("SUCCESS"))
	}
	mux.HandleFunc("/webhook", handleIngest)
	mux.HandleFunc("/ingest_macro", handleIngest)

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"ok":    true,
			"state": hub.StateSnapshot(),
		})
	})

	mux.HandleFunc("/state", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, hub.StateSnapshot())
	})

	mux.HandleFunc("/verify_secret", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		client := clientIdentifier(r)
		if !limiter.Allow(client) {
			markmon.IncPasswordAttemptMetric("limited")
			writeJSON(w, nethttp.StatusTooManyRequests, map[string]any{"ok": false, "error": "rate_limited"})
			return
		}

		var req struct {
			Password string `json:"password"`
		}
		if r.Body != nil {
			json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req)
		}
		if cfg.DashboardPassword != "" && req.Password == cfg.DashboardPassword {
			markmon.IncPasswordAttemptMetric("ok")
			writeJSON(w, nethttp.StatusOK, map[string]any{"ok": true})
			return
		}
		markmon.IncPasswordAttemptMetric("bad")
		writeJSON(w, nethttp.StatusUnauthorized, map[string]any{"ok": false})
	})

	mux.HandleFunc("/history", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if cfg.History == nil {
			httpError(w, "journal disabled", nethttp.StatusNotFound)
			return
		}
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil && v > 0 {
				limit = v
			}
		}
		if limit > 500 {
			limit = 500
		}
		entries, err := cfg.History.Recent(limit)
		if err != nil {
			logger.Printf("failed to read journal: %v", err)
			httpError(w, "failed to read journal", nethttp.StatusInternalServerError)
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{"entries": entries})
	})

	mux.Handle("/metrics", promhttp.Handler())

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	mux.HandleFunc("/ws", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Printf("upgrade failed: %v", err)
			return
		}

		sub, initial, err := hub.Subscribe(conn)
		if err != nil {
			logger.Printf("failed to build initial state frame: %v", err)
			conn.Close()
			return
		}

		// New tab / refresh instantly gets current state.
		if err := sub.WriteText(initial); err != nil {
			hub.Unsubscribe(sub.ID(), "write_error")
			return
		}

		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				hub.Unsubscribe(sub.ID(), "read_error")
				return
			}

			var msg clientMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				logger.Printf("discarding malformed message from %s: %v", sub.ID(), err)
				continue
			}

			switch msg.Type {
			case "heartbeat":
				ack := heartbeatMessage{
					Type:       "heartbeat",
					ServerTime: time.Now().UnixMilli(),
					ClientTime: msg.SentAt,
				}
				data, err := json.Marshal(ack)
				if err != nil {
					logger.Printf("failed to marshal heartbeat ack for %s: %v", sub.ID(), err)
					continue
				}
				if err := sub.WriteText(data); err != nil {
					hub.Unsubscribe(sub.ID(), "write_error")
					return
				}
			default:
				logger.Printf("unknown message type %q from %s", msg.Type, sub.ID())
			}
		}
	})

	if cfg.ClientDir != "" {
		fs := nethttp.FileServer(nethttp.Dir(cfg.ClientDir))
		mux.Handle("/", fs)
	}

	return mux
}

// authorized checks the shared webhook secret. An empty configured secret
// disables the check (dev mode). Either the X-Webhook-Secret header or the
// secret query parameter may carry it.
func authorized(r *nethttp.Request, secret string) bool {
	if secret == "" {
		return true
	}
	if strings.TrimSpace(r.Header.Get("X-Webhook-Secret")) == secret {
		return true
	}
	return strings.TrimSpace(r.URL.Query().Get("secret")) == secret
}

// clientIdentifier keys rate limiting. Trusts the first X-Forwarded-For hop
// when present, otherwise falls back to the peer address without port.
func clientIdentifier(r *nethttp.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx >= 0 {
			fwd = fwd[:idx]
		}
		return strings.TrimSpace(fwd)
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx >= 0 {
		addr = addr[:idx]
	}
	return addr
}

func writeJSON(w nethttp.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
