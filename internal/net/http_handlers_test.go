package net

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	markmon "github.com/SJAGSINGH/SuttonHouse-MarkMon"
	"github.com/SJAGSINGH/SuttonHouse-MarkMon/internal/journal"
)

func newTestServer(t *testing.T, cfg HTTPHandlerConfig) (*httptest.Server, *markmon.Hub) {
	t.Helper()
	hub := markmon.NewHub(markmon.HubConfig{})
	srv := httptest.NewServer(NewHTTPHandler(hub, cfg))
	t.Cleanup(srv.Close)
	return srv, hub
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestWebhookRejectsMissingSecret(t *testing.T) {
	srv, hub := newTestServer(t, HTTPHandlerConfig{WebhookSecret: "s3cret"})

	resp := postJSON(t, srv.URL+"/webhook", `{"cycle":"GOLD"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if hub.StateSnapshot().Cycle != nil {
		t.Fatalf("rejected payload must not mutate state")
	}
}

func TestWebhookAcceptsSecretViaHeaderOrQuery(t *testing.T) {
	srv, _ := newTestServer(t, HTTPHandlerConfig{WebhookSecret: "s3cret"})

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/webhook", strings.NewReader(`{"cycle":"GOLD"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Secret", "s3cret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("header auth status = %d, want 200", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/webhook?secret=s3cret", `{"vol":"ELEVATED"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("query auth status = %d, want 200", resp.StatusCode)
	}
}

func TestWebhookIngestsAndExposesState(t *testing.T) {
	srv, _ := newTestServer(t, HTTPHandlerConfig{})

	resp := postJSON(t, srv.URL+"/webhook", `{"card":3,"msg":"MATURITY 87%"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	ack, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body failed: %v", err)
	}
	if string(ack) != "SUCCESS" {
		t.Fatalf("body = %q, want SUCCESS", ack)
	}

	stateResp, err := http.Get(srv.URL + "/state")
	if err != nil {
		t.Fatalf("get state failed: %v", err)
	}
	defer stateResp.Body.Close()
	var state struct {
		Count *int `json:"count"`
	}
	if err := json.NewDecoder(stateResp.Body).Decode(&state); err != nil {
		t.Fatalf("decode state failed: %v", err)
	}
	if state.Count == nil || *state.Count != 87 {
		t.Fatalf("expected count 87 via /state, got %v", state.Count)
	}
}

func TestWebhookRejectsGarbageBody(t *testing.T) {
	srv, _ := newTestServer(t, HTTPHandlerConfig{})

	resp, err := http.Post(srv.URL+"/webhook", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, HTTPHandlerConfig{})
	resp, err := http.Get(srv.URL + "/webhook")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}

func TestIngestMacroAlias(t *testing.T) {
	srv, hub := newTestServer(t, HTTPHandlerConfig{})
	resp := postJSON(t, srv.URL+"/ingest_macro", `{"cycle":"GOLD"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if state := hub.StateSnapshot(); state.Cycle == nil || *state.Cycle != "GOLD" {
		t.Fatalf("alias route did not ingest, state = %+v", state)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, HTTPHandlerConfig{})
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		OK    bool            `json:"ok"`
		State json.RawMessage `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !body.OK || len(body.State) == 0 {
		t.Fatalf("unexpected health body: ok=%v state=%s", body.OK, body.State)
	}
}

func TestVerifySecretFlow(t *testing.T) {
	srv, _ := newTestServer(t, HTTPHandlerConfig{DashboardPassword: "hunter2"})

	resp := postJSON(t, srv.URL+"/verify_secret", `{"password":"hunter2"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("correct password status = %d, want 200", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/verify_secret", `{"password":"wrong"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d, want 401", resp.StatusCode)
	}
}

func TestVerifySecretEmptyPasswordAlwaysFails(t *testing.T) {
	srv, _ := newTestServer(t, HTTPHandlerConfig{DashboardPassword: ""})
	resp := postJSON(t, srv.URL+"/verify_secret", `{"password":""}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unset password must refuse everything, status = %d", resp.StatusCode)
	}
}

func TestVerifySecretRateLimited(t *testing.T) {
	srv, _ := newTestServer(t, HTTPHandlerConfig{
		DashboardPassword: "hunter2",
		PasswordLimiter:   NewAttemptLimiter(6, 5*time.Minute),
	})

	for i := 0; i < 6; i++ {
		resp := postJSON(t, srv.URL+"/verify_secret", `{"password":"wrong"}`)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i+1, resp.StatusCode)
		}
	}

	resp := postJSON(t, srv.URL+"/verify_secret", `{"password":"hunter2"}`)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("seventh attempt status = %d, want 429", resp.StatusCode)
	}
	var body struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.OK || body.Error != "rate_limited" {
		t.Fatalf("unexpected 429 body: %+v", body)
	}
}

type fakeHistory struct {
	entries []journal.Entry
	limit   int
}

func (h *fakeHistory) Recent(limit int) ([]journal.Entry, error) {
	h.limit = limit
	return h.entries, nil
}

func TestHistoryEndpoint(t *testing.T) {
	history := &fakeHistory{entries: []journal.Entry{{ID: "a", Body: `{"cycle":"GOLD"}`}}}
	srv, _ := newTestServer(t, HTTPHandlerConfig{History: history})

	resp, err := http.Get(srv.URL + "/history?limit=10")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if history.limit != 10 {
		t.Fatalf("limit not forwarded, got %d", history.limit)
	}
	var body struct {
		Entries []journal.Entry `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(body.Entries) != 1 || body.Entries[0].ID != "a" {
		t.Fatalf("unexpected entries: %+v", body.Entries)
	}
}

func TestHistoryDisabledWithoutJournal(t *testing.T) {
	srv, _ := newTestServer(t, HTTPHandlerConfig{})
	resp, err := http.Get(srv.URL + "/history")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHistoryLimitCapped(t *testing.T) {
	history := &fakeHistory{}
	srv, _ := newTestServer(t, HTTPHandlerConfig{History: history})
	resp, err := http.Get(srv.URL + "/history?limit=9999")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	resp.Body.Close()
	if history.limit != 500 {
		t.Fatalf("limit should cap at 500, got %d", history.limit)
	}
}

func TestWebSocketReplayAndLiveUpdate(t *testing.T) {
	srv, _ := newTestServer(t, HTTPHandlerConfig{})
	postJSON(t, srv.URL+"/webhook", `{"card":3,"msg":"MATURITY 87%"}`)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var replay struct {
		Event string `json:"event"`
		State struct {
			Count *int `json:"count"`
		} `json:"state"`
	}
	if err := conn.ReadJSON(&replay); err != nil {
		t.Fatalf("read replay failed: %v", err)
	}
	if replay.Event != "macro_update" || replay.State.Count == nil || *replay.State.Count != 87 {
		t.Fatalf("unexpected replay frame: %+v", replay)
	}

	postJSON(t, srv.URL+"/webhook", `{"card":4,"msg":"SAHM:0.63"}`)

	var update struct {
		Event string `json:"event"`
		State struct {
			Sahm *float64 `json:"sahm"`
		} `json:"state"`
	}
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("read update failed: %v", err)
	}
	if update.Event != "macro_update" || update.State.Sahm == nil || *update.State.Sahm != 0.63 {
		t.Fatalf("unexpected update frame: %+v", update)
	}
}

func TestWebSocketHeartbeatAck(t *testing.T) {
	srv, _ := newTestServer(t, HTTPHandlerConfig{})
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// Discard the initial replay frame.
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read replay failed: %v", err)
	}

	sent := time.Now().UnixMilli()
	if err := conn.WriteJSON(map[string]any{"type": "heartbeat", "sentAt": sent}); err != nil {
		t.Fatalf("write heartbeat failed: %v", err)
	}

	var ack struct {
		Type       string `json:"type"`
		ServerTime int64  `json:"serverTime"`
		ClientTime int64  `json:"clientTime"`
	}
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack failed: %v", err)
	}
	if ack.Type != "heartbeat" || ack.ClientTime != sent || ack.ServerTime == 0 {
		t.Fatalf("unexpected ack: %+v", ack)
	}
}

func TestClientIdentifier(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/verify_secret", nil)
	r.RemoteAddr = "10.0.0.9:4242"
	if got := clientIdentifier(r); got != "10.0.0.9" {
		t.Errorf("clientIdentifier = %q, want 10.0.0.9", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIdentifier(r); got != "203.0.113.7" {
		t.Errorf("clientIdentifier with XFF = %q, want 203.0.113.7", got)
	}
}
