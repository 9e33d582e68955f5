package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	markmon "github.com/SJAGSINGH/SuttonHouse-MarkMon"
	"github.com/SJAGSINGH/SuttonHouse-MarkMon/internal/journal"
	servernet "github.com/SJAGSINGH/SuttonHouse-MarkMon/internal/net"
	"github.com/SJAGSINGH/SuttonHouse-MarkMon/logging"
	loggingSinks "github.com/SJAGSINGH/SuttonHouse-MarkMon/logging/sinks"
)

// Run boots the relay: logging router, snapshot store, optional journal,
// hub, and the HTTP server. Blocks until the server fails.
func Run(ctx context.Context) error {
	cfg := LoadConfig()
	logger := log.Default()

	logConfig := logging.DefaultConfig()
	logConfig.EnabledSinks = cfg.LogSinks
	var namedSinks []logging.NamedSink
	if logConfig.HasSink("console") {
		namedSinks = append(namedSinks, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout)})
	}
	if logConfig.HasSink("json") && cfg.LogJSONPath != "" {
		f, err := os.OpenFile(cfg.LogJSONPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open json log: %w", err)
		}
		namedSinks = append(namedSinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(f, logConfig.JSON.FlushInterval)})
	}

	router, err := logging.NewRouter(logging.SystemClock{}, logConfig, namedSinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()
	publisher := logging.WithFields(router, map[string]any{"service": "markmon"})

	var recorder markmon.IngestRecorder
	var history servernet.HistoryReader
	if cfg.JournalPath != "" {
		store, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer store.Close()
		recorder = store
		history = store
	}

	hub := markmon.NewHub(markmon.HubConfig{
		Snapshots: markmon.NewFileSnapshotStore(cfg.SnapshotPath, cfg.SnapshotMaxAge),
		Journal:   recorder,
		Publisher: publisher,
		Logger:    logger,
	})

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		ClientDir:         cfg.ClientDir,
		WebhookSecret:     cfg.WebhookSecret,
		DashboardPassword: cfg.DashboardPassword,
		Logger:            logger,
		Publisher:         publisher,
		History:           history,
		PasswordLimiter:   servernet.NewAttemptLimiter(6, 5*time.Minute),
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: handler}
	logger.Printf("server listening on %s", srv.Addr)

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
