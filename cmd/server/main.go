package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/vli777/feedback-analyzer/internal/api"
	"github.com/vli777/feedback-analyzer/internal/bridge"
	"github.com/vli777/feedback-analyzer/internal/broadcaster"
	"github.com/vli777/feedback-analyzer/internal/bulk"
	"github.com/vli777/feedback-analyzer/internal/config"
	"github.com/vli777/feedback-analyzer/internal/llm"
	"github.com/vli777/feedback-analyzer/internal/store"
	"github.com/vli777/feedback-analyzer/internal/workerpool"
)

func main() {
	cfg := config.Get()

	log.Println("Initializing Feedback Analyzer...")
	log.Printf("HTTP Port: %s", cfg.HTTPPort)
	log.Printf("Upstream WS: %s", cfg.StubWSURL)

	records := store.NewRecordStore(cfg.FeedbackRecordFile)
	cursors := store.NewCursorStore(cfg.WSCursorFile)
	bcast := broadcaster.New()

	predictor := &llm.HTTPPredictor{
		Endpoint: cfg.LLMEndpoint,
		APIKey:   cfg.LLMAPIKey,
		Model:    cfg.LLMModel,
		Client:   http.DefaultClient,
	}
	analyzer := llm.NewAnalyzer(predictor)
	bulkEngine := bulk.New(analyzer, records)

	// Construction order follows the dependency chain: the broadcaster and
	// cursor store have no upstream dependents, the worker pool needs both
	// plus the record store, and the bridge needs the pool's inbound queue
	// and the cursor store's resume positions.
	pool := workerpool.New(cfg.WSInboundQueueSize, cfg.WSWorkerCount, records, cursors, bcast)

	initialCursors, err := cursors.AllCursors()
	if err != nil {
		log.Printf("[main] failed to load initial cursors, starting from empty table: %v", err)
		initialCursors = map[string]int64{}
	}

	eventBridge := bridge.New(bridge.Config{
		URL:               cfg.StubWSURL,
		InitialCursors:    initialCursors,
		BaseReconnectSecs: cfg.WSReconnectBaseDelay,
		MaxReconnectSecs:  cfg.WSReconnectMaxDelay,
	}, pool.Inbound())

	apiServer := api.NewServer(cfg, records, analyzer, bcast, bulkEngine, eventBridge)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)
	go eventBridge.Run(ctx)

	go func() {
		log.Printf("Starting API server on :%s", cfg.HTTPPort)
		if err := apiServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] API server shutdown error: %v", err)
	}
	cancel()
	pool.Wait()
	log.Printf("[main] stopped after dropping %d events", eventBridge.DroppedCount())
}
