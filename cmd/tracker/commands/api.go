package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/cryptoetf/backend/internal/api"
	"github.com/wonny/cryptoetf/backend/internal/api/handlers"
	"github.com/wonny/cryptoetf/backend/internal/syncer"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버와 스냅샷 스케줄러를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 스냅샷 동기화 스케줄 등록 (기본: 매시 정각)
- 저장된 스냅샷이 비어 있으면 백그라운드 초기 동기화

Endpoints:
  GET  /health                      - Liveness
  GET  /metrics                     - Prometheus metrics
  GET  /api/etfs                    - 스냅샷 조회
  GET  /api/etf/{symbol}            - 상세 조회 (?extended=1)
  POST /api/sync                    - 수동 동기화 (Bearer SYNC_API_KEY)
  GET  /api/health                  - 상태 조회
  GET  /api/subscription            - Pro 여부

Example:
  go run ./cmd/tracker api
  go run ./cmd/tracker api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Crypto ETF Tracker API Server ===")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Wire components
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, log := a.cfg, a.log
	if apiPort != "" {
		cfg.Port = apiPort
	}
	if !cfg.HasFMPKey() {
		log.Warn("FMP_API_KEY not set: serving knowledge-base values only")
	}

	// 2. Handlers
	health := handlers.NewHealthHandler(a.store, cfg.HasFMPKey(), scheduleLabel(cfg.Sync.Schedule), log)
	if a.db != nil {
		health.WithDatabase(a.db)
	}
	router := api.NewRouter(api.Handlers{
		ETF:          handlers.NewETFHandler(a.store, a.engine, a.cache, log),
		Sync:         handlers.NewSyncHandler(a.syncer, cfg.Sync.APIKey, log),
		Health:       health,
		Subscription: handlers.NewSubscriptionHandler(a.billing),
	}, a.metrics, log)

	// 3. Scheduler
	sched, err := a.newScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	sched.Start()

	// 4. Initial sync only when nothing was stored yet
	snap, err := a.store.Load(ctx)
	if err != nil {
		log.WithError(err).Warn("Stored snapshot unreadable")
	}
	a.metrics.SetSnapshotCount(snap.Count)
	if snap.IsEmpty() {
		log.Info("Snapshot empty, starting initial sync in background")
		go func() {
			if _, err := a.syncer.Run(ctx); err != nil && !errors.Is(err, syncer.ErrSyncInProgress) {
				log.WithError(err).Error("Initial sync failed")
			}
		}()
	}

	// 5. Server
	server := api.New(cfg, log, router)
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Printf("   Snapshot: %d ETFs (%s backend)\n", snap.Count, cfg.Snapshot.Backend)
	fmt.Printf("   Sync schedule: %s\n", cfg.Sync.Schedule)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	cancel()
	sched.Stop()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
