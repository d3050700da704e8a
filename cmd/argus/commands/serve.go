package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonhee/argus/backend/internal/api"
	"github.com/wonhee/argus/backend/internal/api/handlers"
	"github.com/wonhee/argus/backend/internal/engine"
	"github.com/wonhee/argus/backend/internal/marketdata"
	"github.com/wonhee/argus/backend/internal/scheduler"
	"github.com/wonhee/argus/backend/internal/scheduler/jobs"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 시작",
	Long: `REST API 서버와 백그라운드 스케줄러를 시작합니다.

이 명령어는:
- 전략 디렉터리 초기 스캔
- HTTP API 서버 시작
- 실행 이벤트 웹소켓 피드 제공
- 가격 동기화 / 리스캔 / 보존 작업 스케줄

Endpoints:
  GET  /health                  - Health check
  GET  /api/strategies          - 전략 목록
  POST /api/strategies/scan     - 전략 디렉터리 재스캔
  POST /api/strategies/execute  - 전략 실행
  GET  /api/results/latest      - 최신 결과 조회
  GET  /api/runs/live           - 실행 이벤트 웹소켓
  POST /api/watchlists          - 관심목록 생성

Example:
  go run ./cmd/argus serve
  go run ./cmd/argus serve --port 8091`,
	RunE: runServe,
}

var (
	servePort string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (기본: PORT 환경변수)")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Argus API Server ===")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Wire the shared object graph
	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if servePort != "" {
		a.cfg.Port = servePort
	}

	log := a.log
	log.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	// 2. Initial strategy scan
	if a.cfg.Strategies.ScanOnStart {
		report, err := a.registry.Scan(ctx)
		if err != nil {
			return fmt.Errorf("initial strategy scan: %w", err)
		}
		log.WithFields(map[string]interface{}{
			"scanned": report.Scanned,
			"added":   len(report.Added),
			"updated": len(report.Updated),
			"failed":  len(report.Failed),
		}).Info("Initial strategy scan complete")
	}

	// 3. Start run event feed and create engine
	feed := api.NewRunFeed(log)
	go feed.Run(ctx)

	eng := engine.New(a.registry, a.results, a.cfg.Engine.StrategyTimeout, feed, log)

	// 4. Start background scheduler
	var sched *scheduler.Scheduler
	if a.cfg.Scheduler.Enabled {
		sched, err = initJobs(a)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
	}

	// 5. Create handlers
	strategiesHandler := handlers.NewStrategiesHandler(a.registry, log)
	executeHandler := handlers.NewExecuteHandler(eng, a.registry, a.catalog, a.results, log)
	watchlistsHandler := handlers.NewWatchlistsHandler(a.catalog, log)

	// 6. Create router and server
	router := api.NewRouter(strategiesHandler, executeHandler, watchlistsHandler, feed, log)
	server := api.New(a.cfg, log, router)

	// 7. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /api/strategies")
	fmt.Println("  POST /api/strategies/scan")
	fmt.Println("  POST /api/strategies/execute")
	fmt.Println("  GET  /api/results/latest")
	fmt.Println("  GET  /api/runs/live (websocket)")
	fmt.Println("  POST /api/watchlists")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if sched != nil {
		sched.Stop()
	}

	log.Info("Server stopped")
	return nil
}

// initJobs registers the background jobs on a fresh scheduler.
func initJobs(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log)

	// 1. Periodic strategy rescan (empty schedule disables)
	if a.cfg.Strategies.RescanSchedule != "" {
		if err := sched.AddJob(jobs.NewStrategyRescanJob(a.registry, a.cfg.Strategies.RescanSchedule, a.log)); err != nil {
			return nil, err
		}
	}

	// 2. Daily price sync
	syncCfg := marketdata.RefreshConfig{
		Workers:      a.cfg.MarketData.SyncWorkers,
		LookbackDays: a.cfg.MarketData.LookbackDays,
		MaxAge:       a.cfg.MarketData.MaxAge,
	}
	if err := sched.AddJob(jobs.NewPriceSyncJob(a.refresher, syncCfg, a.cfg.Scheduler.PriceSyncSchedule, a.log)); err != nil {
		return nil, err
	}

	// 3. Profile enrichment
	if err := sched.AddJob(jobs.NewProfileEnrichJob(a.enricher, a.cfg.Scheduler.EnrichSchedule, a.log)); err != nil {
		return nil, err
	}

	// 4. Run retention purge (0 days keeps everything)
	if a.cfg.Scheduler.RetentionDays > 0 {
		if err := sched.AddJob(jobs.NewRetentionJob(a.results, a.cfg.Scheduler.RetentionDays, a.cfg.Scheduler.RetentionSchedule, a.log)); err != nil {
			return nil, err
		}
	}

	return sched, nil
}
