package commands

import (
	"context"
	"fmt"

	"github.com/wonhee/argus/backend/internal/catalog"
	"github.com/wonhee/argus/backend/internal/marketdata"
	"github.com/wonhee/argus/backend/internal/registry"
	"github.com/wonhee/argus/backend/internal/results"
	"github.com/wonhee/argus/backend/internal/strategy"
	"github.com/wonhee/argus/backend/pkg/config"
	"github.com/wonhee/argus/backend/pkg/database"
	"github.com/wonhee/argus/backend/pkg/httputil"
	"github.com/wonhee/argus/backend/pkg/logger"
	"github.com/wonhee/argus/backend/pkg/redis"
)

// app bundles the wired object graph shared by every command. serve
// layers the engine, scheduler and HTTP server on top of it.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB
	redis *redis.Client

	prices    *marketdata.PriceRepository
	refresher *marketdata.Refresher
	catalog   *catalog.Repository
	enricher  *catalog.Enricher
	results   *results.Repository
	registry  *registry.Registry
}

// Close releases the app's connections.
func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// initApp builds the dependency graph up to the strategy registry.
func initApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 4. Connect to Redis (candle cache, off when REDIS_ENABLED=false)
	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	a := &app{cfg: cfg, log: log, db: db, redis: redisClient}

	// 5. Create repositories and initialize schemas
	a.catalog = catalog.NewRepository(db.Pool)
	a.results = results.NewRepository(db.Pool)
	a.prices = marketdata.NewPriceRepository(db.Pool)
	metaRepo := registry.NewMetadataRepository(db.Pool)

	if err := a.catalog.InitSchema(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("init catalog schema: %w", err)
	}
	if err := a.results.InitSchema(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("init results schema: %w", err)
	}
	if err := a.prices.InitSchema(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("init price schema: %w", err)
	}
	if err := metaRepo.InitSchema(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("init strategy schema: %w", err)
	}

	// 6. Create HTTP client, paced for the Naver endpoints it talks to
	httpClient := httputil.New(cfg, log).WithRateLimit(cfg.Naver.RateLimit)

	// 7. Build the price provider chain
	//    redis cache -> postgres store -> router -> naver(KR) / alpaca(US)
	naverSrc := marketdata.NewNaverSource(cfg.Naver, httpClient, log)
	alpacaSrc := marketdata.NewAlpacaSource(cfg.Alpaca, log)
	router := marketdata.NewRouter(naverSrc, alpacaSrc)
	stored := marketdata.NewStoreProvider(a.prices, router, cfg.MarketData.MaxAge, log)
	candleCache := redis.NewCache(redisClient, "argus")
	provider := marketdata.NewCachedProvider(stored, candleCache, cfg.MarketData.CacheTTL, log)

	// 8. Create catalog enricher and price refresher
	// The refresher pulls from the router directly so stale store rows
	// cannot satisfy a sync.
	a.enricher = catalog.NewEnricher(cfg, a.catalog, httpClient, log)
	a.refresher = marketdata.NewRefresher(a.catalog, router, a.prices, log)

	// 9. Create strategy registry
	a.registry = registry.New(cfg.Strategies.Dir, strategy.Deps{Data: provider, Log: log}, metaRepo, log)
	if err := a.registry.LoadPersisted(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("load persisted strategies: %w", err)
	}

	return a, nil
}
