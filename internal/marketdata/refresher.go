package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonhee/argus/backend/internal/contracts"
	"github.com/wonhee/argus/backend/pkg/logger"
)

// SymbolLister is the slice of the catalog the refresher needs.
type SymbolLister interface {
	ActiveSymbols(ctx context.Context) ([]string, error)
}

// Refresher syncs daily candles for every active catalog symbol into the
// Postgres store, so scheduled runs read locally instead of hammering the
// remote APIs.
// ⭐ SSOT: 가격 동기화 오케스트레이션은 이 타입에서만
type Refresher struct {
	catalog SymbolLister
	remote  contracts.PriceProvider
	store   contracts.PriceStore
	logger  *logger.Logger
}

// RefreshConfig holds refresher tuning.
type RefreshConfig struct {
	Workers      int // Number of concurrent workers
	LookbackDays int // Sessions fetched per symbol
	MaxAge       time.Duration
}

// NewRefresher creates a Refresher over the catalog and the price chain.
func NewRefresher(catalog SymbolLister, remote contracts.PriceProvider, store contracts.PriceStore, log *logger.Logger) *Refresher {
	return &Refresher{
		catalog: catalog,
		remote:  remote,
		store:   store,
		logger:  log.WithComponent("price_refresher"),
	}
}

// RefreshResult represents the outcome for one symbol.
type RefreshResult struct {
	Symbol  string
	Candles int
	Skipped bool
	Error   error
}

// RefreshAll syncs every active symbol and reports per-symbol outcomes.
func (r *Refresher) RefreshAll(ctx context.Context, cfg RefreshConfig) ([]RefreshResult, error) {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	// 1. Get active symbols
	symbols, err := r.catalog.ActiveSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("get active symbols: %w", err)
	}
	if len(symbols) == 0 {
		r.logger.Info("No active symbols to sync")
		return nil, nil
	}

	r.logger.WithFields(map[string]interface{}{
		"symbol_count": len(symbols),
		"lookback":     cfg.LookbackDays,
		"workers":      cfg.Workers,
	}).Info("Starting price sync")

	// 2. Create worker pool
	symbolCh := make(chan string, len(symbols))
	resultCh := make(chan RefreshResult, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			r.syncWorker(ctx, workerID, symbolCh, resultCh, cfg)
		}(i)
	}

	for _, symbol := range symbols {
		symbolCh <- symbol
	}
	close(symbolCh)

	// Wait for all workers to complete
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// 3. Collect results
	results := make([]RefreshResult, 0, len(symbols))
	successCount := 0
	skipCount := 0
	failCount := 0
	for result := range resultCh {
		results = append(results, result)
		switch {
		case result.Error != nil:
			failCount++
		case result.Skipped:
			skipCount++
		default:
			successCount++
		}
	}

	r.logger.WithFields(map[string]interface{}{
		"synced":  successCount,
		"skipped": skipCount,
		"failed":  failCount,
		"total":   len(results),
	}).Info("Price sync completed")

	return results, nil
}

// syncWorker processes symbols from the channel until it drains.
func (r *Refresher) syncWorker(ctx context.Context, workerID int, symbolCh <-chan string, resultCh chan<- RefreshResult, cfg RefreshConfig) {
	for symbol := range symbolCh {
		select {
		case <-ctx.Done():
			resultCh <- RefreshResult{Symbol: symbol, Error: ctx.Err()}
			return
		default:
		}

		// Skip symbols the store already covers
		if cfg.MaxAge > 0 {
			latest, err := r.store.LatestDate(ctx, symbol)
			if err == nil && !latest.IsZero() && time.Since(latest) <= cfg.MaxAge {
				resultCh <- RefreshResult{Symbol: symbol, Skipped: true}
				continue
			}
		}

		candles, err := r.remote.DailyCandles(ctx, symbol, cfg.LookbackDays)
		if err != nil {
			r.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"symbol": symbol,
			}).Error("Failed to fetch candles")
			resultCh <- RefreshResult{Symbol: symbol, Error: err}
			continue
		}

		if err := r.store.SaveDailyCandles(ctx, symbol, candles); err != nil {
			r.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"symbol": symbol,
			}).Error("Failed to save candles")
			resultCh <- RefreshResult{Symbol: symbol, Error: err}
			continue
		}

		resultCh <- RefreshResult{Symbol: symbol, Candles: len(candles)}
	}
}
