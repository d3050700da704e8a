package marketdata

import (
	"context"
	"time"

	"github.com/wonhee/argus/backend/internal/contracts"
	"github.com/wonhee/argus/backend/pkg/logger"
)

// StoreProvider reads candles through the Postgres store, falling back to
// the remote sources when the store is stale or shallow. Remote fetches
// are written back so the next reader stays local.
type StoreProvider struct {
	store  contracts.PriceStore
	remote contracts.PriceProvider
	maxAge time.Duration
	logger *logger.Logger
}

// NewStoreProvider layers the store in front of the remote provider.
// maxAge bounds how stale the newest stored session may be before a
// remote refresh.
func NewStoreProvider(store contracts.PriceStore, remote contracts.PriceProvider, maxAge time.Duration, log *logger.Logger) *StoreProvider {
	return &StoreProvider{
		store:  store,
		remote: remote,
		maxAge: maxAge,
		logger: log.WithComponent("price_store"),
	}
}

// DailyCandles serves from the store when it is fresh and deep enough,
// otherwise refreshes from the remote source.
func (p *StoreProvider) DailyCandles(ctx context.Context, symbol string, days int) (contracts.PriceSeries, error) {
	// 1. Check what the store has
	latest, err := p.store.LatestDate(ctx, symbol)
	if err != nil {
		p.logger.WithError(err).WithField("symbol", symbol).Warn("Store lookup failed")
	}

	var stored contracts.PriceSeries
	if err == nil && !latest.IsZero() {
		stored, err = p.store.DailyCandles(ctx, symbol, days)
		if err != nil {
			p.logger.WithError(err).WithField("symbol", symbol).Warn("Store read failed")
			stored = nil
		}
	}

	// 2. Fresh and deep enough: no remote call. A shorter series may just
	// be a young listing, so only a full window short-circuits here.
	if len(stored) >= days && time.Since(latest) <= p.maxAge {
		return stored, nil
	}

	// 3. Refresh from the remote source
	fetched, err := p.remote.DailyCandles(ctx, symbol, days)
	if err != nil {
		if len(stored) > 0 {
			p.logger.WithError(err).WithFields(map[string]interface{}{
				"symbol": symbol,
				"stored": len(stored),
			}).Warn("Remote fetch failed, serving stored candles")
			return stored, nil
		}
		return nil, err
	}

	// 4. Write back, best effort
	if err := p.store.SaveDailyCandles(ctx, symbol, fetched); err != nil {
		p.logger.WithError(err).WithField("symbol", symbol).Warn("Store write failed")
	}

	return fetched, nil
}
