package marketdata

import (
	"context"
	"time"

	"github.com/wonhee/argus/backend/internal/contracts"
	"github.com/wonhee/argus/backend/pkg/logger"
	"github.com/wonhee/argus/backend/pkg/redis"
)

// CachedProvider fronts another provider with the Redis cache. With Redis
// disabled every call passes straight through.
type CachedProvider struct {
	next   contracts.PriceProvider
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedProvider wraps next with a candle cache.
func NewCachedProvider(next contracts.PriceProvider, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *CachedProvider {
	return &CachedProvider{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithComponent("price_cache"),
	}
}

// DailyCandles serves from cache when possible and populates it on miss.
func (p *CachedProvider) DailyCandles(ctx context.Context, symbol string, days int) (contracts.PriceSeries, error) {
	key := redis.DailyCandlesKey(symbol, days)

	var cached contracts.PriceSeries
	found, err := p.cache.Get(ctx, key, &cached)
	if err != nil {
		// A corrupt entry reads as a miss
		p.logger.WithError(err).WithField("symbol", symbol).Debug("Cache read failed")
	}
	if found && err == nil {
		return cached, nil
	}

	series, err := p.next.DailyCandles(ctx, symbol, days)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, series, p.ttl); err != nil {
		p.logger.WithError(err).WithField("symbol", symbol).Warn("Cache write failed")
	}
	return series, nil
}
