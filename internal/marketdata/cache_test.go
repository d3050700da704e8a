package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/wonhee/argus/backend/internal/contracts"
	"github.com/wonhee/argus/backend/pkg/config"
	"github.com/wonhee/argus/backend/pkg/logger"
	"github.com/wonhee/argus/backend/pkg/redis"
)

// disabledCache builds a cache over a Redis client that never connected.
func disabledCache(t *testing.T) *redis.Cache {
	t.Helper()
	client, err := redis.New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	if err != nil {
		t.Fatalf("redis.New() error = %v", err)
	}
	return redis.NewCache(client, "argus")
}

func TestCachedProvider_DisabledRedisPassesThrough(t *testing.T) {
	remote := &stubRemote{series: map[string]contracts.PriceSeries{
		"AAPL": candleRun(10, time.Now()),
	}}
	p := NewCachedProvider(remote, disabledCache(t), time.Minute, logger.NewNop())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		series, err := p.DailyCandles(ctx, "AAPL", 10)
		if err != nil {
			t.Fatalf("DailyCandles() error = %v", err)
		}
		if len(series) != 10 {
			t.Fatalf("got %d candles, want 10", len(series))
		}
	}

	// No cache available, every call reaches the source.
	if remote.callCount() != 3 {
		t.Errorf("remote calls = %d, want 3", remote.callCount())
	}
}

func TestCachedProvider_SourceErrorPropagates(t *testing.T) {
	remote := &stubRemote{err: context.DeadlineExceeded}
	p := NewCachedProvider(remote, disabledCache(t), time.Minute, logger.NewNop())

	if _, err := p.DailyCandles(context.Background(), "AAPL", 10); err == nil {
		t.Fatal("expected source error to propagate through the cache layer")
	}
}
