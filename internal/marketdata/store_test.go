package marketdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonhee/argus/backend/internal/contracts"
	"github.com/wonhee/argus/backend/pkg/logger"
)

// memPriceStore is an in-memory contracts.PriceStore for tests.
type memPriceStore struct {
	mu        sync.Mutex
	candles   map[string]contracts.PriceSeries
	saveErr   error
	latestErr error
	saves     int
}

var _ contracts.PriceStore = (*memPriceStore)(nil)

func newMemPriceStore() *memPriceStore {
	return &memPriceStore{candles: make(map[string]contracts.PriceSeries)}
}

func (m *memPriceStore) SaveDailyCandles(_ context.Context, symbol string, candles contracts.PriceSeries) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.candles[symbol] = candles
	return nil
}

func (m *memPriceStore) DailyCandles(_ context.Context, symbol string, days int) (contracts.PriceSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lastN(m.candles[symbol], days), nil
}

func (m *memPriceStore) LatestDate(_ context.Context, symbol string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latestErr != nil {
		return time.Time{}, m.latestErr
	}
	s := m.candles[symbol]
	if len(s) == 0 {
		return time.Time{}, nil
	}
	return s[len(s)-1].Date, nil
}

func (m *memPriceStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// stubRemote is a canned contracts.PriceProvider that counts calls.
type stubRemote struct {
	mu     sync.Mutex
	series map[string]contracts.PriceSeries
	err    error
	calls  int
}

var _ contracts.PriceProvider = (*stubRemote)(nil)

func (s *stubRemote) DailyCandles(_ context.Context, symbol string, days int) (contracts.PriceSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return lastN(s.series[symbol], days), nil
}

func (s *stubRemote) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// candleRun builds n daily candles ending at end, oldest first.
func candleRun(n int, end time.Time) contracts.PriceSeries {
	series := make(contracts.PriceSeries, n)
	for i := range series {
		series[i] = contracts.Candle{
			Date:   end.AddDate(0, 0, -(n - 1 - i)),
			Open:   10,
			High:   11,
			Low:    9,
			Close:  10.5,
			Volume: 1000,
		}
	}
	return series
}

func TestStoreProvider_FreshStoreSkipsRemote(t *testing.T) {
	store := newMemPriceStore()
	store.candles["AAPL"] = candleRun(30, time.Now())
	remote := &stubRemote{}

	p := NewStoreProvider(store, remote, 72*time.Hour, logger.NewNop())
	series, err := p.DailyCandles(context.Background(), "AAPL", 30)
	require.NoError(t, err)

	assert.Len(t, series, 30)
	assert.Equal(t, 0, remote.callCount(), "fresh store must not hit the remote source")
}

func TestStoreProvider_StaleStoreRefreshes(t *testing.T) {
	store := newMemPriceStore()
	store.candles["AAPL"] = candleRun(30, time.Now().AddDate(0, 0, -10))
	remote := &stubRemote{series: map[string]contracts.PriceSeries{
		"AAPL": candleRun(30, time.Now()),
	}}

	p := NewStoreProvider(store, remote, 72*time.Hour, logger.NewNop())
	series, err := p.DailyCandles(context.Background(), "AAPL", 30)
	require.NoError(t, err)

	assert.Equal(t, 1, remote.callCount())
	assert.Equal(t, 1, store.saveCount(), "refreshed candles must be written back")
	require.Len(t, series, 30)
	last := series[len(series)-1].Date
	assert.WithinDuration(t, time.Now(), last, 24*time.Hour, "served series should be the refreshed one")
}

func TestStoreProvider_ShallowStoreRefreshes(t *testing.T) {
	// Five fresh candles cannot prove there are not more sessions upstream.
	store := newMemPriceStore()
	store.candles["AAPL"] = candleRun(5, time.Now())
	remote := &stubRemote{series: map[string]contracts.PriceSeries{
		"AAPL": candleRun(30, time.Now()),
	}}

	p := NewStoreProvider(store, remote, 72*time.Hour, logger.NewNop())
	series, err := p.DailyCandles(context.Background(), "AAPL", 30)
	require.NoError(t, err)

	assert.Equal(t, 1, remote.callCount())
	assert.Len(t, series, 30)
}

func TestStoreProvider_RemoteFailureFallsBackToStored(t *testing.T) {
	store := newMemPriceStore()
	store.candles["AAPL"] = candleRun(30, time.Now().AddDate(0, 0, -10))
	remote := &stubRemote{err: errors.New("rate limited")}

	p := NewStoreProvider(store, remote, 72*time.Hour, logger.NewNop())
	series, err := p.DailyCandles(context.Background(), "AAPL", 30)
	require.NoError(t, err, "stale candles beat no candles")
	assert.Len(t, series, 30)
}

func TestStoreProvider_RemoteFailureWithEmptyStore(t *testing.T) {
	remote := &stubRemote{err: errors.New("rate limited")}

	p := NewStoreProvider(newMemPriceStore(), remote, 72*time.Hour, logger.NewNop())
	_, err := p.DailyCandles(context.Background(), "GHOST", 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestStoreProvider_SaveFailureStillServes(t *testing.T) {
	store := newMemPriceStore()
	store.saveErr = errors.New("disk full")
	remote := &stubRemote{series: map[string]contracts.PriceSeries{
		"AAPL": candleRun(30, time.Now()),
	}}

	p := NewStoreProvider(store, remote, 72*time.Hour, logger.NewNop())
	series, err := p.DailyCandles(context.Background(), "AAPL", 30)
	require.NoError(t, err)
	assert.Len(t, series, 30)
}
