package strategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonhee/argus/backend/internal/contracts"
	"github.com/wonhee/argus/backend/pkg/logger"
)

// stubProvider serves canned series and records which symbols were
// asked for.
type stubProvider struct {
	series map[string]contracts.PriceSeries
	err    error

	mu    sync.Mutex
	calls []string
}

func (p *stubProvider) DailyCandles(ctx context.Context, symbol string, days int) (contracts.PriceSeries, error) {
	p.mu.Lock()
	p.calls = append(p.calls, symbol)
	p.mu.Unlock()

	if p.err != nil {
		return nil, p.err
	}
	s, ok := p.series[symbol]
	if !ok {
		return nil, fmt.Errorf("no data for %s", symbol)
	}
	if days < len(s) {
		return s[len(s)-days:], nil
	}
	return s, nil
}

func testDeps(p contracts.PriceProvider) Deps {
	return Deps{Data: p, Log: logger.NewNop()}
}

// seriesFromCloses builds a plain series around a close column: highs a
// touch above, lows a touch below, constant volume.
func seriesFromCloses(closes []float64) contracts.PriceSeries {
	base := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	s := make(contracts.PriceSeries, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		s[i] = contracts.Candle{
			Date:   base.AddDate(0, 0, i),
			Open:   open,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1000,
		}
	}
	return s
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}
