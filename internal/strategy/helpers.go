package strategy

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/wonhee/argus/backend/internal/contracts"
)

const (
	// analyzeWorkers bounds how many symbols one strategy evaluates at
	// the same time.
	analyzeWorkers = 8

	// marginDays pads history requests so weekends and market holidays
	// do not leave a series one session short.
	marginDays = 15
)

// analyzeEach fans symbols out over a bounded worker pool and collects
// exactly one outcome per symbol, in input order. fn must return a
// non-nil outcome for every symbol it is given; per-symbol data
// problems belong in the outcome, not in an error. Cancellation aborts
// the whole strategy.
func analyzeEach(ctx context.Context, symbols []string, fn func(ctx context.Context, symbol string) *contracts.Outcome) ([]contracts.Outcome, error) {
	out := make([]contracts.Outcome, len(symbols))

	var wg sync.WaitGroup
	sem := make(chan struct{}, analyzeWorkers)
	for i := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			o := fn(ctx, symbol)
			if o == nil {
				o = contracts.NoDataOutcome(symbol, "no outcome produced")
			}
			o.Symbol = symbol
			out[i] = *o
		}(i, symbols[i])
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// insufficientHistory is the polite miss for a symbol whose series is
// too short to evaluate. It is a real verdict, not a data gap.
func insufficientHistory(symbol string, got, need int) *contracts.Outcome {
	return &contracts.Outcome{
		Symbol:  symbol,
		Matched: false,
		Reason:  fmt.Sprintf("insufficient history: %d sessions, need %d", got, need),
	}
}

// dataUnavailable marks a symbol whose candles could not be loaded.
func dataUnavailable(symbol string, err error) *contracts.Outcome {
	return contracts.NoDataOutcome(symbol, fmt.Sprintf("price data unavailable: %v", err))
}

// valid filters out the NaN and Inf values indicator warm-up regions
// produce.
func valid(f float64) bool {
	return f == f && !math.IsInf(f, 0)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// clampScore pins a raw score into the 0 to 100 range.
func clampScore(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 100 {
		return 100
	}
	return round2(f)
}

// clamp01 pins a confidence into the 0 to 1 range.
func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func f64ptr(f float64) *float64 {
	return &f
}
