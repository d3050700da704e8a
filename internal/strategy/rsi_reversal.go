package strategy

import (
	"context"
	"fmt"

	"github.com/markcheno/go-talib"
	"gopkg.in/yaml.v3"

	"github.com/wonhee/argus/backend/internal/contracts"
)

// RSIReversal flags symbols that dipped into oversold territory and
// have started to recover.
type RSIReversal struct {
	meta   contracts.StrategyMeta
	params rsiReversalParams
	deps   Deps
}

type rsiReversalParams struct {
	Period   int     `yaml:"period"`
	Oversold float64 `yaml:"oversold"`
	Within   int     `yaml:"within"` // dip must be at most this many sessions old
}

func newRSIReversal(meta contracts.StrategyMeta, params *yaml.Node, deps Deps) (contracts.Strategy, error) {
	p := rsiReversalParams{Period: 14, Oversold: 30, Within: 5}
	if err := decodeParams(params, &p); err != nil {
		return nil, fmt.Errorf("rsi_reversal: %w", err)
	}
	if p.Period < 2 {
		return nil, fmt.Errorf("rsi_reversal: period must be at least 2, got %d", p.Period)
	}
	if p.Oversold <= 0 || p.Oversold >= 50 {
		return nil, fmt.Errorf("rsi_reversal: oversold must be in (0, 50), got %v", p.Oversold)
	}
	if p.Within <= 0 {
		return nil, fmt.Errorf("rsi_reversal: within must be positive, got %d", p.Within)
	}
	return &RSIReversal{meta: meta, params: p, deps: deps}, nil
}

func (s *RSIReversal) Meta() contracts.StrategyMeta { return s.meta }

func (s *RSIReversal) Analyze(ctx context.Context, symbols []string) ([]contracts.Outcome, error) {
	need := s.need()
	return analyzeEach(ctx, symbols, func(ctx context.Context, symbol string) *contracts.Outcome {
		series, err := s.deps.Data.DailyCandles(ctx, symbol, need+marginDays)
		if err != nil {
			return dataUnavailable(symbol, err)
		}
		o := s.evaluate(symbol, series)
		if o.Matched {
			s.deps.Log.WithFields(map[string]interface{}{
				"strategy": s.meta.ScriptID,
				"symbol":   symbol,
				"score":    o.Score,
			}).Debug("Symbol matched")
		}
		return o
	})
}

func (s *RSIReversal) need() int {
	return s.params.Period + s.params.Within + 2
}

func (s *RSIReversal) evaluate(symbol string, series contracts.PriceSeries) *contracts.Outcome {
	if len(series) < s.need() {
		return insufficientHistory(symbol, len(series), s.need())
	}

	rsi := talib.Rsi(series.Closes(), s.params.Period)
	last := len(rsi) - 1
	if !valid(rsi[last]) || !valid(rsi[last-1]) {
		return contracts.NoDataOutcome(symbol, "RSI not computable")
	}

	// Deepest dip inside the recovery window.
	low := rsi[last]
	lowAgo := 0
	for i := 0; i <= s.params.Within; i++ {
		j := last - i
		if !valid(rsi[j]) {
			break
		}
		if rsi[j] < low {
			low = rsi[j]
			lowAgo = i
		}
	}

	indicators := map[string]float64{
		"rsi":      round2(rsi[last]),
		"rsi_low":  round2(low),
		"oversold": s.params.Oversold,
	}

	if low >= s.params.Oversold {
		return &contracts.Outcome{
			Symbol:     symbol,
			Matched:    false,
			Reason:     fmt.Sprintf("no dip below %.0f within last %d sessions", s.params.Oversold, s.params.Within),
			Indicators: indicators,
		}
	}
	if rsi[last] <= s.params.Oversold || rsi[last] <= rsi[last-1] {
		return &contracts.Outcome{
			Symbol:     symbol,
			Matched:    false,
			Reason:     fmt.Sprintf("RSI %.1f has not recovered from the dip yet", rsi[last]),
			Indicators: indicators,
		}
	}

	// Deeper dips and stronger recoveries score highest.
	depth := (s.params.Oversold - low) / s.params.Oversold
	rebound := (rsi[last] - low) / (100 - low)
	score := clampScore(50 + 30*depth*2 + 20*rebound*3)

	indicators["sessions_since_low"] = float64(lowAgo)

	return &contracts.Outcome{
		Symbol:     symbol,
		Matched:    true,
		Score:      score,
		Confidence: f64ptr(round2(clamp01(0.4 + 0.4*depth + 0.4*rebound))),
		Reason:     fmt.Sprintf("RSI dipped to %.1f and recovered to %.1f", low, rsi[last]),
		Indicators: indicators,
	}
}
