package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"gopkg.in/yaml.v3"

	"github.com/wonhee/argus/backend/internal/contracts"
)

// MACross flags symbols whose fast moving average crossed above the
// slow one within the last few sessions and is still holding above it.
type MACross struct {
	meta   contracts.StrategyMeta
	params maCrossParams
	deps   Deps
}

type maCrossParams struct {
	Fast   int `yaml:"fast"`
	Slow   int `yaml:"slow"`
	Within int `yaml:"within"` // cross must be at most this many sessions old
}

func newMACross(meta contracts.StrategyMeta, params *yaml.Node, deps Deps) (contracts.Strategy, error) {
	p := maCrossParams{Fast: 20, Slow: 60, Within: 5}
	if err := decodeParams(params, &p); err != nil {
		return nil, fmt.Errorf("ma_cross: %w", err)
	}
	if p.Fast <= 0 || p.Slow <= p.Fast {
		return nil, fmt.Errorf("ma_cross: need 0 < fast < slow, got fast=%d slow=%d", p.Fast, p.Slow)
	}
	if p.Within <= 0 {
		return nil, fmt.Errorf("ma_cross: within must be positive, got %d", p.Within)
	}
	return &MACross{meta: meta, params: p, deps: deps}, nil
}

func (s *MACross) Meta() contracts.StrategyMeta { return s.meta }

func (s *MACross) Analyze(ctx context.Context, symbols []string) ([]contracts.Outcome, error) {
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

func (s *MACross) need() int {
	return s.params.Slow + s.params.Within + 1
}

func (s *MACross) evaluate(symbol string, series contracts.PriceSeries) *contracts.Outcome {
	if len(series) < s.need() {
		return insufficientHistory(symbol, len(series), s.need())
	}

	closes := series.Closes()
	fast := talib.Sma(closes, s.params.Fast)
	slow := talib.Sma(closes, s.params.Slow)

	last := len(closes) - 1
	if !valid(fast[last]) || !valid(slow[last]) || slow[last] == 0 {
		return contracts.NoDataOutcome(symbol, "moving averages not computable")
	}

	indicators := map[string]float64{
		"fast_ma": round2(fast[last]),
		"slow_ma": round2(slow[last]),
	}

	if fast[last] <= slow[last] {
		return &contracts.Outcome{
			Symbol:     symbol,
			Matched:    false,
			Reason:     fmt.Sprintf("%d-session average below %d-session average", s.params.Fast, s.params.Slow),
			Indicators: indicators,
		}
	}

	// Walk back to the session the fast average crossed over.
	crossedAgo := -1
	for i := 0; i < s.params.Within; i++ {
		j := last - i
		if j == 0 {
			break
		}
		if fast[j] > slow[j] && fast[j-1] <= slow[j-1] {
			crossedAgo = i
			break
		}
	}
	if crossedAgo < 0 {
		return &contracts.Outcome{
			Symbol:     symbol,
			Matched:    false,
			Reason:     fmt.Sprintf("no cross within last %d sessions", s.params.Within),
			Indicators: indicators,
		}
	}

	gap := (fast[last] - slow[last]) / slow[last]
	// Fresh crosses with a widening gap score highest.
	recency := 1 - float64(crossedAgo)/float64(s.params.Within)
	separation := math.Tanh(gap * 50)
	score := clampScore(50 + 30*recency + 20*separation)

	indicators["gap_pct"] = round2(gap * 100)
	indicators["crossed_sessions_ago"] = float64(crossedAgo)

	return &contracts.Outcome{
		Symbol:     symbol,
		Matched:    true,
		Score:      score,
		Confidence: f64ptr(round2(clamp01(0.5*recency + 0.5*separation))),
		Reason:     fmt.Sprintf("%d-session average crossed above %d-session average %d sessions ago", s.params.Fast, s.params.Slow, crossedAgo),
		Indicators: indicators,
	}
}
