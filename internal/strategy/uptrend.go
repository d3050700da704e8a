package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"gopkg.in/yaml.v3"

	"github.com/wonhee/argus/backend/internal/contracts"
)

// Uptrend flags symbols trading above a rising stack of moving
// averages, short over mid over long.
type Uptrend struct {
	meta   contracts.StrategyMeta
	params uptrendParams
	deps   Deps
}

type uptrendParams struct {
	Short int `yaml:"short"`
	Mid   int `yaml:"mid"`
	Long  int `yaml:"long"`
}

// slopeWindow is how far back the short average must have risen from.
const slopeWindow = 5

func newUptrend(meta contracts.StrategyMeta, params *yaml.Node, deps Deps) (contracts.Strategy, error) {
	p := uptrendParams{Short: 20, Mid: 60, Long: 120}
	if err := decodeParams(params, &p); err != nil {
		return nil, fmt.Errorf("uptrend: %w", err)
	}
	if p.Short <= 0 || p.Mid <= p.Short || p.Long <= p.Mid {
		return nil, fmt.Errorf("uptrend: need 0 < short < mid < long, got %d/%d/%d", p.Short, p.Mid, p.Long)
	}
	return &Uptrend{meta: meta, params: p, deps: deps}, nil
}

func (s *Uptrend) Meta() contracts.StrategyMeta { return s.meta }

func (s *Uptrend) Analyze(ctx context.Context, symbols []string) ([]contracts.Outcome, error) {
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

func (s *Uptrend) need() int {
	return s.params.Long + slopeWindow + 1
}

func (s *Uptrend) evaluate(symbol string, series contracts.PriceSeries) *contracts.Outcome {
	if len(series) < s.need() {
		return insufficientHistory(symbol, len(series), s.need())
	}

	closes := series.Closes()
	short := talib.Sma(closes, s.params.Short)
	mid := talib.Sma(closes, s.params.Mid)
	long := talib.Sma(closes, s.params.Long)

	last := len(closes) - 1
	if !valid(short[last]) || !valid(mid[last]) || !valid(long[last]) || long[last] == 0 {
		return contracts.NoDataOutcome(symbol, "moving averages not computable")
	}

	close := closes[last]
	indicators := map[string]float64{
		"close":    round2(close),
		"short_ma": round2(short[last]),
		"mid_ma":   round2(mid[last]),
		"long_ma":  round2(long[last]),
	}

	stacked := close > short[last] && short[last] > mid[last] && mid[last] > long[last]
	if !stacked {
		return &contracts.Outcome{
			Symbol:     symbol,
			Matched:    false,
			Reason:     fmt.Sprintf("averages not stacked: need close > %d > %d > %d", s.params.Short, s.params.Mid, s.params.Long),
			Indicators: indicators,
		}
	}

	slope := (short[last] - short[last-slopeWindow]) / short[last-slopeWindow]
	if slope <= 0 {
		return &contracts.Outcome{
			Symbol:     symbol,
			Matched:    false,
			Reason:     fmt.Sprintf("%d-session average is flat or falling", s.params.Short),
			Indicators: indicators,
		}
	}

	// Wider gaps between the layers mean a cleaner trend.
	g1 := (close - short[last]) / short[last]
	g2 := (short[last] - mid[last]) / mid[last]
	g3 := (mid[last] - long[last]) / long[last]
	score := clampScore(40 + 20*math.Tanh(g1*50) + 20*math.Tanh(g2*50) + 20*math.Tanh(g3*50))

	indicators["short_slope_pct"] = round2(slope * 100)

	return &contracts.Outcome{
		Symbol:     symbol,
		Matched:    true,
		Score:      score,
		Confidence: f64ptr(round2(clamp01(0.5 + 0.5*math.Tanh(slope*60)))),
		Reason:     fmt.Sprintf("price above rising %d/%d/%d average stack", s.params.Short, s.params.Mid, s.params.Long),
		Indicators: indicators,
	}
}
