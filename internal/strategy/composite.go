package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/wonhee/argus/backend/internal/contracts"
)

// Composite blends momentum, trend, volume, and stability features into
// a single match probability. Definitions using it are typed AI_BASED:
// there is no single entry rule to point at, only the blended estimate.
type Composite struct {
	meta   contracts.StrategyMeta
	params compositeParams
	deps   Deps
}

type compositeParams struct {
	Lookback  int     `yaml:"lookback"`
	Threshold float64 `yaml:"threshold"` // match when probability reaches this
}

// Feature weights. They sum to 1 so the blend stays a probability.
const (
	wMomentum1M = 0.25
	wMomentum3M = 0.20
	wTrend      = 0.25
	wVolume     = 0.15
	wStability  = 0.15
)

func newComposite(meta contracts.StrategyMeta, params *yaml.Node, deps Deps) (contracts.Strategy, error) {
	p := compositeParams{Lookback: 120, Threshold: 0.62}
	if err := decodeParams(params, &p); err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}
	if p.Lookback < 80 {
		return nil, fmt.Errorf("composite: lookback must be at least 80, got %d", p.Lookback)
	}
	if p.Threshold <= 0 || p.Threshold >= 1 {
		return nil, fmt.Errorf("composite: threshold must be in (0, 1), got %v", p.Threshold)
	}
	return &Composite{meta: meta, params: p, deps: deps}, nil
}

func (s *Composite) Meta() contracts.StrategyMeta { return s.meta }

func (s *Composite) Analyze(ctx context.Context, symbols []string) ([]contracts.Outcome, error) {
	return analyzeEach(ctx, symbols, func(ctx context.Context, symbol string) *contracts.Outcome {
		series, err := s.deps.Data.DailyCandles(ctx, symbol, s.params.Lookback+marginDays)
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

func (s *Composite) evaluate(symbol string, series contracts.PriceSeries) *contracts.Outcome {
	if len(series) < s.params.Lookback {
		return insufficientHistory(symbol, len(series), s.params.Lookback)
	}

	closes := series.Closes()
	volumes := series.Volumes()
	last := len(closes) - 1
	close := closes[last]

	// 21 and 63 sessions approximate one and three calendar months.
	r1m := close/closes[last-21] - 1
	r3m := close/closes[last-63] - 1

	sma60 := talib.Sma(closes, 60)
	if !valid(sma60[last]) || sma60[last] == 0 || closes[last-21] == 0 || closes[last-63] == 0 {
		return contracts.NoDataOutcome(symbol, "composite features not computable")
	}
	trendGap := close/sma60[last] - 1

	// Volume z-score of the latest session against the lookback window.
	volMean := stat.Mean(volumes, nil)
	volStd := stat.StdDev(volumes, nil)
	volZ := 0.0
	if valid(volStd) && volStd > 0 {
		volZ = (volumes[last] - volMean) / volStd
	}

	// Annualized volatility of daily returns, as a stability penalty.
	rets := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			rets = append(rets, closes[i]/closes[i-1]-1)
		}
	}
	annualVol := stat.StdDev(rets, nil) * math.Sqrt(252)
	if !valid(annualVol) {
		return contracts.NoDataOutcome(symbol, "composite features not computable")
	}

	prob := wMomentum1M*logistic(r1m*8) +
		wMomentum3M*logistic(r3m*5) +
		wTrend*logistic(trendGap*10) +
		wVolume*logistic(volZ*0.8) +
		wStability*logistic((0.35-annualVol)*4)

	indicators := map[string]float64{
		"momentum_1m":   round2(r1m * 100),
		"momentum_3m":   round2(r3m * 100),
		"trend_gap_pct": round2(trendGap * 100),
		"volume_z":      round2(volZ),
		"annual_vol":    round2(annualVol),
		"probability":   round2(prob),
	}

	if prob < s.params.Threshold {
		return &contracts.Outcome{
			Symbol:     symbol,
			Matched:    false,
			Score:      clampScore(prob * 100),
			Confidence: f64ptr(round2(prob)),
			Reason:     fmt.Sprintf("blended probability %.2f below threshold %.2f", prob, s.params.Threshold),
			Indicators: indicators,
		}
	}

	return &contracts.Outcome{
		Symbol:     symbol,
		Matched:    true,
		Score:      clampScore(prob * 100),
		Confidence: f64ptr(round2(prob)),
		Reason:     fmt.Sprintf("blended probability %.2f above threshold %.2f", prob, s.params.Threshold),
		Indicators: indicators,
	}
}

func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
