package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"gopkg.in/yaml.v3"

	"github.com/wonhee/argus/backend/internal/contracts"
)

// Breakout flags symbols closing above their prior high on unusually
// heavy volume.
type Breakout struct {
	meta   contracts.StrategyMeta
	params breakoutParams
	deps   Deps
}

type breakoutParams struct {
	Window       int     `yaml:"window"`        // prior high lookback, 252 = one year
	VolumeWindow int     `yaml:"volume_window"` // volume baseline length
	VolumeMult   float64 `yaml:"volume_mult"`   // today must trade this multiple of baseline
}

func newBreakout(meta contracts.StrategyMeta, params *yaml.Node, deps Deps) (contracts.Strategy, error) {
	p := breakoutParams{Window: 252, VolumeWindow: 20, VolumeMult: 1.5}
	if err := decodeParams(params, &p); err != nil {
		return nil, fmt.Errorf("breakout: %w", err)
	}
	if p.Window < 10 {
		return nil, fmt.Errorf("breakout: window must be at least 10, got %d", p.Window)
	}
	if p.VolumeWindow < 2 {
		return nil, fmt.Errorf("breakout: volume_window must be at least 2, got %d", p.VolumeWindow)
	}
	if p.VolumeMult < 1 {
		return nil, fmt.Errorf("breakout: volume_mult must be at least 1, got %v", p.VolumeMult)
	}
	return &Breakout{meta: meta, params: p, deps: deps}, nil
}

func (s *Breakout) Meta() contracts.StrategyMeta { return s.meta }

func (s *Breakout) Analyze(ctx context.Context, symbols []string) ([]contracts.Outcome, error) {
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

func (s *Breakout) need() int {
	if s.params.Window >= s.params.VolumeWindow {
		return s.params.Window + 1
	}
	return s.params.VolumeWindow + 1
}

func (s *Breakout) evaluate(symbol string, series contracts.PriceSeries) *contracts.Outcome {
	if len(series) < s.need() {
		return insufficientHistory(symbol, len(series), s.need())
	}

	highs := series.Highs()
	volumes := series.Volumes()
	closes := series.Closes()
	last := len(series) - 1

	// Rolling max one session back, so today's own high never counts
	// as the level being broken.
	rollingHigh := talib.Max(highs, s.params.Window)
	priorHigh := rollingHigh[last-1]

	// Same offset for the volume baseline: the breakout session must
	// not inflate its own average.
	volBase := talib.Sma(volumes, s.params.VolumeWindow)
	baseline := volBase[last-1]

	if !valid(priorHigh) || priorHigh == 0 || !valid(baseline) || baseline == 0 {
		return contracts.NoDataOutcome(symbol, "prior high or volume baseline not computable")
	}

	close := closes[last]
	volRatio := volumes[last] / baseline
	indicators := map[string]float64{
		"close":        round2(close),
		"prior_high":   round2(priorHigh),
		"volume_ratio": round2(volRatio),
	}

	if close <= priorHigh {
		return &contracts.Outcome{
			Symbol:     symbol,
			Matched:    false,
			Reason:     fmt.Sprintf("close below prior %d-session high", s.params.Window),
			Indicators: indicators,
		}
	}
	if volRatio < s.params.VolumeMult {
		return &contracts.Outcome{
			Symbol:     symbol,
			Matched:    false,
			Reason:     fmt.Sprintf("volume %.1fx baseline, need %.1fx to confirm", volRatio, s.params.VolumeMult),
			Indicators: indicators,
		}
	}

	margin := (close - priorHigh) / priorHigh
	score := clampScore(50 + 30*math.Tanh(margin*50) + 20*math.Tanh((volRatio-1)/2))

	indicators["margin_pct"] = round2(margin * 100)

	return &contracts.Outcome{
		Symbol:     symbol,
		Matched:    true,
		Score:      score,
		Confidence: f64ptr(round2(clamp01(0.4 + 0.3*math.Tanh(margin*50) + 0.3*math.Tanh((volRatio-s.params.VolumeMult)/2)))),
		Reason:     fmt.Sprintf("closed %.1f%% above prior %d-session high on %.1fx volume", margin*100, s.params.Window, volRatio),
		Indicators: indicators,
	}
}
