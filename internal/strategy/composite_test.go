package strategy

import (
	"context"
	"testing"

	"github.com/wonhee/argus/backend/internal/contracts"
)

func newTestComposite(t *testing.T, p *stubProvider) contracts.Strategy {
	t.Helper()
	s, err := New("composite", testMeta("ai_blend"), nil, testDeps(p))
	if err != nil {
		t.Fatalf("Failed to build strategy: %v", err)
	}
	return s
}

// compounding builds a series that gains rate per session.
func compounding(n int, start, rate float64) []float64 {
	out := make([]float64, n)
	v := start
	for i := range out {
		out[i] = v
		v *= 1 + rate
	}
	return out
}

func TestComposite_StrongRiser(t *testing.T) {
	// Half a percent per session compounds into strong momentum, a wide
	// trend gap, and zero volatility drag in every feature window.
	p := &stubProvider{series: map[string]contracts.PriceSeries{
		"005930": seriesFromCloses(compounding(140, 100, 0.005)),
	}}
	s := newTestComposite(t, p)

	outcomes, err := s.Analyze(context.Background(), []string{"005930"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	o := outcomes[0]
	if !o.Matched {
		t.Fatalf("Expected a match, got reason %q (prob %v)", o.Reason, o.Indicators["probability"])
	}
	if o.Confidence == nil {
		t.Fatal("Expected a confidence value")
	}
	if *o.Confidence < 0.62 {
		t.Errorf("Confidence = %v, want at least the threshold", *o.Confidence)
	}
	if o.Indicators["momentum_1m"] <= 0 {
		t.Errorf("momentum_1m = %v, want positive", o.Indicators["momentum_1m"])
	}
}

func TestComposite_SteadyFaller(t *testing.T) {
	p := &stubProvider{series: map[string]contracts.PriceSeries{
		"000660": seriesFromCloses(compounding(140, 100, -0.005)),
	}}
	s := newTestComposite(t, p)

	outcomes, err := s.Analyze(context.Background(), []string{"000660"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	o := outcomes[0]
	if o.Matched {
		t.Fatalf("Expected no match, got score %v", o.Score)
	}
	// A miss still carries the full feature readout.
	if _, ok := o.Indicators["probability"]; !ok {
		t.Errorf("Indicators missing probability: %v", o.Indicators)
	}
}

func TestComposite_ShortHistory(t *testing.T) {
	p := &stubProvider{series: map[string]contracts.PriceSeries{
		"NEWIPO": seriesFromCloses(compounding(50, 100, 0.005)),
	}}
	s := newTestComposite(t, p)

	outcomes, err := s.Analyze(context.Background(), []string{"NEWIPO"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	o := outcomes[0]
	if o.Matched || o.NoData {
		t.Fatalf("Short history should be a plain miss, got %+v", o)
	}
}
