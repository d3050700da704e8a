package strategy

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/wonhee/argus/backend/internal/contracts"
)

// breakoutSeries puts 14 quiet sessions under a loud final one.
func breakoutSeries(lastClose, lastHigh float64, lastVolume int64) contracts.PriceSeries {
	base := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	s := make(contracts.PriceSeries, 0, 15)
	for i := 0; i < 14; i++ {
		s = append(s, contracts.Candle{
			Date: base.AddDate(0, 0, i),
			Open: 100, High: 105, Low: 98, Close: 102,
			Volume: 1000,
		})
	}
	s = append(s, contracts.Candle{
		Date: base.AddDate(0, 0, 14),
		Open: 103, High: lastHigh, Low: 102, Close: lastClose,
		Volume: lastVolume,
	})
	return s
}

func newTestBreakout(t *testing.T, p *stubProvider) contracts.Strategy {
	t.Helper()
	s, err := New("breakout", testMeta("breakout_hi"), paramsNode(t, "window: 10\nvolume_window: 3\nvolume_mult: 1.5\n"), testDeps(p))
	if err != nil {
		t.Fatalf("Failed to build strategy: %v", err)
	}
	return s
}

func TestBreakout_Match(t *testing.T) {
	// Close 110 clears the prior high of 105 on triple volume.
	p := &stubProvider{series: map[string]contracts.PriceSeries{
		"TSLA": breakoutSeries(110, 111, 3000),
	}}
	s := newTestBreakout(t, p)

	outcomes, err := s.Analyze(context.Background(), []string{"TSLA"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	o := outcomes[0]
	if !o.Matched {
		t.Fatalf("Expected a match, got reason %q", o.Reason)
	}
	if o.Indicators["prior_high"] != 105 {
		t.Errorf("prior_high = %v, want 105", o.Indicators["prior_high"])
	}
	if o.Indicators["volume_ratio"] != 3 {
		t.Errorf("volume_ratio = %v, want 3", o.Indicators["volume_ratio"])
	}
}

func TestBreakout_VolumeTooThin(t *testing.T) {
	// Price clears the level but volume stays near baseline.
	p := &stubProvider{series: map[string]contracts.PriceSeries{
		"TSLA": breakoutSeries(110, 111, 1200),
	}}
	s := newTestBreakout(t, p)

	outcomes, err := s.Analyze(context.Background(), []string{"TSLA"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	o := outcomes[0]
	if o.Matched {
		t.Fatal("Expected no match without volume confirmation")
	}
	if !strings.Contains(o.Reason, "volume") {
		t.Errorf("Reason = %q, want volume mentioned", o.Reason)
	}
}

func TestBreakout_BelowPriorHigh(t *testing.T) {
	p := &stubProvider{series: map[string]contracts.PriceSeries{
		"TSLA": breakoutSeries(104, 104.5, 3000),
	}}
	s := newTestBreakout(t, p)

	outcomes, err := s.Analyze(context.Background(), []string{"TSLA"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if outcomes[0].Matched {
		t.Fatal("Expected no match below the prior high")
	}
}
