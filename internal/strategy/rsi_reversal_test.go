package strategy

import (
	"context"
	"strings"
	"testing"

	"github.com/wonhee/argus/backend/internal/contracts"
)

func newTestRSIReversal(t *testing.T, p *stubProvider) contracts.Strategy {
	t.Helper()
	s, err := New("rsi_reversal", testMeta("rsi_rebound"), paramsNode(t, "period: 3\noversold: 30\nwithin: 5\n"), testDeps(p))
	if err != nil {
		t.Fatalf("Failed to build strategy: %v", err)
	}
	return s
}

func TestRSIReversal_DipAndRecover(t *testing.T) {
	// Gentle rise, four hard down sessions, then three strong up
	// sessions: RSI(3) bottoms near zero and snaps back high.
	closes := ramp(20, 100, 0.1)
	closes = append(closes, 97, 92, 87, 82)
	closes = append(closes, 88, 94, 100)

	p := &stubProvider{series: map[string]contracts.PriceSeries{
		"035420": seriesFromCloses(closes),
	}}
	s := newTestRSIReversal(t, p)

	outcomes, err := s.Analyze(context.Background(), []string{"035420"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	o := outcomes[0]
	if !o.Matched {
		t.Fatalf("Expected a match, got reason %q", o.Reason)
	}
	if !strings.Contains(o.Reason, "recovered") {
		t.Errorf("Reason = %q, want dip and recovery described", o.Reason)
	}
	if o.Indicators["rsi_low"] >= 30 {
		t.Errorf("rsi_low = %v, want below oversold", o.Indicators["rsi_low"])
	}
	if o.Indicators["rsi"] <= 30 {
		t.Errorf("rsi = %v, want recovered above oversold", o.Indicators["rsi"])
	}
}

func TestRSIReversal_NoDip(t *testing.T) {
	// A steady climber never visits oversold territory.
	p := &stubProvider{series: map[string]contracts.PriceSeries{
		"005930": seriesFromCloses(ramp(30, 100, 1)),
	}}
	s := newTestRSIReversal(t, p)

	outcomes, err := s.Analyze(context.Background(), []string{"005930"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	o := outcomes[0]
	if o.Matched {
		t.Fatal("Expected no match without an oversold dip")
	}
	if !strings.Contains(o.Reason, "no dip") {
		t.Errorf("Reason = %q, want no dip explained", o.Reason)
	}
}

func TestRSIReversal_StillFalling(t *testing.T) {
	// Dip with no recovery: the last session keeps sliding.
	closes := ramp(20, 100, 0.1)
	closes = append(closes, 97, 92, 87, 82, 78, 75)

	p := &stubProvider{series: map[string]contracts.PriceSeries{
		"000660": seriesFromCloses(closes),
	}}
	s := newTestRSIReversal(t, p)

	outcomes, err := s.Analyze(context.Background(), []string{"000660"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if outcomes[0].Matched {
		t.Fatal("Expected no match while RSI is still falling")
	}
}
