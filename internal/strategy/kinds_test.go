package strategy

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/wonhee/argus/backend/internal/contracts"
)

func paramsNode(t *testing.T, src string) *yaml.Node {
	t.Helper()
	if src == "" {
		return nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatalf("Failed to parse params fixture: %v", err)
	}
	if len(doc.Content) == 0 {
		return nil
	}
	return doc.Content[0]
}

func testMeta(id string) contracts.StrategyMeta {
	return contracts.StrategyMeta{
		ScriptID:     id,
		DisplayName:  id,
		StrategyType: contracts.StrategyTypeRuleBased,
	}
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := New("moon_phase", testMeta("moon"), nil, testDeps(&stubProvider{}))
	if err == nil {
		t.Fatal("Expected error for unknown kind")
	}
	if !strings.Contains(err.Error(), "unknown rule kind") {
		t.Errorf("Error = %v, want mention of unknown rule kind", err)
	}
	// The error should point the author at the available kinds.
	if !strings.Contains(err.Error(), "ma_cross") {
		t.Errorf("Error = %v, want known kinds listed", err)
	}
}

func TestNew_EveryKindConstructsWithDefaults(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(kind, func(t *testing.T) {
			s, err := New(kind, testMeta(kind), nil, testDeps(&stubProvider{}))
			if err != nil {
				t.Fatalf("New(%s) with defaults failed: %v", kind, err)
			}
			if s.Meta().ScriptID != kind {
				t.Errorf("Meta().ScriptID = %q, want %q", s.Meta().ScriptID, kind)
			}
		})
	}
}

func TestNew_RejectsUnknownParamKey(t *testing.T) {
	node := paramsNode(t, "fast: 10\nslw: 30\n")
	_, err := New("ma_cross", testMeta("x"), node, testDeps(&stubProvider{}))
	if err == nil {
		t.Fatal("Expected error for unknown param key")
	}
}

func TestNew_RejectsBadParamValues(t *testing.T) {
	tests := []struct {
		name   string
		kind   string
		params string
	}{
		{"fast not below slow", "ma_cross", "fast: 60\nslow: 20\n"},
		{"zero within", "ma_cross", "within: 0\n"},
		{"oversold too high", "rsi_reversal", "oversold: 80\n"},
		{"unordered stack", "uptrend", "short: 60\nmid: 20\n"},
		{"tiny window", "breakout", "window: 3\n"},
		{"threshold out of range", "composite", "threshold: 1.5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := paramsNode(t, tt.params)
			if _, err := New(tt.kind, testMeta("x"), node, testDeps(&stubProvider{})); err == nil {
				t.Errorf("Expected %s to reject params %q", tt.kind, tt.params)
			}
		})
	}
}

func TestKinds_Sorted(t *testing.T) {
	kinds := Kinds()
	if len(kinds) < 5 {
		t.Fatalf("Kinds() = %v, want at least 5", kinds)
	}
	for i := 1; i < len(kinds); i++ {
		if kinds[i-1] >= kinds[i] {
			t.Errorf("Kinds() not sorted: %v", kinds)
		}
	}
}
