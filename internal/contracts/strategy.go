package contracts

import (
	"context"
	"time"
)

// StrategyType classifies how a strategy reaches its verdict.
type StrategyType string

const (
	StrategyTypeRuleBased StrategyType = "RULE_BASED"
	StrategyTypeAIBased   StrategyType = "AI_BASED"
)

// Valid reports whether t is one of the known strategy types.
func (t StrategyType) Valid() bool {
	return t == StrategyTypeRuleBased || t == StrategyTypeAIBased
}

// ⭐ SSOT: 전략 메타데이터 구조는 여기서만 정의
// StrategyMeta describes a strategy independent of its implementation.
// ScriptID is the stable identity: derived from the definition filename
// and unique across the registry.
type StrategyMeta struct {
	ScriptID          string       `json:"script_id"`
	DisplayName       string       `json:"display_name"`
	Description       string       `json:"description,omitempty"`
	StrategyType      StrategyType `json:"strategy_type"`
	Timeframe         string       `json:"timeframe,omitempty"`
	IndicatorsUsed    []string     `json:"indicators_used,omitempty"`
	EntryExitCriteria string       `json:"entry_exit_criteria,omitempty"`
	ScoringLogic      string       `json:"scoring_logic,omitempty"`
	SourceLocation    string       `json:"source_location,omitempty"` // 정의 파일 경로
	IsActive          bool         `json:"is_active"`
	LastScanned       time.Time    `json:"last_scanned"`
}

// ⭐ SSOT: 전략 계약은 이 인터페이스 하나
// Strategy is the contract every analysis strategy satisfies.
//
// Analyze evaluates the given symbols and returns exactly one Outcome per
// input symbol, in input order. Returning a different count, or an error,
// fails the whole strategy for this run. Analyze must not mutate symbols
// and must honor ctx cancellation.
type Strategy interface {
	Meta() StrategyMeta
	Analyze(ctx context.Context, symbols []string) ([]Outcome, error)
}

// StrategyResolver maps requested strategy IDs to live strategies.
type StrategyResolver interface {
	// Resolve preserves the order of ids in found and reports unknown
	// ids in missing. Naming an inactive strategy explicitly still
	// resolves it. Resolve never fails.
	Resolve(ids []string) (found []ResolvedStrategy, missing []string)
}

// ResolvedStrategy pairs a requested ID with the strategy it resolved to.
type ResolvedStrategy struct {
	ID       string
	Strategy Strategy
}

// ScanReport summarizes one registry scan over the definition directory.
type ScanReport struct {
	Scanned int           `json:"scanned"`
	Added   []string      `json:"added"`
	Updated []string      `json:"updated"`
	Failed  []ScanFailure `json:"failed,omitempty"`
}

// ScanFailure records a definition file that did not make it into the
// registry, with the reason it was rejected.
type ScanFailure struct {
	Candidate string `json:"candidate"`
	Reason    string `json:"reason"`
}
