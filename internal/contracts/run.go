package contracts

import (
	"bytes"
	"encoding/json"
	"time"
)

// Outcome is a single strategy's verdict for a single symbol.
//
// NoData marks symbols the strategy produced nothing for, either because
// the strategy failed as a whole or because the aggregation found a gap.
// A NoData outcome never counts as a match.
type Outcome struct {
	Symbol     string             `json:"-"`
	Matched    bool               `json:"matched"`
	Score      float64            `json:"score"`
	Confidence *float64           `json:"confidence,omitempty"`
	Reason     string             `json:"reason,omitempty"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
	NoData     bool               `json:"no_data,omitempty"`
}

// NoDataOutcome builds the explicit marker for a symbol a strategy has
// no verdict for.
func NoDataOutcome(symbol, reason string) *Outcome {
	return &Outcome{Symbol: symbol, NoData: true, Reason: reason}
}

// ⭐ SSOT: 심볼별 통합 결과 구조는 여기서만 정의
// SymbolResult merges every strategy's outcome for one symbol.
// Outcomes are keyed by strategy ID and serialized in the order the
// caller requested the strategies, not map order.
type SymbolResult struct {
	Symbol       string
	TotalMatches int
	PerStrategy  map[string]*Outcome

	order []string // 요청 순서 보존
}

// NewSymbolResult prepares an empty result that will serialize its
// strategies in the given order.
func NewSymbolResult(symbol string, strategyOrder []string) *SymbolResult {
	return &SymbolResult{
		Symbol:      symbol,
		PerStrategy: make(map[string]*Outcome, len(strategyOrder)),
		order:       strategyOrder,
	}
}

// Set records one strategy's outcome and keeps the match count in sync.
func (r *SymbolResult) Set(strategyID string, o *Outcome) {
	if prev, ok := r.PerStrategy[strategyID]; ok && prev.Matched && !prev.NoData {
		r.TotalMatches--
	}
	r.PerStrategy[strategyID] = o
	if o.Matched && !o.NoData {
		r.TotalMatches++
	}
}

// Outcome returns the recorded outcome for a strategy ID.
func (r *SymbolResult) Outcome(strategyID string) (*Outcome, bool) {
	o, ok := r.PerStrategy[strategyID]
	return o, ok
}

// StrategyOrder returns the strategy IDs in serialization order.
func (r *SymbolResult) StrategyOrder() []string {
	return r.order
}

// StrategiesJSON serializes the per-strategy map as a JSON object whose
// keys follow the requested strategy order.
func (r SymbolResult) StrategiesJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, id := range r.order {
		o, ok := r.PerStrategy[id]
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(o)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON keeps the strategies object ordered. encoding/json would
// sort map keys alphabetically, which loses the requested order.
func (r SymbolResult) MarshalJSON() ([]byte, error) {
	strategies, err := r.StrategiesJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(`{"symbol":`)
	sym, err := json.Marshal(r.Symbol)
	if err != nil {
		return nil, err
	}
	buf.Write(sym)
	buf.WriteString(`,"total_matches":`)
	count, err := json.Marshal(r.TotalMatches)
	if err != nil {
		return nil, err
	}
	buf.Write(count)
	buf.WriteString(`,"strategies":`)
	buf.Write(strategies)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Warning codes attached to runs that completed despite trouble.
const (
	WarnUnresolvedStrategy = "unresolved_strategy"
	WarnStrategyFailed     = "strategy_failed"
	WarnSaveFailed         = "save_failed"
)

// Warning is a non-fatal problem surfaced alongside run results.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StrategyExecution records how one strategy fared within a run.
type StrategyExecution struct {
	StrategyID string `json:"strategy_id"`
	DurationMS int64  `json:"duration_ms"`
	Failed     bool   `json:"failed"`
	Error      string `json:"error,omitempty"`
}

// ⭐ SSOT: 실행 런 구조는 여기서만 정의
// Run is one complete execution of a strategy set over a symbol set.
// Runs are append only: once saved they are never updated.
type Run struct {
	ID            string              `json:"run_id"`
	WatchlistID   int64               `json:"watchlist_id,omitempty"`
	WatchlistName string              `json:"watchlist_name,omitempty"`
	StrategyIDs   []string            `json:"strategy_ids"`
	Symbols       []string            `json:"symbols"`
	StartedAt     time.Time           `json:"started_at"`
	CompletedAt   time.Time           `json:"completed_at"`
	DurationMS    int64               `json:"duration_ms"`
	Results       []SymbolResult      `json:"results"`
	Executions    []StrategyExecution `json:"executions"`
	Warnings      []Warning           `json:"warnings,omitempty"`
}

// Result looks up the merged result for one symbol.
func (r *Run) Result(symbol string) (*SymbolResult, bool) {
	for i := range r.Results {
		if r.Results[i].Symbol == symbol {
			return &r.Results[i], true
		}
	}
	return nil, false
}

// MatchedSymbols returns the symbols with at least one match, in result
// order.
func (r *Run) MatchedSymbols() []string {
	var matched []string
	for i := range r.Results {
		if r.Results[i].TotalMatches > 0 {
			matched = append(matched, r.Results[i].Symbol)
		}
	}
	return matched
}

// FailedStrategies returns the IDs of strategies that did not finish.
func (r *Run) FailedStrategies() []string {
	var failed []string
	for _, ex := range r.Executions {
		if ex.Failed {
			failed = append(failed, ex.StrategyID)
		}
	}
	return failed
}
