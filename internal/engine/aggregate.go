package engine

import (
	"github.com/wonhee/argus/backend/internal/contracts"
)

// Aggregate merges per-strategy outcome lists into one result per
// symbol. It is a pure transformation:
//
//   - every input symbol gets exactly one result, even when every
//     strategy failed for it
//   - outcomes are matched to symbols by key, never by position
//   - an outcome for a symbol nobody asked about is ignored
//   - a gap, or a whole strategy absent from outcomes, becomes an
//     explicit no-data marker (reason from failures when known)
//   - per-strategy ordering inside each result follows strategyIDs as
//     given, so identical input always serializes identically
func Aggregate(symbols, strategyIDs []string, outcomes map[string][]contracts.Outcome, failures map[string]string) []contracts.SymbolResult {
	// Index each strategy's outcomes by symbol. First claim wins if a
	// strategy reports the same symbol twice.
	byStrategy := make(map[string]map[string]*contracts.Outcome, len(outcomes))
	for id, outs := range outcomes {
		m := make(map[string]*contracts.Outcome, len(outs))
		for i := range outs {
			o := outs[i]
			if _, dup := m[o.Symbol]; !dup {
				m[o.Symbol] = &o
			}
		}
		byStrategy[id] = m
	}

	results := make([]contracts.SymbolResult, 0, len(symbols))
	for _, sym := range symbols {
		r := contracts.NewSymbolResult(sym, strategyIDs)
		for _, id := range strategyIDs {
			m, ran := byStrategy[id]
			if !ran {
				reason := failures[id]
				if reason == "" {
					reason = "strategy produced no outcomes"
				}
				r.Set(id, contracts.NoDataOutcome(sym, reason))
				continue
			}
			if o, ok := m[sym]; ok {
				r.Set(id, o)
			} else {
				r.Set(id, contracts.NoDataOutcome(sym, "strategy returned no outcome for this symbol"))
			}
		}
		results = append(results, *r)
	}
	return results
}
