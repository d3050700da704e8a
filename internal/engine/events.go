package engine

import "time"

// Event types published over the run feed.
const (
	EventRunStarted       = "run_started"
	EventStrategyStarted  = "strategy_started"
	EventStrategyFinished = "strategy_finished"
	EventRunFinished      = "run_finished"
)

// Event is one lifecycle notification from a run in flight.
type Event struct {
	Type        string    `json:"type"`
	RunID       string    `json:"run_id"`
	StrategyID  string    `json:"strategy_id,omitempty"`
	SymbolCount int       `json:"symbol_count,omitempty"`
	Matched     int       `json:"matched,omitempty"`
	DurationMS  int64     `json:"duration_ms,omitempty"`
	Failed      bool      `json:"failed,omitempty"`
	Error       string    `json:"error,omitempty"`
	At          time.Time `json:"at"`
}

// Notifier receives run lifecycle events. Implementations must not
// block: the engine calls Notify inline on its hot path.
type Notifier interface {
	Notify(Event)
}
