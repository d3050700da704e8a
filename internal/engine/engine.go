package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonhee/argus/backend/internal/contracts"
	"github.com/wonhee/argus/backend/pkg/logger"
)

// ⭐ SSOT: 전략 실행 오케스트레이션은 여기서만
// Engine runs a chosen set of strategies across a chosen set of
// symbols and produces one run. Each strategy executes in isolation:
// an error, a panic, a timeout, or a malformed response fails that
// strategy alone and never its siblings.
type Engine struct {
	resolver contracts.StrategyResolver
	runs     contracts.RunStore // nil when running without persistence
	notifier Notifier           // nil when nobody is listening
	timeout  time.Duration
	log      *logger.Logger
}

// Request describes one execution.
type Request struct {
	WatchlistID   int64
	WatchlistName string
	Symbols       []string
	StrategyIDs   []string
}

// Options tune one execution.
type Options struct {
	SaveResults bool
}

func New(resolver contracts.StrategyResolver, runs contracts.RunStore, timeout time.Duration, notifier Notifier, log *logger.Logger) *Engine {
	return &Engine{
		resolver: resolver,
		runs:     runs,
		notifier: notifier,
		timeout:  timeout,
		log:      log.WithComponent("engine"),
	}
}

// Execute runs the request end to end and returns the completed run.
// Fatal conditions are an empty request (no symbols after deduplication,
// no strategy ids) and a resolution that finds nothing. Everything else
// degrades to per-strategy failure markers and warnings on the run.
func (e *Engine) Execute(ctx context.Context, req Request, opts Options) (*contracts.Run, error) {
	// 1. Deduplicate symbols, preserving first-seen order.
	symbols := dedupeSymbols(req.Symbols)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: no symbols to analyze", contracts.ErrInvalidInput)
	}
	if len(req.StrategyIDs) == 0 {
		return nil, fmt.Errorf("%w: no strategies requested", contracts.ErrInvalidInput)
	}

	// 2. Resolve strategies. Missing ids become warnings; an empty
	// resolution aborts, there is nothing to execute.
	found, missing := e.resolver.Resolve(req.StrategyIDs)
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: requested %v", contracts.ErrNoStrategiesResolved, req.StrategyIDs)
	}

	ids := make([]string, len(found))
	for i, rs := range found {
		ids[i] = rs.ID
	}

	run := &contracts.Run{
		ID:            uuid.New().String(),
		WatchlistID:   req.WatchlistID,
		WatchlistName: req.WatchlistName,
		StrategyIDs:   ids,
		Symbols:       symbols,
		StartedAt:     time.Now(),
	}
	for _, id := range missing {
		run.Warnings = append(run.Warnings, contracts.Warning{
			Code:    contracts.WarnUnresolvedStrategy,
			Message: fmt.Sprintf("strategy %s not found in registry", id),
		})
	}

	e.log.WithFields(map[string]interface{}{
		"run_id":     run.ID,
		"symbols":    len(symbols),
		"strategies": len(found),
		"missing":    len(missing),
	}).Info("Starting execution")
	e.notify(Event{Type: EventRunStarted, RunID: run.ID, SymbolCount: len(symbols), At: run.StartedAt})

	// 3. One isolated task per strategy, all over the same symbol list.
	outcomes, failures := e.runStrategies(ctx, run, found, symbols)

	// A cancelled request is abandoned whole: no aggregation, no
	// persistence of a half-finished run.
	if err := ctx.Err(); err != nil {
		e.log.WithFields(map[string]interface{}{
			"run_id": run.ID,
		}).Warn("Execution cancelled")
		return nil, fmt.Errorf("execution cancelled: %w", err)
	}

	// 4. Merge into one result per symbol.
	run.Results = Aggregate(symbols, ids, outcomes, failures)

	run.CompletedAt = time.Now()
	run.DurationMS = run.CompletedAt.Sub(run.StartedAt).Milliseconds()

	// 5. Persist when asked. A save failure is reported on the run, the
	// computed results are never discarded over it.
	if opts.SaveResults {
		e.save(ctx, run)
	}

	matched := len(run.MatchedSymbols())
	e.log.WithFields(map[string]interface{}{
		"run_id":      run.ID,
		"duration_ms": run.DurationMS,
		"matched":     matched,
		"failed":      len(run.FailedStrategies()),
		"warnings":    len(run.Warnings),
	}).Info("Execution complete")
	e.notify(Event{
		Type:        EventRunFinished,
		RunID:       run.ID,
		SymbolCount: len(symbols),
		Matched:     matched,
		DurationMS:  run.DurationMS,
		At:          run.CompletedAt,
	})
	return run, nil
}

// strategyResult carries one strategy's outcome list back from its
// worker.
type strategyResult struct {
	index     int
	id        string
	outcomes  []contracts.Outcome
	execution contracts.StrategyExecution
}

func (e *Engine) runStrategies(ctx context.Context, run *contracts.Run, found []contracts.ResolvedStrategy, symbols []string) (map[string][]contracts.Outcome, map[string]string) {
	resultCh := make(chan strategyResult, len(found))

	var wg sync.WaitGroup
	for i, rs := range found {
		wg.Add(1)
		go func(i int, rs contracts.ResolvedStrategy) {
			defer wg.Done()
			resultCh <- e.runOne(ctx, run.ID, i, rs, symbols)
		}(i, rs)
	}
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	outcomes := make(map[string][]contracts.Outcome, len(found))
	failures := make(map[string]string)
	executions := make([]contracts.StrategyExecution, len(found))
	for res := range resultCh {
		executions[res.index] = res.execution
		if res.execution.Failed {
			failures[res.id] = res.execution.Error
			run.Warnings = append(run.Warnings, contracts.Warning{
				Code:    contracts.WarnStrategyFailed,
				Message: fmt.Sprintf("strategy %s failed: %s", res.id, res.execution.Error),
			})
			continue
		}
		outcomes[res.id] = res.outcomes
	}
	run.Executions = executions
	return outcomes, failures
}

// runOne executes a single strategy under its own timeout, converting
// panics, errors, timeouts, and malformed responses into a failure
// marker for that strategy alone.
func (e *Engine) runOne(ctx context.Context, runID string, index int, rs contracts.ResolvedStrategy, symbols []string) strategyResult {
	started := time.Now()
	e.notify(Event{Type: EventStrategyStarted, RunID: runID, StrategyID: rs.ID, SymbolCount: len(symbols), At: started})

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type analyzed struct {
		outcomes []contracts.Outcome
		err      error
	}
	done := make(chan analyzed, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- analyzed{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		outs, err := rs.Strategy.Analyze(cctx, symbols)
		done <- analyzed{outcomes: outs, err: err}
	}()

	var res analyzed
	select {
	case res = <-done:
	case <-cctx.Done():
		// Abandon the worker; it exits on its own once it notices the
		// cancelled context.
		if cctx.Err() == context.DeadlineExceeded {
			res = analyzed{err: fmt.Errorf("timeout after %s", e.timeout)}
		} else {
			res = analyzed{err: cctx.Err()}
		}
	}

	exec := contracts.StrategyExecution{
		StrategyID: rs.ID,
		DurationMS: time.Since(started).Milliseconds(),
	}
	switch {
	case res.err != nil:
		exec.Failed = true
		exec.Error = res.err.Error()
	case len(res.outcomes) != len(symbols):
		exec.Failed = true
		exec.Error = fmt.Sprintf("returned %d outcomes for %d symbols", len(res.outcomes), len(symbols))
	}

	if exec.Failed {
		e.log.WithFields(map[string]interface{}{
			"run_id":      runID,
			"strategy_id": rs.ID,
			"error":       exec.Error,
		}).Error("Strategy failed")
		e.notify(Event{Type: EventStrategyFinished, RunID: runID, StrategyID: rs.ID, DurationMS: exec.DurationMS, Failed: true, Error: exec.Error, At: time.Now()})
		return strategyResult{index: index, id: rs.ID, execution: exec}
	}

	matched := 0
	for i := range res.outcomes {
		if res.outcomes[i].Matched && !res.outcomes[i].NoData {
			matched++
		}
	}
	e.log.WithFields(map[string]interface{}{
		"run_id":      runID,
		"strategy_id": rs.ID,
		"duration_ms": exec.DurationMS,
		"matched":     matched,
	}).Debug("Strategy finished")
	e.notify(Event{Type: EventStrategyFinished, RunID: runID, StrategyID: rs.ID, DurationMS: exec.DurationMS, Matched: matched, At: time.Now()})
	return strategyResult{index: index, id: rs.ID, outcomes: res.outcomes, execution: exec}
}

func (e *Engine) save(ctx context.Context, run *contracts.Run) {
	if e.runs == nil {
		run.Warnings = append(run.Warnings, contracts.Warning{
			Code:    contracts.WarnSaveFailed,
			Message: "no run store configured",
		})
		return
	}
	if err := e.runs.SaveRun(ctx, run); err != nil {
		e.log.WithError(err).WithFields(map[string]interface{}{
			"run_id": run.ID,
		}).Error("Failed to save run")
		run.Warnings = append(run.Warnings, contracts.Warning{
			Code:    contracts.WarnSaveFailed,
			Message: fmt.Sprintf("results computed but not persisted: %v", err),
		})
	}
}

func (e *Engine) notify(ev Event) {
	if e.notifier != nil {
		e.notifier.Notify(ev)
	}
}

// dedupeSymbols trims, uppercases, and deduplicates while keeping
// first-seen order.
func dedupeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}
