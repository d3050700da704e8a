// Package results persists execution runs and answers queries over the
// stored per-symbol outcomes.
package results

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonhee/argus/backend/internal/contracts"
)

// defaultLatestLimit bounds unfiltered latest queries.
const defaultLatestLimit = 100

// runSchema keeps runs append only: a run row plus one row per symbol.
// per_strategy holds the ordered strategies JSON object written at save
// time, so the caller's strategy order survives storage.
const runSchema = `
CREATE TABLE IF NOT EXISTS runs (
    id             TEXT PRIMARY KEY,
    watchlist_id   BIGINT,
    watchlist_name TEXT NOT NULL DEFAULT '',
    strategy_ids   TEXT[] NOT NULL,
    symbol_count   INT NOT NULL,
    matched_count  INT NOT NULL,
    warning_count  INT NOT NULL,
    warnings       JSONB,
    executions     JSONB,
    started_at     TIMESTAMPTZ NOT NULL,
    completed_at   TIMESTAMPTZ NOT NULL,
    duration_ms    BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);

CREATE TABLE IF NOT EXISTS run_results (
    run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    symbol        TEXT NOT NULL,
    total_matches INT NOT NULL,
    per_strategy  JSONB NOT NULL,
    PRIMARY KEY (run_id, symbol)
);

CREATE INDEX IF NOT EXISTS idx_run_results_symbol ON run_results(symbol);
`

// Repository implements contracts.RunStore on Postgres
// ⭐ SSOT: 실행 결과 저장소는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new run repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InitSchema ensures the run tables exist.
func (r *Repository) InitSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, runSchema)
	return err
}

// SaveRun appends a completed run and its per-symbol results in one
// transaction. Runs are never updated in place.
func (r *Repository) SaveRun(ctx context.Context, run *contracts.Run) error {
	warnings, err := json.Marshal(run.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}
	executions, err := json.Marshal(run.Executions)
	if err != nil {
		return fmt.Errorf("marshal executions: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var watchlistID *int64
	if run.WatchlistID != 0 {
		watchlistID = &run.WatchlistID
	}

	matched := len(run.MatchedSymbols())
	_, err = tx.Exec(ctx, `
		INSERT INTO runs (
			id, watchlist_id, watchlist_name, strategy_ids,
			symbol_count, matched_count, warning_count,
			warnings, executions, started_at, completed_at, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.ID, watchlistID, run.WatchlistName, run.StrategyIDs,
		len(run.Symbols), matched, len(run.Warnings),
		warnings, executions, run.StartedAt, run.CompletedAt, run.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	for i := range run.Results {
		res := &run.Results[i]
		strategies, err := res.StrategiesJSON()
		if err != nil {
			return fmt.Errorf("marshal strategies for %s: %w", res.Symbol, err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO run_results (run_id, symbol, total_matches, per_strategy)
			VALUES ($1, $2, $3, $4)`,
			run.ID, res.Symbol, res.TotalMatches, strategies,
		)
		if err != nil {
			return fmt.Errorf("insert result for %s: %w", res.Symbol, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Latest returns per-symbol results from the most recent runs, newest run
// first and highest match count first within a run.
func (r *Repository) Latest(ctx context.Context, filter contracts.LatestFilter) ([]contracts.LatestResult, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLatestLimit
	}

	query := `
		SELECT rr.run_id, r.started_at, rr.symbol, rr.total_matches, rr.per_strategy
		FROM run_results rr
		JOIN runs r ON r.id = rr.run_id
	`
	args := []interface{}{}
	where := ""

	if filter.StrategyID != "" {
		args = append(args, filter.StrategyID)
		where = fmt.Sprintf("WHERE jsonb_exists(rr.per_strategy, $%d)", len(args))
		if filter.MatchedOnly {
			where += fmt.Sprintf(" AND (rr.per_strategy -> $%d ->> 'matched')::boolean IS TRUE", len(args))
		}
	} else if filter.MatchedOnly {
		where = "WHERE rr.total_matches > 0"
	}

	args = append(args, limit)
	query += where + fmt.Sprintf(`
		ORDER BY r.started_at DESC, rr.total_matches DESC, rr.symbol ASC
		LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []contracts.LatestResult
	for rows.Next() {
		var res contracts.LatestResult
		if err := rows.Scan(&res.RunID, &res.ExecutedAt, &res.Symbol, &res.TotalMatches, &res.Strategies); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// RecentRuns lists run summaries, newest first.
func (r *Repository) RecentRuns(ctx context.Context, limit int) ([]contracts.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, watchlist_name, strategy_ids, symbol_count, matched_count,
		       warning_count, started_at, duration_ms
		FROM runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []contracts.RunSummary
	for rows.Next() {
		var s contracts.RunSummary
		if err := rows.Scan(
			&s.ID, &s.WatchlistName, &s.StrategyIDs, &s.SymbolCount,
			&s.MatchedCount, &s.WarningCount, &s.StartedAt, &s.DurationMS,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// DeleteRunsBefore removes runs started before cutoff. Result rows go
// with them through the cascade.
func (r *Repository) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM runs WHERE started_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
