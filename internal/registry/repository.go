package registry

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonhee/argus/backend/internal/contracts"
)

// metadataSchema mirrors registry state across restarts. Behavior still
// lives in the definition files; this table only keeps activation flags
// and scan history.
const metadataSchema = `
CREATE TABLE IF NOT EXISTS strategy_metadata (
    script_id           TEXT PRIMARY KEY,
    display_name        TEXT NOT NULL,
    description         TEXT NOT NULL DEFAULT '',
    strategy_type       TEXT NOT NULL,
    timeframe           TEXT NOT NULL DEFAULT '',
    indicators_used     TEXT[],
    entry_exit_criteria TEXT NOT NULL DEFAULT '',
    scoring_logic       TEXT NOT NULL DEFAULT '',
    source_location     TEXT NOT NULL DEFAULT '',
    is_active           BOOLEAN NOT NULL DEFAULT TRUE,
    last_scanned        TIMESTAMPTZ,
    definition_hash     TEXT NOT NULL,
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// MetadataRepository implements contracts.StrategyMetadataStore on
// Postgres
// ⭐ SSOT: 전략 메타데이터 저장소는 여기서만
type MetadataRepository struct {
	pool *pgxpool.Pool
}

// NewMetadataRepository creates a new metadata repository.
func NewMetadataRepository(pool *pgxpool.Pool) *MetadataRepository {
	return &MetadataRepository{pool: pool}
}

// InitSchema ensures the strategy_metadata table exists.
func (r *MetadataRepository) InitSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, metadataSchema)
	return err
}

// UpsertMeta writes one strategy's metadata row. The activation flag is
// only set on first insert; scans must not undo a stored deactivation.
func (r *MetadataRepository) UpsertMeta(ctx context.Context, meta contracts.StrategyMeta, definitionHash string) error {
	query := `
		INSERT INTO strategy_metadata (
			script_id, display_name, description, strategy_type, timeframe,
			indicators_used, entry_exit_criteria, scoring_logic, source_location,
			is_active, last_scanned, definition_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (script_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			description = EXCLUDED.description,
			strategy_type = EXCLUDED.strategy_type,
			timeframe = EXCLUDED.timeframe,
			indicators_used = EXCLUDED.indicators_used,
			entry_exit_criteria = EXCLUDED.entry_exit_criteria,
			scoring_logic = EXCLUDED.scoring_logic,
			source_location = EXCLUDED.source_location,
			last_scanned = EXCLUDED.last_scanned,
			definition_hash = EXCLUDED.definition_hash,
			updated_at = NOW()`

	_, err := r.pool.Exec(ctx, query,
		meta.ScriptID, meta.DisplayName, meta.Description, string(meta.StrategyType),
		meta.Timeframe, meta.IndicatorsUsed, meta.EntryExitCriteria, meta.ScoringLogic,
		meta.SourceLocation, meta.IsActive, meta.LastScanned, definitionHash,
	)
	return err
}

// SetActive flips the stored activation flag.
func (r *MetadataRepository) SetActive(ctx context.Context, scriptID string, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE strategy_metadata SET is_active = $2, updated_at = NOW() WHERE script_id = $1`,
		scriptID, active,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return contracts.ErrNotFound
	}
	return nil
}

// Delete removes one strategy's metadata row.
func (r *MetadataRepository) Delete(ctx context.Context, scriptID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM strategy_metadata WHERE script_id = $1`, scriptID)
	return err
}

// LoadAll returns every stored strategy row.
func (r *MetadataRepository) LoadAll(ctx context.Context) ([]contracts.StoredStrategy, error) {
	query := `
		SELECT script_id, display_name, description, strategy_type, timeframe,
		       indicators_used, entry_exit_criteria, scoring_logic, source_location,
		       is_active, COALESCE(last_scanned, 'epoch'::timestamptz), definition_hash
		FROM strategy_metadata
		ORDER BY script_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stored []contracts.StoredStrategy
	for rows.Next() {
		var s contracts.StoredStrategy
		var strategyType string
		if err := rows.Scan(
			&s.Meta.ScriptID, &s.Meta.DisplayName, &s.Meta.Description, &strategyType,
			&s.Meta.Timeframe, &s.Meta.IndicatorsUsed, &s.Meta.EntryExitCriteria,
			&s.Meta.ScoringLogic, &s.Meta.SourceLocation, &s.Meta.IsActive,
			&s.Meta.LastScanned, &s.Hash,
		); err != nil {
			return nil, err
		}
		s.Meta.StrategyType = contracts.StrategyType(strategyType)
		stored = append(stored, s)
	}
	return stored, rows.Err()
}
