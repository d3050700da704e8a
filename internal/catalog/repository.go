// Package catalog owns the stock and watchlist tables plus profile
// enrichment from the market data vendors.
package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonhee/argus/backend/internal/contracts"
)

const catalogSchema = `
CREATE TABLE IF NOT EXISTS stocks (
    id        BIGSERIAL PRIMARY KEY,
    symbol    TEXT NOT NULL UNIQUE,
    name      TEXT NOT NULL DEFAULT '',
    exchange  TEXT NOT NULL DEFAULT '',
    sector    TEXT NOT NULL DEFAULT '',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    added_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS watchlists (
    id          BIGSERIAL PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS watchlist_stocks (
    watchlist_id BIGINT NOT NULL REFERENCES watchlists(id) ON DELETE CASCADE,
    stock_id     BIGINT NOT NULL REFERENCES stocks(id) ON DELETE CASCADE,
    added_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (watchlist_id, stock_id)
);
`

// Repository implements contracts.CatalogStore on Postgres
// ⭐ SSOT: 종목/관심목록 저장소는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new catalog repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InitSchema ensures the catalog tables exist.
func (r *Repository) InitSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, catalogSchema)
	return err
}

// StocksBySymbol maps known symbols to their IDs. Unknown symbols are
// simply absent from the result.
func (r *Repository) StocksBySymbol(ctx context.Context, symbols []string) (map[string]int64, error) {
	if len(symbols) == 0 {
		return map[string]int64{}, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT symbol, id FROM stocks WHERE symbol = ANY($1)`, symbols)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]int64, len(symbols))
	for rows.Next() {
		var symbol string
		var id int64
		if err := rows.Scan(&symbol, &id); err != nil {
			return nil, err
		}
		ids[symbol] = id
	}
	return ids, rows.Err()
}

// EnsureStocksExist inserts minimal rows for symbols the catalog has not
// seen before. Existing rows are left alone.
func (r *Repository) EnsureStocksExist(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `INSERT INTO stocks (symbol) VALUES ($1) ON CONFLICT (symbol) DO NOTHING`
	for _, symbol := range symbols {
		batch.Queue(query, symbol)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range symbols {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// CreateWatchlist creates a watchlist holding the given stocks and
// returns its ID.
func (r *Repository) CreateWatchlist(ctx context.Context, name, description string, stockIDs []int64) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO watchlists (name, description) VALUES ($1, $2) RETURNING id`,
		name, description,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert watchlist: %w", err)
	}

	for _, stockID := range stockIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO watchlist_stocks (watchlist_id, stock_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			id, stockID,
		)
		if err != nil {
			return 0, fmt.Errorf("insert watchlist member: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return id, nil
}

// Watchlists lists every watchlist with its member count, newest first.
func (r *Repository) Watchlists(ctx context.Context) ([]contracts.Watchlist, error) {
	query := `
		SELECT w.id, w.name, w.description, COUNT(ws.stock_id), w.created_at, w.updated_at
		FROM watchlists w
		LEFT JOIN watchlist_stocks ws ON ws.watchlist_id = w.id
		GROUP BY w.id
		ORDER BY w.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lists []contracts.Watchlist
	for rows.Next() {
		var w contracts.Watchlist
		if err := rows.Scan(&w.ID, &w.Name, &w.Description, &w.StockCount, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		lists = append(lists, w)
	}
	return lists, rows.Err()
}

// WatchlistWithSymbols loads one watchlist and its member symbols.
func (r *Repository) WatchlistWithSymbols(ctx context.Context, id int64) (*contracts.Watchlist, []string, error) {
	var w contracts.Watchlist
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at FROM watchlists WHERE id = $1`, id,
	).Scan(&w.ID, &w.Name, &w.Description, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, fmt.Errorf("watchlist %d: %w", id, contracts.ErrNotFound)
		}
		return nil, nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT s.symbol
		FROM watchlist_stocks ws
		JOIN stocks s ON s.id = ws.stock_id
		WHERE ws.watchlist_id = $1
		ORDER BY s.symbol`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, nil, err
		}
		symbols = append(symbols, symbol)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	w.StockCount = len(symbols)
	return &w, symbols, nil
}

// ActiveSymbols lists every active stock symbol in the catalog.
func (r *Repository) ActiveSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT symbol FROM stocks WHERE is_active ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, err
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

// PendingProfiles returns active stocks still missing profile fields.
func (r *Repository) PendingProfiles(ctx context.Context, limit int) ([]contracts.Stock, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, symbol, name, exchange, sector, is_active, added_at
		FROM stocks
		WHERE is_active AND (name = '' OR exchange = '')
		ORDER BY id
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stocks []contracts.Stock
	for rows.Next() {
		var s contracts.Stock
		if err := rows.Scan(&s.ID, &s.Symbol, &s.Name, &s.Exchange, &s.Sector, &s.IsActive, &s.AddedAt); err != nil {
			return nil, err
		}
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}

// UpdateProfile fills profile fields for a symbol. Empty values keep
// whatever the row already has.
func (r *Repository) UpdateProfile(ctx context.Context, symbol, name, exchange, sector string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE stocks SET
			name     = CASE WHEN $2 <> '' THEN $2 ELSE name END,
			exchange = CASE WHEN $3 <> '' THEN $3 ELSE exchange END,
			sector   = CASE WHEN $4 <> '' THEN $4 ELSE sector END
		WHERE symbol = $1`,
		symbol, name, exchange, sector,
	)
	return err
}
