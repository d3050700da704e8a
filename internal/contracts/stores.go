package contracts

import (
	"context"
	"encoding/json"
	"time"
)

// ⭐ SSOT: 저장소 인터페이스 정의는 여기서만
// Implementations live in their own packages; everything above the
// storage layer depends on these interfaces only.

// RunStore persists execution runs and answers queries over them.
type RunStore interface {
	// SaveRun appends a completed run. Runs are never updated in place.
	SaveRun(ctx context.Context, run *Run) error

	// Latest returns per-symbol results from the most recent runs,
	// newest run first, narrowed by the filter.
	Latest(ctx context.Context, filter LatestFilter) ([]LatestResult, error)

	// RecentRuns lists run summaries, newest first.
	RecentRuns(ctx context.Context, limit int) ([]RunSummary, error)

	// DeleteRunsBefore removes runs started before cutoff and returns
	// how many were deleted.
	DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// LatestFilter narrows a Latest query.
type LatestFilter struct {
	StrategyID  string // 빈 값이면 전체 전략
	MatchedOnly bool
	Limit       int
}

// LatestResult is one symbol row from a Latest query. Strategies holds
// the stored per-strategy JSON object untouched, so the order written at
// save time survives the round trip.
type LatestResult struct {
	RunID        string          `json:"run_id"`
	ExecutedAt   time.Time       `json:"executed_at"`
	Symbol       string          `json:"symbol"`
	TotalMatches int             `json:"total_matches"`
	Strategies   json.RawMessage `json:"strategies"`
}

// RunSummary is the list view of a run, without per-symbol results.
type RunSummary struct {
	ID            string    `json:"run_id"`
	WatchlistName string    `json:"watchlist_name,omitempty"`
	StrategyIDs   []string  `json:"strategy_ids"`
	SymbolCount   int       `json:"symbol_count"`
	MatchedCount  int       `json:"matched_count"`
	WarningCount  int       `json:"warning_count"`
	StartedAt     time.Time `json:"started_at"`
	DurationMS    int64     `json:"duration_ms"`
}

// StrategyMetadataStore mirrors registry metadata into durable storage.
// The definition files stay authoritative for behavior; the store keeps
// activation state and scan history across restarts.
type StrategyMetadataStore interface {
	UpsertMeta(ctx context.Context, meta StrategyMeta, definitionHash string) error
	SetActive(ctx context.Context, scriptID string, active bool) error
	Delete(ctx context.Context, scriptID string) error
	LoadAll(ctx context.Context) ([]StoredStrategy, error)
}

// StoredStrategy is one persisted registry row.
type StoredStrategy struct {
	Meta StrategyMeta
	Hash string // 정의 파일 sha256
}

// PriceStore keeps daily candles in durable storage.
type PriceStore interface {
	SaveDailyCandles(ctx context.Context, symbol string, candles PriceSeries) error
	DailyCandles(ctx context.Context, symbol string, days int) (PriceSeries, error)

	// LatestDate returns the newest stored session for symbol, or the
	// zero time when none exist.
	LatestDate(ctx context.Context, symbol string) (time.Time, error)
}

// Stock is one catalog entry.
type Stock struct {
	ID       int64     `json:"id"`
	Symbol   string    `json:"symbol"`
	Name     string    `json:"name,omitempty"`
	Exchange string    `json:"exchange,omitempty"`
	Sector   string    `json:"sector,omitempty"`
	IsActive bool      `json:"is_active"`
	AddedAt  time.Time `json:"added_at"`
}

// Watchlist is a named group of stocks.
type Watchlist struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	StockCount  int       `json:"stock_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CatalogStore owns the stock and watchlist tables.
type CatalogStore interface {
	// StocksBySymbol maps known symbols to their IDs. Unknown symbols
	// are simply absent from the result.
	StocksBySymbol(ctx context.Context, symbols []string) (map[string]int64, error)

	// EnsureStocksExist inserts minimal rows for symbols the catalog
	// has not seen before. Existing rows are left alone.
	EnsureStocksExist(ctx context.Context, symbols []string) error

	// CreateWatchlist creates a watchlist holding the given stocks and
	// returns its ID.
	CreateWatchlist(ctx context.Context, name, description string, stockIDs []int64) (int64, error)

	Watchlists(ctx context.Context) ([]Watchlist, error)

	// WatchlistWithSymbols loads one watchlist and its member symbols.
	WatchlistWithSymbols(ctx context.Context, id int64) (*Watchlist, []string, error)

	// ActiveSymbols lists every active stock symbol in the catalog.
	ActiveSymbols(ctx context.Context) ([]string, error)

	// PendingProfiles returns active stocks still missing profile
	// fields, for the enrichment job to fill.
	PendingProfiles(ctx context.Context, limit int) ([]Stock, error)

	UpdateProfile(ctx context.Context, symbol, name, exchange, sector string) error
}
