package marketdata

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonhee/argus/backend/internal/contracts"
)

// priceSchema keeps daily candles, one row per symbol and session.
const priceSchema = `
CREATE TABLE IF NOT EXISTS daily_prices (
    symbol      TEXT NOT NULL,
    trade_date  DATE NOT NULL,
    open_price  DOUBLE PRECISION NOT NULL,
    high_price  DOUBLE PRECISION NOT NULL,
    low_price   DOUBLE PRECISION NOT NULL,
    close_price DOUBLE PRECISION NOT NULL,
    volume      BIGINT NOT NULL,
    PRIMARY KEY (symbol, trade_date)
);

CREATE INDEX IF NOT EXISTS idx_daily_prices_date ON daily_prices(trade_date);
`

// PriceRepository implements contracts.PriceStore on Postgres
// ⭐ SSOT: 일봉 저장소는 여기서만
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository.
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// InitSchema ensures the daily_prices table exists.
func (r *PriceRepository) InitSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, priceSchema)
	return err
}

// SaveDailyCandles upserts a candle series for one symbol.
func (r *PriceRepository) SaveDailyCandles(ctx context.Context, symbol string, candles contracts.PriceSeries) error {
	if len(candles) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO daily_prices (symbol, trade_date, open_price, high_price, low_price, close_price, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume`

	for _, c := range candles {
		batch.Queue(query, symbol, c.Date, c.Open, c.High, c.Low, c.Close, c.Volume)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range candles {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}

	return nil
}

// DailyCandles returns up to days of the newest stored candles for a
// symbol, oldest first.
func (r *PriceRepository) DailyCandles(ctx context.Context, symbol string, days int) (contracts.PriceSeries, error) {
	query := `
		SELECT trade_date, open_price, high_price, low_price, close_price, volume
		FROM daily_prices
		WHERE symbol = $1
		ORDER BY trade_date DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, symbol, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series contracts.PriceSeries
	for rows.Next() {
		var c contracts.Candle
		if err := rows.Scan(&c.Date, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		series = append(series, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The query walks newest first; callers expect oldest first.
	for i, j := 0, len(series)-1; i < j; i, j = i+1, j-1 {
		series[i], series[j] = series[j], series[i]
	}
	return series, nil
}

// LatestDate returns the newest stored session for a symbol, or the zero
// time when none exist.
func (r *PriceRepository) LatestDate(ctx context.Context, symbol string) (time.Time, error) {
	query := `SELECT MAX(trade_date) FROM daily_prices WHERE symbol = $1`

	var latest *time.Time
	if err := r.pool.QueryRow(ctx, query, symbol).Scan(&latest); err != nil {
		return time.Time{}, err
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return *latest, nil
}
