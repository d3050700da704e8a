package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/wonhee/argus/backend/internal/contracts"
	"github.com/wonhee/argus/backend/pkg/config"
	"github.com/wonhee/argus/backend/pkg/logger"
)

// AlpacaSource fetches US daily candles from the Alpaca market data API.
// ⭐ SSOT: Alpaca 시세 조회는 이 타입에서만
type AlpacaSource struct {
	client *marketdata.Client
	feed   marketdata.Feed
	logger *logger.Logger
}

// NewAlpacaSource creates an Alpaca data source from config.
func NewAlpacaSource(cfg config.AlpacaConfig, log *logger.Logger) *AlpacaSource {
	opts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.DataURL != "" {
		opts.BaseURL = cfg.DataURL
	}

	return &AlpacaSource{
		client: marketdata.NewClient(opts),
		feed:   marketdata.Feed(cfg.Feed),
		logger: log.WithComponent("alpaca"),
	}
}

// DailyCandles fetches up to days daily candles for a US ticker, oldest
// first. The SDK client manages its own HTTP timeouts, so ctx is only
// consulted between calls.
func (s *AlpacaSource) DailyCandles(ctx context.Context, symbol string, days int) (contracts.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	end := time.Now()
	start := end.AddDate(0, 0, -calendarDays(days))

	bars, err := s.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
		Feed:      s.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	series := make(contracts.PriceSeries, 0, len(bars))
	for _, b := range bars {
		series = append(series, contracts.Candle{
			Date:   b.Timestamp,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: int64(b.Volume),
		})
	}

	s.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(series),
	}).Debug("Fetched daily candles")

	return lastN(series, days), nil
}
