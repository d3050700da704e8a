package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wonhee/argus/backend/internal/contracts"
	"github.com/wonhee/argus/backend/pkg/config"
	"github.com/wonhee/argus/backend/pkg/httputil"
	"github.com/wonhee/argus/backend/pkg/logger"
)

// NaverSource fetches Korean daily candles from the Naver Finance chart API.
// ⭐ SSOT: 네이버 시세 조회는 이 타입에서만
type NaverSource struct {
	httpClient *httputil.Client
	chartURL   string
	logger     *logger.Logger
}

// NewNaverSource creates a Naver chart API source. The shared HTTP client
// carries the rate limit for all outbound Naver calls.
func NewNaverSource(cfg config.NaverConfig, httpClient *httputil.Client, log *logger.Logger) *NaverSource {
	return &NaverSource{
		httpClient: httpClient,
		chartURL:   strings.TrimRight(cfg.ChartURL, "/"),
		logger:     log.WithComponent("naver"),
	}
}

// DailyCandles fetches up to days daily candles for a 6-digit KRX code,
// oldest first.
func (s *NaverSource) DailyCandles(ctx context.Context, symbol string, days int) (contracts.PriceSeries, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -calendarDays(days))

	fullURL := fmt.Sprintf(
		"%s/siseJson.naver?symbol=%s&requestType=1&startTime=%s&endTime=%s&timeframe=day",
		s.chartURL, symbol, start.Format("20060102"), end.Format("20060102"),
	)

	resp, err := s.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}

	series, err := parseSiseJSON(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse response failed: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(series),
	}).Debug("Fetched daily candles")

	return lastN(series, days), nil
}

// parseSiseJSON parses the chart API response. The payload is a JSON-ish
// array of rows using single quotes, with a header row first:
//
//	[['날짜', '시가', '고가', '저가', '종가', '거래량', '외국인소진율'],
//	 ["20240115", 72300, 73000, 72000, 72500, 1000000, 54.3], ...]
func parseSiseJSON(body string) (contracts.PriceSeries, error) {
	body = strings.TrimSpace(body)
	body = strings.ReplaceAll(body, "'", "\"")

	var rawData [][]interface{}
	if err := json.Unmarshal([]byte(body), &rawData); err != nil {
		return nil, fmt.Errorf("unexpected chart payload: %w", err)
	}

	var series contracts.PriceSeries
	for i, row := range rawData {
		if i == 0 || len(row) < 6 {
			continue // Skip header
		}

		dateStr, ok := row[0].(string)
		if !ok {
			continue
		}
		dateStr = strings.Trim(dateStr, "\"")
		tradeDate, err := time.Parse("20060102", dateStr)
		if err != nil {
			continue
		}

		series = append(series, contracts.Candle{
			Date:   tradeDate,
			Open:   toFloat64(row[1]),
			High:   toFloat64(row[2]),
			Low:    toFloat64(row[3]),
			Close:  toFloat64(row[4]),
			Volume: int64(toFloat64(row[5])),
		})
	}
	return series, nil
}

// toFloat64 converts the loosely typed chart cells to float64
func toFloat64(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f
	default:
		return 0
	}
}
