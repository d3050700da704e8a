package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"github.com/wonhee/argus/backend/internal/contracts"
	"github.com/wonhee/argus/backend/internal/marketdata"
	"github.com/wonhee/argus/backend/pkg/config"
	"github.com/wonhee/argus/backend/pkg/httputil"
	"github.com/wonhee/argus/backend/pkg/logger"
)

// Enricher fills missing stock profiles from the market vendors: Alpaca
// assets for US tickers, Naver Finance company pages for Korean codes.
// ⭐ SSOT: 종목 프로필 보강은 여기서만
type Enricher struct {
	catalog    contracts.CatalogStore
	httpClient *httputil.Client
	trading    *alpaca.Client
	finURL     string
	logger     *logger.Logger
}

// NewEnricher creates an Enricher from config.
func NewEnricher(cfg *config.Config, catalog contracts.CatalogStore, httpClient *httputil.Client, log *logger.Logger) *Enricher {
	return &Enricher{
		catalog:    catalog,
		httpClient: httpClient,
		trading: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    cfg.Alpaca.APIKey,
			APISecret: cfg.Alpaca.APISecret,
		}),
		finURL: strings.TrimRight(cfg.Naver.FinURL, "/"),
		logger: log.WithComponent("enricher"),
	}
}

// EnrichPending looks up profiles for stocks still missing them and
// returns how many rows were updated. Lookup failures skip the symbol;
// the next scheduled pass retries it.
func (e *Enricher) EnrichPending(ctx context.Context, limit int) (int, error) {
	stocks, err := e.catalog.PendingProfiles(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("pending profiles: %w", err)
	}
	if len(stocks) == 0 {
		return 0, nil
	}

	e.logger.WithField("pending", len(stocks)).Info("Starting profile enrichment")

	updated := 0
	for _, stock := range stocks {
		select {
		case <-ctx.Done():
			return updated, ctx.Err()
		default:
		}

		var name, exchange, sector string
		var err error
		if code, ok := marketdata.KRCode(stock.Symbol); ok {
			name, exchange, sector, err = e.lookupKR(ctx, code)
		} else {
			name, exchange, err = e.lookupUS(stock.Symbol)
		}
		if err != nil {
			e.logger.WithError(err).WithField("symbol", stock.Symbol).Warn("Profile lookup failed")
			continue
		}
		if name == "" && exchange == "" && sector == "" {
			continue
		}

		if err := e.catalog.UpdateProfile(ctx, stock.Symbol, name, exchange, sector); err != nil {
			e.logger.WithError(err).WithField("symbol", stock.Symbol).Warn("Profile update failed")
			continue
		}
		updated++
	}

	e.logger.WithFields(map[string]interface{}{
		"pending": len(stocks),
		"updated": updated,
	}).Info("Profile enrichment completed")

	return updated, nil
}

// lookupUS resolves a US ticker through the Alpaca assets API.
func (e *Enricher) lookupUS(symbol string) (name, exchange string, err error) {
	asset, err := e.trading.GetAsset(symbol)
	if err != nil {
		return "", "", fmt.Errorf("GetAsset %s: %w", symbol, err)
	}
	return asset.Name, asset.Exchange, nil
}

// lookupKR scrapes the Naver Finance company page for a 6-digit code.
func (e *Enricher) lookupKR(ctx context.Context, code string) (name, exchange, sector string, err error) {
	fullURL := fmt.Sprintf("%s/item/main.naver?code=%s", e.finURL, code)

	resp, err := e.httpClient.Get(ctx, fullURL)
	if err != nil {
		return "", "", "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", "", fmt.Errorf("read response body failed: %w", err)
	}

	name, exchange, sector = parseCompanyPage(string(body))
	return name, exchange, sector, nil
}

// parseCompanyPage pulls name, exchange, and sector out of a Naver
// Finance company page. Missing pieces come back empty, not as errors.
func parseCompanyPage(html string) (name, exchange, sector string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", ""
	}

	name = strings.TrimSpace(doc.Find(".wrap_company h2 a").First().Text())

	// 거래소 구분은 종목명 옆 아이콘의 alt 텍스트
	alt := doc.Find(".wrap_company .description img").First().AttrOr("alt", "")
	switch {
	case strings.Contains(alt, "코스피"):
		exchange = "KOSPI"
	case strings.Contains(alt, "코스닥"):
		exchange = "KOSDAQ"
	}

	sector = strings.TrimSpace(doc.Find(".trade_compare h4 em a").First().Text())
	return name, exchange, sector
}
