package marketdata

import (
	"context"
	"strings"

	"github.com/wonhee/argus/backend/internal/contracts"
)

// Router dispatches each symbol to the data source for its market:
// 6-digit numeric codes are Korean listings served by Naver, everything
// else goes to Alpaca.
type Router struct {
	kr contracts.PriceProvider
	us contracts.PriceProvider
}

// NewRouter creates a market router over the two sources.
func NewRouter(kr, us contracts.PriceProvider) *Router {
	return &Router{kr: kr, us: us}
}

// DailyCandles routes the request to the source for the symbol's market.
func (r *Router) DailyCandles(ctx context.Context, symbol string, days int) (contracts.PriceSeries, error) {
	if code, ok := KRCode(symbol); ok {
		return r.kr.DailyCandles(ctx, code, days)
	}
	return r.us.DailyCandles(ctx, symbol, days)
}

// KRCode reports whether symbol is a Korean listing and returns the bare
// 6-digit code. Exchange-suffixed forms like 005930.KS are accepted; the
// suffix is dropped for the upstream call. Dotted US tickers like BRK.B
// fall through because the base is not numeric.
func KRCode(symbol string) (string, bool) {
	base := symbol
	if i := strings.IndexByte(symbol, '.'); i >= 0 {
		base = symbol[:i]
	}
	if len(base) != 6 {
		return "", false
	}
	for _, r := range base {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return base, true
}
