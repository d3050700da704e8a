// Package marketdata provides daily candle data behind the
// contracts.PriceProvider interface. Symbols route to Naver Finance
// (Korean listings) or Alpaca (US listings), with a Redis cache and a
// Postgres store layered in front of the remote sources.
package marketdata

import "github.com/wonhee/argus/backend/internal/contracts"

// calendarDays widens a session count to a calendar span. Weekends and
// holidays thin out trading sessions, so the request window over-covers.
func calendarDays(sessions int) int {
	return sessions*7/5 + 14
}

// lastN trims a series to its most recent n candles.
func lastN(series contracts.PriceSeries, n int) contracts.PriceSeries {
	if n <= 0 || len(series) <= n {
		return series
	}
	return series[len(series)-n:]
}
