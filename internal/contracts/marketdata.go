package contracts

import (
	"context"
	"time"
)

// Candle is one daily OHLCV bar.
type Candle struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is a chronologically ordered run of daily candles,
// oldest first.
type PriceSeries []Candle

// Closes extracts the close column.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// Highs extracts the high column.
func (s PriceSeries) Highs() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.High
	}
	return out
}

// Lows extracts the low column.
func (s PriceSeries) Lows() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Low
	}
	return out
}

// Volumes extracts the volume column as float64 for indicator math.
func (s PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = float64(c.Volume)
	}
	return out
}

// Last returns the most recent candle.
func (s PriceSeries) Last() (Candle, bool) {
	if len(s) == 0 {
		return Candle{}, false
	}
	return s[len(s)-1], true
}

// LastClose returns the most recent close, or 0 for an empty series.
func (s PriceSeries) LastClose() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Close
}

// ⭐ SSOT: 가격 데이터 접근은 이 인터페이스로만
// PriceProvider hands strategies their market data. Implementations
// return up to days of daily candles ending at the latest available
// session, oldest first. A short series is not an error: strategies
// decide for themselves whether the history is enough.
type PriceProvider interface {
	DailyCandles(ctx context.Context, symbol string, days int) (PriceSeries, error)
}
