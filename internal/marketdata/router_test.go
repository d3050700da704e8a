package marketdata

import (
	"context"
	"testing"

	"github.com/wonhee/argus/backend/internal/contracts"
)

// recordingProvider notes the symbols it was asked for.
type recordingProvider struct {
	symbols []string
}

func (p *recordingProvider) DailyCandles(_ context.Context, symbol string, _ int) (contracts.PriceSeries, error) {
	p.symbols = append(p.symbols, symbol)
	return contracts.PriceSeries{{Close: 1}}, nil
}

func TestKRCode(t *testing.T) {
	tests := []struct {
		symbol string
		code   string
		ok     bool
	}{
		{"005930", "005930", true},
		{"005930.KS", "005930", true},
		{"035720.KQ", "035720", true},
		{"AAPL", "", false},
		{"BRK.B", "", false},
		{"12345", "", false},
		{"1234567", "", false},
		{"00593A", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			code, ok := KRCode(tt.symbol)
			if ok != tt.ok || code != tt.code {
				t.Errorf("KRCode(%q) = %q, %v; want %q, %v", tt.symbol, code, ok, tt.code, tt.ok)
			}
		})
	}
}

func TestRouter_Dispatch(t *testing.T) {
	kr := &recordingProvider{}
	us := &recordingProvider{}
	r := NewRouter(kr, us)

	ctx := context.Background()
	for _, symbol := range []string{"005930", "AAPL", "035720.KQ", "BRK.B"} {
		if _, err := r.DailyCandles(ctx, symbol, 10); err != nil {
			t.Fatalf("DailyCandles(%s) error = %v", symbol, err)
		}
	}

	// Korean codes arrive bare, US tickers arrive untouched.
	if len(kr.symbols) != 2 || kr.symbols[0] != "005930" || kr.symbols[1] != "035720" {
		t.Errorf("kr symbols = %v, want [005930 035720]", kr.symbols)
	}
	if len(us.symbols) != 2 || us.symbols[0] != "AAPL" || us.symbols[1] != "BRK.B" {
		t.Errorf("us symbols = %v, want [AAPL BRK.B]", us.symbols)
	}
}
