package marketdata

import (
	"testing"
	"time"
)

func TestParseSiseJSON(t *testing.T) {
	// Trimmed capture of the chart API shape: single quotes, header row,
	// trailing foreign-ownership column.
	fixture := `[['날짜', '시가', '고가', '저가', '종가', '거래량', '외국인소진율'],
["20240115", 72300, 73000, 72000, 72500, 11641605, 54.33],
["20240116", 72500, 73500, 72300, 73000, 12722416, 54.39],
["20240117", 73100, 73300, 72400, 72600, 10759399, 54.41]]`

	series, err := parseSiseJSON(fixture)
	if err != nil {
		t.Fatalf("parseSiseJSON() error = %v", err)
	}
	if len(series) != 3 {
		t.Fatalf("parseSiseJSON() got %d candles, want 3", len(series))
	}

	first := series[0]
	wantDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !first.Date.Equal(wantDate) {
		t.Errorf("Date = %v, want %v", first.Date, wantDate)
	}
	if first.Open != 72300 || first.High != 73000 || first.Low != 72000 || first.Close != 72500 {
		t.Errorf("OHLC = %v/%v/%v/%v, want 72300/73000/72000/72500",
			first.Open, first.High, first.Low, first.Close)
	}
	if first.Volume != 11641605 {
		t.Errorf("Volume = %d, want 11641605", first.Volume)
	}

	// Chronological, oldest first
	for i := 1; i < len(series); i++ {
		if !series[i].Date.After(series[i-1].Date) {
			t.Errorf("series not chronological at %d: %v then %v", i, series[i-1].Date, series[i].Date)
		}
	}
}

func TestParseSiseJSON_Edges(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{
			name: "header only",
			body: `[['날짜', '시가', '고가', '저가', '종가', '거래량', '외국인소진율']]`,
			want: 0,
		},
		{
			name: "short rows skipped",
			body: `[['날짜', '시가'], ["20240115", 72300], ["20240116", 72500, 73500, 72300, 73000, 1000]]`,
			want: 1,
		},
		{
			name: "bad date skipped",
			body: `[['h','h','h','h','h','h'], ["2024-01", 1, 2, 3, 4, 5], ["20240116", 1, 2, 3, 4, 5]]`,
			want: 1,
		},
		{
			name:    "not an array",
			body:    `{'error': 'nope'}`,
			wantErr: true,
		},
		{
			name:    "empty body",
			body:    ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSiseJSON(tt.body)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSiseJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("parseSiseJSON() got %d candles, want %d", len(got), tt.want)
			}
		})
	}
}

func TestToFloat64(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  float64
	}{
		{"float64", 123.45, 123.45},
		{"int64", int64(123), 123},
		{"int", int(123), 123},
		{"string", "123.5", 123.5},
		{"padded string", " 72500 ", 72500},
		{"invalid string", "abc", 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toFloat64(tt.input); got != tt.want {
				t.Errorf("toFloat64() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalendarDays(t *testing.T) {
	// The calendar window must over-cover the session count.
	for _, sessions := range []int{1, 20, 120, 260} {
		if got := calendarDays(sessions); got <= sessions {
			t.Errorf("calendarDays(%d) = %d, want more than the session count", sessions, got)
		}
	}
}
