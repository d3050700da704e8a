package redis

import (
	"context"
	"testing"

	"github.com/wonhee/argus/backend/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}
}

func TestCache_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, _ := New(cfg)
	cache := NewCache(client, "test")

	// When Redis is disabled, cache operations should be no-ops
	var result string
	found, err := cache.Get(context.Background(), "key", &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}

	if err := cache.Set(context.Background(), "key", "value", TTLShort); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
}

func TestCache_GetOrSet_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, _ := New(cfg)
	cache := NewCache(client, "test")

	// Disabled cache still hands back the fetched value
	calls := 0
	var result []string
	err := cache.GetOrSet(context.Background(), "symbols", &result, TTLShort, func() (interface{}, error) {
		calls++
		return []string{"AAPL", "005930"}, nil
	})
	if err != nil {
		t.Fatalf("GetOrSet() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected fn to be called once, got %d", calls)
	}
	if len(result) != 2 || result[0] != "AAPL" {
		t.Errorf("Expected fetched value in dest, got %v", result)
	}
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{
			name:     "DailyCandlesKey",
			fn:       func() string { return DailyCandlesKey("005930", 260) },
			expected: "candles:daily:005930:260",
		},
		{
			name:     "DailyCandlesKey US symbol",
			fn:       func() string { return DailyCandlesKey("AAPL", 90) },
			expected: "candles:daily:AAPL:90",
		},
		{
			name:     "StockProfileKey",
			fn:       func() string { return StockProfileKey("068270") },
			expected: "stock:profile:068270",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
