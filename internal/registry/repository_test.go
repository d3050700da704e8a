package registry

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonhee/argus/backend/internal/contracts"
)

var _ contracts.StrategyMetadataStore = (*MetadataRepository)(nil)

func metadataTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err, "database connection failed")
	t.Cleanup(pool.Close)
	return pool
}

func TestMetadataRepository_Lifecycle(t *testing.T) {
	pool := metadataTestPool(t)
	repo := NewMetadataRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.InitSchema(ctx))

	scriptID := fmt.Sprintf("test_meta_%d", time.Now().UnixNano()%1000000)
	t.Cleanup(func() {
		_ = repo.Delete(context.Background(), scriptID)
	})

	meta := contracts.StrategyMeta{
		ScriptID:       scriptID,
		DisplayName:    "Metadata Lifecycle",
		Description:    "round trip fixture",
		StrategyType:   contracts.StrategyTypeRuleBased,
		Timeframe:      "daily",
		IndicatorsUsed: []string{"sma", "rsi"},
		IsActive:       true,
		LastScanned:    time.Now().UTC().Truncate(time.Millisecond),
	}

	require.NoError(t, repo.UpsertMeta(ctx, meta, "hash-v1"))

	loadByID := func() (contracts.StoredStrategy, bool) {
		all, err := repo.LoadAll(ctx)
		require.NoError(t, err)
		for _, s := range all {
			if s.Meta.ScriptID == scriptID {
				return s, true
			}
		}
		return contracts.StoredStrategy{}, false
	}

	stored, ok := loadByID()
	require.True(t, ok)
	assert.Equal(t, "Metadata Lifecycle", stored.Meta.DisplayName)
	assert.Equal(t, contracts.StrategyTypeRuleBased, stored.Meta.StrategyType)
	assert.Equal(t, []string{"sma", "rsi"}, stored.Meta.IndicatorsUsed)
	assert.Equal(t, "hash-v1", stored.Hash)
	assert.True(t, stored.Meta.IsActive)

	// Deactivation survives a later upsert from a re-scan.
	require.NoError(t, repo.SetActive(ctx, scriptID, false))
	meta.Description = "edited definition"
	require.NoError(t, repo.UpsertMeta(ctx, meta, "hash-v2"))

	stored, ok = loadByID()
	require.True(t, ok)
	assert.False(t, stored.Meta.IsActive, "upsert must not reactivate a deactivated strategy")
	assert.Equal(t, "edited definition", stored.Meta.Description)
	assert.Equal(t, "hash-v2", stored.Hash)

	require.ErrorIs(t, repo.SetActive(ctx, "no_such_strategy", true), contracts.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, scriptID))
	_, ok = loadByID()
	assert.False(t, ok)
}
