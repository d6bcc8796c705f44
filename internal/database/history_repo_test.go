package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRepository_RecordAndRecent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewHistoryRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	step := 0
	repo.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	for _, q := range []string{"batman", "alien", "batman", "heat"} {
		require.NoError(t, repo.RecordSearch(ctx, q, 10))
	}

	recent, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)

	assert.Equal(t, "heat", recent[0].Query)
	assert.Equal(t, "batman", recent[1].Query)
	assert.Equal(t, 2, recent[1].Searches)
	assert.Equal(t, "alien", recent[2].Query)
	assert.True(t, recent[1].LastSearchedAt.Equal(base.Add(3*time.Minute)))
}

func TestHistoryRepository_RecentLimit(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewHistoryRepository(db)
	ctx := context.Background()

	for _, q := range []string{"a", "b", "c"} {
		require.NoError(t, repo.RecordSearch(ctx, q, 1))
	}

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	recent, err = repo.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestHistoryRepository_IgnoresBlankQuery(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewHistoryRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.RecordSearch(ctx, "   ", 0))

	recent, err := repo.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestHistoryRepository_Clear(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewHistoryRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.RecordSearch(ctx, "batman", 97))
	require.NoError(t, repo.Clear(ctx))

	recent, err := repo.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestNewDB_UnsupportedType(t *testing.T) {
	_, err := NewDB(Config{Type: "oracle"}, nil)
	assert.Error(t, err)
}
