package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueries_Generations(t *testing.T) {
	ctx := context.Background()

	t.Run("records and lists generations", func(t *testing.T) {
		store := NewTestStore(t)
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		rows := []CreateGenerationParams{
			{ID: "gen-1", BookID: "book-1", LocatorKind: "chapter", LocatorValue: "2", Mode: ModeLLM, QuestionCount: 5, DurationMs: 1200, CreatedAt: base},
			{ID: "gen-2", BookID: "book-1", LocatorKind: "progress", LocatorValue: "0", Mode: ModeMock, QuestionCount: 1,
				ErrorMessage: sql.NullString{String: "upstream failed", Valid: true}, DurationMs: 30, CreatedAt: base.Add(time.Minute)},
			{ID: "gen-3", BookID: "book-2", LocatorKind: "page", LocatorValue: "7", Mode: ModeLLM, QuestionCount: 5, DurationMs: 900, CreatedAt: base.Add(2 * time.Minute)},
		}
		for _, row := range rows {
			require.NoError(t, store.CreateGeneration(ctx, row))
		}

		count, err := store.CountGenerations(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)

		byMode, err := store.CountGenerationsByMode(ctx)
		require.NoError(t, err)
		assert.Equal(t, []CountGenerationsByModeRow{
			{Mode: ModeLLM, Count: 2},
			{Mode: ModeMock, Count: 1},
		}, byMode)

		recent, err := store.ListRecentGenerations(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "gen-3", recent[0].ID)
		assert.Equal(t, "gen-2", recent[1].ID)
		assert.Equal(t, "upstream failed", recent[1].ErrorMessage.String)
		assert.True(t, recent[1].ErrorMessage.Valid)
		assert.Equal(t, int64(1), recent[1].QuestionCount)
		assert.WithinDuration(t, base.Add(time.Minute), recent[1].CreatedAt, time.Second)
	})

	t.Run("rejects unknown mode", func(t *testing.T) {
		store := NewTestStore(t)

		err := store.CreateGeneration(ctx, CreateGenerationParams{
			ID: "gen-x", BookID: "book-1", LocatorKind: "chapter", Mode: "psychic", CreatedAt: time.Now(),
		})
		assert.Error(t, err)
	})

	t.Run("duplicate id", func(t *testing.T) {
		store := NewTestStore(t)
		params := CreateGenerationParams{ID: "gen-1", BookID: "b", LocatorKind: "progress", Mode: ModeOffline, CreatedAt: time.Now()}

		require.NoError(t, store.CreateGeneration(ctx, params))
		assert.Error(t, store.CreateGeneration(ctx, params))
	})
}
