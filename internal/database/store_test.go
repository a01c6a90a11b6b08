package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	db, err := NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { CloseDB(db) })
	return NewStore(db, nil)
}

func TestStore_SaveAndStats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now()

	reqs := []*Request{
		{UserID: 1, ChatID: 1, Kind: KindSolve, Outcome: OutcomeSuccess, Attempts: 1, DurationMS: 1000, CreatedAt: now.Add(-time.Hour)},
		{UserID: 1, ChatID: 1, Kind: KindFollowUp, Outcome: OutcomeSuccess, Attempts: 2, DurationMS: 3000, CreatedAt: now.Add(-30 * time.Minute)},
		{UserID: 2, ChatID: 2, Kind: KindSolve, Outcome: OutcomeNoExercise, Attempts: 1, DurationMS: 2000, CreatedAt: now.Add(-10 * time.Minute)},
		{UserID: 3, ChatID: 3, Kind: KindFollowUp, Outcome: OutcomeNoContext, CreatedAt: now.Add(-5 * time.Minute)},
		{UserID: 2, ChatID: 2, Kind: KindSolve, Outcome: OutcomeFailed, Attempts: 3, DurationMS: 6000, CreatedAt: now.Add(-48 * time.Hour)},
	}
	for _, r := range reqs {
		require.NoError(t, store.SaveRequest(ctx, r))
		assert.NotZero(t, r.ID)
	}

	stats, err := store.GetStats(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Succeeded)
	assert.Equal(t, 1, stats.NoExercise)
	assert.Equal(t, 1, stats.NoContext)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 2, stats.FollowUps)
	assert.Equal(t, 3, stats.UniqueUsers)
	assert.Equal(t, 2*time.Second, stats.AvgDuration)
}

func TestStore_StatsEmpty(t *testing.T) {
	t.Parallel()

	stats, err := newTestStore(t).GetStats(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.AvgDuration)
}

func TestStore_SaveRequestValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	tests := []struct {
		name string
		req  *Request
	}{
		{"nil", nil},
		{"missing user", &Request{Kind: KindSolve, Outcome: OutcomeSuccess}},
		{"unknown kind", &Request{UserID: 1, Kind: "edit", Outcome: OutcomeSuccess}},
		{"missing outcome", &Request{UserID: 1, Kind: KindSolve}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, store.SaveRequest(ctx, tt.req))
		})
	}
}

func TestStore_DeleteRequestsBefore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now()

	for _, age := range []time.Duration{72 * time.Hour, 48 * time.Hour, time.Hour} {
		require.NoError(t, store.SaveRequest(ctx, &Request{
			UserID: 1, ChatID: 1, Kind: KindSolve, Outcome: OutcomeSuccess, CreatedAt: now.Add(-age),
		}))
	}

	deleted, err := store.DeleteRequestsBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	stats, err := store.GetStats(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)

	_, err = store.DeleteRequestsBefore(ctx, time.Time{})
	assert.Error(t, err)
}

func TestStore_Maintenance(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.Ping(context.Background()))
	assert.NoError(t, store.RunSQLMaintenance(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.RunSQLMaintenance(ctx), context.Canceled)
}

func TestExtractDBNameFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"tutorbot.db", "tutorbot.db"},
		{"file:tutorbot.db?_pragma=busy_timeout(5000)", "tutorbot.db"},
		{"file:/var/lib/my%20bot.db", "/var/lib/my bot.db"},
		{":memory:", ":memory:"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExtractDBNameFromPath(tt.input))
		})
	}
}
