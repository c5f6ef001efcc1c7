package repository

import (
	"context"
	"testing"
	"time"

	"github.com/AlexIndustrial/latebot/internal/domain"
	"github.com/AlexIndustrial/latebot/pkg/redis"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRepository(t *testing.T) (*miniredis.Miniredis, *RedisDayRepository) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRedisDayRepository(client)
}

func TestGetOrCreateDayCreatesEmptyAggregate(t *testing.T) {
	_, repo := setupTestRepository(t)
	ctx := context.Background()

	now := time.Date(2025, time.June, 1, 14, 30, 0, 0, time.UTC)
	day, err := repo.GetOrCreateDay(ctx, now)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), day.Date)
	assert.Empty(t, day.VotersLate)
	assert.Empty(t, day.VotersNotLate)
}

func TestGetOrCreateDayIsIdempotentWithinOneDay(t *testing.T) {
	_, repo := setupTestRepository(t)
	ctx := context.Background()

	morning := time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2025, time.June, 1, 23, 0, 0, 0, time.UTC)

	first, err := repo.GetOrCreateDay(ctx, morning)
	require.NoError(t, err)

	require.NoError(t, repo.CastVote(ctx, first.Date, 42, true))

	second, err := repo.GetOrCreateDay(ctx, evening)
	require.NoError(t, err)

	// Same key, and the earlier vote is still visible: one converged aggregate
	assert.Equal(t, first.Date, second.Date)
	assert.ElementsMatch(t, []int64{42}, second.VotersLate)
}

func TestGetDayNotFoundDiffersFromEmpty(t *testing.T) {
	_, repo := setupTestRepository(t)
	ctx := context.Background()

	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

	// Never touched: nil aggregate, no error
	day, err := repo.GetDay(ctx, now)
	require.NoError(t, err)
	assert.Nil(t, day)

	// Created but zero votes: non-nil empty aggregate
	_, err = repo.GetOrCreateDay(ctx, now)
	require.NoError(t, err)

	day, err = repo.GetDay(ctx, now)
	require.NoError(t, err)
	require.NotNil(t, day)
	assert.Empty(t, day.VotersLate)
	assert.Empty(t, day.VotersNotLate)
}

func TestCastVoteMutualExclusion(t *testing.T) {
	_, repo := setupTestRepository(t)
	ctx := context.Background()

	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	created, err := repo.GetOrCreateDay(ctx, now)
	require.NoError(t, err)

	require.NoError(t, repo.CastVote(ctx, created.Date, 1, true))
	day, err := repo.GetDay(ctx, now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1}, day.VotersLate)
	assert.Empty(t, day.VotersNotLate)

	// Switching sides removes the user from the opposite set
	require.NoError(t, repo.CastVote(ctx, created.Date, 1, false))
	day, err = repo.GetDay(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, day.VotersLate)
	assert.ElementsMatch(t, []int64{1}, day.VotersNotLate)

	// And back again
	require.NoError(t, repo.CastVote(ctx, created.Date, 1, true))
	day, err = repo.GetDay(ctx, now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1}, day.VotersLate)
	assert.Empty(t, day.VotersNotLate)
}

func TestCastVoteIsIdempotent(t *testing.T) {
	_, repo := setupTestRepository(t)
	ctx := context.Background()

	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	created, err := repo.GetOrCreateDay(ctx, now)
	require.NoError(t, err)

	require.NoError(t, repo.CastVote(ctx, created.Date, 1, true))
	require.NoError(t, repo.CastVote(ctx, created.Date, 1, true))

	day, err := repo.GetDay(ctx, now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1}, day.VotersLate)
}

func TestCastVoteMultipleUsers(t *testing.T) {
	_, repo := setupTestRepository(t)
	ctx := context.Background()

	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	created, err := repo.GetOrCreateDay(ctx, now)
	require.NoError(t, err)

	require.NoError(t, repo.CastVote(ctx, created.Date, 1, true))
	require.NoError(t, repo.CastVote(ctx, created.Date, 2, true))
	require.NoError(t, repo.CastVote(ctx, created.Date, 3, false))

	day, err := repo.GetDay(ctx, now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, day.VotersLate)
	assert.ElementsMatch(t, []int64{3}, day.VotersNotLate)
}

func TestCastVoteOnUnknownDayFails(t *testing.T) {
	_, repo := setupTestRepository(t)
	ctx := context.Background()

	err := repo.CastVote(ctx, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), 1, true)
	assert.Error(t, err)
}

func TestCountLateDays(t *testing.T) {
	_, repo := setupTestRepository(t)
	ctx := context.Background()

	day1 := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	day3 := time.Date(2025, time.June, 3, 10, 0, 0, 0, time.UTC)

	for _, d := range []time.Time{day1, day2, day3} {
		_, err := repo.GetOrCreateDay(ctx, d)
		require.NoError(t, err)
	}

	// Day 1: a late vote. Day 2: only a not-late vote. Day 3: untouched sets.
	require.NoError(t, repo.CastVote(ctx, domain.DayKey(day1), 1, true))
	require.NoError(t, repo.CastVote(ctx, domain.DayKey(day2), 1, false))

	count, err := repo.CountLateDays(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// A vote switched away from "late" no longer counts
	require.NoError(t, repo.CastVote(ctx, domain.DayKey(day1), 1, false))
	count, err = repo.CountLateDays(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStoreOutageSurfacesError(t *testing.T) {
	mr, repo := setupTestRepository(t)
	ctx := context.Background()

	mr.Close()

	_, err := repo.GetOrCreateDay(ctx, time.Now())
	assert.Error(t, err)
}
