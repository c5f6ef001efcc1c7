package service

import (
	"context"
	"testing"
	"time"

	"github.com/AlexIndustrial/latebot/internal/repository"
	apperrors "github.com/AlexIndustrial/latebot/pkg/errors"
	"github.com/AlexIndustrial/latebot/pkg/redis"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupVotingService(t *testing.T, notificationChatID int64) (*VotingService, *fakeSender, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	redisClient, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisClient.Close() })

	sender := &fakeSender{}
	notifier := NewMilestoneNotifier(sender, redisClient, notificationChatID, "John", "@john", zap.NewNop())
	repo := repository.NewRedisDayRepository(redisClient)

	fixedNow := func() time.Time {
		return time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	}

	return NewVotingService(repo, notifier, fixedNow, zap.NewNop()), sender, mr
}

func TestCastVoteRegistersAndSwitchesSides(t *testing.T) {
	svc, _, _ := setupVotingService(t, 0)
	ctx := context.Background()

	day, err := svc.CastVote(ctx, 1, true)
	require.NoError(t, err)
	assert.True(t, day.HasLateVote(1))
	assert.Equal(t, 1, day.LateCount())

	day, err = svc.CastVote(ctx, 1, false)
	require.NoError(t, err)
	assert.False(t, day.HasLateVote(1))
	assert.True(t, day.HasNotLateVote(1))
	assert.Equal(t, 0, day.LateCount())
	assert.Equal(t, 1, day.NotLateCount())
}

func TestCastVoteIdempotentPerSide(t *testing.T) {
	svc, _, _ := setupVotingService(t, 0)
	ctx := context.Background()

	_, err := svc.CastVote(ctx, 1, true)
	require.NoError(t, err)
	day, err := svc.CastVote(ctx, 1, true)
	require.NoError(t, err)

	assert.Equal(t, 1, day.LateCount())
	assert.Equal(t, 0, day.NotLateCount())
}

func TestFiveLateVotesTriggerOneMilestone(t *testing.T) {
	svc, sender, _ := setupVotingService(t, 777)
	ctx := context.Background()

	// Counts 1 through 4 stay silent
	for userID := int64(1); userID <= 4; userID++ {
		_, err := svc.CastVote(ctx, userID, true)
		require.NoError(t, err)
		assert.Empty(t, sender.messages(), "no announce at count %d", userID)
	}

	day, err := svc.CastVote(ctx, 5, true)
	require.NoError(t, err)
	assert.Equal(t, 5, day.LateCount())

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(777), msgs[0].ChatID)
	assert.Contains(t, msgs[0].Text, "5 people")
}

func TestRepeatLateVoteDoesNotReannounce(t *testing.T) {
	svc, sender, _ := setupVotingService(t, 777)
	ctx := context.Background()

	for userID := int64(1); userID <= 5; userID++ {
		_, err := svc.CastVote(ctx, userID, true)
		require.NoError(t, err)
	}
	require.Len(t, sender.messages(), 1)

	// User 3 re-votes "late": tally is still 5, no second broadcast
	_, err := svc.CastVote(ctx, 3, true)
	require.NoError(t, err)
	assert.Len(t, sender.messages(), 1)
}

func TestGetDayStatsNotFound(t *testing.T) {
	svc, _, _ := setupVotingService(t, 0)
	ctx := context.Background()

	_, err := svc.GetDayStats(ctx, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestGetDayStatsAfterVotes(t *testing.T) {
	svc, _, _ := setupVotingService(t, 0)
	ctx := context.Background()

	_, err := svc.CastVote(ctx, 1, true)
	require.NoError(t, err)

	day, err := svc.GetDayStats(ctx, time.Date(2025, time.June, 1, 18, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, day.LateCount())
}

func TestCountLateDays(t *testing.T) {
	svc, _, _ := setupVotingService(t, 0)
	ctx := context.Background()

	count, err := svc.CountLateDays(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = svc.CastVote(ctx, 1, true)
	require.NoError(t, err)

	count, err = svc.CountLateDays(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStoreOutageYieldsStoreError(t *testing.T) {
	svc, _, mr := setupVotingService(t, 0)
	ctx := context.Background()

	mr.Close()

	_, err := svc.CastVote(ctx, 1, true)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStore))

	_, err = svc.GetOrCreateToday(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStore))
}
