package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/AlexIndustrial/latebot/internal/domain"
	"github.com/AlexIndustrial/latebot/pkg/redis"
)

// RedisDayRepository keeps each day as a pair of Redis sets plus an index
// set of created days. CastVote runs the SADD/SREM pair inside MULTI/EXEC,
// which gives the same single-key atomicity the interface requires.
type RedisDayRepository struct {
	redis *redis.Client
}

func NewRedisDayRepository(redisClient *redis.Client) *RedisDayRepository {
	return &RedisDayRepository{redis: redisClient}
}

// GetOrCreateDay returns the aggregate for now's calendar day. SADD on the
// index set is the find-or-insert primitive: racing creators all land on
// the same logical day.
func (r *RedisDayRepository) GetOrCreateDay(ctx context.Context, now time.Time) (*domain.DayAggregate, error) {
	dayKey := domain.DayKey(now)

	if _, err := r.redis.SAdd(ctx, r.redis.KeyBuilder.KeyDays(), formatDay(dayKey)); err != nil {
		return nil, fmt.Errorf("failed to upsert day: %w", err)
	}

	return r.readDay(ctx, dayKey)
}

// GetDay reads one day aggregate; (nil, nil) when the day was never created
func (r *RedisDayRepository) GetDay(ctx context.Context, dayKey time.Time) (*domain.DayAggregate, error) {
	dayKey = domain.DayKey(dayKey)

	exists, err := r.redis.SIsMember(ctx, r.redis.KeyBuilder.KeyDays(), formatDay(dayKey))
	if err != nil {
		return nil, fmt.Errorf("failed to check day existence: %w", err)
	}
	if !exists {
		return nil, nil
	}

	return r.readDay(ctx, dayKey)
}

// CastVote adds the user to the target set and removes them from the other
// in one MULTI/EXEC round trip
func (r *RedisDayRepository) CastVote(ctx context.Context, dayKey time.Time, userID int64, wantsLate bool) error {
	dayKey = domain.DayKey(dayKey)
	day := formatDay(dayKey)

	exists, err := r.redis.SIsMember(ctx, r.redis.KeyBuilder.KeyDays(), day)
	if err != nil {
		return fmt.Errorf("failed to check day existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("day %s does not exist", day)
	}

	lateKey := r.redis.KeyBuilder.KeyDayLateVotes(day)
	notLateKey := r.redis.KeyBuilder.KeyDayNotLateVotes(day)

	addKey, removeKey := lateKey, notLateKey
	if !wantsLate {
		addKey, removeKey = notLateKey, lateKey
	}

	pipe := r.redis.TxPipeline()
	pipe.SAdd(ctx, addKey, userID)
	pipe.SRem(ctx, removeKey, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cast vote for day %s: %w", day, err)
	}
	return nil
}

// CountLateDays counts days with at least one "late" vote
func (r *RedisDayRepository) CountLateDays(ctx context.Context) (int, error) {
	days, err := r.redis.SMembers(ctx, r.redis.KeyBuilder.KeyDays())
	if err != nil {
		return 0, fmt.Errorf("failed to list days: %w", err)
	}

	count := 0
	for _, day := range days {
		size, err := r.redis.SCard(ctx, r.redis.KeyBuilder.KeyDayLateVotes(day))
		if err != nil {
			return 0, fmt.Errorf("failed to count late votes for day %s: %w", day, err)
		}
		if size > 0 {
			count++
		}
	}
	return count, nil
}

func (r *RedisDayRepository) readDay(ctx context.Context, dayKey time.Time) (*domain.DayAggregate, error) {
	day := formatDay(dayKey)

	late, err := r.redis.SMembers(ctx, r.redis.KeyBuilder.KeyDayLateVotes(day))
	if err != nil {
		return nil, fmt.Errorf("failed to read late votes for day %s: %w", day, err)
	}
	notLate, err := r.redis.SMembers(ctx, r.redis.KeyBuilder.KeyDayNotLateVotes(day))
	if err != nil {
		return nil, fmt.Errorf("failed to read not-late votes for day %s: %w", day, err)
	}

	return &domain.DayAggregate{
		Date:          dayKey,
		VotersLate:    parseIDs(late),
		VotersNotLate: parseIDs(notLate),
	}, nil
}

func formatDay(dayKey time.Time) string {
	return dayKey.Format(time.DateOnly)
}

func parseIDs(raw []string) []int64 {
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
