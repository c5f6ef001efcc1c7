package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/AlexIndustrial/latebot/internal/domain"
	"github.com/AlexIndustrial/latebot/pkg/database"
	"github.com/jackc/pgx/v5"
)

// PostgresDayRepository stores one row per calendar day. CastVote relies on
// single-row UPDATE atomicity; GetOrCreateDay on ON CONFLICT DO NOTHING.
type PostgresDayRepository struct {
	db *database.PostgresDB
}

func NewPostgresDayRepository(db *database.PostgresDB) *PostgresDayRepository {
	return &PostgresDayRepository{db: db}
}

// GetOrCreateDay returns the aggregate for now's calendar day, creating an
// empty one first if needed. Concurrent creators converge to one row.
func (r *PostgresDayRepository) GetOrCreateDay(ctx context.Context, now time.Time) (*domain.DayAggregate, error) {
	dayKey := domain.DayKey(now)

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO days (date) VALUES ($1)
		ON CONFLICT (date) DO NOTHING
	`, dayKey)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert day: %w", err)
	}

	day, err := r.GetDay(ctx, dayKey)
	if err != nil {
		return nil, err
	}
	if day == nil {
		return nil, fmt.Errorf("day %s missing after upsert", dayKey.Format(time.DateOnly))
	}
	return day, nil
}

// GetDay reads one day aggregate; (nil, nil) when the day was never created
func (r *PostgresDayRepository) GetDay(ctx context.Context, dayKey time.Time) (*domain.DayAggregate, error) {
	var day domain.DayAggregate
	query := `
		SELECT date, votes_late, votes_not_late
		FROM days
		WHERE date = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, domain.DayKey(dayKey)).Scan(
		&day.Date,
		&day.VotersLate,
		&day.VotersNotLate,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get day: %w", err)
	}

	day.Date = day.Date.UTC()
	return &day, nil
}

// CastVote moves the user into the target set and out of the other one as a
// single row update. Re-voting the same side leaves the row unchanged.
func (r *PostgresDayRepository) CastVote(ctx context.Context, dayKey time.Time, userID int64, wantsLate bool) error {
	query := `
		UPDATE days
		SET votes_late = CASE WHEN $3
				THEN array_append(array_remove(votes_late, $2::bigint), $2::bigint)
				ELSE array_remove(votes_late, $2::bigint) END,
		    votes_not_late = CASE WHEN $3
				THEN array_remove(votes_not_late, $2::bigint)
				ELSE array_append(array_remove(votes_not_late, $2::bigint), $2::bigint) END
		WHERE date = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, domain.DayKey(dayKey), userID, wantsLate)
	if err != nil {
		return fmt.Errorf("failed to cast vote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("day %s does not exist", domain.DayKey(dayKey).Format(time.DateOnly))
	}
	return nil
}

// CountLateDays counts days with at least one "late" vote
func (r *PostgresDayRepository) CountLateDays(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM days WHERE cardinality(votes_late) > 0`

	if err := r.db.Pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count late days: %w", err)
	}
	return count, nil
}
