package repository

import (
	"context"
	"time"

	"github.com/AlexIndustrial/latebot/internal/domain"
)

// DayRepository is the narrow read/upsert surface the vote logic needs from
// a storage engine. Implementations must provide single-key atomicity for
// CastVote (add to one set, remove from the other, in one step) and a
// find-or-insert primitive so concurrent GetOrCreateDay calls converge to
// one aggregate. GetDay returns (nil, nil) when the day was never touched;
// an untouched day is distinct from a day with empty vote sets.
type DayRepository interface {
	GetOrCreateDay(ctx context.Context, now time.Time) (*domain.DayAggregate, error)
	GetDay(ctx context.Context, dayKey time.Time) (*domain.DayAggregate, error)
	CastVote(ctx context.Context, dayKey time.Time, userID int64, wantsLate bool) error
	CountLateDays(ctx context.Context) (int, error)
}
