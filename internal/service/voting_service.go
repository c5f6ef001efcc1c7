package service

import (
	"context"
	"time"

	"github.com/AlexIndustrial/latebot/internal/domain"
	"github.com/AlexIndustrial/latebot/internal/repository"
	apperrors "github.com/AlexIndustrial/latebot/pkg/errors"
	"go.uber.org/zap"
)

// VotingService owns the daily-vote flow: get-or-create the day aggregate,
// cast votes, read stats. Store failures are translated into the AppError
// taxonomy here; handlers only map them to user-facing messages.
type VotingService struct {
	dayRepo  repository.DayRepository
	notifier *MilestoneNotifier
	now      func() time.Time
	logger   *zap.Logger
}

// NewVotingService creates a voting service. notifier may be nil when no
// notification chat is configured. now is injectable for tests; pass nil
// for the wall clock.
func NewVotingService(dayRepo repository.DayRepository, notifier *MilestoneNotifier, now func() time.Time, logger *zap.Logger) *VotingService {
	if now == nil {
		now = time.Now
	}
	return &VotingService{
		dayRepo:  dayRepo,
		notifier: notifier,
		now:      now,
		logger:   logger,
	}
}

// GetOrCreateToday returns today's aggregate, creating it on first access
func (s *VotingService) GetOrCreateToday(ctx context.Context) (*domain.DayAggregate, error) {
	day, err := s.dayRepo.GetOrCreateDay(ctx, s.now())
	if err != nil {
		s.logger.Error("failed to get or create today", zap.Error(err))
		return nil, apperrors.NewStoreError("vote storage is unavailable", err)
	}
	return day, nil
}

// CastVote records the user's vote for today and returns the updated
// aggregate. Milestones are checked only after a successful "late" vote.
func (s *VotingService) CastVote(ctx context.Context, userID int64, wantsLate bool) (*domain.DayAggregate, error) {
	today, err := s.GetOrCreateToday(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.dayRepo.CastVote(ctx, today.Date, userID, wantsLate); err != nil {
		s.logger.Error("failed to cast vote",
			zap.Int64("user_id", userID),
			zap.Bool("wants_late", wantsLate),
			zap.Error(err))
		return nil, apperrors.NewStoreError("vote storage is unavailable", err)
	}

	day, err := s.dayRepo.GetDay(ctx, today.Date)
	if err != nil || day == nil {
		s.logger.Error("failed to re-read day after vote", zap.Error(err))
		return nil, apperrors.NewStoreError("vote storage is unavailable", err)
	}

	s.logger.Info("vote registered",
		zap.Int64("user_id", userID),
		zap.Bool("wants_late", wantsLate),
		zap.Int("late_count", day.LateCount()),
		zap.Int("not_late_count", day.NotLateCount()))

	if wantsLate && s.notifier != nil {
		if err := s.notifier.MaybeAnnounce(ctx, day); err != nil {
			// A failed broadcast never fails the vote
			s.logger.Warn("milestone announce failed", zap.Error(err))
		}
	}

	return day, nil
}

// GetDayStats returns the aggregate for one calendar day. A day that was
// never touched yields a NotFound error, distinct from a zero-vote day.
func (s *VotingService) GetDayStats(ctx context.Context, dayKey time.Time) (*domain.DayAggregate, error) {
	day, err := s.dayRepo.GetDay(ctx, dayKey)
	if err != nil {
		s.logger.Error("failed to get day stats", zap.Error(err))
		return nil, apperrors.NewStoreError("vote storage is unavailable", err)
	}
	if day == nil {
		return nil, apperrors.NewNotFoundError("no data for that date")
	}
	return day, nil
}

// CountLateDays returns how many days have at least one "late" vote
func (s *VotingService) CountLateDays(ctx context.Context) (int, error) {
	count, err := s.dayRepo.CountLateDays(ctx)
	if err != nil {
		s.logger.Error("failed to count late days", zap.Error(err))
		return 0, apperrors.NewStoreError("vote storage is unavailable", err)
	}
	return count, nil
}
