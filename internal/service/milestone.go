package service

import (
	"context"
	"fmt"
	"time"

	"github.com/AlexIndustrial/latebot/internal/domain"
	"github.com/AlexIndustrial/latebot/pkg/redis"
	"go.uber.org/zap"
)

// MilestoneInterval is the number of "late" votes between celebrations
const MilestoneInterval = 5

// milestoneDedupTTL keeps the announce lock past the day boundary
const milestoneDedupTTL = 48 * time.Hour

// ShouldAnnounce reports whether a tally deserves a broadcast: the target
// chat must be configured and the count a positive multiple of the interval.
// Pure function; idempotence of the actual send is the caller's concern.
func ShouldAnnounce(lateCount int, notificationTarget int64) bool {
	return notificationTarget != 0 && lateCount > 0 && lateCount%MilestoneInterval == 0
}

// MilestoneNotifier sends the celebration broadcast when a day's "late"
// tally crosses a milestone, at most once per tally.
type MilestoneNotifier struct {
	sender     Sender
	redis      *redis.Client
	chatID     int64
	targetName string
	pingUser   string
	logger     *zap.Logger
}

// NewMilestoneNotifier creates a notifier. redisClient may be nil; dedup is
// then skipped and repeated announces for one tally are possible across
// restarts.
func NewMilestoneNotifier(sender Sender, redisClient *redis.Client, chatID int64, targetName, pingUser string, logger *zap.Logger) *MilestoneNotifier {
	return &MilestoneNotifier{
		sender:     sender,
		redis:      redisClient,
		chatID:     chatID,
		targetName: targetName,
		pingUser:   pingUser,
		logger:     logger,
	}
}

// MaybeAnnounce inspects the day's tally after a successful "late" vote and
// fires the broadcast when a milestone is reached
func (n *MilestoneNotifier) MaybeAnnounce(ctx context.Context, day *domain.DayAggregate) error {
	lateCount := day.LateCount()
	if !ShouldAnnounce(lateCount, n.chatID) {
		return nil
	}

	if n.redis != nil {
		key := n.redis.KeyBuilder.KeyMilestoneAnnounced(day.Date.Format(time.DateOnly), lateCount)
		acquired, err := n.redis.SetNX(ctx, key, "1", milestoneDedupTTL)
		if err != nil {
			n.logger.Warn("milestone dedup check failed, announcing anyway",
				zap.Error(err))
		} else if !acquired {
			n.logger.Debug("milestone already announced",
				zap.Int("late_count", lateCount))
			return nil
		}
	}

	text := fmt.Sprintf(
		"🎉 %d people reported that %s (%s) was late! 🎉🎉🎉🎉🎉 Let's congratulate them! 🎉🎉🎉🎉🎉",
		lateCount, n.targetName, n.pingUser,
	)

	if err := n.sender.SendMessage(ctx, n.chatID, text, nil); err != nil {
		return fmt.Errorf("failed to send milestone broadcast: %w", err)
	}

	n.logger.Info("milestone announced",
		zap.Int("late_count", lateCount),
		zap.Int64("chat_id", n.chatID))
	return nil
}
