package security

import (
	"github.com/AlexIndustrial/latebot/internal/domain"
	"github.com/AlexIndustrial/latebot/pkg/logger"
	"go.uber.org/zap"
)

// RequestGate is the single choke point every inbound interactive event
// passes before any vote or stat logic runs. It holds no state of its own.
type RequestGate struct {
	limiter *RateLimiter
	log     *logger.Logger
}

// NewRequestGate creates a gate over the given rate limiter
func NewRequestGate(limiter *RateLimiter, log *logger.Logger) *RequestGate {
	return &RequestGate{limiter: limiter, log: log}
}

// AdmitEvent decides whether the event may proceed. On a denial the caller
// must answer with a throttling notice and drop the event; a denial is a
// control decision, not a failure.
func (g *RequestGate) AdmitEvent(userID int64) domain.Decision {
	d := g.limiter.Check(userID)
	if !d.Allowed && g.log != nil {
		g.log.Logger.Debug("event denied by request gate",
			zap.Int64("user_id", userID),
			zap.Bool("permanent", d.Permanent),
			zap.Duration("retry_after", d.RetryAfter))
	}
	return d
}
