package domain

import (
	"time"
)

// SecurityPolicy is the admission control policy, immutable for the process
// lifetime. Blacklist takes precedence over whitelist.
type SecurityPolicy struct {
	RequestLimit          int
	Window                time.Duration
	DDoSProtectionEnabled bool
	Whitelist             map[int64]struct{}
	Blacklist             map[int64]struct{}
}

// NewSecurityPolicy builds a policy from plain slices as they arrive from config
func NewSecurityPolicy(limit int, window time.Duration, enabled bool, whitelist, blacklist []int64) SecurityPolicy {
	p := SecurityPolicy{
		RequestLimit:          limit,
		Window:                window,
		DDoSProtectionEnabled: enabled,
		Whitelist:             make(map[int64]struct{}, len(whitelist)),
		Blacklist:             make(map[int64]struct{}, len(blacklist)),
	}
	for _, id := range whitelist {
		p.Whitelist[id] = struct{}{}
	}
	for _, id := range blacklist {
		p.Blacklist[id] = struct{}{}
	}
	return p
}

// IsWhitelisted reports whether the user bypasses rate counting
func (p SecurityPolicy) IsWhitelisted(userID int64) bool {
	_, ok := p.Whitelist[userID]
	return ok
}

// IsBlacklisted reports whether the user is always denied
func (p SecurityPolicy) IsBlacklisted(userID int64) bool {
	_, ok := p.Blacklist[userID]
	return ok
}

// Decision is the outcome of an admission check.
// A blacklisted user gets a Permanent denial rather than a synthetic
// retry-after, so callers never wait on it.
type Decision struct {
	Allowed    bool
	Permanent  bool
	RetryAfter time.Duration
}

// Pass is an allowing decision
func Pass() Decision {
	return Decision{Allowed: true}
}

// Block is a denying decision with a retry hint
func Block(retryAfter time.Duration) Decision {
	if retryAfter < 0 {
		retryAfter = 0
	}
	return Decision{RetryAfter: retryAfter}
}

// BlockForever is the terminal denial used for blacklisted users
func BlockForever() Decision {
	return Decision{Permanent: true}
}
