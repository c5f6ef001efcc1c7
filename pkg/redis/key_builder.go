package redis

import "fmt"

// Cache key patterns
const (
	KeyDayLate    = "day:%s:late"    // set of user IDs voting "late"
	KeyDayNotLate = "day:%s:notlate" // set of user IDs voting "not late"
	KeyDayIndex   = "day:index"      // set of all day keys ever created
	KeyMilestone  = "milestone:%s:%d"
)

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" || environment == "test" {
		prefix = environment
	}

	return &KeyBuilder{prefix: prefix}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// KeyDayLateVotes returns the key of the "late" vote set for a day
func (kb *KeyBuilder) KeyDayLateVotes(day string) string {
	return kb.BuildKey(fmt.Sprintf(KeyDayLate, day))
}

// KeyDayNotLateVotes returns the key of the "not late" vote set for a day
func (kb *KeyBuilder) KeyDayNotLateVotes(day string) string {
	return kb.BuildKey(fmt.Sprintf(KeyDayNotLate, day))
}

// KeyDays returns the key of the index set of all created days
func (kb *KeyBuilder) KeyDays() string {
	return kb.BuildKey(KeyDayIndex)
}

// KeyMilestoneAnnounced returns the dedup key for one announced tally
func (kb *KeyBuilder) KeyMilestoneAnnounced(day string, count int) string {
	return kb.BuildKey(fmt.Sprintf(KeyMilestone, day, count))
}
