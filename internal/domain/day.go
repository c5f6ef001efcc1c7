package domain

import (
	"time"
)

// DayAggregate is the per-calendar-day record of which users voted which way.
// A user ID appears in at most one of the two sets at any time.
type DayAggregate struct {
	Date          time.Time `json:"date"`
	VotersLate    []int64   `json:"votes_yes"`
	VotersNotLate []int64   `json:"votes_no"`
}

// DayKey truncates an instant to the start of its calendar day in UTC.
// UTC midnight is the fixed day-key policy for the whole application;
// no other truncation is used anywhere.
func DayKey(now time.Time) time.Time {
	return now.UTC().Truncate(24 * time.Hour)
}

// HasLateVote reports whether the user currently votes "late"
func (d *DayAggregate) HasLateVote(userID int64) bool {
	return containsID(d.VotersLate, userID)
}

// HasNotLateVote reports whether the user currently votes "not late"
func (d *DayAggregate) HasNotLateVote(userID int64) bool {
	return containsID(d.VotersNotLate, userID)
}

// LateCount returns the number of "late" votes
func (d *DayAggregate) LateCount() int {
	return len(d.VotersLate)
}

// NotLateCount returns the number of "not late" votes
func (d *DayAggregate) NotLateCount() int {
	return len(d.VotersNotLate)
}

// TotalVotes returns the number of users that voted either way
func (d *DayAggregate) TotalVotes() int {
	return len(d.VotersLate) + len(d.VotersNotLate)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
