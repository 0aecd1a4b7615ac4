package study

import (
	"errors"
	"time"
)

var (
	// errors
	ErrEntryNotFound = errors.New("study ledger entry not found")
	ErrEntryExists   = errors.New("a study ledger entry already exists for this member and day")
)

// Entry is a member's study ledger for one calendar day: total study time
// accumulated across videos, plus a flag recording that at least one video
// was completed that day. Created lazily on the first tick of the day;
// updated in lock-step with the watch record but an independent object.
type Entry struct {
	MemberID     string    `json:"member_id"`
	Day          time.Time `json:"day"` // UTC midnight
	StudySeconds int       `json:"study_time"`
	Completed    bool      `json:"completed"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current UTC calendar day.
func Today() time.Time { return DayOf(time.Now()) }
