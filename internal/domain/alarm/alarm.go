package alarm

import (
	"fmt"
	"slices"
	"sort"

	"github.com/google/uuid"
)

// Schedule identifies which named schedule is selected globally
// or which schedule an alarm belongs to.
type Schedule string

const (
	// ScheduleA is the primary schedule.
	ScheduleA Schedule = "a"
	// ScheduleB is the secondary schedule.
	ScheduleB Schedule = "b"
	// ScheduleOff disables all alarm triggers. It is a valid global
	// selector but never a valid alarm tag.
	ScheduleOff Schedule = "off"
)

// ValidGlobal reports whether s is a valid global schedule selector.
func (s Schedule) ValidGlobal() bool {
	return s == ScheduleA || s == ScheduleB || s == ScheduleOff
}

// ValidTag reports whether s is a valid schedule tag for an alarm.
func (s Schedule) ValidTag() bool {
	return s == ScheduleA || s == ScheduleB
}

// Weekday bounds, Monday-based: 0=Monday .. 6=Sunday.
const (
	minWeekday = 0
	maxWeekday = 6
)

// Alarm represents one recurring trigger definition.
type Alarm struct {
	// ID uniquely identifies the alarm within the store.
	ID string `json:"id"`
	// Hour is the local wall-clock trigger hour (0-23).
	Hour int `json:"hour"`
	// Minute is the local wall-clock trigger minute (0-59).
	Minute int `json:"minute"`
	// Days holds the weekdays the alarm fires on (0=Monday .. 6=Sunday).
	Days []int `json:"days"`
	// Schedule is the tag binding the alarm to one of the named schedules.
	Schedule Schedule `json:"schedule_tag"`
	// Active reports whether the alarm is allowed to sound.
	// Inactive alarms remain scheduled but never play.
	Active bool `json:"active"`
}

// ValidationError describes a rejected alarm field or volume value.
// It is returned before any state mutation takes place.
type ValidationError struct {
	// Field names the offending field.
	Field string
	// Reason explains why the value was rejected.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Validate checks the alarm invariants and returns a *ValidationError
// naming the first offending field, or nil when the alarm is well-formed.
func (a *Alarm) Validate() error {
	if a.Hour < 0 || a.Hour > 23 {
		return NewValidationError("hour", fmt.Sprintf("must be between 0 and 23, got %d", a.Hour))
	}

	if a.Minute < 0 || a.Minute > 59 {
		return NewValidationError("minute", fmt.Sprintf("must be between 0 and 59, got %d", a.Minute))
	}

	if len(a.Days) == 0 {
		return NewValidationError("days", "at least one day must be selected")
	}

	for _, day := range a.Days {
		if day < minWeekday || day > maxWeekday {
			return NewValidationError("days", fmt.Sprintf("day must be between 0 (Monday) and 6 (Sunday), got %d", day))
		}
	}

	if !a.Schedule.ValidTag() {
		return NewValidationError("schedule_tag", fmt.Sprintf("must be %q or %q, got %q", ScheduleA, ScheduleB, a.Schedule))
	}

	return nil
}

// Normalize sorts and deduplicates the day set and assigns a fresh ID when
// none is present. Call after Validate; it does not re-check invariants.
func (a *Alarm) Normalize() {
	sort.Ints(a.Days)
	a.Days = slices.Compact(a.Days)

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
}

// Clone returns a deep copy of the alarm.
func (a *Alarm) Clone() *Alarm {
	if a == nil {
		return nil
	}

	cloned := *a
	cloned.Days = append([]int(nil), a.Days...)

	return &cloned
}

// String returns a human-readable representation of the alarm.
func (a *Alarm) String() string {
	return fmt.Sprintf("Alarm(%s) %02d:%02d days=%v schedule=%s active=%t",
		a.ID, a.Hour, a.Minute, a.Days, a.Schedule, a.Active)
}
