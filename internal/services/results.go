package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrSkillNotFound = errors.New("skill not found")
	ErrTaskNotFound  = errors.New("task not found")
)

// RescheduledTask is the per-item before/after summary every replanning entry
// point reports back to the caller.
type RescheduledTask struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	OriginalDate *time.Time `json:"original_date,omitempty"`
	NewDate      time.Time  `json:"new_date"`
}

// ReplanResult is the contract shape consumed by the presentation layer.
// Expected no-op conditions (nothing to replan, skill already complete) are
// successful results, not errors.
type ReplanResult struct {
	Success          bool              `json:"success"`
	Message          string            `json:"message"`
	RescheduledCount int               `json:"rescheduled_count"`
	Tasks            []RescheduledTask `json:"tasks,omitempty"`
	NewEndDate       *time.Time        `json:"new_end_date,omitempty"`
	// OverbookedDays lists fallback placements where no slot inside the
	// search horizon had room and a day was knowingly overfilled.
	OverbookedDays []time.Time `json:"overbooked_days,omitempty"`
}

type ReflowSkill struct {
	SkillID   uuid.UUID `json:"skill_id"`
	SkillName string    `json:"skill_name"`
}

type ReflowResult struct {
	Success          bool          `json:"success"`
	Message          string        `json:"message"`
	RescheduledCount int           `json:"rescheduled_count"`
	MinutesPerSkill  int           `json:"minutes_per_skill"`
	HoursPerSkill    float64       `json:"hours_per_skill"`
	Skills           []ReflowSkill `json:"skills,omitempty"`
	// DroppedMinutes accumulates split remainders below the minimum session
	// floor that were not rescheduled further.
	DroppedMinutes int `json:"dropped_minutes,omitempty"`
}

// timeNow is swapped out in tests.
var timeNow = time.Now

// dayStartUTC truncates a timestamp to midnight UTC. All day-granularity
// comparisons in the scheduling engine use this reference zone.
func dayStartUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// dayEndUTC is the inclusive end of the same calendar day.
func dayEndUTC(t time.Time) time.Time {
	return dayStartUTC(t).Add(24*time.Hour - time.Nanosecond)
}

func todayUTC() time.Time {
	return dayStartUTC(timeNow())
}
