package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	TaskStatusPending     = "pending"
	TaskStatusInProgress  = "in_progress"
	TaskStatusCompleted   = "completed"
	TaskStatusMissed      = "missed"
	TaskStatusRescheduled = "rescheduled"
)

const (
	TaskKindLearning = "learning"
	TaskKindWorkout  = "workout"
	TaskKindCustom   = "custom"
)

// MinTaskMinutes is the smallest admissible task duration. Split remainders
// below this floor are not scheduled as standalone tasks.
const MinTaskMinutes = 15

const (
	DefaultTaskMinutes    = 60
	DefaultTaskImportance = 3
)

type TaskResource struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Kind      string `json:"kind"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

type Task struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User             *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	SkillID          *uuid.UUID     `gorm:"type:uuid;index" json:"skill_id,omitempty"`
	Skill            *Skill         `gorm:"constraint:OnDelete:CASCADE;foreignKey:SkillID;references:ID" json:"skill,omitempty"`
	Title            string         `gorm:"not null;column:title" json:"title"`
	Description      string         `gorm:"column:description" json:"description"`
	Kind             string         `gorm:"column:kind;not null;default:'learning';index" json:"kind"`
	ScheduledDate    time.Time      `gorm:"column:scheduled_date;not null;index" json:"scheduled_date"`
	StartTime        string         `gorm:"column:start_time" json:"start_time,omitempty"`
	EndTime          string         `gorm:"column:end_time" json:"end_time,omitempty"`
	DurationMinutes  int            `gorm:"column:duration_minutes;not null;default:60" json:"duration_minutes"`
	Importance       int            `gorm:"column:importance;not null;default:3" json:"importance"`
	Splittable       bool           `gorm:"column:splittable;not null;default:true" json:"splittable"`
	Status           string         `gorm:"column:status;not null;default:'pending';index" json:"status"`
	Notes            string         `gorm:"column:notes" json:"notes,omitempty"`
	CompletedAt      *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	OriginalDate     *time.Time     `gorm:"column:original_date" json:"original_date,omitempty"`
	RescheduledCount int            `gorm:"column:rescheduled_count;not null;default:0" json:"rescheduled_count"`
	DayNumber        int            `gorm:"column:day_number" json:"day_number"`
	TopicIndex       int            `gorm:"column:topic_index;default:-1" json:"topic_index"`
	Resources        datatypes.JSON `gorm:"type:jsonb;column:resources" json:"resources"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Task) TableName() string { return "task" }

// stampOriginalDate records the first deviation from the initial plan. Once
// set it is never overwritten.
func (t *Task) stampOriginalDate() {
	if t.OriginalDate == nil {
		d := t.ScheduledDate
		t.OriginalDate = &d
	}
}

// MarkMissed flags a task whose scheduled date passed while still pending.
func (t *Task) MarkMissed() {
	t.stampOriginalDate()
	t.Status = TaskStatusMissed
}

// MarkCompleted finishes the task at the given time.
func (t *Task) MarkCompleted(now time.Time) {
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
}

// Reschedule moves the task to a new date and counts one deviation event.
func (t *Task) Reschedule(newDate time.Time) {
	t.stampOriginalDate()
	t.ScheduledDate = newDate
	t.Status = TaskStatusRescheduled
	t.RescheduledCount++
}

// Replace reassigns date and duration in one deviation event. It reports
// whether anything actually changed; a no-op placement leaves status,
// original date and the reschedule counter untouched.
func (t *Task) Replace(newDate time.Time, newDuration int) bool {
	dateChanged := !t.ScheduledDate.Equal(newDate)
	durationChanged := t.DurationMinutes != newDuration
	if !dateChanged && !durationChanged {
		return false
	}
	t.stampOriginalDate()
	t.ScheduledDate = newDate
	t.DurationMinutes = newDuration
	t.Status = TaskStatusRescheduled
	t.RescheduledCount++
	return true
}
