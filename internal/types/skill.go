package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	SkillStatusNotStarted = "not_started"
	SkillStatusInProgress = "in_progress"
	SkillStatusCompleted  = "completed"
	SkillStatusPaused     = "paused"
)

type Skill struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User        *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Name        string     `gorm:"not null;column:name" json:"name"`
	Description string     `gorm:"column:description" json:"description"`
	TargetDays  int        `gorm:"column:target_days;not null" json:"target_days"`
	StartDate   time.Time  `gorm:"column:start_date;not null;default:now()" json:"start_date"`
	EndDate     *time.Time `gorm:"column:end_date" json:"end_date,omitempty"`
	Status      string     `gorm:"column:status;not null;default:'not_started';index" json:"status"`
	Priority    int        `gorm:"column:priority;not null;default:1" json:"priority"`
	Progress    int        `gorm:"column:progress;not null;default:0" json:"progress"`
	CreatedAt   time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Skill) TableName() string { return "skill" }

// SkillTopic is one curriculum entry of a skill. Topics are ordered by Day and
// drive both plan generation and progress tracking.
type SkillTopic struct {
	ID               uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SkillID          uuid.UUID `gorm:"type:uuid;not null;index" json:"skill_id"`
	Skill            *Skill    `gorm:"constraint:OnDelete:CASCADE;foreignKey:SkillID;references:ID" json:"skill,omitempty"`
	Day              int       `gorm:"column:day;not null" json:"day"`
	Title            string    `gorm:"not null;column:title" json:"title"`
	Description      string    `gorm:"column:description" json:"description"`
	EstimatedMinutes int       `gorm:"column:estimated_minutes;not null;default:60" json:"estimated_minutes"`
	Importance       int       `gorm:"column:importance;not null;default:3" json:"importance"`
	Splittable       bool      `gorm:"column:splittable;not null;default:true" json:"splittable"`
	Completed        bool      `gorm:"column:completed;not null;default:false" json:"completed"`
	CreatedAt        time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (SkillTopic) TableName() string { return "skill_topic" }

// SkillProgress is the percentage of completed topics, rounded to the nearest
// whole number.
func SkillProgress(topics []*SkillTopic) int {
	if len(topics) == 0 {
		return 0
	}
	completed := 0
	for _, t := range topics {
		if t.Completed {
			completed++
		}
	}
	return int(float64(completed)/float64(len(topics))*100 + 0.5)
}
