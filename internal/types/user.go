package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	WorkoutPreferenceMorning = "morning"
	WorkoutPreferenceEvening = "evening"
	WorkoutPreferenceNone    = "none"
)

type User struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email              string         `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password           string         `gorm:"not null;column:password" json:"-"`
	Name               string         `gorm:"not null;column:name" json:"name"`
	Onboarded          bool           `gorm:"column:onboarded;not null;default:false" json:"onboarded"`
	DailyBudgetMinutes int            `gorm:"column:daily_budget_minutes;not null;default:120" json:"daily_budget_minutes"`
	WorkoutEnabled     bool           `gorm:"column:workout_enabled;not null;default:false" json:"workout_enabled"`
	WorkoutPreference  string         `gorm:"column:workout_preference;not null;default:'none'" json:"workout_preference"`
	SleepTime          string         `gorm:"column:sleep_time;not null;default:'23:00'" json:"sleep_time"`
	WakeTime           string         `gorm:"column:wake_time;not null;default:'07:00'" json:"wake_time"`
	ExistingSkills     datatypes.JSON `gorm:"type:jsonb;column:existing_skills" json:"existing_skills"`
	CreatedAt          time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string { return "user" }
