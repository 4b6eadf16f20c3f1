package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skillpath/skillpath-backend/internal/logger"
	"github.com/skillpath/skillpath-backend/internal/repos"
	"github.com/skillpath/skillpath-backend/internal/types"
)

// slotSearchHorizonDays bounds the forward search for a free day. Past the
// horizon the finder falls back to the day after the cursor even though that
// day may be overbooked, so a replanning sweep can never block forever.
const slotSearchHorizonDays = 30

// ScheduleService answers capacity questions: how many free minutes a user
// has on a given day, and where the next day with room for a duration is.
// It has no side effects and always reads the current state of the store, so
// placements made earlier in the same sweep are reflected in later queries.
type ScheduleService interface {
	FreeMinutes(ctx context.Context, userID uuid.UUID, date time.Time) (int, error)
	NextSlot(ctx context.Context, userID uuid.UUID, requiredMinutes int, searchFrom time.Time) (time.Time, bool, error)
}

type scheduleService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
	taskRepo repos.TaskRepo
}

func NewScheduleService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, taskRepo repos.TaskRepo) ScheduleService {
	return &scheduleService{
		db:       db,
		log:      log.With("service", "ScheduleService"),
		userRepo: userRepo,
		taskRepo: taskRepo,
	}
}

func (s *scheduleService) FreeMinutes(ctx context.Context, userID uuid.UUID, date time.Time) (int, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return 0, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return 0, ErrUserNotFound
	}

	tasks, err := s.taskRepo.GetForDay(ctx, nil, userID, dayStartUTC(date), dayEndUTC(date))
	if err != nil {
		return 0, fmt.Errorf("load tasks for day: %w", err)
	}

	scheduled := 0
	for _, t := range tasks {
		d := t.DurationMinutes
		if d <= 0 {
			d = types.DefaultTaskMinutes
		}
		scheduled += d
	}

	free := user.DailyBudgetMinutes - scheduled
	if free < 0 {
		free = 0
	}
	return free, nil
}

// NextSlot returns the first day strictly after searchFrom with at least
// requiredMinutes free. The second return reports whether the horizon was
// exhausted and the fallback day (searchFrom + 1) was returned regardless of
// its remaining capacity.
func (s *scheduleService) NextSlot(ctx context.Context, userID uuid.UUID, requiredMinutes int, searchFrom time.Time) (time.Time, bool, error) {
	current := dayStartUTC(searchFrom).Add(24 * time.Hour)

	for i := 0; i < slotSearchHorizonDays; i++ {
		free, err := s.FreeMinutes(ctx, userID, current)
		if err != nil {
			return time.Time{}, false, err
		}
		if free >= requiredMinutes {
			return current, false, nil
		}
		current = current.Add(24 * time.Hour)
	}

	fallback := dayStartUTC(searchFrom).Add(24 * time.Hour)
	s.log.Warn("No free slot within horizon, overbooking next day",
		"user_id", userID, "required_minutes", requiredMinutes, "fallback", fallback)
	return fallback, true, nil
}
