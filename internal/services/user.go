package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skillpath/skillpath-backend/internal/logger"
	"github.com/skillpath/skillpath-backend/internal/repos"
	"github.com/skillpath/skillpath-backend/internal/types"
)

type UpdateProfileInput struct {
	Name               *string
	DailyBudgetMinutes *int
	WorkoutEnabled     *bool
	WorkoutPreference  *string
	SleepTime          *string
	WakeTime           *string
	ExistingSkills     []string
	Onboarded          *bool
}

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.User, error)
	// UpdateProfile applies the changes and, when the daily budget moved,
	// reflows every active skill's outstanding work into the new budget.
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*types.User, *ReflowResult, error)
}

type userService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	reflowService ReflowService
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, reflowService ReflowService) UserService {
	return &userService{
		db:            db,
		log:           log.With("service", "UserService"),
		userRepo:      userRepo,
		reflowService: reflowService,
	}
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*types.User, *ReflowResult, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	budgetChanged := false
	if input.DailyBudgetMinutes != nil {
		minutes := *input.DailyBudgetMinutes
		if minutes < 60 || minutes > 720 {
			return nil, nil, fmt.Errorf("daily budget must be between 60 and 720 minutes")
		}
		budgetChanged = minutes != user.DailyBudgetMinutes
		user.DailyBudgetMinutes = minutes
	}
	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.WorkoutEnabled != nil {
		user.WorkoutEnabled = *input.WorkoutEnabled
	}
	if input.WorkoutPreference != nil {
		switch *input.WorkoutPreference {
		case types.WorkoutPreferenceMorning, types.WorkoutPreferenceEvening, types.WorkoutPreferenceNone:
			user.WorkoutPreference = *input.WorkoutPreference
		default:
			return nil, nil, fmt.Errorf("invalid workout preference %q", *input.WorkoutPreference)
		}
	}
	if input.SleepTime != nil {
		user.SleepTime = *input.SleepTime
	}
	if input.WakeTime != nil {
		user.WakeTime = *input.WakeTime
	}
	if input.ExistingSkills != nil {
		raw, err := json.Marshal(input.ExistingSkills)
		if err != nil {
			return nil, nil, fmt.Errorf("encode existing skills: %w", err)
		}
		user.ExistingSkills = raw
	}
	if input.Onboarded != nil {
		user.Onboarded = *input.Onboarded
	}

	if err := s.userRepo.Save(ctx, nil, user); err != nil {
		return nil, nil, fmt.Errorf("save user: %w", err)
	}

	var reflow *ReflowResult
	if budgetChanged {
		reflow, err = s.reflowService.Reflow(ctx, userID, user.DailyBudgetMinutes)
		if err != nil {
			s.log.Warn("Reflow after budget change failed", "user_id", userID, "error", err)
			return user, nil, err
		}
	}
	return user, reflow, nil
}
