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

type CreateSkillInput struct {
	Name        string
	Description string
	TargetDays  int
	Priority    int
	StartDate   *time.Time
}

type UpdateSkillInput struct {
	Name        *string
	Description *string
	TargetDays  *int
	Priority    *int
	Status      *string
}

type SkillService interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateSkillInput) (*types.Skill, error)
	List(ctx context.Context, userID uuid.UUID) ([]*types.Skill, error)
	Get(ctx context.Context, id, userID uuid.UUID) (*types.Skill, []*types.SkillTopic, error)
	Update(ctx context.Context, id, userID uuid.UUID, input UpdateSkillInput) (*types.Skill, error)
	Delete(ctx context.Context, id, userID uuid.UUID) (*ReflowResult, error)
	RecalculateProgress(ctx context.Context, id, userID uuid.UUID) (*types.Skill, error)
	CompleteTopic(ctx context.Context, skillID, userID uuid.UUID, topicIndex int) (*types.Skill, error)
}

type skillService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	skillRepo     repos.SkillRepo
	topicRepo     repos.SkillTopicRepo
	taskRepo      repos.TaskRepo
	reflowService ReflowService
}

func NewSkillService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, skillRepo repos.SkillRepo, topicRepo repos.SkillTopicRepo, taskRepo repos.TaskRepo, reflowService ReflowService) SkillService {
	return &skillService{
		db:            db,
		log:           log.With("service", "SkillService"),
		userRepo:      userRepo,
		skillRepo:     skillRepo,
		topicRepo:     topicRepo,
		taskRepo:      taskRepo,
		reflowService: reflowService,
	}
}

func (s *skillService) Create(ctx context.Context, userID uuid.UUID, input CreateSkillInput) (*types.Skill, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("skill name is required")
	}
	if input.TargetDays < 1 || input.TargetDays > 365 {
		return nil, fmt.Errorf("target days must be between 1 and 365")
	}

	start := todayUTC()
	if input.StartDate != nil {
		start = dayStartUTC(*input.StartDate)
	}
	priority := input.Priority
	if priority < 1 || priority > 5 {
		priority = 1
	}
	end := start.Add(time.Duration(input.TargetDays) * 24 * time.Hour)

	skill := &types.Skill{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        input.Name,
		Description: input.Description,
		TargetDays:  input.TargetDays,
		StartDate:   start,
		EndDate:     &end,
		Status:      types.SkillStatusNotStarted,
		Priority:    priority,
	}
	if _, err := s.skillRepo.Create(ctx, nil, []*types.Skill{skill}); err != nil {
		return nil, fmt.Errorf("create skill: %w", err)
	}
	return skill, nil
}

func (s *skillService) List(ctx context.Context, userID uuid.UUID) ([]*types.Skill, error) {
	return s.skillRepo.GetByUserID(ctx, nil, userID)
}

func (s *skillService) Get(ctx context.Context, id, userID uuid.UUID) (*types.Skill, []*types.SkillTopic, error) {
	skill, err := s.skillRepo.GetByID(ctx, nil, id, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load skill: %w", err)
	}
	if skill == nil {
		return nil, nil, ErrSkillNotFound
	}
	topics, err := s.topicRepo.GetBySkillID(ctx, nil, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load topics: %w", err)
	}
	return skill, topics, nil
}

func (s *skillService) Update(ctx context.Context, id, userID uuid.UUID, input UpdateSkillInput) (*types.Skill, error) {
	skill, err := s.skillRepo.GetByID(ctx, nil, id, userID)
	if err != nil {
		return nil, fmt.Errorf("load skill: %w", err)
	}
	if skill == nil {
		return nil, ErrSkillNotFound
	}

	if input.Name != nil {
		skill.Name = *input.Name
	}
	if input.Description != nil {
		skill.Description = *input.Description
	}
	if input.TargetDays != nil {
		if *input.TargetDays < 1 || *input.TargetDays > 365 {
			return nil, fmt.Errorf("target days must be between 1 and 365")
		}
		skill.TargetDays = *input.TargetDays
		end := dayStartUTC(skill.StartDate).Add(time.Duration(skill.TargetDays) * 24 * time.Hour)
		skill.EndDate = &end
	}
	if input.Priority != nil {
		skill.Priority = *input.Priority
	}
	if input.Status != nil {
		switch *input.Status {
		case types.SkillStatusNotStarted, types.SkillStatusInProgress, types.SkillStatusCompleted, types.SkillStatusPaused:
			skill.Status = *input.Status
		default:
			return nil, fmt.Errorf("invalid skill status %q", *input.Status)
		}
	}

	if err := s.skillRepo.Save(ctx, nil, skill); err != nil {
		return nil, fmt.Errorf("save skill: %w", err)
	}
	return skill, nil
}

// Delete removes the skill together with its curriculum and tasks, then
// reflows the remaining skills into the freed budget. Cascading ownership is
// performed explicitly rather than left to the database.
func (s *skillService) Delete(ctx context.Context, id, userID uuid.UUID) (*ReflowResult, error) {
	skill, err := s.skillRepo.GetByID(ctx, nil, id, userID)
	if err != nil {
		return nil, fmt.Errorf("load skill: %w", err)
	}
	if skill == nil {
		return nil, ErrSkillNotFound
	}

	if _, err := s.taskRepo.DeleteBySkillID(ctx, nil, id); err != nil {
		return nil, fmt.Errorf("delete tasks: %w", err)
	}
	if err := s.topicRepo.DeleteBySkillID(ctx, nil, id); err != nil {
		return nil, fmt.Errorf("delete topics: %w", err)
	}
	if err := s.skillRepo.DeleteByID(ctx, nil, id); err != nil {
		return nil, fmt.Errorf("delete skill: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return s.reflowService.Reflow(ctx, userID, user.DailyBudgetMinutes)
}

func (s *skillService) RecalculateProgress(ctx context.Context, id, userID uuid.UUID) (*types.Skill, error) {
	skill, err := s.skillRepo.GetByID(ctx, nil, id, userID)
	if err != nil {
		return nil, fmt.Errorf("load skill: %w", err)
	}
	if skill == nil {
		return nil, ErrSkillNotFound
	}
	topics, err := s.topicRepo.GetBySkillID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}

	applyProgress(skill, types.SkillProgress(topics))
	if err := s.skillRepo.Save(ctx, nil, skill); err != nil {
		return nil, fmt.Errorf("save skill: %w", err)
	}
	return skill, nil
}

// CompleteTopic marks one curriculum entry done and rolls the result up into
// the skill's progress and status.
func (s *skillService) CompleteTopic(ctx context.Context, skillID, userID uuid.UUID, topicIndex int) (*types.Skill, error) {
	skill, err := s.skillRepo.GetByID(ctx, nil, skillID, userID)
	if err != nil {
		return nil, fmt.Errorf("load skill: %w", err)
	}
	if skill == nil {
		return nil, ErrSkillNotFound
	}
	topics, err := s.topicRepo.GetBySkillID(ctx, nil, skillID)
	if err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}
	if topicIndex < 0 || topicIndex >= len(topics) {
		return skill, nil
	}

	topic := topics[topicIndex]
	if !topic.Completed {
		topic.Completed = true
		if err := s.topicRepo.Save(ctx, nil, topic); err != nil {
			return nil, fmt.Errorf("save topic: %w", err)
		}
	}

	applyProgress(skill, types.SkillProgress(topics))
	if err := s.skillRepo.Save(ctx, nil, skill); err != nil {
		return nil, fmt.Errorf("save skill: %w", err)
	}
	return skill, nil
}

// applyProgress sets the denormalized progress and the status derived from
// it: completed at 100, in progress above 0.
func applyProgress(skill *types.Skill, progress int) {
	skill.Progress = progress
	switch {
	case progress == 100:
		skill.Status = types.SkillStatusCompleted
	case progress > 0:
		skill.Status = types.SkillStatusInProgress
	}
}
