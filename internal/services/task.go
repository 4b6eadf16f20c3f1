package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/skillpath/skillpath-backend/internal/logger"
	"github.com/skillpath/skillpath-backend/internal/repos"
	"github.com/skillpath/skillpath-backend/internal/types"
)

type CreateTaskInput struct {
	Title           string
	Description     string
	Kind            string
	ScheduledDate   time.Time
	StartTime       string
	EndTime         string
	DurationMinutes int
	Importance      int
	Splittable      *bool
	SkillID         *uuid.UUID
	DayNumber       int
	TopicIndex      int
	Resources       []types.TaskResource
}

type UpdateTaskInput struct {
	Title           *string
	Description     *string
	ScheduledDate   *time.Time
	StartTime       *string
	EndTime         *string
	DurationMinutes *int
	Status          *string
	Notes           *string
}

type TaskService interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateTaskInput) (*types.Task, error)
	BulkCreate(ctx context.Context, userID uuid.UUID, inputs []CreateTaskInput) ([]*types.Task, error)
	List(ctx context.Context, userID uuid.UUID, filter repos.TaskFilter) ([]*types.Task, error)
	GetForDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]*types.Task, error)
	Get(ctx context.Context, id, userID uuid.UUID) (*types.Task, error)
	Update(ctx context.Context, id, userID uuid.UUID, input UpdateTaskInput) (*types.Task, error)
	Complete(ctx context.Context, id, userID uuid.UUID) (*types.Task, error)
	Reschedule(ctx context.Context, id, userID uuid.UUID, newDate time.Time) (*types.Task, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
	Missed(ctx context.Context, userID uuid.UUID) ([]*types.Task, error)
}

type taskService struct {
	db           *gorm.DB
	log          *logger.Logger
	taskRepo     repos.TaskRepo
	skillRepo    repos.SkillRepo
	skillService SkillService
}

func NewTaskService(db *gorm.DB, log *logger.Logger, taskRepo repos.TaskRepo, skillRepo repos.SkillRepo, skillService SkillService) TaskService {
	return &taskService{
		db:           db,
		log:          log.With("service", "TaskService"),
		taskRepo:     taskRepo,
		skillRepo:    skillRepo,
		skillService: skillService,
	}
}

func (s *taskService) buildTask(ctx context.Context, userID uuid.UUID, input CreateTaskInput) (*types.Task, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("task title is required")
	}

	kind := input.Kind
	if kind == "" {
		kind = types.TaskKindLearning
	}
	duration := input.DurationMinutes
	if duration <= 0 {
		duration = types.DefaultTaskMinutes
	}
	if duration < types.MinTaskMinutes {
		return nil, fmt.Errorf("duration must be at least %d minutes", types.MinTaskMinutes)
	}
	importance := input.Importance
	if importance < 1 || importance > 5 {
		importance = types.DefaultTaskImportance
	}
	splittable := true
	if input.Splittable != nil {
		splittable = *input.Splittable
	}

	var skillID *uuid.UUID
	if input.SkillID != nil {
		skill, err := s.skillRepo.GetByID(ctx, nil, *input.SkillID, userID)
		if err != nil {
			return nil, fmt.Errorf("load skill: %w", err)
		}
		if skill != nil {
			skillID = input.SkillID
		}
	}

	topicIndex := input.TopicIndex
	if topicIndex == 0 && input.DayNumber == 0 {
		topicIndex = -1
	}

	task := &types.Task{
		ID:              uuid.New(),
		UserID:          userID,
		SkillID:         skillID,
		Title:           input.Title,
		Description:     input.Description,
		Kind:            kind,
		ScheduledDate:   input.ScheduledDate,
		StartTime:       input.StartTime,
		EndTime:         input.EndTime,
		DurationMinutes: duration,
		Importance:      importance,
		Splittable:      splittable,
		Status:          types.TaskStatusPending,
		DayNumber:       input.DayNumber,
		TopicIndex:      topicIndex,
	}
	if len(input.Resources) > 0 {
		raw, err := marshalResources(input.Resources)
		if err != nil {
			return nil, err
		}
		task.Resources = raw
	}
	return task, nil
}

func (s *taskService) Create(ctx context.Context, userID uuid.UUID, input CreateTaskInput) (*types.Task, error) {
	task, err := s.buildTask(ctx, userID, input)
	if err != nil {
		return nil, err
	}
	if _, err := s.taskRepo.Create(ctx, nil, []*types.Task{task}); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

func (s *taskService) BulkCreate(ctx context.Context, userID uuid.UUID, inputs []CreateTaskInput) ([]*types.Task, error) {
	tasks := make([]*types.Task, 0, len(inputs))
	for _, input := range inputs {
		task, err := s.buildTask(ctx, userID, input)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return s.taskRepo.Create(ctx, nil, tasks)
}

func (s *taskService) List(ctx context.Context, userID uuid.UUID, filter repos.TaskFilter) ([]*types.Task, error) {
	return s.taskRepo.List(ctx, nil, userID, filter)
}

func (s *taskService) GetForDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]*types.Task, error) {
	return s.taskRepo.GetForDay(ctx, nil, userID, dayStartUTC(date), dayEndUTC(date))
}

func (s *taskService) Get(ctx context.Context, id, userID uuid.UUID) (*types.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, nil, id, userID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

func (s *taskService) Update(ctx context.Context, id, userID uuid.UUID, input UpdateTaskInput) (*types.Task, error) {
	task, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.ScheduledDate != nil {
		task.ScheduledDate = *input.ScheduledDate
	}
	if input.StartTime != nil {
		task.StartTime = *input.StartTime
	}
	if input.EndTime != nil {
		task.EndTime = *input.EndTime
	}
	if input.DurationMinutes != nil {
		if *input.DurationMinutes < types.MinTaskMinutes {
			return nil, fmt.Errorf("duration must be at least %d minutes", types.MinTaskMinutes)
		}
		task.DurationMinutes = *input.DurationMinutes
	}
	if input.Status != nil {
		switch *input.Status {
		case types.TaskStatusPending, types.TaskStatusInProgress, types.TaskStatusCompleted, types.TaskStatusMissed, types.TaskStatusRescheduled:
			task.Status = *input.Status
		default:
			return nil, fmt.Errorf("invalid task status %q", *input.Status)
		}
	}
	if input.Notes != nil {
		task.Notes = *input.Notes
	}

	if err := s.taskRepo.Save(ctx, nil, task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}
	return task, nil
}

// Complete finishes the task and, when it maps to a curriculum entry, rolls
// the completion up into the owning skill's progress.
func (s *taskService) Complete(ctx context.Context, id, userID uuid.UUID) (*types.Task, error) {
	task, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	task.MarkCompleted(timeNow())
	if err := s.taskRepo.Save(ctx, nil, task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}

	if task.SkillID != nil && task.TopicIndex >= 0 {
		if _, err := s.skillService.CompleteTopic(ctx, *task.SkillID, userID, task.TopicIndex); err != nil {
			s.log.Warn("Failed to roll task completion into skill progress",
				"task_id", task.ID, "skill_id", *task.SkillID, "error", err)
		}
	}
	return task, nil
}

func (s *taskService) Reschedule(ctx context.Context, id, userID uuid.UUID, newDate time.Time) (*types.Task, error) {
	task, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	task.Reschedule(dayStartUTC(newDate))
	if err := s.taskRepo.Save(ctx, nil, task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	task, err := s.Get(ctx, id, userID)
	if err != nil {
		return err
	}
	return s.taskRepo.DeleteByID(ctx, nil, task.ID)
}

func (s *taskService) Missed(ctx context.Context, userID uuid.UUID) ([]*types.Task, error) {
	return s.taskRepo.GetMissed(ctx, nil, userID, nil)
}

func marshalResources(resources []types.TaskResource) (datatypes.JSON, error) {
	raw, err := json.Marshal(resources)
	if err != nil {
		return nil, fmt.Errorf("encode resources: %w", err)
	}
	return raw, nil
}
