package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skillpath/skillpath-backend/internal/logger"
	"github.com/skillpath/skillpath-backend/internal/repos"
	"github.com/skillpath/skillpath-backend/internal/types"
)

// ReplanService moves work that fell behind schedule into future free slots.
// Placements are sequential single passes with no backtracking; every placed
// task is persisted immediately, so a failure mid-sweep leaves the already
// placed tasks committed.
type ReplanService interface {
	DetectMissed(ctx context.Context, userID uuid.UUID) (*ReplanResult, error)
	ReplanMissed(ctx context.Context, userID uuid.UUID, skillID *uuid.UUID) (*ReplanResult, error)
	ReplanSkill(ctx context.Context, skillID, userID uuid.UUID) (*ReplanResult, error)
}

type replanService struct {
	db              *gorm.DB
	log             *logger.Logger
	taskRepo        repos.TaskRepo
	skillRepo       repos.SkillRepo
	topicRepo       repos.SkillTopicRepo
	scheduleService ScheduleService
}

func NewReplanService(db *gorm.DB, log *logger.Logger, taskRepo repos.TaskRepo, skillRepo repos.SkillRepo, topicRepo repos.SkillTopicRepo, scheduleService ScheduleService) ReplanService {
	return &replanService{
		db:              db,
		log:             log.With("service", "ReplanService"),
		taskRepo:        taskRepo,
		skillRepo:       skillRepo,
		topicRepo:       topicRepo,
		scheduleService: scheduleService,
	}
}

// detectMissed flags every pending task scheduled before today as missed.
// Re-running is a no-op: the status filter excludes tasks already flagged.
func (s *replanService) detectMissed(ctx context.Context, userID uuid.UUID) ([]*types.Task, error) {
	overdue, err := s.taskRepo.GetPendingBefore(ctx, nil, userID, todayUTC())
	if err != nil {
		return nil, fmt.Errorf("load overdue tasks: %w", err)
	}

	updated := make([]*types.Task, 0, len(overdue))
	for _, task := range overdue {
		task.MarkMissed()
		if err := s.taskRepo.Save(ctx, nil, task); err != nil {
			return updated, fmt.Errorf("save missed task %s: %w", task.ID, err)
		}
		updated = append(updated, task)
	}
	return updated, nil
}

func (s *replanService) DetectMissed(ctx context.Context, userID uuid.UUID) (*ReplanResult, error) {
	missed, err := s.detectMissed(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &ReplanResult{
		Success: true,
		Message: fmt.Sprintf("Marked %d tasks as missed", len(missed)),
	}
	for _, task := range missed {
		result.Tasks = append(result.Tasks, RescheduledTask{
			ID:           task.ID,
			Title:        task.Title,
			OriginalDate: task.OriginalDate,
			NewDate:      task.ScheduledDate,
		})
	}
	return result, nil
}

// ReplanMissed sweeps all missed tasks (optionally one skill's) into future
// slots in original-date order. The cursor chains placements: each task
// searches forward from the previous task's chosen day, so later tasks never
// land before earlier ones.
func (s *replanService) ReplanMissed(ctx context.Context, userID uuid.UUID, skillID *uuid.UUID) (*ReplanResult, error) {
	if _, err := s.detectMissed(ctx, userID); err != nil {
		return nil, err
	}

	missed, err := s.taskRepo.GetMissed(ctx, nil, userID, skillID)
	if err != nil {
		return nil, fmt.Errorf("load missed tasks: %w", err)
	}
	if len(missed) == 0 {
		return &ReplanResult{Success: true, Message: "No missed tasks to replan"}, nil
	}

	result := &ReplanResult{Success: true}
	cursor := timeNow()

	for _, task := range missed {
		if task.DurationMinutes < 0 {
			s.log.Warn("Skipping task with invalid duration", "task_id", task.ID, "duration", task.DurationMinutes)
			continue
		}
		duration := task.DurationMinutes
		if duration == 0 {
			duration = types.DefaultTaskMinutes
		}

		slot, overbooked, err := s.scheduleService.NextSlot(ctx, userID, duration, cursor)
		if err != nil {
			result.Message = fmt.Sprintf("Rescheduled %d tasks before failure", result.RescheduledCount)
			return result, err
		}

		task.Reschedule(slot)
		if err := s.taskRepo.Save(ctx, nil, task); err != nil {
			result.Message = fmt.Sprintf("Rescheduled %d tasks before failure", result.RescheduledCount)
			return result, fmt.Errorf("save task %s: %w", task.ID, err)
		}

		result.RescheduledCount++
		result.Tasks = append(result.Tasks, RescheduledTask{
			ID:           task.ID,
			Title:        task.Title,
			OriginalDate: task.OriginalDate,
			NewDate:      slot,
		})
		if overbooked {
			result.OverbookedDays = append(result.OverbookedDays, slot)
		}
		cursor = slot
	}

	result.Message = fmt.Sprintf("Rescheduled %d tasks", result.RescheduledCount)
	return result, nil
}

// ReplanSkill re-sequences every open task of one skill into future slots,
// preserving curriculum order, and moves the skill's end date to the last
// placed day.
func (s *replanService) ReplanSkill(ctx context.Context, skillID, userID uuid.UUID) (*ReplanResult, error) {
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
	incomplete := 0
	for _, t := range topics {
		if !t.Completed {
			incomplete++
		}
	}
	if len(topics) > 0 && incomplete == 0 {
		return &ReplanResult{Success: true, Message: "All topics are completed"}, nil
	}

	tasks, err := s.taskRepo.GetOpenBySkill(ctx, nil, skillID, userID)
	if err != nil {
		return nil, fmt.Errorf("load open tasks: %w", err)
	}

	// NextSlot searches strictly after the cursor, so starting at today
	// makes tomorrow the first candidate day.
	result := &ReplanResult{Success: true}
	cursor := todayUTC()

	for _, task := range tasks {
		if task.DurationMinutes < 0 {
			s.log.Warn("Skipping task with invalid duration", "task_id", task.ID, "duration", task.DurationMinutes)
			continue
		}
		duration := task.DurationMinutes
		if duration == 0 {
			duration = types.DefaultTaskMinutes
		}

		slot, overbooked, err := s.scheduleService.NextSlot(ctx, userID, duration, cursor)
		if err != nil {
			result.Message = fmt.Sprintf("Replanned %d tasks before failure", result.RescheduledCount)
			return result, err
		}

		task.Reschedule(slot)
		if err := s.taskRepo.Save(ctx, nil, task); err != nil {
			result.Message = fmt.Sprintf("Replanned %d tasks before failure", result.RescheduledCount)
			return result, fmt.Errorf("save task %s: %w", task.ID, err)
		}

		result.RescheduledCount++
		result.Tasks = append(result.Tasks, RescheduledTask{
			ID:           task.ID,
			Title:        task.Title,
			OriginalDate: task.OriginalDate,
			NewDate:      slot,
		})
		if overbooked {
			result.OverbookedDays = append(result.OverbookedDays, slot)
		}
		cursor = slot
	}

	if result.RescheduledCount > 0 {
		last := result.Tasks[len(result.Tasks)-1].NewDate
		skill.EndDate = &last
		if err := s.skillRepo.Save(ctx, nil, skill); err != nil {
			return result, fmt.Errorf("save skill end date: %w", err)
		}
		result.NewEndDate = skill.EndDate
	}

	result.Message = fmt.Sprintf("Replanned %d tasks", result.RescheduledCount)
	return result, nil
}
