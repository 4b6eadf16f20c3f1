package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skillpath/skillpath-backend/internal/logger"
	"github.com/skillpath/skillpath-backend/internal/repos"
	"github.com/skillpath/skillpath-backend/internal/types"
)

// reflowHorizonDays bounds the day-by-day simulation. The loop always
// terminates inside the horizon even when nothing can be placed.
const reflowHorizonDays = 365

// ReflowService redistributes all outstanding learning work across every
// active skill when the daily budget or the active-skill set changes. Each
// skill receives an equal fixed share of the new budget per day, so no skill
// can starve another; within that share, globally important work is placed
// first.
type ReflowService interface {
	Reflow(ctx context.Context, userID uuid.UUID, newDailyMinutes int) (*ReflowResult, error)
}

type reflowService struct {
	db        *gorm.DB
	log       *logger.Logger
	userRepo  repos.UserRepo
	skillRepo repos.SkillRepo
	taskRepo  repos.TaskRepo
	// minSessionMinutes is the floor below which a split remainder is
	// dropped instead of carried to the next day.
	minSessionMinutes int
}

func NewReflowService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, skillRepo repos.SkillRepo, taskRepo repos.TaskRepo, minSessionMinutes int) ReflowService {
	if minSessionMinutes <= 0 {
		minSessionMinutes = types.MinTaskMinutes
	}
	return &reflowService{
		db:                db,
		log:               log.With("service", "ReflowService"),
		userRepo:          userRepo,
		skillRepo:         skillRepo,
		taskRepo:          taskRepo,
		minSessionMinutes: minSessionMinutes,
	}
}

// skillQueue is the in-memory working set for one skill during a sweep.
// Continuations synthesized by splits are inserted right after the cursor so
// they are considered next.
type skillQueue struct {
	skill *types.Skill
	tasks []*types.Task
	pos   int
}

func (q *skillQueue) exhausted() bool { return q.pos >= len(q.tasks) }

func (s *reflowService) Reflow(ctx context.Context, userID uuid.UUID, newDailyMinutes int) (*ReflowResult, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	activeSkills, err := s.skillRepo.GetActiveByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load active skills: %w", err)
	}
	if len(activeSkills) == 0 {
		return &ReflowResult{Success: true, Message: "No active skills to reschedule"}, nil
	}

	minutesPerSkill := newDailyMinutes / len(activeSkills)
	if minutesPerSkill <= 0 {
		return &ReflowResult{
			Success: true,
			Message: fmt.Sprintf("Daily budget of %d minutes is too small for %d active skills", newDailyMinutes, len(activeSkills)),
		}, nil
	}

	// Collect every open learning task across all active skills, then order
	// the global set by importance before handing each skill its queue back.
	type queuedTask struct {
		task    *types.Task
		skillID uuid.UUID
	}
	var all []queuedTask
	for _, skill := range activeSkills {
		tasks, err := s.taskRepo.GetOpenLearningBySkill(ctx, nil, skill.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("load open tasks for skill %s: %w", skill.ID, err)
		}
		for _, t := range tasks {
			all = append(all, queuedTask{task: t, skillID: skill.ID})
		}
	}
	if len(all) == 0 {
		return &ReflowResult{Success: true, Message: "No pending tasks to reschedule"}, nil
	}

	sort.SliceStable(all, func(i, j int) bool {
		ii, ij := all[i].task.Importance, all[j].task.Importance
		if ii == 0 {
			ii = types.DefaultTaskImportance
		}
		if ij == 0 {
			ij = types.DefaultTaskImportance
		}
		if ii != ij {
			return ii > ij
		}
		return all[i].task.DayNumber < all[j].task.DayNumber
	})

	queues := make(map[uuid.UUID]*skillQueue, len(activeSkills))
	for _, skill := range activeSkills {
		queues[skill.ID] = &skillQueue{skill: skill}
	}
	for _, qt := range all {
		q := queues[qt.skillID]
		q.tasks = append(q.tasks, qt.task)
	}

	result := &ReflowResult{
		Success:         true,
		MinutesPerSkill: minutesPerSkill,
		HoursPerSkill:   float64(minutesPerSkill) / 60,
	}
	for _, skill := range activeSkills {
		result.Skills = append(result.Skills, ReflowSkill{SkillID: skill.ID, SkillName: skill.Name})
	}

	day := todayUTC()
	for dayCount := 0; dayCount < reflowHorizonDays; dayCount++ {
		for _, skill := range activeSkills {
			q := queues[skill.ID]
			if err := s.consumeDay(ctx, q, day, minutesPerSkill, result); err != nil {
				result.Message = fmt.Sprintf("Rescheduled %d tasks before failure", result.RescheduledCount)
				return result, err
			}
		}

		allDone := true
		for _, q := range queues {
			if !q.exhausted() {
				allDone = false
				break
			}
		}
		if allDone {
			break
		}
		day = day.Add(24 * time.Hour)
	}

	// Denormalized end dates are recomputed from the store after the sweep.
	for _, skill := range activeSkills {
		last, err := s.taskRepo.GetLastScheduledBySkill(ctx, nil, skill.ID, userID)
		if err != nil {
			return result, fmt.Errorf("load last task for skill %s: %w", skill.ID, err)
		}
		if last != nil {
			d := last.ScheduledDate
			skill.EndDate = &d
			if err := s.skillRepo.Save(ctx, nil, skill); err != nil {
				return result, fmt.Errorf("save skill %s: %w", skill.ID, err)
			}
		}
	}

	result.Message = fmt.Sprintf("Rescheduled %d tasks across %d skills", result.RescheduledCount, len(activeSkills))
	return result, nil
}

// consumeDay lets one skill fill up to minutesPerSkill of the given day from
// its queue. The per-skill cap is independent of other skills; capacity is
// not shared across them.
func (s *reflowService) consumeDay(ctx context.Context, q *skillQueue, day time.Time, minutesPerSkill int, result *ReflowResult) error {
	used := 0
	for !q.exhausted() && used < minutesPerSkill {
		task := q.tasks[q.pos]

		if task.DurationMinutes < 0 {
			s.log.Warn("Skipping task with invalid duration", "task_id", task.ID, "duration", task.DurationMinutes)
			q.pos++
			continue
		}
		duration := task.DurationMinutes
		if duration == 0 {
			duration = types.DefaultTaskMinutes
		}
		remaining := minutesPerSkill - used

		switch {
		case duration <= remaining:
			// Fits in full.
			if task.Replace(day, duration) {
				result.RescheduledCount++
			}
			if err := s.taskRepo.Save(ctx, nil, task); err != nil {
				return fmt.Errorf("save task %s: %w", task.ID, err)
			}
			used += duration
			q.pos++

		case task.Splittable && remaining >= s.minSessionMinutes:
			// Place a portion today; the rest becomes a continuation
			// considered next, starting tomorrow.
			task.Replace(day, remaining)
			result.RescheduledCount++
			if err := s.taskRepo.Save(ctx, nil, task); err != nil {
				return fmt.Errorf("save task %s: %w", task.ID, err)
			}

			leftover := duration - remaining
			if leftover >= s.minSessionMinutes {
				cont := &types.Task{
					ID:              uuid.New(),
					UserID:          task.UserID,
					SkillID:         task.SkillID,
					Title:           task.Title + " (cont.)",
					Description:     task.Description,
					Kind:            types.TaskKindLearning,
					ScheduledDate:   day.Add(24 * time.Hour),
					DurationMinutes: leftover,
					Importance:      task.Importance,
					Splittable:      true,
					Status:          types.TaskStatusPending,
					Resources:       task.Resources,
					DayNumber:       task.DayNumber,
					TopicIndex:      task.TopicIndex,
				}
				if _, err := s.taskRepo.Create(ctx, nil, []*types.Task{cont}); err != nil {
					return fmt.Errorf("create continuation for task %s: %w", task.ID, err)
				}
				rest := append([]*types.Task{cont}, q.tasks[q.pos+1:]...)
				q.tasks = append(q.tasks[:q.pos+1], rest...)
			} else if leftover > 0 {
				result.DroppedMinutes += leftover
				s.log.Warn("Dropping split remainder below minimum session size",
					"task_id", task.ID, "leftover_minutes", leftover, "min_session_minutes", s.minSessionMinutes)
			}
			used += remaining
			q.pos++

		default:
			// Does not fit and cannot split; this skill is done for the day.
			return nil
		}
	}
	return nil
}
