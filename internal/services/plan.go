package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skillpath/skillpath-backend/internal/logger"
	"github.com/skillpath/skillpath-backend/internal/repos"
	"github.com/skillpath/skillpath-backend/internal/types"
)

// minPlanMinutesPerSkill is the smallest admissible daily share a skill can
// be planned against.
const minPlanMinutesPerSkill = 30

type PlanResult struct {
	Success             bool          `json:"success"`
	Message             string        `json:"message"`
	TasksCreated        int           `json:"tasks_created"`
	WorkoutTasksCreated int           `json:"workout_tasks_created"`
	MinutesPerSkill     int           `json:"minutes_per_skill"`
	ActiveSkillsCount   int           `json:"active_skills_count"`
	Reflow              *ReflowResult `json:"reflow,omitempty"`
}

// PlanService turns generator output into persisted curriculum topics and
// day-numbered learning tasks, then rebalances the rest of the schedule.
type PlanService interface {
	GeneratePlan(ctx context.Context, skillID, userID uuid.UUID) (*PlanResult, error)
	PreviewTopics(ctx context.Context, userID uuid.UUID, skillName string, targetDays int) ([]TopicDraft, error)
	GenerateWorkoutTasks(ctx context.Context, userID uuid.UUID, startDate time.Time, days int) ([]*types.Task, error)
}

type planService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	skillRepo     repos.SkillRepo
	topicRepo     repos.SkillTopicRepo
	taskRepo      repos.TaskRepo
	generator     TopicGenerator
	reflowService ReflowService
}

func NewPlanService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, skillRepo repos.SkillRepo, topicRepo repos.SkillTopicRepo, taskRepo repos.TaskRepo, generator TopicGenerator, reflowService ReflowService) PlanService {
	return &planService{
		db:            db,
		log:           log.With("service", "PlanService"),
		userRepo:      userRepo,
		skillRepo:     skillRepo,
		topicRepo:     topicRepo,
		taskRepo:      taskRepo,
		generator:     generator,
		reflowService: reflowService,
	}
}

func (s *planService) GeneratePlan(ctx context.Context, skillID, userID uuid.UUID) (*PlanResult, error) {
	skill, err := s.skillRepo.GetByID(ctx, nil, skillID, userID)
	if err != nil {
		return nil, fmt.Errorf("load skill: %w", err)
	}
	if skill == nil {
		return nil, ErrSkillNotFound
	}
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	// The new skill shares the daily budget with every other skill that is
	// planned or in flight.
	activeSkills, err := s.skillRepo.GetByStatuses(ctx, nil, userID, []string{
		types.SkillStatusInProgress, types.SkillStatusNotStarted,
	})
	if err != nil {
		return nil, fmt.Errorf("load active skills: %w", err)
	}
	activeCount := len(activeSkills)
	if activeCount == 0 {
		activeCount = 1
	}

	minutesPerSkill := user.DailyBudgetMinutes / activeCount
	if minutesPerSkill < minPlanMinutesPerSkill {
		return &PlanResult{
			Success: false,
			Message: fmt.Sprintf("Not enough daily time: %d minutes across %d skills. Increase your daily budget or pause some skills.",
				user.DailyBudgetMinutes, activeCount),
			ActiveSkillsCount: activeCount,
		}, nil
	}

	drafts := s.topicsFor(ctx, user, skill, minutesPerSkill)

	topics := make([]*types.SkillTopic, 0, len(drafts))
	tasks := make([]*types.Task, 0, len(drafts))
	for i, draft := range drafts {
		day := draft.Day
		if day <= 0 {
			day = i + 1
		}
		minutes := clampMinutes(draft.EstimatedMinutes, minutesPerSkill)
		importance := draft.Importance
		if importance < 1 || importance > 5 {
			importance = types.DefaultTaskImportance
		}
		splittable := true
		if draft.Splittable != nil {
			splittable = *draft.Splittable
		}

		topics = append(topics, &types.SkillTopic{
			SkillID:          skill.ID,
			Day:              day,
			Title:            draft.Title,
			Description:      draft.Description,
			EstimatedMinutes: minutes,
			Importance:       importance,
			Splittable:       splittable,
		})

		resources, _ := json.Marshal(searchResources(draft.Title, skill.Name))
		sid := skill.ID
		tasks = append(tasks, &types.Task{
			UserID:          userID,
			SkillID:         &sid,
			Title:           draft.Title,
			Description:     draft.Description,
			Kind:            types.TaskKindLearning,
			ScheduledDate:   dayStartUTC(skill.StartDate).Add(time.Duration(day-1) * 24 * time.Hour),
			DurationMinutes: minutes,
			Importance:      importance,
			Splittable:      splittable,
			Status:          types.TaskStatusPending,
			DayNumber:       day,
			TopicIndex:      day - 1,
			Resources:       resources,
		})
	}

	// Regenerating a plan replaces the previous curriculum and its tasks.
	if err := s.topicRepo.DeleteBySkillID(ctx, nil, skill.ID); err != nil {
		return nil, fmt.Errorf("clear old topics: %w", err)
	}
	if _, err := s.topicRepo.Create(ctx, nil, topics); err != nil {
		return nil, fmt.Errorf("create topics: %w", err)
	}
	if _, err := s.taskRepo.DeleteBySkillID(ctx, nil, skill.ID); err != nil {
		return nil, fmt.Errorf("clear old tasks: %w", err)
	}
	if _, err := s.taskRepo.Create(ctx, nil, tasks); err != nil {
		return nil, fmt.Errorf("create tasks: %w", err)
	}

	skill.Status = types.SkillStatusInProgress
	if err := s.skillRepo.Save(ctx, nil, skill); err != nil {
		return nil, fmt.Errorf("save skill: %w", err)
	}

	result := &PlanResult{
		Success:           true,
		Message:           fmt.Sprintf("Created %d tasks for %s", len(tasks), skill.Name),
		TasksCreated:      len(tasks),
		MinutesPerSkill:   minutesPerSkill,
		ActiveSkillsCount: activeCount,
	}

	if user.WorkoutEnabled {
		workouts, err := s.GenerateWorkoutTasks(ctx, userID, skill.StartDate, skill.TargetDays)
		if err != nil {
			s.log.Warn("Workout task generation failed", "error", err)
		} else {
			result.WorkoutTasksCreated = len(workouts)
		}
	}

	// Adding a skill to an existing rotation changes every skill's fair
	// share, so the whole outstanding schedule is reflowed.
	if activeCount > 1 {
		reflow, err := s.reflowService.Reflow(ctx, userID, user.DailyBudgetMinutes)
		if err != nil {
			s.log.Warn("Reflow after plan generation failed", "error", err)
		} else {
			result.Reflow = reflow
		}
	}

	return result, nil
}

// topicsFor asks the generator for a curriculum and falls back to the
// rule-based plan when it fails.
func (s *planService) topicsFor(ctx context.Context, user *types.User, skill *types.Skill, minutesPerSkill int) []TopicDraft {
	req := TopicRequest{
		SkillName:          skill.Name,
		TargetDays:         skill.TargetDays,
		DailyBudgetMinutes: user.DailyBudgetMinutes,
		SkillBudgetMinutes: minutesPerSkill,
		ExistingSkills:     existingSkillNames(user),
	}
	if s.generator != nil {
		drafts, err := s.generator.GenerateTopics(ctx, req)
		if err == nil && len(drafts) > 0 {
			return drafts
		}
		s.log.Warn("Topic generation failed, using rule-based fallback", "skill", skill.Name, "error", err)
	}
	return ruleBasedTopics(req)
}

func (s *planService) PreviewTopics(ctx context.Context, userID uuid.UUID, skillName string, targetDays int) ([]TopicDraft, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	req := TopicRequest{
		SkillName:          skillName,
		TargetDays:         targetDays,
		DailyBudgetMinutes: user.DailyBudgetMinutes,
		SkillBudgetMinutes: user.DailyBudgetMinutes,
		ExistingSkills:     existingSkillNames(user),
	}
	if s.generator != nil {
		drafts, err := s.generator.GenerateTopics(ctx, req)
		if err == nil && len(drafts) > 0 {
			return drafts, nil
		}
		s.log.Warn("Topic preview generation failed, using rule-based fallback", "skill", skillName, "error", err)
	}
	return ruleBasedTopics(req), nil
}

func (s *planService) GenerateWorkoutTasks(ctx context.Context, userID uuid.UUID, startDate time.Time, days int) ([]*types.Task, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.WorkoutEnabled {
		return nil, nil
	}

	startTime, endTime := "18:00", "19:00"
	if user.WorkoutPreference == types.WorkoutPreferenceMorning {
		startTime, endTime = "07:00", "08:00"
	}

	resources, _ := json.Marshal([]types.TaskResource{{
		Title: "Full Body Workout for Students",
		URL:   "https://www.youtube.com/results?search_query=" + url.QueryEscape("quick workout for students"),
		Kind:  "youtube",
	}})

	tasks := make([]*types.Task, 0, days)
	day := dayStartUTC(startDate)
	for i := 0; i < days; i++ {
		tasks = append(tasks, &types.Task{
			UserID:          userID,
			Title:           "Daily Workout",
			Description:     "Complete your daily exercise routine",
			Kind:            types.TaskKindWorkout,
			ScheduledDate:   day,
			StartTime:       startTime,
			EndTime:         endTime,
			DurationMinutes: 60,
			Importance:      2,
			Splittable:      false,
			Status:          types.TaskStatusPending,
			Resources:       resources,
		})
		day = day.Add(24 * time.Hour)
	}
	return s.taskRepo.Create(ctx, nil, tasks)
}

func clampMinutes(minutes, budget int) int {
	if minutes <= 0 {
		minutes = types.DefaultTaskMinutes
	}
	if minutes > budget {
		minutes = budget
	}
	if minutes < types.MinTaskMinutes {
		minutes = types.MinTaskMinutes
	}
	return minutes
}

func searchResources(topic, skillName string) []types.TaskResource {
	query := func(q string) string {
		return "https://www.youtube.com/results?search_query=" + url.QueryEscape(q)
	}
	return []types.TaskResource{
		{Title: fmt.Sprintf("%s %s tutorial", skillName, topic), URL: query(fmt.Sprintf("%s %s tutorial", skillName, topic)), Kind: "youtube"},
		{Title: fmt.Sprintf("Learn %s step by step", topic), URL: query(fmt.Sprintf("Learn %s step by step", topic)), Kind: "youtube"},
	}
}

func existingSkillNames(user *types.User) []string {
	if len(user.ExistingSkills) == 0 {
		return nil
	}
	var names []string
	_ = json.Unmarshal(user.ExistingSkills, &names)
	return names
}
