package services

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skillpath/skillpath-backend/internal/logger"
	"github.com/skillpath/skillpath-backend/internal/repos"
	"github.com/skillpath/skillpath-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

// freezeTime pins the scheduling clock for the duration of one test.
func freezeTime(t *testing.T, at time.Time) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return at }
	t.Cleanup(func() { timeNow = prev })
}

type fakeUserRepo struct {
	users map[uuid.UUID]*types.User
}

func newFakeUserRepo(users ...*types.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[uuid.UUID]*types.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.User) ([]*types.User, error) {
	for _, u := range rows {
		r.users[u.ID] = u
	}
	return rows, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error) {
	return r.users[id], nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Save(ctx context.Context, tx *gorm.DB, row *types.User) error {
	r.users[row.ID] = row
	return nil
}

type fakeSkillRepo struct {
	skills map[uuid.UUID]*types.Skill
	saved  int
}

func newFakeSkillRepo(skills ...*types.Skill) *fakeSkillRepo {
	r := &fakeSkillRepo{skills: map[uuid.UUID]*types.Skill{}}
	for _, s := range skills {
		r.skills[s.ID] = s
	}
	return r
}

func (r *fakeSkillRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Skill) ([]*types.Skill, error) {
	for _, s := range rows {
		r.skills[s.ID] = s
	}
	return rows, nil
}

func (r *fakeSkillRepo) GetByID(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.Skill, error) {
	s, ok := r.skills[id]
	if !ok || s.UserID != userID {
		return nil, nil
	}
	return s, nil
}

func (r *fakeSkillRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Skill, error) {
	return r.byUser(userID, nil), nil
}

func (r *fakeSkillRepo) GetActiveByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Skill, error) {
	return r.byUser(userID, []string{types.SkillStatusInProgress}), nil
}

func (r *fakeSkillRepo) GetByStatuses(ctx context.Context, tx *gorm.DB, userID uuid.UUID, statuses []string) ([]*types.Skill, error) {
	return r.byUser(userID, statuses), nil
}

func (r *fakeSkillRepo) byUser(userID uuid.UUID, statuses []string) []*types.Skill {
	var out []*types.Skill
	for _, s := range r.skills {
		if s.UserID != userID {
			continue
		}
		if len(statuses) > 0 {
			match := false
			for _, st := range statuses {
				if s.Status == st {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *fakeSkillRepo) Save(ctx context.Context, tx *gorm.DB, row *types.Skill) error {
	r.skills[row.ID] = row
	r.saved++
	return nil
}

func (r *fakeSkillRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	delete(r.skills, id)
	return nil
}

type fakeSkillTopicRepo struct {
	topics map[uuid.UUID][]*types.SkillTopic
}

func newFakeSkillTopicRepo() *fakeSkillTopicRepo {
	return &fakeSkillTopicRepo{topics: map[uuid.UUID][]*types.SkillTopic{}}
}

func (r *fakeSkillTopicRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.SkillTopic) ([]*types.SkillTopic, error) {
	for _, topic := range rows {
		r.topics[topic.SkillID] = append(r.topics[topic.SkillID], topic)
	}
	return rows, nil
}

func (r *fakeSkillTopicRepo) GetBySkillID(ctx context.Context, tx *gorm.DB, skillID uuid.UUID) ([]*types.SkillTopic, error) {
	out := append([]*types.SkillTopic(nil), r.topics[skillID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (r *fakeSkillTopicRepo) Save(ctx context.Context, tx *gorm.DB, row *types.SkillTopic) error {
	for i, topic := range r.topics[row.SkillID] {
		if topic.ID == row.ID {
			r.topics[row.SkillID][i] = row
			return nil
		}
	}
	r.topics[row.SkillID] = append(r.topics[row.SkillID], row)
	return nil
}

func (r *fakeSkillTopicRepo) DeleteBySkillID(ctx context.Context, tx *gorm.DB, skillID uuid.UUID) error {
	delete(r.topics, skillID)
	return nil
}

type fakeTaskRepo struct {
	tasks []*types.Task
	// failSaveOnTitle makes Save fail for one task so partial-progress
	// behavior can be exercised.
	failSaveOnTitle string
	saves           int
}

func newFakeTaskRepo(tasks ...*types.Task) *fakeTaskRepo {
	return &fakeTaskRepo{tasks: tasks}
}

func (r *fakeTaskRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Task) ([]*types.Task, error) {
	r.tasks = append(r.tasks, rows...)
	return rows, nil
}

func (r *fakeTaskRepo) GetByID(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.Task, error) {
	for _, t := range r.tasks {
		if t.ID == id && t.UserID == userID {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeTaskRepo) List(ctx context.Context, tx *gorm.DB, userID uuid.UUID, f repos.TaskFilter) ([]*types.Task, error) {
	var out []*types.Task
	for _, t := range r.tasks {
		if t.UserID != userID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
			continue
		}
		if f.Kind != "" && t.Kind != f.Kind {
			continue
		}
		if f.SkillID != nil && (t.SkillID == nil || *t.SkillID != *f.SkillID) {
			continue
		}
		if f.DateFrom != nil && t.ScheduledDate.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && t.ScheduledDate.After(*f.DateTo) {
			continue
		}
		out = append(out, t)
	}
	sortByDate(out)
	return out, nil
}

func (r *fakeTaskRepo) GetForDay(ctx context.Context, tx *gorm.DB, userID uuid.UUID, dayStart, dayEnd time.Time) ([]*types.Task, error) {
	var out []*types.Task
	for _, t := range r.tasks {
		if t.UserID != userID {
			continue
		}
		if t.ScheduledDate.Before(dayStart) || t.ScheduledDate.After(dayEnd) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeTaskRepo) GetPendingBefore(ctx context.Context, tx *gorm.DB, userID uuid.UUID, before time.Time) ([]*types.Task, error) {
	var out []*types.Task
	for _, t := range r.tasks {
		if t.UserID == userID && t.Status == types.TaskStatusPending && t.ScheduledDate.Before(before) {
			out = append(out, t)
		}
	}
	sortByDate(out)
	return out, nil
}

func (r *fakeTaskRepo) GetMissed(ctx context.Context, tx *gorm.DB, userID uuid.UUID, skillID *uuid.UUID) ([]*types.Task, error) {
	var out []*types.Task
	for _, t := range r.tasks {
		if t.UserID != userID || t.Status != types.TaskStatusMissed {
			continue
		}
		if skillID != nil && (t.SkillID == nil || *t.SkillID != *skillID) {
			continue
		}
		out = append(out, t)
	}
	sortByDate(out)
	return out, nil
}

var testOpenStatuses = []string{types.TaskStatusPending, types.TaskStatusMissed, types.TaskStatusRescheduled}

func (r *fakeTaskRepo) GetOpenBySkill(ctx context.Context, tx *gorm.DB, skillID, userID uuid.UUID) ([]*types.Task, error) {
	var out []*types.Task
	for _, t := range r.tasks {
		if t.UserID == userID && t.SkillID != nil && *t.SkillID == skillID && containsStatus(testOpenStatuses, t.Status) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DayNumber < out[j].DayNumber })
	return out, nil
}

func (r *fakeTaskRepo) GetOpenLearningBySkill(ctx context.Context, tx *gorm.DB, skillID, userID uuid.UUID) ([]*types.Task, error) {
	all, _ := r.GetOpenBySkill(ctx, tx, skillID, userID)
	var out []*types.Task
	for _, t := range all {
		if t.Kind == types.TaskKindLearning {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DayNumber != out[j].DayNumber {
			return out[i].DayNumber < out[j].DayNumber
		}
		return out[i].Importance > out[j].Importance
	})
	return out, nil
}

func (r *fakeTaskRepo) GetLastScheduledBySkill(ctx context.Context, tx *gorm.DB, skillID, userID uuid.UUID) (*types.Task, error) {
	var last *types.Task
	for _, t := range r.tasks {
		if t.UserID != userID || t.SkillID == nil || *t.SkillID != skillID {
			continue
		}
		if last == nil || t.ScheduledDate.After(last.ScheduledDate) {
			last = t
		}
	}
	return last, nil
}

func (r *fakeTaskRepo) Save(ctx context.Context, tx *gorm.DB, row *types.Task) error {
	if r.failSaveOnTitle != "" && row.Title == r.failSaveOnTitle {
		return fmt.Errorf("forced save failure for %q", row.Title)
	}
	r.saves++
	for i, t := range r.tasks {
		if t.ID == row.ID {
			r.tasks[i] = row
			return nil
		}
	}
	r.tasks = append(r.tasks, row)
	return nil
}

func (r *fakeTaskRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	for i, t := range r.tasks {
		if t.ID == id {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeTaskRepo) DeleteBySkillID(ctx context.Context, tx *gorm.DB, skillID uuid.UUID) (int64, error) {
	var kept []*types.Task
	var removed int64
	for _, t := range r.tasks {
		if t.SkillID != nil && *t.SkillID == skillID {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	r.tasks = kept
	return removed, nil
}

// minutesOnDay sums scheduled durations for one user and calendar day.
func (r *fakeTaskRepo) minutesOnDay(userID uuid.UUID, day time.Time) int {
	start, end := dayStartUTC(day), dayEndUTC(day)
	total := 0
	for _, t := range r.tasks {
		if t.UserID != userID {
			continue
		}
		if t.ScheduledDate.Before(start) || t.ScheduledDate.After(end) {
			continue
		}
		total += t.DurationMinutes
	}
	return total
}

func containsStatus(statuses []string, status string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func sortByDate(tasks []*types.Task) {
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].ScheduledDate.Before(tasks[j].ScheduledDate) })
}
