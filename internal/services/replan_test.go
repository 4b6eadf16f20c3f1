package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/skillpath/skillpath-backend/internal/types"
)

func newReplanFixture(t *testing.T, user *types.User, skillRepo *fakeSkillRepo, topicRepo *fakeSkillTopicRepo, taskRepo *fakeTaskRepo) ReplanService {
	t.Helper()
	log := testLogger(t)
	schedule := NewScheduleService(nil, log, newFakeUserRepo(user), taskRepo)
	return NewReplanService(nil, log, taskRepo, skillRepo, topicRepo, schedule)
}

func TestDetectMissed_FlagsOverduePendingOnly(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	freezeTime(t, now)

	user := newTestUser(120)
	overdue := learningTask(user.ID, nil, now.Add(-48*time.Hour), 60)
	today := learningTask(user.ID, nil, dayStartUTC(now), 60)
	future := learningTask(user.ID, nil, now.Add(72*time.Hour), 60)
	done := learningTask(user.ID, nil, now.Add(-24*time.Hour), 60)
	done.MarkCompleted(now)

	taskRepo := newFakeTaskRepo(overdue, today, future, done)
	svc := newReplanFixture(t, user, newFakeSkillRepo(), newFakeSkillTopicRepo(), taskRepo)

	result, err := svc.DetectMissed(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("DetectMissed: %v", err)
	}
	if len(result.Tasks) != 1 || result.Tasks[0].ID != overdue.ID {
		t.Fatalf("expected exactly the overdue task flagged, got %+v", result.Tasks)
	}
	if overdue.Status != types.TaskStatusMissed {
		t.Fatalf("expected status missed, got %q", overdue.Status)
	}
	if overdue.OriginalDate == nil || !overdue.OriginalDate.Equal(overdue.ScheduledDate) {
		t.Fatalf("expected original date stamped with the scheduled date")
	}
	if today.Status != types.TaskStatusPending || future.Status != types.TaskStatusPending {
		t.Fatalf("today and future tasks must stay pending")
	}
	if done.Status != types.TaskStatusCompleted {
		t.Fatalf("completed task must stay completed")
	}
}

func TestDetectMissed_SecondRunIsNoOp(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	freezeTime(t, now)

	user := newTestUser(120)
	overdue := learningTask(user.ID, nil, now.Add(-24*time.Hour), 60)
	taskRepo := newFakeTaskRepo(overdue)
	svc := newReplanFixture(t, user, newFakeSkillRepo(), newFakeSkillTopicRepo(), taskRepo)

	if _, err := svc.DetectMissed(context.Background(), user.ID); err != nil {
		t.Fatalf("first DetectMissed: %v", err)
	}
	firstOriginal := *overdue.OriginalDate

	result, err := svc.DetectMissed(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("second DetectMissed: %v", err)
	}
	if len(result.Tasks) != 0 {
		t.Fatalf("expected no tasks flagged on second run, got %d", len(result.Tasks))
	}
	if !overdue.OriginalDate.Equal(firstOriginal) {
		t.Fatalf("original date must not move on repeated detection")
	}
}

func TestReplanMissed_ChainsCursorForward(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	freezeTime(t, now)

	user := newTestUser(120)
	first := learningTask(user.ID, nil, now.Add(-72*time.Hour), 60)
	second := learningTask(user.ID, nil, now.Add(-48*time.Hour), 60)
	taskRepo := newFakeTaskRepo(first, second)
	svc := newReplanFixture(t, user, newFakeSkillRepo(), newFakeSkillTopicRepo(), taskRepo)

	result, err := svc.ReplanMissed(context.Background(), user.ID, nil)
	if err != nil {
		t.Fatalf("ReplanMissed: %v", err)
	}
	if !result.Success || result.RescheduledCount != 2 {
		t.Fatalf("expected 2 rescheduled, got %+v", result)
	}

	day1 := dayStartUTC(now).Add(24 * time.Hour)
	day2 := dayStartUTC(now).Add(48 * time.Hour)
	if !first.ScheduledDate.Equal(day1) {
		t.Fatalf("expected first task on %v, got %v", day1, first.ScheduledDate)
	}
	if !second.ScheduledDate.Equal(day2) {
		t.Fatalf("expected second task after the first, got %v", second.ScheduledDate)
	}
	if second.ScheduledDate.Before(first.ScheduledDate) {
		t.Fatalf("later missed task must never land before an earlier one")
	}
	for _, task := range []*types.Task{first, second} {
		if task.Status != types.TaskStatusRescheduled {
			t.Fatalf("expected status rescheduled, got %q", task.Status)
		}
		if task.RescheduledCount != 1 {
			t.Fatalf("expected one deviation counted, got %d", task.RescheduledCount)
		}
	}
	if len(result.OverbookedDays) != 0 {
		t.Fatalf("expected no overbooked days, got %v", result.OverbookedDays)
	}
}

func TestReplanMissed_NothingToReplan(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	freezeTime(t, now)

	user := newTestUser(120)
	svc := newReplanFixture(t, user, newFakeSkillRepo(), newFakeSkillTopicRepo(), newFakeTaskRepo())

	result, err := svc.ReplanMissed(context.Background(), user.ID, nil)
	if err != nil {
		t.Fatalf("ReplanMissed: %v", err)
	}
	if !result.Success || result.RescheduledCount != 0 {
		t.Fatalf("expected successful no-op, got %+v", result)
	}
	if result.Message != "No missed tasks to replan" {
		t.Fatalf("unexpected message %q", result.Message)
	}
}

func TestReplanMissed_ReportsOverbookedFallbacks(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	freezeTime(t, now)

	// Zero budget means no day ever has room.
	user := newTestUser(0)
	first := learningTask(user.ID, nil, now.Add(-24*time.Hour), 60)
	taskRepo := newFakeTaskRepo(first)
	svc := newReplanFixture(t, user, newFakeSkillRepo(), newFakeSkillTopicRepo(), taskRepo)

	result, err := svc.ReplanMissed(context.Background(), user.ID, nil)
	if err != nil {
		t.Fatalf("ReplanMissed: %v", err)
	}
	if result.RescheduledCount != 1 {
		t.Fatalf("task must still be placed via fallback, got %+v", result)
	}
	if len(result.OverbookedDays) != 1 {
		t.Fatalf("expected one overbooked day reported, got %v", result.OverbookedDays)
	}
}

func TestReplanMissed_FiltersBySkill(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	freezeTime(t, now)

	user := newTestUser(120)
	skillID := uuid.New()
	otherID := uuid.New()
	inSkill := learningTask(user.ID, &skillID, now.Add(-24*time.Hour), 60)
	outOfSkill := learningTask(user.ID, &otherID, now.Add(-24*time.Hour), 60)
	taskRepo := newFakeTaskRepo(inSkill, outOfSkill)
	svc := newReplanFixture(t, user, newFakeSkillRepo(), newFakeSkillTopicRepo(), taskRepo)

	result, err := svc.ReplanMissed(context.Background(), user.ID, &skillID)
	if err != nil {
		t.Fatalf("ReplanMissed: %v", err)
	}
	if result.RescheduledCount != 1 {
		t.Fatalf("expected only the filtered skill's task, got %+v", result)
	}
	if outOfSkill.Status != types.TaskStatusMissed {
		t.Fatalf("other skill's task should stay missed, got %q", outOfSkill.Status)
	}
}

func TestReplanMissed_PartialProgressOnStoreFailure(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	freezeTime(t, now)

	user := newTestUser(120)
	first := learningTask(user.ID, nil, now.Add(-72*time.Hour), 60)
	first.Title = "Task A"
	second := learningTask(user.ID, nil, now.Add(-48*time.Hour), 60)
	second.Title = "Task B"
	first.MarkMissed()
	second.MarkMissed()

	taskRepo := newFakeTaskRepo(first, second)
	taskRepo.failSaveOnTitle = "Task B"
	svc := newReplanFixture(t, user, newFakeSkillRepo(), newFakeSkillTopicRepo(), taskRepo)

	result, err := svc.ReplanMissed(context.Background(), user.ID, nil)
	if err == nil {
		t.Fatalf("expected store failure to surface")
	}
	if result == nil || result.RescheduledCount != 1 {
		t.Fatalf("expected partial progress of 1, got %+v", result)
	}
}

func TestReplanSkill_UnknownSkill(t *testing.T) {
	user := newTestUser(120)
	svc := newReplanFixture(t, user, newFakeSkillRepo(), newFakeSkillTopicRepo(), newFakeTaskRepo())

	_, err := svc.ReplanSkill(context.Background(), uuid.New(), user.ID)
	if !errors.Is(err, ErrSkillNotFound) {
		t.Fatalf("expected ErrSkillNotFound, got %v", err)
	}
}

func TestReplanSkill_AllTopicsCompleted(t *testing.T) {
	user := newTestUser(120)
	skill := &types.Skill{ID: uuid.New(), UserID: user.ID, Name: "Go", Status: types.SkillStatusInProgress}
	topicRepo := newFakeSkillTopicRepo()
	topicRepo.Create(context.Background(), nil, []*types.SkillTopic{
		{ID: uuid.New(), SkillID: skill.ID, Day: 1, Title: "Basics", Completed: true},
		{ID: uuid.New(), SkillID: skill.ID, Day: 2, Title: "Structs", Completed: true},
	})
	svc := newReplanFixture(t, user, newFakeSkillRepo(skill), topicRepo, newFakeTaskRepo())

	result, err := svc.ReplanSkill(context.Background(), skill.ID, user.ID)
	if err != nil {
		t.Fatalf("ReplanSkill: %v", err)
	}
	if !result.Success || result.Message != "All topics are completed" {
		t.Fatalf("expected completed no-op, got %+v", result)
	}
}

func TestReplanSkill_ResequencesAndMovesEndDate(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	freezeTime(t, now)

	user := newTestUser(120)
	skill := &types.Skill{ID: uuid.New(), UserID: user.ID, Name: "Go", Status: types.SkillStatusInProgress}
	topicRepo := newFakeSkillTopicRepo()
	topicRepo.Create(context.Background(), nil, []*types.SkillTopic{
		{ID: uuid.New(), SkillID: skill.ID, Day: 1, Title: "Basics"},
		{ID: uuid.New(), SkillID: skill.ID, Day: 2, Title: "Structs"},
	})

	day2 := learningTask(user.ID, &skill.ID, now.Add(-24*time.Hour), 60)
	day2.DayNumber = 2
	day1 := learningTask(user.ID, &skill.ID, now.Add(-48*time.Hour), 60)
	day1.DayNumber = 1
	taskRepo := newFakeTaskRepo(day2, day1)

	skillRepo := newFakeSkillRepo(skill)
	svc := newReplanFixture(t, user, skillRepo, topicRepo, taskRepo)

	result, err := svc.ReplanSkill(context.Background(), skill.ID, user.ID)
	if err != nil {
		t.Fatalf("ReplanSkill: %v", err)
	}
	if result.RescheduledCount != 2 {
		t.Fatalf("expected both tasks replanned, got %+v", result)
	}

	// Curriculum order wins over previous scheduled dates.
	wantFirst := dayStartUTC(now).Add(24 * time.Hour)
	wantSecond := dayStartUTC(now).Add(48 * time.Hour)
	if !day1.ScheduledDate.Equal(wantFirst) {
		t.Fatalf("expected day 1 task on %v, got %v", wantFirst, day1.ScheduledDate)
	}
	if !day2.ScheduledDate.Equal(wantSecond) {
		t.Fatalf("expected day 2 task on %v, got %v", wantSecond, day2.ScheduledDate)
	}
	if result.NewEndDate == nil || !result.NewEndDate.Equal(wantSecond) {
		t.Fatalf("expected new end date %v, got %v", wantSecond, result.NewEndDate)
	}
	if skill.EndDate == nil || !skill.EndDate.Equal(wantSecond) {
		t.Fatalf("expected skill end date persisted")
	}
}
