package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/skillpath/skillpath-backend/internal/types"
)

var testDay = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func newTestUser(budget int) *types.User {
	return &types.User{ID: uuid.New(), Email: "u@example.com", DailyBudgetMinutes: budget}
}

func learningTask(userID uuid.UUID, skillID *uuid.UUID, date time.Time, minutes int) *types.Task {
	return &types.Task{
		ID:              uuid.New(),
		UserID:          userID,
		SkillID:         skillID,
		Title:           "Study session",
		Kind:            types.TaskKindLearning,
		ScheduledDate:   date,
		DurationMinutes: minutes,
		Importance:      types.DefaultTaskImportance,
		Splittable:      true,
		Status:          types.TaskStatusPending,
	}
}

func TestFreeMinutes_SubtractsScheduledWork(t *testing.T) {
	user := newTestUser(120)
	taskRepo := newFakeTaskRepo(
		learningTask(user.ID, nil, testDay, 45),
		learningTask(user.ID, nil, testDay.Add(3*time.Hour), 30),
		learningTask(user.ID, nil, testDay.Add(48*time.Hour), 60),
	)
	svc := NewScheduleService(nil, testLogger(t), newFakeUserRepo(user), taskRepo)

	free, err := svc.FreeMinutes(context.Background(), user.ID, testDay)
	if err != nil {
		t.Fatalf("FreeMinutes: %v", err)
	}
	if free != 45 {
		t.Fatalf("expected 45 free minutes, got %d", free)
	}
}

func TestFreeMinutes_ClampsOvercommittedDayToZero(t *testing.T) {
	user := newTestUser(60)
	taskRepo := newFakeTaskRepo(
		learningTask(user.ID, nil, testDay, 50),
		learningTask(user.ID, nil, testDay, 40),
	)
	svc := NewScheduleService(nil, testLogger(t), newFakeUserRepo(user), taskRepo)

	free, err := svc.FreeMinutes(context.Background(), user.ID, testDay)
	if err != nil {
		t.Fatalf("FreeMinutes: %v", err)
	}
	if free != 0 {
		t.Fatalf("expected 0 free minutes on overcommitted day, got %d", free)
	}
}

func TestFreeMinutes_DefaultsZeroDurationTasks(t *testing.T) {
	user := newTestUser(120)
	task := learningTask(user.ID, nil, testDay, 0)
	svc := NewScheduleService(nil, testLogger(t), newFakeUserRepo(user), newFakeTaskRepo(task))

	free, err := svc.FreeMinutes(context.Background(), user.ID, testDay)
	if err != nil {
		t.Fatalf("FreeMinutes: %v", err)
	}
	if free != 120-types.DefaultTaskMinutes {
		t.Fatalf("expected %d free minutes, got %d", 120-types.DefaultTaskMinutes, free)
	}
}

func TestFreeMinutes_UnknownUser(t *testing.T) {
	svc := NewScheduleService(nil, testLogger(t), newFakeUserRepo(), newFakeTaskRepo())

	_, err := svc.FreeMinutes(context.Background(), uuid.New(), testDay)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestNextSlot_SkipsFullDays(t *testing.T) {
	user := newTestUser(120)
	// Tomorrow and the day after are fully booked.
	taskRepo := newFakeTaskRepo(
		learningTask(user.ID, nil, testDay.Add(24*time.Hour), 120),
		learningTask(user.ID, nil, testDay.Add(48*time.Hour), 90),
	)
	svc := NewScheduleService(nil, testLogger(t), newFakeUserRepo(user), taskRepo)

	slot, overbooked, err := svc.NextSlot(context.Background(), user.ID, 60, testDay)
	if err != nil {
		t.Fatalf("NextSlot: %v", err)
	}
	if overbooked {
		t.Fatalf("expected a real slot, got overbooked fallback")
	}
	want := testDay.Add(72 * time.Hour)
	if !slot.Equal(want) {
		t.Fatalf("expected slot %v, got %v", want, slot)
	}
}

func TestNextSlot_StartsStrictlyAfterSearchFrom(t *testing.T) {
	user := newTestUser(120)
	svc := NewScheduleService(nil, testLogger(t), newFakeUserRepo(user), newFakeTaskRepo())

	slot, overbooked, err := svc.NextSlot(context.Background(), user.ID, 60, testDay.Add(10*time.Hour))
	if err != nil {
		t.Fatalf("NextSlot: %v", err)
	}
	if overbooked {
		t.Fatalf("expected a real slot, got overbooked fallback")
	}
	want := testDay.Add(24 * time.Hour)
	if !slot.Equal(want) {
		t.Fatalf("expected slot %v, got %v", want, slot)
	}
}

func TestNextSlot_FallsBackWhenHorizonExhausted(t *testing.T) {
	user := newTestUser(0)
	svc := NewScheduleService(nil, testLogger(t), newFakeUserRepo(user), newFakeTaskRepo())

	slot, overbooked, err := svc.NextSlot(context.Background(), user.ID, 30, testDay)
	if err != nil {
		t.Fatalf("NextSlot: %v", err)
	}
	if !overbooked {
		t.Fatalf("expected overbooked fallback")
	}
	want := testDay.Add(24 * time.Hour)
	if !slot.Equal(want) {
		t.Fatalf("expected fallback %v, got %v", want, slot)
	}
}
