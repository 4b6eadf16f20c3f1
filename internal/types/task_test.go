package types

import (
	"testing"
	"time"
)

func TestTask_MarkMissedStampsOriginalDateOnce(t *testing.T) {
	planned := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	task := &Task{ScheduledDate: planned, Status: TaskStatusPending}

	task.MarkMissed()
	if task.Status != TaskStatusMissed {
		t.Fatalf("expected status missed, got %q", task.Status)
	}
	if task.OriginalDate == nil || !task.OriginalDate.Equal(planned) {
		t.Fatalf("expected original date %v, got %v", planned, task.OriginalDate)
	}

	task.Reschedule(planned.Add(48 * time.Hour))
	if !task.OriginalDate.Equal(planned) {
		t.Fatalf("original date must never move after the first deviation")
	}
}

func TestTask_RescheduleCountsEachDeviation(t *testing.T) {
	planned := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	task := &Task{ScheduledDate: planned, Status: TaskStatusPending}

	task.Reschedule(planned.Add(24 * time.Hour))
	task.Reschedule(planned.Add(72 * time.Hour))

	if task.RescheduledCount != 2 {
		t.Fatalf("expected 2 deviations counted, got %d", task.RescheduledCount)
	}
	if task.Status != TaskStatusRescheduled {
		t.Fatalf("expected status rescheduled, got %q", task.Status)
	}
}

func TestTask_ReplaceIsOneDeviationForDateAndDuration(t *testing.T) {
	planned := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	task := &Task{ScheduledDate: planned, DurationMinutes: 60, Status: TaskStatusPending}

	if !task.Replace(planned.Add(24*time.Hour), 30) {
		t.Fatalf("expected Replace to report a change")
	}
	if task.RescheduledCount != 1 {
		t.Fatalf("date and duration together are one deviation, got %d", task.RescheduledCount)
	}
	if task.DurationMinutes != 30 {
		t.Fatalf("expected duration 30, got %d", task.DurationMinutes)
	}
}

func TestTask_ReplaceNoOpLeavesTaskUntouched(t *testing.T) {
	planned := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	task := &Task{ScheduledDate: planned, DurationMinutes: 60, Status: TaskStatusPending}

	if task.Replace(planned, 60) {
		t.Fatalf("identical placement must not report a change")
	}
	if task.Status != TaskStatusPending || task.OriginalDate != nil || task.RescheduledCount != 0 {
		t.Fatalf("no-op placement mutated the task: %+v", task)
	}
}

func TestTask_MarkCompleted(t *testing.T) {
	now := time.Date(2026, 3, 5, 18, 0, 0, 0, time.UTC)
	task := &Task{Status: TaskStatusPending}

	task.MarkCompleted(now)
	if task.Status != TaskStatusCompleted {
		t.Fatalf("expected status completed, got %q", task.Status)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(now) {
		t.Fatalf("expected completion time recorded")
	}
}
