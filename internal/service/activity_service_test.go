package service

import (
	"errors"
	"testing"
	"time"

	"github.com/karmalog/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupActivityTestDB(t *testing.T) func() {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(&db.Activity{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	db.DB = gdb

	return func() {
		sqlDB, err := db.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

func TestActivityServiceCreateSingle(t *testing.T) {
	cleanup := setupActivityTestDB(t)
	defer cleanup()

	svc := NewActivityService(db.DB)

	created, err := svc.Create(ActivityInput{
		Date:             "2025-06-11",
		Category:         db.CategoryStudy,
		Description:      "Read distributed systems paper",
		EstimatedMinutes: 45,
		Repeat:           RepeatNone,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if len(created) != 1 {
		t.Fatalf("expected 1 activity, got %d", len(created))
	}
	if created[0].UID == "" {
		t.Fatal("expected activity to have UID")
	}
	if created[0].Status != db.StatusPending {
		t.Fatalf("unexpected status: %s", created[0].Status)
	}
	if created[0].TimerRunning || created[0].TimerLastResume != nil || created[0].TimerAccumulatedMs != 0 {
		t.Fatal("expected a zeroed, stopped timer")
	}
}

func TestActivityServiceCreateWeekdayRepeat(t *testing.T) {
	cleanup := setupActivityTestDB(t)
	defer cleanup()

	svc := NewActivityService(db.DB)

	// 2025-06-11 是周三，weekdays 应产生周一到周五共 5 条
	created, err := svc.Create(ActivityInput{
		Date:             "2025-06-11",
		Category:         db.CategoryWork,
		Description:      "Morning review",
		EstimatedMinutes: 30,
		Repeat:           RepeatWeekdays,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if len(created) != 5 {
		t.Fatalf("expected 5 activities, got %d", len(created))
	}

	wantDates := map[string]bool{
		"2025-06-09": false,
		"2025-06-10": false,
		"2025-06-11": false,
		"2025-06-12": false,
		"2025-06-13": false,
	}
	uids := map[string]bool{}
	for _, a := range created {
		seen, ok := wantDates[a.Date]
		if !ok {
			t.Fatalf("unexpected date %s", a.Date)
		}
		if seen {
			t.Fatalf("duplicate date %s", a.Date)
		}
		wantDates[a.Date] = true

		if uids[a.UID] {
			t.Fatalf("duplicate uid %s", a.UID)
		}
		uids[a.UID] = true

		if a.Description != "Morning review" || a.Category != db.CategoryWork {
			t.Fatalf("sibling fields diverged: %+v", a)
		}
	}
}

func TestActivityServiceCreateWeekendRepeat(t *testing.T) {
	cleanup := setupActivityTestDB(t)
	defer cleanup()

	svc := NewActivityService(db.DB)

	created, err := svc.Create(ActivityInput{
		Date:             "2025-06-11",
		Category:         db.CategoryWorkout,
		Description:      "Long run",
		EstimatedMinutes: 60,
		Repeat:           RepeatWeekends,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// 所选的周三始终包含，再加周六与周日
	if len(created) != 3 {
		t.Fatalf("expected 3 activities, got %d", len(created))
	}
}

func TestActivityServiceCreateValidation(t *testing.T) {
	cleanup := setupActivityTestDB(t)
	defer cleanup()

	svc := NewActivityService(db.DB)

	if _, err := svc.Create(ActivityInput{Date: "2025-06-11", Category: db.CategoryWork, Description: "   "}); !errors.Is(err, ErrActivityInvalidInput) {
		t.Fatalf("expected invalid input for empty description, got %v", err)
	}

	if _, err := svc.Create(ActivityInput{Date: "2025-06-11", Category: "Gaming", Description: "play"}); !errors.Is(err, ErrActivityInvalidInput) {
		t.Fatalf("expected invalid input for unknown category, got %v", err)
	}

	// 负数分钟按 0 处理而不是拒绝
	created, err := svc.Create(ActivityInput{
		Date:             "2025-06-11",
		Category:         db.CategoryHome,
		Description:      "Clean kitchen",
		EstimatedMinutes: -20,
		OvertimeMinutes:  -5,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created[0].EstimatedMinutes != 0 || created[0].OvertimeMinutes != 0 {
		t.Fatalf("expected negative minutes coerced to 0, got %+v", created[0])
	}
}

func TestActivityServiceMoveToDate(t *testing.T) {
	cleanup := setupActivityTestDB(t)
	defer cleanup()

	svc := NewActivityService(db.DB)
	created, err := svc.Create(ActivityInput{
		Date:        "2025-06-11",
		Category:    db.CategoryWork,
		Description: "Quarterly report",
	})
	if err != nil {
		t.Fatalf("failed to create activity: %v", err)
	}

	now := time.Date(2025, 6, 11, 15, 0, 0, 0, time.Local)
	moved, err := svc.MoveToDate(created[0].UID, "2025-06-13", now)
	if err != nil {
		t.Fatalf("MoveToDate returned error: %v", err)
	}

	if moved.Status != db.StatusRescheduled {
		t.Fatalf("expected Rescheduled, got %s", moved.Status)
	}
	if moved.Date != "2025-06-13" || moved.MovedFromDate != "2025-06-11" {
		t.Fatalf("unexpected dates: %+v", moved)
	}
	if moved.MovedAt == nil || !moved.MovedAt.Equal(now) {
		t.Fatalf("expected movedAt to be set to now")
	}

	// 改期到当前日期被拒绝，保证 date 与 movedFromDate 不同
	if _, err := svc.MoveToDate(moved.UID, "2025-06-13", now); !errors.Is(err, ErrActivityMoveSameDate) {
		t.Fatalf("expected same-date error, got %v", err)
	}
}

func TestActivityServiceCompleteStopsTimer(t *testing.T) {
	cleanup := setupActivityTestDB(t)
	defer cleanup()

	svc := NewActivityService(db.DB)
	timers := NewTimerService(db.DB)

	created, err := svc.Create(ActivityInput{
		Date:        "2025-06-11",
		Category:    db.CategoryStudy,
		Description: "Flashcards",
	})
	if err != nil {
		t.Fatalf("failed to create activity: %v", err)
	}
	uid := created[0].UID

	start := time.Date(2025, 6, 11, 9, 0, 0, 0, time.Local)
	if err := timers.SetRunning(uid, true, start); err != nil {
		t.Fatalf("SetRunning returned error: %v", err)
	}

	done, err := svc.UpdateStatus(uid, db.StatusCompleted, start.Add(2*time.Second))
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}

	if done.TimerRunning || done.TimerLastResume != nil {
		t.Fatal("expected timer stopped after completion")
	}
	if done.TimerAccumulatedMs != 2000 {
		t.Fatalf("expected 2000ms accumulated, got %d", done.TimerAccumulatedMs)
	}

	// Rescheduled 不能通过状态接口直接设置
	if _, err := svc.UpdateStatus(uid, db.StatusRescheduled, start); !errors.Is(err, ErrActivityInvalidInput) {
		t.Fatalf("expected invalid input for direct reschedule, got %v", err)
	}
}

func TestActivityServiceUpdateSyncsSiblings(t *testing.T) {
	cleanup := setupActivityTestDB(t)
	defer cleanup()

	svc := NewActivityService(db.DB)
	created, err := svc.Create(ActivityInput{
		Date:             "2025-06-11",
		Category:         db.CategoryWork,
		Description:      "Standup notes",
		EstimatedMinutes: 15,
		Repeat:           RepeatWeekdays,
	})
	if err != nil {
		t.Fatalf("failed to create activities: %v", err)
	}

	updated, err := svc.Update(created[0].UID, ActivityInput{
		Date:             created[0].Date,
		Category:         db.CategoryWork,
		Description:      "Standup notes",
		EstimatedMinutes: 25,
		Repeat:           RepeatWeekdays,
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if len(updated) != 5 {
		t.Fatalf("expected 5 synced activities, got %d", len(updated))
	}
	for _, a := range updated {
		if a.EstimatedMinutes != 25 {
			t.Fatalf("expected sibling duration synced, got %+v", a)
		}
	}
}
