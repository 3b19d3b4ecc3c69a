package service

import (
	"testing"
	"time"

	"github.com/karmalog/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupReportTestDB(t *testing.T) func() {
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

func seedReportActivity(t *testing.T, date, category, status string, estimated, overtime int) db.Activity {
	t.Helper()
	svc := NewActivityService(db.DB)
	created, err := svc.Create(ActivityInput{
		Date:             date,
		Category:         category,
		Description:      "report fixture",
		EstimatedMinutes: estimated,
		OvertimeMinutes:  overtime,
	})
	if err != nil {
		t.Fatalf("failed to seed activity: %v", err)
	}
	activity := created[0]
	if status != db.StatusPending {
		if err := db.DB.Model(&db.Activity{}).Where("uid = ?", activity.UID).Update("status", status).Error; err != nil {
			t.Fatalf("failed to set status: %v", err)
		}
		activity.Status = status
	}
	return activity
}

func TestCompletionRateBoundaries(t *testing.T) {
	cleanup := setupReportTestDB(t)
	defer cleanup()

	reports := NewReportService(db.DB)

	// 空列表为 0%
	rate, err := reports.CompletionRate("2025-06-11")
	if err != nil {
		t.Fatalf("CompletionRate returned error: %v", err)
	}
	if rate != 0 {
		t.Fatalf("expected 0%% for empty day, got %d", rate)
	}

	seedReportActivity(t, "2025-06-11", db.CategoryWork, db.StatusCompleted, 30, 0)
	seedReportActivity(t, "2025-06-11", db.CategoryStudy, db.StatusCompleted, 30, 0)

	rate, err = reports.CompletionRate("2025-06-11")
	if err != nil {
		t.Fatalf("CompletionRate returned error: %v", err)
	}
	if rate != 100 {
		t.Fatalf("expected 100%% for all-completed day, got %d", rate)
	}

	seedReportActivity(t, "2025-06-11", db.CategoryHome, db.StatusPending, 30, 0)
	rate, err = reports.CompletionRate("2025-06-11")
	if err != nil {
		t.Fatalf("CompletionRate returned error: %v", err)
	}
	if rate != 67 {
		t.Fatalf("expected rounded 67%%, got %d", rate)
	}
}

func TestBacklogStatsPartition(t *testing.T) {
	cleanup := setupReportTestDB(t)
	defer cleanup()

	reports := NewReportService(db.DB)
	now := time.Date(2025, 6, 11, 12, 0, 0, 0, time.Local)

	todayPending := seedReportActivity(t, "2025-06-11", db.CategoryWork, db.StatusPending, 60, 0)
	overdue := seedReportActivity(t, "2025-06-09", db.CategoryStudy, db.StatusPending, 30, 0)
	seedReportActivity(t, "2025-06-11", db.CategoryHome, db.StatusCompleted, 45, 0)
	moved := seedReportActivity(t, "2025-06-13", db.CategoryWork, db.StatusRescheduled, 20, 0)

	stats, err := reports.BacklogStats(now)
	if err != nil {
		t.Fatalf("BacklogStats returned error: %v", err)
	}

	if len(stats.Pending) != 1 || stats.Pending[0].UID != todayPending.UID {
		t.Fatalf("unexpected pending partition: %+v", stats.Pending)
	}
	if len(stats.Backlog) != 1 || stats.Backlog[0].UID != overdue.UID {
		t.Fatalf("unexpected backlog partition: %+v", stats.Backlog)
	}
	if len(stats.Moved) != 1 || stats.Moved[0].UID != moved.UID {
		t.Fatalf("unexpected moved partition: %+v", stats.Moved)
	}

	// (60 + 30) / 60 = 1.5，保留一位小数
	if stats.TotalHoursNeeded != 1.5 {
		t.Fatalf("expected 1.5 hours needed, got %v", stats.TotalHoursNeeded)
	}
}

func TestCategoryReportDaily(t *testing.T) {
	cleanup := setupReportTestDB(t)
	defer cleanup()

	reports := NewReportService(db.DB)

	seedReportActivity(t, "2025-06-11", db.CategoryWork, db.StatusPending, 30, 0)
	seedReportActivity(t, "2025-06-11", db.CategoryWork, db.StatusPending, 15, 5)
	seedReportActivity(t, "2025-06-12", db.CategoryWork, db.StatusPending, 99, 0)

	summary, err := reports.CategoryReport(IntervalDaily, "2025-06-11")
	if err != nil {
		t.Fatalf("CategoryReport returned error: %v", err)
	}

	if len(summary) != 1 || summary[db.CategoryWork] != 50 {
		t.Fatalf("expected {Work: 50}, got %v", summary)
	}
}

func TestCategoryReportWeeklyWindow(t *testing.T) {
	cleanup := setupReportTestDB(t)
	defer cleanup()

	reports := NewReportService(db.DB)

	seedReportActivity(t, "2025-06-05", db.CategoryStudy, db.StatusPending, 10, 0) // 6 天前，含
	seedReportActivity(t, "2025-06-04", db.CategoryStudy, db.StatusPending, 20, 0) // 恰好 7 天，不含
	seedReportActivity(t, "2025-06-20", db.CategoryStudy, db.StatusPending, 40, 0) // 未来日期，窗口不设上界

	summary, err := reports.CategoryReport(IntervalWeekly, "2025-06-11")
	if err != nil {
		t.Fatalf("CategoryReport returned error: %v", err)
	}

	// 回看窗口沿用历史行为：(anchor - date) < 7 天，未来日期一并计入
	if summary[db.CategoryStudy] != 50 {
		t.Fatalf("expected 50 minutes in weekly window, got %v", summary)
	}
}

func TestCategoryReportMonthlyAndYearly(t *testing.T) {
	cleanup := setupReportTestDB(t)
	defer cleanup()

	reports := NewReportService(db.DB)

	seedReportActivity(t, "2025-06-01", db.CategoryHome, db.StatusPending, 10, 0)
	seedReportActivity(t, "2025-06-30", db.CategoryHome, db.StatusPending, 20, 0)
	seedReportActivity(t, "2025-05-31", db.CategoryHome, db.StatusPending, 40, 0)
	seedReportActivity(t, "2024-06-15", db.CategoryHome, db.StatusPending, 80, 0)

	monthly, err := reports.CategoryReport(IntervalMonthly, "2025-06-11")
	if err != nil {
		t.Fatalf("CategoryReport returned error: %v", err)
	}
	if monthly[db.CategoryHome] != 30 {
		t.Fatalf("expected 30 minutes in June, got %v", monthly)
	}

	yearly, err := reports.CategoryReport(IntervalYearly, "2025-06-11")
	if err != nil {
		t.Fatalf("CategoryReport returned error: %v", err)
	}
	if yearly[db.CategoryHome] != 70 {
		t.Fatalf("expected 70 minutes in 2025, got %v", yearly)
	}
}

func TestUrgencyWindow(t *testing.T) {
	now := time.Date(2025, 6, 11, 12, 0, 0, 0, time.Local)

	fresh := now.Add(-2 * 24 * time.Hour)
	urgent := now.Add(-5 * 24 * time.Hour)
	expired := now.Add(-9 * 24 * time.Hour)

	a := db.Activity{Status: db.StatusRescheduled, MovedFromDate: "2025-06-09", MovedAt: &fresh}
	if IsUrgent(a, now) {
		t.Fatal("expected 2-day-old move not urgent")
	}
	if got := DaysRemaining(a, now); got != 5 {
		t.Fatalf("expected 5 days remaining, got %d", got)
	}

	a.MovedAt = &urgent
	if !IsUrgent(a, now) {
		t.Fatal("expected 5-day-old move urgent")
	}
	if got := DaysRemaining(a, now); got != 2 {
		t.Fatalf("expected 2 days remaining, got %d", got)
	}

	// 窗口耗尽后仍为紧急，剩余天数保持 0
	a.MovedAt = &expired
	if !IsUrgent(a, now) {
		t.Fatal("expected expired move still urgent")
	}
	if got := DaysRemaining(a, now); got != 0 {
		t.Fatalf("expected 0 days remaining, got %d", got)
	}

	if IsUrgent(db.Activity{}, now) || DaysRemaining(db.Activity{}, now) != 0 {
		t.Fatal("expected zero urgency without movedAt")
	}
}
