package service

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/reptrack/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupChartTestDB(t *testing.T) func() {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(
		&db.Movement{}, &db.Tag{},
		&db.WorkoutDay{}, &db.WorkoutMovement{}, &db.SetEntry{},
		&db.WorkoutTemplate{}, &db.TemplateMovement{}, &db.AppliedTemplate{},
		&db.SystemSetting{},
	); err != nil {
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

// chartFixture 建立一个动作与一条当天训练记录，返回记录 ID 供加组使用
func chartFixture(t *testing.T, date time.Time) (uint, uint) {
	t.Helper()

	notifier := NewNotifier()
	movements := NewMovementService(db.DB, notifier)
	workouts := NewWorkoutService(db.DB, notifier)

	movement, _, err := movements.Create("Bench", nil)
	if err != nil {
		t.Fatalf("failed to create movement: %v", err)
	}
	day, err := workouts.GetOrCreateDay(date)
	if err != nil {
		t.Fatalf("failed to create day: %v", err)
	}
	record, err := workouts.AddMovement(day.ID, movement.ID)
	if err != nil {
		t.Fatalf("failed to add movement: %v", err)
	}
	return movement.ID, record.ID
}

func addChartSet(t *testing.T, workouts *WorkoutService, recordID uint, weight float64, reps int) *db.SetEntry {
	t.Helper()
	set, err := workouts.AddSet(recordID, weight, reps, nil)
	if err != nil {
		t.Fatalf("failed to add set: %v", err)
	}
	return set
}

func TestAvailableWeightsDeduplicatesNearEqualValues(t *testing.T) {
	cleanup := setupChartTestDB(t)
	defer cleanup()

	notifier := NewNotifier()
	workouts := NewWorkoutService(db.DB, notifier)
	charts := NewChartService(db.DB)

	movementID, recordID := chartFixture(t, time.Now())

	// 0.001 以内的重量视为同一档位
	addChartSet(t, workouts, recordID, 135.0, 10)
	addChartSet(t, workouts, recordID, 135.0009, 8)
	addChartSet(t, workouts, recordID, 140.0, 6)

	weights, err := charts.AvailableWeights(movementID)
	if err != nil {
		t.Fatalf("AvailableWeights returned error: %v", err)
	}
	if len(weights) != 2 {
		t.Fatalf("expected 2 distinct weights, got %v", weights)
	}
	if weights[0] >= weights[1] {
		t.Fatalf("expected ascending order, got %v", weights)
	}
}

func TestAverageRepsUsesRelativeToleranceBand(t *testing.T) {
	cleanup := setupChartTestDB(t)
	defer cleanup()

	notifier := NewNotifier()
	workouts := NewWorkoutService(db.DB, notifier)
	charts := NewChartService(db.DB)

	movementID, recordID := chartFixture(t, time.Date(2024, 5, 6, 10, 0, 0, 0, time.Local))

	// 目标 135 的容差带为 [134.325, 135.675]（端点包含）
	addChartSet(t, workouts, recordID, 134.5, 10)
	addChartSet(t, workouts, recordID, 135.0, 8)
	addChartSet(t, workouts, recordID, 136.0, 6)

	points, err := charts.AverageRepsAtWeight(movementID, 135.0)
	if err != nil {
		t.Fatalf("AverageRepsAtWeight returned error: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	if math.Abs(points[0].Value-9.0) > 1e-9 {
		t.Fatalf("expected average 9.0 over in-band sets, got %f", points[0].Value)
	}
}

func TestTopSetRepsSeries(t *testing.T) {
	cleanup := setupChartTestDB(t)
	defer cleanup()

	notifier := NewNotifier()
	workouts := NewWorkoutService(db.DB, notifier)
	charts := NewChartService(db.DB)

	movementID, recordID := chartFixture(t, time.Date(2024, 5, 6, 10, 0, 0, 0, time.Local))

	addChartSet(t, workouts, recordID, 135.0, 10)
	top := addChartSet(t, workouts, recordID, 135.0, 8)
	if _, err := workouts.ToggleTopSet(top.ID); err != nil {
		t.Fatalf("failed to toggle top set: %v", err)
	}

	points, err := charts.TopSetRepsAtWeight(movementID, 135.0)
	if err != nil {
		t.Fatalf("TopSetRepsAtWeight returned error: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	if points[0].Value != 8 {
		t.Fatalf("expected top set reps 8, got %f", points[0].Value)
	}
}

func TestVolumeSeriesOmitsDaysWithoutInBandSets(t *testing.T) {
	cleanup := setupChartTestDB(t)
	defer cleanup()

	notifier := NewNotifier()
	movements := NewMovementService(db.DB, notifier)
	workouts := NewWorkoutService(db.DB, notifier)
	charts := NewChartService(db.DB)

	movement, _, err := movements.Create("Squat", nil)
	if err != nil {
		t.Fatalf("failed to create movement: %v", err)
	}

	dayOne, err := workouts.GetOrCreateDay(time.Date(2024, 5, 6, 0, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("failed to create day: %v", err)
	}
	dayTwo, err := workouts.GetOrCreateDay(time.Date(2024, 5, 8, 0, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("failed to create day: %v", err)
	}

	recordOne, err := workouts.AddMovement(dayOne.ID, movement.ID)
	if err != nil {
		t.Fatalf("failed to add movement: %v", err)
	}
	recordTwo, err := workouts.AddMovement(dayTwo.ID, movement.ID)
	if err != nil {
		t.Fatalf("failed to add movement: %v", err)
	}

	addChartSet(t, workouts, recordOne.ID, 225.0, 5)
	addChartSet(t, workouts, recordOne.ID, 225.0, 5)
	// 第二天只有带外重量，不产生数据点
	addChartSet(t, workouts, recordTwo.ID, 245.0, 3)

	points, err := charts.VolumeAtWeight(movement.ID, 225.0)
	if err != nil {
		t.Fatalf("VolumeAtWeight returned error: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	if math.Abs(points[0].Value-2250.0) > 1e-9 {
		t.Fatalf("expected volume 2250, got %f", points[0].Value)
	}
}

func TestSeriesRejectsUnknownMode(t *testing.T) {
	cleanup := setupChartTestDB(t)
	defer cleanup()

	charts := NewChartService(db.DB)
	if _, err := charts.Series(1, "bogus", 100); !errors.Is(err, ErrUnknownChartMode) {
		t.Fatalf("expected ErrUnknownChartMode, got %v", err)
	}
}
