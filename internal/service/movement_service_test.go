package service

import (
	"testing"
	"time"

	"github.com/reptrack/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMovementTestDB(t *testing.T) func() {
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

func TestMovementCreateReturnsExistingOnCaseInsensitiveMatch(t *testing.T) {
	cleanup := setupMovementTestDB(t)
	defer cleanup()

	svc := NewMovementService(db.DB, NewNotifier())

	first, created, err := svc.Create("Bench", []string{"Chest"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !created {
		t.Fatal("expected first create to insert a new movement")
	}

	// 空白 + 大小写变体应命中已有记录
	second, created, err := svc.Create("  bench  ", nil)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created {
		t.Fatal("expected duplicate create to reuse existing movement")
	}
	if second.ID != first.ID {
		t.Fatalf("expected existing movement %d, got %d", first.ID, second.ID)
	}

	var count int64
	if err := db.DB.Model(&db.Movement{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count movements: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 movement, got %d", count)
	}
}

func TestMovementCreateRejectsEmptyName(t *testing.T) {
	cleanup := setupMovementTestDB(t)
	defer cleanup()

	svc := NewMovementService(db.DB, NewNotifier())

	if _, _, err := svc.Create("   ", nil); err != ErrMovementNameRequired {
		t.Fatalf("expected ErrMovementNameRequired, got %v", err)
	}
}

func TestMovementListFilters(t *testing.T) {
	cleanup := setupMovementTestDB(t)
	defer cleanup()

	svc := NewMovementService(db.DB, NewNotifier())

	if _, _, err := svc.Create("Barbell Bench Press", []string{"Chest", "Barbell"}); err != nil {
		t.Fatalf("failed to create movement: %v", err)
	}
	if _, _, err := svc.Create("Incline DB Press", []string{"Chest", "Dumbbell"}); err != nil {
		t.Fatalf("failed to create movement: %v", err)
	}
	if _, _, err := svc.Create("Back Squat", []string{"Quads", "Barbell"}); err != nil {
		t.Fatalf("failed to create movement: %v", err)
	}

	// 名称子串匹配大小写不敏感
	byName, err := svc.List(MovementFilter{Search: "press"})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(byName) != 2 {
		t.Fatalf("expected 2 movements matching press, got %d", len(byName))
	}

	// 标签过滤要求超集（AND 语义）
	byTags, err := svc.List(MovementFilter{TagNames: []string{"Chest", "Barbell"}})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(byTags) != 1 || byTags[0].Name != "Barbell Bench Press" {
		t.Fatalf("expected only Barbell Bench Press, got %d results", len(byTags))
	}
}

func TestMovementDeleteCascades(t *testing.T) {
	cleanup := setupMovementTestDB(t)
	defer cleanup()

	notifier := NewNotifier()
	movements := NewMovementService(db.DB, notifier)
	workouts := NewWorkoutService(db.DB, notifier)
	templates := NewTemplateService(db.DB, notifier)

	bench, _, err := movements.Create("Bench", nil)
	if err != nil {
		t.Fatalf("failed to create movement: %v", err)
	}

	template, err := templates.Create("Push", []uint{bench.ID}, map[uint]string{bench.ID: "pause reps"}, "")
	if err != nil {
		t.Fatalf("failed to create template: %v", err)
	}

	day, err := workouts.GetOrCreateDay(time.Date(2024, 5, 1, 15, 30, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("failed to create day: %v", err)
	}
	record, err := workouts.AddMovement(day.ID, bench.ID)
	if err != nil {
		t.Fatalf("failed to add movement to day: %v", err)
	}
	if _, err := workouts.AddSet(record.ID, 100, 5, nil); err != nil {
		t.Fatalf("failed to add set: %v", err)
	}
	if err := templates.Apply(template.ID, day.ID); err != nil {
		t.Fatalf("failed to apply template: %v", err)
	}

	if err := movements.Delete(bench.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	var workoutMovements int64
	db.DB.Model(&db.WorkoutMovement{}).Count(&workoutMovements)
	if workoutMovements != 0 {
		t.Fatalf("expected workout movements removed, got %d", workoutMovements)
	}

	var sets int64
	db.DB.Model(&db.SetEntry{}).Count(&sets)
	if sets != 0 {
		t.Fatalf("expected sets removed, got %d", sets)
	}

	// 当天已无动作，已应用模板记录也应被清空
	var applied int64
	db.DB.Model(&db.AppliedTemplate{}).Count(&applied)
	if applied != 0 {
		t.Fatalf("expected applied templates cleared, got %d", applied)
	}

	// 模板本身仍然有效，但动作引用与备注被抹去
	remaining, err := templates.Get(template.ID)
	if err != nil {
		t.Fatalf("expected template to survive, got %v", err)
	}
	if len(remaining.Movements) != 0 {
		t.Fatalf("expected template movement refs removed, got %d", len(remaining.Movements))
	}
}
