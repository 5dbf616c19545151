package service

import (
	"testing"
	"time"

	"github.com/reptrack/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTemplateTestDB(t *testing.T) func() {
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

func TestApplyTemplateTwiceIsIdempotent(t *testing.T) {
	cleanup := setupTemplateTestDB(t)
	defer cleanup()

	notifier := NewNotifier()
	movements := NewMovementService(db.DB, notifier)
	workouts := NewWorkoutService(db.DB, notifier)
	templates := NewTemplateService(db.DB, notifier)

	a, _, err := movements.Create("Bench", nil)
	if err != nil {
		t.Fatalf("failed to create movement: %v", err)
	}
	b, _, err := movements.Create("Squat", nil)
	if err != nil {
		t.Fatalf("failed to create movement: %v", err)
	}

	template, err := templates.Create("Push", []uint{a.ID, b.ID}, nil, "#FF6B6B")
	if err != nil {
		t.Fatalf("failed to create template: %v", err)
	}

	day, err := workouts.GetOrCreateDay(time.Now())
	if err != nil {
		t.Fatalf("failed to create day: %v", err)
	}

	if err := templates.Apply(template.ID, day.ID); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if err := templates.Apply(template.ID, day.ID); err != nil {
		t.Fatalf("second Apply returned error: %v", err)
	}

	var records int64
	db.DB.Model(&db.WorkoutMovement{}).Where("workout_day_id = ?", day.ID).Count(&records)
	if records != 2 {
		t.Fatalf("expected 2 workout movements, got %d", records)
	}

	var applied int64
	db.DB.Model(&db.AppliedTemplate{}).
		Where("workout_day_id = ? AND workout_template_id = ?", day.ID, template.ID).
		Count(&applied)
	if applied != 1 {
		t.Fatalf("expected template recorded exactly once, got %d", applied)
	}
}

func TestResolveMovementsDropsDanglingIDs(t *testing.T) {
	cleanup := setupTemplateTestDB(t)
	defer cleanup()

	notifier := NewNotifier()
	movements := NewMovementService(db.DB, notifier)
	templates := NewTemplateService(db.DB, notifier)

	a, _, err := movements.Create("Bench", nil)
	if err != nil {
		t.Fatalf("failed to create movement: %v", err)
	}
	b, _, err := movements.Create("Squat", nil)
	if err != nil {
		t.Fatalf("failed to create movement: %v", err)
	}

	template, err := templates.Create("Push", []uint{a.ID, b.ID}, nil, "")
	if err != nil {
		t.Fatalf("failed to create template: %v", err)
	}

	if err := movements.Delete(a.ID); err != nil {
		t.Fatalf("failed to delete movement: %v", err)
	}

	resolved, err := templates.ResolveMovements(template.ID)
	if err != nil {
		t.Fatalf("ResolveMovements returned error: %v", err)
	}
	if len(resolved) != 1 || resolved[0].ID != b.ID {
		t.Fatalf("expected only Squat to resolve, got %d entries", len(resolved))
	}
}

func TestTemplatePartialUpdate(t *testing.T) {
	cleanup := setupTemplateTestDB(t)
	defer cleanup()

	notifier := NewNotifier()
	movements := NewMovementService(db.DB, notifier)
	templates := NewTemplateService(db.DB, notifier)

	a, _, err := movements.Create("Bench", nil)
	if err != nil {
		t.Fatalf("failed to create movement: %v", err)
	}

	template, err := templates.Create("Push", []uint{a.ID}, map[uint]string{a.ID: "slow negatives"}, "#FF6B6B")
	if err != nil {
		t.Fatalf("failed to create template: %v", err)
	}

	// 只改名称：动作引用、备注与颜色保持不变
	newName := "Push Day"
	updated, err := templates.Update(template.ID, TemplateUpdate{Name: &newName})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if updated.Name != "Push Day" {
		t.Fatalf("expected renamed template, got %s", updated.Name)
	}
	if updated.ColorHex != "#FF6B6B" {
		t.Fatalf("expected color unchanged, got %s", updated.ColorHex)
	}
	if len(updated.Movements) != 1 || updated.Movements[0].Note != "slow negatives" {
		t.Fatalf("expected movement refs and notes unchanged")
	}
}

func TestRemoveAppliedTemplateWithMovements(t *testing.T) {
	cleanup := setupTemplateTestDB(t)
	defer cleanup()

	notifier := NewNotifier()
	movements := NewMovementService(db.DB, notifier)
	workouts := NewWorkoutService(db.DB, notifier)
	templates := NewTemplateService(db.DB, notifier)

	bench, _, err := movements.Create("Bench", nil)
	if err != nil {
		t.Fatalf("failed to create movement: %v", err)
	}
	row, _, err := movements.Create("Row", nil)
	if err != nil {
		t.Fatalf("failed to create movement: %v", err)
	}

	template, err := templates.Create("Push", []uint{bench.ID}, nil, "")
	if err != nil {
		t.Fatalf("failed to create template: %v", err)
	}

	day, err := workouts.GetOrCreateDay(time.Now())
	if err != nil {
		t.Fatalf("failed to create day: %v", err)
	}

	// Bench 是手动添加的，并非来自模板应用；撤销时依然会被移除，这是既定行为
	record, err := workouts.AddMovement(day.ID, bench.ID)
	if err != nil {
		t.Fatalf("failed to add movement: %v", err)
	}
	if _, err := workouts.AddSet(record.ID, 100, 5, nil); err != nil {
		t.Fatalf("failed to add set: %v", err)
	}
	if _, err := workouts.AddMovement(day.ID, row.ID); err != nil {
		t.Fatalf("failed to add movement: %v", err)
	}
	if err := templates.Apply(template.ID, day.ID); err != nil {
		t.Fatalf("failed to apply template: %v", err)
	}

	if err := templates.RemoveApplied(template.ID, day.ID, true); err != nil {
		t.Fatalf("RemoveApplied returned error: %v", err)
	}

	var benchLeft int64
	db.DB.Model(&db.WorkoutMovement{}).
		Where("workout_day_id = ? AND movement_id = ?", day.ID, bench.ID).
		Count(&benchLeft)
	if benchLeft != 0 {
		t.Fatal("expected bench removed from day")
	}

	// 模板外的动作不受影响
	var rowLeft int64
	db.DB.Model(&db.WorkoutMovement{}).
		Where("workout_day_id = ? AND movement_id = ?", day.ID, row.ID).
		Count(&rowLeft)
	if rowLeft != 1 {
		t.Fatal("expected row to survive")
	}

	var applied int64
	db.DB.Model(&db.AppliedTemplate{}).Where("workout_day_id = ?", day.ID).Count(&applied)
	if applied != 0 {
		t.Fatalf("expected applied template stripped, got %d", applied)
	}
}

func TestDeleteTemplateRemovesMovementsAcrossAllDays(t *testing.T) {
	cleanup := setupTemplateTestDB(t)
	defer cleanup()

	notifier := NewNotifier()
	movements := NewMovementService(db.DB, notifier)
	workouts := NewWorkoutService(db.DB, notifier)
	templates := NewTemplateService(db.DB, notifier)

	bench, _, err := movements.Create("Bench", nil)
	if err != nil {
		t.Fatalf("failed to create movement: %v", err)
	}
	template, err := templates.Create("Push", []uint{bench.ID}, nil, "")
	if err != nil {
		t.Fatalf("failed to create template: %v", err)
	}

	// 第二天从未应用过模板，但动作引用同样会被清理
	dayApplied, err := workouts.GetOrCreateDay(time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("failed to create day: %v", err)
	}
	dayManual, err := workouts.GetOrCreateDay(time.Date(2024, 5, 2, 0, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("failed to create day: %v", err)
	}

	if err := templates.Apply(template.ID, dayApplied.ID); err != nil {
		t.Fatalf("failed to apply template: %v", err)
	}
	if _, err := workouts.AddMovement(dayManual.ID, bench.ID); err != nil {
		t.Fatalf("failed to add movement: %v", err)
	}

	if err := templates.Delete(template.ID, true); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	var records int64
	db.DB.Model(&db.WorkoutMovement{}).Count(&records)
	if records != 0 {
		t.Fatalf("expected bench removed from every day, got %d records", records)
	}

	if _, err := templates.Get(template.ID); err != ErrTemplateNotFound {
		t.Fatalf("expected template gone, got %v", err)
	}
}
