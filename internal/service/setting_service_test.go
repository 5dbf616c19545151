package service

import (
	"testing"

	"github.com/reptrack/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSettingTestDB(t *testing.T) func() {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(&db.SystemSetting{}); err != nil {
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

func TestGetSettingsReturnsDefaults(t *testing.T) {
	cleanup := setupSettingTestDB(t)
	defer cleanup()

	settings := NewSettingService(db.DB)

	current, err := settings.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings returned error: %v", err)
	}
	if current.Theme != ThemeSystem {
		t.Fatalf("expected default theme system, got %s", current.Theme)
	}
	if current.WeekStart != WeekStartMonday {
		t.Fatalf("expected default week start monday, got %s", current.WeekStart)
	}
}

func TestUpdateSettingsNormalizesUnknownValues(t *testing.T) {
	cleanup := setupSettingTestDB(t)
	defer cleanup()

	settings := NewSettingService(db.DB)

	updated, err := settings.UpdateSettings(AppSettings{Theme: "neon", WeekStart: "friday"})
	if err != nil {
		t.Fatalf("UpdateSettings returned error: %v", err)
	}
	if updated.Theme != ThemeSystem || updated.WeekStart != WeekStartMonday {
		t.Fatalf("expected unknown values normalized to defaults, got %+v", updated)
	}
}

func TestUpdateSettingsRoundTrips(t *testing.T) {
	cleanup := setupSettingTestDB(t)
	defer cleanup()

	settings := NewSettingService(db.DB)

	if _, err := settings.UpdateSettings(AppSettings{Theme: ThemeDark, WeekStart: WeekStartSunday}); err != nil {
		t.Fatalf("UpdateSettings returned error: %v", err)
	}
	// 再次更新覆盖已有键而不是新增行
	if _, err := settings.UpdateSettings(AppSettings{Theme: ThemeLight, WeekStart: WeekStartSunday}); err != nil {
		t.Fatalf("UpdateSettings returned error: %v", err)
	}

	current, err := settings.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings returned error: %v", err)
	}
	if current.Theme != ThemeLight || current.WeekStart != WeekStartSunday {
		t.Fatalf("expected persisted settings, got %+v", current)
	}

	var rows int64
	db.DB.Model(&db.SystemSetting{}).Count(&rows)
	if rows != 2 {
		t.Fatalf("expected 2 setting rows, got %d", rows)
	}
}
