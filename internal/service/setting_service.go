package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reptrack/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// ThemeSystem 跟随系统外观。
	ThemeSystem = "system"
	// ThemeLight 强制浅色外观。
	ThemeLight = "light"
	// ThemeDark 强制深色外观。
	ThemeDark = "dark"
)

var supportedThemes = []string{ThemeSystem, ThemeLight, ThemeDark}

const (
	// WeekStartMonday 表示周一作为每周第一天。
	WeekStartMonday = "monday"
	// WeekStartSunday 表示周日作为每周第一天。
	WeekStartSunday = "sunday"
)

// AppSettings 描述应用级展示偏好。
type AppSettings struct {
	Theme     string
	WeekStart string
}

// SettingService 提供应用设置的读取与更新能力。
// 周出勤目标的序列化串也经由它落到同一张键值表
type SettingService struct {
	db *gorm.DB
}

// NewSettingService 构造 SettingService。
func NewSettingService(gdb *gorm.DB) *SettingService {
	return &SettingService{db: gdb}
}

// GetSettings 读取应用设置，未设置的键返回默认值。
func (s *SettingService) GetSettings() (AppSettings, error) {
	result := AppSettings{Theme: ThemeSystem, WeekStart: WeekStartMonday}

	var records []db.SystemSetting
	err := s.db.Where("key IN ?", []string{db.SettingKeyTheme, db.SettingKeyWeekStart}).
		Find(&records).Error
	if err != nil {
		return result, fmt.Errorf("load settings: %w", err)
	}

	for _, record := range records {
		switch record.Key {
		case db.SettingKeyTheme:
			if theme := normalizeTheme(record.Value); theme != "" {
				result.Theme = theme
			}
		case db.SettingKeyWeekStart:
			if start := normalizeWeekStart(record.Value); start != "" {
				result.WeekStart = start
			}
		}
	}

	return result, nil
}

// UpdateSettings 保存应用设置，非法取值回退默认。
func (s *SettingService) UpdateSettings(input AppSettings) (AppSettings, error) {
	sanitized := AppSettings{
		Theme:     normalizeTheme(input.Theme),
		WeekStart: normalizeWeekStart(input.WeekStart),
	}
	if sanitized.Theme == "" {
		sanitized.Theme = ThemeSystem
	}
	if sanitized.WeekStart == "" {
		sanitized.WeekStart = WeekStartMonday
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := upsertSetting(tx, db.SettingKeyTheme, sanitized.Theme); err != nil {
			return err
		}
		return upsertSetting(tx, db.SettingKeyWeekStart, sanitized.WeekStart)
	})
	if err != nil {
		return AppSettings{}, fmt.Errorf("update settings: %w", err)
	}

	return sanitized, nil
}

// GetRaw 读取任意设置键的原始值，键不存在时返回空串。
func (s *SettingService) GetRaw(key string) (string, error) {
	var record db.SystemSetting
	err := s.db.Where("key = ?", key).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load setting %s: %w", key, err)
	}
	return record.Value, nil
}

// SetRaw 写入任意设置键的原始值。
func (s *SettingService) SetRaw(key, value string) error {
	return upsertSetting(s.db, key, value)
}

// DeleteRaw 移除设置键，键不存在时为空操作。
func (s *SettingService) DeleteRaw(key string) error {
	if err := s.db.Unscoped().Where("key = ?", key).
		Delete(&db.SystemSetting{}).Error; err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}

func upsertSetting(tx *gorm.DB, key, value string) error {
	setting := db.SystemSetting{Key: key, Value: value}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&setting).Error; err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}

func normalizeTheme(theme string) string {
	trimmed := strings.ToLower(strings.TrimSpace(theme))
	for _, candidate := range supportedThemes {
		if trimmed == candidate {
			return candidate
		}
	}
	return ""
}

func normalizeWeekStart(start string) string {
	trimmed := strings.ToLower(strings.TrimSpace(start))
	if trimmed == WeekStartMonday || trimmed == WeekStartSunday {
		return trimmed
	}
	return ""
}
