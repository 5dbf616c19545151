package db

import "gorm.io/gorm"

// SystemSetting 存储可配置的应用级键值对。
type SystemSetting struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (SystemSetting) TableName() string {
	return "system_settings"
}

const (
	// SettingKeyTheme 表示界面主题偏好（system/light/dark）。
	SettingKeyTheme = "theme"
	// SettingKeyWeekStart 表示每周起始日（monday/sunday）。
	SettingKeyWeekStart = "week_start"
	// SettingKeyWeeklyTargets 存储序列化后的每周出勤目标列表。
	SettingKeyWeeklyTargets = "weekly_attendance_targets"
)
