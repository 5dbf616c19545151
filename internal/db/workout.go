package db

import (
	"time"

	"gorm.io/gorm"
)

// WorkoutDay 是一个自然日的训练聚合根。
// Date 归一化到当天零点后作为查找键，唯一索引保证每天最多一条记录
type WorkoutDay struct {
	gorm.Model
	Date             time.Time         `gorm:"uniqueIndex;not null"`
	Movements        []WorkoutMovement `gorm:"constraint:OnDelete:CASCADE"`
	AppliedTemplates []AppliedTemplate `gorm:"constraint:OnDelete:CASCADE"`
}

// WorkoutMovement 表示某个动作在某一天中的一次出现。
// WorkoutDayID + MovementID 联合唯一索引：同一天同一动作最多出现一次。
// 不使用软删除：移除后同一动作需要能重新加入当天，软删除行会撞上唯一索引
type WorkoutMovement struct {
	ID           uint `gorm:"primarykey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	WorkoutDayID uint `gorm:"index;index:idx_day_movement_unique,unique"`
	MovementID   uint `gorm:"index;index:idx_day_movement_unique,unique"`
	Movement     Movement
	Note         string
	Sets         []SetEntry `gorm:"constraint:OnDelete:CASCADE"`
}

// SetEntry 记录一组训练的重量、次数与可选 RPE。
// IsTopSet 由 service 层的 toggle 逻辑保证同一 WorkoutMovement 下至多一条为 true
type SetEntry struct {
	ID                uint `gorm:"primarykey"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	WorkoutMovementID uint `gorm:"index"`
	Weight            float64
	Reps              int
	RPE               *float64
	Timestamp         time.Time
	IsTopSet          bool
}

// AppliedTemplate 记录某天应用过的模板。
// 联合唯一索引使重复应用天然幂等，周统计也因此不会对同一天重复计数
type AppliedTemplate struct {
	ID                uint `gorm:"primarykey"`
	CreatedAt         time.Time
	WorkoutDayID      uint `gorm:"index;index:idx_day_template_unique,unique"`
	WorkoutTemplateID uint `gorm:"index:idx_day_template_unique,unique"`
}
