package db

import (
	"time"

	"gorm.io/gorm"
)

// DefaultTemplateColor 是新模板的默认展示色
const DefaultTemplateColor = "#4D96FF"

// WorkoutTemplate 定义了可复用的训练模板。
// 模板只持有动作 ID（TemplateMovement），解析时按动作库现状丢弃悬空引用
type WorkoutTemplate struct {
	gorm.Model
	Name      string             `gorm:"not null"`
	ColorHex  string             `gorm:"size:16;default:'#4D96FF'"`
	Movements []TemplateMovement `gorm:"constraint:OnDelete:CASCADE"`
}

// TemplateMovement 是模板中一个有序的动作引用，可附带针对该动作的备注。
// Position 保存模板内顺序；联合唯一索引避免同一动作在模板里重复出现。
// 与 WorkoutMovement 一样不使用软删除，引用整体替换时需要真正删除旧行
type TemplateMovement struct {
	ID                uint `gorm:"primarykey"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	WorkoutTemplateID uint `gorm:"index;index:idx_template_movement_unique,unique"`
	MovementID        uint `gorm:"index;index:idx_template_movement_unique,unique"`
	Position          int
	Note              string
}
