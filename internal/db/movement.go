package db

import "gorm.io/gorm"

// Movement 定义了动作库中的单个动作。
// Name 不加唯一索引，重名判定由 service 层按大小写不敏感规则处理
type Movement struct {
	gorm.Model
	Name string `gorm:"not null"`
	Tags []Tag  `gorm:"many2many:movement_tags;"`
}

// Tag 定义了动作的描述性标签，例如 Chest / Barbell
type Tag struct {
	gorm.Model
	Name      string     `gorm:"unique;not null"`
	Movements []Movement `gorm:"many2many:movement_tags;"`
}
