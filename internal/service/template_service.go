package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reptrack/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrTemplateNotFound 在指定模板不存在时返回
	ErrTemplateNotFound = errors.New("template not found")
	// ErrTemplateNameRequired 在模板名称去除空白后为空时返回
	ErrTemplateNameRequired = errors.New("template name is required")
)

// TemplateService 负责训练模板的管理与模板到训练日的应用/撤销
type TemplateService struct {
	db       *gorm.DB
	notifier *Notifier
}

// TemplateUpdate 定义部分更新语义：nil 字段保持原值不变
type TemplateUpdate struct {
	Name        *string
	MovementIDs []uint
	Notes       map[uint]string
	ColorHex    *string
}

// NewTemplateService 构造 TemplateService
func NewTemplateService(gdb *gorm.DB, notifier *Notifier) *TemplateService {
	return &TemplateService{db: gdb, notifier: notifier}
}

// Create 新建模板。movementIDs 保存为有序引用，notes 按动作 ID 记录备注
func (s *TemplateService) Create(name string, movementIDs []uint, notes map[uint]string, colorHex string) (*db.WorkoutTemplate, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, ErrTemplateNameRequired
	}

	color := strings.TrimSpace(colorHex)
	if color == "" {
		color = db.DefaultTemplateColor
	}

	template := db.WorkoutTemplate{Name: trimmed, ColorHex: color}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&template).Error; err != nil {
			return fmt.Errorf("create template: %w", err)
		}
		return replaceTemplateMovements(tx, &template, movementIDs, notes)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(Change{Entity: ChangeTemplate, ID: template.ID})
	return &template, nil
}

// Get 根据 ID 获取模板，动作引用按模板内顺序排列
func (s *TemplateService) Get(id uint) (*db.WorkoutTemplate, error) {
	var template db.WorkoutTemplate
	err := s.db.
		Preload("Movements", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("template_movements.position ASC")
		}).
		First(&template, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("get template: %w", err)
	}
	return &template, nil
}

// List 返回全部模板，按名称升序（大小写不敏感）
func (s *TemplateService) List() ([]db.WorkoutTemplate, error) {
	var templates []db.WorkoutTemplate
	err := s.db.
		Preload("Movements", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("template_movements.position ASC")
		}).
		Order("name COLLATE NOCASE ASC").
		Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// Update 按部分更新语义修改模板：未提供的字段保持不变
func (s *TemplateService) Update(id uint, update TemplateUpdate) (*db.WorkoutTemplate, error) {
	template, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if update.Name != nil {
			trimmed := strings.TrimSpace(*update.Name)
			if trimmed == "" {
				return ErrTemplateNameRequired
			}
			template.Name = trimmed
		}
		if update.ColorHex != nil {
			template.ColorHex = strings.TrimSpace(*update.ColorHex)
		}
		if err := tx.Save(template).Error; err != nil {
			return fmt.Errorf("update template: %w", err)
		}

		if update.MovementIDs != nil || update.Notes != nil {
			movementIDs := update.MovementIDs
			notes := update.Notes
			if movementIDs == nil {
				movementIDs = make([]uint, 0, len(template.Movements))
				for _, ref := range template.Movements {
					movementIDs = append(movementIDs, ref.MovementID)
				}
			}
			if notes == nil {
				notes = make(map[uint]string, len(template.Movements))
				for _, ref := range template.Movements {
					if ref.Note != "" {
						notes[ref.MovementID] = ref.Note
					}
				}
			}
			return replaceTemplateMovements(tx, template, movementIDs, notes)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(Change{Entity: ChangeTemplate, ID: template.ID})
	return s.Get(id)
}

// ResolveMovements 将模板的动作引用映射为动作实体。
// 已被删除的动作（悬空 ID）静默跳过，结果保持模板内顺序
func (s *TemplateService) ResolveMovements(templateID uint) ([]db.Movement, error) {
	template, err := s.Get(templateID)
	if err != nil {
		return nil, err
	}

	resolved := make([]db.Movement, 0, len(template.Movements))
	for _, ref := range template.Movements {
		var movement db.Movement
		err := s.db.Preload("Tags").First(&movement, ref.MovementID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve template movement: %w", err)
		}
		resolved = append(resolved, movement)
	}
	return resolved, nil
}

// Apply 将模板应用到某个训练日：逐个加入尚未出现的动作，
// 并记录模板 ID。重复应用是幂等操作，但仍会补齐后来新增的动作
func (s *TemplateService) Apply(templateID, dayID uint) error {
	template, err := s.Get(templateID)
	if err != nil {
		return err
	}

	var day db.WorkoutDay
	if err := s.db.First(&day, dayID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWorkoutDayNotFound
		}
		return fmt.Errorf("find workout day: %w", err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, ref := range template.Movements {
			var movement db.Movement
			findErr := tx.First(&movement, ref.MovementID).Error
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				continue
			}
			if findErr != nil {
				return fmt.Errorf("resolve template movement: %w", findErr)
			}

			record := db.WorkoutMovement{
				WorkoutDayID: dayID,
				MovementID:   movement.ID,
				Note:         ref.Note,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "workout_day_id"}, {Name: "movement_id"}},
				DoNothing: true,
			}).Create(&record).Error; err != nil {
				return fmt.Errorf("add template movement to day: %w", err)
			}
		}

		applied := db.AppliedTemplate{WorkoutDayID: dayID, WorkoutTemplateID: templateID}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "workout_day_id"}, {Name: "workout_template_id"}},
			DoNothing: true,
		}).Create(&applied).Error; err != nil {
			return fmt.Errorf("record applied template: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Publish(Change{Entity: ChangeWorkout, ID: dayID})
	return nil
}

// RemoveApplied 从某天撤销模板。removeMovements 为 true 时，同时移除当天所有
// 引用了模板动作的 WorkoutMovement（连同训练组）——即使这些动作是手动加入的，
// 数据模型并不区分来源，这是既定行为
func (s *TemplateService) RemoveApplied(templateID, dayID uint, removeMovements bool) error {
	template, err := s.Get(templateID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workout_day_id = ? AND workout_template_id = ?", dayID, templateID).
			Delete(&db.AppliedTemplate{}).Error; err != nil {
			return fmt.Errorf("remove applied template: %w", err)
		}

		if removeMovements {
			if err := removeTemplateMovementsFromDay(tx, template, dayID); err != nil {
				return err
			}
		}
		return clearAppliedTemplatesIfEmpty(tx, dayID)
	})
	if err != nil {
		return err
	}

	s.notifier.Publish(Change{Entity: ChangeWorkout, ID: dayID})
	return nil
}

// Delete 删除模板：先在所有训练日中抹去模板 ID；removeMovementsFromDays 为 true 时，
// 进一步在每一天（不只曾应用过的天）移除引用模板动作的 WorkoutMovement 及其训练组
func (s *TemplateService) Delete(id uint, removeMovementsFromDays bool) error {
	template, err := s.Get(id)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workout_template_id = ?", id).
			Delete(&db.AppliedTemplate{}).Error; err != nil {
			return fmt.Errorf("strip applied template records: %w", err)
		}

		if removeMovementsFromDays {
			var days []db.WorkoutDay
			if err := tx.Find(&days).Error; err != nil {
				return fmt.Errorf("list workout days: %w", err)
			}
			for _, day := range days {
				if err := removeTemplateMovementsFromDay(tx, template, day.ID); err != nil {
					return err
				}
				if err := clearAppliedTemplatesIfEmpty(tx, day.ID); err != nil {
					return err
				}
			}
		}

		if err := tx.Where("workout_template_id = ?", id).
			Delete(&db.TemplateMovement{}).Error; err != nil {
			return fmt.Errorf("delete template movements: %w", err)
		}
		if err := tx.Delete(&db.WorkoutTemplate{}, id).Error; err != nil {
			return fmt.Errorf("delete template: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Publish(Change{Entity: ChangeTemplate, ID: id})
	return nil
}

// removeTemplateMovementsFromDay 移除某天所有引用模板动作的训练动作及其训练组
func removeTemplateMovementsFromDay(tx *gorm.DB, template *db.WorkoutTemplate, dayID uint) error {
	if len(template.Movements) == 0 {
		return nil
	}

	movementIDs := make([]uint, 0, len(template.Movements))
	for _, ref := range template.Movements {
		movementIDs = append(movementIDs, ref.MovementID)
	}

	var occurrences []db.WorkoutMovement
	if err := tx.Where("workout_day_id = ? AND movement_id IN ?", dayID, movementIDs).
		Find(&occurrences).Error; err != nil {
		return fmt.Errorf("list day movements for template: %w", err)
	}

	for _, occurrence := range occurrences {
		if err := deleteWorkoutMovement(tx, occurrence.ID); err != nil {
			return err
		}
	}
	return nil
}

// replaceTemplateMovements 整体替换模板的动作引用，Position 保存顺序
func replaceTemplateMovements(tx *gorm.DB, template *db.WorkoutTemplate, movementIDs []uint, notes map[uint]string) error {
	if err := tx.Where("workout_template_id = ?", template.ID).
		Delete(&db.TemplateMovement{}).Error; err != nil {
		return fmt.Errorf("clear template movements: %w", err)
	}

	seen := make(map[uint]struct{}, len(movementIDs))
	position := 0
	for _, movementID := range movementIDs {
		if _, ok := seen[movementID]; ok {
			continue
		}
		seen[movementID] = struct{}{}

		ref := db.TemplateMovement{
			WorkoutTemplateID: template.ID,
			MovementID:        movementID,
			Position:          position,
			Note:              notes[movementID],
		}
		if err := tx.Create(&ref).Error; err != nil {
			return fmt.Errorf("create template movement: %w", err)
		}
		position++
	}
	return nil
}
