package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reptrack/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrMovementNotFound 在指定动作不存在时返回
	ErrMovementNotFound = errors.New("movement not found")
	// ErrMovementNameRequired 在动作名称去除空白后为空时返回
	ErrMovementNameRequired = errors.New("movement name is required")
)

// MovementService 负责动作库的增删改查与跨实体级联清理
type MovementService struct {
	db       *gorm.DB
	notifier *Notifier
}

// MovementFilter 描述动作列表的过滤条件。
// Search 为大小写不敏感的子串匹配；TagNames 要求动作标签是其超集（AND 语义）
type MovementFilter struct {
	Search   string
	TagNames []string
}

// NewMovementService 构造 MovementService
func NewMovementService(gdb *gorm.DB, notifier *Notifier) *MovementService {
	return &MovementService{db: gdb, notifier: notifier}
}

// Create 新建动作。名称先去除首尾空白；若已存在大小写不敏感的同名动作，
// 返回已有记录而不是创建重复项，created 标识本次是否真正插入
func (s *MovementService) Create(name string, tagNames []string) (movement *db.Movement, created bool, err error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, false, ErrMovementNameRequired
	}

	var existing db.Movement
	findErr := s.db.Preload("Tags").
		Where("LOWER(name) = LOWER(?)", trimmed).
		First(&existing).Error
	if findErr == nil {
		return &existing, false, nil
	}
	if !errors.Is(findErr, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("find movement by name: %w", findErr)
	}

	tags, err := s.ensureTags(s.db, tagNames)
	if err != nil {
		return nil, false, err
	}

	record := db.Movement{Name: trimmed, Tags: tags}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, false, fmt.Errorf("create movement: %w", err)
	}

	s.notifier.Publish(Change{Entity: ChangeMovement, ID: record.ID})
	return &record, true, nil
}

// Get 根据 ID 获取动作
func (s *MovementService) Get(id uint) (*db.Movement, error) {
	var movement db.Movement
	if err := s.db.Preload("Tags").First(&movement, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMovementNotFound
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return &movement, nil
}

// Update 重命名动作并整体替换其标签集合
func (s *MovementService) Update(id uint, name string, tagNames []string) (*db.Movement, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, ErrMovementNameRequired
	}

	var existing db.Movement
	if err := s.db.Preload("Tags").First(&existing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMovementNotFound
		}
		return nil, fmt.Errorf("find movement: %w", err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		tags, err := s.ensureTags(tx, tagNames)
		if err != nil {
			return err
		}

		existing.Name = trimmed
		if err := tx.Save(&existing).Error; err != nil {
			return fmt.Errorf("update movement: %w", err)
		}
		if err := tx.Model(&existing).Association("Tags").Replace(tags); err != nil {
			return fmt.Errorf("replace movement tags: %w", err)
		}
		existing.Tags = tags
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(Change{Entity: ChangeMovement, ID: existing.ID})
	return &existing, nil
}

// List 返回匹配过滤条件的动作集合，按创建时间升序
func (s *MovementService) List(filter MovementFilter) ([]db.Movement, error) {
	query := s.db.Model(&db.Movement{}).Preload("Tags")

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := fmt.Sprintf("%%%s%%", search)
		query = query.Where("name LIKE ? COLLATE NOCASE", like)
	}

	tagNames := normalizeTagNames(filter.TagNames)
	if len(tagNames) > 0 {
		// AND 语义：动作必须带上过滤集合里的每一个标签
		query = query.
			Joins("JOIN movement_tags ON movement_tags.movement_id = movements.id").
			Joins("JOIN tags ON tags.id = movement_tags.tag_id").
			Where("tags.name IN ?", tagNames).
			Group("movements.id").
			Having("COUNT(DISTINCT tags.name) = ?", len(tagNames))
	}

	var movements []db.Movement
	if err := query.Order("movements.created_at ASC").Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return movements, nil
}

// Delete 删除动作并级联清理所有引用：
// 各天的 WorkoutMovement（先删 sets）、因此清空的天的已应用模板记录、
// 以及所有模板中的动作引用（连同按动作保存的备注）。整个过程在一个事务内完成，
// 中途失败不会留下指向已删除动作的引用
func (s *MovementService) Delete(id uint) error {
	var movement db.Movement
	if err := s.db.First(&movement, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMovementNotFound
		}
		return fmt.Errorf("find movement: %w", err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var occurrences []db.WorkoutMovement
		if err := tx.Where("movement_id = ?", id).Find(&occurrences).Error; err != nil {
			return fmt.Errorf("list movement occurrences: %w", err)
		}

		affectedDayIDs := make([]uint, 0, len(occurrences))
		for _, occurrence := range occurrences {
			if err := deleteWorkoutMovement(tx, occurrence.ID); err != nil {
				return err
			}
			affectedDayIDs = append(affectedDayIDs, occurrence.WorkoutDayID)
		}

		for _, dayID := range affectedDayIDs {
			if err := clearAppliedTemplatesIfEmpty(tx, dayID); err != nil {
				return err
			}
		}

		if err := tx.Where("movement_id = ?", id).
			Delete(&db.TemplateMovement{}).Error; err != nil {
			return fmt.Errorf("strip movement from templates: %w", err)
		}

		if err := tx.Model(&movement).Association("Tags").Clear(); err != nil {
			return fmt.Errorf("clear movement tags: %w", err)
		}

		if err := tx.Delete(&db.Movement{}, id).Error; err != nil {
			return fmt.Errorf("delete movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Publish(Change{Entity: ChangeMovement, ID: id})
	return nil
}

// ensureTags 按名称查找或创建标签，保持传入顺序并去重
func (s *MovementService) ensureTags(tx *gorm.DB, tagNames []string) ([]db.Tag, error) {
	names := normalizeTagNames(tagNames)
	tags := make([]db.Tag, 0, len(names))

	for _, name := range names {
		var tag db.Tag
		err := tx.Where("name = ?", name).First(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tag = db.Tag{Name: name}
			if err := tx.Create(&tag).Error; err != nil {
				return nil, fmt.Errorf("create tag %s: %w", name, err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("find tag %s: %w", name, err)
		}
		tags = append(tags, tag)
	}

	return tags, nil
}

func normalizeTagNames(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	names := make([]string, 0, len(raw))
	for _, name := range raw {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		names = append(names, trimmed)
	}
	return names
}
