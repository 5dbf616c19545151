package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/reptrack/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrWorkoutDayNotFound 在指定日期没有训练记录时返回
	ErrWorkoutDayNotFound = errors.New("workout day not found")
	// ErrWorkoutMovementNotFound 在训练动作记录不存在时返回
	ErrWorkoutMovementNotFound = errors.New("workout movement not found")
	// ErrSetNotFound 在指定训练组不存在时返回
	ErrSetNotFound = errors.New("set not found")
	// ErrInvalidSetValues 在重量或次数不为正数时返回。
	// 校验本应由调用方完成，这里作为兜底防止写入非法数据
	ErrInvalidSetValues = errors.New("set weight and reps must be positive")
)

// WorkoutService 负责训练日、训练动作与训练组的读写
type WorkoutService struct {
	db       *gorm.DB
	notifier *Notifier
}

// DayMetadata 描述日历单元格需要的单日摘要信息
type DayMetadata struct {
	HasLoggedSets    bool
	TemplateColorHex string
}

// NewWorkoutService 构造 WorkoutService
func NewWorkoutService(gdb *gorm.DB, notifier *Notifier) *WorkoutService {
	return &WorkoutService{db: gdb, notifier: notifier}
}

// GetOrCreateDay 按归一化日期查找训练日，不存在时创建一条空记录。
// 单写者模型下不存在并发重复创建的问题
func (s *WorkoutService) GetOrCreateDay(date time.Time) (*db.WorkoutDay, error) {
	normalized := normalizeToDate(date)

	var day db.WorkoutDay
	err := s.db.Where("date = ?", normalized).First(&day).Error
	if err == nil {
		return &day, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find workout day: %w", err)
	}

	day = db.WorkoutDay{Date: normalized}
	if err := s.db.Create(&day).Error; err != nil {
		return nil, fmt.Errorf("create workout day: %w", err)
	}
	return &day, nil
}

// DayDetail 返回某天的完整训练内容：动作按加入顺序，组按记录时间升序
func (s *WorkoutService) DayDetail(date time.Time) (*db.WorkoutDay, error) {
	normalized := normalizeToDate(date)

	var day db.WorkoutDay
	err := s.db.
		Preload("Movements", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("workout_movements.created_at ASC")
		}).
		Preload("Movements.Movement").
		Preload("Movements.Sets", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("set_entries.timestamp ASC")
		}).
		Where("date = ?", normalized).
		First(&day).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkoutDayNotFound
		}
		return nil, fmt.Errorf("load workout day: %w", err)
	}
	return &day, nil
}

// AddMovement 将动作加入某天。该动作当天已存在时为空操作，返回已有记录
func (s *WorkoutService) AddMovement(dayID, movementID uint) (*db.WorkoutMovement, error) {
	var existing db.WorkoutMovement
	err := s.db.Where("workout_day_id = ? AND movement_id = ?", dayID, movementID).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find workout movement: %w", err)
	}

	record := db.WorkoutMovement{WorkoutDayID: dayID, MovementID: movementID}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("add movement to day: %w", err)
	}

	s.notifier.Publish(Change{Entity: ChangeWorkout, ID: dayID})
	return &record, nil
}

// RemoveMovement 将训练动作从当天移除并级联删除其全部训练组；
// 若当天再无动作，同时清空已应用模板记录
func (s *WorkoutService) RemoveMovement(workoutMovementID uint) error {
	var record db.WorkoutMovement
	if err := s.db.First(&record, workoutMovementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWorkoutMovementNotFound
		}
		return fmt.Errorf("find workout movement: %w", err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteWorkoutMovement(tx, record.ID); err != nil {
			return err
		}
		return clearAppliedTemplatesIfEmpty(tx, record.WorkoutDayID)
	})
	if err != nil {
		return err
	}

	s.notifier.Publish(Change{Entity: ChangeWorkout, ID: record.WorkoutDayID})
	return nil
}

// UpdateNote 更新训练动作的自由文本备注
func (s *WorkoutService) UpdateNote(workoutMovementID uint, note string) error {
	result := s.db.Model(&db.WorkoutMovement{}).
		Where("id = ?", workoutMovementID).
		Update("note", note)
	if result.Error != nil {
		return fmt.Errorf("update workout movement note: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrWorkoutMovementNotFound
	}

	s.notifier.Publish(Change{Entity: ChangeWorkout, ID: workoutMovementID})
	return nil
}

// AddSet 为训练动作追加一组记录
func (s *WorkoutService) AddSet(workoutMovementID uint, weight float64, reps int, rpe *float64) (*db.SetEntry, error) {
	if weight <= 0 || reps <= 0 {
		return nil, ErrInvalidSetValues
	}

	var parent db.WorkoutMovement
	if err := s.db.First(&parent, workoutMovementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkoutMovementNotFound
		}
		return nil, fmt.Errorf("find workout movement: %w", err)
	}

	set := db.SetEntry{
		WorkoutMovementID: workoutMovementID,
		Weight:            weight,
		Reps:              reps,
		RPE:               rpe,
		Timestamp:         time.Now(),
	}
	if err := s.db.Create(&set).Error; err != nil {
		return nil, fmt.Errorf("add set: %w", err)
	}

	s.notifier.Publish(Change{Entity: ChangeWorkout, ID: parent.WorkoutDayID})
	return &set, nil
}

// UpdateSet 直接修改一组记录的重量、次数与 RPE
func (s *WorkoutService) UpdateSet(setID uint, weight float64, reps int, rpe *float64) (*db.SetEntry, error) {
	if weight <= 0 || reps <= 0 {
		return nil, ErrInvalidSetValues
	}

	var set db.SetEntry
	if err := s.db.First(&set, setID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSetNotFound
		}
		return nil, fmt.Errorf("find set: %w", err)
	}

	set.Weight = weight
	set.Reps = reps
	set.RPE = rpe
	if err := s.db.Save(&set).Error; err != nil {
		return nil, fmt.Errorf("update set: %w", err)
	}

	s.notifier.Publish(Change{Entity: ChangeWorkout, ID: set.WorkoutMovementID})
	return &set, nil
}

// DeleteSet 删除一组记录
func (s *WorkoutService) DeleteSet(setID uint) error {
	result := s.db.Delete(&db.SetEntry{}, setID)
	if result.Error != nil {
		return fmt.Errorf("delete set: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSetNotFound
	}

	s.notifier.Publish(Change{Entity: ChangeWorkout, ID: setID})
	return nil
}

// ToggleTopSet 切换顶组标记：已是顶组则清除；否则先清掉同一训练动作下
// 其他组的标记再设置本组。整个切换在一个事务内完成，外部不会观察到
// 零个或两个顶组的中间状态
func (s *WorkoutService) ToggleTopSet(setID uint) (*db.SetEntry, error) {
	var set db.SetEntry
	if err := s.db.First(&set, setID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSetNotFound
		}
		return nil, fmt.Errorf("find set: %w", err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if set.IsTopSet {
			set.IsTopSet = false
			return tx.Model(&set).Update("is_top_set", false).Error
		}

		if err := tx.Model(&db.SetEntry{}).
			Where("workout_movement_id = ? AND is_top_set = ?", set.WorkoutMovementID, true).
			Update("is_top_set", false).Error; err != nil {
			return err
		}

		set.IsTopSet = true
		return tx.Model(&set).Update("is_top_set", true).Error
	})
	if err != nil {
		return nil, fmt.Errorf("toggle top set: %w", err)
	}

	s.notifier.Publish(Change{Entity: ChangeWorkout, ID: set.WorkoutMovementID})
	return &set, nil
}

// DayMetadataFor 返回日历单元格摘要：当天是否有训练组，以及最近一次应用模板的颜色
func (s *WorkoutService) DayMetadataFor(date time.Time) (DayMetadata, error) {
	normalized := normalizeToDate(date)

	var day db.WorkoutDay
	err := s.db.Where("date = ?", normalized).First(&day).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DayMetadata{}, nil
	}
	if err != nil {
		return DayMetadata{}, fmt.Errorf("find workout day: %w", err)
	}

	var setCount int64
	if err := s.db.Model(&db.SetEntry{}).
		Joins("JOIN workout_movements ON workout_movements.id = set_entries.workout_movement_id").
		Where("workout_movements.workout_day_id = ?", day.ID).
		Count(&setCount).Error; err != nil {
		return DayMetadata{}, fmt.Errorf("count sets: %w", err)
	}

	metadata := DayMetadata{HasLoggedSets: setCount > 0}

	var applied db.AppliedTemplate
	err = s.db.Where("workout_day_id = ?", day.ID).
		Order("created_at DESC").
		First(&applied).Error
	if err == nil {
		var template db.WorkoutTemplate
		if err := s.db.First(&template, applied.WorkoutTemplateID).Error; err == nil {
			metadata.TemplateColorHex = template.ColorHex
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return DayMetadata{}, fmt.Errorf("find applied template: %w", err)
	}

	return metadata, nil
}

// MonthDays 返回指定月份内已有记录的训练日，按日期升序
func (s *WorkoutService) MonthDays(month time.Time) ([]db.WorkoutDay, error) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	end := start.AddDate(0, 1, 0)

	var days []db.WorkoutDay
	if err := s.db.Where("date >= ? AND date < ?", start, end).
		Order("date ASC").
		Find(&days).Error; err != nil {
		return nil, fmt.Errorf("list month days: %w", err)
	}
	return days, nil
}

// deleteWorkoutMovement 删除训练动作及其全部训练组，供级联路径复用
func deleteWorkoutMovement(tx *gorm.DB, workoutMovementID uint) error {
	if err := tx.Where("workout_movement_id = ?", workoutMovementID).
		Delete(&db.SetEntry{}).Error; err != nil {
		return fmt.Errorf("delete sets: %w", err)
	}
	if err := tx.Delete(&db.WorkoutMovement{}, workoutMovementID).Error; err != nil {
		return fmt.Errorf("delete workout movement: %w", err)
	}
	return nil
}

// clearAppliedTemplatesIfEmpty 在某天再无训练动作时清空其已应用模板记录
func clearAppliedTemplatesIfEmpty(tx *gorm.DB, dayID uint) error {
	var remaining int64
	if err := tx.Model(&db.WorkoutMovement{}).
		Where("workout_day_id = ?", dayID).
		Count(&remaining).Error; err != nil {
		return fmt.Errorf("count day movements: %w", err)
	}
	if remaining > 0 {
		return nil
	}

	if err := tx.Where("workout_day_id = ?", dayID).
		Delete(&db.AppliedTemplate{}).Error; err != nil {
		return fmt.Errorf("clear applied templates: %w", err)
	}
	return nil
}

// normalizeToDate 把时间归一化到当天零点，作为训练日的查找键
func normalizeToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
