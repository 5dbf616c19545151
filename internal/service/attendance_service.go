package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reptrack/internal/db"
	"gorm.io/gorm"
)

// MaxWeeklyTargets 限制可同时配置的周出勤目标数量
const MaxWeeklyTargets = 4

// WeeklyTarget 表示一条周出勤目标：某个模板每周要完成的次数
type WeeklyTarget struct {
	ID          uuid.UUID `json:"id"`
	TemplateID  uint      `json:"templateId"`
	TargetCount int       `json:"targetCount"`
}

// WeeklySummary 是单个目标在本周的完成情况汇总
type WeeklySummary struct {
	ID             uuid.UUID `json:"id"`
	TemplateID     uint      `json:"templateId"`
	TemplateName   string    `json:"templateName"`
	ColorHex       string    `json:"colorHex"`
	TargetCount    int       `json:"targetCount"`
	CompletedCount int       `json:"completedCount"`
	Progress       float64   `json:"progress"`
	Remaining      int       `json:"remaining"`
}

// AttendanceService 负责周出勤目标的存取与进度汇总。
// 目标列表独立于领域数据，序列化后存放在键值设置表中
type AttendanceService struct {
	db       *gorm.DB
	settings *SettingService
}

// NewAttendanceService 构造 AttendanceService
func NewAttendanceService(gdb *gorm.DB, settings *SettingService) *AttendanceService {
	return &AttendanceService{db: gdb, settings: settings}
}

// Targets 返回当前配置的目标列表
func (s *AttendanceService) Targets() ([]WeeklyTarget, error) {
	raw, err := s.settings.GetRaw(db.SettingKeyWeeklyTargets)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return []WeeklyTarget{}, nil
	}

	var targets []WeeklyTarget
	if err := json.Unmarshal([]byte(raw), &targets); err != nil {
		return nil, fmt.Errorf("decode weekly targets: %w", err)
	}
	return targets, nil
}

// UpdateTargets 整体替换目标列表，超出上限的部分被截断
func (s *AttendanceService) UpdateTargets(targets []WeeklyTarget) ([]WeeklyTarget, error) {
	if len(targets) > MaxWeeklyTargets {
		targets = targets[:MaxWeeklyTargets]
	}

	normalized := make([]WeeklyTarget, 0, len(targets))
	for _, target := range targets {
		if target.TargetCount <= 0 {
			continue
		}
		if target.ID == uuid.Nil {
			target.ID = uuid.New()
		}
		normalized = append(normalized, target)
	}

	if err := s.saveTargets(normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

// Refresh 计算 now 所在自然周的出勤进度。
// 同一天同一模板最多计一次（applied_templates 的唯一索引保证不会重复）；
// 指向已删除模板的目标在这里被修剪并持久化修剪后的列表；
// 目标列表为空且模板库非空时，按 Push/Pull/Legs 各 2 次做一次性默认填充
func (s *AttendanceService) Refresh(now time.Time) ([]WeeklySummary, error) {
	targets, err := s.Targets()
	if err != nil {
		return nil, err
	}

	if len(targets) == 0 {
		targets, err = s.seedDefaultTargets()
		if err != nil {
			return nil, err
		}
	}
	if len(targets) == 0 {
		return []WeeklySummary{}, nil
	}

	startOfWeek, endOfWeek, err := s.weekInterval(now)
	if err != nil {
		return nil, err
	}

	var days []db.WorkoutDay
	if err := s.db.Preload("AppliedTemplates").
		Where("date >= ? AND date < ?", startOfWeek, endOfWeek).
		Find(&days).Error; err != nil {
		return nil, fmt.Errorf("list week days: %w", err)
	}

	counts := make(map[uint]int)
	for _, day := range days {
		seen := make(map[uint]struct{}, len(day.AppliedTemplates))
		for _, applied := range day.AppliedTemplates {
			if _, ok := seen[applied.WorkoutTemplateID]; ok {
				continue
			}
			seen[applied.WorkoutTemplateID] = struct{}{}
			counts[applied.WorkoutTemplateID]++
		}
	}

	var templates []db.WorkoutTemplate
	if err := s.db.Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	templatesByID := make(map[uint]db.WorkoutTemplate, len(templates))
	for _, template := range templates {
		templatesByID[template.ID] = template
	}

	summaries := make([]WeeklySummary, 0, len(targets))
	kept := make([]WeeklyTarget, 0, len(targets))
	pruned := false

	for _, target := range targets {
		template, ok := templatesByID[target.TemplateID]
		if !ok {
			pruned = true
			continue
		}
		kept = append(kept, target)

		completed := counts[target.TemplateID]
		progress := 0.0
		if target.TargetCount > 0 {
			progress = float64(completed) / float64(target.TargetCount)
			if progress > 1.0 {
				progress = 1.0
			}
		}
		remaining := target.TargetCount - completed
		if remaining < 0 {
			remaining = 0
		}

		summaries = append(summaries, WeeklySummary{
			ID:             target.ID,
			TemplateID:     target.TemplateID,
			TemplateName:   template.Name,
			ColorHex:       template.ColorHex,
			TargetCount:    target.TargetCount,
			CompletedCount: completed,
			Progress:       progress,
			Remaining:      remaining,
		})
	}

	if pruned {
		if err := s.saveTargets(kept); err != nil {
			return nil, err
		}
	}

	sort.Slice(summaries, func(i, j int) bool {
		return strings.ToLower(summaries[i].TemplateName) < strings.ToLower(summaries[j].TemplateName)
	})
	return summaries, nil
}

// weekInterval 返回包含 now 的 [周起点, 周终点) 区间，周起始日来自应用设置
func (s *AttendanceService) weekInterval(now time.Time) (time.Time, time.Time, error) {
	settings, err := s.settings.GetSettings()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	firstDay := time.Monday
	if settings.WeekStart == WeekStartSunday {
		firstDay = time.Sunday
	}

	day := normalizeToDate(now)
	offset := (int(day.Weekday()) - int(firstDay) + 7) % 7
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7), nil
}

// seedDefaultTargets 在尚未配置目标时，为名为 Push/Pull/Legs 的模板
// 各填充每周 2 次的默认目标，属于一次性便利而非硬性要求
func (s *AttendanceService) seedDefaultTargets() ([]WeeklyTarget, error) {
	defaults := []string{"Push", "Pull", "Legs"}

	targets := make([]WeeklyTarget, 0, len(defaults))
	for _, name := range defaults {
		var template db.WorkoutTemplate
		if err := s.db.Where("name = ?", name).First(&template).Error; err != nil {
			continue
		}
		targets = append(targets, WeeklyTarget{
			ID:          uuid.New(),
			TemplateID:  template.ID,
			TargetCount: 2,
		})
	}

	if len(targets) == 0 {
		return nil, nil
	}
	if err := s.saveTargets(targets); err != nil {
		return nil, err
	}
	return targets, nil
}

func (s *AttendanceService) saveTargets(targets []WeeklyTarget) error {
	if len(targets) == 0 {
		return s.settings.DeleteRaw(db.SettingKeyWeeklyTargets)
	}

	encoded, err := json.Marshal(targets)
	if err != nil {
		return fmt.Errorf("encode weekly targets: %w", err)
	}
	return s.settings.SetRaw(db.SettingKeyWeeklyTargets, string(encoded))
}
