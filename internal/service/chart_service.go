package service

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/reptrack/internal/db"
	"gorm.io/gorm"
)

// 图表模式常量，对应三种"指定重量下"的时间序列
const (
	ChartModeTopSetReps  = "top_set_reps"
	ChartModeAverageReps = "average_reps"
	ChartModeVolume      = "volume"
)

// ErrUnknownChartMode 在图表模式不受支持时返回
var ErrUnknownChartMode = errors.New("unknown chart mode")

// ChartPoint 是图表序列中的一个点，按训练日日期取值（而非单组时间戳）
type ChartPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ChartService 负责进度图表的序列计算。
// 重量匹配使用 ±0.5% 的相对容差带（闭区间），非绝对值
type ChartService struct {
	db *gorm.DB
}

// NewChartService 构造 ChartService
func NewChartService(gdb *gorm.DB) *ChartService {
	return &ChartService{db: gdb}
}

// dailySet 是某动作在某天的一组记录，date 取训练日日期
type dailySet struct {
	date time.Time
	set  db.SetEntry
}

// AvailableWeights 返回该动作历史上出现过的全部重量，升序去重。
// 去重精度约为 0.001（绝对值），避免浮点噪声产生重复选项
func (s *ChartService) AvailableWeights(movementID uint) ([]float64, error) {
	sets, err := s.movementSets(movementID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{})
	weights := make([]float64, 0, len(sets))
	for _, entry := range sets {
		key := int64(math.Round(entry.set.Weight * 1000))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		weights = append(weights, entry.set.Weight)
	}

	sort.Float64s(weights)
	return weights, nil
}

// SyncTargetWeight 校正目标重量：当前值仍在可选列表中则原样返回，
// 否则回退到最大的可用重量（列表为空时返回当前值）
func (s *ChartService) SyncTargetWeight(movementID uint, current float64) (float64, error) {
	weights, err := s.AvailableWeights(movementID)
	if err != nil {
		return current, err
	}
	if len(weights) == 0 {
		return current, nil
	}

	for _, weight := range weights {
		if math.Abs(weight-current) < 0.001 {
			return current, nil
		}
	}
	return weights[len(weights)-1], nil
}

// Series 按模式分发三种序列计算
func (s *ChartService) Series(movementID uint, mode string, targetWeight float64) ([]ChartPoint, error) {
	switch mode {
	case ChartModeTopSetReps:
		return s.TopSetRepsAtWeight(movementID, targetWeight)
	case ChartModeAverageReps:
		return s.AverageRepsAtWeight(movementID, targetWeight)
	case ChartModeVolume:
		return s.VolumeAtWeight(movementID, targetWeight)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownChartMode, mode)
	}
}

// TopSetRepsAtWeight 输出每个训练日中容差带内顶组的次数。
// 每天至多一个点：一天内该动作最多出现一次，而顶组至多一个
func (s *ChartService) TopSetRepsAtWeight(movementID uint, targetWeight float64) ([]ChartPoint, error) {
	sets, err := s.movementSets(movementID)
	if err != nil {
		return nil, err
	}

	minWeight, maxWeight := weightBand(targetWeight)

	points := make([]ChartPoint, 0)
	for _, entry := range sets {
		if !entry.set.IsTopSet {
			continue
		}
		if entry.set.Weight < minWeight || entry.set.Weight > maxWeight {
			continue
		}
		points = append(points, ChartPoint{Date: entry.date, Value: float64(entry.set.Reps)})
	}

	sortPointsByDate(points)
	return points, nil
}

// AverageRepsAtWeight 输出每个训练日中容差带内所有组的平均次数，
// 没有带内组的天被省略而不是输出零
func (s *ChartService) AverageRepsAtWeight(movementID uint, targetWeight float64) ([]ChartPoint, error) {
	sets, err := s.movementSets(movementID)
	if err != nil {
		return nil, err
	}

	minWeight, maxWeight := weightBand(targetWeight)

	type aggregate struct {
		total float64
		count int
	}
	perDay := make(map[time.Time]*aggregate)

	for _, entry := range sets {
		if entry.set.Weight < minWeight || entry.set.Weight > maxWeight {
			continue
		}
		agg, ok := perDay[entry.date]
		if !ok {
			agg = &aggregate{}
			perDay[entry.date] = agg
		}
		agg.total += float64(entry.set.Reps)
		agg.count++
	}

	points := make([]ChartPoint, 0, len(perDay))
	for date, agg := range perDay {
		points = append(points, ChartPoint{Date: date, Value: agg.total / float64(agg.count)})
	}

	sortPointsByDate(points)
	return points, nil
}

// VolumeAtWeight 输出每个训练日中容差带内所有组的重量×次数总和
func (s *ChartService) VolumeAtWeight(movementID uint, targetWeight float64) ([]ChartPoint, error) {
	sets, err := s.movementSets(movementID)
	if err != nil {
		return nil, err
	}

	minWeight, maxWeight := weightBand(targetWeight)

	perDay := make(map[time.Time]float64)
	for _, entry := range sets {
		if entry.set.Weight < minWeight || entry.set.Weight > maxWeight {
			continue
		}
		perDay[entry.date] += entry.set.Weight * float64(entry.set.Reps)
	}

	points := make([]ChartPoint, 0, len(perDay))
	for date, total := range perDay {
		points = append(points, ChartPoint{Date: date, Value: total})
	}

	sortPointsByDate(points)
	return points, nil
}

// movementSets 收集该动作在所有训练日中的全部训练组，并带上训练日日期
func (s *ChartService) movementSets(movementID uint) ([]dailySet, error) {
	var occurrences []db.WorkoutMovement
	err := s.db.Preload("Sets").
		Where("movement_id = ?", movementID).
		Find(&occurrences).Error
	if err != nil {
		return nil, fmt.Errorf("list movement occurrences: %w", err)
	}

	result := make([]dailySet, 0)
	for _, occurrence := range occurrences {
		var day db.WorkoutDay
		if err := s.db.First(&day, occurrence.WorkoutDayID).Error; err != nil {
			return nil, fmt.Errorf("load workout day: %w", err)
		}
		for _, set := range occurrence.Sets {
			result = append(result, dailySet{date: day.Date, set: set})
		}
	}
	return result, nil
}

// weightBand 返回目标重量的 ±0.5% 容差带（闭区间）
func weightBand(targetWeight float64) (float64, float64) {
	tolerance := targetWeight * 0.005
	return targetWeight - tolerance, targetWeight + tolerance
}

func sortPointsByDate(points []ChartPoint) {
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
}
