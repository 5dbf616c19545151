package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/reptrack/internal/db"
	"github.com/reptrack/internal/service"
)

type setRequest struct {
	Weight float64  `json:"weight" binding:"required"`
	Reps   int      `json:"reps" binding:"required"`
	RPE    *float64 `json:"rpe"`
}

// GetDay 获取某天的训练内容，不存在时按需创建空训练日
func (a *API) GetDay(c *gin.Context) {
	date, err := parseDateQuery(c, "date")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日期")
		return
	}

	day, err := a.workouts.GetOrCreateDay(date)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取训练日失败")
		return
	}

	detail, err := a.workouts.DayDetail(day.Date)
	if err != nil {
		if errors.Is(err, service.ErrWorkoutDayNotFound) {
			c.JSON(http.StatusOK, gin.H{"day": dayView(*day, nil)})
			return
		}
		respondError(c, http.StatusInternalServerError, "获取训练日失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"day": dayView(*detail, detail.Movements)})
}

// GetDayMetadata 获取日历单元格摘要
func (a *API) GetDayMetadata(c *gin.Context) {
	date, err := parseDateQuery(c, "date")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日期")
		return
	}

	metadata, err := a.workouts.DayMetadataFor(date)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取日历数据失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hasLoggedSets":    metadata.HasLoggedSets,
		"templateColorHex": metadata.TemplateColorHex,
	})
}

// GetMonthDays 返回某月内已有记录的训练日日期，供日历视图标记
func (a *API) GetMonthDays(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("month"))
	month := time.Now()
	if raw != "" {
		parsed, err := time.ParseInLocation("2006-01", raw, time.Local)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的月份")
			return
		}
		month = parsed
	}

	days, err := a.workouts.MonthDays(month)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取月份数据失败")
		return
	}

	dates := make([]string, 0, len(days))
	for _, day := range days {
		dates = append(dates, day.Date.Format("2006-01-02"))
	}

	c.JSON(http.StatusOK, gin.H{"dates": dates})
}

// AddMovementToDay 将动作加入当天（幂等）
func (a *API) AddMovementToDay(c *gin.Context) {
	var req struct {
		Date       string `json:"date"`
		MovementID uint   `json:"movementId" binding:"required"`
	}
	if !bindJSON(c, &req, "无效的请求体") {
		return
	}

	date, err := parseDateBody(req.Date)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日期")
		return
	}

	day, err := a.workouts.GetOrCreateDay(date)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取训练日失败")
		return
	}

	record, err := a.workouts.AddMovement(day.ID, req.MovementID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "添加动作失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"workoutMovement": gin.H{
		"id":         record.ID,
		"movementId": record.MovementID,
	}})
}

// RemoveMovementFromDay 从当天移除动作及其全部训练组
func (a *API) RemoveMovementFromDay(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的记录ID")
		return
	}

	if err := a.workouts.RemoveMovement(id); err != nil {
		if errors.Is(err, service.ErrWorkoutMovementNotFound) {
			respondError(c, http.StatusNotFound, "训练动作不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "移除动作失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "动作已移除"})
}

// UpdateWorkoutNote 更新训练动作备注
func (a *API) UpdateWorkoutNote(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的记录ID")
		return
	}

	var req struct {
		Note string `json:"note"`
	}
	if !bindJSON(c, &req, "无效的请求体") {
		return
	}

	if err := a.workouts.UpdateNote(id, req.Note); err != nil {
		if errors.Is(err, service.ErrWorkoutMovementNotFound) {
			respondError(c, http.StatusNotFound, "训练动作不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "更新备注失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "备注已更新"})
}

// AddSet 为训练动作记录一组
func (a *API) AddSet(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的记录ID")
		return
	}

	var req setRequest
	if !bindJSON(c, &req, "重量和次数不能为空") {
		return
	}

	set, err := a.workouts.AddSet(id, req.Weight, req.Reps, req.RPE)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWorkoutMovementNotFound):
			respondError(c, http.StatusNotFound, "训练动作不存在")
		case errors.Is(err, service.ErrInvalidSetValues):
			respondError(c, http.StatusBadRequest, "重量和次数必须为正数")
		default:
			respondError(c, http.StatusInternalServerError, "记录训练组失败")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"set": setView(*set)})
}

// UpdateSet 修改一组记录
func (a *API) UpdateSet(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的记录ID")
		return
	}

	var req setRequest
	if !bindJSON(c, &req, "重量和次数不能为空") {
		return
	}

	set, err := a.workouts.UpdateSet(id, req.Weight, req.Reps, req.RPE)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSetNotFound):
			respondError(c, http.StatusNotFound, "训练组不存在")
		case errors.Is(err, service.ErrInvalidSetValues):
			respondError(c, http.StatusBadRequest, "重量和次数必须为正数")
		default:
			respondError(c, http.StatusInternalServerError, "更新训练组失败")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"set": setView(*set)})
}

// DeleteSet 删除一组记录
func (a *API) DeleteSet(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的记录ID")
		return
	}

	if err := a.workouts.DeleteSet(id); err != nil {
		if errors.Is(err, service.ErrSetNotFound) {
			respondError(c, http.StatusNotFound, "训练组不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "删除训练组失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "训练组已删除"})
}

// ToggleTopSet 切换顶组标记
func (a *API) ToggleTopSet(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的记录ID")
		return
	}

	set, err := a.workouts.ToggleTopSet(id)
	if err != nil {
		if errors.Is(err, service.ErrSetNotFound) {
			respondError(c, http.StatusNotFound, "训练组不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "切换顶组失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"set": setView(*set)})
}

func dayView(day db.WorkoutDay, movements []db.WorkoutMovement) gin.H {
	views := make([]gin.H, 0, len(movements))
	for _, movement := range movements {
		sets := make([]gin.H, 0, len(movement.Sets))
		for _, set := range movement.Sets {
			sets = append(sets, setView(set))
		}
		views = append(views, gin.H{
			"id":       movement.ID,
			"movement": movementView(movement.Movement),
			"note":     movement.Note,
			"sets":     sets,
		})
	}

	return gin.H{
		"id":        day.ID,
		"date":      day.Date.Format("2006-01-02"),
		"movements": views,
	}
}

func setView(set db.SetEntry) gin.H {
	return gin.H{
		"id":        set.ID,
		"weight":    set.Weight,
		"reps":      set.Reps,
		"rpe":       set.RPE,
		"timestamp": set.Timestamp,
		"isTopSet":  set.IsTopSet,
	}
}
