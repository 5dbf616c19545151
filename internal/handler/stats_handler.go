package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/reptrack/internal/service"
)

// GetWeeklyProgress 返回本周出勤进度汇总
func (a *API) GetWeeklyProgress(c *gin.Context) {
	summaries, err := a.attendance.Refresh(time.Now())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取周进度失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"summaries": summaries})
}

// GetWeeklyTargets 返回当前配置的周出勤目标
func (a *API) GetWeeklyTargets(c *gin.Context) {
	targets, err := a.attendance.Targets()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取周目标失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"targets": targets})
}

// UpdateWeeklyTargets 整体替换周出勤目标（最多 4 条）
func (a *API) UpdateWeeklyTargets(c *gin.Context) {
	var req struct {
		Targets []struct {
			ID          string `json:"id"`
			TemplateID  uint   `json:"templateId" binding:"required"`
			TargetCount int    `json:"targetCount" binding:"required"`
		} `json:"targets"`
	}
	if !bindJSON(c, &req, "无效的请求体") {
		return
	}

	targets := make([]service.WeeklyTarget, 0, len(req.Targets))
	for _, item := range req.Targets {
		id := uuid.Nil
		if trimmed := strings.TrimSpace(item.ID); trimmed != "" {
			parsed, err := uuid.Parse(trimmed)
			if err != nil {
				respondError(c, http.StatusBadRequest, "无效的目标ID")
				return
			}
			id = parsed
		}
		targets = append(targets, service.WeeklyTarget{
			ID:          id,
			TemplateID:  item.TemplateID,
			TargetCount: item.TargetCount,
		})
	}

	saved, err := a.attendance.UpdateTargets(targets)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "保存周目标失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"targets": saved})
}

// GetAvailableWeights 返回某动作可选的目标重量列表
func (a *API) GetAvailableWeights(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的动作ID")
		return
	}

	weights, err := a.charts.AvailableWeights(id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取重量列表失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"weights": weights})
}

// GetChartSeries 按模式返回进度图表序列
func (a *API) GetChartSeries(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的动作ID")
		return
	}

	weight, err := strconv.ParseFloat(strings.TrimSpace(c.Query("weight")), 64)
	if err != nil || weight <= 0 {
		respondError(c, http.StatusBadRequest, "无效的目标重量")
		return
	}

	// 所选重量可能因记录被删改而失效，先校正再计算序列
	synced, err := a.charts.SyncTargetWeight(id, weight)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "计算图表数据失败")
		return
	}

	mode := strings.TrimSpace(c.Query("mode"))
	points, err := a.charts.Series(id, mode, synced)
	if err != nil {
		if errors.Is(err, service.ErrUnknownChartMode) {
			respondError(c, http.StatusBadRequest, "不支持的图表模式")
			return
		}
		respondError(c, http.StatusInternalServerError, "计算图表数据失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"weight": synced, "points": points})
}
