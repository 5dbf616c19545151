package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reptrack/internal/db"
	"github.com/reptrack/internal/service"
)

type templateRequest struct {
	Name        string          `json:"name" binding:"required"`
	MovementIDs []uint          `json:"movementIds"`
	Notes       map[uint]string `json:"notes"`
	ColorHex    string          `json:"colorHex"`
}

type templateUpdateRequest struct {
	Name        *string         `json:"name"`
	MovementIDs []uint          `json:"movementIds"`
	Notes       map[uint]string `json:"notes"`
	ColorHex    *string         `json:"colorHex"`
}

// GetTemplates 获取模板列表
func (a *API) GetTemplates(c *gin.Context) {
	templates, err := a.templates.List()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取模板列表失败")
		return
	}

	response := make([]gin.H, 0, len(templates))
	for _, template := range templates {
		response = append(response, templateView(template))
	}

	c.JSON(http.StatusOK, gin.H{"templates": response})
}

// CreateTemplate 创建模板
func (a *API) CreateTemplate(c *gin.Context) {
	var req templateRequest
	if !bindJSON(c, &req, "模板名称不能为空") {
		return
	}

	template, err := a.templates.Create(req.Name, req.MovementIDs, req.Notes, req.ColorHex)
	if err != nil {
		if errors.Is(err, service.ErrTemplateNameRequired) {
			respondError(c, http.StatusBadRequest, "模板名称不能为空")
			return
		}
		respondError(c, http.StatusInternalServerError, "创建模板失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"template": templateView(*template)})
}

// UpdateTemplate 部分更新模板：请求中未出现的字段保持不变
func (a *API) UpdateTemplate(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的模板ID")
		return
	}

	var req templateUpdateRequest
	if !bindJSON(c, &req, "无效的请求体") {
		return
	}

	template, err := a.templates.Update(id, service.TemplateUpdate{
		Name:        req.Name,
		MovementIDs: req.MovementIDs,
		Notes:       req.Notes,
		ColorHex:    req.ColorHex,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTemplateNotFound):
			respondError(c, http.StatusNotFound, "模板不存在")
		case errors.Is(err, service.ErrTemplateNameRequired):
			respondError(c, http.StatusBadRequest, "模板名称不能为空")
		default:
			respondError(c, http.StatusInternalServerError, "更新模板失败")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"template": templateView(*template)})
}

// GetTemplateMovements 按模板内顺序解析动作引用，悬空引用被静默跳过
func (a *API) GetTemplateMovements(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的模板ID")
		return
	}

	movements, err := a.templates.ResolveMovements(id)
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			respondError(c, http.StatusNotFound, "模板不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "解析模板动作失败")
		return
	}

	response := make([]gin.H, 0, len(movements))
	for _, movement := range movements {
		response = append(response, movementView(movement))
	}

	c.JSON(http.StatusOK, gin.H{"movements": response})
}

// ApplyTemplate 将模板应用到指定日期（幂等）
func (a *API) ApplyTemplate(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的模板ID")
		return
	}

	var req struct {
		Date string `json:"date"`
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

	if err := a.templates.Apply(id, day.ID); err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			respondError(c, http.StatusNotFound, "模板不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "应用模板失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "模板应用成功"})
}

// RemoveAppliedTemplate 从指定日期撤销模板，可选择同时移除模板相关动作
func (a *API) RemoveAppliedTemplate(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的模板ID")
		return
	}

	var req struct {
		Date            string `json:"date"`
		RemoveMovements bool   `json:"removeMovements"`
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

	if err := a.templates.RemoveApplied(id, day.ID, req.RemoveMovements); err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			respondError(c, http.StatusNotFound, "模板不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "撤销模板失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "模板已撤销"})
}

// DeleteTemplate 删除模板，removeMovements=true 时同时清理各天的相关动作
func (a *API) DeleteTemplate(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的模板ID")
		return
	}

	removeMovements := c.Query("removeMovements") == "true"

	if err := a.templates.Delete(id, removeMovements); err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			respondError(c, http.StatusNotFound, "模板不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "删除模板失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "模板删除成功"})
}

func templateView(template db.WorkoutTemplate) gin.H {
	movementIDs := make([]uint, 0, len(template.Movements))
	notes := make(map[uint]string)
	for _, ref := range template.Movements {
		movementIDs = append(movementIDs, ref.MovementID)
		if ref.Note != "" {
			notes[ref.MovementID] = ref.Note
		}
	}

	return gin.H{
		"id":          template.ID,
		"name":        template.Name,
		"colorHex":    template.ColorHex,
		"movementIds": movementIDs,
		"notes":       notes,
	}
}
