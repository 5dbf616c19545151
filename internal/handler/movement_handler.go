package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/reptrack/internal/db"
	"github.com/reptrack/internal/service"
)

type movementRequest struct {
	Name string   `json:"name" binding:"required"`
	Tags []string `json:"tags"`
}

// GetMovements 获取动作列表，支持名称搜索与标签过滤（AND 语义）
func (a *API) GetMovements(c *gin.Context) {
	filter := service.MovementFilter{
		Search:   c.Query("search"),
		TagNames: splitTagQuery(c.Query("tags")),
	}

	movements, err := a.movements.List(filter)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取动作列表失败")
		return
	}

	response := make([]gin.H, 0, len(movements))
	for _, movement := range movements {
		response = append(response, movementView(movement))
	}

	c.JSON(http.StatusOK, gin.H{"movements": response})
}

// CreateMovement 创建动作；同名（大小写不敏感）时返回已有记录
func (a *API) CreateMovement(c *gin.Context) {
	var req movementRequest
	if !bindJSON(c, &req, "动作名称不能为空") {
		return
	}

	movement, created, err := a.movements.Create(req.Name, req.Tags)
	if err != nil {
		if errors.Is(err, service.ErrMovementNameRequired) {
			respondError(c, http.StatusBadRequest, "动作名称不能为空")
			return
		}
		respondError(c, http.StatusInternalServerError, "创建动作失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"movement": movementView(*movement),
		"created":  created,
	})
}

// GetMovement 获取单个动作
func (a *API) GetMovement(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的动作ID")
		return
	}

	movement, err := a.movements.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrMovementNotFound) {
			respondError(c, http.StatusNotFound, "动作不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取动作失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"movement": movementView(*movement)})
}

// UpdateMovement 重命名动作并替换标签
func (a *API) UpdateMovement(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的动作ID")
		return
	}

	var req movementRequest
	if !bindJSON(c, &req, "动作名称不能为空") {
		return
	}

	movement, err := a.movements.Update(id, req.Name, req.Tags)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMovementNotFound):
			respondError(c, http.StatusNotFound, "动作不存在")
		case errors.Is(err, service.ErrMovementNameRequired):
			respondError(c, http.StatusBadRequest, "动作名称不能为空")
		default:
			respondError(c, http.StatusInternalServerError, "更新动作失败")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"movement": movementView(*movement)})
}

// DeleteMovement 删除动作并级联清理训练日与模板中的引用
func (a *API) DeleteMovement(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的动作ID")
		return
	}

	if err := a.movements.Delete(id); err != nil {
		if errors.Is(err, service.ErrMovementNotFound) {
			respondError(c, http.StatusNotFound, "动作不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "删除动作失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "动作删除成功"})
}

// PreviewNote 将 Markdown 备注渲染为净化后的 HTML 片段
func (a *API) PreviewNote(c *gin.Context) {
	var req struct {
		Markdown string `json:"markdown"`
	}
	if !bindJSON(c, &req, "无效的请求体") {
		return
	}

	rendered, err := service.RenderNote(req.Markdown)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "渲染备注失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"html": rendered})
}

func movementView(movement db.Movement) gin.H {
	tags := make([]string, 0, len(movement.Tags))
	for _, tag := range movement.Tags {
		tags = append(tags, tag.Name)
	}
	return gin.H{
		"id":        movement.ID,
		"name":      movement.Name,
		"tags":      tags,
		"createdAt": movement.CreatedAt,
	}
}

func splitTagQuery(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
