package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reptrack/internal/service"
)

// GetSettings 获取应用设置
func (a *API) GetSettings(c *gin.Context) {
	settings, err := a.settings.GetSettings()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取设置失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"theme":     settings.Theme,
		"weekStart": settings.WeekStart,
	})
}

// UpdateSettings 保存应用设置
func (a *API) UpdateSettings(c *gin.Context) {
	var req struct {
		Theme     string `json:"theme"`
		WeekStart string `json:"weekStart"`
	}
	if !bindJSON(c, &req, "无效的请求体") {
		return
	}

	saved, err := a.settings.UpdateSettings(service.AppSettings{
		Theme:     req.Theme,
		WeekStart: req.WeekStart,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "保存设置失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"theme":     saved.Theme,
		"weekStart": saved.WeekStart,
	})
}
