package router

import (
	"log"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/reptrack/internal/config"
	"github.com/reptrack/internal/db"
	"github.com/reptrack/internal/handler"
	"github.com/reptrack/internal/service"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(cfg config.AppConfig) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("reptrack_session", store))

	// 静态文件服务（上传的进度照片等）
	r.Static(cfg.UploadURLPath, cfg.UploadDir)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	api := handler.NewAPI(db.DB, cfg.UploadDir, cfg.UploadURLPath)

	// 数据变更时输出一条日志，方便本机排查问题
	api.Notifier().Subscribe(func(change service.Change) {
		log.Printf("data changed: %s #%d", change.Entity, change.ID)
	})

	r.POST("/login", handler.Login)
	r.GET("/logout", handler.Logout)

	// 配置了本地账号时要求登录，否则单用户本机免登录
	group := r.Group("/api")
	if cfg.AdminUserName != "" && cfg.AdminPassword != "" {
		group.Use(handler.AuthRequired())
	}
	{
		group.GET("/movements", api.GetMovements)
		group.POST("/movements", api.CreateMovement)
		group.GET("/movements/:id", api.GetMovement)
		group.PUT("/movements/:id", api.UpdateMovement)
		group.DELETE("/movements/:id", api.DeleteMovement)
		group.GET("/movements/:id/weights", api.GetAvailableWeights)
		group.GET("/movements/:id/chart", api.GetChartSeries)

		group.GET("/day", api.GetDay)
		group.GET("/day/metadata", api.GetDayMetadata)
		group.GET("/day/month", api.GetMonthDays)
		group.POST("/day/movements", api.AddMovementToDay)
		group.DELETE("/day/movements/:id", api.RemoveMovementFromDay)
		group.PUT("/day/movements/:id/note", api.UpdateWorkoutNote)
		group.POST("/day/movements/:id/sets", api.AddSet)
		group.PUT("/sets/:id", api.UpdateSet)
		group.DELETE("/sets/:id", api.DeleteSet)
		group.POST("/sets/:id/top", api.ToggleTopSet)

		group.GET("/templates", api.GetTemplates)
		group.POST("/templates", api.CreateTemplate)
		group.PUT("/templates/:id", api.UpdateTemplate)
		group.GET("/templates/:id/movements", api.GetTemplateMovements)
		group.POST("/templates/:id/apply", api.ApplyTemplate)
		group.POST("/templates/:id/remove-applied", api.RemoveAppliedTemplate)
		group.DELETE("/templates/:id", api.DeleteTemplate)

		group.GET("/weekly/progress", api.GetWeeklyProgress)
		group.GET("/weekly/targets", api.GetWeeklyTargets)
		group.PUT("/weekly/targets", api.UpdateWeeklyTargets)

		group.GET("/settings", api.GetSettings)
		group.PUT("/settings", api.UpdateSettings)

		group.POST("/upload", api.UploadPhoto)
		group.POST("/notes/preview", api.PreviewNote)
	}

	return r
}
