package main

import (
	"log"

	"github.com/reptrack/internal/config"
	"github.com/reptrack/internal/db"
	"github.com/reptrack/internal/router"
	"github.com/reptrack/internal/seed"
)

func main() {
	cfg := config.Load()

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// 可选的本地账号
	if err := db.EnsureUser(cfg.AdminUserName, cfg.AdminPassword); err != nil {
		log.Fatalf("failed to ensure admin user: %v", err)
	}

	// 开发模式下填充演示数据
	if cfg.SeedDemoData {
		if err := seed.Run(db.DB); err != nil {
			log.Fatalf("failed to seed demo data: %v", err)
		}
	}

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(cfg)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
