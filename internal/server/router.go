package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/skillpath/skillpath-backend/internal/handlers"
	"github.com/skillpath/skillpath-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler    *handlers.AuthHandler
	AuthMiddleware middleware.AuthMiddleware
	ProfileHandler *handlers.ProfileHandler
	SkillHandler   *handlers.SkillHandler
	TaskHandler    *handlers.TaskHandler
	PlanHandler    *handlers.PlanHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.Healthcheck)
	api := router.Group("/api")
	{
		api.POST("/register", cfg.AuthHandler.Register)
		api.POST("/login", cfg.AuthHandler.Login)
	}

	// Protected
	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	// Auth
	protected.POST("/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/logout", cfg.AuthHandler.Logout)

	// Profile
	protected.GET("/profile", cfg.ProfileHandler.Get)
	protected.PUT("/profile", cfg.ProfileHandler.Update)

	// Skills
	protected.POST("/skills", cfg.SkillHandler.Create)
	protected.GET("/skills", cfg.SkillHandler.List)
	protected.GET("/skills/:id", cfg.SkillHandler.Get)
	protected.PUT("/skills/:id", cfg.SkillHandler.Update)
	protected.DELETE("/skills/:id", cfg.SkillHandler.Delete)
	protected.POST("/skills/:id/recalculate-progress", cfg.SkillHandler.RecalculateProgress)
	protected.POST("/skills/:id/complete-topic", cfg.SkillHandler.CompleteTopic)

	// Tasks
	protected.POST("/tasks", cfg.TaskHandler.Create)
	protected.POST("/tasks/bulk", cfg.TaskHandler.BulkCreate)
	protected.GET("/tasks", cfg.TaskHandler.List)
	protected.GET("/tasks/today", cfg.TaskHandler.Today)
	protected.GET("/tasks/missed", cfg.TaskHandler.Missed)
	protected.GET("/tasks/:id", cfg.TaskHandler.Get)
	protected.PUT("/tasks/:id", cfg.TaskHandler.Update)
	protected.POST("/tasks/:id/complete", cfg.TaskHandler.Complete)
	protected.POST("/tasks/:id/reschedule", cfg.TaskHandler.Reschedule)
	protected.DELETE("/tasks/:id", cfg.TaskHandler.Delete)

	// Planning
	protected.POST("/plan/generate", cfg.PlanHandler.GeneratePlan)
	protected.POST("/plan/preview-topics", cfg.PlanHandler.PreviewTopics)
	protected.POST("/plan/detect-missed", cfg.PlanHandler.DetectMissed)
	protected.POST("/plan/replan-missed", cfg.PlanHandler.ReplanMissed)
	protected.POST("/plan/replan-skill/:id", cfg.PlanHandler.ReplanSkill)
	protected.POST("/plan/reflow", cfg.PlanHandler.Reflow)

	return router
}
