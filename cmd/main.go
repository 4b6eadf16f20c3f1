package main

import (
	"fmt"
	"os"
	"time"

	"github.com/skillpath/skillpath-backend/internal/db"
	"github.com/skillpath/skillpath-backend/internal/handlers"
	"github.com/skillpath/skillpath-backend/internal/logger"
	"github.com/skillpath/skillpath-backend/internal/middleware"
	"github.com/skillpath/skillpath-backend/internal/repos"
	"github.com/skillpath/skillpath-backend/internal/server"
	"github.com/skillpath/skillpath-backend/internal/services"
	"github.com/skillpath/skillpath-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	minSessionMinutes := utils.GetEnvAsInt("MIN_SESSION_MINUTES", 15, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	skillRepo := repos.NewSkillRepo(thePG, log)
	skillTopicRepo := repos.NewSkillTopicRepo(thePG, log)
	taskRepo := repos.NewTaskRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	topicGenerator, err := services.NewGenAIClient(log)
	if err != nil {
		log.Warn("Could not init topic generator, falling back to rule-based plans", "error", err)
		topicGenerator = nil
	}
	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	scheduleService := services.NewScheduleService(thePG, log, userRepo, taskRepo)
	reflowService := services.NewReflowService(thePG, log, userRepo, skillRepo, taskRepo, minSessionMinutes)
	replanService := services.NewReplanService(thePG, log, taskRepo, skillRepo, skillTopicRepo, scheduleService)
	userService := services.NewUserService(thePG, log, userRepo, reflowService)
	skillService := services.NewSkillService(thePG, log, userRepo, skillRepo, skillTopicRepo, taskRepo, reflowService)
	taskService := services.NewTaskService(thePG, log, taskRepo, skillRepo, skillService)
	planService := services.NewPlanService(thePG, log, userRepo, skillRepo, skillTopicRepo, taskRepo, topicGenerator, reflowService)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	profileHandler := handlers.NewProfileHandler(userService)
	skillHandler := handlers.NewSkillHandler(skillService)
	taskHandler := handlers.NewTaskHandler(taskService)
	planHandler := handlers.NewPlanHandler(planService, replanService, reflowService, userService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
		ProfileHandler: profileHandler,
		SkillHandler:   skillHandler,
		TaskHandler:    taskHandler,
		PlanHandler:    planHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
