package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skillpath/skillpath-backend/internal/services"
)

type PlanHandler struct {
	planService   services.PlanService
	replanService services.ReplanService
	reflowService services.ReflowService
	userService   services.UserService
}

func NewPlanHandler(planService services.PlanService, replanService services.ReplanService, reflowService services.ReflowService, userService services.UserService) *PlanHandler {
	return &PlanHandler{
		planService:   planService,
		replanService: replanService,
		reflowService: reflowService,
		userService:   userService,
	}
}

func (ph *PlanHandler) GeneratePlan(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		SkillID uuid.UUID `json:"skill_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.SkillID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "skill_id is required"})
		return
	}
	result, err := ph.planService.GeneratePlan(c.Request.Context(), req.SkillID, userID)
	if err != nil {
		ph.respondPlanError(c, err)
		return
	}
	RespondOK(c, result)
}

func (ph *PlanHandler) PreviewTopics(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		SkillName  string `json:"skill_name"`
		TargetDays int    `json:"target_days"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.SkillName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "skill_name is required"})
		return
	}
	topics, err := ph.planService.PreviewTopics(c.Request.Context(), userID, req.SkillName, req.TargetDays)
	if err != nil {
		ph.respondPlanError(c, err)
		return
	}
	RespondOK(c, gin.H{"topics": topics})
}

func (ph *PlanHandler) DetectMissed(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	result, err := ph.replanService.DetectMissed(c.Request.Context(), userID)
	if err != nil {
		ph.respondPlanError(c, err)
		return
	}
	RespondOK(c, result)
}

func (ph *PlanHandler) ReplanMissed(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		SkillID *uuid.UUID `json:"skill_id"`
	}
	// Body is optional; without one every missed task is replanned.
	_ = c.ShouldBindJSON(&req)
	result, err := ph.replanService.ReplanMissed(c.Request.Context(), userID, req.SkillID)
	if err != nil {
		ph.respondPlanError(c, err)
		return
	}
	RespondOK(c, result)
}

func (ph *PlanHandler) ReplanSkill(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	skillID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	result, err := ph.replanService.ReplanSkill(c.Request.Context(), skillID, userID)
	if err != nil {
		ph.respondPlanError(c, err)
		return
	}
	RespondOK(c, result)
}

func (ph *PlanHandler) Reflow(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		DailyBudgetMinutes *int `json:"daily_budget_minutes"`
	}
	_ = c.ShouldBindJSON(&req)
	budget := 0
	if req.DailyBudgetMinutes != nil {
		budget = *req.DailyBudgetMinutes
	} else {
		user, err := ph.userService.GetProfile(c.Request.Context(), userID)
		if err != nil {
			ph.respondPlanError(c, err)
			return
		}
		budget = user.DailyBudgetMinutes
	}
	result, err := ph.reflowService.Reflow(c.Request.Context(), userID, budget)
	if err != nil {
		ph.respondPlanError(c, err)
		return
	}
	RespondOK(c, result)
}

func (ph *PlanHandler) respondPlanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSkillNotFound):
		RespondError(c, http.StatusNotFound, "skill_not_found", err)
	case errors.Is(err, services.ErrUserNotFound):
		RespondError(c, http.StatusNotFound, "user_not_found", err)
	default:
		RespondError(c, http.StatusInternalServerError, "plan_request_failed", err)
	}
}
