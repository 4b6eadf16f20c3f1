package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skillpath/skillpath-backend/internal/services"
)

type ProfileHandler struct {
	userService services.UserService
}

func NewProfileHandler(userService services.UserService) *ProfileHandler {
	return &ProfileHandler{userService: userService}
}

func (ph *ProfileHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	user, err := ph.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "profile_load_failed", err)
		return
	}
	RespondOK(c, gin.H{"user": user})
}

func (ph *ProfileHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Name               *string  `json:"name"`
		DailyBudgetMinutes *int     `json:"daily_budget_minutes"`
		WorkoutEnabled     *bool    `json:"workout_enabled"`
		WorkoutPreference  *string  `json:"workout_preference"`
		SleepTime          *string  `json:"sleep_time"`
		WakeTime           *string  `json:"wake_time"`
		ExistingSkills     []string `json:"existing_skills"`
		Onboarded          *bool    `json:"onboarded"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, reflow, err := ph.userService.UpdateProfile(c.Request.Context(), userID, services.UpdateProfileInput{
		Name:               req.Name,
		DailyBudgetMinutes: req.DailyBudgetMinutes,
		WorkoutEnabled:     req.WorkoutEnabled,
		WorkoutPreference:  req.WorkoutPreference,
		SleepTime:          req.SleepTime,
		WakeTime:           req.WakeTime,
		ExistingSkills:     req.ExistingSkills,
		Onboarded:          req.Onboarded,
	})
	if err != nil {
		RespondError(c, http.StatusBadRequest, "profile_update_failed", err)
		return
	}
	resp := gin.H{"user": user}
	if reflow != nil {
		resp["reflow"] = reflow
	}
	RespondOK(c, resp)
}
