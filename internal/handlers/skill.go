package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillpath/skillpath-backend/internal/services"
)

type SkillHandler struct {
	skillService services.SkillService
}

func NewSkillHandler(skillService services.SkillService) *SkillHandler {
	return &SkillHandler{skillService: skillService}
}

func (sh *SkillHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Name        string     `json:"name"`
		Description string     `json:"description"`
		TargetDays  int        `json:"target_days"`
		Priority    int        `json:"priority"`
		StartDate   *time.Time `json:"start_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	skill, err := sh.skillService.Create(c.Request.Context(), userID, services.CreateSkillInput{
		Name:        req.Name,
		Description: req.Description,
		TargetDays:  req.TargetDays,
		Priority:    req.Priority,
		StartDate:   req.StartDate,
	})
	if err != nil {
		RespondError(c, http.StatusBadRequest, "skill_create_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"skill": skill})
}

func (sh *SkillHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	skills, err := sh.skillService.List(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "skill_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"skills": skills})
}

func (sh *SkillHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	skill, topics, err := sh.skillService.Get(c.Request.Context(), id, userID)
	if err != nil {
		sh.respondSkillError(c, err)
		return
	}
	RespondOK(c, gin.H{"skill": skill, "topics": topics})
}

func (sh *SkillHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		TargetDays  *int    `json:"target_days"`
		Priority    *int    `json:"priority"`
		Status      *string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	skill, err := sh.skillService.Update(c.Request.Context(), id, userID, services.UpdateSkillInput{
		Name:        req.Name,
		Description: req.Description,
		TargetDays:  req.TargetDays,
		Priority:    req.Priority,
		Status:      req.Status,
	})
	if err != nil {
		sh.respondSkillError(c, err)
		return
	}
	RespondOK(c, gin.H{"skill": skill})
}

func (sh *SkillHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	reflow, err := sh.skillService.Delete(c.Request.Context(), id, userID)
	if err != nil {
		sh.respondSkillError(c, err)
		return
	}
	resp := gin.H{"message": "skill deleted"}
	if reflow != nil {
		resp["reflow"] = reflow
	}
	RespondOK(c, resp)
}

func (sh *SkillHandler) RecalculateProgress(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	skill, err := sh.skillService.RecalculateProgress(c.Request.Context(), id, userID)
	if err != nil {
		sh.respondSkillError(c, err)
		return
	}
	RespondOK(c, gin.H{"skill": skill})
}

func (sh *SkillHandler) CompleteTopic(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		TopicIndex int `json:"topic_index"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	skill, err := sh.skillService.CompleteTopic(c.Request.Context(), id, userID, req.TopicIndex)
	if err != nil {
		sh.respondSkillError(c, err)
		return
	}
	RespondOK(c, gin.H{"skill": skill})
}

func (sh *SkillHandler) respondSkillError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrSkillNotFound) {
		RespondError(c, http.StatusNotFound, "skill_not_found", err)
		return
	}
	RespondError(c, http.StatusBadRequest, "skill_request_failed", err)
}
