package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skillpath/skillpath-backend/internal/repos"
	"github.com/skillpath/skillpath-backend/internal/services"
	"github.com/skillpath/skillpath-backend/internal/types"
)

type TaskHandler struct {
	taskService services.TaskService
}

func NewTaskHandler(taskService services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

type taskRequest struct {
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	Kind            string               `json:"kind"`
	ScheduledDate   time.Time            `json:"scheduled_date"`
	StartTime       string               `json:"start_time"`
	EndTime         string               `json:"end_time"`
	DurationMinutes int                  `json:"duration_minutes"`
	Importance      int                  `json:"importance"`
	Splittable      *bool                `json:"splittable"`
	SkillID         *uuid.UUID           `json:"skill_id"`
	DayNumber       int                  `json:"day_number"`
	TopicIndex      *int                 `json:"topic_index"`
	Resources       []types.TaskResource `json:"resources"`
}

func (tr taskRequest) toInput() services.CreateTaskInput {
	topicIndex := -1
	if tr.TopicIndex != nil {
		topicIndex = *tr.TopicIndex
	}
	return services.CreateTaskInput{
		Title:           tr.Title,
		Description:     tr.Description,
		Kind:            tr.Kind,
		ScheduledDate:   tr.ScheduledDate,
		StartTime:       tr.StartTime,
		EndTime:         tr.EndTime,
		DurationMinutes: tr.DurationMinutes,
		Importance:      tr.Importance,
		Splittable:      tr.Splittable,
		SkillID:         tr.SkillID,
		DayNumber:       tr.DayNumber,
		TopicIndex:      topicIndex,
		Resources:       tr.Resources,
	}
}

func (th *TaskHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	task, err := th.taskService.Create(c.Request.Context(), userID, req.toInput())
	if err != nil {
		th.respondTaskError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task})
}

func (th *TaskHandler) BulkCreate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Tasks []taskRequest `json:"tasks"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	inputs := make([]services.CreateTaskInput, 0, len(req.Tasks))
	for _, tr := range req.Tasks {
		inputs = append(inputs, tr.toInput())
	}
	tasks, err := th.taskService.BulkCreate(c.Request.Context(), userID, inputs)
	if err != nil {
		th.respondTaskError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tasks": tasks, "count": len(tasks)})
}

func (th *TaskHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	filter := repos.TaskFilter{
		Status: c.Query("status"),
		Kind:   c.Query("kind"),
	}
	if raw := c.Query("skill_id"); raw != "" {
		skillID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid skill_id"})
			return
		}
		filter.SkillID = &skillID
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
			return
		}
		filter.DateFrom = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
			return
		}
		filter.DateTo = &to
	}
	tasks, err := th.taskService.List(c.Request.Context(), userID, filter)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "task_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"tasks": tasks})
}

func (th *TaskHandler) Today(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	date := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
			return
		}
		date = parsed
	}
	tasks, err := th.taskService.GetForDate(c.Request.Context(), userID, date)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "task_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"tasks": tasks})
}

func (th *TaskHandler) Missed(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	tasks, err := th.taskService.Missed(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "task_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"tasks": tasks})
}

func (th *TaskHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	task, err := th.taskService.Get(c.Request.Context(), id, userID)
	if err != nil {
		th.respondTaskError(c, err)
		return
	}
	RespondOK(c, gin.H{"task": task})
}

func (th *TaskHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Title           *string    `json:"title"`
		Description     *string    `json:"description"`
		ScheduledDate   *time.Time `json:"scheduled_date"`
		StartTime       *string    `json:"start_time"`
		EndTime         *string    `json:"end_time"`
		DurationMinutes *int       `json:"duration_minutes"`
		Status          *string    `json:"status"`
		Notes           *string    `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	task, err := th.taskService.Update(c.Request.Context(), id, userID, services.UpdateTaskInput{
		Title:           req.Title,
		Description:     req.Description,
		ScheduledDate:   req.ScheduledDate,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: req.DurationMinutes,
		Status:          req.Status,
		Notes:           req.Notes,
	})
	if err != nil {
		th.respondTaskError(c, err)
		return
	}
	RespondOK(c, gin.H{"task": task})
}

func (th *TaskHandler) Complete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	task, err := th.taskService.Complete(c.Request.Context(), id, userID)
	if err != nil {
		th.respondTaskError(c, err)
		return
	}
	RespondOK(c, gin.H{"task": task})
}

func (th *TaskHandler) Reschedule(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		NewDate time.Time `json:"new_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.NewDate.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "new_date is required"})
		return
	}
	task, err := th.taskService.Reschedule(c.Request.Context(), id, userID, req.NewDate)
	if err != nil {
		th.respondTaskError(c, err)
		return
	}
	RespondOK(c, gin.H{"task": task})
}

func (th *TaskHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := th.taskService.Delete(c.Request.Context(), id, userID); err != nil {
		th.respondTaskError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "task deleted"})
}

func (th *TaskHandler) respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		RespondError(c, http.StatusNotFound, "task_not_found", err)
	case errors.Is(err, services.ErrSkillNotFound):
		RespondError(c, http.StatusNotFound, "skill_not_found", err)
	default:
		RespondError(c, http.StatusBadRequest, "task_request_failed", err)
	}
}
