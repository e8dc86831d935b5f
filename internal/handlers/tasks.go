package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FernandoVinha/TheManager/internal/models"
	"github.com/FernandoVinha/TheManager/internal/services"
	"github.com/FernandoVinha/TheManager/pkg/response"
)

// TaskHandler exposes tasks, their forks and their message streams.
type TaskHandler struct {
	tasks *services.TaskService
}

// NewTaskHandler wires the task service.
func NewTaskHandler(tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

type createTaskRequest struct {
	Key         string  `json:"key" validate:"omitempty,alphanum,max=16"`
	Title       string  `json:"title" validate:"required,max=255"`
	Description string  `json:"description" validate:"omitempty,max=8192"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	AssigneeID  *string `json:"assignee_id"`
	ReporterID  *string `json:"reporter_id"`
}

type updateTaskRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description" validate:"omitempty,max=8192"`
	Status      *string `json:"status" validate:"omitempty,oneof=todo in_progress review verified done failed"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	AssigneeID  *string `json:"assignee_id"`
	ReporterID  *string `json:"reporter_id"`
	ForkOwner   *string `json:"fork_owner" validate:"omitempty,remotename"`
	ForkRepo    *string `json:"fork_repo" validate:"omitempty,remotename"`
	ForkURL     *string `json:"fork_url" validate:"omitempty,url"`
}

type forkTaskRequest struct {
	Owner string `json:"owner" validate:"required,remotename"`
	Name  string `json:"name" validate:"omitempty,remotename"`
}

type messageRequest struct {
	Body    string `json:"body" validate:"required,max=16384"`
	Payload any    `json:"payload"`
}

// List handles GET /api/projects/:id/tasks.
func (h *TaskHandler) List(c *gin.Context) {
	page, perPage := pagination(c)
	tasks, total, err := h.tasks.List(requestContext(c), c.Param("id"), services.ListTasksOptions{
		Page:     page,
		PageSize: perPage,
		Status:   models.TaskStatus(c.Query("status")),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, tasks, page, perPage, total)
}

// Create handles POST /api/projects/:id/tasks.
func (h *TaskHandler) Create(c *gin.Context) {
	var body createTaskRequest
	if !bindAndValidate(c, &body) {
		return
	}
	task, err := h.tasks.Create(requestContext(c), c.Param("id"), services.CreateTaskInput{
		Key:         body.Key,
		Title:       body.Title,
		Description: body.Description,
		Priority:    models.TaskPriority(body.Priority),
		AssigneeID:  body.AssigneeID,
		ReporterID:  body.ReporterID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, task)
}

// Get handles GET /api/tasks/:id.
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.tasks.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// Update handles PATCH /api/tasks/:id. Moving a task to verified runs the
// merge workflow before the response is written.
func (h *TaskHandler) Update(c *gin.Context) {
	var body updateTaskRequest
	if !bindAndValidate(c, &body) {
		return
	}

	input := services.UpdateTaskInput{
		Title:       body.Title,
		Description: body.Description,
		AssigneeID:  body.AssigneeID,
		ReporterID:  body.ReporterID,
		ForkOwner:   body.ForkOwner,
		ForkRepo:    body.ForkRepo,
		ForkURL:     body.ForkURL,
	}
	if body.Status != nil {
		status := models.TaskStatus(*body.Status)
		input.Status = &status
	}
	if body.Priority != nil {
		priority := models.TaskPriority(*body.Priority)
		input.Priority = &priority
	}

	task, err := h.tasks.Update(requestContext(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// Fork handles POST /api/tasks/:id/fork.
func (h *TaskHandler) Fork(c *gin.Context) {
	var body forkTaskRequest
	if !bindAndValidate(c, &body) {
		return
	}
	task, err := h.tasks.Fork(requestContext(c), c.Param("id"), services.ForkTaskInput{Owner: body.Owner, Name: body.Name})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// Messages handles GET /api/tasks/:id/messages.
func (h *TaskHandler) Messages(c *gin.Context) {
	messages, err := h.tasks.Messages(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, messages)
}

// AddMessage handles POST /api/tasks/:id/messages.
func (h *TaskHandler) AddMessage(c *gin.Context) {
	var body messageRequest
	if !bindAndValidate(c, &body) {
		return
	}
	msg, err := h.tasks.AddMessage(requestContext(c), c.Param("id"), body.Body, body.Payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, msg)
}
