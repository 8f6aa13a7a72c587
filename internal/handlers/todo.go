package handlers

import (
	"errors"
	"net/http"
	"strconv"

	dom "github.com/areyabhishek/todo1/internal/domain"
	"github.com/areyabhishek/todo1/internal/dto"
	"github.com/areyabhishek/todo1/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	msgEmptyTask   = "Task cannot be empty"
	msgNotFound    = "Todo not found"
	msgInvalidID   = "invalid id"
	msgInvalidBody = "invalid request body"
	msgInternal    = "internal server error"
	msgDeleted     = "Todo deleted successfully"
)

type TodoHandler struct {
	svc *service.TodoService
	log zerolog.Logger
}

func NewTodoHandler(svc *service.TodoService, log zerolog.Logger) *TodoHandler {
	return &TodoHandler{svc: svc, log: log}
}

// List godoc
// @Summary      List all todos, newest first
// @Tags         todos
// @Produce      json
// @Success      200  {array}   dto.TodoResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /todos [get]
func (h *TodoHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, todosToResponses(list))
}

// Create godoc
// @Summary      Create a todo
// @Tags         todos
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateTodoRequest  true  "Todo body"
// @Success      201   {object}  dto.TodoResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /todos [post]
func (h *TodoHandler) Create(c *gin.Context) {
	var req dto.CreateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: msgInvalidBody})
		return
	}

	t, err := h.svc.Create(c.Request.Context(), req.Task, req.Deadline)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, todoToResponse(t))
}

// GetByID godoc
// @Summary      Get a todo by ID
// @Tags         todos
// @Produce      json
// @Param        id   path      int  true  "Todo ID"
// @Success      200  {object}  dto.TodoResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /todos/{id} [get]
func (h *TodoHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	t, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, todoToResponse(t))
}

// Update godoc
// @Summary      Update one field of a todo
// @Description  The body carries one of completed, task or deadline. If several are sent, completed wins over task, and task over deadline.
// @Tags         todos
// @Accept       json
// @Produce      json
// @Param        id    path      int                    true  "Todo ID"
// @Param        body  body      dto.UpdateTodoRequest  true  "Single-field update"
// @Success      200   {object}  dto.TodoResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /todos/{id} [put]
func (h *TodoHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: msgInvalidBody})
		return
	}
	t, err := h.svc.Update(c.Request.Context(), id, req.Patch())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, todoToResponse(t))
}

// Delete godoc
// @Summary      Delete a todo
// @Description  Deleting a todo that does not exist also succeeds.
// @Tags         todos
// @Produce      json
// @Param        id   path      int  true  "Todo ID"
// @Success      200  {object}  dto.MessageResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /todos/{id} [delete]
func (h *TodoHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: msgDeleted})
}

// fail maps service errors to status codes. Anything unclassified is a 500
// with a generic body; the cause only goes to the log.
func (h *TodoHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyTask):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: msgEmptyTask})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: msgNotFound})
	default:
		h.log.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: msgInternal})
	}
}

func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: msgInvalidID})
		return 0, false
	}
	return id, true
}

func todoToResponse(t dom.Todo) dto.TodoResponse {
	return dto.TodoResponse{
		ID:        t.ID,
		Task:      t.Task,
		Completed: t.Completed,
		Deadline:  t.Deadline,
		CreatedAt: t.CreatedAt,
	}
}

func todosToResponses(list []dom.Todo) []dto.TodoResponse {
	out := make([]dto.TodoResponse, len(list))
	for i := range list {
		out[i] = todoToResponse(list[i])
	}
	return out
}
