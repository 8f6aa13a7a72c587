package dto

import (
	"encoding/json"
	"fmt"
	"time"

	dom "github.com/areyabhishek/todo1/internal/domain"
)

type CreateTodoRequest struct {
	Task     string  `json:"task" example:"Buy milk"`
	Deadline *string `json:"deadline" example:"2026-10-20T18:00"` // optional, stored as given
}

// UpdateTodoRequest carries exactly one of completed, task or deadline.
// When several keys are present the first of completed, task, deadline
// wins; other keys are ignored.
type UpdateTodoRequest struct {
	Completed *bool   `json:"completed,omitempty"`
	Task      *string `json:"task,omitempty"`
	// Deadline may be null to clear it.
	Deadline *string `json:"deadline,omitempty"`

	patch dom.Patch
}

func (r *UpdateTodoRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = UpdateTodoRequest{}
	if v, ok := raw["completed"]; ok {
		var done bool
		if err := json.Unmarshal(v, &done); err != nil {
			return fmt.Errorf("completed: %w", err)
		}
		r.Completed = &done
		r.patch = dom.SetCompleted(done)
		return nil
	}
	if v, ok := raw["task"]; ok {
		var task string
		if err := json.Unmarshal(v, &task); err != nil {
			return fmt.Errorf("task: %w", err)
		}
		r.Task = &task
		r.patch = dom.SetTask(task)
		return nil
	}
	if v, ok := raw["deadline"]; ok {
		var deadline *string
		if err := json.Unmarshal(v, &deadline); err != nil {
			return fmt.Errorf("deadline: %w", err)
		}
		r.Deadline = deadline
		r.patch = dom.SetDeadline(deadline)
	}
	return nil
}

// Patch returns the single-field update selected from the body.
func (r UpdateTodoRequest) Patch() dom.Patch { return r.patch }

type TodoResponse struct {
	ID        int64     `json:"id" example:"1"`
	Task      string    `json:"task" example:"Buy milk"`
	Completed bool      `json:"completed" example:"false"`
	Deadline  *string   `json:"deadline"`
	CreatedAt time.Time `json:"created_at"`
}

type ErrorResponse struct {
	Error string `json:"error" example:"Todo not found"`
}

type MessageResponse struct {
	Message string `json:"message" example:"Todo deleted successfully"`
}
