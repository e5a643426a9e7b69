package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the progress status of a workspace task.
type TaskStatus string

const (
	TaskOpen       TaskStatus = "OPEN"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskDone       TaskStatus = "DONE"
)

// Task is a unit of work tracked within a workspace.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Status      TaskStatus `json:"status"`
	AssigneeID  *uuid.UUID `json:"assignee_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
