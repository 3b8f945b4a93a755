package domain

import "time"

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

type TaskID string

// Task is a unit of work that can be selected as the estimation target.
// It survives voting rounds and is only removed explicitly.
type Task struct {
	ID            TaskID     `json:"id"`
	Ticket        string     `json:"ticket"`
	Description   string     `json:"description,omitempty"`
	Status        TaskStatus `json:"status"`
	FinalEstimate string     `json:"finalEstimate,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// TaskUpdate carries a partial edit: nil means "leave untouched", a
// pointer to the empty string clears the field.
type TaskUpdate struct {
	Ticket      *string `json:"ticket,omitempty"`
	Description *string `json:"description,omitempty"`
}
