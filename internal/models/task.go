package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

type Task struct {
	bun.BaseModel `bun:"table:tasks"`

	ID          string       `bun:"id,pk" json:"id"`
	Name        string       `bun:"name,notnull" json:"name"`
	Description string       `bun:"description" json:"description"`
	AssignedBy  string       `bun:"assigned_by,notnull" json:"assigned_by"`
	AssignedTo  string       `bun:"assigned_to,notnull" json:"assigned_to"`
	Priority    TaskPriority `bun:"priority" json:"priority"`
	StartDate   time.Time    `bun:"start_date,nullzero" json:"start_date"`
	EndDate     time.Time    `bun:"end_date,nullzero" json:"end_date"`
	IsCompleted bool         `bun:"is_completed" json:"is_completed"`
	IsVerified  bool         `bun:"is_verified" json:"is_verified"`
	CreatedAt   time.Time    `bun:"created_at,nullzero" json:"created_at"`
}

type CreateTaskRequest struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	AssignedBy  string       `json:"assigned_by"`
	AssignedTo  string       `json:"assigned_to"`
	Priority    TaskPriority `json:"priority"`
	StartDate   string       `json:"start_date"`
	EndDate     string       `json:"end_date"`
}
