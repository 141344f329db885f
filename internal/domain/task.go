package domain

import (
	"context"
	"time"
)

type TaskStatus string

const (
	StatusTodo      TaskStatus = "TODO"
	StatusOngoing   TaskStatus = "ONGOING"
	StatusCompleted TaskStatus = "COMPLETED"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusOngoing, StatusCompleted:
		return true
	}
	return false
}

type Task struct {
	ID          int64      `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description *string    `gorm:"type:text" json:"description"`
	Status      TaskStatus `gorm:"size:16;not null;default:TODO" json:"status"`
	Deadline    *time.Time `gorm:"index" json:"deadline"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	// Assignees is filled only by the admin listing.
	Assignees []UserRef `gorm:"-" json:"assignees,omitempty"`
}

func (Task) TableName() string { return "tasks" }

// Assignment links one user to one task. The composite primary key is the
// uniqueness guard for (user_id, task_id); the foreign keys make the database
// refuse an assignment whose task or user is gone.
type Assignment struct {
	UserID    int64     `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	TaskID    int64     `gorm:"primaryKey;autoIncrement:false;index" json:"taskId"`
	CreatedAt time.Time `json:"createdAt"`

	// relations only declare the constraints; they are never loaded
	Task *Task `gorm:"foreignKey:TaskID;constraint:OnDelete:RESTRICT" json:"-"` // tasks go through DeleteCascade
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Assignment) TableName() string { return "user_tasks" }

// TaskPatch carries the columns an update applies. Nil fields are left alone;
// ClearDescription sets description to NULL.
type TaskPatch struct {
	Title            *string
	Description      *string
	ClearDescription bool
	Status           *TaskStatus
	Deadline         *time.Time
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && !p.ClearDescription && p.Status == nil && p.Deadline == nil
}

// Columns renders the patch as a gorm update map.
func (p TaskPatch) Columns() map[string]any {
	cols := map[string]any{}
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.ClearDescription {
		cols["description"] = nil
	} else if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.Deadline != nil {
		cols["deadline"] = *p.Deadline
	}
	return cols
}

type TaskRepository interface {
	// CreateAssigned inserts the task and its single assignment atomically.
	CreateAssigned(ctx context.Context, t *Task, assignee int64) error
	Update(ctx context.Context, id int64, p TaskPatch) (*Task, error)
	// DeleteCascade removes the assignments and then the task in one transaction.
	DeleteCascade(ctx context.Context, id int64) error
	Assign(ctx context.Context, userID, taskID int64) (*Assignment, error)

	TaskExists(ctx context.Context, id int64) (bool, error)
	AssignmentExists(ctx context.Context, userID, taskID int64) (bool, error)
	CountAssignments(ctx context.Context, taskID int64) (int64, error)

	ListForUser(ctx context.Context, userID int64) ([]Task, error)
	ListAll(ctx context.Context, withAssignees bool) ([]Task, error)
}
