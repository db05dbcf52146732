package models

import (
	"strings"
	"time"
)

// Roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// TaskPriority enum
type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
)

// TaskStatus enum
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

// Task belongs to the user who created it. Tasks are only ever read or
// written through an owner-scoped query, so one user's task IDs look
// nonexistent to everyone else.
type Task struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	UserID      uint         `gorm:"not null;index" json:"user_id"`
	User        *User        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Title       string       `gorm:"not null" json:"title"`
	Description string       `json:"description"`
	ImagePath   *string      `json:"image_path"`
	DueDate     time.Time    `json:"due_date"`
	Priority    TaskPriority `gorm:"default:Low" json:"priority"`
	Status      TaskStatus   `gorm:"default:todo" json:"status"`
	IsPinned    bool         `gorm:"default:false" json:"is_pinned"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}

// ValidPriority reports whether p is one of the closed priority set.
func ValidPriority(p TaskPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ValidStatus reports whether s is one of the closed status set.
func ValidStatus(s TaskStatus) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ValidRole reports whether r names a known role, ignoring case.
func ValidRole(r string) bool {
	return strings.EqualFold(r, RoleAdmin) || strings.EqualFold(r, RoleUser)
}
