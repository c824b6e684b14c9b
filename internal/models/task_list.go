package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// TaskList is a stored, named collection of task records that can be planned repeatedly.
type TaskList struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Meta      types.JSONText `db:"meta" json:"meta,omitempty"`
	ItemCount int            `db:"item_count" json:"itemCount"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
	Items     []TaskListItem `db:"-" json:"items,omitempty"`
}

// TaskListItem is one task record of a list. Scheduled is "HH:MM" or nil for flexible tasks.
type TaskListItem struct {
	ListID       string        `db:"list_id" json:"-"`
	Position     int           `db:"position" json:"-"`
	TaskID       int           `db:"task_id" json:"id"`
	Description  string        `db:"description" json:"description"`
	Duration     int           `db:"duration" json:"duration"`
	Dependencies pq.Int64Array `db:"dependencies" json:"dependencies"`
	Status       string        `db:"status" json:"status"`
	Scheduled    *string       `db:"scheduled" json:"scheduled,omitempty"`
	Category     string        `db:"category" json:"category"`
}

// TaskListFilter captures list query options.
type TaskListFilter struct {
	Search   string
	Page     int
	PageSize int
}
