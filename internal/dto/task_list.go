package dto

import "time"

// CreateTaskListRequest stores a named set of task records.
type CreateTaskListRequest struct {
	Name  string                 `json:"name" validate:"required,max=120"`
	Meta  map[string]interface{} `json:"meta,omitempty"`
	Tasks []TaskInput            `json:"tasks" validate:"required,min=1,dive"`
}

// TaskListQuery carries list pagination.
type TaskListQuery struct {
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// TaskListResponse describes a stored task list.
type TaskListResponse struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
	ItemCount int                    `json:"itemCount"`
	Tasks     []TaskInput            `json:"tasks,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}
