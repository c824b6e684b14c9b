package dto

import "time"

// TaskInput is the wire form of one task record.
type TaskInput struct {
	ID           int    `json:"id" validate:"required,min=1"`
	Description  string `json:"description" validate:"max=200"`
	Duration     int    `json:"duration" validate:"min=0,max=1440"`
	Dependencies []int  `json:"dependencies,omitempty" validate:"omitempty,dive,min=1"`
	Status       string `json:"status,omitempty" validate:"max=16"`
	// Scheduled is "HH:MM" for a fixed task; empty or "25:25" marks a flexible one.
	Scheduled string `json:"scheduled,omitempty"`
	Category  string `json:"category,omitempty"`
}

// GeneratePlanRequest asks for a plan over inline tasks or a stored task list.
type GeneratePlanRequest struct {
	Strategy   string      `json:"strategy,omitempty" validate:"omitempty,oneof=greedy filtered gap_dp"`
	Start      string      `json:"start,omitempty"`
	End        string      `json:"end,omitempty"`
	Seed       *int64      `json:"seed,omitempty"`
	TaskListID string      `json:"taskListId,omitempty" validate:"omitempty,uuid"`
	Tasks      []TaskInput `json:"tasks,omitempty" validate:"required_without=TaskListID,dive"`
}

// PlanEntryResponse is one placed task.
type PlanEntryResponse struct {
	TaskID       int     `json:"taskId"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	Duration     int     `json:"duration"`
	Priority     float64 `json:"priority"`
	Fixed        bool    `json:"fixed"`
	Dependencies []int   `json:"dependencies"`
	Start        string  `json:"start"`
	End          string  `json:"end"`
}

// PlanResponse describes a generated plan.
type PlanResponse struct {
	ID             string              `json:"id"`
	Strategy       string              `json:"strategy"`
	DayStart       string              `json:"dayStart"`
	DayEnd         string              `json:"dayEnd"`
	Seed           *int64              `json:"seed,omitempty"`
	Entries        []PlanEntryResponse `json:"entries"`
	WorkMinutes    int                 `json:"workMinutes"`
	ElapsedMinutes int                 `json:"elapsedMinutes"`
	Efficiency     float64             `json:"efficiency"`
	Overlaps       []int               `json:"overlaps"`
	Dropped        []int               `json:"dropped"`
	Unplaced       []int               `json:"unplaced"`
	GeneratedAt    time.Time           `json:"generatedAt"`
	Cached         bool                `json:"cached"`
}

// ComparePlansResponse holds one plan per strategy computed over the same input.
type ComparePlansResponse struct {
	Plans []PlanResponse `json:"plans"`
	// Best names the strategy that placed the most work, ties broken by efficiency.
	Best string `json:"best"`
}
