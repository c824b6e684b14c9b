package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/dayplan-api/internal/dto"
	"github.com/noah-isme/dayplan-api/internal/models"
	"github.com/noah-isme/dayplan-api/internal/planner"
	appErrors "github.com/noah-isme/dayplan-api/pkg/errors"
	"github.com/noah-isme/dayplan-api/pkg/timeofday"
)

type taskListRepository interface {
	Create(ctx context.Context, list *models.TaskList) error
	FindByID(ctx context.Context, id string) (*models.TaskList, error)
	Items(ctx context.Context, listID string) ([]models.TaskListItem, error)
	List(ctx context.Context, filter models.TaskListFilter) ([]models.TaskList, int, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type queryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// TaskListService manages stored task lists.
type TaskListService struct {
	repo      taskListRepository
	metrics   queryObserver
	validator *validator.Validate
	logger    *zap.Logger
	maxTasks  int
}

// NewTaskListService constructs the service. metrics may be nil.
func NewTaskListService(repo taskListRepository, metrics queryObserver, validate *validator.Validate, logger *zap.Logger, maxTasks int) *TaskListService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxTasks <= 0 {
		maxTasks = 500
	}
	return &TaskListService{repo: repo, metrics: metrics, validator: validate, logger: logger, maxTasks: maxTasks}
}

// Create validates the records with the scheduling ingestion rules and stores them.
func (s *TaskListService) Create(ctx context.Context, req dto.CreateTaskListRequest) (*dto.TaskListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task list payload")
	}
	if len(req.Tasks) > s.maxTasks {
		return nil, appErrors.Clone(appErrors.ErrValidation, "task list exceeds supported size")
	}
	tasks, err := toPlannerTasks(req.Tasks)
	if err != nil {
		return nil, err
	}
	if err := planner.Validate(tasks); err != nil {
		return nil, translatePlannerError(err)
	}

	list := &models.TaskList{Name: req.Name, Items: make([]models.TaskListItem, 0, len(tasks))}
	if len(req.Meta) > 0 {
		raw, err := json.Marshal(req.Meta)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid meta")
		}
		list.Meta = types.JSONText(raw)
	}
	for _, task := range tasks {
		item := models.TaskListItem{
			TaskID:       task.ID,
			Description:  task.Description,
			Duration:     task.Duration,
			Dependencies: toInt64Array(task.Dependencies),
			Status:       task.Status,
			Category:     string(planner.CategoryOther),
		}
		if category, err := planner.ParseCategory(string(task.Category)); err == nil {
			item.Category = string(category)
		}
		if task.IsFixed() {
			at := task.Scheduled.String()
			item.Scheduled = &at
		}
		list.Items = append(list.Items, item)
	}

	start := time.Now()
	err = s.repo.Create(ctx, list)
	s.observe("task_lists_create", start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store task list")
	}
	s.logger.Sugar().Infow("task list stored", "list_id", list.ID, "tasks", len(list.Items))
	return toTaskListResponse(list, list.Items), nil
}

// Get returns a list with its task records.
func (s *TaskListService) Get(ctx context.Context, id string) (*dto.TaskListResponse, error) {
	list, items, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toTaskListResponse(list, items), nil
}

// Tasks returns the records of a stored list in request form.
func (s *TaskListService) Tasks(ctx context.Context, id string) ([]dto.TaskInput, error) {
	_, items, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return itemsToInputs(items), nil
}

// List returns list headers with pagination metadata.
func (s *TaskListService) List(ctx context.Context, query dto.TaskListQuery) ([]dto.TaskListResponse, *models.Pagination, error) {
	filter := models.TaskListFilter{Search: query.Search, Page: query.Page, PageSize: query.PageSize}
	start := time.Now()
	lists, total, err := s.repo.List(ctx, filter)
	s.observe("task_lists_list", start)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list task lists")
	}
	out := make([]dto.TaskListResponse, 0, len(lists))
	for i := range lists {
		out = append(out, *toTaskListResponse(&lists[i], nil))
	}
	page, size := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return out, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Delete removes a stored list.
func (s *TaskListService) Delete(ctx context.Context, id string) error {
	start := time.Now()
	deleted, err := s.repo.Delete(ctx, id)
	s.observe("task_lists_delete", start)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete task list")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "task list not found")
	}
	return nil
}

func (s *TaskListService) load(ctx context.Context, id string) (*models.TaskList, []models.TaskListItem, error) {
	start := time.Now()
	list, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.observe("task_lists_get", start)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "task list not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task list")
	}
	items, err := s.repo.Items(ctx, id)
	s.observe("task_lists_get", start)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task list items")
	}
	return list, items, nil
}

func (s *TaskListService) observe(label string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(label, time.Since(start))
	}
}

func toTaskListResponse(list *models.TaskList, items []models.TaskListItem) *dto.TaskListResponse {
	resp := &dto.TaskListResponse{
		ID:        list.ID,
		Name:      list.Name,
		ItemCount: list.ItemCount,
		CreatedAt: list.CreatedAt,
		UpdatedAt: list.UpdatedAt,
	}
	if len(list.Meta) > 0 {
		var meta map[string]interface{}
		if err := list.Meta.Unmarshal(&meta); err == nil && len(meta) > 0 {
			resp.Meta = meta
		}
	}
	if items != nil {
		resp.Tasks = itemsToInputs(items)
		resp.ItemCount = len(items)
	}
	return resp
}

func itemsToInputs(items []models.TaskListItem) []dto.TaskInput {
	out := make([]dto.TaskInput, 0, len(items))
	for _, item := range items {
		deps := make([]int, 0, len(item.Dependencies))
		for _, dep := range item.Dependencies {
			deps = append(deps, int(dep))
		}
		scheduled := ""
		if item.Scheduled != nil && *item.Scheduled != timeofday.UnscheduledLiteral {
			scheduled = *item.Scheduled
		}
		out = append(out, dto.TaskInput{
			ID:           item.TaskID,
			Description:  item.Description,
			Duration:     item.Duration,
			Dependencies: deps,
			Status:       item.Status,
			Scheduled:    scheduled,
			Category:     item.Category,
		})
	}
	return out
}

func toInt64Array(values []int) pq.Int64Array {
	out := make(pq.Int64Array, 0, len(values))
	for _, v := range values {
		out = append(out, int64(v))
	}
	return out
}
