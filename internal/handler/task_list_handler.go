package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dayplan-api/internal/dto"
	"github.com/noah-isme/dayplan-api/internal/models"
	appErrors "github.com/noah-isme/dayplan-api/pkg/errors"
	"github.com/noah-isme/dayplan-api/pkg/response"
)

type taskListService interface {
	Create(ctx context.Context, req dto.CreateTaskListRequest) (*dto.TaskListResponse, error)
	Get(ctx context.Context, id string) (*dto.TaskListResponse, error)
	List(ctx context.Context, query dto.TaskListQuery) ([]dto.TaskListResponse, *models.Pagination, error)
	Delete(ctx context.Context, id string) error
}

// TaskListHandler manages stored task lists.
type TaskListHandler struct {
	service taskListService
}

// NewTaskListHandler constructs the handler.
func NewTaskListHandler(svc taskListService) *TaskListHandler {
	return &TaskListHandler{service: svc}
}

// Create godoc
// @Summary Store a task list
// @Tags TaskLists
// @Accept json
// @Produce json
// @Param payload body dto.CreateTaskListRequest true "Task list"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /task-lists [post]
func (h *TaskListHandler) Create(c *gin.Context) {
	var req dto.CreateTaskListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid task list payload"))
		return
	}
	list, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, list)
}

// List godoc
// @Summary List stored task lists
// @Tags TaskLists
// @Produce json
// @Param search query string false "Name filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /task-lists [get]
func (h *TaskListHandler) List(c *gin.Context) {
	var query dto.TaskListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	lists, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lists, pagination)
}

// Get godoc
// @Summary Get a task list with its tasks
// @Tags TaskLists
// @Produce json
// @Param id path string true "Task list ID"
// @Success 200 {object} response.Envelope
// @Router /task-lists/{id} [get]
func (h *TaskListHandler) Get(c *gin.Context) {
	list, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}

// Delete godoc
// @Summary Delete a task list
// @Tags TaskLists
// @Param id path string true "Task list ID"
// @Success 204
// @Router /task-lists/{id} [delete]
func (h *TaskListHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
