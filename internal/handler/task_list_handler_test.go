package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dayplan-api/internal/dto"
	"github.com/noah-isme/dayplan-api/internal/models"
	appErrors "github.com/noah-isme/dayplan-api/pkg/errors"
)

type taskListServiceMock struct {
	list       *dto.TaskListResponse
	lists      []dto.TaskListResponse
	pagination *models.Pagination
	err        error
	lastQuery  dto.TaskListQuery
	deletedID  string
}

func (m *taskListServiceMock) Create(ctx context.Context, req dto.CreateTaskListRequest) (*dto.TaskListResponse, error) {
	return m.list, m.err
}

func (m *taskListServiceMock) Get(ctx context.Context, id string) (*dto.TaskListResponse, error) {
	return m.list, m.err
}

func (m *taskListServiceMock) List(ctx context.Context, query dto.TaskListQuery) ([]dto.TaskListResponse, *models.Pagination, error) {
	m.lastQuery = query
	return m.lists, m.pagination, m.err
}

func (m *taskListServiceMock) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return m.err
}

func TestTaskListHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTaskListHandler(&taskListServiceMock{list: &dto.TaskListResponse{ID: "list-1", Name: "Monday", ItemCount: 1}})

	c, w := newGinContext(http.MethodPost, "/task-lists", []byte(`{"name":"Monday","tasks":[{"id":1,"duration":30}]}`))
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Data dto.TaskListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "list-1", resp.Data.ID)
}

func TestTaskListHandlerCreateValidationError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTaskListHandler(&taskListServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "invalid task list payload")})

	c, w := newGinContext(http.MethodPost, "/task-lists", []byte(`{"name":""}`))
	handler.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskListHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &taskListServiceMock{
		lists:      []dto.TaskListResponse{{ID: "a"}, {ID: "b"}},
		pagination: &models.Pagination{Page: 2, PageSize: 2, TotalCount: 5},
	}
	handler := NewTaskListHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/task-lists?page=2&page_size=2&search=mon", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.TaskListQuery{Search: "mon", Page: 2, PageSize: 2}, mockSvc.lastQuery)
	var resp struct {
		Data       []dto.TaskListResponse `json:"data"`
		Pagination models.Pagination      `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, 5, resp.Pagination.TotalCount)
}

func TestTaskListHandlerListRejectsBadQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTaskListHandler(&taskListServiceMock{})

	c, w := newGinContext(http.MethodGet, "/task-lists?page=abc", nil)
	handler.List(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskListHandlerGetAndDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &taskListServiceMock{list: &dto.TaskListResponse{ID: "list-1", Tasks: []dto.TaskInput{{ID: 1, Duration: 10}}}}
	handler := NewTaskListHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/task-lists/list-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "list-1"}}
	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodDelete, "/task-lists/list-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "list-1"}}
	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "list-1", mockSvc.deletedID)
}

func TestTaskListHandlerDeleteNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTaskListHandler(&taskListServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "task list not found")})

	c, w := newGinContext(http.MethodDelete, "/task-lists/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Delete(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}
