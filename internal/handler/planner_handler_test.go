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
	"github.com/noah-isme/dayplan-api/internal/middleware"
	appErrors "github.com/noah-isme/dayplan-api/pkg/errors"
)

type plannerServiceMock struct {
	plan       *dto.PlanResponse
	compare    *dto.ComparePlansResponse
	err        error
	lastReq    dto.GeneratePlanRequest
	lastPlanID string
}

func (m *plannerServiceMock) Generate(ctx context.Context, req dto.GeneratePlanRequest) (*dto.PlanResponse, error) {
	m.lastReq = req
	return m.plan, m.err
}

func (m *plannerServiceMock) Compare(ctx context.Context, req dto.GeneratePlanRequest) (*dto.ComparePlansResponse, error) {
	m.lastReq = req
	return m.compare, m.err
}

func (m *plannerServiceMock) Get(ctx context.Context, id string) (*dto.PlanResponse, error) {
	m.lastPlanID = id
	return m.plan, m.err
}

type planEnvelope struct {
	Data dto.PlanResponse       `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

func TestPlannerHandlerGenerate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &plannerServiceMock{plan: &dto.PlanResponse{ID: "plan-1", Strategy: "greedy", WorkMinutes: 30, Cached: true}}
	handler := NewPlannerHandler(mockSvc)

	payload := []byte(`{"strategy":"greedy","start":"09:00","seed":7,"tasks":[{"id":1,"duration":30}]}`)
	c, w := newGinContext(http.MethodPost, "/plans", payload)
	middleware.WithResponseMeta()(c)

	handler.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastReq.Seed)
	assert.Equal(t, int64(7), *mockSvc.lastReq.Seed)
	require.Len(t, mockSvc.lastReq.Tasks, 1)
	assert.Equal(t, 30, mockSvc.lastReq.Tasks[0].Duration)

	var resp planEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "plan-1", resp.Data.ID)
	assert.Equal(t, true, resp.Meta["cache_hit"])
	assert.Contains(t, resp.Meta, "processing_time_ms")
}

func TestPlannerHandlerGenerateMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPlannerHandler(&plannerServiceMock{})

	c, w := newGinContext(http.MethodPost, "/plans", []byte(`{"tasks":`))
	handler.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlannerHandlerGenerateServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPlannerHandler(&plannerServiceMock{err: appErrors.Clone(appErrors.ErrCyclicDependency, "cyclic dependency among tasks [1 2]")})

	c, w := newGinContext(http.MethodPost, "/plans", []byte(`{"tasks":[{"id":1,"duration":5,"dependencies":[2]},{"id":2,"duration":5,"dependencies":[1]}]}`))
	handler.Generate(c)

	require.Equal(t, appErrors.ErrCyclicDependency.Status, w.Code)
	assert.Contains(t, w.Body.String(), appErrors.ErrCyclicDependency.Code)
}

func TestPlannerHandlerCompare(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &plannerServiceMock{compare: &dto.ComparePlansResponse{
		Plans: []dto.PlanResponse{{Strategy: "greedy"}, {Strategy: "filtered"}, {Strategy: "gap_dp"}},
		Best:  "greedy",
	}}
	handler := NewPlannerHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/plans/compare", []byte(`{"tasks":[{"id":1,"duration":30}]}`))
	handler.Compare(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data dto.ComparePlansResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Plans, 3)
	assert.Equal(t, "greedy", resp.Data.Best)
}

func TestPlannerHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &plannerServiceMock{plan: &dto.PlanResponse{ID: "plan-9"}}
	handler := NewPlannerHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/plans/plan-9", nil)
	c.Params = gin.Params{{Key: "id", Value: "plan-9"}}
	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "plan-9", mockSvc.lastPlanID)
}

func TestPlannerHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPlannerHandler(&plannerServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "plan not found")})

	c, w := newGinContext(http.MethodGet, "/plans/nope", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	handler.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}
