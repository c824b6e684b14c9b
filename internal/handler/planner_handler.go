package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dayplan-api/internal/dto"
	"github.com/noah-isme/dayplan-api/internal/middleware"
	appErrors "github.com/noah-isme/dayplan-api/pkg/errors"
	"github.com/noah-isme/dayplan-api/pkg/response"
)

type plannerService interface {
	Generate(ctx context.Context, req dto.GeneratePlanRequest) (*dto.PlanResponse, error)
	Compare(ctx context.Context, req dto.GeneratePlanRequest) (*dto.ComparePlansResponse, error)
	Get(ctx context.Context, id string) (*dto.PlanResponse, error)
}

// PlannerHandler exposes plan generation endpoints.
type PlannerHandler struct {
	service plannerService
}

// NewPlannerHandler constructs the handler.
func NewPlannerHandler(svc plannerService) *PlannerHandler {
	return &PlannerHandler{service: svc}
}

// Generate godoc
// @Summary Generate a day plan
// @Description Schedules inline tasks or a stored task list with the greedy, filtered or gap_dp strategy. Supplying a seed makes the run repeatable and cacheable.
// @Tags Plans
// @Accept json
// @Produce json
// @Param payload body dto.GeneratePlanRequest true "Plan request"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /plans [post]
func (h *PlannerHandler) Generate(c *gin.Context) {
	var req dto.GeneratePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid plan payload"))
		return
	}
	plan, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, plan.Cached)
	response.JSON(c, http.StatusOK, plan, nil, middleware.ExtractMeta(c))
}

// Compare godoc
// @Summary Compare strategies
// @Description Runs every strategy over the same tasks, window and seed and names the one that placed the most work.
// @Tags Plans
// @Accept json
// @Produce json
// @Param payload body dto.GeneratePlanRequest true "Plan request; strategy is ignored"
// @Success 200 {object} response.Envelope
// @Router /plans/compare [post]
func (h *PlannerHandler) Compare(c *gin.Context) {
	var req dto.GeneratePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid plan payload"))
		return
	}
	result, err := h.service.Compare(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Fetch a generated plan
// @Tags Plans
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /plans/{id} [get]
func (h *PlannerHandler) Get(c *gin.Context) {
	plan, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}
