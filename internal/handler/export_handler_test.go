package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dayplan-api/internal/dto"
	"github.com/noah-isme/dayplan-api/internal/models"
	"github.com/noah-isme/dayplan-api/internal/service"
	appErrors "github.com/noah-isme/dayplan-api/pkg/errors"
)

type exportServiceMock struct {
	createResp  *dto.ExportJobResponse
	createErr   error
	statusResp  *dto.ExportJobResponse
	statusErr   error
	download    *service.ExportDownload
	downloadErr error

	lastPlanID string
	lastToken  string
}

func (m *exportServiceMock) CreateJob(ctx context.Context, planID string, req dto.CreateExportRequest) (*dto.ExportJobResponse, error) {
	m.lastPlanID = planID
	return m.createResp, m.createErr
}

func (m *exportServiceMock) GetStatus(ctx context.Context, id string) (*dto.ExportJobResponse, error) {
	return m.statusResp, m.statusErr
}

func (m *exportServiceMock) ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error) {
	m.lastToken = token
	return m.download, m.downloadErr
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestExportHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exportServiceMock{
		createResp: &dto.ExportJobResponse{ID: "job-1", PlanID: "plan-1", Format: models.ExportFormatCSV, Status: models.ExportStatusQueued},
	}
	handler := NewExportHandler(mockSvc)

	payload, _ := json.Marshal(dto.CreateExportRequest{Format: models.ExportFormatCSV})
	c, w := newGinContext(http.MethodPost, "/plans/plan-1/exports", payload)
	c.Params = gin.Params{{Key: "id", Value: "plan-1"}}

	handler.Create(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "plan-1", mockSvc.lastPlanID)
	var resp struct {
		Data dto.ExportJobResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp.Data.ID)
	assert.Equal(t, models.ExportStatusQueued, resp.Data.Status)
}

func TestExportHandlerCreateRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExportHandler(&exportServiceMock{})

	c, w := newGinContext(http.MethodPost, "/plans/plan-1/exports", []byte("{"))
	c.Params = gin.Params{{Key: "id", Value: "plan-1"}}

	handler.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHandlerDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExportHandler(nil)

	c, w := newGinContext(http.MethodGet, "/exports/jobs/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	handler.Status(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), appErrors.ErrExportsDisabled.Code)
}

func TestExportHandlerStatusNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExportHandler(&exportServiceMock{statusErr: appErrors.Clone(appErrors.ErrNotFound, "export job not found")})

	c, w := newGinContext(http.MethodGet, "/exports/jobs/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Status(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "plan.csv")
	require.NoError(t, os.WriteFile(path, []byte("Start,End\n09:00,09:30\n"), 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	mockSvc := &exportServiceMock{download: &service.ExportDownload{
		File:      file,
		Filename:  "plan.csv",
		Format:    models.ExportFormatCSV,
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	handler := NewExportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/export/token-1", nil)
	c.Params = gin.Params{{Key: "token", Value: "token-1"}}
	handler.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "token-1", mockSvc.lastToken)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=\"plan.csv\"", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "Start,End\n09:00,09:30\n", w.Body.String())
}

func TestExportHandlerDownloadForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExportHandler(&exportServiceMock{downloadErr: appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")})

	c, w := newGinContext(http.MethodGet, "/export/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	handler.Download(c)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestExportHandlerDownloadRequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exportServiceMock{downloadErr: errors.New("must not be called")}
	handler := NewExportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/export/", nil)
	c.Params = gin.Params{{Key: "token", Value: "  "}}
	handler.Download(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mockSvc.lastToken)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", contentType(models.ExportFormatCSV))
	assert.Equal(t, "application/pdf", contentType(models.ExportFormatPDF))
	assert.Equal(t, "application/octet-stream", contentType("xlsx"))
}
