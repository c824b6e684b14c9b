package service

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/dayplan-api/internal/dto"
	"github.com/noah-isme/dayplan-api/internal/models"
	appErrors "github.com/noah-isme/dayplan-api/pkg/errors"
	"github.com/noah-isme/dayplan-api/pkg/jobs"
)

// ExportJobType tags plan export jobs on the queue.
const ExportJobType = "plan_export"

type planSource interface {
	Get(ctx context.Context, id string) (*dto.PlanResponse, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ExportJob, plan *dto.PlanResponse) (*ExportResult, error)
}

// ExportJobConfig governs retention and retries.
type ExportJobConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ExportFormat
	ExpiresAt time.Time
}

// ExportJobService orchestrates the plan export lifecycle.
type ExportJobService struct {
	plans     planSource
	store     *ExportJobStore
	queue     jobDispatcher
	exporter  *ExportService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportJobConfig
}

// NewExportJobService constructs the export job service.
func NewExportJobService(plans planSource, store *ExportJobStore, queue jobDispatcher, exporter *ExportService, validate *validator.Validate, logger *zap.Logger, cfg ExportJobConfig) *ExportJobService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &ExportJobService{
		plans:     plans,
		store:     store,
		queue:     queue,
		exporter:  exporter,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// CreateJob snapshots the plan and enqueues its rendering.
func (s *ExportJobService) CreateJob(ctx context.Context, planID string, req dto.CreateExportRequest) (*dto.ExportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format")
	}
	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		return nil, err
	}

	job := &models.ExportJob{
		ID:        uuid.NewString(),
		PlanID:    plan.ID,
		Format:    req.Format,
		Status:    models.ExportStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	s.store.Create(job)
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: ExportJobType, Payload: *plan}); err != nil {
		msg := "failed to enqueue job"
		s.store.Update(job.ID, func(j *models.ExportJob) {
			now := time.Now().UTC()
			j.Status = models.ExportStatusFailed
			j.Progress = 100
			j.ErrorMessage = &msg
			j.FinishedAt = &now
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	s.logger.Sugar().Infow("plan export queued", "job_id", job.ID, "plan_id", plan.ID, "format", job.Format)
	return toExportJobResponse(job), nil
}

// GetStatus exposes job metadata to clients.
func (s *ExportJobService) GetStatus(ctx context.Context, id string) (*dto.ExportJobResponse, error) {
	job, ok := s.store.Get(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return toExportJobResponse(&job), nil
}

// ResolveDownload validates the token and opens the stored export file.
func (s *ExportJobService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	claims, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, ok := s.store.Get(claims.JobID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ExportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	file, err := s.exporter.Open(claims.Path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ExportDownload{
		File:      file,
		Filename:  filepath.Base(claims.Path),
		Format:    job.Format,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ExportJobService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired()
			}
		}
	}()
}

func (s *ExportJobService) cleanupExpired() {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	for _, job := range s.store.FinishedBefore(cutoff) {
		if job.ResultURL != nil {
			if token := extractToken(*job.ResultURL); token != "" {
				if claims, err := s.exporter.ParseToken(token, true); err == nil {
					if err := s.exporter.Delete(claims.Path); err != nil {
						s.logger.Sugar().Warnw("cleanup delete failed", "job_id", job.ID, "error", err)
					}
				}
			}
		}
		s.store.Delete(job.ID)
	}
	if _, err := s.exporter.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Sugar().Warnw("filesystem cleanup failed", "error", err)
	}
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

func toExportJobResponse(job *models.ExportJob) *dto.ExportJobResponse {
	resp := &dto.ExportJobResponse{
		ID:        job.ID,
		PlanID:    job.PlanID,
		Format:    job.Format,
		Status:    job.Status,
		Progress:  job.Progress,
		ResultURL: job.ResultURL,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp
}

// ExportWorker bridges queue jobs to ExportService.
type ExportWorker struct {
	store      *ExportJobStore
	exporter   exportGenerator
	logger     *zap.Logger
	maxRetries int
}

// NewExportWorker constructs a worker.
func NewExportWorker(store *ExportJobStore, exporter exportGenerator, maxRetries int, logger *zap.Logger) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ExportWorker{store: store, exporter: exporter, logger: logger, maxRetries: maxRetries}
}

// Handle processes a queue job. A malformed payload fails the job without retry.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, ok := w.store.Get(job.ID)
	if !ok {
		w.logger.Sugar().Warnw("export job vanished before processing", "job_id", job.ID)
		return nil
	}
	plan, ok := job.Payload.(dto.PlanResponse)
	if !ok {
		w.finish(job.ID, nil, "export payload is not a plan")
		return nil
	}

	w.store.Update(job.ID, func(j *models.ExportJob) {
		j.Status = models.ExportStatusProcessing
		j.Progress = 10
	})
	result, err := w.exporter.Generate(ctx, &record, &plan)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.maxRetries {
			w.finish(job.ID, nil, msg)
		} else {
			w.store.Update(job.ID, func(j *models.ExportJob) {
				j.Status = models.ExportStatusQueued
				j.Progress = 0
				j.ErrorMessage = &msg
			})
		}
		return err
	}
	w.finish(job.ID, &result.URL, "")
	return nil
}

func (w *ExportWorker) finish(id string, url *string, failure string) {
	w.store.Update(id, func(j *models.ExportJob) {
		now := time.Now().UTC()
		j.Progress = 100
		j.FinishedAt = &now
		if failure != "" {
			j.Status = models.ExportStatusFailed
			j.ErrorMessage = &failure
			return
		}
		j.Status = models.ExportStatusFinished
		j.ResultURL = url
		j.ErrorMessage = nil
	})
}

// ExportJobStore keeps export job records in memory; they do not survive a restart.
type ExportJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.ExportJob
}

// NewExportJobStore constructs an empty store.
func NewExportJobStore() *ExportJobStore {
	return &ExportJobStore{jobs: make(map[string]*models.ExportJob)}
}

// Create records a job.
func (s *ExportJobStore) Create(job *models.ExportJob) {
	copied := *job
	s.mu.Lock()
	s.jobs[job.ID] = &copied
	s.mu.Unlock()
}

// Get returns a copy of the job.
func (s *ExportJobStore) Get(id string) (models.ExportJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return models.ExportJob{}, false
	}
	return *job, true
}

// Update applies fn to the stored job and reports whether it existed.
func (s *ExportJobStore) Update(id string, fn func(*models.ExportJob)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	fn(job)
	return true
}

// Delete forgets a job.
func (s *ExportJobStore) Delete(id string) {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
}

// FinishedBefore lists terminal jobs that finished before cutoff, oldest first.
func (s *ExportJobStore) FinishedBefore(cutoff time.Time) []models.ExportJob {
	s.mu.RLock()
	out := make([]models.ExportJob, 0)
	for _, job := range s.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			out = append(out, *job)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].FinishedAt.Before(*out[j].FinishedAt) })
	return out
}
