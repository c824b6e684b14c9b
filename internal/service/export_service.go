package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/dayplan-api/internal/dto"
	"github.com/noah-isme/dayplan-api/internal/models"
	"github.com/noah-isme/dayplan-api/pkg/export"
	"github.com/noah-isme/dayplan-api/pkg/storage"
)

var planExportHeaders = []string{"Start", "End", "Task", "Description", "Category", "Duration", "Priority", "Fixed"}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService renders plan timelines and persists them behind signed download tokens.
type ExportService struct {
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService. Nil renderers fall back to the pkg/export defaults.
func NewExportService(files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		storage: files,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate renders the plan in the job's format and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob, plan *dto.PlanResponse) (*ExportResult, error) {
	if job == nil || plan == nil {
		return nil, fmt.Errorf("export job and plan required")
	}
	dataset := buildPlanDataset(plan)

	var (
		payload []byte
		err     error
	)
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("Day plan %s (%s)", plan.DayStart, plan.Strategy))
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job, plan), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Debug("plan exported", zap.String("job_id", job.ID), zap.String("plan_id", plan.ID), zap.String("path", relPath))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates a download token and returns its claims.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.DownloadClaims, error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, or the configured ResultTTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob, plan *dto.PlanResponse) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("plan_%s_%s_%s.%s", sanitizeFilename(plan.Strategy), sanitizeFilename(plan.ID), timestamp, job.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

// buildPlanDataset lists placed entries in timeline order followed by summary rows.
func buildPlanDataset(plan *dto.PlanResponse) export.Dataset {
	rows := make([]map[string]string, 0, len(plan.Entries)+4)
	for _, entry := range plan.Entries {
		rows = append(rows, map[string]string{
			"Start":       entry.Start,
			"End":         entry.End,
			"Task":        strconv.Itoa(entry.TaskID),
			"Description": entry.Description,
			"Category":    entry.Category,
			"Duration":    strconv.Itoa(entry.Duration),
			"Priority":    strconv.FormatFloat(entry.Priority, 'f', 2, 64),
			"Fixed":       strconv.FormatBool(entry.Fixed),
		})
	}
	rows = append(rows,
		map[string]string{"Description": "Work minutes", "Duration": strconv.Itoa(plan.WorkMinutes)},
		map[string]string{"Description": "Elapsed minutes", "Duration": strconv.Itoa(plan.ElapsedMinutes)},
		map[string]string{"Description": "Efficiency (%)", "Duration": strconv.FormatFloat(plan.Efficiency, 'f', 2, 64)},
	)
	if len(plan.Overlaps) > 0 {
		rows = append(rows, map[string]string{"Description": "Overlapping fixed tasks", "Task": joinIDs(plan.Overlaps)})
	}
	return export.Dataset{Headers: planExportHeaders, Rows: rows}
}

func joinIDs(ids []int) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.Itoa(id))
	}
	return strings.Join(parts, " ")
}
