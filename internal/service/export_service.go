package service

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edumetrics/lms-kpi-api/internal/models"
	appErrors "github.com/edumetrics/lms-kpi-api/pkg/errors"
	"github.com/edumetrics/lms-kpi-api/pkg/export"
)

// Supported export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered run report ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders pipeline run summaries as downloadable files.
type ExportService struct {
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{csv: csv, pdf: pdf, logger: logger}
}

// RenderRun builds the per-course outcome report for a finished (or
// in-flight) run in the requested format.
func (s *ExportService) RenderRun(run *models.PipelineRun, format string) (*ExportFile, error) {
	if run == nil {
		return nil, appErrors.ErrNotFound
	}

	dataset := buildRunDataset(run)
	title := fmt.Sprintf("Pipeline Run %s", run.ID)

	var payload []byte
	var err error
	var contentType string
	switch strings.ToLower(format) {
	case ExportFormatCSV, "":
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
		format = ExportFormatCSV
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, fmt.Errorf("render run %s: %w", run.ID, err)
	}

	filename := fmt.Sprintf("pipeline_run_%s_%s.%s", shortRunID(run.ID), run.StartedAt.UTC().Format("20060102_150405"), format)
	return &ExportFile{Filename: filename, ContentType: contentType, Payload: payload}, nil
}

func buildRunDataset(run *models.PipelineRun) export.Dataset {
	rows := make([]map[string]string, 0, len(run.Outcomes)+1)
	rows = append(rows, map[string]string{
		"Course ID":   "",
		"Course Name": "RUN TOTALS",
		"Status":      run.Status,
		"Reason":      runTotalsNote(run),
	})
	for _, outcome := range run.Outcomes {
		rows = append(rows, map[string]string{
			"Course ID":   fmt.Sprintf("%d", outcome.CourseID),
			"Course Name": outcome.CourseName,
			"Status":      outcome.Status,
			"Reason":      outcome.Reason,
		})
	}
	return export.Dataset{
		Headers: []string{"Course ID", "Course Name", "Status", "Reason"},
		Rows:    rows,
	}
}

func runTotalsNote(run *models.PipelineRun) string {
	note := fmt.Sprintf("%d processed, %d succeeded, %d skipped, %d failed",
		run.Processed, run.Succeeded, run.Skipped, run.Failed)
	if run.FinishedAt != nil {
		note += fmt.Sprintf(", duration %s", run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
	}
	return note
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
