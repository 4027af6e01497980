package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/VPRamon/TSI-sub000/internal/models"
	appErrors "github.com/VPRamon/TSI-sub000/pkg/errors"
	"github.com/VPRamon/TSI-sub000/pkg/export"
)

// Export formats accepted by ExportService.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type validationReportSource interface {
	FetchValidationReport(ctx context.Context, scheduleID int64) (*models.ValidationReport, bool, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
}

type pdfRenderer interface {
	Render(data export.Dataset, title string, subtitle ...string) ([]byte, error)
	ContentType() string
}

// ExportedFile is a rendered download.
type ExportedFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders validation reports into downloadable files.
type ExportService struct {
	reports validationReportSource
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService. nil renderers use the defaults.
func NewExportService(reports validationReportSource, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{reports: reports, csv: csv, pdf: pdf, logger: logger}
}

// ValidationReport renders the findings of a schedule as csv or pdf.
func (s *ExportService) ValidationReport(ctx context.Context, scheduleID int64, format string) (*ExportedFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	report, _, err := s.reports.FetchValidationReport(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	dataset := ValidationDataset(report)

	file := &ExportedFile{Filename: fmt.Sprintf("schedule-%d-validation.%s", scheduleID, format)}
	switch format {
	case ExportFormatPDF:
		subtitle := fmt.Sprintf("%d blocks, %d valid, %d impossible, %d errors, %d warnings",
			report.TotalBlocks, report.ValidBlocks, len(report.Impossible), len(report.Errors), len(report.Warnings))
		file.Payload, err = s.pdf.Render(dataset, fmt.Sprintf("Validation report: schedule %d", scheduleID), subtitle)
		file.ContentType = s.pdf.ContentType()
	default:
		file.Payload, err = s.csv.Render(dataset)
		file.ContentType = s.csv.ContentType()
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render validation report")
	}

	s.logger.Info("validation report exported", zap.Int64("schedule_id", scheduleID), zap.String("format", format), zap.Int("bytes", len(file.Payload)))
	return file, nil
}

var validationHeaders = []string{"block_id", "original_block_id", "status", "criticality", "category", "issue_type", "field", "current", "expected", "description"}

// ValidationDataset flattens the non-valid findings of a report, most severe first.
func ValidationDataset(report *models.ValidationReport) export.Dataset {
	data := export.Dataset{
		Headers: validationHeaders,
		Weights: map[string]float64{"description": 3, "issue_type": 2, "original_block_id": 1.5},
	}
	if report == nil {
		return data
	}
	for _, group := range [][]models.ValidationIssue{report.Impossible, report.Errors, report.Warnings} {
		for _, issue := range group {
			data.Rows = append(data.Rows, map[string]string{
				"block_id":          strconv.FormatInt(issue.BlockID, 10),
				"original_block_id": issue.OriginalBlockID,
				"status":            string(issue.Status),
				"criticality":       issue.Criticality,
				"category":          issue.Category,
				"issue_type":        issue.IssueType,
				"field":             issue.FieldName,
				"current":           issue.CurrentValue,
				"expected":          issue.ExpectedValue,
				"description":       issue.Description,
			})
		}
	}
	return data
}
