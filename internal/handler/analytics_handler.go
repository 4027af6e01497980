package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/VPRamon/TSI-sub000/internal/dto"
	"github.com/VPRamon/TSI-sub000/internal/models"
	"github.com/VPRamon/TSI-sub000/internal/service"
	appErrors "github.com/VPRamon/TSI-sub000/pkg/errors"
	"github.com/VPRamon/TSI-sub000/pkg/response"
)

type analyticsService interface {
	Populate(ctx context.Context, scheduleID int64) (*models.PopulateResult, error)
	DeleteAnalytics(ctx context.Context, scheduleID int64) (int64, error)
	DeleteValidation(ctx context.Context, scheduleID int64) (int64, error)
	FetchBlockAnalytics(ctx context.Context, scheduleID int64) ([]models.BlockAnalytics, bool, error)
	FetchValidationReport(ctx context.Context, scheduleID int64) (*models.ValidationReport, bool, error)
	FetchSummary(ctx context.Context, scheduleID int64) (*models.ScheduleSummary, bool, error)
	PriorityRates(ctx context.Context, scheduleID int64) ([]models.PriorityRate, bool, error)
	VisibilityBins(ctx context.Context, scheduleID int64, bins int) ([]models.VisibilityBin, bool, error)
	Status(ctx context.Context, scheduleID int64) (*models.AnalyticsStatus, error)
}

type populateQueue interface {
	EnqueuePopulate(scheduleID int64) (*models.ProcessingJob, error)
}

type reportExporter interface {
	ValidationReport(ctx context.Context, scheduleID int64, format string) (*service.ExportedFile, error)
}

// AnalyticsHandler exposes population and the derived schedule products.
type AnalyticsHandler struct {
	analytics analyticsService
	jobs      populateQueue
	exporter  reportExporter
	logger    *zap.Logger
}

// NewAnalyticsHandler constructs the analytics handler. jobs may be nil, in
// which case asynchronous population is rejected.
func NewAnalyticsHandler(analytics analyticsService, jobs populateQueue, exporter reportExporter, logger *zap.Logger) *AnalyticsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsHandler{analytics: analytics, jobs: jobs, exporter: exporter, logger: logger}
}

// Populate godoc
// @Summary Compute analytics, validation and summary for a schedule
// @Tags Analytics
// @Produce json
// @Param id path int true "Schedule ID"
// @Param async query bool false "Queue the run and return a job"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /schedules/{id}/analytics [post]
func (h *AnalyticsHandler) Populate(c *gin.Context) {
	id, err := scheduleIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.PopulateRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	h.logger.Info("population requested", zap.String("actor", actorFromContext(c)), zap.Int64("schedule_id", id), zap.Bool("async", req.Async))

	if req.Async {
		if h.jobs == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrConnection, "background workers are not running"))
			return
		}
		job, err := h.jobs.EnqueuePopulate(id)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Accepted(c, job)
		return
	}

	result, err := h.analytics.Populate(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// DeleteAnalytics godoc
// @Summary Delete block analytics and summary of a schedule
// @Tags Analytics
// @Param id path int true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/analytics [delete]
func (h *AnalyticsHandler) DeleteAnalytics(c *gin.Context) {
	id, err := scheduleIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	removed, err := h.analytics.DeleteAnalytics(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("analytics deleted", zap.String("actor", actorFromContext(c)), zap.Int64("schedule_id", id))
	response.JSON(c, http.StatusOK, gin.H{"schedule_id": id, "deleted_rows": removed}, nil)
}

// DeleteValidation godoc
// @Summary Delete validation results of a schedule
// @Tags Validation
// @Param id path int true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/validation [delete]
func (h *AnalyticsHandler) DeleteValidation(c *gin.Context) {
	id, err := scheduleIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	removed, err := h.analytics.DeleteValidation(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("validation deleted", zap.String("actor", actorFromContext(c)), zap.Int64("schedule_id", id))
	response.JSON(c, http.StatusOK, gin.H{"schedule_id": id, "deleted_rows": removed}, nil)
}

// BlockAnalytics godoc
// @Summary Per-block analytics rows
// @Tags Analytics
// @Produce json
// @Param id path int true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/analytics [get]
func (h *AnalyticsHandler) BlockAnalytics(c *gin.Context) {
	id, err := scheduleIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	rows, cacheHit, err := h.analytics.FetchBlockAnalytics(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondCached(c, rows, cacheHit, start)
}

// Status godoc
// @Summary Which derived products exist for a schedule
// @Tags Analytics
// @Produce json
// @Param id path int true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/analytics/status [get]
func (h *AnalyticsHandler) Status(c *gin.Context) {
	id, err := scheduleIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	status, err := h.analytics.Status(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// ValidationReport godoc
// @Summary Validation findings grouped by severity
// @Tags Validation
// @Produce json
// @Param id path int true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id}/validation [get]
func (h *AnalyticsHandler) ValidationReport(c *gin.Context) {
	id, err := scheduleIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	report, cacheHit, err := h.analytics.FetchValidationReport(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondCached(c, report, cacheHit, start)
}

// ExportValidation godoc
// @Summary Download the validation report
// @Tags Validation
// @Produce text/csv
// @Produce application/pdf
// @Param id path int true "Schedule ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /schedules/{id}/validation/export [get]
func (h *AnalyticsHandler) ExportValidation(c *gin.Context) {
	id, err := scheduleIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.ValidationReport(c.Request.Context(), id, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

// Summary godoc
// @Summary Schedule-level summary
// @Tags Analytics
// @Produce json
// @Param id path int true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id}/summary [get]
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	id, err := scheduleIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.analytics.FetchSummary(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondCached(c, summary, cacheHit, start)
}

// PriorityRates godoc
// @Summary Scheduling rate per rounded priority
// @Tags Analytics
// @Produce json
// @Param id path int true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/priority-rates [get]
func (h *AnalyticsHandler) PriorityRates(c *gin.Context) {
	id, err := scheduleIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	rates, cacheHit, err := h.analytics.PriorityRates(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondCached(c, rates, cacheHit, start)
}

// VisibilityBins godoc
// @Summary Scheduling rate by total visibility
// @Tags Analytics
// @Produce json
// @Param id path int true "Schedule ID"
// @Param bins query int false "Number of bins"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/visibility-bins [get]
func (h *AnalyticsHandler) VisibilityBins(c *gin.Context) {
	id, err := scheduleIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	bins := 0
	if raw := c.Query("bins"); raw != "" {
		bins, err = strconv.Atoi(raw)
		if err != nil || bins <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "bins must be a positive integer"))
			return
		}
	}
	start := time.Now()
	out, cacheHit, err := h.analytics.VisibilityBins(c.Request.Context(), id, bins)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondCached(c, out, cacheHit, start)
}
