package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VPRamon/TSI-sub000/internal/middleware"
	"github.com/VPRamon/TSI-sub000/internal/models"
	"github.com/VPRamon/TSI-sub000/internal/service"
	appErrors "github.com/VPRamon/TSI-sub000/pkg/errors"
)

type analyticsServiceMock struct {
	populated   []int64
	populateErr error
	removed     int64
	report      *models.ValidationReport
	reportErr   error
	summary     *models.ScheduleSummary
	cacheHit    bool
	bins        int
	status      *models.AnalyticsStatus
}

func (m *analyticsServiceMock) Populate(ctx context.Context, id int64) (*models.PopulateResult, error) {
	m.populated = append(m.populated, id)
	if m.populateErr != nil {
		return nil, m.populateErr
	}
	return &models.PopulateResult{ScheduleID: id, BlocksProcessed: 3}, nil
}

func (m *analyticsServiceMock) DeleteAnalytics(ctx context.Context, id int64) (int64, error) {
	return m.removed, nil
}

func (m *analyticsServiceMock) DeleteValidation(ctx context.Context, id int64) (int64, error) {
	return m.removed, nil
}

func (m *analyticsServiceMock) FetchBlockAnalytics(ctx context.Context, id int64) ([]models.BlockAnalytics, bool, error) {
	return []models.BlockAnalytics{{ScheduleID: id, BlockID: 1}}, m.cacheHit, nil
}

func (m *analyticsServiceMock) FetchValidationReport(ctx context.Context, id int64) (*models.ValidationReport, bool, error) {
	return m.report, m.cacheHit, m.reportErr
}

func (m *analyticsServiceMock) FetchSummary(ctx context.Context, id int64) (*models.ScheduleSummary, bool, error) {
	return m.summary, m.cacheHit, nil
}

func (m *analyticsServiceMock) PriorityRates(ctx context.Context, id int64) ([]models.PriorityRate, bool, error) {
	return []models.PriorityRate{{Priority: 5, TotalCount: 2, ScheduledCount: 1, SchedulingRate: 0.5}}, m.cacheHit, nil
}

func (m *analyticsServiceMock) VisibilityBins(ctx context.Context, id int64, bins int) ([]models.VisibilityBin, bool, error) {
	m.bins = bins
	return []models.VisibilityBin{{Index: 0}}, m.cacheHit, nil
}

func (m *analyticsServiceMock) Status(ctx context.Context, id int64) (*models.AnalyticsStatus, error) {
	return m.status, nil
}

type populateQueueMock struct {
	job *models.ProcessingJob
	err error
}

func (m *populateQueueMock) EnqueuePopulate(id int64) (*models.ProcessingJob, error) {
	return m.job, m.err
}

type exporterMock struct {
	format string
}

func (m *exporterMock) ValidationReport(ctx context.Context, id int64, format string) (*service.ExportedFile, error) {
	m.format = format
	if format != service.ExportFormatCSV {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	return &service.ExportedFile{Filename: "schedule-4-validation.csv", ContentType: "text/csv", Payload: []byte("a,b\n")}, nil
}

func TestAnalyticsHandlerPopulateSync(t *testing.T) {
	svc := &analyticsServiceMock{}
	handler := NewAnalyticsHandler(svc, nil, nil, nil)

	c, w := newGinContext(http.MethodPost, "/schedules/4/analytics", nil)
	withPathID(c, "4")
	withOperator(c)
	handler.Populate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{4}, svc.populated)
	var result models.PopulateResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &result))
	assert.Equal(t, 3, result.BlocksProcessed)
}

func TestAnalyticsHandlerPopulateAsync(t *testing.T) {
	svc := &analyticsServiceMock{}
	queue := &populateQueueMock{job: &models.ProcessingJob{ID: "job-1", ScheduleID: 4, Status: models.JobStatusQueued}}
	handler := NewAnalyticsHandler(svc, queue, nil, nil)

	c, w := newGinContext(http.MethodPost, "/schedules/4/analytics?async=true", nil)
	withPathID(c, "4")
	handler.Populate(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Empty(t, svc.populated)
	var job models.ProcessingJob
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &job))
	assert.Equal(t, "job-1", job.ID)

	queue.err = appErrors.Clone(appErrors.ErrConflict, "population of schedule 4 is already in progress")
	c, w = newGinContext(http.MethodPost, "/schedules/4/analytics?async=true", nil)
	withPathID(c, "4")
	handler.Populate(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAnalyticsHandlerPopulateAsyncWithoutWorkers(t *testing.T) {
	c, w := newGinContext(http.MethodPost, "/schedules/4/analytics?async=true", nil)
	withPathID(c, "4")
	NewAnalyticsHandler(&analyticsServiceMock{}, nil, nil, nil).Populate(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAnalyticsHandlerPopulateUnknownSchedule(t *testing.T) {
	svc := &analyticsServiceMock{populateErr: appErrors.Clone(appErrors.ErrScheduleNotFound, "schedule 99 not found")}
	c, w := newGinContext(http.MethodPost, "/schedules/99/analytics", nil)
	withPathID(c, "99")
	NewAnalyticsHandler(svc, nil, nil, nil).Populate(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, appErrors.ErrScheduleNotFound.Code, decodeEnvelope(t, w).Error.Code)
}

func TestAnalyticsHandlerDeletes(t *testing.T) {
	svc := &analyticsServiceMock{removed: 12}
	handler := NewAnalyticsHandler(svc, nil, nil, nil)

	c, w := newGinContext(http.MethodDelete, "/schedules/4/analytics", nil)
	withPathID(c, "4")
	handler.DeleteAnalytics(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted_rows":12`)

	c, w = newGinContext(http.MethodDelete, "/schedules/4/validation", nil)
	withPathID(c, "4")
	handler.DeleteValidation(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAnalyticsHandlerValidationReportCacheMeta(t *testing.T) {
	svc := &analyticsServiceMock{report: &models.ValidationReport{ScheduleID: 4, TotalBlocks: 2, ValidBlocks: 1}, cacheHit: true}
	c, w := newGinContext(http.MethodGet, "/schedules/4/validation", nil)
	withPathID(c, "4")
	NewAnalyticsHandler(svc, nil, nil, nil).ValidationReport(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get(middleware.CacheHeader))
	env := decodeEnvelope(t, w)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Contains(t, env.Meta, "processing_time_ms")
}

func TestAnalyticsHandlerValidationReportMissing(t *testing.T) {
	svc := &analyticsServiceMock{reportErr: appErrors.Clone(appErrors.ErrNotFound, "no validation results for schedule 4")}
	c, w := newGinContext(http.MethodGet, "/schedules/4/validation", nil)
	withPathID(c, "4")
	NewAnalyticsHandler(svc, nil, nil, nil).ValidationReport(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalyticsHandlerProjections(t *testing.T) {
	svc := &analyticsServiceMock{summary: &models.ScheduleSummary{ScheduleID: 4, TotalBlocks: 2}}
	handler := NewAnalyticsHandler(svc, nil, nil, nil)

	c, w := newGinContext(http.MethodGet, "/schedules/4/summary", nil)
	withPathID(c, "4")
	handler.Summary(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get(middleware.CacheHeader))

	c, w = newGinContext(http.MethodGet, "/schedules/4/priority-rates", nil)
	withPathID(c, "4")
	handler.PriorityRates(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"scheduling_rate":0.5`)

	c, w = newGinContext(http.MethodGet, "/schedules/4/analytics", nil)
	withPathID(c, "4")
	handler.BlockAnalytics(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodGet, "/schedules/4/visibility-bins?bins=12", nil)
	withPathID(c, "4")
	handler.VisibilityBins(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 12, svc.bins)

	c, w = newGinContext(http.MethodGet, "/schedules/4/visibility-bins?bins=-1", nil)
	withPathID(c, "4")
	handler.VisibilityBins(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyticsHandlerStatus(t *testing.T) {
	svc := &analyticsServiceMock{status: &models.AnalyticsStatus{ScheduleID: 4, HasAnalytics: true}}
	c, w := newGinContext(http.MethodGet, "/schedules/4/analytics/status", nil)
	withPathID(c, "4")
	NewAnalyticsHandler(svc, nil, nil, nil).Status(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"has_analytics":true`)
}

func TestAnalyticsHandlerExportValidation(t *testing.T) {
	exporter := &exporterMock{}
	handler := NewAnalyticsHandler(&analyticsServiceMock{}, nil, exporter, nil)

	c, w := newGinContext(http.MethodGet, "/schedules/4/validation/export", nil)
	withPathID(c, "4")
	handler.ExportValidation(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportFormatCSV, exporter.format)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "schedule-4-validation.csv")
	assert.Equal(t, "a,b\n", w.Body.String())

	c, w = newGinContext(http.MethodGet, "/schedules/4/validation/export?format=xlsx", nil)
	withPathID(c, "4")
	handler.ExportValidation(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
