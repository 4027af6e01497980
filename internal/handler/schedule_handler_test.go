package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VPRamon/TSI-sub000/internal/dto"
	"github.com/VPRamon/TSI-sub000/internal/middleware"
	"github.com/VPRamon/TSI-sub000/internal/models"
	appErrors "github.com/VPRamon/TSI-sub000/pkg/errors"
)

type scheduleServiceMock struct {
	storeReq    dto.StoreScheduleRequest
	storeResult *models.StoreResult
	storeErr    error
	info        *models.ScheduleInfo
	getErr      error
	filter      models.ScheduleFilter
	items       []models.ScheduleInfo
	pagination  *models.Pagination
}

func (m *scheduleServiceMock) Store(ctx context.Context, req dto.StoreScheduleRequest) (*models.StoreResult, error) {
	m.storeReq = req
	return m.storeResult, m.storeErr
}

func (m *scheduleServiceMock) Get(ctx context.Context, id int64) (*models.ScheduleInfo, error) {
	return m.info, m.getErr
}

func (m *scheduleServiceMock) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleInfo, *models.Pagination, error) {
	m.filter = filter
	return m.items, m.pagination, nil
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func withPathID(c *gin.Context, id string) {
	c.Params = gin.Params{{Key: "id", Value: id}}
}

func withOperator(c *gin.Context) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{Role: models.RoleOperator, RegisteredClaims: jwt.RegisteredClaims{Subject: "ops"}})
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

const schedulePayload = `{
  "name": "night-1",
  "dark_periods": [{"start": 60000.0, "stop": 60000.4}],
  "blocks": [{"original_block_id": "SB-1", "priority": 5, "requested_duration_sec": 600, "min_observation_sec": 300}]
}`

const scheduleYAML = `name: night-1
dark_periods:
  - start: 60000.0
    stop: 60000.4
blocks:
  - original_block_id: SB-1
    priority: 5
    requested_duration_sec: 600
    min_observation_sec: 300
`

func TestScheduleHandlerStoreCreated(t *testing.T) {
	svc := &scheduleServiceMock{storeResult: &models.StoreResult{ScheduleID: 7, Created: true, BlockCount: 1}}
	handler := NewScheduleHandler(svc, nil)

	c, w := newGinContext(http.MethodPost, "/schedules", []byte(schedulePayload))
	withOperator(c)
	handler.Store(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "night-1", svc.storeReq.Name)
	require.Len(t, svc.storeReq.Blocks, 1)
	assert.Equal(t, 5.0, svc.storeReq.Blocks[0].Priority)

	var result models.StoreResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &result))
	assert.Equal(t, int64(7), result.ScheduleID)
}

func TestScheduleHandlerStoreExistingReturnsOK(t *testing.T) {
	svc := &scheduleServiceMock{storeResult: &models.StoreResult{ScheduleID: 7, Created: false}}
	c, w := newGinContext(http.MethodPost, "/schedules", []byte(schedulePayload))
	NewScheduleHandler(svc, nil).Store(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestScheduleHandlerStoreAcceptsYAML(t *testing.T) {
	svc := &scheduleServiceMock{storeResult: &models.StoreResult{ScheduleID: 3, Created: true}}
	c, w := newGinContext(http.MethodPost, "/schedules", []byte(scheduleYAML))
	c.Request.Header.Set("Content-Type", "application/yaml")
	NewScheduleHandler(svc, nil).Store(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, svc.storeReq.DarkPeriods, 1)
	assert.Equal(t, 60000.4, *svc.storeReq.DarkPeriods[0].Stop)
	assert.Equal(t, "SB-1", svc.storeReq.Blocks[0].OriginalBlockID)
}

func TestScheduleHandlerStoreRejectsMalformedBody(t *testing.T) {
	c, w := newGinContext(http.MethodPost, "/schedules", []byte(`{"name":`))
	NewScheduleHandler(&scheduleServiceMock{}, nil).Store(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, w).Error.Code)
}

func TestScheduleHandlerStorePropagatesServiceError(t *testing.T) {
	svc := &scheduleServiceMock{storeErr: appErrors.Clone(appErrors.ErrConnection, "database down")}
	c, w := newGinContext(http.MethodPost, "/schedules", []byte(schedulePayload))
	NewScheduleHandler(svc, nil).Store(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestScheduleHandlerList(t *testing.T) {
	svc := &scheduleServiceMock{
		items:      []models.ScheduleInfo{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}},
		pagination: &models.Pagination{Page: 2, PageSize: 2, TotalCount: 4},
	}
	c, w := newGinContext(http.MethodGet, "/schedules?page=2&page_size=2", nil)
	NewScheduleHandler(svc, nil).List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ScheduleFilter{Page: 2, PageSize: 2}, svc.filter)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 4, env.Pagination.TotalCount)
}

func TestScheduleHandlerGet(t *testing.T) {
	svc := &scheduleServiceMock{info: &models.ScheduleInfo{ID: 9, Name: "night-9"}}
	c, w := newGinContext(http.MethodGet, "/schedules/9", nil)
	withPathID(c, "9")
	NewScheduleHandler(svc, nil).Get(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodGet, "/schedules/abc", nil)
	withPathID(c, "abc")
	NewScheduleHandler(svc, nil).Get(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.getErr = appErrors.Clone(appErrors.ErrScheduleNotFound, "schedule 9 not found")
	c, w = newGinContext(http.MethodGet, "/schedules/9", nil)
	withPathID(c, "9")
	NewScheduleHandler(svc, nil).Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
