package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/VPRamon/TSI-sub000/internal/dto"
	"github.com/VPRamon/TSI-sub000/internal/models"
	appErrors "github.com/VPRamon/TSI-sub000/pkg/errors"
	"github.com/VPRamon/TSI-sub000/pkg/response"
)

const maxScheduleUploadBytes = 64 << 20

type scheduleService interface {
	Store(ctx context.Context, req dto.StoreScheduleRequest) (*models.StoreResult, error)
	Get(ctx context.Context, id int64) (*models.ScheduleInfo, error)
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleInfo, *models.Pagination, error)
}

// ScheduleHandler manages schedule upload and lookup endpoints.
type ScheduleHandler struct {
	service scheduleService
	logger  *zap.Logger
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc scheduleService, logger *zap.Logger) *ScheduleHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleHandler{service: svc, logger: logger}
}

// Store godoc
// @Summary Upload a schedule
// @Description Accepts JSON, or YAML when Content-Type is application/yaml. Re-uploading identical content returns the existing schedule.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.StoreScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Store(c *gin.Context) {
	req, err := bindSchedule(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.Store(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("schedule upload",
		zap.String("actor", actorFromContext(c)),
		zap.Int64("schedule_id", result.ScheduleID),
		zap.Bool("created", result.Created),
	)
	if result.Created {
		response.Created(c, result)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func bindSchedule(c *gin.Context) (dto.StoreScheduleRequest, error) {
	var req dto.StoreScheduleRequest
	contentType := strings.ToLower(c.ContentType())
	if strings.Contains(contentType, "yaml") {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxScheduleUploadBytes))
		if err != nil {
			return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read request body")
		}
		if err := yaml.Unmarshal(body, &req); err != nil {
			return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid yaml payload")
		}
		return req, nil
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	return req, nil
}

// List godoc
// @Summary List schedules
// @Tags Schedules
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	var query dto.ListSchedulesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}

	items, pagination, err := h.service.List(c.Request.Context(), models.ScheduleFilter{Page: query.Page, PageSize: query.PageSize})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get schedule
// @Tags Schedules
// @Produce json
// @Param id path int true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	id, err := scheduleIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	info, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info, nil)
}
