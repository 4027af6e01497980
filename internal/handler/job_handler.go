package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VPRamon/TSI-sub000/internal/models"
	"github.com/VPRamon/TSI-sub000/pkg/response"
)

type jobLookup interface {
	Get(id string) (*models.ProcessingJob, error)
}

// JobHandler reports background job progress.
type JobHandler struct {
	jobs jobLookup
}

// NewJobHandler constructs a job handler.
func NewJobHandler(jobs jobLookup) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// Get godoc
// @Summary Background job status and log
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /jobs/{id} [get]
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.jobs.Get(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}
