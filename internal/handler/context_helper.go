package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/VPRamon/TSI-sub000/internal/middleware"
	appErrors "github.com/VPRamon/TSI-sub000/pkg/errors"
	"github.com/VPRamon/TSI-sub000/pkg/response"
)

func actorFromContext(c *gin.Context) string {
	if claims, ok := middleware.Claims(c); ok && claims.Subject != "" {
		return claims.Subject
	}
	return "anonymous"
}

// scheduleIDParam parses the :id path parameter as a positive schedule id.
func scheduleIDParam(c *gin.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "schedule id must be a positive integer")
	}
	return id, nil
}

// respondCached writes data with the cache and timing metadata of the request.
func respondCached(c *gin.Context, data interface{}, cacheHit bool, start time.Time) {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	elapsed := middleware.Elapsed(c)
	if elapsed == 0 {
		elapsed = time.Since(start)
	}
	meta["processing_time_ms"] = elapsed.Milliseconds()
	response.JSON(c, http.StatusOK, data, nil, meta)
}
