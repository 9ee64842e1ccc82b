package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"catalog-relay/domain"
	"catalog-relay/repositories"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var stageFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "relay_stage_failures_total",
		Help: "Number of failed requests by the stage that failed.",
	},
	[]string{"platform"},
)

// errorResponse maps err to an HTTP status and the JSON error document.
// Request errors are the caller's fault (400); every other stage is a 500.
func errorResponse(err error) (int, domain.ErrorResponse) {
	resp := domain.ErrorResponse{
		Error:    err.Error(),
		Platform: domain.PlatformOf(err),
		Details:  domain.ErrorDetails{Cause: err.Error()},
	}

	var stageErr *domain.StageError
	if errors.As(err, &stageErr) {
		resp.Error = stageErr.Err.Error()
		resp.Details.Op = stageErr.Op
	}
	if errors.Is(err, domain.ErrNoEligibleMedia) {
		resp.Error = domain.ErrNoEligibleMedia.Error()
	}

	var httpErr *repositories.HTTPError
	if errors.As(err, &httpErr) {
		resp.Details.StatusCode = httpErr.StatusCode
	}

	if resp.Platform == domain.PlatformRequest {
		return http.StatusBadRequest, resp
	}
	return http.StatusInternalServerError, resp
}

func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status, resp := errorResponse(err)
	if resp.Platform != "" {
		stageFailures.WithLabelValues(resp.Platform).Inc()
	}

	logger.ErrorContext(c.Request.Context(), "request failed",
		slog.String("path", c.Request.URL.Path),
		slog.String("platform", resp.Platform),
		slog.Any("error", err),
	)
	c.AbortWithStatusJSON(status, resp)
}
