package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"catalog-relay/domain"

	"github.com/gin-gonic/gin"
)

type RelayService interface {
	Analyze(ctx context.Context, imageURL string) (domain.AnalysisResult, error)
	PickAndAnalyze(ctx context.Context) (domain.AnalysisResult, error)
	PickAnalyzeAndMirror(ctx context.Context) (domain.AnalysisResult, error)
}

type RelayHandler struct {
	service RelayService
	logger  *slog.Logger
}

func NewRelayHandler(service RelayService, logger *slog.Logger) *RelayHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RelayHandler{service: service, logger: logger}
}

func (h *RelayHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": domain.HealthMessage})
}

func (h *RelayHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// AnalyzeImage reads the target URL from the JSON body, falling back to the
// url query parameter when the body carries none.
func (h *RelayHandler) AnalyzeImage(c *gin.Context) {
	var req domain.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, h.logger, domain.NewStageError(domain.PlatformRequest, "decode body", err))
		return
	}
	if req.URL == "" {
		req.URL = c.Query("url")
	}

	result, err := h.service.Analyze(c.Request.Context(), req.URL)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *RelayHandler) RandomAnalysis(c *gin.Context) {
	result, err := h.service.PickAndAnalyze(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *RelayHandler) MirroredAnalysis(c *gin.Context) {
	result, err := h.service.PickAnalyzeAndMirror(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
