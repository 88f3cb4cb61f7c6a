package handler

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-generator/internal/dto"
	"github.com/noah-isme/sma-timetable-generator/internal/models"
	"github.com/noah-isme/sma-timetable-generator/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-generator/pkg/errors"
	"github.com/noah-isme/sma-timetable-generator/pkg/middleware/requestid"
	"github.com/noah-isme/sma-timetable-generator/pkg/response"
)

type runService interface {
	Create(ctx context.Context, req dto.GenerateRunRequest, requestID string) (*models.GenerationRun, error)
	Get(ctx context.Context, id string) (*models.GenerationRun, error)
	List(ctx context.Context, query dto.RunListQuery) ([]models.GenerationRun, *models.Pagination, error)
	Delete(ctx context.Context, id string) error
	ResolveDownload(ctx context.Context, token string) (*service.RunDownload, error)
}

// GeneratorHandler exposes generation runs over HTTP.
type GeneratorHandler struct {
	runs      runService
	apiPrefix string
}

// NewGeneratorHandler constructs handler.
func NewGeneratorHandler(runs runService, apiPrefix string) *GeneratorHandler {
	return &GeneratorHandler{runs: runs, apiPrefix: strings.TrimRight(apiPrefix, "/")}
}

// CreateRun godoc
// @Summary Start a generation run
// @Tags Runs
// @Accept json
// @Produce json
// @Param payload body dto.GenerateRunRequest true "Run parameters"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /runs [post]
func (h *GeneratorHandler) CreateRun(c *gin.Context) {
	var req dto.GenerateRunRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
			return
		}
	}
	run, err := h.runs.Create(c.Request.Context(), req, requestid.Value(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.RunResponse{Run: run}, fmt.Sprintf("%s/runs/%s", h.apiPrefix, run.ID))
}

// GetRun godoc
// @Summary Get run status
// @Tags Runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /runs/{id} [get]
func (h *GeneratorHandler) GetRun(c *gin.Context) {
	run, err := h.runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RunResponse{Run: run}, nil)
}

// ListRuns godoc
// @Summary List runs
// @Tags Runs
// @Produce json
// @Param status query string false "Run status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /runs [get]
func (h *GeneratorHandler) ListRuns(c *gin.Context) {
	var query dto.RunListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query"))
		return
	}
	runs, pagination, err := h.runs.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, pagination)
}

// DeleteRun godoc
// @Summary Delete a finished run and its files
// @Tags Runs
// @Param id path string true "Run ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /runs/{id} [delete]
func (h *GeneratorHandler) DeleteRun(c *gin.Context) {
	if err := h.runs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Download godoc
// @Summary Download a run artifact via signed token
// @Tags Runs
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Router /downloads/{token} [get]
func (h *GeneratorHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	result, err := h.runs.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck
	info, err := result.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read artifact"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentType(result.Filename), result.File, nil)
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".sql":
		return "application/sql"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
