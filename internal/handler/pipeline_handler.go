package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edumetrics/lms-kpi-api/internal/service"
	"github.com/edumetrics/lms-kpi-api/pkg/response"
)

// PipelineHandler exposes run management endpoints for the ETL pipeline.
type PipelineHandler struct {
	pipeline *service.PipelineService
	exports  *service.ExportService
}

// NewPipelineHandler constructs a pipeline handler.
func NewPipelineHandler(pipeline *service.PipelineService, exports *service.ExportService) *PipelineHandler {
	return &PipelineHandler{pipeline: pipeline, exports: exports}
}

// TriggerRun godoc
// @Summary Start a pipeline run
// @Description Launches an asynchronous KPI computation run over the configured course window
// @Tags Pipeline
// @Produce json
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /pipeline/runs [post]
func (h *PipelineHandler) TriggerRun(c *gin.Context) {
	run, err := h.pipeline.TriggerRun()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, run)
}

// ListRuns godoc
// @Summary List pipeline runs
// @Description Returns known runs, newest first
// @Tags Pipeline
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pipeline/runs [get]
func (h *PipelineHandler) ListRuns(c *gin.Context) {
	runs := h.pipeline.ListRuns()
	response.JSON(c, http.StatusOK, runs, map[string]interface{}{"total": len(runs)})
}

// GetRun godoc
// @Summary Get a pipeline run
// @Description Returns run progress including per-course outcomes
// @Tags Pipeline
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pipeline/runs/{id} [get]
func (h *PipelineHandler) GetRun(c *gin.Context) {
	run, err := h.pipeline.GetRun(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run)
}

// CancelRun godoc
// @Summary Cancel a pipeline run
// @Description Requests cooperative cancellation of the active run
// @Tags Pipeline
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /pipeline/runs/{id}/cancel [post]
func (h *PipelineHandler) CancelRun(c *gin.Context) {
	id := c.Param("id")
	if err := h.pipeline.CancelRun(id); err != nil {
		response.Error(c, err)
		return
	}
	run, err := h.pipeline.GetRun(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run)
}

// ExportRun godoc
// @Summary Export a run report
// @Description Downloads the per-course outcome report as CSV or PDF
// @Tags Pipeline
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Run ID"
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pipeline/runs/{id}/export [get]
func (h *PipelineHandler) ExportRun(c *gin.Context) {
	run, err := h.pipeline.GetRun(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	file, err := h.exports.RenderRun(run, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Payload)
}
