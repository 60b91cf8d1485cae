package handler

import (
	"net/http"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/pkg/logger"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/service"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/validation"
	"github.com/gin-gonic/gin"
)

type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler creates a new export handler
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Start queues a batch export and answers 202 with the job.
func (h *ExportHandler) Start(c *gin.Context) {
	var req validation.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	job, err := h.exports.Start(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Info(logger.WithJob(c.Request.Context(), job.ID), "export job queued", "scope", req.Scope)

	v, _ := h.exports.Jobs().View(job.ID)
	c.JSON(http.StatusAccepted, v)
}

// List returns the retained export jobs, newest first.
func (h *ExportHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": h.exports.Jobs().List()})
}

// Get is polled by the client for progress.
func (h *ExportHandler) Get(c *gin.Context) {
	v, ok := h.exports.Jobs().View(c.Param("id"))
	if !ok {
		respondError(c, service.ErrJobNotFound)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Download redirects to the stored archive, or streams it from memory.
func (h *ExportHandler) Download(c *gin.Context) {
	res, url, err := h.exports.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if url != "" {
		c.Redirect(http.StatusFound, url)
		return
	}
	sendResult(c, res)
}

// Cancel stops a running job. Cancelling a finished job is a no-op.
func (h *ExportHandler) Cancel(c *gin.Context) {
	if err := h.exports.Cancel(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Export cancelled"})
}
