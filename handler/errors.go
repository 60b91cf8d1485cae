package handler

import (
	"errors"
	"net/http"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/export"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/model"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/pkg/logger"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/service"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/validation"
	"github.com/gin-gonic/gin"
)

var statusByError = []struct {
	err    error
	status int
}{
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrJobNotFound, http.StatusNotFound},
	{model.ErrUnknownDocument, http.StatusNotFound},

	{model.ErrInvalidDNI, http.StatusBadRequest},
	{model.ErrMissingNombre, http.StatusBadRequest},
	{model.ErrInvalidSignature, http.StatusBadRequest},
	{model.ErrInvalidVariant, http.StatusBadRequest},
	{validation.ErrInvalidDay, http.StatusBadRequest},
	{validation.ErrInvalidScope, http.StatusBadRequest},
	{validation.ErrNoTargets, http.StatusBadRequest},
	{validation.ErrInvalidMode, http.StatusBadRequest},

	{service.ErrDuplicateDNI, http.StatusConflict},
	{service.ErrJobNotReady, http.StatusConflict},
	{model.ErrContractSigned, http.StatusConflict},
	{model.ErrContractCancelled, http.StatusConflict},
	{model.ErrVariantLocked, http.StatusConflict},
	{model.ErrLocalSignatureNewer, http.StatusConflict},
	{export.ErrNotApplicable, http.StatusConflict},

	{model.ErrNoEmployee, http.StatusUnprocessableEntity},
	{model.ErrNoSignature, http.StatusUnprocessableEntity},
	{model.ErrNoVariant, http.StatusUnprocessableEntity},
	{model.ErrBothVariants, http.StatusUnprocessableEntity},
	{export.ErrNoTargets, http.StatusUnprocessableEntity},
	{export.ErrNothingToExport, http.StatusUnprocessableEntity},
	{service.ErrLinkMismatch, http.StatusUnprocessableEntity},
}

// respondError maps domain errors to a status. Anything unknown is logged and
// answered with a generic 500.
func respondError(c *gin.Context, err error) {
	for _, e := range statusByError {
		if errors.Is(err, e.err) {
			c.JSON(e.status, gin.H{"error": err.Error()})
			return
		}
	}
	logger.Error(c.Request.Context(), "request failed", "error", err, "path", c.FullPath())
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error, please retry"})
}

// respondProblems answers 422 with every reason a contract is incomplete.
func respondProblems(c *gin.Context, problems []error) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error":   problems[0].Error(),
		"missing": validation.Messages(problems),
	})
}
