package handler

import (
	"errors"
	"net/http"

	"invoicegen/internal/export"
	"invoicegen/internal/service"
	"invoicegen/internal/store"
	"invoicegen/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// statusFor maps domain errors onto HTTP status codes and error codes
func statusFor(err error) (int, string) {
	var rasterErr *export.RasterizationError
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, store.ErrEmptyLineItems),
		errors.Is(err, store.ErrUnknownTemplate):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, store.ErrLineItemNotFound):
		return http.StatusNotFound, "line_item_not_found"
	case errors.Is(err, export.ErrPreviewNotFound):
		return http.StatusNotFound, "preview_not_found"
	case errors.Is(err, export.ErrExportInProgress):
		return http.StatusConflict, "export_in_progress"
	case errors.As(err, &rasterErr):
		return http.StatusUnprocessableEntity, "rasterization_failed"
	}
	return http.StatusInternalServerError, "internal_error"
}

func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("Request failed")
	}
	c.JSON(status, response.ErrorWithCode(status, code, err.Error()))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.ErrorWithCode(http.StatusBadRequest, "invalid_payload", msg))
}
