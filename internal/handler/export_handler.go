package handler

import (
	"fmt"
	"net/http"

	"invoicegen/internal/model"
	"invoicegen/internal/service"
	"invoicegen/pkg/pagination"
	"invoicegen/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type ExportHandler struct {
	exportService  service.ExportService
	invoiceService service.InvoiceService
	logger         *logrus.Logger
}

func NewExportHandler(exportService service.ExportService, invoiceService service.InvoiceService, logger *logrus.Logger) *ExportHandler {
	return &ExportHandler{
		exportService:  exportService,
		invoiceService: invoiceService,
		logger:         logger,
	}
}

func (h *ExportHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/preview", h.Preview)
	router.GET("/api/print", h.Print)

	exports := router.Group("/api/export")
	{
		exports.POST("/pdf", h.ExportPDF)
		exports.POST("/xlsx", h.ExportSpreadsheet)
	}

	notifications := router.Group("/api/notifications")
	{
		notifications.GET("", h.ListNotifications)
		notifications.DELETE("/:id", h.DismissNotification)
	}
}

// Preview serves the live preview page. A template query selects that template first.
// @Summary      Live preview
// @Tags         export
// @Produce      html
// @Param        template  query     string  false  "Template to select"
// @Success      200       {string}  string
// @Failure      400       {object}  response.Response
// @Router       /api/preview [get]
func (h *ExportHandler) Preview(c *gin.Context) {
	if t := c.Query("template"); t != "" {
		if _, err := h.invoiceService.SelectTemplate(c.Request.Context(), model.TemplateType(t)); err != nil {
			writeError(c, h.logger, err)
			return
		}
	}

	page, err := h.exportService.PreviewPage(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Data(http.StatusOK, contentTypeHTML, page)
}

// Print serves the preview with the print dialog trigger. It always answers 200.
// @Summary      Print page
// @Tags         export
// @Produce      html
// @Success      200  {string}  string
// @Router       /api/print [get]
func (h *ExportHandler) Print(c *gin.Context) {
	c.Data(http.StatusOK, contentTypeHTML, h.exportService.PrintPage(c.Request.Context()))
}

// ExportPDF captures the preview into a single page A4 PDF
// @Summary      Export PDF
// @Tags         export
// @Produce      application/pdf
// @Success      200  {file}    file
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/export/pdf [post]
func (h *ExportHandler) ExportPDF(c *gin.Context) {
	res, err := h.exportService.ExportPDF(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	attachment(c, res.FileName, contentTypePDF, res.Data)
}

// ExportSpreadsheet writes the line items and totals as xlsx
// @Summary      Export spreadsheet
// @Tags         export
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200  {file}    file
// @Failure      500  {object}  response.Response
// @Router       /api/export/xlsx [post]
func (h *ExportHandler) ExportSpreadsheet(c *gin.Context) {
	res, err := h.exportService.ExportSpreadsheet(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	attachment(c, res.FileName, contentTypeXLSX, res.Data)
}

// ListNotifications returns the notifications still visible, oldest first
// @Summary      List notifications
// @Tags         notifications
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=pagination.Page[notify.Notification]}
// @Router       /api/notifications [get]
func (h *ExportHandler) ListNotifications(c *gin.Context) {
	notes := h.exportService.Notifications(c.Request.Context())
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.Slice(notes, pagination.Parse(c))))
}

// DismissNotification hides a notification before it expires
// @Summary      Dismiss notification
// @Tags         notifications
// @Produce      json
// @Param        id   path      string  true  "Notification ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/notifications/{id} [delete]
func (h *ExportHandler) DismissNotification(c *gin.Context) {
	if !h.exportService.DismissNotification(c.Request.Context(), c.Param("id")) {
		c.JSON(http.StatusNotFound, response.ErrorWithCode(http.StatusNotFound, "notification_not_found", "Notification not found"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Notification dismissed"}))
}

func attachment(c *gin.Context, name, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, data)
}
