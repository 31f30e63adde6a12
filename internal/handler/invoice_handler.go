package handler

import (
	"net/http"

	"invoicegen/internal/service"
	"invoicegen/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	logger         *logrus.Logger
}

func NewInvoiceHandler(invoiceService service.InvoiceService, logger *logrus.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoice := router.Group("/api/invoice")
	{
		invoice.GET("", h.GetInvoice)
		invoice.PATCH("", h.UpdateInvoice)
		invoice.POST("/reset", h.ResetInvoice)
		invoice.POST("/line-items", h.AddLineItem)
		invoice.PATCH("/line-items/:id", h.UpdateLineItem)
		invoice.DELETE("/line-items/:id", h.RemoveLineItem)
		invoice.POST("/logo", h.SetLogo)
		invoice.DELETE("/logo", h.ClearLogo)
	}

	templates := router.Group("/api/templates")
	{
		templates.GET("", h.ListTemplates)
		templates.PUT("/selected", h.SelectTemplate)
	}

	router.GET("/api/currencies", h.ListCurrencies)
}

// GetInvoice returns the current document with its derived totals
// @Summary      Get invoice
// @Tags         invoice
// @Produce      json
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Router       /api/invoice [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.invoiceService.GetInvoice(c.Request.Context())))
}

// UpdateInvoice merges a partial document into the current one
// @Summary      Update invoice
// @Description  Shallow merge: every field present replaces the current value wholesale
// @Tags         invoice
// @Accept       json
// @Produce      json
// @Param        payload  body      service.UpdateInvoiceRequest  true  "Partial invoice"
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoice [patch]
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	var req service.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	res, err := h.invoiceService.UpdateInvoice(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ResetInvoice restores the default document and template
// @Summary      Reset invoice
// @Tags         invoice
// @Produce      json
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Router       /api/invoice/reset [post]
func (h *InvoiceHandler) ResetInvoice(c *gin.Context) {
	res, err := h.invoiceService.ResetInvoice(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// AddLineItem appends an empty row with quantity 1
// @Summary      Add line item
// @Tags         invoice
// @Produce      json
// @Success      201  {object}  response.Response{data=model.LineItem}
// @Router       /api/invoice/line-items [post]
func (h *InvoiceHandler) AddLineItem(c *gin.Context) {
	item, err := h.invoiceService.AddLineItem(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// UpdateLineItem edits one row and recomputes its total
// @Summary      Update line item
// @Tags         invoice
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Line item ID"
// @Param        payload  body      service.UpdateLineItemRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=model.LineItem}
// @Failure      404      {object}  response.Response
// @Router       /api/invoice/line-items/{id} [patch]
func (h *InvoiceHandler) UpdateLineItem(c *gin.Context) {
	var req service.UpdateLineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	item, err := h.invoiceService.UpdateLineItem(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// RemoveLineItem deletes a row. The last row cannot be removed.
// @Summary      Remove line item
// @Tags         invoice
// @Produce      json
// @Param        id   path      string  true  "Line item ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/invoice/line-items/{id} [delete]
func (h *InvoiceHandler) RemoveLineItem(c *gin.Context) {
	if err := h.invoiceService.RemoveLineItem(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Line item removed"}))
}

// SetLogo stores an uploaded image as the business logo
// @Summary      Upload logo
// @Tags         invoice
// @Accept       multipart/form-data
// @Produce      json
// @Param        logo  formData  file  true  "Logo image"
// @Success      200   {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400   {object}  response.Response
// @Router       /api/invoice/logo [post]
func (h *InvoiceHandler) SetLogo(c *gin.Context) {
	header, err := c.FormFile("logo")
	if err != nil {
		badRequest(c, "Missing logo file: "+err.Error())
		return
	}
	file, err := header.Open()
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	defer file.Close()

	res, err := h.invoiceService.SetLogo(c.Request.Context(), file)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ClearLogo removes the business logo
// @Summary      Remove logo
// @Tags         invoice
// @Produce      json
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Router       /api/invoice/logo [delete]
func (h *InvoiceHandler) ClearLogo(c *gin.Context) {
	res, err := h.invoiceService.ClearLogo(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ListTemplates returns the template variants and the selected one
// @Summary      List templates
// @Tags         templates
// @Produce      json
// @Success      200  {object}  response.Response{data=service.TemplatesResponse}
// @Router       /api/templates [get]
func (h *InvoiceHandler) ListTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.invoiceService.ListTemplates(c.Request.Context())))
}

// SelectTemplate switches the template used by preview and export
// @Summary      Select template
// @Tags         templates
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SelectTemplateRequest  true  "Template ID"
// @Success      200      {object}  response.Response{data=service.TemplatesResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/templates/selected [put]
func (h *InvoiceHandler) SelectTemplate(c *gin.Context) {
	var req service.SelectTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	res, err := h.invoiceService.SelectTemplate(c.Request.Context(), req.Template)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ListCurrencies returns the selectable currencies
// @Summary      List currencies
// @Tags         templates
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Currency}
// @Router       /api/currencies [get]
func (h *InvoiceHandler) ListCurrencies(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.invoiceService.ListCurrencies(c.Request.Context())))
}
