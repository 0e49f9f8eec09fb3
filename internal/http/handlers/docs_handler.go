package handlers

import (
	"context"
	"net/http"

	"transferbook/internal/domain/models"
	"transferbook/internal/http/middleware"
	"transferbook/internal/services"

	"github.com/gin-gonic/gin"
)

func (h SessionHandler) docs(c *gin.Context) services.DocsService {
	return services.DocsService{
		RequestID: middleware.GetRequestID(c),
		Loader: func(ctx context.Context, sessionID string) (models.BookingReceipt, error) {
			return h.Sessions.Receipt(ctx, sessionID)
		},
	}
}

func sendPDF(c *gin.Context, data []byte, filename string) {
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

// GET /api/sessions/:id/confirmation.pdf
func (h SessionHandler) ConfirmationPDF(c *gin.Context) {
	data, filename, err := h.docs(c).GenerateConfirmation(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	sendPDF(c, data, filename)
}

// GET /api/sessions/:id/invoice.pdf
func (h SessionHandler) InvoicePDF(c *gin.Context) {
	data, filename, err := h.docs(c).GenerateInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	sendPDF(c, data, filename)
}
