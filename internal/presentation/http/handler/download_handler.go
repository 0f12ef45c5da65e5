package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/finveo/invoiceflow-api/internal/application/service"
	"github.com/finveo/invoiceflow-api/internal/presentation/http/dto/response"
)

// DownloadHandler serves receipt PDFs to unauthenticated holders of a
// valid download token
type DownloadHandler struct {
	tokenService *service.TokenService
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(tokenService *service.TokenService) *DownloadHandler {
	return &DownloadHandler{tokenService: tokenService}
}

// Download handles GET /receipts/download/:token. The raw token in the URL
// is hashed for lookup and never logged or stored.
func (h *DownloadHandler) Download(c *gin.Context) {
	rawToken := c.Param("token")
	if rawToken == "" {
		response.NotFound(c, "Download token not found")
		return
	}

	receipt, _, err := h.tokenService.Redeem(
		c.Request.Context(),
		rawToken,
		c.ClientIP(),
		c.Request.UserAgent(),
	)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+receipt.FormattedNumber()+`.pdf"`)
	c.File(receipt.PDFFilePath)
}
