package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finveo/invoiceflow-api/internal/application/service"
	"github.com/finveo/invoiceflow-api/internal/domain/enum"
	"github.com/finveo/invoiceflow-api/internal/domain/repository"
	"github.com/finveo/invoiceflow-api/internal/presentation/http/dto/request"
	"github.com/finveo/invoiceflow-api/internal/presentation/http/dto/response"
	"github.com/finveo/invoiceflow-api/pkg/pagination"
)

// ReceiptHandler handles receipt endpoints
type ReceiptHandler struct {
	receiptService *service.ReceiptService
	tokenService   *service.TokenService
}

// NewReceiptHandler creates a new receipt handler
func NewReceiptHandler(receiptService *service.ReceiptService, tokenService *service.TokenService) *ReceiptHandler {
	return &ReceiptHandler{
		receiptService: receiptService,
		tokenService:   tokenService,
	}
}

// List handles GET /receipts
func (h *ReceiptHandler) List(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	params, err := h.filterParams(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	// Non-admins only ever see their own receipts
	if !IsAdmin(c) {
		params.UserID = userID
	}

	result, err := h.receiptService.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Receipts retrieved successfully", result)
}

// Create handles POST /receipts
func (h *ReceiptHandler) Create(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req request.CreateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	receiptType := enum.ReceiptTypeAdjustment
	if req.ReceiptType != "" {
		_ = receiptType.UnmarshalJSON([]byte(`"` + req.ReceiptType + `"`))
	}

	receipt, err := h.receiptService.CreateDraft(c.Request.Context(), &service.CreateReceiptInput{
		UserID:        *userID,
		ActorID:       userID,
		ReceiptType:   receiptType,
		Title:         req.Title,
		Description:   req.Description,
		InterState:    req.InterState,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		TransactionID: req.TransactionID,
		Lines:         toLineInputs(req.Items),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Receipt created successfully", receipt)
}

// Get handles GET /receipts/:id
func (h *ReceiptHandler) Get(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid receipt ID")
		return
	}

	receipt, err := h.receiptService.GetReceipt(c.Request.Context(), id, *userID, IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Receipt retrieved successfully", receipt)
}

// Update handles PUT /receipts/:id
func (h *ReceiptHandler) Update(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid receipt ID")
		return
	}

	var req request.UpdateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	// Ownership check before touching the draft
	if _, err := h.receiptService.GetReceipt(c.Request.Context(), id, *userID, IsAdmin(c)); err != nil {
		response.Error(c, err)
		return
	}

	receipt, err := h.receiptService.UpdateDraft(c.Request.Context(), id, *userID, &service.UpdateDraftInput{
		Title:       req.Title,
		Description: req.Description,
		InterState:  req.InterState,
		Lines:       toLineInputs(req.Items),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Receipt updated successfully", receipt)
}

// Delete handles DELETE /receipts/:id
func (h *ReceiptHandler) Delete(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid receipt ID")
		return
	}

	if _, err := h.receiptService.GetReceipt(c.Request.Context(), id, *userID, IsAdmin(c)); err != nil {
		response.Error(c, err)
		return
	}

	if err := h.receiptService.DeleteDraft(c.Request.Context(), id, *userID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// GeneratePDF handles POST /receipts/:id/generate-pdf
func (h *ReceiptHandler) GeneratePDF(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid receipt ID")
		return
	}

	if _, err := h.receiptService.GetReceipt(c.Request.Context(), id, *userID, IsAdmin(c)); err != nil {
		response.Error(c, err)
		return
	}

	receipt, err := h.receiptService.GeneratePDF(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Receipt PDF generated successfully", receipt)
}

// Send handles POST /receipts/:id/send
func (h *ReceiptHandler) Send(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid receipt ID")
		return
	}

	var req request.SendReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.BadRequest(c, err.Error())
		return
	}

	if _, err := h.receiptService.GetReceipt(c.Request.Context(), id, *userID, IsAdmin(c)); err != nil {
		response.Error(c, err)
		return
	}

	receipt, err := h.receiptService.SendEmail(c.Request.Context(), id, userID, req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Receipt email queued successfully", receipt)
}

// IssueToken handles POST /receipts/:id/download-token
func (h *ReceiptHandler) IssueToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid receipt ID")
		return
	}

	raw, token, err := h.tokenService.Issue(c.Request.Context(), id, *userID, IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	// The raw token appears in this response and nowhere else
	response.Created(c, "Download token issued", gin.H{
		"token":         raw,
		"expires_at":    token.ExpiresAt,
		"max_downloads": token.MaxDownloads,
		"download_url":  "/receipts/download/" + raw,
	})
}

// Stats handles GET /admin/receipts/stats
func (h *ReceiptHandler) Stats(c *gin.Context) {
	stats, err := h.receiptService.AdminStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Receipt statistics retrieved successfully", stats)
}

// Review handles POST /admin/receipts/:id/review
func (h *ReceiptHandler) Review(c *gin.Context) {
	adminID := GetUserID(c)
	if adminID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid receipt ID")
		return
	}

	var req request.ReviewReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	receipt, err := h.receiptService.AdminReview(c.Request.Context(), id, *adminID, req.Approved, req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Receipt reviewed successfully", receipt)
}

// RevokeToken handles POST /admin/tokens/:id/revoke
func (h *ReceiptHandler) RevokeToken(c *gin.Context) {
	adminID := GetUserID(c)
	if adminID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid token ID")
		return
	}

	if err := h.tokenService.Revoke(c.Request.Context(), id, *adminID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Token revoked successfully", nil)
}

func (h *ReceiptHandler) filterParams(c *gin.Context) (*repository.ReceiptFilterParams, error) {
	var pag pagination.PaginationParams
	if err := c.ShouldBindQuery(&pag); err != nil {
		return nil, err
	}

	params := &repository.ReceiptFilterParams{Pagination: &pag}

	if s := c.Query("status"); s != "" {
		var status enum.ReceiptStatus
		if err := status.UnmarshalJSON([]byte(`"` + s + `"`)); err == nil {
			params.Status = &status
		}
	}
	if t := c.Query("type"); t != "" {
		var rType enum.ReceiptType
		if err := rType.UnmarshalJSON([]byte(`"` + t + `"`)); err == nil {
			params.Type = &rType
		}
	}
	if from := c.Query("date_from"); from != "" {
		if ts, err := time.Parse("2006-01-02", from); err == nil {
			params.DateFrom = &ts
		}
	}
	if to := c.Query("date_to"); to != "" {
		if ts, err := time.Parse("2006-01-02", to); err == nil {
			end := ts.Add(24*time.Hour - time.Nanosecond)
			params.DateTo = &end
		}
	}
	if u := c.Query("user_id"); u != "" {
		if id, err := uuid.Parse(u); err == nil {
			params.UserID = &id
		}
	}

	return params, nil
}

func toLineInputs(items []request.ReceiptItemRequest) []service.LineInput {
	lines := make([]service.LineInput, 0, len(items))
	for _, it := range items {
		lines = append(lines, service.LineInput{
			Name:               it.Name,
			Description:        it.Description,
			HSNCode:            it.HSNCode,
			Unit:               it.Unit,
			SortOrder:          it.SortOrder,
			Quantity:           it.Quantity,
			Rate:               it.Rate,
			DiscountPercentage: it.DiscountPercentage,
			DiscountAmount:     it.DiscountAmount,
			TaxRate:            it.TaxRate,
		})
	}
	return lines
}
