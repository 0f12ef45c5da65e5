package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finveo/invoiceflow-api/internal/application/service"
	"github.com/finveo/invoiceflow-api/internal/domain/entity"
	"github.com/finveo/invoiceflow-api/internal/domain/repository"
	"github.com/finveo/invoiceflow-api/internal/presentation/http/dto/response"
	"github.com/finveo/invoiceflow-api/pkg/pagination"
)

// AuditHandler handles admin audit trail endpoints
type AuditHandler struct {
	auditService *service.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// List handles GET /admin/audit-logs
func (h *AuditHandler) List(c *gin.Context) {
	var pag pagination.PaginationParams
	if err := c.ShouldBindQuery(&pag); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	params := &repository.AuditFilterParams{
		Pagination:   &pag,
		ResourceType: c.Query("resource_type"),
	}

	if a := c.Query("action"); a != "" {
		action := entity.AuditAction(a)
		params.Action = &action
	}
	if actor := c.Query("actor_id"); actor != "" {
		if id, err := uuid.Parse(actor); err == nil {
			params.ActorID = &id
		}
	}
	if res := c.Query("resource_id"); res != "" {
		if id, err := uuid.Parse(res); err == nil {
			params.ResourceID = &id
		}
	}
	if from := c.Query("from"); from != "" {
		if ts, err := time.Parse(time.RFC3339, from); err == nil {
			params.From = &ts
		}
	}
	if to := c.Query("to"); to != "" {
		if ts, err := time.Parse(time.RFC3339, to); err == nil {
			params.To = &ts
		}
	}

	result, err := h.auditService.Query(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Audit entries retrieved successfully", result)
}
