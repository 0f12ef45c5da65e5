package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finveo/invoiceflow-api/internal/application/service"
	"github.com/finveo/invoiceflow-api/internal/presentation/http/dto/response"
	"github.com/finveo/invoiceflow-api/pkg/pagination"
)

// NotificationHandler handles in-app notification endpoints
type NotificationHandler struct {
	notificationService *service.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List handles GET /notifications
func (h *NotificationHandler) List(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var pag pagination.PaginationParams
	if err := c.ShouldBindQuery(&pag); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	unreadOnly := c.Query("unread") == "true"

	result, err := h.notificationService.ListNotifications(c.Request.Context(), *userID, unreadOnly, &pag)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Notifications retrieved successfully", result)
}

// MarkRead handles POST /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid notification ID")
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), *userID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Notification marked as read", nil)
}
