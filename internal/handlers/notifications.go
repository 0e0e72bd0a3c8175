package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/complaintdesk/internal/notifications"
	"github.com/charlesng35/complaintdesk/internal/services"
	"github.com/charlesng35/complaintdesk/pkg/errors"
	"github.com/charlesng35/complaintdesk/pkg/response"
)

// NotificationHandler exposes the notification log and its realtime stream.
type NotificationHandler struct {
	service *services.NotificationService
	hub     *notifications.Hub
}

// NewNotificationHandler constructs a notification handler. hub may be nil when realtime
// push is disabled.
func NewNotificationHandler(service *services.NotificationService, hub *notifications.Hub) *NotificationHandler {
	return &NotificationHandler{service: service, hub: hub}
}

// GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit := parseIntQuery(c, "limit", 25)
	offset := parseIntQuery(c, "offset", 0)

	items, total, err := h.service.ListForUser(requestContext(c), services.ListNotificationsInput{
		UserID: userID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{Limit: limit, Offset: offset, Total: total})
}

// GET /api/notifications/stream
func (h *NotificationHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	h.hub.Serve(userID, c.Writer, c.Request)
}
