package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ukydev/service-center/internal/notify"
)

// NotificationHandler serves the caller's inbox.
type NotificationHandler struct {
	notify *notify.Service
}

// NewNotificationHandler creates a notification handler.
func NewNotificationHandler(svc *notify.Service) *NotificationHandler {
	return &NotificationHandler{notify: svc}
}

// List returns the caller's notifications, newest first.
// Query: unread=true, limit=N.
func (h *NotificationHandler) List(c *gin.Context) {
	_, userID, ok := caller(c)
	if !ok {
		return
	}

	unreadOnly := c.Query("unread") == "true"
	var limit int64
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			respondError(c, errBadRequest("limit must be a positive integer"))
			return
		}
		limit = n
	}

	list, err := h.notify.List(c.Request.Context(), userID, unreadOnly, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

// MarkRead marks one of the caller's notifications as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	_, userID, ok := caller(c)
	if !ok {
		return
	}

	n, err := h.notify.MarkAsRead(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, n)
}

// MarkAllRead marks every unread notification of the caller as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	_, userID, ok := caller(c)
	if !ok {
		return
	}

	updated, err := h.notify.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"updated": updated})
}

// UnreadCount returns the number of unread notifications.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	_, userID, ok := caller(c)
	if !ok {
		return
	}

	count, err := h.notify.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"count": count})
}
