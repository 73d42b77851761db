package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace/internal/auth"
	"marketplace/internal/domain"
)

type notificationRequest struct {
	Message string `json:"message" binding:"required,max=1000"`
	Data    any    `json:"data"`
}

func (h *Handler) Broadcast(c *gin.Context) {
	var req notificationRequest
	if err := bind(c, &req); err != nil {
		h.writeError(c, err)
		return
	}
	h.notifications.Broadcast(c.Request.Context(), req.Message, req.Data)
	c.Status(http.StatusAccepted)
}

// NotifyClient sends a custom notification to one storefront's channel. Only
// the storefront itself or an admin may do so.
func (h *Handler) NotifyClient(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	principal, _ := auth.PrincipalFrom(c)
	if !principal.Owns(id.String()) {
		h.writeError(c, domain.Unauthorized("cannot notify another storefront"))
		return
	}
	var req notificationRequest
	if err := bind(c, &req); err != nil {
		h.writeError(c, err)
		return
	}

	h.notifications.SendCustomNotification(c.Request.Context(), id, req.Message, req.Data)
	c.Status(http.StatusAccepted)
}

func (h *Handler) Sessions(c *gin.Context) {
	sessions := h.notifications.Sessions(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "total": len(sessions)})
}
