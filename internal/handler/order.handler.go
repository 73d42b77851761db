package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketplace/internal/auth"
	"marketplace/internal/domain"
	"marketplace/internal/service"
)

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := bind(c, &req); err != nil {
		h.writeError(c, err)
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus is open to admins and to the storefront owning the order.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	var req updateStatusRequest
	if err := bind(c, &req); err != nil {
		h.writeError(c, err)
		return
	}

	principal, _ := auth.PrincipalFrom(c)
	if !principal.IsAdmin() {
		order, err := h.orders.GetOrder(c.Request.Context(), id)
		if err != nil {
			h.writeError(c, err)
			return
		}
		if !principal.Owns(order.ClientID.String()) {
			h.writeError(c, domain.Unauthorized("order belongs to another storefront"))
			return
		}
	}

	order, err := h.orders.TransitionStatus(c.Request.Context(), id, domain.OrderStatus(req.Status))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) ListOrders(c *gin.Context) {
	page, err := queryInt(c, "page", service.DefaultPage)
	if err != nil {
		h.writeError(c, err)
		return
	}
	limit, err := queryInt(c, "limit", service.DefaultLimit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	q := service.ListOrdersQuery{Page: page, Limit: limit}
	if raw := c.Query("client_id"); raw != "" {
		clientID, err := uuid.Parse(raw)
		if err != nil {
			h.writeError(c, domain.Validation("client_id", "must be a valid UUID"))
			return
		}
		q.ClientID = &clientID
	}

	result, err := h.orders.ListOrders(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
