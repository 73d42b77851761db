package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace/internal/service"
)

func (h *Handler) CreateClient(c *gin.Context) {
	var req service.CreateClientRequest
	if err := bind(c, &req); err != nil {
		h.writeError(c, err)
		return
	}

	client, err := h.catalog.CreateClient(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (h *Handler) ListClients(c *gin.Context) {
	clients, err := h.catalog.ListClients(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, clients)
}

func (h *Handler) GetClient(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	client, err := h.catalog.GetClient(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *Handler) CreateCategory(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	var req service.CreateCategoryRequest
	if err := bind(c, &req); err != nil {
		h.writeError(c, err)
		return
	}

	category, err := h.catalog.CreateCategory(c.Request.Context(), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *Handler) ListCategories(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	categories, err := h.catalog.ListCategories(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	var req service.CreateProductRequest
	if err := bind(c, &req); err != nil {
		h.writeError(c, err)
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) ListProducts(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	products, err := h.catalog.ListProducts(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}
