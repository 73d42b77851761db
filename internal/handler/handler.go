package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"marketplace/internal/auth"
	"marketplace/internal/domain"
	"marketplace/internal/logger"
	"marketplace/internal/service"
)

type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

type Deps struct {
	Orders        service.OrderService
	Catalog       service.CatalogService
	Notifications service.NotificationService
	Verifier      *auth.Verifier
	// Realtime serves /ws; nil leaves the route out.
	Realtime    http.Handler
	Health      HealthChecker
	CORSOrigins []string
	Log         logrus.FieldLogger
}

type Handler struct {
	orders        service.OrderService
	catalog       service.CatalogService
	notifications service.NotificationService
	health        HealthChecker
	log           *logrus.Entry
}

func NewRouter(d Deps) *gin.Engine {
	useJSONFieldNames()

	h := &Handler{
		orders:        d.Orders,
		catalog:       d.Catalog,
		notifications: d.Notifications,
		health:        d.Health,
		log:           logger.Component(d.Log, "http"),
	}

	r := gin.New()
	r.Use(Recovery(d.Log), RequestLogger(d.Log))
	r.Use(cors.New(corsConfig(d.CORSOrigins)))

	authenticated := auth.Authenticate(d.Verifier)
	admin := auth.RequireRole(auth.RoleAdmin, auth.RoleSuperAdmin)

	r.GET("/health", h.Health)
	if d.Realtime != nil {
		r.GET("/ws", gin.WrapH(d.Realtime))
	}

	r.POST("/order", h.CreateOrder)
	r.GET("/order/:id", h.GetOrder)
	r.PATCH("/order/:id/status", authenticated, h.UpdateOrderStatus)
	r.GET("/orders", h.ListOrders)

	r.GET("/client", h.ListClients)
	r.GET("/client/:id", h.GetClient)
	r.GET("/client/:id/categories", h.ListCategories)
	r.GET("/client/:id/products", h.ListProducts)
	r.POST("/client", authenticated, admin, h.CreateClient)
	r.POST("/client/:id/categories", authenticated, admin, h.CreateCategory)
	r.POST("/client/:id/products", authenticated, admin, h.CreateProduct)

	notifications := r.Group("/notifications", authenticated)
	notifications.POST("/broadcast", admin, h.Broadcast)
	notifications.POST("/client/:id", h.NotifyClient)
	notifications.GET("/sessions", admin, h.Sessions)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

func (h *Handler) Health(c *gin.Context) {
	stats := h.health.Health(c.Request.Context())
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}

func pathID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, domain.Validation("id", "must be a valid UUID")
	}
	return id, nil
}

// queryInt returns def when key is absent.
func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Validation(key, "must be an integer")
	}
	return n, nil
}
