package http

import (
	"log/slog"
	"net/http"

	"github.com/aq2208/gorder-oms/internal/adapter/http/middleware"
	"github.com/aq2208/gorder-oms/internal/logging"
	"github.com/aq2208/gorder-oms/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Orders    *OrderHandler
	Products  *ProductHandler
	Customers *CustomerHandler
	Stats     *StatsHandler
	Auth      *AuthHandler
}

func NewRouter(h Handlers, authz *middleware.Authz, l *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics())
	r.Use(middleware.Logging(l))

	r.GET("/healthz", func(c *gin.Context) {
		logging.From(c).Debug("health check")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "NotFound", "Endpoint not found")
	})

	api := r.Group("/api")
	{
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.GET("/auth/profile", authz.Require(), h.Auth.Profile)
		api.POST("/auth/logout", authz.Require(), h.Auth.Logout)

		api.GET("/products", authz.Require(security.PermCatalogRead), h.Products.List)
		api.GET("/products/:id", authz.Require(security.PermCatalogRead), h.Products.Get)
		api.POST("/products", authz.Require(security.PermCatalogWrite), h.Products.Create)
		api.PUT("/products/:id", authz.Require(security.PermCatalogWrite), h.Products.Update)
		api.PATCH("/products/:id", authz.Require(security.PermCatalogWrite), h.Products.Update)
		api.DELETE("/products/:id", authz.Require(security.PermCatalogWrite), h.Products.Delete)

		api.GET("/customers", authz.Require(security.PermCustomersRead), h.Customers.List)
		api.GET("/customers/:id", authz.Require(security.PermCustomersRead), h.Customers.Get)
		api.POST("/customers", authz.Require(security.PermCustomersWrite), h.Customers.Create)
		api.PUT("/customers/:id", authz.Require(security.PermCustomersWrite), h.Customers.Update)
		api.PATCH("/customers/:id", authz.Require(security.PermCustomersWrite), h.Customers.Update)
		api.DELETE("/customers/:id", authz.Require(security.PermCustomersWrite), h.Customers.Delete)

		api.GET("/orders", authz.Require(security.PermOrdersRead), h.Orders.ListOrders)
		api.GET("/orders/search", authz.Require(security.PermOrdersRead), h.Orders.SearchOrders)
		api.GET("/orders/:id", authz.Require(security.PermOrdersRead), h.Orders.GetOrderByID)
		api.POST("/orders", authz.Require(security.PermOrdersWrite), h.Orders.CreateOrder)
		api.PUT("/orders/:id/status", authz.Require(security.PermOrdersWrite), h.Orders.UpdateStatus)
		api.PATCH("/orders/:id/status", authz.Require(security.PermOrdersWrite), h.Orders.UpdateStatus)
		api.DELETE("/orders/:id", authz.Require(security.PermOrdersWrite), h.Orders.DeleteOrder)

		api.GET("/stats", authz.Require(security.PermOrdersRead), h.Stats.Stats)
		api.GET("/notifications", authz.Require(security.PermOrdersRead), h.Stats.Notifications)
	}

	return r
}
