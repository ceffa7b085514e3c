package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	orderhandler "github.com/Apurer/go-gin-orders-server/internal/domains/orders/adapters/http/handler"
	orderports "github.com/Apurer/go-gin-orders-server/internal/domains/orders/ports"
	"github.com/Apurer/go-gin-orders-server/internal/platform/auth"
)

// RouterDeps is everything the HTTP surface needs.
type RouterDeps struct {
	ServiceName string
	Orders      orderports.Service
	Checkout    orderports.CheckoutOrchestrator
	Verifier    *auth.Verifier
	Config      Config
	Logger      *slog.Logger
}

// NewRouter builds the gin engine serving /healthz and the /v1 order routes.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.Config.AllowedOrigins))
	if deps.ServiceName != "" {
		router.Use(otelgin.Middleware(deps.ServiceName))
	}

	router.GET("/healthz", func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK
		if !deps.Orders.Loaded() {
			status, code = "loading", http.StatusServiceUnavailable
		}
		if deps.Orders.FeedErr() != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status})
	})

	orders := orderhandler.NewOrdersAPI(deps.Orders, deps.Checkout, deps.Verifier, deps.Config.AdminEmails,
		orderhandler.WithLogger(deps.Logger),
		orderhandler.WithAllowedOrigins(deps.Config.AllowedOrigins),
		orderhandler.WithLocation(deps.Config.StatsLocation),
	)
	orders.Register(router.Group("/v1"))
	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", orderhandler.IdempotencyKeyHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
