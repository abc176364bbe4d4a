package gateway

import (
	"fmt"
	"net/http"
	"time"

	"github.com/example/phoneshop/pkg/config"
	"github.com/example/phoneshop/pkg/service"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Gateway is the HTTP surface over the transaction pipeline. Everything
// behind it returns structured results; this layer only binds requests,
// resolves the caller and maps errors to status codes.
type Gateway struct {
	config   *config.Config
	logger   *zap.Logger
	router   *gin.Engine
	carts    *service.CartService
	orders   *service.OrderService
	payments *service.PaymentService
}

func NewGateway(cfg *config.Config, logger *zap.Logger,
	carts *service.CartService, orders *service.OrderService, payments *service.PaymentService) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	return &Gateway{
		config:   cfg,
		logger:   logger,
		router:   router,
		carts:    carts,
		orders:   orders,
		payments: payments,
	}
}

func (g *Gateway) SetupRoutes() {
	// Health check
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := authMiddleware(g.config.Auth.JWTSecret)

	v1 := g.router.Group("/api/v1")
	{
		cart := v1.Group("/cart", auth)
		{
			cart.GET("", g.getCart)
			cart.POST("/items", g.addCartItem)
			cart.PUT("/items/:id", g.updateCartItem)
			cart.DELETE("/items/:id", g.removeCartItem)
			cart.POST("/voucher", g.applyVoucher)
			cart.DELETE("/voucher", g.removeVoucher)
		}

		v1.POST("/checkout", auth, g.checkout)

		orders := v1.Group("/orders", auth)
		{
			orders.GET("", g.listOrders)
			orders.GET("/history", g.purchaseHistory)
			orders.GET("/:id", g.getOrder)
			orders.POST("/:id/cancel", g.cancelOrder)
		}

		// Gateway callbacks carry their own signature, not a bearer token.
		v1.GET("/payment/callback", g.paymentCallback)
		v1.POST("/payment/callback", g.paymentCallback)

		admin := v1.Group("/admin", auth, staffRequired())
		{
			admin.GET("/orders", g.listOrdersByDateRange)
			admin.PUT("/orders/:id/status", g.updateOrderStatus)
		}
	}

	// Swagger
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.Server.Port)
	g.logger.Info("Gateway starting", zap.String("address", addr))
	return g.router.Run(addr)
}

// Router exposes the engine for tests.
func (g *Gateway) Router() *gin.Engine {
	return g.router
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
