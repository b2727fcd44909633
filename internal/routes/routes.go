package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"resto_storefront/internal/handlers"
	"resto_storefront/internal/middleware"
)

type Handlers struct {
	Cart       *handlers.CartHandler
	CartSocket *handlers.CartSocketHandler // nil sans Redis
	Checkout   *handlers.CheckoutHandler
	Orders     *handlers.OrdersHandler
}

type Options struct {
	JWTSecret   []byte
	Devices     sessions.Store
	CORSOrigins []string
	Logger      *zap.Logger
}

func RegisterRoutes(r *gin.Engine, h Handlers, opts Options) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     opts.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(middleware.Authenticate(opts.JWTSecret, opts.Logger))
	api.Use(middleware.Device(opts.Devices, opts.Logger))

	// Panier : lecture libre, écriture réservée aux clients (vérifiée par le store)
	cartGroup := api.Group("/cart")
	{
		cartGroup.GET("", h.Cart.GetCart)
		cartGroup.POST("/items", h.Cart.AddItem)
		cartGroup.DELETE("/items/:id", h.Cart.RemoveItem)
		cartGroup.DELETE("", h.Cart.ClearCart)
		if h.CartSocket != nil {
			cartGroup.GET("/ws", h.CartSocket.Serve)
		}
	}

	checkoutGroup := api.Group("/checkout", middleware.RequireCustomer)
	{
		checkoutGroup.POST("", h.Checkout.PlaceOrder)
		checkoutGroup.GET("/pending", h.Checkout.Pending)
		checkoutGroup.POST("/payment/retry", h.Checkout.RetryPayment)
		checkoutGroup.POST("/payment/confirm", h.Checkout.ConfirmPayment)
	}

	orders := api.Group("/orders")
	{
		orders.GET("/active", middleware.RequireAuth, h.Orders.ActiveOrders)
		orders.GET("/:number/qr", middleware.RequireAuth, h.Orders.PickupQR)
	}
}
