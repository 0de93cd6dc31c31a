package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/web3market/marketd/ports"
	"github.com/web3market/marketd/service"
)

// Options configures the router.
type Options struct {
	Log        zerolog.Logger
	UploadsDir string // served under /uploads when non-empty
	RateMax    int    // requests per RateWindow per client; 0 disables
	RateWindow time.Duration
}

// SetupRouter wires all routes. Seller console routes sit behind the bearer
// middleware; market routes are public.
func SetupRouter(
	auth *service.AuthService,
	catalog *service.CatalogService,
	orders *service.OrderService,
	profiles ports.ProfileStore,
	opt Options,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(opt.Log))
	router.Use(cors.Default())
	if opt.RateMax > 0 {
		router.Use(RateLimit(opt.RateMax, opt.RateWindow))
	}

	h := NewHandlers(auth, catalog, orders, profiles, opt.Log)

	router.GET("/health", h.Health)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/challenge", h.Challenge)
		authGroup.POST("/verify", h.Verify)
	}

	router.GET("/products", h.ListProducts)
	router.GET("/products/:id", h.GetProduct)
	router.POST("/products/:id/ratings", h.RateProduct)

	router.POST("/orders", h.PlaceOrder)
	router.GET("/orders", h.ListBuyerOrders)

	router.GET("/profiles/:wallet", h.GetProfile)
	router.PUT("/profiles/:wallet", h.SaveProfile)

	seller := router.Group("/seller")
	seller.Use(AuthRequired(auth))
	{
		seller.GET("/me", h.Me)
		seller.GET("/products", h.ListSellerProducts)
		seller.POST("/products", h.CreateProduct)
		seller.GET("/orders", h.ListSellerOrders)
		seller.PATCH("/orders/:id", h.UpdateOrderStatus)
	}

	if opt.UploadsDir != "" {
		router.Static("/uploads", opt.UploadsDir)
	}

	return router
}
