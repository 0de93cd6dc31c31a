package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/web3market/marketd/core"
	"github.com/web3market/marketd/ports"
	"github.com/web3market/marketd/service"
)

// Handlers holds the HTTP handlers for all routes.
type Handlers struct {
	auth     *service.AuthService
	catalog  *service.CatalogService
	orders   *service.OrderService
	profiles ports.ProfileStore
	log      zerolog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(
	auth *service.AuthService,
	catalog *service.CatalogService,
	orders *service.OrderService,
	profiles ports.ProfileStore,
	log zerolog.Logger,
) *Handlers {
	return &Handlers{auth: auth, catalog: catalog, orders: orders, profiles: profiles, log: log}
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Challenge issues a fresh single-use nonce.
func (h *Handlers) Challenge(c *gin.Context) {
	challenge, err := h.auth.IssueChallenge(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"domain":    challenge.Domain,
		"payload":   challenge.Payload,
		"expiresAt": challenge.ExpiresAt.UnixMilli(),
	})
}

// Verify checks a wallet proof and mints a bearer session.
func (h *Handlers) Verify(c *gin.Context) {
	var req struct {
		Proof  core.Proof       `json:"proof" binding:"required"`
		Wallet core.WalletClaim `json:"wallet" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.auth.VerifyProof(c.Request.Context(), req.Proof, req.Wallet)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token":     result.Token,
		"expiresAt": result.ExpiresAt.UnixMilli(),
		"seller":    result.Seller,
	})
}

// Me returns the authenticated seller.
func (h *Handlers) Me(c *gin.Context) {
	seller, ok := SellerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	c.JSON(http.StatusOK, seller)
}

func (h *Handlers) ListProducts(c *gin.Context) {
	list, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handlers) GetProduct(c *gin.Context) {
	product, err := h.catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handlers) CreateProduct(c *gin.Context) {
	seller, ok := SellerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req service.NewProduct
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), seller.Wallet, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handlers) ListSellerProducts(c *gin.Context) {
	seller, ok := SellerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	list, err := h.catalog.ListSellerProducts(c.Request.Context(), seller.Wallet)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handlers) RateProduct(c *gin.Context) {
	var req struct {
		Wallet  string `json:"wallet" binding:"required"`
		Rating  int    `json:"rating" binding:"required"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	rating, err := h.catalog.RateProduct(c.Request.Context(), c.Param("id"), req.Wallet, req.Rating, req.Comment)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rating)
}

func (h *Handlers) PlaceOrder(c *gin.Context) {
	var req service.NewOrder
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	order, err := h.orders.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handlers) ListBuyerOrders(c *gin.Context) {
	buyer := c.Query("buyer")
	if buyer == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "buyer query parameter is required"})
		return
	}

	list, err := h.orders.ListBuyerOrders(c.Request.Context(), buyer)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handlers) ListSellerOrders(c *gin.Context) {
	seller, ok := SellerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	list, err := h.orders.ListSellerOrders(c.Request.Context(), seller.Wallet)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	seller, ok := SellerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
		TxHash string `json:"txHash"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	order, err := h.orders.UpdateStatus(
		c.Request.Context(),
		seller.Wallet,
		c.Param("id"),
		core.OrderStatus(req.Status),
		req.TxHash,
	)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handlers) GetProfile(c *gin.Context) {
	wallet := c.Param("wallet")
	profile, err := h.profiles.GetProfile(c.Request.Context(), wallet)
	if errors.Is(err, core.ErrNotFound) {
		c.JSON(http.StatusOK, core.Profile{Wallet: wallet})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handlers) SaveProfile(c *gin.Context) {
	var req struct {
		DeliveryAddress *string `json:"deliveryAddress" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deliveryAddress must be a string"})
		return
	}

	profile := &core.Profile{Wallet: c.Param("wallet"), DeliveryAddress: *req.DeliveryAddress}
	if err := h.profiles.SaveProfile(c.Request.Context(), profile); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// respondError maps domain errors to responses. Auth failures stay generic
// on the wire; the internal cause is only logged.
func (h *Handlers) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrChallengeNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "challenge not found"})
	case errors.Is(err, core.ErrProofInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "proof invalid"})
	case errors.Is(err, core.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	case errors.Is(err, core.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, core.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
