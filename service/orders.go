package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/web3market/marketd/core"
	"github.com/web3market/marketd/ports"
)

// nanoton precision: TON amounts carry at most 9 decimal places.
const tonPrecision = 9

// NewOrder is the input for placing an order.
type NewOrder struct {
	ProductID       string `json:"productId"`
	BuyerWallet     string `json:"buyerWallet"`
	DeliveryAddress string `json:"deliveryAddress"`
}

// OrderService manages order placement and seller-side status transitions.
type OrderService struct {
	orders  ports.OrderStore
	catalog ports.CatalogStore
	events  ports.EventPublisher
	log     zerolog.Logger

	platformFee decimal.Decimal
	now         func() time.Time
}

// NewOrderService creates an order service. platformFee is the fraction of
// the price retained by the platform, e.g. 0.03.
func NewOrderService(
	orders ports.OrderStore,
	catalog ports.CatalogStore,
	events ports.EventPublisher,
	platformFee decimal.Decimal,
	log zerolog.Logger,
) *OrderService {
	return &OrderService{
		orders:      orders,
		catalog:     catalog,
		events:      events,
		log:         log,
		platformFee: platformFee,
		now:         time.Now,
	}
}

// PlaceOrder creates a pending order for a product. The price is read from
// the catalog, never from the client, and split into platform fee and
// seller amount.
func (s *OrderService) PlaceOrder(ctx context.Context, in NewOrder) (*core.Order, error) {
	switch {
	case in.ProductID == "":
		return nil, fmt.Errorf("%w: productId is required", core.ErrValidation)
	case in.BuyerWallet == "":
		return nil, fmt.Errorf("%w: buyerWallet is required", core.ErrValidation)
	case in.DeliveryAddress == "":
		return nil, fmt.Errorf("%w: deliveryAddress is required", core.ErrValidation)
	}

	product, err := s.catalog.FindProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	fee := product.PriceTon.Mul(s.platformFee).Round(tonPrecision)
	now := s.now()
	order := &core.Order{
		ID:              uuid.NewString(),
		ProductID:       product.ID,
		SellerWallet:    product.SellerWallet,
		BuyerWallet:     in.BuyerWallet,
		PriceTon:        product.PriceTon,
		PlatformFeeTon:  fee,
		SellerAmountTon: product.PriceTon.Sub(fee),
		DeliveryAddress: in.DeliveryAddress,
		Status:          core.OrderPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishOrderCreated(ctx, order); err != nil {
			s.log.Warn().Err(err).Str("order", order.ID).Msg("publish order created event")
		}
	}
	return order, nil
}

// ListBuyerOrders returns a buyer's orders.
func (s *OrderService) ListBuyerOrders(ctx context.Context, buyerWallet string) ([]core.Order, error) {
	return s.orders.ListOrders(ctx, ports.OrderFilter{BuyerWallet: buyerWallet})
}

// ListSellerOrders returns a seller's incoming orders.
func (s *OrderService) ListSellerOrders(ctx context.Context, sellerWallet string) ([]core.Order, error) {
	return s.orders.ListOrders(ctx, ports.OrderFilter{SellerWallet: sellerWallet})
}

// UpdateStatus moves an order along its lifecycle on behalf of the owning
// seller. txHash is recorded when the order is marked paid.
func (s *OrderService) UpdateStatus(ctx context.Context, sellerWallet, orderID string, next core.OrderStatus, txHash string) (*core.Order, error) {
	order, err := s.orders.FindOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.SellerWallet != sellerWallet {
		return nil, core.ErrForbidden
	}
	if !order.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: cannot move order from %s to %s", core.ErrValidation, order.Status, next)
	}

	order.Status = next
	if next == core.OrderPaid && txHash != "" {
		order.TxHash = txHash
	}
	order.UpdatedAt = s.now()

	if err := s.orders.UpdateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishOrderStatus(ctx, order); err != nil {
			s.log.Warn().Err(err).Str("order", order.ID).Msg("publish order status event")
		}
	}
	return order, nil
}
