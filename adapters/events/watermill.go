package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/web3market/marketd/core"
	"github.com/web3market/marketd/ports"
)

const (
	// LoginTopic carries successful wallet verifications.
	LoginTopic = "marketd.auth.login"

	// OrderCreatedTopic carries newly placed orders.
	OrderCreatedTopic = "marketd.orders.created"

	// OrderStatusTopic carries order status transitions.
	OrderStatusTopic = "marketd.orders.status"
)

// LoginEvent is published on every successful verification.
type LoginEvent struct {
	Wallet     string    `json:"wallet"`
	OccurredAt time.Time `json:"occurredAt"`
}

// OrderEvent is published when an order is created or changes status.
type OrderEvent struct {
	OrderID      string           `json:"orderId"`
	ProductID    string           `json:"productId"`
	SellerWallet string           `json:"sellerWallet"`
	BuyerWallet  string           `json:"buyerWallet"`
	Status       core.OrderStatus `json:"status"`
	OccurredAt   time.Time        `json:"occurredAt"`
}

// WatermillPublisher implements the EventPublisher port over a watermill
// publisher (Redis streams in production, GoChannel in dev).
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher wraps a watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

func (p *WatermillPublisher) PublishLogin(_ context.Context, wallet string) error {
	return p.publish(LoginTopic, LoginEvent{Wallet: wallet, OccurredAt: time.Now()})
}

func (p *WatermillPublisher) PublishOrderCreated(_ context.Context, order *core.Order) error {
	return p.publish(OrderCreatedTopic, orderEvent(order))
}

func (p *WatermillPublisher) PublishOrderStatus(_ context.Context, order *core.Order) error {
	return p.publish(OrderStatusTopic, orderEvent(order))
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func orderEvent(order *core.Order) OrderEvent {
	return OrderEvent{
		OrderID:      order.ID,
		ProductID:    order.ProductID,
		SellerWallet: order.SellerWallet,
		BuyerWallet:  order.BuyerWallet,
		Status:       order.Status,
		OccurredAt:   time.Now(),
	}
}
