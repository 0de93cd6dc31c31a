package ports

import (
	"context"

	"github.com/web3market/marketd/core"
)

// EventPublisher publishes domain events to notify other services.
type EventPublisher interface {
	// PublishLogin publishes a successful wallet verification.
	PublishLogin(ctx context.Context, wallet string) error

	// PublishOrderCreated publishes a newly placed order.
	PublishOrderCreated(ctx context.Context, order *core.Order) error

	// PublishOrderStatus publishes an order status transition.
	PublishOrderStatus(ctx context.Context, order *core.Order) error
}
