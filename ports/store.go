package ports

import (
	"context"
	"time"

	"github.com/web3market/marketd/core"
)

// ChallengeStore holds live authentication nonces.
type ChallengeStore interface {
	// PutChallenge stores a nonce until expiresAt. Put-if-absent: a payload
	// that is already live must not be overwritten.
	PutChallenge(ctx context.Context, payload string, expiresAt time.Time) error

	// ConsumeChallenge atomically looks up and removes a nonce. It returns
	// false for unknown, already consumed and expired payloads alike, and
	// never returns a stale challenge to a losing concurrent caller.
	ConsumeChallenge(ctx context.Context, payload string) (bool, error)
}

// SessionStore holds bearer sessions keyed by token hash.
type SessionStore interface {
	PutSession(ctx context.Context, session core.Session) error

	// GetSession returns core.ErrUnauthenticated when no session exists for
	// the hash. Expiry is checked by the caller.
	GetSession(ctx context.Context, tokenHash string) (*core.Session, error)
}

// SellerStore persists verified wallet identities.
type SellerStore interface {
	// FindSeller returns core.ErrNotFound when the wallet is unknown.
	FindSeller(ctx context.Context, wallet string) (*core.Seller, error)
	SaveSeller(ctx context.Context, seller *core.Seller) error
}

// OrderFilter narrows order listings. Zero values mean no constraint.
type OrderFilter struct {
	BuyerWallet  string
	SellerWallet string
}

// CatalogStore persists products and their ratings.
type CatalogStore interface {
	CreateProduct(ctx context.Context, product *core.Product) error
	ListProducts(ctx context.Context) ([]core.Product, error)
	ListSellerProducts(ctx context.Context, wallet string) ([]core.Product, error)

	// FindProduct returns core.ErrNotFound when the product is unknown.
	FindProduct(ctx context.Context, id string) (*core.Product, error)

	// SaveRating upserts one wallet's rating and recalculates the product's
	// aggregate average and count.
	SaveRating(ctx context.Context, rating *core.Rating) error
}

// OrderStore persists orders.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *core.Order) error

	// FindOrder returns core.ErrNotFound when the order is unknown.
	FindOrder(ctx context.Context, id string) (*core.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]core.Order, error)
	UpdateOrder(ctx context.Context, order *core.Order) error
}

// ProfileStore persists buyer delivery profiles.
type ProfileStore interface {
	// GetProfile returns core.ErrNotFound when no profile has been saved.
	GetProfile(ctx context.Context, wallet string) (*core.Profile, error)
	SaveProfile(ctx context.Context, profile *core.Profile) error
}
