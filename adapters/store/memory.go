package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3market/marketd/core"
	"github.com/web3market/marketd/ports"
)

// Memory implements every store port in process memory. It backs local
// development and tests; expiry is checked lazily on read, the same way the
// Redis adapter relies on TTLs.
type Memory struct {
	mu         sync.RWMutex
	challenges map[string]time.Time
	sessions   map[string]core.Session
	sellers    map[string]core.Seller
	products   map[string]core.Product
	ratings    map[string]map[string]core.Rating // productID -> wallet -> rating
	orders     map[string]core.Order
	profiles   map[string]core.Profile

	now func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		challenges: make(map[string]time.Time),
		sessions:   make(map[string]core.Session),
		sellers:    make(map[string]core.Seller),
		products:   make(map[string]core.Product),
		ratings:    make(map[string]map[string]core.Rating),
		orders:     make(map[string]core.Order),
		profiles:   make(map[string]core.Profile),
		now:        time.Now,
	}
}

// PutChallenge stores a nonce. A still-live duplicate is refused.
func (m *Memory) PutChallenge(_ context.Context, payload string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.challenges[payload]; ok && m.now().Before(existing) {
		return core.ErrStoreOperationFailed
	}
	m.challenges[payload] = expiresAt
	return nil
}

// ConsumeChallenge removes the nonce under the lock, so concurrent callers
// racing on the same payload see at most one success. Expired entries are
// deleted and reported as not found.
func (m *Memory) ConsumeChallenge(_ context.Context, payload string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt, ok := m.challenges[payload]
	if !ok {
		return false, nil
	}
	delete(m.challenges, payload)
	if !m.now().Before(expiresAt) {
		return false, nil
	}
	return true, nil
}

func (m *Memory) PutSession(_ context.Context, session core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[session.TokenHash] = session
	return nil
}

func (m *Memory) GetSession(_ context.Context, tokenHash string) (*core.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[tokenHash]
	if !ok {
		return nil, core.ErrUnauthenticated
	}
	return &session, nil
}

func (m *Memory) FindSeller(_ context.Context, wallet string) (*core.Seller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seller, ok := m.sellers[wallet]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &seller, nil
}

func (m *Memory) SaveSeller(_ context.Context, seller *core.Seller) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sellers[seller.Wallet] = *seller
	return nil
}

func (m *Memory) CreateProduct(_ context.Context, product *core.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.products[product.ID] = *product
	return nil
}

func (m *Memory) ListProducts(_ context.Context) ([]core.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]core.Product, 0, len(m.products))
	for _, p := range m.products {
		list = append(list, p)
	}
	sortByNewest(list, func(p core.Product) time.Time { return p.CreatedAt })
	return list, nil
}

func (m *Memory) ListSellerProducts(_ context.Context, wallet string) ([]core.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []core.Product
	for _, p := range m.products {
		if p.SellerWallet == wallet {
			list = append(list, p)
		}
	}
	sortByNewest(list, func(p core.Product) time.Time { return p.CreatedAt })
	return list, nil
}

func (m *Memory) FindProduct(_ context.Context, id string) (*core.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	product, ok := m.products[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &product, nil
}

// SaveRating upserts the wallet's rating and recalculates the product
// aggregate under the same lock.
func (m *Memory) SaveRating(_ context.Context, rating *core.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	product, ok := m.products[rating.ProductID]
	if !ok {
		return core.ErrNotFound
	}

	byWallet := m.ratings[rating.ProductID]
	if byWallet == nil {
		byWallet = make(map[string]core.Rating)
		m.ratings[rating.ProductID] = byWallet
	}
	byWallet[rating.Wallet] = *rating

	sum := 0
	for _, r := range byWallet {
		sum += r.Rating
	}
	count := int64(len(byWallet))
	product.RatingCount = count
	product.RatingAvg = decimal.NewFromInt(int64(sum)).
		Div(decimal.NewFromInt(count)).
		Round(2)
	m.products[rating.ProductID] = product
	return nil
}

func (m *Memory) CreateOrder(_ context.Context, order *core.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.orders[order.ID] = *order
	return nil
}

func (m *Memory) FindOrder(_ context.Context, id string) (*core.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &order, nil
}

func (m *Memory) ListOrders(_ context.Context, filter ports.OrderFilter) ([]core.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []core.Order
	for _, o := range m.orders {
		if filter.BuyerWallet != "" && o.BuyerWallet != filter.BuyerWallet {
			continue
		}
		if filter.SellerWallet != "" && o.SellerWallet != filter.SellerWallet {
			continue
		}
		list = append(list, o)
	}
	sortByNewest(list, func(o core.Order) time.Time { return o.CreatedAt })
	return list, nil
}

func (m *Memory) UpdateOrder(_ context.Context, order *core.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[order.ID]; !ok {
		return core.ErrNotFound
	}
	m.orders[order.ID] = *order
	return nil
}

func (m *Memory) GetProfile(_ context.Context, wallet string) (*core.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	profile, ok := m.profiles[wallet]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &profile, nil
}

func (m *Memory) SaveProfile(_ context.Context, profile *core.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[profile.Wallet] = *profile
	return nil
}

func sortByNewest[T any](list []T, createdAt func(T) time.Time) {
	sort.Slice(list, func(i, j int) bool {
		return createdAt(list[i]).After(createdAt(list[j]))
	})
}
