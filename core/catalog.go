package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry owned by a seller.
type Product struct {
	ID             string          `json:"id" gorm:"primaryKey"`
	SellerWallet   string          `json:"sellerWallet" gorm:"index"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	PriceTon       decimal.Decimal `json:"priceTon" gorm:"type:numeric(20,9)"`
	ImageURL       string          `json:"imageUrl"`
	ImageSizeBytes int64           `json:"imageSizeBytes"`
	RatingAvg      decimal.Decimal `json:"ratingAvg" gorm:"type:numeric(3,2)"`
	RatingCount    int64           `json:"ratingCount"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Rating is one wallet's rating of a product. A wallet rates a product at
// most once; repeats overwrite.
type Rating struct {
	ProductID string    `json:"productId" gorm:"primaryKey"`
	Wallet    string    `json:"wallet" gorm:"primaryKey"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// CanTransition reports whether an order may move from its current status
// to next. Cancellation is allowed until the order has shipped.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	switch next {
	case OrderPaid:
		return s == OrderPending
	case OrderShipped:
		return s == OrderPaid
	case OrderCompleted:
		return s == OrderShipped
	case OrderCancelled:
		return s == OrderPending || s == OrderPaid
	default:
		return false
	}
}

// Order records a purchase and its platform-fee split.
type Order struct {
	ID              string          `json:"id" gorm:"primaryKey"`
	ProductID       string          `json:"productId" gorm:"index"`
	SellerWallet    string          `json:"sellerWallet" gorm:"index"`
	BuyerWallet     string          `json:"buyerWallet" gorm:"index"`
	PriceTon        decimal.Decimal `json:"priceTon" gorm:"type:numeric(20,9)"`
	PlatformFeeTon  decimal.Decimal `json:"platformFeeTon" gorm:"type:numeric(20,9)"`
	SellerAmountTon decimal.Decimal `json:"sellerAmountTon" gorm:"type:numeric(20,9)"`
	DeliveryAddress string          `json:"deliveryAddress"`
	Status          OrderStatus     `json:"status"`
	TxHash          string          `json:"txHash,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// StoredImage is a processed product image on disk.
type StoredImage struct {
	URL       string
	SizeBytes int64
}

// Profile is a buyer's stored delivery address.
type Profile struct {
	Wallet          string `json:"wallet" gorm:"primaryKey"`
	DeliveryAddress string `json:"deliveryAddress"`
}
