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

// NewProduct is the input for a product listing.
type NewProduct struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	PriceTon    decimal.Decimal `json:"priceTon"`
	Image       string          `json:"image"` // base64 data URL
}

// CatalogService manages product listings and ratings.
type CatalogService struct {
	catalog ports.CatalogStore
	images  ports.ImageStore
	log     zerolog.Logger
	now     func() time.Time
}

// NewCatalogService creates a catalog service.
func NewCatalogService(catalog ports.CatalogStore, images ports.ImageStore, log zerolog.Logger) *CatalogService {
	return &CatalogService{
		catalog: catalog,
		images:  images,
		log:     log,
		now:     time.Now,
	}
}

// CreateProduct validates, stores the image and persists a listing owned by
// the given seller.
func (s *CatalogService) CreateProduct(ctx context.Context, sellerWallet string, in NewProduct) (*core.Product, error) {
	switch {
	case in.Title == "":
		return nil, fmt.Errorf("%w: title is required", core.ErrValidation)
	case in.Description == "":
		return nil, fmt.Errorf("%w: description is required", core.ErrValidation)
	case !in.PriceTon.IsPositive():
		return nil, fmt.Errorf("%w: priceTon must be positive", core.ErrValidation)
	case in.Image == "":
		return nil, fmt.Errorf("%w: image is required", core.ErrValidation)
	}

	image, err := s.images.SaveProductImage(ctx, in.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrValidation, err)
	}

	now := s.now()
	product := &core.Product{
		ID:             uuid.NewString(),
		SellerWallet:   sellerWallet,
		Title:          in.Title,
		Description:    in.Description,
		PriceTon:       in.PriceTon,
		ImageURL:       image.URL,
		ImageSizeBytes: image.SizeBytes,
		RatingAvg:      decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.catalog.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}

// ListProducts returns the public catalog.
func (s *CatalogService) ListProducts(ctx context.Context) ([]core.Product, error) {
	return s.catalog.ListProducts(ctx)
}

// ListSellerProducts returns one seller's listings.
func (s *CatalogService) ListSellerProducts(ctx context.Context, sellerWallet string) ([]core.Product, error) {
	return s.catalog.ListSellerProducts(ctx, sellerWallet)
}

// GetProduct returns one listing or core.ErrNotFound.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*core.Product, error) {
	return s.catalog.FindProduct(ctx, id)
}

// RateProduct upserts one wallet's rating of a product. Repeated ratings by
// the same wallet overwrite the previous one.
func (s *CatalogService) RateProduct(ctx context.Context, productID, wallet string, rating int, comment string) (*core.Rating, error) {
	if wallet == "" {
		return nil, fmt.Errorf("%w: wallet is required", core.ErrValidation)
	}
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", core.ErrValidation)
	}
	if _, err := s.catalog.FindProduct(ctx, productID); err != nil {
		return nil, err
	}

	entry := &core.Rating{
		ProductID: productID,
		Wallet:    wallet,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: s.now(),
	}
	if err := s.catalog.SaveRating(ctx, entry); err != nil {
		return nil, fmt.Errorf("save rating: %w", err)
	}
	return entry, nil
}
