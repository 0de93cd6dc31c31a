package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/web3market/marketd/adapters/store"
	"github.com/web3market/marketd/core"
	"github.com/web3market/marketd/ports"
)

// stubImageStore skips the real pipeline and records the last upload.
type stubImageStore struct {
	lastDataURL string
	err         error
}

func (s *stubImageStore) SaveProductImage(_ context.Context, dataURL string) (*core.StoredImage, error) {
	s.lastDataURL = dataURL
	if s.err != nil {
		return nil, s.err
	}
	return &core.StoredImage{URL: "/uploads/products/test.jpg", SizeBytes: 1024}, nil
}

var _ ports.ImageStore = (*stubImageStore)(nil)

func newTestCatalog(mem *store.Memory) (*CatalogService, *stubImageStore) {
	images := &stubImageStore{}
	return NewCatalogService(mem, images, zerolog.Nop()), images
}

func TestCreateProduct(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc, images := newTestCatalog(mem)

	product, err := svc.CreateProduct(ctx, "0:seller", NewProduct{
		Title:       "Mug",
		Description: "A mug",
		PriceTon:    decimal.NewFromInt(10),
		Image:       "data:image/png;base64,AAAA",
	})
	require.NoError(t, err)
	require.NotEmpty(t, product.ID)
	require.Equal(t, "0:seller", product.SellerWallet)
	require.Equal(t, "/uploads/products/test.jpg", product.ImageURL)
	require.Equal(t, "data:image/png;base64,AAAA", images.lastDataURL)

	got, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, product.ID, got.ID)

	mine, err := svc.ListSellerProducts(ctx, "0:seller")
	require.NoError(t, err)
	require.Len(t, mine, 1)

	other, err := svc.ListSellerProducts(ctx, "0:other")
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestCreateProductValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCatalog(store.NewMemory())

	cases := []NewProduct{
		{Description: "d", PriceTon: decimal.NewFromInt(1), Image: "x"},
		{Title: "t", PriceTon: decimal.NewFromInt(1), Image: "x"},
		{Title: "t", Description: "d", Image: "x"},
		{Title: "t", Description: "d", PriceTon: decimal.NewFromInt(-1), Image: "x"},
		{Title: "t", Description: "d", PriceTon: decimal.NewFromInt(1)},
	}
	for _, in := range cases {
		_, err := svc.CreateProduct(ctx, "0:seller", in)
		require.ErrorIs(t, err, core.ErrValidation)
	}
}

func TestRateProductAggregates(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc, _ := newTestCatalog(mem)

	product, err := svc.CreateProduct(ctx, "0:seller", NewProduct{
		Title: "Mug", Description: "A mug", PriceTon: decimal.NewFromInt(10), Image: "x",
	})
	require.NoError(t, err)

	_, err = svc.RateProduct(ctx, product.ID, "0:alice", 5, "great")
	require.NoError(t, err)
	_, err = svc.RateProduct(ctx, product.ID, "0:bob", 3, "")
	require.NoError(t, err)

	got, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), got.RatingCount)
	require.True(t, got.RatingAvg.Equal(decimal.NewFromInt(4)))

	// Re-rating by the same wallet overwrites rather than accumulating.
	_, err = svc.RateProduct(ctx, product.ID, "0:bob", 5, "upgraded")
	require.NoError(t, err)

	got, err = svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), got.RatingCount)
	require.True(t, got.RatingAvg.Equal(decimal.NewFromInt(5)))
}

func TestRateProductValidation(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc, _ := newTestCatalog(mem)

	product, err := svc.CreateProduct(ctx, "0:seller", NewProduct{
		Title: "Mug", Description: "A mug", PriceTon: decimal.NewFromInt(10), Image: "x",
	})
	require.NoError(t, err)

	_, err = svc.RateProduct(ctx, product.ID, "", 4, "")
	require.ErrorIs(t, err, core.ErrValidation)

	_, err = svc.RateProduct(ctx, product.ID, "0:alice", 0, "")
	require.ErrorIs(t, err, core.ErrValidation)

	_, err = svc.RateProduct(ctx, product.ID, "0:alice", 6, "")
	require.ErrorIs(t, err, core.ErrValidation)

	_, err = svc.RateProduct(ctx, "missing", "0:alice", 4, "")
	require.ErrorIs(t, err, core.ErrNotFound)
}
