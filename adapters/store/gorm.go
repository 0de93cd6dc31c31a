package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/web3market/marketd/core"
	"github.com/web3market/marketd/ports"
)

// Gorm persists sellers, profiles, products, ratings and orders in Postgres.
type Gorm struct {
	db *gorm.DB
}

// OpenGorm connects to Postgres and migrates the schema.
func OpenGorm(dsn string, logSQL bool) (*Gorm, error) {
	lvl := logger.Silent
	if logSQL {
		lvl = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.New(log.New(log.Writer(), "", log.LstdFlags), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  lvl,
			IgnoreRecordNotFoundError: true,
		}),
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(
		&core.Seller{},
		&core.Profile{},
		&core.Product{},
		&core.Rating{},
		&core.Order{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) FindSeller(ctx context.Context, wallet string) (*core.Seller, error) {
	var seller core.Seller
	if err := g.db.WithContext(ctx).First(&seller, "wallet = ?", wallet).Error; err != nil {
		return nil, translate(err)
	}
	return &seller, nil
}

func (g *Gorm) SaveSeller(ctx context.Context, seller *core.Seller) error {
	return g.db.WithContext(ctx).Save(seller).Error
}

func (g *Gorm) CreateProduct(ctx context.Context, product *core.Product) error {
	return g.db.WithContext(ctx).Create(product).Error
}

func (g *Gorm) ListProducts(ctx context.Context) ([]core.Product, error) {
	var list []core.Product
	err := g.db.WithContext(ctx).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (g *Gorm) ListSellerProducts(ctx context.Context, wallet string) ([]core.Product, error) {
	var list []core.Product
	err := g.db.WithContext(ctx).
		Where("seller_wallet = ?", wallet).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (g *Gorm) FindProduct(ctx context.Context, id string) (*core.Product, error) {
	var product core.Product
	if err := g.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// SaveRating upserts the rating and recalculates the product aggregate in
// one transaction.
func (g *Gorm) SaveRating(ctx context.Context, rating *core.Rating) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "wallet"}},
			UpdateAll: true,
		}).Create(rating).Error; err != nil {
			return err
		}

		return tx.Model(&core.Product{}).
			Where("id = ?", rating.ProductID).
			Updates(map[string]any{
				"rating_avg": gorm.Expr(
					"(SELECT ROUND(AVG(rating)::numeric, 2) FROM rating WHERE product_id = ?)",
					rating.ProductID,
				),
				"rating_count": gorm.Expr(
					"(SELECT COUNT(*) FROM rating WHERE product_id = ?)",
					rating.ProductID,
				),
			}).Error
	})
}

func (g *Gorm) CreateOrder(ctx context.Context, order *core.Order) error {
	return g.db.WithContext(ctx).Create(order).Error
}

func (g *Gorm) FindOrder(ctx context.Context, id string) (*core.Order, error) {
	var order core.Order
	if err := g.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (g *Gorm) ListOrders(ctx context.Context, filter ports.OrderFilter) ([]core.Order, error) {
	q := g.db.WithContext(ctx).Order("created_at DESC")
	if filter.BuyerWallet != "" {
		q = q.Where("buyer_wallet = ?", filter.BuyerWallet)
	}
	if filter.SellerWallet != "" {
		q = q.Where("seller_wallet = ?", filter.SellerWallet)
	}
	var list []core.Order
	err := q.Find(&list).Error
	return list, err
}

func (g *Gorm) UpdateOrder(ctx context.Context, order *core.Order) error {
	return g.db.WithContext(ctx).Save(order).Error
}

func (g *Gorm) GetProfile(ctx context.Context, wallet string) (*core.Profile, error) {
	var profile core.Profile
	if err := g.db.WithContext(ctx).First(&profile, "wallet = ?", wallet).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (g *Gorm) SaveProfile(ctx context.Context, profile *core.Profile) error {
	return g.db.WithContext(ctx).Save(profile).Error
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.ErrNotFound
	}
	return err
}
