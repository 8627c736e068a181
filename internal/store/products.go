package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/horseshoedev/mythrilmerch/internal/models"
)

// ListProducts returns every product ordered by name ascending.
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.Pool.WithConn(ctx, func(db *gorm.DB) error {
		return db.Order("name ASC").Find(&products).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := s.Pool.WithConn(ctx, func(db *gorm.DB) error {
		return db.First(&product, id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &product, nil
}

// CreateProduct inserts a product row. Only the seeding tool calls this;
// there is no HTTP route for it.
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	err := s.Pool.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(p).Error
	})
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}
