package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/horseshoedev/mythrilmerch/internal/models"
)

// CartRow is a cart item joined with its product, shaped for transport.
type CartRow struct {
	CartItemID  uint    `json:"cartItemId"`
	ProductID   uint    `json:"productId"`
	Quantity    uint    `json:"quantity"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl"`
}

// AddToCart merges quantity into the existing row for the product or
// inserts a new one. The whole sequence runs in one transaction and the
// merge itself is a single upsert, so two concurrent adds for the same
// product can never create two rows.
func (s *Store) AddToCart(ctx context.Context, productID, quantity uint) (*models.CartItem, error) {
	var item models.CartItem
	err := s.Pool.WithTx(ctx, func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("product %d: %w", productID, ErrNotFound)
			}
			return err
		}

		item = models.CartItem{ProductID: productID, Quantity: quantity}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{"quantity": gorm.Expr("cart_items.quantity + ?", quantity)}),
		}).Create(&item).Error; err != nil {
			return err
		}

		// Re-read: on conflict the insert does not report the merged row.
		return tx.Where("product_id = ?", productID).First(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListCart returns the cart joined with product details, oldest row first.
func (s *Store) ListCart(ctx context.Context) ([]CartRow, error) {
	rows := []CartRow{}
	err := s.Pool.WithConn(ctx, func(db *gorm.DB) error {
		return db.Model(&models.CartItem{}).
			Select("cart_items.id AS cart_item_id, cart_items.product_id, cart_items.quantity, products.name, products.description, products.price, products.image_url").
			Joins("JOIN products ON products.id = cart_items.product_id").
			Order("cart_items.id ASC").
			Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	return rows, nil
}

// UpdateCartItem sets the quantity of a cart row. Zero rows affected is
// NotFound and rolls the transaction back.
func (s *Store) UpdateCartItem(ctx context.Context, id, quantity uint) error {
	return s.Pool.WithTx(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&models.CartItem{}).Where("id = ?", id).Update("quantity", quantity)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("cart item %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// RemoveCartItem deletes a cart row. Zero rows affected is NotFound.
func (s *Store) RemoveCartItem(ctx context.Context, id uint) error {
	return s.Pool.WithTx(ctx, func(tx *gorm.DB) error {
		result := tx.Delete(&models.CartItem{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("cart item %d: %w", id, ErrNotFound)
		}
		return nil
	})
}
