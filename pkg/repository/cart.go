package repository

import (
	"context"
	"time"

	"github.com/example/phoneshop/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

// GetActiveByUser returns the user's active cart with its items, or
// (nil, nil) when the user has none.
func (r *CartRepository) GetActiveByUser(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ? AND status = ?", userID, models.CartStatusActive).
		First(&cart).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &cart, nil
}

// Save upserts the cart row and all of its lines. Upserts rather than plain
// saves because line ids are client-generated strings, so "insert or update"
// cannot be decided from the primary key alone.
func (r *CartRepository) Save(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Clauses(clause.OnConflict{UpdateAll: true}).Create(cart).Error; err != nil {
			return err
		}
		for i := range cart.Items {
			cart.Items[i].CartID = cart.ID
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&cart.Items[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteItem removes a single line.
func (r *CartRepository) DeleteItem(ctx context.Context, itemID string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", itemID).
		Delete(&models.CartItem{}).Error
}

// Delete removes the cart and its lines; used when the last line goes so an
// empty shell is never left behind.
func (r *CartRepository) Delete(ctx context.Context, cartID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", cartID).Delete(&models.Cart{}).Error
	})
}

// Complete flips active -> completed conditionally. Exactly one of two
// concurrent checkouts on the same cart observes true.
func (r *CartRepository) Complete(ctx context.Context, cartID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND status = ?", cartID, models.CartStatusActive).
		Updates(map[string]interface{}{
			"status":     models.CartStatusCompleted,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Reopen reverts completed -> active when a claimed checkout could not go
// through, so the user keeps their cart.
func (r *CartRepository) Reopen(ctx context.Context, cartID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND status = ?", cartID, models.CartStatusCompleted).
		Updates(map[string]interface{}{
			"status":     models.CartStatusActive,
			"updated_at": time.Now(),
		}).Error
}
