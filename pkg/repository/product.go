package repository

import (
	"context"

	"github.com/example/phoneshop/pkg/models"
	"gorm.io/gorm"
)

// ProductRepository is the pricing and stock gateway over the catalog table.
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetProduct returns the product or (nil, nil) when it does not exist.
func (r *ProductRepository) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// DecrementStock takes qty units only if at least qty are available. The
// check and the write are a single conditional UPDATE, so two checkouts
// racing for the last unit cannot both win.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RestoreStock gives qty units back, compensating a decrement that belongs
// to a failed checkout or a cancelled order.
func (r *ProductRepository) RestoreStock(ctx context.Context, id string, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty)).Error
}
