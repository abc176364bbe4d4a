package repository

import (
	"context"

	"github.com/example/phoneshop/pkg/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// AddPurchase appends one product of one order to the buyer's history.
func (r *HistoryRepository) AddPurchase(ctx context.Context, userID, productID, orderID string) error {
	record := &models.PurchaseRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		OrderID:   orderID,
	}
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *HistoryRepository) ListByUser(ctx context.Context, userID string) ([]models.PurchaseRecord, error) {
	var records []models.PurchaseRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}
