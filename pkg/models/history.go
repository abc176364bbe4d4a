package models

import "time"

// PurchaseRecord is one delivered product for one user. It backs the
// verified-purchase badge on reviews elsewhere in the system.
type PurchaseRecord struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	ProductID string    `gorm:"type:varchar(36);not null" json:"product_id"`
	OrderID   string    `gorm:"type:varchar(36);not null" json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (PurchaseRecord) TableName() string {
	return "purchase_records"
}
