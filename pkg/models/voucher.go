package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DiscountTypeFixed      = "FIXED"
	DiscountTypePercentage = "PERCENTAGE"
)

// Voucher is a promotional code. Codes are stored uppercase and matched
// case-insensitively. Orders keep a discount snapshot, never a live
// reference, so editing a voucher cannot rewrite history.
type Voucher struct {
	ID            string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Code          string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"code"`
	DiscountType  string          `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"discount_value"`
	MinOrderValue decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"min_order_value"`
	StartDate     time.Time       `gorm:"not null" json:"start_date"`
	EndDate       time.Time       `gorm:"not null" json:"end_date"`
	IsActive      bool            `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Voucher) TableName() string {
	return "vouchers"
}

// InWindow reports whether now falls inside [StartDate, EndDate].
func (v *Voucher) InWindow(now time.Time) bool {
	return !now.Before(v.StartDate) && !now.After(v.EndDate)
}
