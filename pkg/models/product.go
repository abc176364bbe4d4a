package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog view the transaction pipeline reads. Catalog CRUD
// lives elsewhere; this side only prices lines and gates checkout on stock.
type Product struct {
	ID              string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name            string          `gorm:"type:varchar(255);not null" json:"name"`
	Color           string          `gorm:"type:varchar(64)" json:"color"`
	Price           decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"price"`
	DiscountPercent int             `gorm:"default:0" json:"discount_percent"`
	Stock           int             `gorm:"not null;default:0" json:"stock"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

// EffectivePrice is the unit price after the catalog discount percent.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPercent <= 0 {
		return p.Price
	}
	if p.DiscountPercent >= 100 {
		return decimal.Zero
	}
	pct := decimal.NewFromInt(int64(100 - p.DiscountPercent))
	return p.Price.Mul(pct).Div(decimal.NewFromInt(100))
}
