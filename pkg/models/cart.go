package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CartStatusActive    = "active"
	CartStatusAbandoned = "abandoned"
	CartStatusCompleted = "completed"
)

// Cart is the only mutable pre-commit entity: one active cart per user.
type Cart struct {
	ID             string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID         string          `gorm:"type:varchar(36);not null;uniqueIndex" json:"user_id"`
	Items          []CartItem      `gorm:"foreignKey:CartID" json:"items"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"discount_amount"`
	FinalAmount    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"final_amount"`
	VoucherCode    string          `gorm:"type:varchar(64)" json:"voucher_code,omitempty"`
	Status         string          `gorm:"type:varchar(20);default:'active'" json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (Cart) TableName() string {
	return "carts"
}

type CartItem struct {
	ID        string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CartID    string          `gorm:"type:varchar(36);not null;index" json:"cart_id"`
	ProductID string          `gorm:"type:varchar(36);not null" json:"product_id"`
	Price     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"price"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// FindItem returns the line for the given item id, or nil.
func (c *Cart) FindItem(itemID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}

// FindItemByProduct returns the line for the given product, or nil.
func (c *Cart) FindItemByProduct(productID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// Recalculate rewrites every line subtotal and all three cart amounts from
// scratch. Amounts are clamped so total, discount and final never go
// negative and final = max(0, total - discount) holds after every mutation.
func (c *Cart) Recalculate(discount decimal.Decimal) {
	total := decimal.Zero
	for i := range c.Items {
		c.Items[i].Subtotal = c.Items[i].Price.Mul(decimal.NewFromInt(int64(c.Items[i].Quantity)))
		if c.Items[i].Subtotal.IsNegative() {
			c.Items[i].Subtotal = decimal.Zero
		}
		total = total.Add(c.Items[i].Subtotal)
	}
	if total.IsNegative() {
		total = decimal.Zero
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	final := total.Sub(discount)
	if final.IsNegative() {
		final = decimal.Zero
	}
	c.TotalAmount = total
	c.DiscountAmount = discount
	c.FinalAmount = final
}

// CartSnapshot is the immutable view handed to checkout. It is a value copy:
// later cart or catalog mutations cannot reach through it.
type CartSnapshot struct {
	CartID         string
	UserID         string
	Items          []SnapshotItem
	TotalAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
	VoucherCode    string
}

type SnapshotItem struct {
	ProductID string
	Price     decimal.Decimal
	Quantity  int
	Subtotal  decimal.Decimal
}

// Snapshot copies the cart into an immutable checkout view.
func (c *Cart) Snapshot() CartSnapshot {
	items := make([]SnapshotItem, len(c.Items))
	for i, it := range c.Items {
		items[i] = SnapshotItem{
			ProductID: it.ProductID,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal,
		}
	}
	return CartSnapshot{
		CartID:         c.ID,
		UserID:         c.UserID,
		Items:          items,
		TotalAmount:    c.TotalAmount,
		DiscountAmount: c.DiscountAmount,
		FinalAmount:    c.FinalAmount,
		VoucherCode:    c.VoucherCode,
	}
}
