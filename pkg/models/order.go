package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipping  = "shipping"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

const (
	PaymentMethodCOD     = "cod"
	PaymentMethodGateway = "gateway"
	PaymentMethodPending = "pending"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Order is created once from a committed cart and is append-mostly after
// that. Shipping info and item prices are frozen value copies taken at
// creation time.
type Order struct {
	ID              string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          string          `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_amount"`
	Discount        decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"discount"`
	ShippingFee     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"shipping_fee"`
	FinalAmount     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"final_amount"`
	Status          string          `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	PaymentMethod   string          `gorm:"type:varchar(20);default:'pending'" json:"payment_method"`
	PaymentStatus   string          `gorm:"type:varchar(20);default:'pending'" json:"payment_status"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"paid_amount"`
	VoucherCode     string          `gorm:"type:varchar(64)" json:"voucher_code,omitempty"`
	ShippingName    string          `gorm:"type:varchar(255)" json:"shipping_name"`
	ShippingPhone   string          `gorm:"type:varchar(32)" json:"shipping_phone"`
	ShippingAddress string          `gorm:"type:varchar(512)" json:"shipping_address"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem denormalizes product name, color and price at purchase time so
// historical orders survive later catalog edits.
type OrderItem struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID     string          `gorm:"type:varchar(36);not null;index" json:"order_id"`
	ProductID   string          `gorm:"type:varchar(36);not null" json:"product_id"`
	ProductName string          `gorm:"type:varchar(255)" json:"product_name"`
	Color       string          `gorm:"type:varchar(64)" json:"color"`
	Price       decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"price"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// ShippingInfo is the point-in-time delivery contact copied onto an order.
type ShippingInfo struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// orderTransitions is the legal status graph. Delivered and cancelled are
// terminal.
var orderTransitions = map[string][]string{
	OrderStatusPending:  {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:     {OrderStatusShipping},
	OrderStatusShipping: {OrderStatusDelivered},
}

// CanTransition reports whether from -> to is a legal order status move.
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidOrderStatus reports whether s names a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipping,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}
