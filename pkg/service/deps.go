package service

import (
	"context"
	"time"

	"github.com/example/phoneshop/pkg/models"
)

// Catalog is the pricing and stock gateway. DecrementStock must be an atomic
// check-and-set: it takes qty only when at least qty units remain and reports
// whether it did.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	DecrementStock(ctx context.Context, id string, qty int) (bool, error)
	RestoreStock(ctx context.Context, id string, qty int) error
}

type CartStore interface {
	GetActiveByUser(ctx context.Context, userID string) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	DeleteItem(ctx context.Context, itemID string) error
	Delete(ctx context.Context, cartID string) error
	Complete(ctx context.Context, cartID string) (bool, error)
	Reopen(ctx context.Context, cartID string) error
}

type VoucherStore interface {
	GetByCode(ctx context.Context, code string) (*models.Voucher, error)
}

type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id, from, to string, extra map[string]interface{}) (bool, error)
	UpdatePaymentStatus(ctx context.Context, id, status, paymentStatus string) error
}

type HistoryStore interface {
	AddPurchase(ctx context.Context, userID, productID, orderID string) error
	ListByUser(ctx context.Context, userID string) ([]models.PurchaseRecord, error)
}

// Cache is the read-path cache. Misses and failures are soft; callers fall
// through to the store.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// AuditSink records staff/system actions. Fire-and-forget.
type AuditSink interface {
	Record(actorID, action, module string, details map[string]interface{})
}
