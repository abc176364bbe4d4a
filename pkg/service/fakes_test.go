package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/example/phoneshop/pkg/models"
	"github.com/shopspring/decimal"
)

// In-memory stores implementing the service interfaces. The catalog and the
// conditional writes are mutex-guarded so concurrency tests exercise the
// same check-and-set contract the SQL layer provides.

type memCatalog struct {
	mu       sync.Mutex
	products map[string]*models.Product
}

func newMemCatalog(products ...*models.Product) *memCatalog {
	m := &memCatalog{products: make(map[string]*models.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *memCatalog) GetProduct(_ context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memCatalog) DecrementStock(_ context.Context, id string, qty int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	return true, nil
}

func (m *memCatalog) RestoreStock(_ context.Context, id string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		p.Stock += qty
	}
	return nil
}

func (m *memCatalog) stock(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

type memCartStore struct {
	mu    sync.Mutex
	carts map[string]*models.Cart // keyed by cart id
}

func newMemCartStore() *memCartStore {
	return &memCartStore{carts: make(map[string]*models.Cart)}
}

func copyCart(c *models.Cart) *models.Cart {
	cp := *c
	cp.Items = append([]models.CartItem(nil), c.Items...)
	return &cp
}

func (m *memCartStore) GetActiveByUser(_ context.Context, userID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.carts {
		if c.UserID == userID && c.Status == models.CartStatusActive {
			return copyCart(c), nil
		}
	}
	return nil, nil
}

func (m *memCartStore) Save(_ context.Context, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[cart.ID] = copyCart(cart)
	return nil
}

func (m *memCartStore) DeleteItem(_ context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.carts {
		for i, it := range c.Items {
			if it.ID == itemID {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

func (m *memCartStore) Delete(_ context.Context, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, cartID)
	return nil
}

func (m *memCartStore) Complete(_ context.Context, cartID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[cartID]
	if !ok || c.Status != models.CartStatusActive {
		return false, nil
	}
	c.Status = models.CartStatusCompleted
	return true, nil
}

func (m *memCartStore) Reopen(_ context.Context, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[cartID]; ok && c.Status == models.CartStatusCompleted {
		c.Status = models.CartStatusActive
	}
	return nil
}

type memOrderStore struct {
	mu     sync.Mutex
	orders map[string]*models.Order
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{orders: make(map[string]*models.Order)}
}

func copyOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	return &cp
}

func (m *memOrderStore) Create(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = copyOrder(order)
	return nil
}

func (m *memOrderStore) Get(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return copyOrder(o), nil
}

func (m *memOrderStore) ListByUser(_ context.Context, userID string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *copyOrder(o))
		}
	}
	return out, nil
}

func (m *memOrderStore) ListByDateRange(_ context.Context, from, to time.Time) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if !o.CreatedAt.Before(from) && !o.CreatedAt.After(to) {
			out = append(out, *copyOrder(o))
		}
	}
	return out, nil
}

func (m *memOrderStore) UpdateStatus(_ context.Context, id, from, to string, extra map[string]interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if v, ok := extra["payment_status"].(string); ok {
		o.PaymentStatus = v
	}
	if v, ok := extra["paid_amount"].(decimal.Decimal); ok {
		o.PaidAmount = v
	}
	if v, ok := extra["cancelled_at"].(time.Time); ok {
		o.CancelledAt = &v
	}
	return true, nil
}

func (m *memOrderStore) UpdatePaymentStatus(_ context.Context, id, status, paymentStatus string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok && o.Status == status {
		o.PaymentStatus = paymentStatus
	}
	return nil
}

type memVoucherStore struct {
	vouchers map[string]*models.Voucher // keyed by uppercase code
}

func newMemVoucherStore(vouchers ...*models.Voucher) *memVoucherStore {
	m := &memVoucherStore{vouchers: make(map[string]*models.Voucher)}
	for _, v := range vouchers {
		m.vouchers[v.Code] = v
	}
	return m
}

func (m *memVoucherStore) GetByCode(_ context.Context, code string) (*models.Voucher, error) {
	v, ok := m.vouchers[normalizeCode(code)]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

type memHistoryStore struct {
	mu      sync.Mutex
	records []models.PurchaseRecord
}

func (m *memHistoryStore) AddPurchase(_ context.Context, userID, productID, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, models.PurchaseRecord{
		UserID:    userID,
		ProductID: productID,
		OrderID:   orderID,
	})
	return nil
}

func (m *memHistoryStore) ListByUser(_ context.Context, userID string) ([]models.PurchaseRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PurchaseRecord
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

var errCacheMiss = errors.New("cache miss")

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = b
	return nil
}

func (m *memCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	b, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return errCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (m *memCache) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

type auditEntry struct {
	ActorID string
	Action  string
	Module  string
}

type memAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (m *memAudit) Record(actorID, action, module string, _ map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, auditEntry{ActorID: actorID, Action: action, Module: module})
}
