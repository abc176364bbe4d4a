package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/example/phoneshop/pkg/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var testShipping = models.ShippingInfo{
	FullName: "Nguyen Van A",
	Phone:    "0901234567",
	Address:  "1 Le Loi, District 1",
}

type orderFixture struct {
	orders  *OrderService
	carts   *CartService
	catalog *memCatalog
	store   *memOrderStore
	history *memHistoryStore
	audit   *memAudit
	cache   *memCache
}

func newOrderFixture(t *testing.T, fee int64, products []*models.Product, vouchers ...*models.Voucher) *orderFixture {
	t.Helper()
	catalog := newMemCatalog(products...)
	cartStore := newMemCartStore()
	orderStore := newMemOrderStore()
	history := &memHistoryStore{}
	auditSink := &memAudit{}
	cache := newMemCache()

	voucherSvc := NewVoucherService(newMemVoucherStore(vouchers...), zap.NewNop())
	cartSvc := NewCartService(cartStore, catalog, voucherSvc, cache, zap.NewNop())
	orderSvc := NewOrderService(orderStore, cartStore, catalog, history,
		cache, auditSink, decimal.NewFromInt(fee), zap.NewNop())

	return &orderFixture{
		orders:  orderSvc,
		carts:   cartSvc,
		catalog: catalog,
		store:   orderStore,
		history: history,
		audit:   auditSink,
		cache:   cache,
	}
}

func TestCheckoutTotalsMatchSnapshotExactly(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 30_000,
		[]*models.Product{phone("p1", 10_000_000, 5)},
		activeVoucher("SALE10", models.DiscountTypePercentage, 10, 0))

	if _, err := f.carts.AddItem(ctx, "u1", "p1", 1); err != nil {
		t.Fatal(err)
	}
	cart, err := f.carts.ApplyVoucher(ctx, "u1", "SALE10")
	if err != nil {
		t.Fatal(err)
	}

	order, err := f.orders.Checkout(ctx, "u1", testShipping, models.PaymentMethodCOD)
	if err != nil {
		t.Fatalf("Checkout() error: %v", err)
	}

	if !order.TotalAmount.Equal(cart.TotalAmount) {
		t.Fatalf("TotalAmount = %s, want %s", order.TotalAmount, cart.TotalAmount)
	}
	if !order.Discount.Equal(cart.DiscountAmount) {
		t.Fatalf("Discount = %s, want %s", order.Discount, cart.DiscountAmount)
	}
	wantFinal := cart.FinalAmount.Add(decimal.NewFromInt(30_000))
	if !order.FinalAmount.Equal(wantFinal) {
		t.Fatalf("FinalAmount = %s, want %s", order.FinalAmount, wantFinal)
	}
	if order.Status != models.OrderStatusPending || order.PaymentStatus != models.PaymentStatusPending {
		t.Fatalf("status = %s/%s, want pending/pending", order.Status, order.PaymentStatus)
	}
	if order.ShippingName != testShipping.FullName || order.ShippingAddress != testShipping.Address {
		t.Fatalf("shipping snapshot not copied: %+v", order)
	}
	if len(order.Items) != 1 || order.Items[0].ProductName != "Phone p1" {
		t.Fatalf("items not denormalized: %+v", order.Items)
	}
	if f.catalog.stock("p1") != 4 {
		t.Fatalf("stock = %d, want 4 after checkout", f.catalog.stock("p1"))
	}
}

func TestCheckoutEmptyAndDoubleCheckout(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 0, []*models.Product{phone("p1", 1_000_000, 5)})

	if _, err := f.orders.Checkout(ctx, "u1", testShipping, models.PaymentMethodCOD); !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("Checkout() empty error = %v, want ErrCartEmpty", err)
	}

	if _, err := f.carts.AddItem(ctx, "u1", "p1", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.orders.Checkout(ctx, "u1", testShipping, models.PaymentMethodCOD); err != nil {
		t.Fatalf("Checkout() error: %v", err)
	}

	// The committed cart is gone; a second checkout cannot mint a second
	// order from it.
	if _, err := f.orders.Checkout(ctx, "u1", testShipping, models.PaymentMethodCOD); !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("second Checkout() error = %v, want ErrCartEmpty", err)
	}
	orders, _ := f.store.ListByUser(ctx, "u1")
	if len(orders) != 1 {
		t.Fatalf("order count = %d, want 1", len(orders))
	}
}

func TestCheckoutStockChangedRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 0, []*models.Product{phone("p1", 1_000_000, 5), phone("p2", 2_000_000, 5)})

	if _, err := f.carts.AddItem(ctx, "u1", "p1", 2); err != nil {
		t.Fatal(err)
	}
	if _, err := f.carts.AddItem(ctx, "u1", "p2", 2); err != nil {
		t.Fatal(err)
	}

	// p2 sells out between cart build and checkout.
	if ok, _ := f.catalog.DecrementStock(ctx, "p2", 4); !ok {
		t.Fatal("fixture decrement failed")
	}

	if _, err := f.orders.Checkout(ctx, "u1", testShipping, models.PaymentMethodCOD); !errors.Is(err, ErrStockChanged) {
		t.Fatalf("Checkout() error = %v, want ErrStockChanged", err)
	}

	// The winning p1 decrement was compensated and the cart survived.
	if got := f.catalog.stock("p1"); got != 5 {
		t.Fatalf("p1 stock = %d, want 5 after rollback", got)
	}
	cart, _ := f.carts.Get(ctx, "u1")
	if len(cart.Items) != 2 {
		t.Fatalf("cart lost after failed checkout: %+v", cart)
	}
	if orders, _ := f.store.ListByUser(ctx, "u1"); len(orders) != 0 {
		t.Fatalf("order created despite stock failure: %+v", orders)
	}
}

// Two checkouts race for the last unit: exactly one wins, the loser sees
// ErrStockChanged, and stock never goes negative.
func TestConcurrentCheckoutLastUnit(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 0, []*models.Product{phone("p1", 1_000_000, 1)})

	users := []string{"u1", "u2"}
	for _, u := range users {
		if _, err := f.carts.AddItem(ctx, u, "p1", 1); err != nil {
			t.Fatal(err)
		}
	}

	errs := make([]error, len(users))
	var wg sync.WaitGroup
	for i, u := range users {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			_, errs[i] = f.orders.Checkout(ctx, u, testShipping, models.PaymentMethodCOD)
		}(i, u)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrStockChanged):
			losses++
		default:
			t.Fatalf("unexpected checkout error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("wins=%d losses=%d, want exactly one of each", wins, losses)
	}
	if got := f.catalog.stock("p1"); got != 0 {
		t.Fatalf("stock = %d, want 0", got)
	}
}

func TestOrderLifecycleDeliveredFeedsHistory(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 0, []*models.Product{phone("p1", 1_000_000, 5), phone("p2", 2_000_000, 5)})

	if _, err := f.carts.AddItem(ctx, "u1", "p1", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.carts.AddItem(ctx, "u1", "p2", 1); err != nil {
		t.Fatal(err)
	}
	order, err := f.orders.Checkout(ctx, "u1", testShipping, models.PaymentMethodCOD)
	if err != nil {
		t.Fatal(err)
	}

	for _, next := range []string{models.OrderStatusPaid, models.OrderStatusShipping, models.OrderStatusDelivered} {
		if _, err := f.orders.TransitionStatus(ctx, order.ID, next, "staff-1"); err != nil {
			t.Fatalf("TransitionStatus(%s) error: %v", next, err)
		}
	}

	records, _ := f.history.ListByUser(ctx, "u1")
	if len(records) != 2 {
		t.Fatalf("purchase history entries = %d, want 2", len(records))
	}

	// Delivered is terminal.
	if _, err := f.orders.TransitionStatus(ctx, order.ID, models.OrderStatusPaid, "staff-1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("TransitionStatus(delivered->paid) error = %v, want ErrInvalidTransition", err)
	}

	got, _ := f.orders.Get(ctx, order.ID)
	if got.PaymentStatus != models.PaymentStatusPaid || !got.PaidAmount.Equal(order.FinalAmount) {
		t.Fatalf("COD confirm did not settle payment: %+v", got)
	}
	if len(f.audit.entries) == 0 {
		t.Fatal("staff transitions produced no audit entries")
	}
}

func TestHistorySkipsVanishedProduct(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 0, []*models.Product{phone("p1", 1_000_000, 5), phone("p2", 2_000_000, 5)})

	if _, err := f.carts.AddItem(ctx, "u1", "p1", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.carts.AddItem(ctx, "u1", "p2", 1); err != nil {
		t.Fatal(err)
	}
	order, err := f.orders.Checkout(ctx, "u1", testShipping, models.PaymentMethodCOD)
	if err != nil {
		t.Fatal(err)
	}

	// p2 is deleted from the catalog before delivery.
	f.catalog.mu.Lock()
	delete(f.catalog.products, "p2")
	f.catalog.mu.Unlock()

	for _, next := range []string{models.OrderStatusPaid, models.OrderStatusShipping, models.OrderStatusDelivered} {
		if _, err := f.orders.TransitionStatus(ctx, order.ID, next, "staff-1"); err != nil {
			t.Fatalf("TransitionStatus(%s) error: %v", next, err)
		}
	}

	records, _ := f.history.ListByUser(ctx, "u1")
	if len(records) != 1 || records[0].ProductID != "p1" {
		t.Fatalf("history = %+v, want only p1", records)
	}
}

func TestCancellationRules(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 0, []*models.Product{phone("p1", 1_000_000, 20)})

	newOrder := func(user string) *models.Order {
		t.Helper()
		if _, err := f.carts.AddItem(ctx, user, "p1", 2); err != nil {
			t.Fatal(err)
		}
		order, err := f.orders.Checkout(ctx, user, testShipping, models.PaymentMethodCOD)
		if err != nil {
			t.Fatal(err)
		}
		return order
	}

	t.Run("pending order cancels and releases stock", func(t *testing.T) {
		order := newOrder("u1")
		before := f.catalog.stock("p1")

		cancelled, err := f.orders.Cancel(ctx, order.ID, "u1")
		if err != nil {
			t.Fatalf("Cancel() error: %v", err)
		}
		if cancelled.Status != models.OrderStatusCancelled || cancelled.CancelledAt == nil {
			t.Fatalf("cancel did not stamp: %+v", cancelled)
		}
		if got := f.catalog.stock("p1"); got != before+2 {
			t.Fatalf("stock = %d, want %d after release", got, before+2)
		}
	})

	t.Run("shipping order refuses cancellation", func(t *testing.T) {
		order := newOrder("u2")
		for _, next := range []string{models.OrderStatusPaid, models.OrderStatusShipping} {
			if _, err := f.orders.TransitionStatus(ctx, order.ID, next, "staff-1"); err != nil {
				t.Fatal(err)
			}
		}
		if _, err := f.orders.Cancel(ctx, order.ID, "u2"); !errors.Is(err, ErrCancellationWindowClosed) {
			t.Fatalf("Cancel() error = %v, want ErrCancellationWindowClosed", err)
		}
	})

	t.Run("delivered order refuses cancellation", func(t *testing.T) {
		order := newOrder("u3")
		for _, next := range []string{models.OrderStatusPaid, models.OrderStatusShipping, models.OrderStatusDelivered} {
			if _, err := f.orders.TransitionStatus(ctx, order.ID, next, "staff-1"); err != nil {
				t.Fatal(err)
			}
		}
		if _, err := f.orders.Cancel(ctx, order.ID, "u3"); !errors.Is(err, ErrCancellationWindowClosed) {
			t.Fatalf("Cancel() error = %v, want ErrCancellationWindowClosed", err)
		}
	})

	t.Run("skipping a state is rejected", func(t *testing.T) {
		order := newOrder("u4")
		if _, err := f.orders.TransitionStatus(ctx, order.ID, models.OrderStatusDelivered, "staff-1"); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("TransitionStatus(pending->delivered) error = %v, want ErrInvalidTransition", err)
		}
	})
}
