package service

import (
	"context"
	"time"

	"github.com/example/phoneshop/pkg/models"
	"github.com/example/phoneshop/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const orderCacheTTL = 30 * time.Minute

// OrderService converts committed carts into orders and drives the order
// status state machine with its side effects.
type OrderService struct {
	orders      OrderStore
	carts       CartStore
	catalog     Catalog
	history     HistoryStore
	cache       Cache
	audit       AuditSink
	shippingFee decimal.Decimal
	logger      *zap.Logger
}

func NewOrderService(orders OrderStore, carts CartStore, catalog Catalog, history HistoryStore,
	cache Cache, audit AuditSink, shippingFee decimal.Decimal, logger *zap.Logger) *OrderService {
	return &OrderService{
		orders:      orders,
		carts:       carts,
		catalog:     catalog,
		history:     history,
		cache:       cache,
		audit:       audit,
		shippingFee: shippingFee,
		logger:      logger,
	}
}

// Checkout commits the user's active cart into an order.
//
// The cart is claimed first (active -> completed, conditional), so a double
// checkout on the same cart creates at most one order. Stock is then
// re-validated and decremented line by line through the catalog's
// check-and-set; any losing line rolls the whole attempt back: decremented
// stock is restored and the cart reopened.
func (s *OrderService) Checkout(ctx context.Context, userID string, shipping models.ShippingInfo, paymentMethod string) (*models.Order, error) {
	switch paymentMethod {
	case models.PaymentMethodCOD, models.PaymentMethodGateway:
	case "":
		paymentMethod = models.PaymentMethodPending
	case models.PaymentMethodPending:
	default:
		return nil, ErrInvalidPaymentMethod
	}

	cart, err := s.carts.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, ErrCartEmpty
	}
	snap := cart.Snapshot()

	claimed, err := s.carts.Complete(ctx, snap.CartID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Another checkout already committed this cart.
		return nil, ErrNotFound
	}

	order, err := s.buildOrder(ctx, snap, shipping, paymentMethod)
	if err != nil {
		if reopenErr := s.carts.Reopen(ctx, snap.CartID); reopenErr != nil {
			s.logger.Error("Failed to reopen cart after checkout failure",
				zap.String("cart_id", snap.CartID), zap.Error(reopenErr))
		}
		return nil, err
	}

	s.invalidateCart(ctx, userID)
	return order, nil
}

// buildOrder reserves stock and persists the order. On any failure it
// restores every decrement it already made.
func (s *OrderService) buildOrder(ctx context.Context, snap models.CartSnapshot, shipping models.ShippingInfo, paymentMethod string) (*models.Order, error) {
	type reserved struct {
		productID string
		qty       int
	}
	var taken []reserved

	release := func() {
		for _, r := range taken {
			if err := s.catalog.RestoreStock(ctx, r.productID, r.qty); err != nil {
				s.logger.Error("Failed to restore stock",
					zap.String("product_id", r.productID),
					zap.Int("quantity", r.qty),
					zap.Error(err))
			}
		}
	}

	orderID := uuid.NewString()
	items := make([]models.OrderItem, 0, len(snap.Items))

	for _, line := range snap.Items {
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			release()
			return nil, err
		}
		if product == nil {
			release()
			return nil, ErrStockChanged
		}

		ok, err := s.catalog.DecrementStock(ctx, line.ProductID, line.Quantity)
		if err != nil {
			release()
			return nil, err
		}
		if !ok {
			release()
			return nil, ErrStockChanged
		}
		taken = append(taken, reserved{productID: line.ProductID, qty: line.Quantity})

		items = append(items, models.OrderItem{
			ID:          uuid.NewString(),
			OrderID:     orderID,
			ProductID:   line.ProductID,
			ProductName: product.Name,
			Color:       product.Color,
			Price:       line.Price,
			Quantity:    line.Quantity,
		})
	}

	final := snap.FinalAmount.Add(s.shippingFee)
	if final.IsNegative() {
		final = decimal.Zero
	}

	order := &models.Order{
		ID:              orderID,
		UserID:          snap.UserID,
		Items:           items,
		TotalAmount:     snap.TotalAmount,
		Discount:        snap.DiscountAmount,
		ShippingFee:     s.shippingFee,
		FinalAmount:     final,
		Status:          models.OrderStatusPending,
		PaymentMethod:   paymentMethod,
		PaymentStatus:   models.PaymentStatusPending,
		PaidAmount:      decimal.Zero,
		VoucherCode:     snap.VoucherCode,
		ShippingName:    shipping.FullName,
		ShippingPhone:   shipping.Phone,
		ShippingAddress: shipping.Address,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		release()
		return nil, err
	}
	return order, nil
}

// TransitionStatus moves an order through the lifecycle table. The write is
// conditional on the status the order was read at, so concurrent transitions
// cannot both apply. Side effects run only after the write wins.
func (s *OrderService) TransitionStatus(ctx context.Context, orderID, newStatus, actorID string) (*models.Order, error) {
	if !models.ValidOrderStatus(newStatus) {
		return nil, ErrInvalidTransition
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}

	if newStatus == models.OrderStatusCancelled && order.Status != models.OrderStatusPending {
		return nil, ErrCancellationWindowClosed
	}
	if !models.CanTransition(order.Status, newStatus) {
		return nil, ErrInvalidTransition
	}

	extra := map[string]interface{}{}
	now := time.Now()
	switch newStatus {
	case models.OrderStatusPaid:
		extra["payment_status"] = models.PaymentStatusPaid
		extra["paid_amount"] = order.FinalAmount
	case models.OrderStatusCancelled:
		extra["cancelled_at"] = now
	}

	applied, err := s.orders.UpdateStatus(ctx, orderID, order.Status, newStatus, extra)
	if err != nil {
		return nil, err
	}
	if !applied {
		// The order moved underneath us; treat like any illegal transition.
		return nil, ErrInvalidTransition
	}

	from := order.Status
	order.Status = newStatus
	switch newStatus {
	case models.OrderStatusPaid:
		order.PaymentStatus = models.PaymentStatusPaid
		order.PaidAmount = order.FinalAmount
	case models.OrderStatusCancelled:
		order.CancelledAt = &now
		s.releaseStock(ctx, order)
	case models.OrderStatusDelivered:
		s.recordPurchases(ctx, order)
	}

	s.invalidateOrder(ctx, orderID)
	if s.audit != nil {
		s.audit.Record(actorID, "transition_status", "orders", map[string]interface{}{
			"order_id": orderID,
			"from":     from,
			"to":       newStatus,
		})
	}
	return order, nil
}

// MarkPaymentFailed records a gateway-declined payment. The order stays
// pending so another attempt can settle it; the cached copy is dropped with
// the write like every other order mutation.
func (s *OrderService) MarkPaymentFailed(ctx context.Context, orderID string) error {
	if err := s.orders.UpdatePaymentStatus(ctx, orderID, models.OrderStatusPending, models.PaymentStatusFailed); err != nil {
		return err
	}
	s.invalidateOrder(ctx, orderID)
	return nil
}

// Cancel is the user/staff cancellation path, legal only while pending.
func (s *OrderService) Cancel(ctx context.Context, orderID, actorID string) (*models.Order, error) {
	return s.TransitionStatus(ctx, orderID, models.OrderStatusCancelled, actorID)
}

// releaseStock returns decremented units after a cancellation.
func (s *OrderService) releaseStock(ctx context.Context, order *models.Order) {
	for _, item := range order.Items {
		if err := s.catalog.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("Failed to release stock for cancelled order",
				zap.String("order_id", order.ID),
				zap.String("product_id", item.ProductID),
				zap.Error(err))
		}
	}
}

// recordPurchases appends each delivered item to the buyer's purchase
// history. Items whose product no longer resolves are skipped; history is a
// badge feed, not part of the money path, so nothing here is fatal.
func (s *OrderService) recordPurchases(ctx context.Context, order *models.Order) {
	for _, item := range order.Items {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil || product == nil {
			s.logger.Warn("Skipping purchase history for unresolvable product",
				zap.String("order_id", order.ID),
				zap.String("product_id", item.ProductID),
				zap.Error(err))
			continue
		}
		if err := s.history.AddPurchase(ctx, order.UserID, item.ProductID, order.ID); err != nil {
			s.logger.Warn("Failed to record purchase history",
				zap.String("order_id", order.ID),
				zap.String("product_id", item.ProductID),
				zap.Error(err))
		}
	}
}

// Get returns one order.
func (s *OrderService) Get(ctx context.Context, orderID string) (*models.Order, error) {
	if s.cache != nil {
		var cached models.Order
		if err := s.cache.GetJSON(ctx, repository.OrderCacheKey(orderID), &cached); err == nil {
			return &cached, nil
		}
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}

	if s.cache != nil {
		s.cache.SetJSON(ctx, repository.OrderCacheKey(orderID), order, orderCacheTTL)
	}
	return order, nil
}

func (s *OrderService) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

func (s *OrderService) ListByDateRange(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	return s.orders.ListByDateRange(ctx, from, to)
}

// PurchaseHistory lists the user's delivered purchases.
func (s *OrderService) PurchaseHistory(ctx context.Context, userID string) ([]models.PurchaseRecord, error) {
	return s.history.ListByUser(ctx, userID)
}

func (s *OrderService) invalidateOrder(ctx context.Context, orderID string) {
	if s.cache != nil {
		s.cache.Del(ctx, repository.OrderCacheKey(orderID))
	}
}

func (s *OrderService) invalidateCart(ctx context.Context, userID string) {
	if s.cache != nil {
		s.cache.Del(ctx, repository.CartCacheKey(userID))
	}
}
