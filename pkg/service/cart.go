package service

import (
	"context"
	"errors"
	"time"

	"github.com/example/phoneshop/pkg/models"
	"github.com/example/phoneshop/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const cartCacheTTL = 10 * time.Minute

// CartService owns the per-user active cart. Every mutation recomputes all
// amounts from scratch and rewrites the cart; concurrent mutations are
// last-writer-wins.
type CartService struct {
	carts    CartStore
	catalog  Catalog
	vouchers *VoucherService
	cache    Cache
	logger   *zap.Logger
}

func NewCartService(carts CartStore, catalog Catalog, vouchers *VoucherService, cache Cache, logger *zap.Logger) *CartService {
	return &CartService{
		carts:    carts,
		catalog:  catalog,
		vouchers: vouchers,
		cache:    cache,
		logger:   logger,
	}
}

// Get returns the user's active cart, or an empty cart value when none
// exists yet.
func (s *CartService) Get(ctx context.Context, userID string) (*models.Cart, error) {
	if s.cache != nil {
		var cached models.Cart
		if err := s.cache.GetJSON(ctx, repository.CartCacheKey(userID), &cached); err == nil {
			return &cached, nil
		}
	}

	cart, err := s.carts.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return s.emptyCart(userID), nil
	}

	if s.cache != nil {
		s.cache.SetJSON(ctx, repository.CartCacheKey(userID), cart, cartCacheTTL)
	}
	return cart, nil
}

// AddItem puts qty units of a product into the cart, merging into an
// existing line for the same product. The merged quantity is checked against
// live stock.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, qty int) (*models.Cart, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}

	cart, err := s.carts.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart = s.emptyCart(userID)
	}

	if line := cart.FindItemByProduct(productID); line != nil {
		if line.Quantity+qty > product.Stock {
			return nil, ErrOutOfStock
		}
		line.Quantity += qty
	} else {
		if qty > product.Stock {
			return nil, ErrOutOfStock
		}
		cart.Items = append(cart.Items, models.CartItem{
			ID:        uuid.NewString(),
			CartID:    cart.ID,
			ProductID: productID,
			Price:     product.EffectivePrice(),
			Quantity:  qty,
		})
	}

	return cart, s.recomputeAndSave(ctx, cart)
}

// UpdateQuantity sets a line to an absolute quantity, re-checked against
// live stock.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, itemID string, qty int) (*models.Cart, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.carts.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrNotFound
	}

	line := cart.FindItem(itemID)
	if line == nil {
		return nil, ErrNotFound
	}

	product, err := s.catalog.GetProduct(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}
	if qty > product.Stock {
		return nil, ErrOutOfStock
	}

	line.Quantity = qty
	return cart, s.recomputeAndSave(ctx, cart)
}

// RemoveItem deletes a line. When the last line goes, the cart itself is
// deleted rather than left as an empty shell; the returned flag tells the
// caller which happened.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) (cartDeleted bool, err error) {
	cart, err := s.carts.GetActiveByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if cart == nil || cart.FindItem(itemID) == nil {
		return false, ErrNotFound
	}

	if err := s.carts.DeleteItem(ctx, itemID); err != nil {
		return false, err
	}

	kept := cart.Items[:0]
	for _, it := range cart.Items {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	cart.Items = kept

	if len(cart.Items) == 0 {
		if err := s.carts.Delete(ctx, cart.ID); err != nil {
			return false, err
		}
		s.invalidate(ctx, userID)
		return true, nil
	}

	return false, s.recomputeAndSave(ctx, cart)
}

// ApplyVoucher validates the code against the cart's current total and, on
// success, stores it. A second apply replaces the first; discounts never
// stack.
func (s *CartService) ApplyVoucher(ctx context.Context, userID, code string) (*models.Cart, error) {
	cart, err := s.carts.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, ErrCartEmpty
	}

	cart.Recalculate(decimal.Zero)
	discount, err := s.vouchers.Validate(ctx, code, cart.TotalAmount, time.Now())
	if err != nil {
		return nil, err
	}

	cart.VoucherCode = normalizeCode(code)
	cart.Recalculate(discount)
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return cart, nil
}

// RemoveVoucher clears the applied voucher and its discount.
func (s *CartService) RemoveVoucher(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.carts.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrNotFound
	}

	cart.VoucherCode = ""
	cart.Recalculate(decimal.Zero)
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return cart, nil
}

// recomputeAndSave rewrites all amounts from the lines. An applied voucher
// is re-evaluated against the new subtotal; if it no longer qualifies it is
// dropped, so a stored discount can never outlive its eligibility.
func (s *CartService) recomputeAndSave(ctx context.Context, cart *models.Cart) error {
	cart.Recalculate(decimal.Zero)

	if cart.VoucherCode != "" {
		discount, err := s.vouchers.Validate(ctx, cart.VoucherCode, cart.TotalAmount, time.Now())
		switch {
		case err == nil:
			cart.Recalculate(discount)
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrVoucherInactive),
			errors.Is(err, ErrVoucherOutOfWindow), errors.Is(err, ErrBelowMinimum):
			s.logger.Info("Dropping voucher no longer valid for cart",
				zap.String("cart_id", cart.ID),
				zap.String("code", cart.VoucherCode),
				zap.Error(err))
			cart.VoucherCode = ""
		default:
			return err
		}
	}

	if err := s.carts.Save(ctx, cart); err != nil {
		return err
	}
	s.invalidate(ctx, cart.UserID)
	return nil
}

func (s *CartService) invalidate(ctx context.Context, userID string) {
	if s.cache != nil {
		s.cache.Del(ctx, repository.CartCacheKey(userID))
	}
}

func (s *CartService) emptyCart(userID string) *models.Cart {
	return &models.Cart{
		ID:             uuid.NewString(),
		UserID:         userID,
		Status:         models.CartStatusActive,
		TotalAmount:    decimal.Zero,
		DiscountAmount: decimal.Zero,
		FinalAmount:    decimal.Zero,
	}
}
