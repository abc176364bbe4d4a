package service

import (
	"context"
	"strings"
	"time"

	"github.com/example/phoneshop/pkg/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var oneHundred = decimal.NewFromInt(100)

// normalizeCode folds a user-entered voucher code to its stored form.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// VoucherService validates promotional codes against an order subtotal.
type VoucherService struct {
	vouchers VoucherStore
	logger   *zap.Logger
}

func NewVoucherService(vouchers VoucherStore, logger *zap.Logger) *VoucherService {
	return &VoucherService{vouchers: vouchers, logger: logger}
}

// Validate looks the code up and evaluates it against subtotal at now.
// Returns the discount amount, or one of ErrNotFound, ErrVoucherInactive,
// ErrVoucherOutOfWindow, ErrBelowMinimum.
func (s *VoucherService) Validate(ctx context.Context, code string, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	voucher, err := s.vouchers.GetByCode(ctx, code)
	if err != nil {
		return decimal.Zero, err
	}
	if voucher == nil {
		return decimal.Zero, ErrNotFound
	}
	return evaluateVoucher(voucher, subtotal, now)
}

// evaluateVoucher is the pure rule chain: active, window, minimum, then the
// discount itself. The discount is capped at the subtotal whatever the type,
// so a voucher can zero a cart but never push it negative.
func evaluateVoucher(v *models.Voucher, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !v.IsActive {
		return decimal.Zero, ErrVoucherInactive
	}
	if !v.InWindow(now) {
		return decimal.Zero, ErrVoucherOutOfWindow
	}
	if subtotal.LessThan(v.MinOrderValue) {
		return decimal.Zero, ErrBelowMinimum
	}

	var discount decimal.Decimal
	switch v.DiscountType {
	case models.DiscountTypePercentage:
		discount = subtotal.Mul(v.DiscountValue).Div(oneHundred)
	case models.DiscountTypeFixed:
		discount = v.DiscountValue
	default:
		return decimal.Zero, ErrVoucherInactive
	}

	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount, nil
}
