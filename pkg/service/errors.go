package service

import "errors"

// Shared error taxonomy for the transaction pipeline. Every one of these is
// terminal to the triggering request; retrying is the caller's decision.
var (
	ErrNotFound                 = errors.New("not found")
	ErrOutOfStock               = errors.New("requested quantity exceeds available stock")
	ErrInvalidQuantity          = errors.New("quantity must be at least 1")
	ErrVoucherInactive          = errors.New("voucher is inactive")
	ErrVoucherOutOfWindow       = errors.New("voucher is outside its validity window")
	ErrBelowMinimum             = errors.New("order subtotal is below the voucher minimum")
	ErrStockChanged             = errors.New("stock changed since the cart was built")
	ErrInvalidTransition        = errors.New("illegal order status transition")
	ErrCancellationWindowClosed = errors.New("order can no longer be cancelled")
	ErrPaymentTamperSuspected   = errors.New("payment callback failed integrity check")
	ErrCartEmpty                = errors.New("cart is empty")
	ErrInvalidPaymentMethod     = errors.New("unknown payment method")
)
