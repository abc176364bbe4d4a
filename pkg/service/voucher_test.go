package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/phoneshop/pkg/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func activeVoucher(code, discountType string, value, minOrder int64) *models.Voucher {
	now := time.Now()
	return &models.Voucher{
		ID:            "v-" + code,
		Code:          code,
		DiscountType:  discountType,
		DiscountValue: decimal.NewFromInt(value),
		MinOrderValue: decimal.NewFromInt(minOrder),
		StartDate:     now.Add(-24 * time.Hour),
		EndDate:       now.Add(24 * time.Hour),
		IsActive:      true,
	}
}

func TestEvaluateVoucher(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		voucher  *models.Voucher
		subtotal int64
		want     int64
		wantErr  error
	}{
		{
			name:     "percentage discount",
			voucher:  activeVoucher("SALE10", models.DiscountTypePercentage, 10, 0),
			subtotal: 10_000_000,
			want:     1_000_000,
		},
		{
			name:     "fixed discount",
			voucher:  activeVoucher("OFF500K", models.DiscountTypeFixed, 500_000, 0),
			subtotal: 2_000_000,
			want:     500_000,
		},
		{
			name:     "fixed discount capped at subtotal",
			voucher:  activeVoucher("OFF500K", models.DiscountTypeFixed, 500_000, 0),
			subtotal: 300_000,
			want:     300_000,
		},
		{
			name:     "fixed discount exactly equal to subtotal",
			voucher:  activeVoucher("OFF500K", models.DiscountTypeFixed, 500_000, 0),
			subtotal: 500_000,
			want:     500_000,
		},
		{
			name:     "below minimum order value",
			voucher:  activeVoucher("SALE10", models.DiscountTypePercentage, 10, 20_000_000),
			subtotal: 10_000_000,
			wantErr:  ErrBelowMinimum,
		},
		{
			name: "inactive voucher",
			voucher: func() *models.Voucher {
				v := activeVoucher("SALE10", models.DiscountTypePercentage, 10, 0)
				v.IsActive = false
				return v
			}(),
			subtotal: 10_000_000,
			wantErr:  ErrVoucherInactive,
		},
		{
			name: "before window opens",
			voucher: func() *models.Voucher {
				v := activeVoucher("SALE10", models.DiscountTypePercentage, 10, 0)
				v.StartDate = now.Add(time.Hour)
				v.EndDate = now.Add(48 * time.Hour)
				return v
			}(),
			subtotal: 10_000_000,
			wantErr:  ErrVoucherOutOfWindow,
		},
		{
			name: "after window closes",
			voucher: func() *models.Voucher {
				v := activeVoucher("SALE10", models.DiscountTypePercentage, 10, 0)
				v.StartDate = now.Add(-48 * time.Hour)
				v.EndDate = now.Add(-time.Hour)
				return v
			}(),
			subtotal: 10_000_000,
			wantErr:  ErrVoucherOutOfWindow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evaluateVoucher(tt.voucher, decimal.NewFromInt(tt.subtotal), now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("evaluateVoucher() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("evaluateVoucher() unexpected error: %v", err)
			}
			if !got.Equal(decimal.NewFromInt(tt.want)) {
				t.Fatalf("evaluateVoucher() = %s, want %d", got, tt.want)
			}
		})
	}
}

func TestVoucherServiceValidate(t *testing.T) {
	store := newMemVoucherStore(activeVoucher("SALE10", models.DiscountTypePercentage, 10, 0))
	svc := NewVoucherService(store, zap.NewNop())
	ctx := context.Background()

	t.Run("unknown code", func(t *testing.T) {
		_, err := svc.Validate(ctx, "NOPE", decimal.NewFromInt(1000), time.Now())
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("Validate() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("lookup is case-insensitive", func(t *testing.T) {
		got, err := svc.Validate(ctx, "  sale10 ", decimal.NewFromInt(10_000_000), time.Now())
		if err != nil {
			t.Fatalf("Validate() unexpected error: %v", err)
		}
		if !got.Equal(decimal.NewFromInt(1_000_000)) {
			t.Fatalf("Validate() = %s, want 1000000", got)
		}
	})
}
