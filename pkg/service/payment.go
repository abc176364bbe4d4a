package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/phoneshop/pkg/config"
	"github.com/example/phoneshop/pkg/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ResultCodeSuccess is the gateway's code for a captured payment.
const ResultCodeSuccess = "0"

// PaymentService is the external-payment-gateway adapter: it builds outbound
// payment-intent requests and reconciles inbound callbacks into order status.
type PaymentService struct {
	orders *OrderService
	store  OrderStore
	cfg    *config.PaymentConfig
	client *http.Client
	logger *zap.Logger
}

func NewPaymentService(orders *OrderService, store OrderStore, cfg *config.PaymentConfig, logger *zap.Logger) *PaymentService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PaymentService{
		orders: orders,
		store:  store,
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type paymentIntentRequest struct {
	OrderID   string `json:"order_id"`
	Amount    string `json:"amount"`
	ReturnURL string `json:"return_url"`
	Signature string `json:"signature"`
}

type paymentIntentResponse struct {
	PayURL string `json:"pay_url"`
	Error  string `json:"error,omitempty"`
}

// CreatePaymentRequest asks the gateway for a redirect URL for a pending
// order. The order stays pending until a callback arrives; there is no
// timeout-driven cancellation.
func (s *PaymentService) CreatePaymentRequest(ctx context.Context, orderID string) (string, error) {
	order, err := s.store.Get(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order == nil {
		return "", ErrNotFound
	}
	if order.Status != models.OrderStatusPending {
		return "", ErrInvalidTransition
	}

	amount := order.FinalAmount.StringFixed(2)
	payload := paymentIntentRequest{
		OrderID:   order.ID,
		Amount:    amount,
		ReturnURL: s.cfg.ReturnURL,
		Signature: s.sign(order.ID, amount),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach payment gateway: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("payment gateway error (%d): %s", resp.StatusCode, string(raw))
	}

	var intent paymentIntentResponse
	if err := json.Unmarshal(raw, &intent); err != nil {
		return "", fmt.Errorf("failed to parse gateway response: %w", err)
	}
	if intent.Error != "" {
		return "", fmt.Errorf("payment gateway rejected request: %s", intent.Error)
	}
	if intent.PayURL == "" {
		return "", fmt.Errorf("payment gateway returned empty redirect URL")
	}
	return intent.PayURL, nil
}

// CallbackParams is the gateway's declared view of a payment outcome.
type CallbackParams struct {
	OrderID    string
	Amount     string
	ResultCode string
	Signature  string
}

// ParseCallback pulls the callback fields out of the raw query/form values.
func ParseCallback(values url.Values) CallbackParams {
	return CallbackParams{
		OrderID:    values.Get("order_id"),
		Amount:     values.Get("amount"),
		ResultCode: values.Get("result_code"),
		Signature:  values.Get("signature"),
	}
}

// HandleCallback reconciles one gateway callback.
//
// The declared amount and order id are never trusted: the signature is
// recomputed and the amount compared against the order's own final amount
// before anything changes. A callback for an order that is no longer pending
// is a logged no-op, because gateways redeliver.
func (s *PaymentService) HandleCallback(ctx context.Context, p CallbackParams) error {
	expected := s.sign(p.OrderID, p.Amount, p.ResultCode)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(p.Signature))) {
		return ErrPaymentTamperSuspected
	}

	order, err := s.store.Get(ctx, p.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrNotFound
	}

	if order.Status != models.OrderStatusPending {
		s.logger.Info("Ignoring redelivered payment callback",
			zap.String("order_id", order.ID),
			zap.String("status", order.Status))
		return nil
	}

	amount, err := decimal.NewFromString(p.Amount)
	if err != nil || !amount.Equal(order.FinalAmount) {
		return ErrPaymentTamperSuspected
	}

	if p.ResultCode != ResultCodeSuccess {
		s.logger.Info("Payment reported failed by gateway",
			zap.String("order_id", order.ID),
			zap.String("result_code", p.ResultCode))
		return s.orders.MarkPaymentFailed(ctx, order.ID)
	}

	if _, err := s.orders.TransitionStatus(ctx, order.ID, models.OrderStatusPaid, "payment-gateway"); err != nil {
		// A concurrent callback won the transition; that is the idempotent
		// outcome, not a failure.
		if errors.Is(err, ErrInvalidTransition) {
			s.logger.Info("Payment transition already applied",
				zap.String("order_id", order.ID))
			return nil
		}
		return err
	}
	return nil
}

// sign computes the integrity check over the given fields.
func (s *PaymentService) sign(parts ...string) string {
	mac := hmac.New(sha256.New, []byte(s.cfg.Secret))
	mac.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}
