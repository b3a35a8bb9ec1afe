package gateway

import (
	"context"
	"errors"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"
	razorpayutils "github.com/razorpay/razorpay-go/utils"
	"github.com/shopspring/decimal"

	"github.com/digikart/digikart-backend/pkg/config"
	"github.com/digikart/digikart-backend/pkg/enums"
	pkgerrors "github.com/digikart/digikart-backend/pkg/errors"
	"github.com/digikart/digikart-backend/pkg/logger"
)

var (
	errKeyIDRequired     = errors.New("razorpay key id is required")
	errKeySecretRequired = errors.New("razorpay key secret is required")
)

var paiseFactor = decimal.NewFromInt(100)

// RazorpayGateway implements Gateway on the Razorpay SDK.
type RazorpayGateway struct {
	client        *razorpay.Client
	keyID         string
	keySecret     string
	webhookSecret string
	logger        *logger.Logger
}

// NewRazorpay initializes the Razorpay wrapper and validates credentials.
func NewRazorpay(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*RazorpayGateway, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}

	g := &RazorpayGateway{
		client:        razorpay.NewClient(keyID, keySecret),
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		logger:        logg,
	}

	if logg != nil {
		logg.Info(ctx, "razorpay client initialized")
	}
	return g, nil
}

// CreateOrder registers a gateway order for the amount, converted to paise.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, currency enums.Currency, reference string) (*Order, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order amount must be positive")
	}

	data := map[string]interface{}{
		"amount":   ToPaise(amount),
		"currency": currency.String(),
		"receipt":  reference,
	}
	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create gateway order")
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway order response missing id")
	}

	return &Order{
		ID:       id,
		Amount:   amountFromPayload(body["amount"]),
		Currency: currency,
	}, nil
}

// GetPaymentDetails fetches a payment's status and amount from the gateway.
func (g *RazorpayGateway) GetPaymentDetails(ctx context.Context, paymentID string) (*Payment, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}

	body, err := g.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch payment details")
	}

	status, _ := body["status"].(string)
	return &Payment{
		ID:     paymentID,
		Status: status,
		Amount: amountFromPayload(body["amount"]),
	}, nil
}

// VerifyPaymentSignature validates the checkout callback signature.
func (g *RazorpayGateway) VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) bool {
	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		return false
	}
	params := map[string]interface{}{
		"razorpay_order_id":   gatewayOrderID,
		"razorpay_payment_id": paymentID,
	}
	return razorpayutils.VerifyPaymentSignature(params, signature, g.keySecret)
}

// VerifyWebhookSignature validates the webhook HMAC over the raw body. An
// unconfigured secret always fails verification.
func (g *RazorpayGateway) VerifyWebhookSignature(rawBody []byte, signatureHeader string) bool {
	if g.webhookSecret == "" || signatureHeader == "" || len(rawBody) == 0 {
		return false
	}
	return razorpayutils.VerifyWebhookSignature(string(rawBody), signatureHeader, g.webhookSecret)
}

// KeyID returns the public key id for checkout clients.
func (g *RazorpayGateway) KeyID() string {
	if g == nil {
		return ""
	}
	return g.keyID
}

// ToPaise converts a rupee amount to the integer paise the gateway expects.
func ToPaise(amount decimal.Decimal) int64 {
	return amount.Mul(paiseFactor).Round(0).IntPart()
}

// FromPaise converts integer paise back to a rupee amount.
func FromPaise(paise int64) decimal.Decimal {
	return decimal.NewFromInt(paise).Div(paiseFactor)
}

func amountFromPayload(raw any) decimal.Decimal {
	switch v := raw.(type) {
	case float64:
		return FromPaise(int64(v))
	case int64:
		return FromPaise(v)
	case int:
		return FromPaise(int64(v))
	case string:
		if parsed, err := decimal.NewFromString(v); err == nil {
			return parsed.Div(paiseFactor)
		}
	}
	return decimal.Zero
}

var _ Gateway = (*RazorpayGateway)(nil)
