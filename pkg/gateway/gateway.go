package gateway

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/digikart/digikart-backend/pkg/enums"
)

// PaymentStatusCaptured is the gateway status that confirms money moved.
const PaymentStatusCaptured = "captured"

// Order is the gateway-side order handle.
type Order struct {
	ID       string
	Amount   decimal.Decimal
	Currency enums.Currency
}

// Payment is the gateway-side view of a payment attempt.
type Payment struct {
	ID     string
	Status string
	Amount decimal.Decimal
}

// Gateway is the payment processor surface the storefront depends on. It is
// injected once at process start so tests can substitute a double.
type Gateway interface {
	// CreateOrder registers an order of the given amount with the gateway and
	// returns its handle. Reference travels to the gateway as the receipt.
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency enums.Currency, reference string) (*Order, error)

	// GetPaymentDetails fetches the current status and amount of a payment.
	GetPaymentDetails(ctx context.Context, paymentID string) (*Payment, error)

	// VerifyPaymentSignature checks the client-side checkout signature binding
	// a gateway order to a payment.
	VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) bool

	// VerifyWebhookSignature checks the webhook HMAC over the exact raw body.
	VerifyWebhookSignature(rawBody []byte, signatureHeader string) bool

	// KeyID returns the public key material checkout pages need.
	KeyID() string
}
