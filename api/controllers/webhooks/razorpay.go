package webhooks

import (
	"io"
	"net/http"

	"github.com/digikart/digikart-backend/api/responses"
	"github.com/digikart/digikart-backend/internal/webhooks/razorpay"
	pkgerrors "github.com/digikart/digikart-backend/pkg/errors"
	"github.com/digikart/digikart-backend/pkg/logger"
)

const (
	signatureHeader = "X-Razorpay-Signature"
	eventIDHeader   = "X-Razorpay-Event-Id"

	// Gateways cap webhook payloads well below this; anything larger is noise.
	maxWebhookBody = 1 << 20
)

type RazorpayController struct {
	reconciler *razorpay.Service
	logger     *logger.Logger
}

func NewRazorpayController(reconciler *razorpay.Service, logg *logger.Logger) *RazorpayController {
	return &RazorpayController{reconciler: reconciler, logger: logg}
}

type webhookResponse struct {
	WebhookID  string `json:"webhookId,omitempty"`
	Event      string `json:"event,omitempty"`
	Processed  bool   `json:"processed"`
	Idempotent bool   `json:"idempotent,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Handle receives one gateway delivery. The signature is verified over the
// raw body, so the body must not pass through any decoder first. Deliveries
// that cannot be applied still return 200 to stop the gateway from retrying;
// only an unverifiable or unparseable request gets a 4xx.
func (c *RazorpayController) Handle(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger,
			pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading webhook body"))
		return
	}

	result, err := c.reconciler.Process(r.Context(), rawBody, r.Header.Get(signatureHeader))
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}

	responses.WriteSuccess(w, webhookResponse{
		WebhookID:  r.Header.Get(eventIDHeader),
		Event:      result.Event,
		Processed:  result.Processed,
		Idempotent: result.Idempotent,
		Reason:     result.Reason,
	})
}
