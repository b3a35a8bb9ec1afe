package enums

import "fmt"

// WebhookEvent enumerates the gateway events the reconciler understands.
type WebhookEvent string

const (
	WebhookEventPaymentCaptured      WebhookEvent = "payment.captured"
	WebhookEventPaymentAuthorized    WebhookEvent = "payment.authorized"
	WebhookEventPaymentFailed        WebhookEvent = "payment.failed"
	WebhookEventOrderPaid            WebhookEvent = "order.paid"
	WebhookEventPaymentCaptureFailed WebhookEvent = "payment.captured.failed"
)

var validWebhookEvents = []WebhookEvent{
	WebhookEventPaymentCaptured,
	WebhookEventPaymentAuthorized,
	WebhookEventPaymentFailed,
	WebhookEventOrderPaid,
	WebhookEventPaymentCaptureFailed,
}

// String implements fmt.Stringer.
func (e WebhookEvent) String() string {
	return string(e)
}

// IsValid reports whether the value is a known WebhookEvent.
func (e WebhookEvent) IsValid() bool {
	for _, candidate := range validWebhookEvents {
		if candidate == e {
			return true
		}
	}
	return false
}

// IsSuccess reports whether the event confirms money was captured.
func (e WebhookEvent) IsSuccess() bool {
	switch e {
	case WebhookEventPaymentCaptured, WebhookEventOrderPaid:
		return true
	}
	return false
}

// IsFailure reports whether the event signals payment failure.
func (e WebhookEvent) IsFailure() bool {
	switch e {
	case WebhookEventPaymentFailed, WebhookEventPaymentCaptureFailed:
		return true
	}
	return false
}

// TargetStatus returns the order status this event drives an order toward.
func (e WebhookEvent) TargetStatus() (OrderStatus, error) {
	switch e {
	case WebhookEventPaymentCaptured, WebhookEventOrderPaid:
		return OrderStatusPaid, nil
	case WebhookEventPaymentAuthorized:
		return OrderStatusAuthorized, nil
	case WebhookEventPaymentFailed, WebhookEventPaymentCaptureFailed:
		return OrderStatusFailed, nil
	}
	return "", fmt.Errorf("unhandled webhook event %q", e)
}

// SourceStatuses returns the order statuses from which this event may be applied.
func (e WebhookEvent) SourceStatuses() []OrderStatus {
	switch e {
	case WebhookEventPaymentCaptured, WebhookEventOrderPaid:
		return []OrderStatus{OrderStatusPending, OrderStatusAuthorized}
	case WebhookEventPaymentAuthorized:
		return []OrderStatus{OrderStatusPending}
	case WebhookEventPaymentFailed, WebhookEventPaymentCaptureFailed:
		return []OrderStatus{OrderStatusPending, OrderStatusAuthorized}
	}
	return nil
}

// ParseWebhookEvent converts raw input into a WebhookEvent.
func ParseWebhookEvent(value string) (WebhookEvent, error) {
	for _, candidate := range validWebhookEvents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unsupported webhook event %q", value)
}
