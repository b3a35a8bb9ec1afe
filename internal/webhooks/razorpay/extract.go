package razorpay

import (
	"encoding/json"
	"errors"
	"strings"
)

// RefSource names where in the payload the order reference was found. The
// precedence over sources is a contract the gateway integration relies on,
// not an accident of field ordering.
type RefSource string

const (
	RefSourceNotesOrderID    RefSource = "payment.notes.order_id"
	RefSourceGatewayOrderID  RefSource = "payment.order_id"
	RefSourceNotesAlternates RefSource = "payment.notes.alternate"
	RefSourceMetadata        RefSource = "metadata.order_id"
)

// ErrNoOrderRef is returned when no payload location carries a usable
// order reference.
var ErrNoOrderRef = errors.New("payload carries no order reference")

// OrderRef is the resolved order reference. ViaGateway marks references that
// are gateway order ids rather than internal ones and must be mapped through
// the stored gateway_order_id column.
type OrderRef struct {
	Value      string
	Source     RefSource
	ViaGateway bool
}

// notes tolerates the gateway's habit of sending an empty array instead of an
// object when no notes are set.
type notes map[string]string

func (n *notes) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" || strings.HasPrefix(trimmed, "[") {
		*n = nil
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(notes, len(raw))
	for key, value := range raw {
		if s, ok := value.(string); ok {
			out[key] = s
		}
	}
	*n = out
	return nil
}

type paymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	Status  string `json:"status"`
	Notes   notes  `json:"notes"`
}

type orderEntity struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Notes  notes  `json:"notes"`
}

// envelope is the decoded webhook body.
type envelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity orderEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
	Metadata notes `json:"metadata"`
}

// alternate note keys seen across gateway dashboard versions.
var alternateNoteKeys = []string{"orderId", "internal_order_id"}

// extractOrderRef walks the payload locations in fixed precedence order:
// the explicit order_id note, then the gateway's own order id, then the
// alternate note spellings, then the metadata block.
func extractOrderRef(env *envelope) (OrderRef, error) {
	payment := env.Payload.Payment.Entity

	if v := strings.TrimSpace(payment.Notes["order_id"]); v != "" {
		return OrderRef{Value: v, Source: RefSourceNotesOrderID}, nil
	}
	if v := strings.TrimSpace(payment.OrderID); v != "" {
		return OrderRef{Value: v, Source: RefSourceGatewayOrderID, ViaGateway: true}, nil
	}
	for _, key := range alternateNoteKeys {
		if v := strings.TrimSpace(payment.Notes[key]); v != "" {
			return OrderRef{Value: v, Source: RefSourceNotesAlternates}, nil
		}
	}
	if v := strings.TrimSpace(env.Metadata["order_id"]); v != "" {
		return OrderRef{Value: v, Source: RefSourceMetadata}, nil
	}
	return OrderRef{}, ErrNoOrderRef
}

// gatewayEventID is the durable idempotency key for one event applied to one
// order: the event name qualified by the most specific gateway id available.
func gatewayEventID(env *envelope) string {
	payment := env.Payload.Payment.Entity
	switch {
	case payment.ID != "":
		return env.Event + ":" + payment.ID
	case payment.OrderID != "":
		return env.Event + ":" + payment.OrderID
	case env.Payload.Order.Entity.ID != "":
		return env.Event + ":" + env.Payload.Order.Entity.ID
	}
	return env.Event
}
