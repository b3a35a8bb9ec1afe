package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/digikart/digikart-backend/internal/cart"
	"github.com/digikart/digikart-backend/internal/coupons"
	"github.com/digikart/digikart-backend/internal/notifications"
	"github.com/digikart/digikart-backend/internal/orders"
	pkgdb "github.com/digikart/digikart-backend/pkg/db"
	"github.com/digikart/digikart-backend/pkg/db/models"
	"github.com/digikart/digikart-backend/pkg/enums"
	pkgerrors "github.com/digikart/digikart-backend/pkg/errors"
	"github.com/digikart/digikart-backend/pkg/gateway"
	"github.com/digikart/digikart-backend/pkg/logger"
	"github.com/digikart/digikart-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Result is the reconciler's verdict on one delivery. It always travels back
// to the gateway inside an HTTP 200; Processed false plus Reason is how
// non-applicable deliveries are reported.
type Result struct {
	Event      string `json:"event"`
	Processed  bool   `json:"processed"`
	Idempotent bool   `json:"idempotent,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Service applies gateway-pushed payment events to orders. Redelivery is the
// normal case, not the exception: every mutation is guarded by the processed
// event ledger keyed (order, gateway event id).
type Service struct {
	db            txRunner
	orders        orders.Repository
	coupons       *coupons.Service
	cart          cart.Repository
	notifications *notifications.Service
	gateway       gateway.Gateway
	logger        *logger.Logger
	metrics       *metrics.WebhookMetrics
}

type ServiceParams struct {
	DB            txRunner
	Orders        orders.Repository
	Coupons       *coupons.Service
	Cart          cart.Repository
	Notifications *notifications.Service
	Gateway       gateway.Gateway
	Logger        *logger.Logger
	Metrics       *metrics.WebhookMetrics
}

func NewService(params ServiceParams) *Service {
	return &Service{
		db:            params.DB,
		orders:        params.Orders,
		coupons:       params.Coupons,
		cart:          params.Cart,
		notifications: params.Notifications,
		gateway:       params.Gateway,
		logger:        params.Logger,
		metrics:       params.Metrics,
	}
}

// Process handles one raw delivery. An error return means the request itself
// was bad (signature, malformed JSON) and deserves a 400; every other
// outcome, including internal failures, is expressed through Result so the
// gateway sees a 200 and does not hammer us with redeliveries.
func (s *Service) Process(ctx context.Context, rawBody []byte, signatureHeader string) (*Result, error) {
	if signatureHeader == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook signature header is missing")
	}
	if !s.gateway.VerifyWebhookSignature(rawBody, signatureHeader) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook signature verification failed")
	}

	var env envelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}

	started := time.Now()
	s.metrics.IncReceived(env.Event)
	defer func() { s.metrics.ObserveDuration(env.Event, time.Since(started)) }()

	event, err := enums.ParseWebhookEvent(env.Event)
	if err != nil {
		s.metrics.IncSkipped(env.Event)
		return &Result{Event: env.Event, Reason: "Unsupported event"}, nil
	}
	ctx = s.logger.WithWebhookEvent(ctx, env.Event, gatewayEventID(&env))

	ref, err := extractOrderRef(&env)
	if err != nil {
		s.metrics.IncSkipped(env.Event)
		s.logger.Warn(ctx, "webhook carries no order reference")
		return &Result{Event: env.Event, Reason: "Order reference missing"}, nil
	}

	order, result := s.resolveOrder(ctx, ref)
	if result != nil {
		result.Event = env.Event
		s.metrics.IncSkipped(env.Event)
		return result, nil
	}
	ctx = s.logger.WithOrderID(ctx, order.ID.String())

	eventID := gatewayEventID(&env)
	target, err := event.TargetStatus()
	if err != nil {
		s.metrics.IncSkipped(env.Event)
		return &Result{Event: env.Event, Reason: "Unsupported event"}, nil
	}

	// Idempotency first: an already-applied event must report idempotent even
	// though the order has since left the event's legal source states.
	applied, err := s.alreadyApplied(ctx, order, target, eventID, env.Payload.Payment.Entity.ID)
	if err != nil {
		s.metrics.IncFailed(env.Event)
		s.logger.Error(ctx, "webhook idempotency check failed", err)
		return &Result{Event: env.Event, Reason: "Internal error"}, nil
	}
	if applied {
		s.metrics.IncIdempotent(env.Event)
		return &Result{Event: env.Event, Processed: true, Idempotent: true}, nil
	}

	if !legalSource(event, order.Status) {
		s.metrics.IncSkipped(env.Event)
		s.logger.Warn(ctx, fmt.Sprintf("webhook not applicable, order is %s", order.Status))
		return &Result{Event: env.Event, Reason: fmt.Sprintf("Order is %s", order.Status)}, nil
	}

	idempotentRace := false
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txOrders := s.orders.WithTx(tx)

		ledgerEntry := &models.PaymentEvent{
			ID:             uuid.New(),
			OrderID:        order.ID,
			GatewayEventID: eventID,
			Event:          event,
		}
		if err := txOrders.CreatePaymentEvent(ctx, ledgerEntry); err != nil {
			if pkgdb.IsUniqueViolation(err, "idx_payment_events_order_event") {
				idempotentRace = true
				return nil
			}
			return err
		}

		comment := fmt.Sprintf("Status set by gateway webhook %s", eventID)
		if err := orders.Transition(ctx, txOrders, order, target, comment, event.IsSuccess()); err != nil {
			return err
		}

		if event.IsSuccess() {
			if err := s.coupons.Commit(ctx, tx, order); err != nil {
				return err
			}
			return s.cart.WithTx(tx).Clear(ctx, order.CustomerID)
		}
		if event.IsFailure() {
			return s.coupons.Reverse(ctx, tx, order)
		}
		return nil
	})
	if err != nil {
		s.metrics.IncFailed(env.Event)
		s.logger.Error(ctx, "webhook reconciliation failed", err)
		return &Result{Event: env.Event, Reason: "Internal error"}, nil
	}
	if idempotentRace {
		s.metrics.IncIdempotent(env.Event)
		return &Result{Event: env.Event, Processed: true, Idempotent: true}, nil
	}

	if event.IsSuccess() {
		s.notifications.OrderConfirmation(ctx, order)
	}
	if event.IsFailure() {
		s.notifications.PaymentFailed(ctx, order)
	}

	s.metrics.IncProcessed(env.Event)
	s.logger.Info(ctx, "webhook applied")
	return &Result{Event: env.Event, Processed: true}, nil
}

// resolveOrder loads the referenced order, mapping gateway order ids through
// the stored column. A nil order means the returned Result should go back as
// the response.
func (s *Service) resolveOrder(ctx context.Context, ref OrderRef) (*models.Order, *Result) {
	if ref.ViaGateway {
		order, err := s.orders.FindByGatewayOrderID(ctx, ref.Value)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &Result{Reason: "Order not found"}
		}
		if err != nil {
			s.logger.Error(ctx, "load order by gateway id", err)
			return nil, &Result{Reason: "Internal error"}
		}
		return order, nil
	}

	orderID, err := uuid.Parse(ref.Value)
	if err != nil {
		return nil, &Result{Reason: "Invalid order id"}
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &Result{Reason: "Order not found"}
	}
	if err != nil {
		s.logger.Error(ctx, "load order", err)
		return nil, &Result{Reason: "Internal error"}
	}
	return order, nil
}

func (s *Service) alreadyApplied(ctx context.Context, order *models.Order, target enums.OrderStatus, eventID, paymentID string) (bool, error) {
	has, err := s.orders.HasPaymentEvent(ctx, order.ID, eventID)
	if err != nil {
		return false, err
	}
	if has {
		return true, nil
	}
	// Deliveries recorded before the event ledger existed left only the
	// history comment marker behind.
	if orders.HistoryReferences(order, target, paymentID) {
		return true, nil
	}
	return false, nil
}

func legalSource(event enums.WebhookEvent, status enums.OrderStatus) bool {
	for _, candidate := range event.SourceStatuses() {
		if candidate == status {
			return true
		}
	}
	return false
}
