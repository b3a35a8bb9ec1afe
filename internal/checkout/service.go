package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/digikart/digikart-backend/internal/cart"
	"github.com/digikart/digikart-backend/internal/coupons"
	"github.com/digikart/digikart-backend/internal/notifications"
	"github.com/digikart/digikart-backend/internal/orders"
	"github.com/digikart/digikart-backend/internal/products"
	pkgdb "github.com/digikart/digikart-backend/pkg/db"
	"github.com/digikart/digikart-backend/pkg/db/models"
	"github.com/digikart/digikart-backend/pkg/enums"
	pkgerrors "github.com/digikart/digikart-backend/pkg/errors"
	"github.com/digikart/digikart-backend/pkg/gateway"
	"github.com/digikart/digikart-backend/pkg/logger"
)

// amountTolerance absorbs paise rounding between the gateway and the stored
// decimal total.
var amountTolerance = decimal.RequireFromString("0.01")

const retryComment = "Payment retry attempted"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Provenance captures where a checkout request came from.
type Provenance struct {
	IP        string
	UserAgent string
	Channel   string
}

// PaymentOrder is the gateway handle the storefront needs to collect payment.
type PaymentOrder struct {
	OrderID        uuid.UUID       `json:"orderId"`
	GatewayOrderID string          `json:"gatewayOrderId,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       enums.Currency  `json:"currency"`
	GatewayKeyID   string          `json:"gatewayKeyId,omitempty"`
	Paid           bool            `json:"paid"`
}

// CompleteResult reports the outcome of the synchronous confirmation path.
type CompleteResult struct {
	OrderID    uuid.UUID         `json:"orderId"`
	Status     enums.OrderStatus `json:"status"`
	Idempotent bool              `json:"idempotent,omitempty"`
}

// Service orchestrates the customer-facing checkout flows around the order
// state machine, the coupon ledger, the cart and the payment gateway.
type Service struct {
	db            txRunner
	orders        orders.Repository
	cart          cart.Repository
	products      products.Repository
	coupons       *coupons.Service
	gateway       gateway.Gateway
	notifications *notifications.Service
	logger        *logger.Logger

	currency      enums.Currency
	retryWindow   time.Duration
	retryCooldown time.Duration
}

type ServiceParams struct {
	DB            txRunner
	Orders        orders.Repository
	Cart          cart.Repository
	Products      products.Repository
	Coupons       *coupons.Service
	Gateway       gateway.Gateway
	Notifications *notifications.Service
	Logger        *logger.Logger

	Currency      enums.Currency
	RetryWindow   time.Duration
	RetryCooldown time.Duration
}

func NewService(params ServiceParams) *Service {
	svc := &Service{
		db:            params.DB,
		orders:        params.Orders,
		cart:          params.Cart,
		products:      params.Products,
		coupons:       params.Coupons,
		gateway:       params.Gateway,
		notifications: params.Notifications,
		logger:        params.Logger,
		currency:      params.Currency,
		retryWindow:   params.RetryWindow,
		retryCooldown: params.RetryCooldown,
	}
	if svc.currency == "" {
		svc.currency = enums.CurrencyINR
	}
	if svc.retryWindow == 0 {
		svc.retryWindow = 24 * time.Hour
	}
	if svc.retryCooldown == 0 {
		svc.retryCooldown = 5 * time.Minute
	}
	return svc
}

// Start snapshots the cart into a new pending order. Every cart line must
// resolve to an existing option under an active product; prices are captured
// at this moment and never re-read.
func (s *Service) Start(ctx context.Context, customerID uuid.UUID, prov Provenance) (*models.Order, error) {
	items, err := s.cart.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	optionIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		optionIDs = append(optionIDs, item.OptionID)
	}
	resolved, err := s.products.ResolveOptions(ctx, optionIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve cart options")
	}
	if len(resolved) != len(items) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains items that are no longer available")
	}

	subtotal := decimal.Zero
	orderItems := make([]models.OrderItem, 0, len(resolved))
	for _, r := range resolved {
		orderItems = append(orderItems, models.OrderItem{
			ID:          uuid.New(),
			ProductID:   r.Product.ID,
			OptionID:    r.Option.ID,
			ProductName: r.Product.Name,
			OptionName:  r.Option.Name,
			Price:       r.Option.Price,
		})
		subtotal = subtotal.Add(r.Option.Price)
	}
	totals, total := orders.BuildTotals(subtotal, decimal.Zero)

	var order *models.Order
	create := func(ctx context.Context) error {
		number, err := s.orders.NextOrderNumber(ctx)
		if err != nil {
			return err
		}
		order = &models.Order{
			ID:          uuid.New(),
			CustomerID:  customerID,
			OrderNumber: number,
			OrderTotal:  total,
			Status:      enums.OrderStatusPending,
			Currency:    s.currency,
			IP:          prov.IP,
			UserAgent:   prov.UserAgent,
			Channel:     prov.Channel,
			Items:       orderItems,
			Totals:      totals,
		}
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			txOrders := s.orders.WithTx(tx)
			if err := txOrders.Create(ctx, order); err != nil {
				return err
			}
			entry := &models.OrderHistory{
				OrderID: order.ID,
				Status:  enums.OrderStatusPending,
				Comment: "Order placed",
			}
			if err := txOrders.AppendHistory(ctx, entry); err != nil {
				return err
			}
			order.History = append(order.History, *entry)
			return nil
		})
	}

	if err := create(ctx); err != nil {
		// Concurrent checkouts can collide on the allocated number; one
		// re-allocation is enough.
		if !pkgdb.IsUniqueViolation(err, "idx_orders_order_number") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		s.logger.Warn(ctx, "order number collision, retrying allocation")
		if err := create(ctx); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order after number retry")
		}
	}
	return order, nil
}

// CreatePaymentOrder registers the pending order with the gateway. Orders
// fully covered by a coupon skip the gateway and are paid immediately.
func (s *Service) CreatePaymentOrder(ctx context.Context, customerID, orderID uuid.UUID) (*PaymentOrder, error) {
	order, err := s.loadOwned(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "payment order requires a pending order, order is %s", order.Status)
	}

	optionIDs := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		optionIDs = append(optionIDs, item.OptionID)
	}
	owned, err := s.orders.PurchasedOptionIDs(ctx, customerID, optionIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check prior purchases")
	}
	if len(owned) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order contains items you already own").
			WithDetails(map[string]any{"optionIds": owned})
	}

	if !order.OrderTotal.GreaterThan(decimal.Zero) {
		if err := s.settleWithoutPayment(ctx, order); err != nil {
			return nil, err
		}
		return &PaymentOrder{
			OrderID:  order.ID,
			Amount:   order.OrderTotal,
			Currency: order.Currency,
			Paid:     true,
		}, nil
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, order.OrderTotal, order.Currency, fmt.Sprintf("order_%d", order.OrderNumber))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create gateway order")
	}
	order.GatewayOrderID = &gwOrder.ID
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store gateway order id")
	}

	return &PaymentOrder{
		OrderID:        order.ID,
		GatewayOrderID: gwOrder.ID,
		Amount:         order.OrderTotal,
		Currency:       order.Currency,
		GatewayKeyID:   s.gateway.KeyID(),
	}, nil
}

// Complete is the synchronous confirmation path: the storefront posts back
// the gateway's checkout signature after the customer pays.
func (s *Service) Complete(ctx context.Context, customerID, orderID uuid.UUID, gatewayOrderID, paymentID, signature string) (*CompleteResult, error) {
	if paymentID == "" || signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id and signature are required")
	}

	order, err := s.loadOwned(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}
	if order.GatewayOrderID == nil || *order.GatewayOrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no gateway order to confirm")
	}
	if gatewayOrderID != "" && gatewayOrderID != *order.GatewayOrderID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order id does not match this order")
	}

	// A redelivered webhook may have already settled this order.
	if order.Status == enums.OrderStatusPaid && orders.HistoryReferences(order, enums.OrderStatusPaid, paymentID) {
		return &CompleteResult{OrderID: order.ID, Status: order.Status, Idempotent: true}, nil
	}

	if !s.gateway.VerifyPaymentSignature(*order.GatewayOrderID, paymentID, signature) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment signature verification failed")
	}
	payment, err := s.gateway.GetPaymentDetails(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch payment details")
	}
	if payment.Status != gateway.PaymentStatusCaptured {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "payment is %s, expected captured", payment.Status)
	}
	if payment.Amount.Sub(order.OrderTotal).Abs().GreaterThan(amountTolerance) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "captured amount %s does not match order total %s", payment.Amount, order.OrderTotal)
	}

	comment := fmt.Sprintf("Payment captured via checkout (payment %s)", paymentID)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txOrders := s.orders.WithTx(tx)
		if err := orders.Transition(ctx, txOrders, order, enums.OrderStatusPaid, comment, true); err != nil {
			return err
		}
		if err := s.coupons.Commit(ctx, tx, order); err != nil {
			return err
		}
		return s.cart.WithTx(tx).Clear(ctx, customerID)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle order")
	}

	s.notifications.OrderConfirmation(ctx, order)
	return &CompleteResult{OrderID: order.ID, Status: order.Status}, nil
}

// Cancel abandons a pending order, unwinding any applied coupon first.
func (s *Service) Cancel(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOwned(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "only pending orders can be cancelled, order is %s", order.Status)
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.coupons.Reverse(ctx, tx, order); err != nil {
			return err
		}
		return orders.Transition(ctx, s.orders.WithTx(tx), order, enums.OrderStatusCancelled, "Order cancelled by customer", false)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}
	return order, nil
}

// MarkPaymentFailed records a client-reported payment failure on a pending
// order, unwinding any applied coupon.
func (s *Service) MarkPaymentFailed(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOwned(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "only pending orders can be marked failed, order is %s", order.Status)
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := orders.Transition(ctx, s.orders.WithTx(tx), order, enums.OrderStatusFailed, "Payment failed reported by customer", false); err != nil {
			return err
		}
		return s.coupons.Reverse(ctx, tx, order)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
	}
	return order, nil
}

// Retry re-opens a failed order for another payment attempt. A fresh gateway
// order is always created; the previous id is kept only in history.
func (s *Service) Retry(ctx context.Context, customerID, orderID uuid.UUID) (*PaymentOrder, error) {
	order, err := s.loadOwned(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusFailed {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "only failed orders can be retried, order is %s", order.Status)
	}

	now := time.Now()
	if now.Sub(order.CreatedAt) > s.retryWindow {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is older than %s and can no longer be retried", s.retryWindow)
	}
	if orders.HasHistorySince(order, retryComment, now.Add(-s.retryCooldown)) {
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "a retry was attempted moments ago, wait before trying again")
	}

	previousGatewayID := ""
	if order.GatewayOrderID != nil {
		previousGatewayID = *order.GatewayOrderID
	}
	comment := retryComment
	if previousGatewayID != "" {
		comment = fmt.Sprintf("%s (replacing gateway order %s)", retryComment, previousGatewayID)
	}
	if err := orders.Transition(ctx, s.orders, order, enums.OrderStatusPending, comment, false); err != nil {
		return nil, err
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, order.OrderTotal, order.Currency, fmt.Sprintf("order_%d_retry", order.OrderNumber))
	if err != nil {
		// The retry never happened as far as the customer is concerned.
		if revertErr := orders.Transition(ctx, s.orders, order, enums.OrderStatusFailed, "Payment retry reverted, gateway order creation failed", false); revertErr != nil {
			s.logger.Error(ctx, "revert after gateway failure", revertErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create gateway order for retry")
	}

	order.GatewayOrderID = &gwOrder.ID
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store retry gateway order id")
	}

	return &PaymentOrder{
		OrderID:        order.ID,
		GatewayOrderID: gwOrder.ID,
		Amount:         order.OrderTotal,
		Currency:       order.Currency,
		GatewayKeyID:   s.gateway.KeyID(),
	}, nil
}

// Status returns the order with its items, totals and history for the
// customer's order page.
func (s *Service) Status(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	return s.loadOwned(ctx, customerID, orderID)
}

func (s *Service) settleWithoutPayment(ctx context.Context, order *models.Order) error {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txOrders := s.orders.WithTx(tx)
		if err := orders.Transition(ctx, txOrders, order, enums.OrderStatusPaid, "Order settled without payment (zero total)", true); err != nil {
			return err
		}
		if err := s.coupons.Commit(ctx, tx, order); err != nil {
			return err
		}
		return s.cart.WithTx(tx).Clear(ctx, order.CustomerID)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle zero-total order")
	}
	s.notifications.OrderConfirmation(ctx, order)
	return nil
}

func (s *Service) loadOwned(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindByIDForCustomer(ctx, orderID, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}
