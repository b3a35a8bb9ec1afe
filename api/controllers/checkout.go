package controllers

import (
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/digikart/digikart-backend/api/middleware"
	"github.com/digikart/digikart-backend/api/responses"
	"github.com/digikart/digikart-backend/api/validators"
	"github.com/digikart/digikart-backend/internal/checkout"
	"github.com/digikart/digikart-backend/internal/coupons"
	"github.com/digikart/digikart-backend/pkg/db/models"
	"github.com/digikart/digikart-backend/pkg/enums"
	"github.com/digikart/digikart-backend/pkg/logger"
	"github.com/digikart/digikart-backend/pkg/metrics"
)

type CheckoutController struct {
	checkout *checkout.Service
	coupons  *coupons.Service
	metrics  *metrics.CheckoutMetrics
	logger   *logger.Logger
}

func NewCheckoutController(checkoutSvc *checkout.Service, couponSvc *coupons.Service, checkoutMetrics *metrics.CheckoutMetrics, logg *logger.Logger) *CheckoutController {
	return &CheckoutController{checkout: checkoutSvc, coupons: couponSvc, metrics: checkoutMetrics, logger: logg}
}

type startCheckoutBody struct {
	Channel string `json:"channel" validate:"omitempty,oneof=web mobile"`
}

type completeCheckoutBody struct {
	GatewayOrderID string `json:"razorpayOrderId" validate:"required"`
	PaymentID      string `json:"razorpayPaymentId" validate:"required"`
	Signature      string `json:"razorpaySignature" validate:"required"`
}

type orderItemView struct {
	ProductID   uuid.UUID       `json:"productId"`
	OptionID    uuid.UUID       `json:"optionId"`
	ProductName string          `json:"productName"`
	OptionName  string          `json:"optionName"`
	Price       decimal.Decimal `json:"price"`
}

type orderTotalView struct {
	Code  enums.TotalsCode `json:"code"`
	Value decimal.Decimal  `json:"value"`
}

type orderView struct {
	OrderID        uuid.UUID         `json:"orderId"`
	OrderNumber    int64             `json:"orderNumber"`
	Status         enums.OrderStatus `json:"status"`
	Currency       enums.Currency    `json:"currency"`
	Total          decimal.Decimal   `json:"total"`
	CouponID       *uuid.UUID        `json:"couponId,omitempty"`
	GatewayOrderID string            `json:"gatewayOrderId,omitempty"`
	Items          []orderItemView   `json:"items"`
	Totals         []orderTotalView  `json:"totals"`
	CreatedAt      time.Time         `json:"createdAt"`
}

func newOrderView(order *models.Order) orderView {
	view := orderView{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Currency:    order.Currency,
		Total:       order.OrderTotal,
		CouponID:    order.CouponID,
		CreatedAt:   order.CreatedAt,
		Items:       make([]orderItemView, 0, len(order.Items)),
		Totals:      make([]orderTotalView, 0, len(order.Totals)),
	}
	if order.GatewayOrderID != nil {
		view.GatewayOrderID = *order.GatewayOrderID
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, orderItemView{
			ProductID:   item.ProductID,
			OptionID:    item.OptionID,
			ProductName: item.ProductName,
			OptionName:  item.OptionName,
			Price:       item.Price,
		})
	}
	for _, total := range order.Totals {
		view.Totals = append(view.Totals, orderTotalView{Code: total.Code, Value: total.Value})
	}
	return view
}

// Start snapshots the cart into a pending order and applies the best
// auto-apply coupon when one fits.
func (c *CheckoutController) Start(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.CustomerIDFromContext(r.Context())

	var body startCheckoutBody
	if r.ContentLength > 0 {
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), w, c.logger, err)
			return
		}
	}

	started := time.Now()
	order, err := c.checkout.Start(r.Context(), customerID, checkout.Provenance{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Channel:   body.Channel,
	})
	c.metrics.Observe("start", started, err)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}

	// Auto-apply is opportunistic: a coupon that no longer fits must not
	// fail the checkout.
	if applied, err := c.coupons.AutoApply(r.Context(), customerID, order.ID); err == nil && applied != nil {
		if fresh, err := c.checkout.Status(r.Context(), customerID, order.ID); err == nil {
			order = fresh
		}
	}

	responses.WriteSuccessStatus(w, http.StatusCreated, newOrderView(order))
}

// CreatePaymentOrder registers the order with the payment gateway.
func (c *CheckoutController) CreatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.CustomerIDFromContext(r.Context())
	orderID, err := validators.UUIDParam(r, "orderId")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}

	started := time.Now()
	paymentOrder, err := c.checkout.CreatePaymentOrder(r.Context(), customerID, orderID)
	c.metrics.Observe("create_payment_order", started, err)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}
	responses.WriteSuccess(w, paymentOrder)
}

// Complete verifies the gateway signature the storefront returned and settles
// the order.
func (c *CheckoutController) Complete(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.CustomerIDFromContext(r.Context())
	orderID, err := validators.UUIDParam(r, "orderId")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}

	var body completeCheckoutBody
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}

	started := time.Now()
	result, err := c.checkout.Complete(r.Context(), customerID, orderID,
		body.GatewayOrderID, body.PaymentID, body.Signature)
	c.metrics.Observe("complete", started, err)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}
	responses.WriteSuccess(w, result)
}

// Status returns the order as the customer sees it.
func (c *CheckoutController) Status(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.CustomerIDFromContext(r.Context())
	orderID, err := validators.UUIDParam(r, "orderId")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}

	order, err := c.checkout.Status(r.Context(), customerID, orderID)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}
	responses.WriteSuccess(w, newOrderView(order))
}

// Cancel abandons a pending order and releases any coupon reservation.
func (c *CheckoutController) Cancel(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.CustomerIDFromContext(r.Context())
	orderID, err := validators.UUIDParam(r, "orderId")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}

	started := time.Now()
	order, err := c.checkout.Cancel(r.Context(), customerID, orderID)
	c.metrics.Observe("cancel", started, err)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}
	responses.WriteSuccess(w, newOrderView(order))
}

// MarkPaymentFailed records a storefront-reported payment failure.
func (c *CheckoutController) MarkPaymentFailed(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.CustomerIDFromContext(r.Context())
	orderID, err := validators.UUIDParam(r, "orderId")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}

	started := time.Now()
	order, err := c.checkout.MarkPaymentFailed(r.Context(), customerID, orderID)
	c.metrics.Observe("payment_failed", started, err)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}
	responses.WriteSuccess(w, newOrderView(order))
}

// Retry reopens a failed order with a fresh gateway order.
func (c *CheckoutController) Retry(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.CustomerIDFromContext(r.Context())
	orderID, err := validators.UUIDParam(r, "orderId")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}

	started := time.Now()
	paymentOrder, err := c.checkout.Retry(r.Context(), customerID, orderID)
	c.metrics.Observe("retry", started, err)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}
	responses.WriteSuccess(w, paymentOrder)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
