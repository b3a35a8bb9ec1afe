package notifications

import (
	"context"
	"fmt"

	"github.com/digikart/digikart-backend/internal/customers"
	"github.com/digikart/digikart-backend/pkg/db/models"
	"github.com/digikart/digikart-backend/pkg/logger"
)

// Service sends customer-facing email without ever blocking or failing the
// order mutation that triggered it. Delivery problems are only logged.
type Service struct {
	mailer    Mailer
	customers customers.Repository
	logger    *logger.Logger
}

type ServiceParams struct {
	Mailer    Mailer
	Customers customers.Repository
	Logger    *logger.Logger
}

func NewService(params ServiceParams) *Service {
	return &Service{
		mailer:    params.Mailer,
		customers: params.Customers,
		logger:    params.Logger,
	}
}

// OrderConfirmation dispatches the paid-order email in the background.
func (s *Service) OrderConfirmation(ctx context.Context, order *models.Order) {
	subject := fmt.Sprintf("Order #%d confirmed", order.OrderNumber)
	body := fmt.Sprintf(
		"Your order #%d is confirmed. Amount paid: %s %s. Your downloads are ready in your account.",
		order.OrderNumber, order.Currency, order.OrderTotal.StringFixed(2),
	)
	s.dispatch(ctx, order, subject, body)
}

// PaymentFailed dispatches the payment-failure notice in the background.
func (s *Service) PaymentFailed(ctx context.Context, order *models.Order) {
	subject := fmt.Sprintf("Payment for order #%d failed", order.OrderNumber)
	body := fmt.Sprintf(
		"The payment for order #%d did not go through. You can retry the payment from your order page.",
		order.OrderNumber,
	)
	s.dispatch(ctx, order, subject, body)
}

func (s *Service) dispatch(ctx context.Context, order *models.Order, subject, body string) {
	if s.mailer == nil {
		return
	}
	// The request context ends with the response; the lookup and the send run
	// on a detached context.
	bg := s.logger.WithOrderID(context.Background(), order.ID.String())

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error(bg, "notification dispatch panicked", fmt.Errorf("%v", r))
			}
		}()

		customer, err := s.customers.FindByID(bg, order.CustomerID)
		if err != nil {
			s.logger.Error(bg, "load customer for notification", err)
			return
		}
		if err := s.mailer.Send(customer.Email, subject, body); err != nil {
			s.logger.Error(bg, "send notification email", err)
			return
		}
		s.logger.Info(bg, "notification email sent")
	}()
}
