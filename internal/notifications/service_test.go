package notifications

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/digikart/digikart-backend/pkg/db/models"
	"github.com/digikart/digikart-backend/pkg/enums"
	"github.com/digikart/digikart-backend/pkg/logger"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
	done chan struct{}
}

func (m *recordingMailer) Send(to, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer close(m.done)
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to+": "+subject)
	return nil
}

type staticCustomers struct {
	customer *models.Customer
}

func (s *staticCustomers) FindByID(_ context.Context, id uuid.UUID) (*models.Customer, error) {
	if s.customer == nil || s.customer.ID != id {
		return nil, errors.New("customer not found")
	}
	return s.customer, nil
}

func TestOrderConfirmationIsFireAndForget(t *testing.T) {
	customer := &models.Customer{ID: uuid.New(), Email: "dev@example.com", FirstName: "Dev"}
	mailer := &recordingMailer{done: make(chan struct{})}
	svc := NewService(ServiceParams{
		Mailer:    mailer,
		Customers: &staticCustomers{customer: customer},
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})

	order := &models.Order{
		ID:          uuid.New(),
		CustomerID:  customer.ID,
		OrderNumber: 10001,
		OrderTotal:  decimal.NewFromInt(180),
		Currency:    enums.CurrencyINR,
	}
	svc.OrderConfirmation(context.Background(), order)

	select {
	case <-mailer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("email was never dispatched")
	}
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if len(mailer.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(mailer.sent))
	}
	if mailer.sent[0] != "dev@example.com: Order #10001 confirmed" {
		t.Fatalf("unexpected email: %s", mailer.sent[0])
	}
}

func TestPaymentFailedDeliveryErrorDoesNotPropagate(t *testing.T) {
	customer := &models.Customer{ID: uuid.New(), Email: "dev@example.com"}
	mailer := &recordingMailer{err: errors.New("relay down"), done: make(chan struct{})}
	svc := NewService(ServiceParams{
		Mailer:    mailer,
		Customers: &staticCustomers{customer: customer},
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})

	order := &models.Order{ID: uuid.New(), CustomerID: customer.ID, OrderNumber: 10002}
	svc.PaymentFailed(context.Background(), order)

	select {
	case <-mailer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("email was never attempted")
	}
}
