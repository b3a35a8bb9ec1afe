package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/digikart/digikart-backend/pkg/db/models"
	"github.com/digikart/digikart-backend/pkg/enums"
	pkgerrors "github.com/digikart/digikart-backend/pkg/errors"
	"github.com/digikart/digikart-backend/pkg/gateway"
	"github.com/digikart/digikart-backend/pkg/logger"
)

const recentTransactionLimit = 20

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TopUpIntent is what the storefront needs to open the gateway checkout.
type TopUpIntent struct {
	GatewayOrderID string          `json:"gatewayOrderId"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       enums.Currency  `json:"currency"`
	GatewayKeyID   string          `json:"gatewayKeyId"`
}

// VerifyResult reports the balance after a top-up confirmation.
type VerifyResult struct {
	Balance          decimal.Decimal `json:"balance"`
	AlreadyProcessed bool            `json:"alreadyProcessed"`
}

// Overview is the wallet as the storefront renders it.
type Overview struct {
	Balance      decimal.Decimal            `json:"balance"`
	Currency     enums.Currency             `json:"currency"`
	Transactions []models.WalletTransaction `json:"transactions"`
}

// Service owns the stored-value balance: top-up initiation against the
// gateway and the atomic credit on confirmation.
type Service struct {
	db       txRunner
	repo     Repository
	gateway  gateway.Gateway
	logger   *logger.Logger
	minTopUp decimal.Decimal
	currency enums.Currency
}

type ServiceParams struct {
	DB       txRunner
	Repo     Repository
	Gateway  gateway.Gateway
	Logger   *logger.Logger
	MinTopUp decimal.Decimal
	Currency enums.Currency
}

func NewService(params ServiceParams) *Service {
	return &Service{
		db:       params.DB,
		repo:     params.Repo,
		gateway:  params.Gateway,
		logger:   params.Logger,
		minTopUp: params.MinTopUp,
		currency: params.Currency,
	}
}

// Initiate registers a top-up order with the gateway and hands the caller the
// material needed to run the client-side checkout.
func (s *Service) Initiate(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) (*TopUpIntent, error) {
	if amount.LessThan(s.minTopUp) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "top-up amount must be at least %s", s.minTopUp)
	}

	reference := fmt.Sprintf("wallet_%s", customerID)
	order, err := s.gateway.CreateOrder(ctx, amount, s.currency, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create gateway order for top-up")
	}

	return &TopUpIntent{
		GatewayOrderID: order.ID,
		Amount:         amount,
		Currency:       s.currency,
		GatewayKeyID:   s.gateway.KeyID(),
	}, nil
}

// Verify confirms a top-up: signature check, captured status with the
// gateway, then the credit and its ledger row in one transaction. Replaying
// the same payment id returns the balance unchanged.
func (s *Service) Verify(ctx context.Context, customerID uuid.UUID, gatewayOrderID, paymentID, signature string, amount decimal.Decimal) (*VerifyResult, error) {
	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id, payment id and signature are required")
	}
	if !s.gateway.VerifyPaymentSignature(gatewayOrderID, paymentID, signature) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment signature verification failed")
	}

	payment, err := s.gateway.GetPaymentDetails(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch payment details")
	}
	if payment.Status != gateway.PaymentStatusCaptured {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "payment is %s, expected captured", payment.Status)
	}
	credit := payment.Amount
	if credit.IsZero() {
		credit = amount
	}

	var result VerifyResult
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		w, err := repo.FindByCustomer(ctx, customerID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			w = &models.Wallet{
				ID:         uuid.New(),
				CustomerID: customerID,
				Balance:    decimal.Zero,
				Currency:   s.currency,
			}
			if err := repo.Create(ctx, w); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if existing, err := repo.FindTransactionByPaymentID(ctx, paymentID); err == nil {
			if existing.WalletID != w.ID {
				return pkgerrors.New(pkgerrors.CodeConflict, "payment id belongs to another wallet")
			}
			result = VerifyResult{Balance: w.Balance, AlreadyProcessed: true}
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		w.Balance = w.Balance.Add(credit)
		if err := repo.Save(ctx, w); err != nil {
			return err
		}
		txn := &models.WalletTransaction{
			ID:               uuid.New(),
			WalletID:         w.ID,
			Amount:           credit,
			Type:             enums.WalletTransactionTypeCredit,
			Status:           enums.WalletTransactionStatusCompleted,
			GatewayOrderID:   gatewayOrderID,
			GatewayPaymentID: paymentID,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return err
		}
		result = VerifyResult{Balance: w.Balance}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit wallet")
	}
	return &result, nil
}

// Overview returns the balance and the recent movement log. Customers without
// a wallet yet see a zero balance.
func (s *Service) Overview(ctx context.Context, customerID uuid.UUID) (*Overview, error) {
	w, err := s.repo.FindByCustomer(ctx, customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Overview{
			Balance:      decimal.Zero,
			Currency:     s.currency,
			Transactions: []models.WalletTransaction{},
		}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	txns, err := s.repo.RecentTransactions(ctx, w.ID, recentTransactionLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet transactions")
	}
	if txns == nil {
		txns = []models.WalletTransaction{}
	}
	return &Overview{
		Balance:      w.Balance,
		Currency:     w.Currency,
		Transactions: txns,
	}, nil
}
