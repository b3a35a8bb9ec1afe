package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/digikart/digikart-backend/api/middleware"
	"github.com/digikart/digikart-backend/api/responses"
	"github.com/digikart/digikart-backend/api/validators"
	"github.com/digikart/digikart-backend/internal/wallet"
	pkgerrors "github.com/digikart/digikart-backend/pkg/errors"
	"github.com/digikart/digikart-backend/pkg/logger"
)

type WalletController struct {
	wallet *wallet.Service
	logger *logger.Logger
}

func NewWalletController(walletSvc *wallet.Service, logg *logger.Logger) *WalletController {
	return &WalletController{wallet: walletSvc, logger: logg}
}

type topUpBody struct {
	Amount string `json:"amount" validate:"required"`
}

type verifyTopUpBody struct {
	GatewayOrderID string `json:"razorpayOrderId" validate:"required"`
	PaymentID      string `json:"razorpayPaymentId" validate:"required"`
	Signature      string `json:"razorpaySignature" validate:"required"`
	Amount         string `json:"amount,omitempty"`
}

// Overview returns the balance and recent ledger entries.
func (c *WalletController) Overview(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.CustomerIDFromContext(r.Context())
	overview, err := c.wallet.Overview(r.Context(), customerID)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}
	responses.WriteSuccess(w, overview)
}

// TopUp opens a gateway order for a wallet credit.
func (c *WalletController) TopUp(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.CustomerIDFromContext(r.Context())

	var body topUpBody
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}

	intent, err := c.wallet.Initiate(r.Context(), customerID, amount)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, intent)
}

// VerifyTopUp confirms a gateway payment and credits the wallet exactly once.
func (c *WalletController) VerifyTopUp(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.CustomerIDFromContext(r.Context())

	var body verifyTopUpBody
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}

	amount := decimal.Zero
	if body.Amount != "" {
		parsed, err := parseAmount(body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), w, c.logger, err)
			return
		}
		amount = parsed
	}

	result, err := c.wallet.Verify(r.Context(), customerID,
		body.GatewayOrderID, body.PaymentID, body.Signature, amount)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}
	responses.WriteSuccess(w, result)
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount").
			WithDetails(map[string]string{"amount": "must be a decimal number"})
	}
	return amount, nil
}
