package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/digikart/digikart-backend/api/middleware"
	"github.com/digikart/digikart-backend/api/responses"
	"github.com/digikart/digikart-backend/api/validators"
	"github.com/digikart/digikart-backend/internal/cart"
	"github.com/digikart/digikart-backend/pkg/logger"
)

type CartController struct {
	cart   *cart.Service
	logger *logger.Logger
}

func NewCartController(cartSvc *cart.Service, logg *logger.Logger) *CartController {
	return &CartController{cart: cartSvc, logger: logg}
}

type addCartItemBody struct {
	OptionID uuid.UUID `json:"optionId" validate:"required"`
}

// List returns the cart resolved against the catalog.
func (c *CartController) List(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.CustomerIDFromContext(r.Context())
	overview, err := c.cart.Overview(r.Context(), customerID)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}
	responses.WriteSuccess(w, overview)
}

// AddItem puts one product option into the cart. Adding an option that is
// already there is a no-op.
func (c *CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.CustomerIDFromContext(r.Context())

	var body addCartItemBody
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}

	if err := c.cart.AddItem(r.Context(), customerID, body.OptionID); err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"optionId": body.OptionID.String()})
}

// RemoveItem drops one line from the cart.
func (c *CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.CustomerIDFromContext(r.Context())

	itemID, err := validators.UUIDParam(r, "itemId")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}

	if err := c.cart.RemoveItem(r.Context(), customerID, itemID); err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}
	responses.WriteSuccess(w, map[string]string{"itemId": itemID.String()})
}
