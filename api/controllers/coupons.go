package controllers

import (
	"net/http"

	"github.com/digikart/digikart-backend/api/middleware"
	"github.com/digikart/digikart-backend/api/responses"
	"github.com/digikart/digikart-backend/api/validators"
	"github.com/digikart/digikart-backend/internal/coupons"
	"github.com/digikart/digikart-backend/pkg/logger"
)

type CouponController struct {
	coupons *coupons.Service
	logger  *logger.Logger
}

func NewCouponController(couponSvc *coupons.Service, logg *logger.Logger) *CouponController {
	return &CouponController{coupons: couponSvc, logger: logg}
}

type applyCouponBody struct {
	Code string `json:"code" validate:"required,min=1,max=64"`
}

// Apply redeems a coupon code against a pending order.
func (c *CouponController) Apply(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.CustomerIDFromContext(r.Context())
	orderID, err := validators.UUIDParam(r, "orderId")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}

	var body applyCouponBody
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}

	result, err := c.coupons.Apply(r.Context(), customerID, orderID, body.Code)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}
	responses.WriteSuccess(w, result)
}

// AutoApply applies the single auto-apply coupon when the order qualifies.
// An order that does not qualify is not an error, the response just carries
// no coupon.
func (c *CouponController) AutoApply(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.CustomerIDFromContext(r.Context())
	orderID, err := validators.UUIDParam(r, "orderId")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}

	result, err := c.coupons.AutoApply(r.Context(), customerID, orderID)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logger, err)
		return
	}
	if result == nil {
		responses.WriteSuccess(w, map[string]any{"applied": false})
		return
	}
	responses.WriteSuccess(w, map[string]any{"applied": true, "coupon": result})
}
