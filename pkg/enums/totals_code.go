package enums

import "fmt"

// TotalsCode labels one entry of an order's totals breakdown.
type TotalsCode string

const (
	TotalsCodeSubtotal       TotalsCode = "subtotal"
	TotalsCodeCouponDiscount TotalsCode = "couponDiscount"
	TotalsCodeTotal          TotalsCode = "total"
)

var validTotalsCodes = []TotalsCode{
	TotalsCodeSubtotal,
	TotalsCodeCouponDiscount,
	TotalsCodeTotal,
}

// String implements fmt.Stringer.
func (c TotalsCode) String() string {
	return string(c)
}

// IsValid reports whether the value is a known TotalsCode.
func (c TotalsCode) IsValid() bool {
	for _, candidate := range validTotalsCodes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseTotalsCode converts raw input into a TotalsCode.
func ParseTotalsCode(value string) (TotalsCode, error) {
	for _, candidate := range validTotalsCodes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid totals code %q", value)
}
