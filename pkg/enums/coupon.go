package enums

import "fmt"

// CouponType distinguishes percentage discounts from flat amounts.
type CouponType string

const (
	CouponTypePercentage CouponType = "percentage"
	CouponTypeFixed      CouponType = "fixed"
)

// String implements fmt.Stringer.
func (t CouponType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known CouponType.
func (t CouponType) IsValid() bool {
	return t == CouponTypePercentage || t == CouponTypeFixed
}

// ParseCouponType converts raw input into a CouponType.
func ParseCouponType(value string) (CouponType, error) {
	switch CouponType(value) {
	case CouponTypePercentage:
		return CouponTypePercentage, nil
	case CouponTypeFixed:
		return CouponTypeFixed, nil
	}
	return "", fmt.Errorf("invalid coupon type %q", value)
}

// CouponStatus gates whether a coupon can be redeemed.
type CouponStatus string

const (
	CouponStatusActive   CouponStatus = "active"
	CouponStatusInactive CouponStatus = "inactive"
	CouponStatusExpired  CouponStatus = "expired"
)

// String implements fmt.Stringer.
func (s CouponStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CouponStatus.
func (s CouponStatus) IsValid() bool {
	switch s {
	case CouponStatusActive, CouponStatusInactive, CouponStatusExpired:
		return true
	}
	return false
}
