package enums

import "fmt"

// WalletTransactionType marks the direction of a wallet movement.
type WalletTransactionType string

const (
	WalletTransactionTypeCredit WalletTransactionType = "credit"
	WalletTransactionTypeDebit  WalletTransactionType = "debit"
)

// String implements fmt.Stringer.
func (t WalletTransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known WalletTransactionType.
func (t WalletTransactionType) IsValid() bool {
	return t == WalletTransactionTypeCredit || t == WalletTransactionTypeDebit
}

// ParseWalletTransactionType converts raw input into a WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	switch WalletTransactionType(value) {
	case WalletTransactionTypeCredit:
		return WalletTransactionTypeCredit, nil
	case WalletTransactionTypeDebit:
		return WalletTransactionTypeDebit, nil
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}

// WalletTransactionStatus is the settlement state of a wallet movement.
type WalletTransactionStatus string

const (
	WalletTransactionStatusCompleted WalletTransactionStatus = "completed"
	WalletTransactionStatusPending   WalletTransactionStatus = "pending"
	WalletTransactionStatusFailed    WalletTransactionStatus = "failed"
)

// String implements fmt.Stringer.
func (s WalletTransactionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known WalletTransactionStatus.
func (s WalletTransactionStatus) IsValid() bool {
	switch s {
	case WalletTransactionStatusCompleted, WalletTransactionStatusPending, WalletTransactionStatusFailed:
		return true
	}
	return false
}
