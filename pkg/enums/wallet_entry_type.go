package enums

import (
	"fmt"
	"strings"
)

// WalletEntryType classifies a wallet ledger row.
type WalletEntryType string

const (
	WalletEntryCredit WalletEntryType = "credit"
	WalletEntryDebit  WalletEntryType = "debit"
)

var validWalletEntryTypes = []WalletEntryType{
	WalletEntryCredit,
	WalletEntryDebit,
}

// String implements fmt.Stringer.
func (v WalletEntryType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known WalletEntryType.
func (v WalletEntryType) IsValid() bool {
	for _, candidate := range validWalletEntryTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseWalletEntryType converts raw input into a WalletEntryType, ignoring case.
func ParseWalletEntryType(value string) (WalletEntryType, error) {
	for _, candidate := range validWalletEntryTypes {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet entry type %q", value)
}
