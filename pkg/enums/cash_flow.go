package enums

import "fmt"

// CashFlowKind is the sign of a cash movement's drawer effect.
type CashFlowKind string

const (
	CashFlowDeposit CashFlowKind = "deposit"
	CashFlowExpense CashFlowKind = "expense"
)

var validCashFlowKinds = []CashFlowKind{
	CashFlowDeposit,
	CashFlowExpense,
}

// String implements fmt.Stringer.
func (c CashFlowKind) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CashFlowKind.
func (c CashFlowKind) IsValid() bool {
	for _, candidate := range validCashFlowKinds {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCashFlowKind converts raw input into a CashFlowKind.
func ParseCashFlowKind(value string) (CashFlowKind, error) {
	for _, candidate := range validCashFlowKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cash flow kind %q", value)
}

// CashChannel distinguishes drawer cash from card/transfer money.
type CashChannel string

const (
	CashChannelDrawer CashChannel = "cash"
	CashChannelOther  CashChannel = "other"
)

// String implements fmt.Stringer.
func (c CashChannel) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CashChannel.
func (c CashChannel) IsValid() bool {
	return c == CashChannelDrawer || c == CashChannelOther
}
