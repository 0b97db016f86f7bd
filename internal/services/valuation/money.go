package valuation

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the reporting currency of every valuation.
const Currency = money.INR

// FormatINR renders an amount in rupees with grouping, e.g. ₹1,234.50.
func FormatINR(amount decimal.Decimal) string {
	// money.New is the only way to get a non-nil currency
	cur := *money.New(0, Currency).Currency()
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// FormatSignedINR prefixes gains with "+"; zero renders as "-".
func FormatSignedINR(amount decimal.Decimal) string {
	switch {
	case amount.IsZero():
		return "-"
	case amount.IsPositive():
		return "+" + FormatINR(amount)
	default:
		return FormatINR(amount)
	}
}
