// Money helpers shared by the conversion and aggregation code.
//
// All arithmetic uses shopspring decimals. Rounding is half-up everywhere:
// 6 decimal places for the USD pivot step, 2 for storage and display, 0 for
// budget percentages. decimal.Round is half-away-from-zero, which equals
// half-up for the non-negative amounts this domain works with.
package core

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// PivotScale is the precision kept when pivoting a conversion through USD.
const PivotScale = 6

// StorageScale is the precision of stored and displayed amounts.
const StorageScale = 2

// RoundHalfUp rounds to the given number of decimal places.
func RoundHalfUp(amount decimal.Decimal, places int32) decimal.Decimal {
	return amount.Round(places)
}

// ParseAmount parses a decimal string, accepting a comma decimal separator.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// NormalizeCurrency uppercases and trims a currency code. Codes are
// case-insensitive throughout the conversion pipeline.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// PercentUsed returns spent/limit as a half-up rounded integer percentage,
// or 0 when the limit is not positive.
func PercentUsed(spent, limit decimal.Decimal) int {
	if limit.Sign() <= 0 {
		return 0
	}
	pct := spent.Mul(decimal.NewFromInt(100)).DivRound(limit, 0)
	return int(pct.IntPart())
}

// FormatAmount renders an amount with its currency symbol for logs and chart
// labels, falling back to "<amount> <code>" for codes go-money doesn't know.
func FormatAmount(amount decimal.Decimal, code string) string {
	cur := money.GetCurrency(NormalizeCurrency(code))
	if cur == nil {
		return amount.StringFixed(StorageScale) + " " + NormalizeCurrency(code)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}
