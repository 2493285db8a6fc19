package calculator

import "github.com/shopspring/decimal"

// Cents is the number of fraction digits kept on assigned amounts.
const Cents = 2

var (
	zero    = decimal.Zero
	oneCent = decimal.New(1, -Cents)
	hundred = decimal.NewFromInt(100)
)

// RoundMoney rounds to cents, half away from zero (half-up for the
// non-negative amounts the engine assigns).
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(Cents)
}

// FormatMoney renders an amount with exactly two fraction digits.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(Cents)
}

// clampZero returns d, or zero if d is negative.
func clampZero(d decimal.Decimal) (decimal.Decimal, bool) {
	if d.IsNegative() {
		return zero, true
	}
	return d, false
}
