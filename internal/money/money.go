package money

import (
	"math/rand"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Format renders an amount the way responses read it back, e.g. "$125.50".
func Format(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}

// RandomBetween returns a cent-precision amount drawn uniformly from [lo, hi].
func RandomBetween(lo, hi decimal.Decimal) decimal.Decimal {
	loCents := lo.Shift(2).IntPart()
	hiCents := hi.Shift(2).IntPart()
	if hiCents <= loCents {
		return lo.Round(2)
	}
	return decimal.New(loCents+rand.Int63n(hiCents-loCents+1), -2)
}

// Percent returns part as a percentage of whole. It reports false when whole
// is not positive.
func Percent(part, whole decimal.Decimal) (decimal.Decimal, bool) {
	if !whole.IsPositive() {
		return decimal.Zero, false
	}
	return part.Div(whole).Mul(hundred), true
}

// Split divides total evenly between people, rounded to cents.
func Split(total decimal.Decimal, people int) decimal.Decimal {
	if people <= 0 {
		return decimal.Zero
	}
	return total.DivRound(decimal.NewFromInt(int64(people)), 2)
}
