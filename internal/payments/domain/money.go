package domain

import "github.com/shopspring/decimal"

// DefaultApplicationFeePercent is the platform cut of a destination charge
var DefaultApplicationFeePercent = decimal.NewFromFloat(2.5)

// SplitTolerance is the maximum accepted difference between a split sum and
// the payment total, applied at the API boundary where amounts arrive as
// decimal strings.
var SplitTolerance = decimal.NewFromFloat(0.01)

// MinorUnits converts a major-unit amount (e.g. NOK) to the smallest
// currency unit (øre) using round-half-up. This is the single conversion
// point before any external gateway call.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// ApplicationFee computes the platform fee from a minor-unit amount.
// Round-half-up: 333300 øre at 2.5% is 8332.5, which rounds to 8333.
// The fee is always derived from the minor-unit amount, never recomputed
// from major units, so fee and amount cannot drift apart.
func ApplicationFee(amountMinor int64, feePercent decimal.Decimal) int64 {
	return decimal.NewFromInt(amountMinor).
		Mul(feePercent).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

// WithinTolerance reports whether |a-b| is within the split tolerance
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(SplitTolerance)
}
