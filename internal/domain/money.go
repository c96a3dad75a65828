package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Primary balances are stored as integer cents (2 dp); reward balances and the
// jackpot pool as integer units of 1e-8. Wire values are fixed-precision strings.
const (
	PrimaryScale int32 = 2
	RewardScale  int32 = 8
)

// ParsePrimary parses a non-negative decimal string with at most 2 fractional
// digits into cents.
func ParsePrimary(s string) (int64, error) {
	return parseScaled(s, PrimaryScale)
}

// ParseReward parses a non-negative decimal string with at most 8 fractional
// digits into reward units.
func ParseReward(s string) (int64, error) {
	return parseScaled(s, RewardScale)
}

// FormatPrimary renders cents as "123.45".
func FormatPrimary(cents int64) string {
	return decimal.New(cents, -PrimaryScale).StringFixed(PrimaryScale)
}

// FormatReward renders reward units as "0.10000000".
func FormatReward(units int64) string {
	return decimal.New(units, -RewardScale).StringFixed(RewardScale)
}

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// ApplyMultiplier returns floor(stake × multiplier) in cents. A product that
// does not fit in int64 cents is rejected.
func ApplyMultiplier(stakeCents int64, multiplier decimal.Decimal) (int64, error) {
	return toMinor(decimal.New(stakeCents, -PrimaryScale).
		Mul(multiplier).
		Shift(PrimaryScale))
}

// PrimaryToReward converts a primary amount scaled by rate into reward units,
// e.g. the jackpot share of a losing stake.
func PrimaryToReward(cents int64, rate decimal.Decimal) (int64, error) {
	return toMinor(decimal.New(cents, -PrimaryScale).
		Mul(rate).
		Shift(RewardScale))
}

// RewardToPrimary converts reward units into cents at the given exchange rate
// (primary per one reward unit).
func RewardToPrimary(units int64, rate decimal.Decimal) (int64, error) {
	return toMinor(decimal.New(units, -RewardScale).
		Mul(rate).
		Shift(PrimaryScale))
}

// AddMinor returns a+b, or false when the sum overflows int64.
func AddMinor(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

func toMinor(d decimal.Decimal) (int64, error) {
	d = d.Floor()
	if d.GreaterThan(maxMinor) || d.LessThan(minMinor) {
		return 0, ErrInvalidRequest("amount exceeds the supported range")
	}
	return d.IntPart(), nil
}

func parseScaled(s string, scale int32) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative, got %s", s)
	}
	shifted := d.Shift(scale)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", s, scale)
	}
	if shifted.GreaterThan(decimal.New(999_999_999_999_999, 0)) {
		return 0, fmt.Errorf("amount %s is too large", s)
	}
	return shifted.IntPart(), nil
}
