package domain

import (
	"fmt"
	"regexp"
)

var clientSeedRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidatePositiveAmount checks that an amount is positive (in minor units).
func ValidatePositiveAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", amount)
	}
	return nil
}

// ValidateClientSeed checks a player-supplied client seed.
func ValidateClientSeed(seed string) error {
	if !clientSeedRegex.MatchString(seed) {
		return fmt.Errorf("client seed must be 1-64 characters of [A-Za-z0-9_-]")
	}
	return nil
}
