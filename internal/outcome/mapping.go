// Package outcome maps fairness scalars to game results and prices them.
package outcome

import (
	"fmt"
	"math"

	"github.com/meowbet/core/internal/domain"
)

const (
	// CrashFloor is the lowest crash point a round can produce.
	CrashFloor = 1.01
	// DefaultCrashMax is the crash point a scalar approaching 1 tends to.
	DefaultCrashMax = 100.0
	// MinesTiles is the board size for the mines game.
	MinesTiles = 25
)

// Clamp forces a scalar into [0, 1). NaN maps to 0.
func Clamp(scalar float64) float64 {
	switch {
	case math.IsNaN(scalar), scalar < 0:
		return 0
	case scalar >= 1:
		return math.Nextafter(1, 0)
	}
	return scalar
}

// Dice maps a scalar onto the inclusive range [min, max]. A range wider than
// an int can count is rejected.
func Dice(scalar float64, min, max int) (int, error) {
	if max < min {
		return 0, domain.ErrInvalidRequest(fmt.Sprintf("dice range max %d below min %d", max, min))
	}
	span := max - min + 1
	if span <= 0 {
		return 0, domain.ErrInvalidRequest(fmt.Sprintf("dice range %d..%d is too wide", min, max))
	}
	v := min + int(math.Floor(Clamp(scalar)*float64(span)))
	if v > max || v < min {
		v = max
	}
	return v, nil
}

// HiLoCard maps a scalar to a card rank from 1 (ace) to 13 (king).
func HiLoCard(scalar float64) int {
	v := int(math.Floor(Clamp(scalar)*13)) + 1
	if v > 13 {
		v = 13
	}
	return v
}

// Wheel returns the first index whose cumulative weight reaches scalar × total.
func Wheel(scalar float64, weights []float64) (int, error) {
	if len(weights) == 0 {
		return 0, domain.ErrInvalidConfiguration("wheel has no segments")
	}
	var total float64
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return 0, domain.ErrInvalidConfiguration(fmt.Sprintf("wheel segment %d has invalid weight %v", i, w))
		}
		total += w
	}
	if total <= 0 {
		return 0, domain.ErrInvalidConfiguration("wheel weights sum to zero")
	}

	target := Clamp(scalar) * total
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if cumulative >= target && w > 0 {
			return i, nil
		}
	}
	// Float accumulation can leave cumulative a hair below total.
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i, nil
		}
	}
	return len(weights) - 1, nil
}

// MineHit reports whether the next reveal lands on a mine, given how many safe
// tiles have already been revealed.
func MineHit(scalar float64, totalTiles, mines, revealed int) (bool, error) {
	remaining := totalTiles - revealed
	if totalTiles <= 0 || mines <= 0 || revealed < 0 || remaining <= 0 || mines > remaining {
		return false, domain.ErrInvalidRequest(fmt.Sprintf(
			"invalid mines state: tiles=%d mines=%d revealed=%d", totalTiles, mines, revealed))
	}
	return Clamp(scalar) < float64(mines)/float64(remaining), nil
}

// Crash maps a scalar to a crash point in [CrashFloor, maxMultiplier).
func Crash(scalar, maxMultiplier float64) float64 {
	m := 1 + Clamp(scalar)*(maxMultiplier-1)
	return math.Max(CrashFloor, m)
}
