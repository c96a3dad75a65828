package infra

import (
	"math"
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericToMinor_Cents(t *testing.T) {
	// 12.34 stored as 1234 × 10^-2
	n := pgtype.Numeric{Int: big.NewInt(1234), Exp: -2, Valid: true}
	v, err := NumericToMinor(n, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), v)
}

func TestNumericToMinor_TrailingZeros(t *testing.T) {
	// 1.50000 with scale 2
	n := pgtype.Numeric{Int: big.NewInt(150000), Exp: -5, Valid: true}
	v, err := NumericToMinor(n, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(150), v)
}

func TestNumericToMinor_PositiveExponent(t *testing.T) {
	// 5 × 10^2 = 500.00
	n := pgtype.Numeric{Int: big.NewInt(5), Exp: 2, Valid: true}
	v, err := NumericToMinor(n, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), v)
}

func TestNumericToMinor_RewardScale(t *testing.T) {
	// 0.10000000
	n := pgtype.Numeric{Int: big.NewInt(1), Exp: -1, Valid: true}
	v, err := NumericToMinor(n, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000), v)
}

func TestNumericToMinor_ExcessPrecision(t *testing.T) {
	n := pgtype.Numeric{Int: big.NewInt(12345), Exp: -3, Valid: true}
	_, err := NumericToMinor(n, 2)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "decimal places")
}

func TestNumericToMinor_NullReturnsError(t *testing.T) {
	_, err := NumericToMinor(pgtype.Numeric{Valid: false}, 2)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "NULL")
}

func TestNumericToMinor_NaN(t *testing.T) {
	_, err := NumericToMinor(pgtype.Numeric{NaN: true, Valid: true}, 2)
	assert.Error(t, err)
}

func TestNumericToMinor_Overflow(t *testing.T) {
	overflow := new(big.Int).SetInt64(math.MaxInt64)
	overflow.Add(overflow, big.NewInt(1))
	_, err := NumericToMinor(pgtype.Numeric{Int: overflow, Valid: true}, 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "overflows")
}

func TestMinorToNumeric_Roundtrip(t *testing.T) {
	values := []int64{0, 1, -1, 100000, -100000, 999_999_999_999_999}
	for _, scale := range []int32{0, 2, 8} {
		for _, v := range values {
			n := MinorToNumeric(v, scale)
			result, err := NumericToMinor(n, scale)
			require.NoError(t, err, "value: %d scale: %d", v, scale)
			assert.Equal(t, v, result, "value: %d scale: %d", v, scale)
		}
	}
}
