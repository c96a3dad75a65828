package infra

import (
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
)

// NumericToMinor converts a numeric(p,scale) column into integer minor units,
// e.g. numeric(15,2) 12.34 with scale 2 becomes 1234. Values with more
// fractional digits than scale are rejected rather than truncated.
func NumericToMinor(n pgtype.Numeric, scale int32) (int64, error) {
	if !n.Valid {
		return 0, fmt.Errorf("numeric value is NULL")
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return 0, fmt.Errorf("numeric value is not finite")
	}

	bi := new(big.Int).Set(n.Int)
	exp := n.Exp + scale
	if exp > 0 {
		multiplier := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
		bi.Mul(bi, multiplier)
	} else if exp < 0 {
		divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-exp)), nil)
		var rem big.Int
		bi.QuoRem(bi, divisor, &rem)
		if rem.Sign() != 0 {
			return 0, fmt.Errorf("numeric value has more than %d decimal places", scale)
		}
	}

	if !bi.IsInt64() {
		return 0, fmt.Errorf("numeric value %s overflows int64", bi.String())
	}
	return bi.Int64(), nil
}

// MinorToNumeric converts integer minor units to a numeric with the given scale.
func MinorToNumeric(v int64, scale int32) pgtype.Numeric {
	return pgtype.Numeric{
		Int:              big.NewInt(v),
		Exp:              -scale,
		InfinityModifier: pgtype.Finite,
		Valid:            true,
	}
}
