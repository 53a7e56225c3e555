package infra

import (
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// NumericToDecimal converts a pgtype.Numeric (PostgreSQL numeric(14,2)) to a decimal.
// Returns an error if the value is NULL, NaN or infinite.
func NumericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Zero, fmt.Errorf("numeric value is NULL")
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return decimal.Zero, fmt.Errorf("numeric value is not finite")
	}
	if n.Int == nil {
		return decimal.Zero, nil
	}

	// pgtype.Numeric stores value as Int * 10^Exp, the same shape as decimal.
	return decimal.NewFromBigInt(new(big.Int).Set(n.Int), n.Exp), nil
}

// NumericToFloat64 converts a nullable money column to float64. NULL reads as 0.
func NumericToFloat64(n pgtype.Numeric) float64 {
	d, err := NumericToDecimal(n)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// DecimalToNumeric converts a decimal to pgtype.Numeric for writing to PostgreSQL.
func DecimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{
		Int:              d.Coefficient(),
		Exp:              d.Exponent(),
		NaN:              false,
		InfinityModifier: pgtype.Finite,
		Valid:            true,
	}
}

// Float64ToNumeric converts a float64 to pgtype.Numeric.
func Float64ToNumeric(v float64) pgtype.Numeric {
	return DecimalToNumeric(decimal.NewFromFloat(v))
}
