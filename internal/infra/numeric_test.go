package infra

import (
	"math/big"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericToDecimal_Zero(t *testing.T) {
	d, err := NumericToDecimal(Float64ToNumeric(0))
	require.NoError(t, err)
	assert.True(t, d.IsZero())
}

func TestNumericToDecimal_Fractional(t *testing.T) {
	// 15075 * 10^-2 = 150.75
	n := pgtype.Numeric{Int: big.NewInt(15075), Exp: -2, Valid: true}
	d, err := NumericToDecimal(n)
	require.NoError(t, err)
	assert.Equal(t, "150.75", d.String())
}

func TestNumericToDecimal_WithPositiveExponent(t *testing.T) {
	n := pgtype.Numeric{Int: big.NewInt(5), Exp: 3, Valid: true}
	d, err := NumericToDecimal(n)
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.NewFromInt(5000)))
}

func TestNumericToDecimal_NullReturnsError(t *testing.T) {
	_, err := NumericToDecimal(pgtype.Numeric{Valid: false})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NULL")
}

func TestNumericToDecimal_NaNReturnsError(t *testing.T) {
	_, err := NumericToDecimal(pgtype.Numeric{NaN: true, Valid: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not finite")
}

func TestNumericToFloat64_NullIsZero(t *testing.T) {
	assert.Equal(t, 0.0, NumericToFloat64(pgtype.Numeric{}))
}

func TestFloat64ToNumeric_Roundtrip(t *testing.T) {
	values := []float64{0, 0.01, -0.01, 100, -100, 150.75, 1234567.89, -98765.43}
	for _, v := range values {
		assert.Equal(t, v, NumericToFloat64(Float64ToNumeric(v)), "value: %v", v)
	}
}

func TestDocument_TolerantReads(t *testing.T) {
	doc := ParseDocument([]byte(`{
		"total_xp": "1250",
		"level": 4.0,
		"streak": "oops",
		"active": "true",
		"titles": ["Rookie", 3, ""],
		"nested": {"current_value": 7},
		"at": "2026-10-16T09:30:00Z"
	}`))

	assert.Equal(t, 1250, doc.Int("total_xp"))
	assert.Equal(t, 4, doc.Int("level"))
	assert.Zero(t, doc.Int("streak"))
	assert.Zero(t, doc.Float("missing"))
	assert.True(t, doc.Bool("active"))
	assert.False(t, doc.Bool("missing"))
	assert.Equal(t, []string{"Rookie"}, doc.Strings("titles"))
	assert.Equal(t, 7.0, doc.Sub("nested").Float("progress", "current_value"))
	assert.Empty(t, doc.Sub("absent"))
	require.NotNil(t, doc.Time("at"))
	assert.Equal(t, time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC), *doc.Time("at"))
	assert.Nil(t, doc.Time("level"))
}

func TestParseDocument_InvalidInput(t *testing.T) {
	assert.Empty(t, ParseDocument(nil))
	assert.Empty(t, ParseDocument([]byte(`not json`)))
	assert.Empty(t, ParseDocument([]byte(`[1,2]`)))
}
