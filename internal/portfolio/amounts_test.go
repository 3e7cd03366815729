package portfolio

import (
	"math"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampAmount(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  string
	}{
		{"positive", 1.5, "1.5"},
		{"zero", 0, "0"},
		{"negative clamped", -3, "0"},
		{"NaN clamped", math.NaN(), "0"},
		{"+Inf clamped", math.Inf(1), "0"},
		{"-Inf clamped", math.Inf(-1), "0"},
		{"small fraction", 0.000001, "0.000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampAmount(tt.input).String())
		})
	}
}

func TestToScaled(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		want    string
		wantErr bool
	}{
		{"one token", "1", "1000000000000000000", false},
		{"half token", "0.5", "500000000000000000", false},
		{"zero", "0", "0", false},
		{"smallest unit", "0.000000000000000001", "1", false},
		{"sub-unit precision truncated", "0.0000000000000000015", "1", false},
		{"large amount", "123456789", "123456789000000000000000000", false},
		{"negative rejected", "-1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := decimal.NewFromString(tt.amount)
			require.NoError(t, err)

			scaled, err := ToScaled(amount)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, scaled.String())
		})
	}
}

func TestToScaledUint128Bound(t *testing.T) {
	// 2^128 scaled units does not fit the contract slot
	huge := decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 128), -chainDecimals)
	_, err := ToScaled(huge)
	assert.Error(t, err)
}

func TestFromScaled(t *testing.T) {
	tests := []struct {
		name string
		raw  *big.Int
		want string
	}{
		{"half token", big.NewInt(500000000000000000), "0.5"},
		{"one token", big.NewInt(1000000000000000000), "1"},
		{"zero", big.NewInt(0), "0"},
		{"nil reads zero", nil, "0"},
		{"smallest unit", big.NewInt(1), "0.000000000000000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromScaled(tt.raw).String())
		})
	}
}

func TestScaledRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "0.5", "1", "2.25", "123456789.000000000000000001"} {
		amount, err := decimal.NewFromString(s)
		require.NoError(t, err)

		scaled, err := ToScaled(amount)
		require.NoError(t, err)
		assert.True(t, amount.Equal(FromScaled(scaled)), "round trip of %s", s)
	}
}
