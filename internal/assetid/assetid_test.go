package assetid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already canonical", "coingecko:bitcoin", "coingecko:bitcoin"},
		{"uppercase folded", "Coingecko:Bitcoin", "coingecko:bitcoin"},
		{"surrounding whitespace trimmed", "  coingecko:bitcoin\t", "coingecko:bitcoin"},
		{"chain address form", "ethereum:0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "ethereum:0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"},
		{"empty stays empty", "", ""},
		{"inner whitespace preserved", "a b", "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonical(tt.input))
		})
	}
}

func TestDeriveDeterministic(t *testing.T) {
	first := Derive("coingecko:bitcoin")
	second := Derive("coingecko:bitcoin")
	assert.Equal(t, first, second)

	// Cosmetic variants map to the same key
	assert.Equal(t, first, Derive("  Coingecko:BITCOIN "))
}

func TestDeriveDistinctInputs(t *testing.T) {
	ids := []string{
		"coingecko:bitcoin",
		"coingecko:ethereum",
		"coingecko:bitcoin-cash",
		"ethereum:0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		"",
	}

	seen := make(map[[32]byte]string)
	for _, id := range ids {
		key := Derive(id)
		prev, dup := seen[key]
		assert.False(t, dup, "collision between %q and %q", id, prev)
		seen[key] = id
	}
}

func TestDeriveNotPlainKeccak(t *testing.T) {
	// The domain separator must be part of the preimage, otherwise any
	// keccak-256 user could collide with asset keys by accident.
	key := Derive("coingecko:bitcoin")

	var zero [32]byte
	assert.NotEqual(t, zero, key)
	assert.Len(t, key[:], 32)
}

func TestDeriveAll(t *testing.T) {
	ids := []string{"coingecko:bitcoin", "coingecko:ethereum", "coingecko:bitcoin"}
	keys := DeriveAll(ids)

	assert.Len(t, keys, 3)
	assert.Equal(t, Derive("coingecko:bitcoin"), keys[0])
	assert.Equal(t, Derive("coingecko:ethereum"), keys[1])
	// Duplicate identifiers derive the same key at both positions
	assert.Equal(t, keys[0], keys[2])
}

func TestDeriveAllEmpty(t *testing.T) {
	assert.Empty(t, DeriveAll(nil))
}
