// Package assetid derives the fixed-width on-chain key for an asset
// identifier string.
//
// The derivation is versioned and collision-resistant: keccak-256 over a
// domain-separated, canonicalized identifier. Any client that needs the
// same on-chain key computes it from this pure function; there is no
// session state and no registry lookup involved.
package assetid

import (
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// prefix is the domain separator for version 1 of the derivation.
// Bumping the scheme means a new prefix, never a silent change.
const prefix = "assetid:v1:"

// Canonical normalizes an identifier string before derivation so that
// cosmetic variations ("Coingecko:Bitcoin ", "coingecko:bitcoin") map to
// the same on-chain key.
func Canonical(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Derive maps an identifier string to its 32-byte on-chain asset key.
// The same string yields the same key on every call, in every process.
func Derive(id string) [32]byte {
	return crypto.Keccak256Hash([]byte(prefix + Canonical(id)))
}

// DeriveAll derives keys for a list of identifiers, preserving order.
func DeriveAll(ids []string) [][32]byte {
	keys := make([][32]byte, len(ids))
	for i, id := range ids {
		keys[i] = Derive(id)
	}
	return keys
}
