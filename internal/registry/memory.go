package registry

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// UpdateEvent mirrors the contract's AssetUpdated log entry.
type UpdateEvent struct {
	Owner   common.Address
	AssetID [32]byte
	Amount  *big.Int
}

// BatchEvent mirrors the contract's BatchUpdated log entry.
type BatchEvent struct {
	Owner common.Address
	Count int
}

type memoryKey struct {
	owner   common.Address
	assetID [32]byte
}

// Memory is an in-process registry with the contract's exact semantics:
// last-write-wins per (owner, key), zero for keys never written, and
// all-or-nothing batch writes. It backs tests and dry-run saves.
type Memory struct {
	owner   common.Address
	amounts map[memoryKey]*big.Int
	updates []UpdateEvent
	batches []BatchEvent
	mu      sync.Mutex
}

// NewMemory creates an empty in-memory registry whose writes are
// attributed to owner.
func NewMemory(owner common.Address) *Memory {
	return &Memory{
		owner:   owner,
		amounts: make(map[memoryKey]*big.Int),
	}
}

// GetMany returns one amount per key, in request order, zero for absent
// keys. Reads are not restricted to the owning address.
func (m *Memory) GetMany(_ context.Context, owner common.Address, assetIDs [][32]byte) ([]*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	amounts := make([]*big.Int, len(assetIDs))
	for i, id := range assetIDs {
		if stored, ok := m.amounts[memoryKey{owner, id}]; ok {
			amounts[i] = new(big.Int).Set(stored)
		} else {
			amounts[i] = new(big.Int)
		}
	}
	return amounts, nil
}

// SetMany applies set semantics element-wise, atomically. A length
// mismatch rejects the whole call with no state change.
func (m *Memory) SetMany(_ context.Context, assetIDs [][32]byte, amounts []*big.Int) error {
	if len(assetIDs) != len(amounts) {
		return fmt.Errorf("%w: %d ids, %d amounts", ErrLengthMismatch, len(assetIDs), len(amounts))
	}
	for _, amount := range amounts {
		if err := checkUint128(amount); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, id := range assetIDs {
		m.store(id, amounts[i])
	}
	m.batches = append(m.batches, BatchEvent{Owner: m.owner, Count: len(assetIDs)})
	return nil
}

// Set overwrites a single stored amount. Any key and any amount in
// range, including zero, are accepted.
func (m *Memory) Set(_ context.Context, assetID [32]byte, amount *big.Int) error {
	if err := checkUint128(amount); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.store(assetID, amount)
	return nil
}

// store must be called with the mutex held.
func (m *Memory) store(assetID [32]byte, amount *big.Int) {
	m.amounts[memoryKey{m.owner, assetID}] = new(big.Int).Set(amount)
	m.updates = append(m.updates, UpdateEvent{
		Owner:   m.owner,
		AssetID: assetID,
		Amount:  new(big.Int).Set(amount),
	})
}

// Updates returns the emitted AssetUpdated events in order.
func (m *Memory) Updates() []UpdateEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]UpdateEvent(nil), m.updates...)
}

// Batches returns the emitted BatchUpdated events in order.
func (m *Memory) Batches() []BatchEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]BatchEvent(nil), m.batches...)
}
