// Package registry talks to the on-chain asset registry: a per-owner
// mapping from a 32-byte asset key to an 18-decimal fixed-point amount,
// with batch read and batch write entry points.
package registry

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const registryABI = `[
	{"type":"function","name":"set","stateMutability":"nonpayable","inputs":[{"name":"assetId","type":"bytes32"},{"name":"amount","type":"uint128"}],"outputs":[]},
	{"type":"function","name":"setMany","stateMutability":"nonpayable","inputs":[{"name":"assetIds","type":"bytes32[]"},{"name":"amounts","type":"uint128[]"}],"outputs":[]},
	{"type":"function","name":"getMany","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"assetIds","type":"bytes32[]"}],"outputs":[{"name":"","type":"uint128[]"}]},
	{"type":"event","name":"AssetUpdated","inputs":[{"name":"owner","type":"address","indexed":true},{"name":"assetId","type":"bytes32","indexed":true},{"name":"amount","type":"uint128","indexed":false}]},
	{"type":"event","name":"BatchUpdated","inputs":[{"name":"owner","type":"address","indexed":true},{"name":"count","type":"uint256","indexed":false}]}
]`

const (
	rpcTimeout    = 10 * time.Second
	maxRetries    = 3
	retryInterval = 500 * time.Millisecond
)

var (
	// ErrLengthMismatch mirrors the contract's batch-write precondition:
	// the id and amount sequences must have equal lengths.
	ErrLengthMismatch = errors.New("asset id and amount counts differ")

	// ErrAmountRange rejects amounts that do not fit the contract's
	// uint128 storage slot.
	ErrAmountRange = errors.New("amount outside uint128 range")

	// ErrReverted reports a mined transaction whose receipt carries a
	// failed status.
	ErrReverted = errors.New("transaction reverted")
)

// Store is the registry surface the portfolio layer depends on. Both the
// on-chain Contract and the in-memory Memory implement it.
type Store interface {
	// GetMany returns one amount per asset key, aligned to the request
	// order. Keys the owner never wrote read as zero.
	GetMany(ctx context.Context, owner common.Address, assetIDs [][32]byte) ([]*big.Int, error)

	// SetMany overwrites the caller's amounts for the given keys,
	// atomically. Mismatched sequence lengths are rejected with
	// ErrLengthMismatch and leave no partial state.
	SetMany(ctx context.Context, assetIDs [][32]byte, amounts []*big.Int) error

	// Set overwrites a single amount for the caller.
	Set(ctx context.Context, assetID [32]byte, amount *big.Int) error
}

// Contract is the on-chain registry reached through the failover RPC
// client. Writes require a signing key; a read-only Contract (nil key)
// rejects Set/SetMany.
type Contract struct {
	failover  *FailoverClient
	parsedABI abi.ABI
	address   common.Address
	key       *ecdsa.PrivateKey
	chainID   *big.Int
	owner     common.Address
}

// NewContract connects to the registry at the given address. privateKey
// may be empty for read-only use; otherwise it is a hex-encoded secp256k1
// key (with or without 0x prefix) used to sign batch writes.
func NewContract(rpcURLs []string, address string, privateKey string, chainID int64) (*Contract, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid registry address: %q", address)
	}

	failover, err := NewFailoverClient(rpcURLs)
	if err != nil {
		return nil, err
	}

	parsedABI, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		failover.Close()
		return nil, fmt.Errorf("failed to parse registry ABI: %w", err)
	}

	c := &Contract{
		failover:  failover,
		parsedABI: parsedABI,
		address:   common.HexToAddress(address),
		chainID:   big.NewInt(chainID),
	}

	if privateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
		if err != nil {
			failover.Close()
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		c.key = key
		c.owner = crypto.PubkeyToAddress(key.PublicKey)
	}

	return c, nil
}

// Owner is the address derived from the signing key, or the zero address
// for a read-only contract.
func (c *Contract) Owner() common.Address {
	return c.owner
}

// Endpoints exposes per-RPC-endpoint health for the health checker.
func (c *Contract) Endpoints() map[string]bool {
	return c.failover.Health()
}

// Probe checks that the current RPC endpoint answers a ChainID call.
func (c *Contract) Probe(ctx context.Context) error {
	client, _, err := c.failover.Client()
	if err != nil {
		return err
	}
	_, err = client.ChainID(ctx)
	return err
}

// Close closes all RPC connections.
func (c *Contract) Close() {
	c.failover.Close()
}

// retryWithBackoff runs fn with exponential backoff, failing over to a
// different endpoint after each error.
func (c *Contract) retryWithBackoff(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := retryInterval * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		_, currentURL, _ := c.failover.Client()

		if err := fn(); err != nil {
			lastErr = err
			c.failover.MarkUnhealthy(currentURL, err)
			continue
		}
		return nil
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// GetMany performs the batch read. owner need not be the signing address.
func (c *Contract) GetMany(ctx context.Context, owner common.Address, assetIDs [][32]byte) ([]*big.Int, error) {
	client, _, err := c.failover.Client()
	if err != nil {
		return nil, fmt.Errorf("no RPC endpoint available: %w", err)
	}

	rpcCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	bound := bind.NewBoundContract(c.address, c.parsedABI, client, client, client)

	var out []any
	err = c.retryWithBackoff(rpcCtx, func() error {
		out = nil
		return bound.Call(&bind.CallOpts{Context: rpcCtx}, &out, "getMany", owner, assetIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("getMany: %w", err)
	}

	amounts, ok := out[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("getMany: unexpected result type %T", out[0])
	}
	if len(amounts) != len(assetIDs) {
		return nil, fmt.Errorf("getMany: got %d amounts for %d ids", len(amounts), len(assetIDs))
	}
	return amounts, nil
}

// SetMany submits one atomic batch write covering all keys and waits for
// the transaction to be mined. The contract reverts the whole call on a
// length mismatch; the same precondition is checked here first so a
// doomed transaction is never submitted.
func (c *Contract) SetMany(ctx context.Context, assetIDs [][32]byte, amounts []*big.Int) error {
	if len(assetIDs) != len(amounts) {
		return fmt.Errorf("%w: %d ids, %d amounts", ErrLengthMismatch, len(assetIDs), len(amounts))
	}
	for _, amount := range amounts {
		if err := checkUint128(amount); err != nil {
			return err
		}
	}
	return c.transact(ctx, "setMany", assetIDs, amounts)
}

// Set overwrites a single stored amount.
func (c *Contract) Set(ctx context.Context, assetID [32]byte, amount *big.Int) error {
	if err := checkUint128(amount); err != nil {
		return err
	}
	return c.transact(ctx, "set", assetID, amount)
}

func (c *Contract) transact(ctx context.Context, method string, args ...any) error {
	if c.key == nil {
		return fmt.Errorf("%s: no signing key configured", method)
	}

	client, _, err := c.failover.Client()
	if err != nil {
		return fmt.Errorf("no RPC endpoint available: %w", err)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return fmt.Errorf("failed to build transactor: %w", err)
	}
	opts.Context = ctx

	bound := bind.NewBoundContract(c.address, c.parsedABI, client, client, client)

	tx, err := bound.Transact(opts, method, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	receipt, err := bind.WaitMined(ctx, client, tx)
	if err != nil {
		return fmt.Errorf("%s: waiting for receipt: %w", method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%s: %w (tx %s)", method, ErrReverted, tx.Hash().Hex())
	}
	return nil
}

func checkUint128(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 || amount.BitLen() > 128 {
		return fmt.Errorf("%w: %v", ErrAmountRange, amount)
	}
	return nil
}
