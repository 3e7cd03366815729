package registry

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// History returns the decoded AssetUpdated events the registry logged
// for owner, from fromBlock to the head. BatchUpdated summary logs are
// skipped; per-asset updates carry the data callers care about.
func (c *Contract) History(ctx context.Context, owner common.Address, fromBlock uint64) ([]UpdateEvent, error) {
	client, _, err := c.failover.Client()
	if err != nil {
		return nil, fmt.Errorf("no RPC endpoint available: %w", err)
	}

	updatedID := c.parsedABI.Events["AssetUpdated"].ID

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		Addresses: []common.Address{c.address},
		Topics: [][]common.Hash{
			{updatedID},
			{common.BytesToHash(owner.Bytes())},
		},
	}

	rpcCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	logs, err := client.FilterLogs(rpcCtx, query)
	if err != nil {
		return nil, fmt.Errorf("filter logs: %w", err)
	}

	events := make([]UpdateEvent, 0, len(logs))
	for _, entry := range logs {
		if len(entry.Topics) != 3 {
			continue
		}

		unpacked, err := c.parsedABI.Unpack("AssetUpdated", entry.Data)
		if err != nil {
			return nil, fmt.Errorf("decode AssetUpdated: %w", err)
		}
		amount, ok := unpacked[0].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("decode AssetUpdated: unexpected amount type %T", unpacked[0])
		}

		events = append(events, UpdateEvent{
			Owner:   common.BytesToAddress(entry.Topics[1].Bytes()),
			AssetID: [32]byte(entry.Topics[2]),
			Amount:  amount,
		})
	}
	return events, nil
}
