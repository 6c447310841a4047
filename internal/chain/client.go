// Package chain provides read access to an EVM node for metric collection.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// BlockStats is the per-block data the collector derives daily metrics from.
type BlockStats struct {
	Number    uint64
	Timestamp uint64
	TxCount   int
	GasUsed   uint64
	BaseFee   *big.Int
}

// Client wraps go-ethereum RPC for the collector.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
}

// NewClient dials the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID returns the chain ID.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// BlockStats fetches one block and reduces it to collector inputs.
func (c *Client) BlockStats(ctx context.Context, number uint64) (BlockStats, error) {
	block, err := c.ethClient.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return BlockStats{}, fmt.Errorf("block %d: %w", number, err)
	}
	return BlockStats{
		Number:    block.NumberU64(),
		Timestamp: block.Time(),
		TxCount:   len(block.Transactions()),
		GasUsed:   block.GasUsed(),
		BaseFee:   block.BaseFee(),
	}, nil
}
