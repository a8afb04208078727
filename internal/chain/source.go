package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// SourceConfig configures the connection to the Ethereum node.
type SourceConfig struct {
	RPCURL   string         // HTTP endpoint for historical queries
	WSURL    string         // WebSocket endpoint for live subscriptions (optional)
	Contract common.Address // Game contract address
}

// EthSource reads game contract logs from an Ethereum node. Historical
// queries go over HTTP; live subscriptions require the WebSocket endpoint.
type EthSource struct {
	http     *ethclient.Client
	ws       *ethclient.Client
	contract common.Address
}

// DialSource connects to the configured node endpoints.
func DialSource(ctx context.Context, cfg SourceConfig) (*EthSource, error) {
	httpClient, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc endpoint: %w", err)
	}

	var wsClient *ethclient.Client
	if cfg.WSURL != "" {
		wsClient, err = ethclient.DialContext(ctx, cfg.WSURL)
		if err != nil {
			httpClient.Close()
			return nil, fmt.Errorf("dial ws endpoint: %w", err)
		}
	}

	return &EthSource{http: httpClient, ws: wsClient, contract: cfg.Contract}, nil
}

// HistoricalLogs fetches the full historical log list for the game contract.
func (s *EthSource) HistoricalLogs(ctx context.Context) ([]types.Log, error) {
	return s.http.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{s.contract},
	})
}

// LogsInRange fetches the contract's logs in the closed block range
// [from, to]. Live subscriptions never replay existing blocks, so the
// orchestrator covers the margin behind head with an explicit fetch.
func (s *EthSource) LogsInRange(ctx context.Context, from, to uint64) ([]types.Log, error) {
	return s.http.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{s.contract},
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
	})
}

// SubscribeLogs opens a live log subscription. Only logs from blocks mined
// after the subscription is established are delivered. The returned
// subscription is an owned resource: callers release it with Unsubscribe
// before opening a replacement.
func (s *EthSource) SubscribeLogs(ctx context.Context, ch chan<- types.Log) (ethereum.Subscription, error) {
	if s.ws == nil {
		return nil, errors.New("websocket endpoint not configured")
	}
	return s.ws.SubscribeFilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{s.contract},
	}, ch)
}

// CurrentBlock returns the node's current head block number.
func (s *EthSource) CurrentBlock(ctx context.Context) (uint64, error) {
	return s.http.BlockNumber(ctx)
}

// Close releases both node connections.
func (s *EthSource) Close() {
	s.http.Close()
	if s.ws != nil {
		s.ws.Close()
	}
}
