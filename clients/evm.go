// Package clients wraps the chain RPC endpoints behind narrow
// interfaces so builders and verifiers can be tested without a node.
package clients

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	stabusetypes "github.com/tosynthegeek/stabuse/types"
)

// EVMChain is the slice of the Ethereum JSON-RPC surface the payment
// flows need. ethclient.Client satisfies it directly.
type EVMChain interface {
	ChainID(ctx context.Context) (*big.Int, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	FeeHistory(ctx context.Context, blockCount uint64, lastBlock *big.Int, rewardPercentiles []float64) (*ethereum.FeeHistory, error)
}

// EVMDialer opens a connection to an EVM RPC endpoint.
type EVMDialer func(rpcURL string) (EVMChain, error)

// DialEVM connects through go-ethereum's client.
func DialEVM(rpcURL string) (EVMChain, error) {
	c, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, stabusetypes.Internal("failed to connect to EVM rpc %s: %v", rpcURL, err)
	}
	return c, nil
}

const erc20TransferABI = `[{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}]`

var (
	erc20ABI = mustParseABI(erc20TransferABI)

	// TransferEventTopic is keccak256 of the canonical ERC-20 Transfer
	// event signature, the first topic on every transfer log.
	TransferEventTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// PackTransfer ABI-encodes the calldata for transfer(to, value).
func PackTransfer(to common.Address, value *big.Int) ([]byte, error) {
	data, err := erc20ABI.Pack("transfer", to, value)
	if err != nil {
		return nil, stabusetypes.Internal("failed to encode transfer calldata: %v", err)
	}
	return data, nil
}
