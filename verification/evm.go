package verification

import (
	"bytes"
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/tosynthegeek/stabuse/clients"
	"github.com/tosynthegeek/stabuse/logger"
	"github.com/tosynthegeek/stabuse/registry"
	"github.com/tosynthegeek/stabuse/types"
	"github.com/tosynthegeek/stabuse/utils"
)

// EVMVerifier checks an ERC-20 transfer against its pending payment:
// confirmation depth, calldata, receipt status and an independent sum
// of the Transfer event logs all have to line up before settlement.
type EVMVerifier struct {
	store     PaymentStore
	assets    registry.ChainRegistry
	merchants registry.MerchantDirectory
	dial      clients.EVMDialer
	log       logger.Logger

	pollInterval time.Duration
	maxPolls     int
}

func NewEVMVerifier(
	store PaymentStore,
	assets registry.ChainRegistry,
	merchants registry.MerchantDirectory,
	dial clients.EVMDialer,
	log logger.Logger,
) *EVMVerifier {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &EVMVerifier{
		store:        store,
		assets:       assets,
		merchants:    merchants,
		dial:         dial,
		log:          log,
		pollInterval: 15 * time.Second,
		maxPolls:     40,
	}
}

func (v *EVMVerifier) Verify(ctx context.Context, pendingID uint, rpcURL, txHash string) (*types.Settlement, error) {
	pending, err := v.store.Pending(ctx, pendingID)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateTxRef(txHash, pending.Network); err != nil {
		return nil, err
	}

	chain, err := v.dial(rpcURL)
	if err != nil {
		return nil, err
	}
	chainID, err := chain.ChainID(ctx)
	if err != nil {
		return nil, types.Internal("failed to fetch chain id: %v", err)
	}

	_, tokenAddr, err := v.assets.NetworkAndAssetAddress(ctx, pending.Asset, chainID.Int64())
	if err != nil {
		return nil, err
	}
	decimals, err := v.assets.TokenDecimals(ctx, pending.Asset, chainID.Int64())
	if err != nil {
		return nil, err
	}
	merchantAddr, err := v.merchants.MerchantNetworkAddress(ctx, pending.MerchantID, chainID.Int64())
	if err != nil {
		return nil, err
	}

	hash := common.HexToHash(txHash)
	tx, isPending, err := chain.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, types.Internal("transaction %s not available yet: %v", txHash, err)
	}

	receipt, err := v.awaitConfirmations(ctx, chain, hash, isPending)
	if err != nil {
		return nil, err
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return nil, types.InvalidData("transaction %s reverted on-chain", txHash)
	}

	token := common.HexToAddress(tokenAddr)
	merchant := common.HexToAddress(merchantAddr)
	if tx.To() == nil || *tx.To() != token {
		return nil, types.InvalidData("transaction %s does not call the %s token contract", txHash, pending.Asset)
	}

	expected := pending.Amount.Shift(int32(decimals)).BigInt()
	wantCalldata, err := clients.PackTransfer(merchant, expected)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(tx.Data(), wantCalldata) {
		return nil, types.InvalidData("transaction %s calldata does not match the expected transfer", txHash)
	}

	// cross-check what the contract actually did, independent of the
	// calldata the caller sent
	transferred := sumTransferLogs(receipt.Logs, token, common.HexToAddress(pending.Sender), merchant)
	if transferred.Cmp(expected) != 0 {
		return nil, types.InvalidData("transaction %s transferred %s, expected %s", txHash, transferred, expected)
	}

	settled, err := v.store.Settle(ctx, pendingID, txHash)
	if err != nil {
		return nil, err
	}

	v.log.Info("settled evm payment", map[string]any{
		"payment_id": settled.ID,
		"tx_hash":    txHash,
		"network":    pending.Network,
	})
	return &types.Settlement{PaymentID: settled.ID, WebhookURL: pending.WebhookURL}, nil
}

// awaitConfirmations polls until the transaction is buried under the
// required number of blocks. The loop is bounded; a transaction that
// never confirms within the window comes back as a retryable error so
// the queue redelivers it.
func (v *EVMVerifier) awaitConfirmations(ctx context.Context, chain clients.EVMChain, hash common.Hash, isPending bool) (*gethtypes.Receipt, error) {
	for attempt := 0; attempt < v.maxPolls; attempt++ {
		if attempt > 0 || isPending {
			select {
			case <-ctx.Done():
				return nil, types.Internal("confirmation wait aborted: %v", ctx.Err())
			case <-time.After(v.pollInterval):
			}
		}

		receipt, err := chain.TransactionReceipt(ctx, hash)
		if err != nil || receipt == nil {
			continue
		}

		head, err := chain.BlockNumber(ctx)
		if err != nil {
			continue
		}

		mined := receipt.BlockNumber.Uint64()
		if head >= mined && head-mined >= requiredConfirmations {
			return receipt, nil
		}
	}
	return nil, types.Internal("transaction %s did not reach %d confirmations in time", hash.Hex(), requiredConfirmations)
}

// sumTransferLogs adds up every Transfer event the token contract
// emitted from the payer to the merchant within the transaction.
func sumTransferLogs(logs []*gethtypes.Log, token, sender, merchant common.Address) *big.Int {
	total := new(big.Int)
	for _, entry := range logs {
		if entry.Address != token || len(entry.Topics) != 3 {
			continue
		}
		if entry.Topics[0] != clients.TransferEventTopic {
			continue
		}
		if common.BytesToAddress(entry.Topics[1].Bytes()) != sender {
			continue
		}
		if common.BytesToAddress(entry.Topics[2].Bytes()) != merchant {
			continue
		}
		total.Add(total, new(big.Int).SetBytes(entry.Data))
	}
	return total
}
