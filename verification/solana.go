package verification

import (
	"context"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/tosynthegeek/stabuse/clients"
	"github.com/tosynthegeek/stabuse/logger"
	"github.com/tosynthegeek/stabuse/registry"
	"github.com/tosynthegeek/stabuse/types"
	"github.com/tosynthegeek/stabuse/utils"
)

// transferCheckedOpcode is the SPL token program's TransferChecked
// instruction tag.
const transferCheckedOpcode = 12

// SolanaVerifier checks an SPL transfer-checked transaction against
// its pending payment. Unlike the EVM path there is no confirmation
// polling: a transaction that is not deep enough at submission time is
// rejected outright, since Solana slots advance too quickly for a
// resubmitted hash to still be stale.
type SolanaVerifier struct {
	store     PaymentStore
	assets    registry.ChainRegistry
	merchants registry.MerchantDirectory
	dial      clients.SolanaDialer
	log       logger.Logger
}

func NewSolanaVerifier(
	store PaymentStore,
	assets registry.ChainRegistry,
	merchants registry.MerchantDirectory,
	dial clients.SolanaDialer,
	log logger.Logger,
) *SolanaVerifier {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &SolanaVerifier{
		store:     store,
		assets:    assets,
		merchants: merchants,
		dial:      dial,
		log:       log,
	}
}

func (v *SolanaVerifier) Verify(ctx context.Context, pendingID uint, rpcURL, txSig string) (*types.Settlement, error) {
	pending, err := v.store.Pending(ctx, pendingID)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateTxRef(txSig, pending.Network); err != nil {
		return nil, err
	}

	chain, err := v.dial(rpcURL)
	if err != nil {
		return nil, err
	}

	chainID := types.SolanaChainID(rpcURL)

	_, mintAddr, err := v.assets.NetworkAndAssetAddress(ctx, pending.Asset, chainID)
	if err != nil {
		return nil, err
	}
	decimals, err := v.assets.TokenDecimals(ctx, pending.Asset, chainID)
	if err != nil {
		return nil, err
	}
	merchantAddr, err := v.merchants.MerchantNetworkAddress(ctx, pending.MerchantID, chainID)
	if err != nil {
		return nil, err
	}

	sig, err := solana.SignatureFromBase58(txSig)
	if err != nil {
		return nil, types.InvalidData("invalid transaction signature %s: %v", txSig, err)
	}

	view, err := chain.Transaction(ctx, sig)
	if err != nil {
		return nil, err
	}

	currentSlot, err := chain.Slot(ctx)
	if err != nil {
		return nil, err
	}
	if currentSlot < view.Slot || currentSlot-view.Slot < requiredConfirmations {
		return nil, types.InvalidData("transaction %s has insufficient confirmations", txSig)
	}

	if view.Failed {
		return nil, types.InvalidData("transaction %s failed on-chain", txSig)
	}

	payer, err := solana.PublicKeyFromBase58(pending.Sender)
	if err != nil {
		return nil, types.InvalidAddress("invalid payer address %s: %v", pending.Sender, err)
	}
	merchant, err := solana.PublicKeyFromBase58(merchantAddr)
	if err != nil {
		return nil, types.InvalidAddress("invalid merchant address %s: %v", merchantAddr, err)
	}
	mint, err := solana.PublicKeyFromBase58(mintAddr)
	if err != nil {
		return nil, types.InvalidAddress("invalid mint address %s: %v", mintAddr, err)
	}

	payerATA, _, err := solana.FindAssociatedTokenAddress(payer, mint)
	if err != nil {
		return nil, types.Internal("failed to derive payer token account: %v", err)
	}
	merchantATA, _, err := solana.FindAssociatedTokenAddress(merchant, mint)
	if err != nil {
		return nil, types.Internal("failed to derive merchant token account: %v", err)
	}

	expected := pending.Amount.Shift(int32(decimals)).BigInt().Uint64()
	if !hasMatchingTransfer(view.Tx, expected, decimals, payerATA, mint, merchantATA, payer) {
		return nil, types.InvalidData("transaction %s contains no matching transfer of %d %s", txSig, expected, pending.Asset)
	}

	settled, err := v.store.Settle(ctx, pendingID, txSig)
	if err != nil {
		return nil, err
	}

	v.log.Info("settled solana payment", map[string]any{
		"payment_id": settled.ID,
		"tx_hash":    txSig,
		"network":    pending.Network,
	})
	return &types.Settlement{PaymentID: settled.ID, WebhookURL: pending.WebhookURL}, nil
}

// hasMatchingTransfer scans the transaction for a token program
// TransferChecked instruction moving exactly the expected amount from
// the payer's token account to the merchant's.
func hasMatchingTransfer(tx *solana.Transaction, amount uint64, decimals uint8, source, mint, dest, owner solana.PublicKey) bool {
	keys := tx.Message.AccountKeys

	for _, inst := range tx.Message.Instructions {
		if int(inst.ProgramIDIndex) >= len(keys) {
			continue
		}
		if !keys[inst.ProgramIDIndex].Equals(solana.TokenProgramID) {
			continue
		}
		if len(inst.Data) < 10 || inst.Data[0] != transferCheckedOpcode {
			continue
		}
		if binary.LittleEndian.Uint64(inst.Data[1:9]) != amount || inst.Data[9] != decimals {
			continue
		}
		if len(inst.Accounts) < 4 {
			continue
		}

		accounts := make([]solana.PublicKey, 4)
		valid := true
		for i := 0; i < 4; i++ {
			idx := int(inst.Accounts[i])
			if idx >= len(keys) {
				valid = false
				break
			}
			accounts[i] = keys[idx]
		}
		if !valid {
			continue
		}

		if accounts[0].Equals(source) && accounts[1].Equals(mint) &&
			accounts[2].Equals(dest) && accounts[3].Equals(owner) {
			return true
		}
	}
	return false
}
