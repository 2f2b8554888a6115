package builder

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/tosynthegeek/stabuse/types"
	"github.com/tosynthegeek/stabuse/utils"
)

// BuildSolanaPayment prepares an unsigned SPL transfer-checked
// transaction between the payer's and the merchant's associated token
// accounts, records the pending payment and returns the scoped
// credential alongside the transaction descriptor.
func (b *Builder) BuildSolanaPayment(ctx context.Context, req types.CreatePaymentRequest) (*types.SolanaTransaction, *types.PaymentCredential, error) {
	if err := utils.ValidateAddress(req.UserAddress, "solana"); err != nil {
		return nil, nil, err
	}

	chain, err := b.dialSolana(req.RPCURL)
	if err != nil {
		return nil, nil, err
	}

	chainID := types.SolanaChainID(req.RPCURL)

	network, mintAddr, err := b.assets.NetworkAndAssetAddress(ctx, req.Asset, chainID)
	if err != nil {
		return nil, nil, err
	}
	decimals, err := b.assets.TokenDecimals(ctx, req.Asset, chainID)
	if err != nil {
		return nil, nil, err
	}
	merchantAddr, err := b.merchants.MerchantNetworkAddress(ctx, req.MerchantID, chainID)
	if err != nil {
		return nil, nil, err
	}

	payer, err := solana.PublicKeyFromBase58(req.UserAddress)
	if err != nil {
		return nil, nil, types.InvalidAddress("invalid payer address %s: %v", req.UserAddress, err)
	}
	merchant, err := solana.PublicKeyFromBase58(merchantAddr)
	if err != nil {
		return nil, nil, types.InvalidAddress("invalid merchant address %s: %v", merchantAddr, err)
	}
	mint, err := solana.PublicKeyFromBase58(mintAddr)
	if err != nil {
		return nil, nil, types.InvalidAddress("invalid mint address %s: %v", mintAddr, err)
	}

	sourceATA, _, err := solana.FindAssociatedTokenAddress(payer, mint)
	if err != nil {
		return nil, nil, types.Internal("failed to derive payer token account: %v", err)
	}
	destATA, _, err := solana.FindAssociatedTokenAddress(merchant, mint)
	if err != nil {
		return nil, nil, types.Internal("failed to derive merchant token account: %v", err)
	}

	transfer := token.NewTransferCheckedInstruction(
		req.Amount,
		decimals,
		sourceATA,
		mint,
		destATA,
		payer,
		nil,
	).Build()

	blockhash, err := chain.LatestBlockhash(ctx)
	if err != nil {
		return nil, nil, err
	}

	unsigned, err := solana.NewTransaction(
		[]solana.Instruction{transfer},
		blockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return nil, nil, types.Internal("failed to assemble transaction: %v", err)
	}

	encoded, err := unsigned.ToBase64()
	if err != nil {
		return nil, nil, types.Internal("failed to serialize transaction: %v", err)
	}

	tx := &types.SolanaTransaction{
		Transaction:     encoded,
		RecentBlockhash: blockhash.String(),
		Payer:           payer.String(),
		Mint:            mint.String(),
		Decimals:        decimals,
	}

	cred, err := b.recordPending(ctx, req, network, decimals)
	if err != nil {
		return nil, nil, err
	}
	return tx, cred, nil
}
