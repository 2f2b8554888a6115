package builder

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/params"

	"github.com/tosynthegeek/stabuse/clients"
	"github.com/tosynthegeek/stabuse/types"
	"github.com/tosynthegeek/stabuse/utils"
)

// BuildEVMPayment prepares an unsigned EIP-1559 ERC-20 transfer from
// the payer to the merchant's address on the chain behind the given
// RPC endpoint, records the pending payment and returns the scoped
// credential alongside the transaction descriptor.
func (b *Builder) BuildEVMPayment(ctx context.Context, req types.CreatePaymentRequest) (*types.EVMTransaction, *types.PaymentCredential, error) {
	if err := utils.ValidateAddress(req.UserAddress, "ethereum"); err != nil {
		return nil, nil, err
	}

	chain, err := b.dialEVM(req.RPCURL)
	if err != nil {
		return nil, nil, err
	}

	chainID, err := chain.ChainID(ctx)
	if err != nil {
		return nil, nil, types.Internal("failed to fetch chain id: %v", err)
	}

	network, tokenAddr, err := b.assets.NetworkAndAssetAddress(ctx, req.Asset, chainID.Int64())
	if err != nil {
		return nil, nil, err
	}
	decimals, err := b.assets.TokenDecimals(ctx, req.Asset, chainID.Int64())
	if err != nil {
		return nil, nil, err
	}
	merchantAddr, err := b.merchants.MerchantNetworkAddress(ctx, req.MerchantID, chainID.Int64())
	if err != nil {
		return nil, nil, err
	}
	if err := utils.ValidateAddress(merchantAddr, network); err != nil {
		return nil, nil, err
	}

	payer := common.HexToAddress(req.UserAddress)
	token := common.HexToAddress(tokenAddr)

	calldata, err := clients.PackTransfer(common.HexToAddress(merchantAddr), new(big.Int).SetUint64(req.Amount))
	if err != nil {
		return nil, nil, err
	}

	nonce, err := chain.PendingNonceAt(ctx, payer)
	if err != nil {
		return nil, nil, types.Internal("failed to fetch nonce for %s: %v", req.UserAddress, err)
	}

	gas, err := chain.EstimateGas(ctx, ethereum.CallMsg{
		From: payer,
		To:   &token,
		Data: calldata,
	})
	if err != nil {
		return nil, nil, types.Internal("failed to estimate gas: %v", err)
	}

	feeHist, err := chain.FeeHistory(ctx, 1, nil, nil)
	if err != nil {
		return nil, nil, types.Internal("failed to fetch fee history: %v", err)
	}
	if len(feeHist.BaseFee) == 0 {
		return nil, nil, types.Internal("fee history returned no base fee")
	}
	baseFee := feeHist.BaseFee[len(feeHist.BaseFee)-1]

	tip := big.NewInt(params.GWei)
	maxFee := new(big.Int).Add(baseFee, tip)

	tx := &types.EVMTransaction{
		To:                   token.Hex(),
		From:                 payer.Hex(),
		Data:                 hexutil.Encode(calldata),
		Value:                "0x0",
		Nonce:                hexutil.EncodeUint64(nonce),
		ChainID:              chainID.Uint64(),
		GasLimit:             hexutil.EncodeUint64(gas),
		MaxFeePerGas:         hexutil.EncodeBig(maxFee),
		MaxPriorityFeePerGas: hexutil.EncodeBig(tip),
	}

	cred, err := b.recordPending(ctx, req, network, decimals)
	if err != nil {
		return nil, nil, err
	}
	return tx, cred, nil
}
