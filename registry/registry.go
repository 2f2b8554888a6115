// Package registry provides the two read-only lookups the payment core
// depends on: the chain registry (network names, asset contract/mint
// addresses, decimal precision) and the merchant directory (per-chain
// receiving addresses). Registry CRUD is owned by the admin surface,
// which is outside this engine; the core only ever reads.
package registry

import "context"

// ChainRegistry resolves asset metadata for a chain.
type ChainRegistry interface {
	// NetworkAndAssetAddress returns the network's display name and
	// the asset's contract (EVM) or mint (Solana) address on the
	// given chain.
	NetworkAndAssetAddress(ctx context.Context, asset string, chainID int64) (network string, address string, err error)

	// TokenDecimals returns the decimal precision of the asset on the
	// given chain.
	TokenDecimals(ctx context.Context, asset string, chainID int64) (uint8, error)
}

// MerchantDirectory resolves a merchant's receiving address on a chain.
type MerchantDirectory interface {
	MerchantNetworkAddress(ctx context.Context, merchantID uint, chainID int64) (string, error)
}
