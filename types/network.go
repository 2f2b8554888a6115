package types

import "strings"

// ChainFamily classifies a network into a blockchain family. The two
// families have structurally different transaction formats, addressing
// and token standards, so each gets a dedicated build/verify path.
type ChainFamily string

const (
	ChainEVM    ChainFamily = "evm"
	ChainSolana ChainFamily = "solana"
)

// FamilyOf maps a registry network name to its chain family. Network
// names are operator-defined strings ("Polygon Mainnet", "Solana
// Devnet", ...), so classification keys off the solana marker and
// defaults to EVM.
func FamilyOf(network string) ChainFamily {
	if strings.Contains(strings.ToLower(network), "sol") {
		return ChainSolana
	}
	return ChainEVM
}

// Internal chain identifiers for Solana clusters. Solana has no
// on-chain equivalent of an EVM chain id, so the registry keys Solana
// networks by these fixed values.
const (
	SolanaMainnetID int64 = 101
	SolanaTestnetID int64 = 102
	SolanaDevnetID  int64 = 103
)

// SolanaChainID derives the registry chain identifier for a Solana
// cluster from its RPC endpoint.
func SolanaChainID(rpcURL string) int64 {
	url := strings.ToLower(rpcURL)
	switch {
	case strings.Contains(url, "devnet"):
		return SolanaDevnetID
	case strings.Contains(url, "testnet"):
		return SolanaTestnetID
	default:
		return SolanaMainnetID
	}
}
