package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tosynthegeek/stabuse/types"
)

func TestValidateAddressEVM(t *testing.T) {
	require.NoError(t, ValidateAddress("0x742d35Cc6634C0532925a3b844Bc454e4438f44e", "ethereum"))

	for name, addr := range map[string]string{
		"empty":     "",
		"no prefix": "742d35Cc6634C0532925a3b844Bc454e4438f44e00",
		"too short": "0x742d35Cc",
		"non hex":   "0x742d35Cc6634C0532925a3b844Bc454e4438fZZZ",
	} {
		t.Run(name, func(t *testing.T) {
			err := ValidateAddress(addr, "ethereum")
			require.Error(t, err)
			require.Equal(t, types.CodeInvalidAddress, types.CodeOf(err))
		})
	}
}

func TestValidateAddressSolana(t *testing.T) {
	require.NoError(t, ValidateAddress("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T", "solana"))

	err := ValidateAddress("0x742d35Cc6634C0532925a3b844Bc454e4438f44e", "solana")
	require.Error(t, err)
	require.Equal(t, types.CodeInvalidAddress, types.CodeOf(err))
}

func TestValidateTxRef(t *testing.T) {
	evmHash := "0x" + strings.Repeat("ab", 32)
	require.NoError(t, ValidateTxRef(evmHash, "ethereum"))
	require.Error(t, ValidateTxRef(evmHash[:40], "ethereum"))
	require.Error(t, ValidateTxRef("", "ethereum"))

	solSig := strings.Repeat("5HueCGU8rMjxEXxiPuD5BDku4MkFqeZyd4dZ1", 3)[:87]
	require.NoError(t, ValidateTxRef(solSig, "solana"))
	require.Error(t, ValidateTxRef("short", "solana"))
}
