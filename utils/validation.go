// Package utils holds shared input validation for addresses, amounts
// and transaction references across chain families.
package utils

import (
	"regexp"
	"strings"

	"github.com/tosynthegeek/stabuse/types"
)

var (
	hexRe    = regexp.MustCompile("^[0-9a-fA-F]+$")
	base58Re = regexp.MustCompile("^[1-9A-HJ-NP-Za-km-z]+$")
)

// ValidateAddress checks an address against the conventions of the
// network's chain family.
func ValidateAddress(address, network string) error {
	if address == "" {
		return types.InvalidAddress("address cannot be empty")
	}

	switch types.FamilyOf(network) {
	case types.ChainSolana:
		// base58, typically 32-44 characters
		if len(address) < 32 || len(address) > 44 {
			return types.InvalidAddress("solana address %s has invalid length", address)
		}
		if !base58Re.MatchString(address) {
			return types.InvalidAddress("solana address %s is not valid base58", address)
		}
	default:
		// 0x followed by 40 hex characters
		if !strings.HasPrefix(address, "0x") {
			return types.InvalidAddress("evm address %s must start with 0x", address)
		}
		if len(address) != 42 {
			return types.InvalidAddress("evm address %s must be 42 characters", address)
		}
		if !hexRe.MatchString(address[2:]) {
			return types.InvalidAddress("evm address %s is not valid hex", address)
		}
	}
	return nil
}

// ValidateTxRef checks a transaction hash or signature against the
// conventions of the network's chain family.
func ValidateTxRef(txRef, network string) error {
	if txRef == "" {
		return types.InvalidData("transaction reference cannot be empty")
	}

	switch types.FamilyOf(network) {
	case types.ChainSolana:
		// base58 signature, typically 87-88 characters
		if len(txRef) < 80 || len(txRef) > 90 {
			return types.InvalidData("solana transaction signature has invalid length")
		}
		if !base58Re.MatchString(txRef) {
			return types.InvalidData("solana transaction signature is not valid base58")
		}
	default:
		// 0x followed by 64 hex characters
		if !strings.HasPrefix(txRef, "0x") || len(txRef) != 66 {
			return types.InvalidData("evm transaction hash must be 66 characters starting with 0x")
		}
		if !hexRe.MatchString(txRef[2:]) {
			return types.InvalidData("evm transaction hash is not valid hex")
		}
	}
	return nil
}
