package types

import (
	"errors"
	"fmt"
)

// Error is the engine's typed error. Code drives retry decisions in
// the confirmation pipeline and status mapping in the HTTP layer.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// Error codes.
const (
	// CodeInvalidAddress: malformed address for the target chain family.
	CodeInvalidAddress = "INVALID_ADDRESS"
	// CodeInvalidData: submitted or on-chain data does not match the
	// pending payment. Never retried.
	CodeInvalidData = "INVALID_DATA"
	// CodeAssetNotSupported: no contract/mint registered for the asset
	// on the requested chain.
	CodeAssetNotSupported = "ASSET_NOT_SUPPORTED"
	// CodeUnauthorized: bad or expired verification credential.
	CodeUnauthorized = "UNAUTHORIZED"
	// CodeNotFound: referenced pending payment does not exist, either
	// because it never did or because it already settled.
	CodeNotFound = "NOT_FOUND"
	// CodeInternal: RPC/transport failure. Safe to retry the whole
	// operation.
	CodeInternal = "INTERNAL"
	// CodeDatabase: store failure. Retryable only where the operation
	// is idempotent; settlement writes rely on the tx-hash unique
	// constraint instead of blind retries.
	CodeDatabase = "DATABASE_ERROR"
)

func Errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func InvalidAddress(format string, args ...any) *Error {
	return Errorf(CodeInvalidAddress, format, args...)
}

func InvalidData(format string, args ...any) *Error {
	return Errorf(CodeInvalidData, format, args...)
}

func AssetNotSupported(format string, args ...any) *Error {
	return Errorf(CodeAssetNotSupported, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return Errorf(CodeUnauthorized, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return Errorf(CodeNotFound, format, args...)
}

func Internal(format string, args ...any) *Error {
	return Errorf(CodeInternal, format, args...)
}

func Database(format string, args ...any) *Error {
	return Errorf(CodeDatabase, format, args...)
}

// CodeOf extracts the engine error code, or CodeInternal for
// unclassified errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Retryable reports whether redelivering the operation can succeed.
// Mismatched data, missing rows and bad credentials are terminal;
// transport and store hiccups are not.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case CodeInternal, CodeDatabase:
		return true
	default:
		return false
	}
}
