// Package types holds the shared data model of the payment engine:
// payment rows, queue messages, transaction descriptors and typed errors.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PendingPayment is a payment that has been requested but not yet
// verified on-chain. It is created by the transaction builders and
// deleted by the verifiers on successful settlement; it is never
// mutated in between.
type PendingPayment struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	MerchantID uint            `gorm:"not null;index" json:"merchant_id"`
	Sender     string          `gorm:"size:255;not null" json:"sender"`
	Amount     decimal.Decimal `gorm:"type:numeric;not null" json:"amount"`
	Asset      string          `gorm:"size:32;not null" json:"asset"`
	Network    string          `gorm:"size:255;not null" json:"network"`
	WebhookURL string          `gorm:"size:512;not null" json:"webhook_url"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (PendingPayment) TableName() string { return "pending_payments" }

// Payment is a settled payment. Rows are append-only and keyed by the
// unique transaction hash, which is the idempotency guard against
// double settlement.
type Payment struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	MerchantID uint            `gorm:"not null;index" json:"merchant_id"`
	Sender     string          `gorm:"size:255;not null" json:"sender"`
	Amount     decimal.Decimal `gorm:"type:numeric;not null" json:"amount"`
	TxHash     string          `gorm:"size:255;uniqueIndex;not null" json:"tx_hash"`
	Asset      string          `gorm:"size:32;not null" json:"asset"`
	Network    string          `gorm:"size:255;not null" json:"network"`
	CreatedAt  time.Time       `json:"time"`
}

func (Payment) TableName() string { return "payments" }

// Settlement is the verifier's result: the id of the freshly inserted
// payment row and the webhook URL the completion event goes to.
type Settlement struct {
	PaymentID  uint   `json:"payment_id"`
	WebhookURL string `json:"webhook_url"`
}

// TransactionVerificationMessage is the document published to the
// verification queue when a client submits a transaction hash.
type TransactionVerificationMessage struct {
	PendingPaymentID uint   `json:"pending_payment_id"`
	TxHash           string `json:"tx_hash"`
	RPCURL           string `json:"rpc_url"`
	Network          string `json:"network"`
}

// WebhookPayload is the body POSTed to the merchant's callback URL
// after a payment settles. Field order is part of the contract.
type WebhookPayload struct {
	PaymentID int    `json:"payment_id"`
	Status    string `json:"status"`
	TxHash    string `json:"tx_hash"`
	Timestamp string `json:"timestamp"`
}

// StatusCompleted is the only status the notifier currently emits.
const StatusCompleted = "completed"

// EVMTransaction is the unsigned EIP-1559 transfer returned to the
// client for signing. All numeric fields are 0x-prefixed hex so the
// descriptor can be handed to any EVM wallet unchanged.
type EVMTransaction struct {
	To                   string `json:"to"`
	From                 string `json:"from"`
	Data                 string `json:"data"`
	Value                string `json:"value"`
	Nonce                string `json:"nonce"`
	ChainID              uint64 `json:"chain_id"`
	GasLimit             string `json:"gas_limit,omitempty"`
	MaxFeePerGas         string `json:"max_fee_per_gas,omitempty"`
	MaxPriorityFeePerGas string `json:"max_priority_fee_per_gas,omitempty"`
}

// SolanaTransaction is the unsigned transfer-checked transaction
// returned to the client, serialized to base64 the way wallets expect.
type SolanaTransaction struct {
	Transaction     string `json:"transaction"`
	RecentBlockhash string `json:"recent_blockhash"`
	Payer           string `json:"payer"`
	Mint            string `json:"mint"`
	Decimals        uint8  `json:"decimals"`
}

// PaymentCredential accompanies a build result: the scoped token that
// authorizes verification of exactly one pending payment, plus the
// callback URL the merchant will be notified on.
type PaymentCredential struct {
	Token      string `json:"token"`
	WebhookURL string `json:"webhook_url"`
}

// CreatePaymentRequest is the inbound build request. Amount is an
// integer in the asset's smallest unit.
type CreatePaymentRequest struct {
	MerchantID  uint   `json:"merchant_id" validate:"required"`
	Amount      uint64 `json:"payment_amount" validate:"required,gt=0"`
	UserAddress string `json:"user_address" validate:"required"`
	Asset       string `json:"asset" validate:"required"`
	RPCURL      string `json:"rpc_url" validate:"required,url"`
}

// ValidatePaymentRequest submits a broadcast transaction hash for
// asynchronous verification. The pending payment, RPC endpoint and
// network all come from the caller's credential, not the body.
type ValidatePaymentRequest struct {
	TxHash string `json:"tx_hash" validate:"required"`
}
