// Package builder assembles unsigned transfer transactions for clients
// to sign, persists the matching pending payment row and issues the
// scoped credential for the later verification call.
package builder

import (
	"context"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tosynthegeek/stabuse/clients"
	"github.com/tosynthegeek/stabuse/credential"
	"github.com/tosynthegeek/stabuse/logger"
	"github.com/tosynthegeek/stabuse/metrics"
	"github.com/tosynthegeek/stabuse/registry"
	"github.com/tosynthegeek/stabuse/types"
	"github.com/tosynthegeek/stabuse/webhook"
)

// PaymentStore is the slice of the store the builder needs.
type PaymentStore interface {
	CreatePending(ctx context.Context, p *types.PendingPayment) error
}

// Builder resolves merchant and asset metadata, prepares the unsigned
// transaction and records the pending payment.
type Builder struct {
	store     PaymentStore
	assets    registry.ChainRegistry
	merchants registry.MerchantDirectory
	issuer    *credential.Issuer

	dialEVM    clients.EVMDialer
	dialSolana clients.SolanaDialer

	webhookBase   string
	webhookSecret string

	log logger.Logger
	rec metrics.Recorder
	now func() time.Time
}

func New(
	store PaymentStore,
	assets registry.ChainRegistry,
	merchants registry.MerchantDirectory,
	issuer *credential.Issuer,
	webhookBase, webhookSecret string,
	opts ...Option,
) *Builder {
	b := &Builder{
		store:         store,
		assets:        assets,
		merchants:     merchants,
		issuer:        issuer,
		dialEVM:       clients.DialEVM,
		dialSolana:    clients.DialSolana,
		webhookBase:   webhookBase,
		webhookSecret: webhookSecret,
		log:           logger.NoopLogger{},
		rec:           metrics.NoopRecorder{},
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Option customizes a Builder.
type Option func(*Builder)

func WithLogger(log logger.Logger) Option {
	return func(b *Builder) { b.log = log }
}

func WithMetrics(rec metrics.Recorder) Option {
	return func(b *Builder) { b.rec = rec }
}

// WithEVMDialer swaps the EVM connection factory, used by tests to
// inject a fake chain.
func WithEVMDialer(dial clients.EVMDialer) Option {
	return func(b *Builder) { b.dialEVM = dial }
}

// WithSolanaDialer swaps the Solana connection factory.
func WithSolanaDialer(dial clients.SolanaDialer) Option {
	return func(b *Builder) { b.dialSolana = dial }
}

// recordPending stores the pending payment with its amount converted
// from smallest units to the asset's human denomination, and mints the
// credential plus webhook URL for it.
func (b *Builder) recordPending(ctx context.Context, req types.CreatePaymentRequest, network string, decimals uint8) (*types.PaymentCredential, error) {
	issuedAt := b.now()
	amount := decimal.NewFromBigInt(new(big.Int).SetUint64(req.Amount), -int32(decimals))

	hookURL := webhook.DeriveURL(b.webhookBase, req.MerchantID, req.UserAddress, amount.String(), issuedAt, b.webhookSecret)

	pending := &types.PendingPayment{
		MerchantID: req.MerchantID,
		Sender:     req.UserAddress,
		Amount:     amount,
		Asset:      req.Asset,
		Network:    network,
		WebhookURL: hookURL,
	}
	if err := b.store.CreatePending(ctx, pending); err != nil {
		return nil, err
	}

	token, err := b.issuer.Issue(pending.ID, req.RPCURL, network)
	if err != nil {
		return nil, err
	}

	b.rec.IncCounter(metrics.EventPaymentBuilt, map[string]string{"network": network})
	b.log.Info("created pending payment", map[string]any{
		"pending_payment_id": pending.ID,
		"merchant_id":        req.MerchantID,
		"asset":              req.Asset,
		"network":            network,
		"amount":             amount.String(),
	})

	return &types.PaymentCredential{Token: token, WebhookURL: hookURL}, nil
}
