// Package verification checks submitted transactions against their
// pending payments on-chain and settles the ones that match.
package verification

import (
	"context"
	"time"

	"github.com/tosynthegeek/stabuse/clients"
	"github.com/tosynthegeek/stabuse/logger"
	"github.com/tosynthegeek/stabuse/metrics"
	"github.com/tosynthegeek/stabuse/registry"
	"github.com/tosynthegeek/stabuse/types"
)

// requiredConfirmations is how deep a transaction must be buried
// before it settles, on both chain families.
const requiredConfirmations = 12

// PaymentStore is the slice of the store the verifiers need.
type PaymentStore interface {
	Pending(ctx context.Context, id uint) (*types.PendingPayment, error)
	Settle(ctx context.Context, pendingID uint, txHash string) (*types.Payment, error)
}

// Verifier checks one transaction against one pending payment and
// settles it when everything matches.
type Verifier interface {
	Verify(ctx context.Context, pendingID uint, rpcURL, txRef string) (*types.Settlement, error)
}

// Service routes verification messages to the verifier for the
// message's chain family.
type Service struct {
	evm    Verifier
	solana Verifier
	log    logger.Logger
	rec    metrics.Recorder
}

func NewService(
	store PaymentStore,
	assets registry.ChainRegistry,
	merchants registry.MerchantDirectory,
	dialEVM clients.EVMDialer,
	dialSolana clients.SolanaDialer,
	log logger.Logger,
	rec metrics.Recorder,
) *Service {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Service{
		evm:    NewEVMVerifier(store, assets, merchants, dialEVM, log),
		solana: NewSolanaVerifier(store, assets, merchants, dialSolana, log),
		log:    log,
		rec:    rec,
	}
}

// Verify dispatches on the message's network and records the outcome.
func (s *Service) Verify(ctx context.Context, msg types.TransactionVerificationMessage) (*types.Settlement, error) {
	start := time.Now()

	var v Verifier
	switch types.FamilyOf(msg.Network) {
	case types.ChainSolana:
		v = s.solana
	default:
		v = s.evm
	}

	labels := map[string]string{"network": msg.Network}
	settlement, err := v.Verify(ctx, msg.PendingPaymentID, msg.RPCURL, msg.TxHash)
	s.rec.ObserveLatency("verify", time.Since(start), labels)
	if err != nil {
		s.rec.IncCounter(metrics.EventVerificationError, labels)
		return nil, err
	}

	s.rec.IncCounter(metrics.EventPaymentSettled, labels)
	return settlement, nil
}
