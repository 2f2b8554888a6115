package stabuse

import (
	"github.com/tosynthegeek/stabuse/clients"
	"github.com/tosynthegeek/stabuse/logger"
	"github.com/tosynthegeek/stabuse/metrics"
	"github.com/tosynthegeek/stabuse/registry"
)

type Option func(*Engine)

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(e *Engine) {
		e.rec = r
	}
}

// WithChainRegistry replaces the database-backed asset registry.
func WithChainRegistry(r registry.ChainRegistry) Option {
	return func(e *Engine) {
		e.assets = r
	}
}

// WithMerchantDirectory replaces the database-backed merchant lookup.
func WithMerchantDirectory(d registry.MerchantDirectory) Option {
	return func(e *Engine) {
		e.merchants = d
	}
}

// WithEVMDialer replaces the EVM connection factory.
func WithEVMDialer(dial clients.EVMDialer) Option {
	return func(e *Engine) {
		e.dialEVM = dial
	}
}

// WithSolanaDialer replaces the Solana connection factory.
func WithSolanaDialer(dial clients.SolanaDialer) Option {
	return func(e *Engine) {
		e.dialSolana = dial
	}
}
