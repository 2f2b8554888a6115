// Package stabuse is a payment verification and settlement engine for
// EVM and Solana chains. Merchants are paid by direct on-chain
// transfer: the engine prepares the unsigned transaction and a scoped
// credential, the client signs and broadcasts, and an asynchronous
// pipeline verifies the transaction on-chain before settling the
// payment and notifying the merchant.
package stabuse

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"

	"github.com/tosynthegeek/stabuse/builder"
	"github.com/tosynthegeek/stabuse/clients"
	"github.com/tosynthegeek/stabuse/config"
	"github.com/tosynthegeek/stabuse/credential"
	"github.com/tosynthegeek/stabuse/logger"
	"github.com/tosynthegeek/stabuse/metrics"
	"github.com/tosynthegeek/stabuse/queue"
	"github.com/tosynthegeek/stabuse/registry"
	"github.com/tosynthegeek/stabuse/store"
	"github.com/tosynthegeek/stabuse/types"
	"github.com/tosynthegeek/stabuse/utils"
	"github.com/tosynthegeek/stabuse/verification"
	"github.com/tosynthegeek/stabuse/webhook"
)

// Engine wires the payment flows together: builders on the inbound
// side, the verification service behind the queue, and the settlement
// store under both.
type Engine struct {
	store     *store.Store
	assets    registry.ChainRegistry
	merchants registry.MerchantDirectory
	issuer    *credential.Issuer
	builder   *builder.Builder
	verifier  *verification.Service
	publisher *queue.Publisher
	notifier  *webhook.Notifier

	dialEVM    clients.EVMDialer
	dialSolana clients.SolanaDialer

	log logger.Logger
	rec metrics.Recorder
}

// New assembles an Engine from the given config, database and broker
// connection.
func New(cfg *config.Config, db *gorm.DB, conn *amqp.Connection, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:      store.New(db),
		dialEVM:    clients.DialEVM,
		dialSolana: clients.DialSolana,
		log:        logger.NoopLogger{},
		rec:        metrics.NoopRecorder{},
	}

	reg := registry.NewGormRegistry(db)
	e.assets = reg
	e.merchants = reg

	for _, opt := range opts {
		opt(e)
	}

	e.issuer = credential.NewIssuer(cfg.JWTSecret)
	e.notifier = webhook.NewNotifier(e.log)

	e.builder = builder.New(
		e.store, e.assets, e.merchants, e.issuer,
		cfg.WebhookBaseURL, cfg.JWTSecret,
		builder.WithLogger(e.log),
		builder.WithMetrics(e.rec),
		builder.WithEVMDialer(e.dialEVM),
		builder.WithSolanaDialer(e.dialSolana),
	)

	e.verifier = verification.NewService(
		e.store, e.assets, e.merchants,
		e.dialEVM, e.dialSolana,
		e.log, e.rec,
	)

	pub, err := queue.NewPublisher(conn, cfg.QueueName, e.log)
	if err != nil {
		return nil, err
	}
	e.publisher = pub

	return e, nil
}

// CreateEVMPayment builds an unsigned ERC-20 transfer plus the scoped
// credential for its later verification.
func (e *Engine) CreateEVMPayment(ctx context.Context, req types.CreatePaymentRequest) (*types.EVMTransaction, *types.PaymentCredential, error) {
	return e.builder.BuildEVMPayment(ctx, req)
}

// CreateSolanaPayment builds an unsigned SPL transfer-checked
// transaction plus the scoped credential for its later verification.
func (e *Engine) CreateSolanaPayment(ctx context.Context, req types.CreatePaymentRequest) (*types.SolanaTransaction, *types.PaymentCredential, error) {
	return e.builder.BuildSolanaPayment(ctx, req)
}

// EnqueueVerification authenticates the credential, checks the
// transaction reference and queues the verification work. The family
// guard keeps an EVM credential off the Solana endpoint and vice
// versa.
func (e *Engine) EnqueueVerification(ctx context.Context, token, txHash string, family types.ChainFamily) error {
	claims, err := e.issuer.Verify(token)
	if err != nil {
		return err
	}
	if types.FamilyOf(claims.Network) != family {
		return types.Unauthorized("credential is scoped to the %s network", claims.Network)
	}
	if err := utils.ValidateTxRef(txHash, claims.Network); err != nil {
		return err
	}

	return e.publisher.Publish(ctx, types.TransactionVerificationMessage{
		PendingPaymentID: claims.PendingPaymentID,
		TxHash:           txHash,
		RPCURL:           claims.RPCURL,
		Network:          claims.Network,
	})
}

// PendingPayment returns a pending payment by id.
func (e *Engine) PendingPayment(ctx context.Context, id uint) (*types.PendingPayment, error) {
	return e.store.Pending(ctx, id)
}

// NewConsumer builds the queue consumer that drives verification and
// webhook delivery. The caller owns its Run loop.
func (e *Engine) NewConsumer(conn *amqp.Connection, queueName string) (*queue.Consumer, error) {
	return queue.NewConsumer(conn, queueName, e.verifier, e.notifier, e.log, e.rec)
}
