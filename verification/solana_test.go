package verification

import (
	"bytes"
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/stretchr/testify/require"

	"github.com/tosynthegeek/stabuse/clients"
	"github.com/tosynthegeek/stabuse/store"
	"github.com/tosynthegeek/stabuse/types"
)

var (
	solPayer    = solana.NewWallet().PublicKey()
	solMerchant = solana.NewWallet().PublicKey()
	solMint     = solana.NewWallet().PublicKey()
	solTxSig    = solana.SignatureFromBytes(bytes.Repeat([]byte{0xfe}, 64)).String()
)

type fakeSolanaChain struct {
	slot  uint64
	view  *clients.SolanaTransactionView
	txErr error
}

func (f *fakeSolanaChain) Slot(ctx context.Context) (uint64, error) { return f.slot, nil }

func (f *fakeSolanaChain) Transaction(ctx context.Context, sig solana.Signature) (*clients.SolanaTransactionView, error) {
	if f.txErr != nil {
		return nil, f.txErr
	}
	return f.view, nil
}

func (f *fakeSolanaChain) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	return solana.Hash{}, nil
}

// transferCheckedTx builds a signed-shaped transaction carrying one
// TransferChecked instruction between the payer's and merchant's
// associated token accounts.
func transferCheckedTx(t *testing.T, amount uint64, decimals uint8) *solana.Transaction {
	t.Helper()

	sourceATA, _, err := solana.FindAssociatedTokenAddress(solPayer, solMint)
	require.NoError(t, err)
	destATA, _, err := solana.FindAssociatedTokenAddress(solMerchant, solMint)
	require.NoError(t, err)

	transfer := token.NewTransferCheckedInstruction(
		amount, decimals, sourceATA, solMint, destATA, solPayer, nil,
	).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{transfer},
		solana.Hash{},
		solana.TransactionPayer(solPayer),
	)
	require.NoError(t, err)
	return tx
}

func newSolanaTestVerifier(t *testing.T, s *store.Store, chain clients.SolanaChain) *SolanaVerifier {
	t.Helper()
	return NewSolanaVerifier(
		s,
		fakeAssets{network: "solana", address: solMint.String(), decimals: 6},
		fakeMerchants{address: solMerchant.String()},
		func(rpcURL string) (clients.SolanaChain, error) { return chain, nil },
		nil,
	)
}

func TestSolanaVerifySettlesMatchingTransfer(t *testing.T) {
	s := newTestStore(t)
	pending := seedPending(t, s, solPayer.String(), "solana", "25.5")

	chain := &fakeSolanaChain{
		slot: 120,
		view: &clients.SolanaTransactionView{Slot: 100, Tx: transferCheckedTx(t, 25500000, 6)},
	}

	v := newSolanaTestVerifier(t, s, chain)
	settlement, err := v.Verify(context.Background(), pending.ID, "https://api.mainnet-beta.solana.com", solTxSig)
	require.NoError(t, err)
	require.Equal(t, pending.WebhookURL, settlement.WebhookURL)

	_, err = s.Pending(context.Background(), pending.ID)
	require.Equal(t, types.CodeNotFound, types.CodeOf(err))

	settled, err := s.PaymentByTxHash(context.Background(), solTxSig)
	require.NoError(t, err)
	require.Equal(t, settlement.PaymentID, settled.ID)
}

func TestSolanaVerifyRejectsShallowTransactionImmediately(t *testing.T) {
	s := newTestStore(t)
	pending := seedPending(t, s, solPayer.String(), "solana", "25.5")

	// 11 slots deep, one short of the requirement: rejected outright,
	// no retry
	chain := &fakeSolanaChain{
		slot: 111,
		view: &clients.SolanaTransactionView{Slot: 100, Tx: transferCheckedTx(t, 25500000, 6)},
	}

	v := newSolanaTestVerifier(t, s, chain)
	_, err := v.Verify(context.Background(), pending.ID, "https://api.mainnet-beta.solana.com", solTxSig)
	require.Error(t, err)
	require.Equal(t, types.CodeInvalidData, types.CodeOf(err))
	require.False(t, types.Retryable(err))

	_, err = s.Pending(context.Background(), pending.ID)
	require.NoError(t, err)
}

func TestSolanaVerifyRejectsFailedTransaction(t *testing.T) {
	s := newTestStore(t)
	pending := seedPending(t, s, solPayer.String(), "solana", "25.5")

	chain := &fakeSolanaChain{
		slot: 120,
		view: &clients.SolanaTransactionView{Slot: 100, Failed: true, Tx: transferCheckedTx(t, 25500000, 6)},
	}

	v := newSolanaTestVerifier(t, s, chain)
	_, err := v.Verify(context.Background(), pending.ID, "https://api.mainnet-beta.solana.com", solTxSig)
	require.Error(t, err)
	require.Equal(t, types.CodeInvalidData, types.CodeOf(err))
}

func TestSolanaVerifyRejectsAmountMismatch(t *testing.T) {
	s := newTestStore(t)
	pending := seedPending(t, s, solPayer.String(), "solana", "25.5")

	chain := &fakeSolanaChain{
		slot: 120,
		view: &clients.SolanaTransactionView{Slot: 100, Tx: transferCheckedTx(t, 25499999, 6)},
	}

	v := newSolanaTestVerifier(t, s, chain)
	_, err := v.Verify(context.Background(), pending.ID, "https://api.mainnet-beta.solana.com", solTxSig)
	require.Error(t, err)
	require.Equal(t, types.CodeInvalidData, types.CodeOf(err))
}

func TestSolanaVerifyMissingTransactionIsRetryable(t *testing.T) {
	s := newTestStore(t)
	pending := seedPending(t, s, solPayer.String(), "solana", "25.5")

	chain := &fakeSolanaChain{txErr: types.Internal("transaction not found")}
	v := newSolanaTestVerifier(t, s, chain)

	_, err := v.Verify(context.Background(), pending.ID, "https://api.mainnet-beta.solana.com", solTxSig)
	require.Error(t, err)
	require.True(t, types.Retryable(err))
}
