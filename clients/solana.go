package clients

import (
	"context"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/tosynthegeek/stabuse/types"
)

// SolanaTransactionView is a decoded on-chain transaction together with
// the metadata the verifier needs.
type SolanaTransactionView struct {
	Slot   uint64
	Failed bool
	Tx     *solana.Transaction
}

// SolanaChain is the slice of the Solana RPC surface the payment flows
// need.
type SolanaChain interface {
	Slot(ctx context.Context) (uint64, error)
	Transaction(ctx context.Context, sig solana.Signature) (*SolanaTransactionView, error)
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
}

// SolanaDialer opens a connection to a Solana RPC endpoint.
type SolanaDialer func(rpcURL string) (SolanaChain, error)

type solanaClient struct {
	rpc *rpc.Client
}

// DialSolana connects through the solana-go RPC client.
func DialSolana(rpcURL string) (SolanaChain, error) {
	return &solanaClient{rpc: rpc.New(rpcURL)}, nil
}

func (c *solanaClient) Slot(ctx context.Context) (uint64, error) {
	slot, err := c.rpc.GetSlot(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, types.Internal("failed to fetch current slot: %v", err)
	}
	return slot, nil
}

func (c *solanaClient) Transaction(ctx context.Context, sig solana.Signature) (*SolanaTransactionView, error) {
	out, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, types.Internal("failed to fetch transaction %s: %v", sig, err)
	}
	if out == nil || out.Transaction == nil {
		return nil, types.Internal("transaction %s not found", sig)
	}

	raw := out.Transaction.GetBinary()
	tx, err := solana.TransactionFromDecoder(binary.NewBinDecoder(raw))
	if err != nil {
		return nil, types.InvalidData("failed to decode transaction %s: %v", sig, err)
	}

	failed := out.Meta != nil && out.Meta.Err != nil
	return &SolanaTransactionView{Slot: out.Slot, Failed: failed, Tx: tx}, nil
}

func (c *solanaClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, types.Internal("failed to fetch latest blockhash: %v", err)
	}
	return out.Value.Blockhash, nil
}
