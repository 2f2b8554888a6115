package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tosynthegeek/stabuse/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	s := New(db)
	require.NoError(t, s.Migrate())
	return s
}

func seedPending(t *testing.T, s *Store) *types.PendingPayment {
	t.Helper()
	p := &types.PendingPayment{
		MerchantID: 7,
		Sender:     "0x1111111111111111111111111111111111111111",
		Amount:     decimal.RequireFromString("25.5"),
		Asset:      "USDC",
		Network:    "ethereum",
		WebhookURL: "https://merchant.example/hooks/7",
	}
	require.NoError(t, s.CreatePending(context.Background(), p))
	require.NotZero(t, p.ID)
	return p
}

func TestPendingNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Pending(context.Background(), 999)
	require.Error(t, err)
	require.Equal(t, types.CodeNotFound, types.CodeOf(err))
}

func TestSettleMovesPendingToSettled(t *testing.T) {
	s := newTestStore(t)
	pending := seedPending(t, s)
	ctx := context.Background()

	settled, err := s.Settle(ctx, pending.ID, "0xabc123")
	require.NoError(t, err)
	require.Equal(t, pending.MerchantID, settled.MerchantID)
	require.Equal(t, pending.Sender, settled.Sender)
	require.True(t, pending.Amount.Equal(settled.Amount))
	require.Equal(t, "0xabc123", settled.TxHash)
	require.Equal(t, pending.Asset, settled.Asset)
	require.Equal(t, pending.Network, settled.Network)

	_, err = s.Pending(ctx, pending.ID)
	require.Equal(t, types.CodeNotFound, types.CodeOf(err))

	got, err := s.PaymentByTxHash(ctx, "0xabc123")
	require.NoError(t, err)
	require.Equal(t, settled.ID, got.ID)
}

func TestSettleRejectsDuplicateTxHash(t *testing.T) {
	s := newTestStore(t)
	first := seedPending(t, s)
	second := seedPending(t, s)
	ctx := context.Background()

	_, err := s.Settle(ctx, first.ID, "0xsame")
	require.NoError(t, err)

	_, err = s.Settle(ctx, second.ID, "0xsame")
	require.Error(t, err)
	require.Equal(t, types.CodeInvalidData, types.CodeOf(err))

	// the aborted settlement must leave the second pending row intact
	p, err := s.Pending(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, p.ID)
}

func TestSettleMissingPending(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Settle(context.Background(), 42, "0xdead")
	require.Error(t, err)
	require.Equal(t, types.CodeNotFound, types.CodeOf(err))
}
