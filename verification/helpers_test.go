package verification

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tosynthegeek/stabuse/store"
	"github.com/tosynthegeek/stabuse/types"
)

type fakeAssets struct {
	network  string
	address  string
	decimals uint8
}

func (f fakeAssets) NetworkAndAssetAddress(ctx context.Context, asset string, chainID int64) (string, string, error) {
	return f.network, f.address, nil
}

func (f fakeAssets) TokenDecimals(ctx context.Context, asset string, chainID int64) (uint8, error) {
	return f.decimals, nil
}

type fakeMerchants struct {
	address string
}

func (f fakeMerchants) MerchantNetworkAddress(ctx context.Context, merchantID uint, chainID int64) (string, error) {
	return f.address, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	s := store.New(db)
	require.NoError(t, s.Migrate())
	return s
}

func seedPending(t *testing.T, s *store.Store, sender, network, amount string) *types.PendingPayment {
	t.Helper()
	p := &types.PendingPayment{
		MerchantID: 1,
		Sender:     sender,
		Amount:     decimal.RequireFromString(amount),
		Asset:      "USDC",
		Network:    network,
		WebhookURL: "https://hooks.example/payments/1/abcd",
	}
	require.NoError(t, s.CreatePending(context.Background(), p))
	return p
}
