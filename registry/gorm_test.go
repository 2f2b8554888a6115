package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tosynthegeek/stabuse/types"
)

func newTestRegistry(t *testing.T) *GormRegistry {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&NetworkRecord{}, &NetworkAsset{}, &MerchantAddress{}))

	require.NoError(t, db.Create(&NetworkRecord{ChainID: 137, Name: "polygon", RPCURL: "https://polygon-rpc.com"}).Error)
	require.NoError(t, db.Create(&NetworkAsset{
		ChainID:  137,
		Symbol:   "USDC",
		Address:  "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
		Decimals: 6,
	}).Error)
	require.NoError(t, db.Create(&MerchantAddress{
		MerchantID: 1,
		ChainID:    137,
		Address:    "0x2222222222222222222222222222222222222222",
	}).Error)

	return NewGormRegistry(db)
}

func TestNetworkAndAssetAddress(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	network, address, err := r.NetworkAndAssetAddress(ctx, "usdc", 137)
	require.NoError(t, err)
	require.Equal(t, "polygon", network)
	require.Equal(t, "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", address)

	_, _, err = r.NetworkAndAssetAddress(ctx, "USDC", 1)
	require.Equal(t, types.CodeAssetNotSupported, types.CodeOf(err))

	_, _, err = r.NetworkAndAssetAddress(ctx, "DAI", 137)
	require.Equal(t, types.CodeAssetNotSupported, types.CodeOf(err))
}

func TestTokenDecimals(t *testing.T) {
	r := newTestRegistry(t)

	decimals, err := r.TokenDecimals(context.Background(), "USDC", 137)
	require.NoError(t, err)
	require.Equal(t, uint8(6), decimals)
}

func TestMerchantNetworkAddress(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	addr, err := r.MerchantNetworkAddress(ctx, 1, 137)
	require.NoError(t, err)
	require.Equal(t, "0x2222222222222222222222222222222222222222", addr)

	_, err = r.MerchantNetworkAddress(ctx, 2, 137)
	require.Equal(t, types.CodeNotFound, types.CodeOf(err))
}
