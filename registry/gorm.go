package registry

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tosynthegeek/stabuse/types"
)

// NetworkRecord is a supported chain.
type NetworkRecord struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	ChainID int64  `gorm:"uniqueIndex;not null" json:"chain_id"`
	Name    string `gorm:"size:255;not null" json:"name"`
	RPCURL  string `gorm:"size:512" json:"rpc_url"`
}

func (NetworkRecord) TableName() string { return "networks" }

// NetworkAsset maps an asset symbol to its contract/mint address and
// decimal precision on one chain. Symbols are stored uppercase.
type NetworkAsset struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	ChainID  int64  `gorm:"not null;uniqueIndex:idx_chain_asset" json:"chain_id"`
	Symbol   string `gorm:"size:32;not null;uniqueIndex:idx_chain_asset" json:"symbol"`
	Address  string `gorm:"size:255;not null" json:"address"`
	Decimals uint8  `gorm:"not null" json:"decimals"`
}

func (NetworkAsset) TableName() string { return "network_assets" }

// MerchantAddress is a merchant's receiving address on one chain.
type MerchantAddress struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	MerchantID uint   `gorm:"not null;uniqueIndex:idx_merchant_chain" json:"merchant_id"`
	ChainID    int64  `gorm:"not null;uniqueIndex:idx_merchant_chain" json:"chain_id"`
	Address    string `gorm:"size:255;not null" json:"address"`
}

func (MerchantAddress) TableName() string { return "merchant_addresses" }

// GormRegistry implements ChainRegistry and MerchantDirectory over the
// networks, network_assets and merchant_addresses tables.
type GormRegistry struct {
	db *gorm.DB
}

func NewGormRegistry(db *gorm.DB) *GormRegistry {
	return &GormRegistry{db: db}
}

func (r *GormRegistry) NetworkAndAssetAddress(ctx context.Context, asset string, chainID int64) (string, string, error) {
	var network NetworkRecord
	err := r.db.WithContext(ctx).Where("chain_id = ?", chainID).First(&network).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", "", types.AssetNotSupported("network with chain id %d is not supported", chainID)
	}
	if err != nil {
		return "", "", types.Database("failed to load network %d: %v", chainID, err)
	}

	record, err := r.asset(ctx, asset, chainID)
	if err != nil {
		return "", "", err
	}
	return network.Name, record.Address, nil
}

func (r *GormRegistry) TokenDecimals(ctx context.Context, asset string, chainID int64) (uint8, error) {
	record, err := r.asset(ctx, asset, chainID)
	if err != nil {
		return 0, err
	}
	return record.Decimals, nil
}

func (r *GormRegistry) MerchantNetworkAddress(ctx context.Context, merchantID uint, chainID int64) (string, error) {
	var addr MerchantAddress
	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND chain_id = ?", merchantID, chainID).
		First(&addr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", types.NotFound("merchant %d has no address on chain %d", merchantID, chainID)
	}
	if err != nil {
		return "", types.Database("failed to load merchant address: %v", err)
	}
	return addr.Address, nil
}

func (r *GormRegistry) asset(ctx context.Context, asset string, chainID int64) (*NetworkAsset, error) {
	var record NetworkAsset
	err := r.db.WithContext(ctx).
		Where("chain_id = ? AND symbol = ?", chainID, strings.ToUpper(asset)).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.AssetNotSupported("asset %s not found on network %d", asset, chainID)
	}
	if err != nil {
		return nil, types.Database("failed to load asset %s: %v", asset, err)
	}
	return &record, nil
}
