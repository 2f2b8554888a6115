// Package store owns the pending and settled payment rows. Settlement
// is a single transaction that deletes the pending row and inserts the
// settled one; the unique tx_hash index rejects a second settlement of
// the same transaction even under concurrent redelivery.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tosynthegeek/stabuse/types"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the payment tables. Used by tests and standalone
// setups; the daemon migrates through config.InitDB.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&types.PendingPayment{}, &types.Payment{})
}

// CreatePending persists a new pending payment and fills in its id.
func (s *Store) CreatePending(ctx context.Context, p *types.PendingPayment) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return types.Database("failed to insert pending payment: %v", err)
	}
	return nil
}

// Pending loads a pending payment by id. A missing row is NotFound:
// either the payment never existed or it has already settled, since
// settlement deletes the row.
func (s *Store) Pending(ctx context.Context, id uint) (*types.PendingPayment, error) {
	var p types.PendingPayment
	err := s.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NotFound("pending payment %d not found", id)
	}
	if err != nil {
		return nil, types.Database("failed to load pending payment %d: %v", id, err)
	}
	return &p, nil
}

// Settle atomically converts a pending payment into a settled one.
// Both the delete and the insert commit or neither does, so a crash
// mid-settlement can never lose or duplicate a payment. A duplicate
// tx hash aborts the whole transaction.
func (s *Store) Settle(ctx context.Context, pendingID uint, txHash string) (*types.Payment, error) {
	var settled *types.Payment

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending types.PendingPayment
		if err := tx.First(&pending, pendingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.NotFound("pending payment %d not found", pendingID)
			}
			return types.Database("failed to load pending payment %d: %v", pendingID, err)
		}

		if err := tx.Delete(&types.PendingPayment{}, pendingID).Error; err != nil {
			return types.Database("failed to delete pending payment %d: %v", pendingID, err)
		}

		settled = &types.Payment{
			MerchantID: pending.MerchantID,
			Sender:     pending.Sender,
			Amount:     pending.Amount,
			TxHash:     txHash,
			Asset:      pending.Asset,
			Network:    pending.Network,
		}
		if err := tx.Create(settled).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return types.InvalidData("transaction %s is already settled", txHash)
			}
			return types.Database("failed to insert payment: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

// PaymentByTxHash looks up a settled payment, used by the status
// endpoint to distinguish "settled" from "unknown".
func (s *Store) PaymentByTxHash(ctx context.Context, txHash string) (*types.Payment, error) {
	var p types.Payment
	err := s.db.WithContext(ctx).Where("tx_hash = ?", txHash).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NotFound("no settled payment with tx hash %s", txHash)
	}
	if err != nil {
		return nil, types.Database("failed to load payment by tx hash: %v", err)
	}
	return &p, nil
}
