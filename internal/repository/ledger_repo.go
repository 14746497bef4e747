package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/qs3c/laundry_go_server/internal/model"
)

type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// WithTx 绑定到事务
func (r *LedgerRepository) WithTx(tx *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: tx}
}

func (r *LedgerRepository) Create(ctx context.Context, ledger *model.LoyaltyLedger) error {
	return r.db.WithContext(ctx).Create(ledger).Error
}

func (r *LedgerRepository) GetByClientID(ctx context.Context, clientID int64) (*model.LoyaltyLedger, error) {
	var ledger model.LoyaltyLedger
	err := r.db.WithContext(ctx).Where("client_id = ?", clientID).First(&ledger).Error
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

// GetByClientIDForUpdate 加行锁读取账本
func (r *LedgerRepository) GetByClientIDForUpdate(ctx context.Context, clientID int64) (*model.LoyaltyLedger, error) {
	var ledger model.LoyaltyLedger
	err := forUpdate(r.db.WithContext(ctx)).Where("client_id = ?", clientID).First(&ledger).Error
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

// UpdateCounters 按版本号写回累计值，成功后 ledger.Version 自增
func (r *LedgerRepository) UpdateCounters(ctx context.Context, ledger *model.LoyaltyLedger) error {
	result := r.db.WithContext(ctx).Model(&model.LoyaltyLedger{}).
		Where("id = ? AND version = ?", ledger.ID, ledger.Version).
		Updates(map[string]interface{}{
			"total_washes":             ledger.TotalWashes,
			"total_weight_kg":          ledger.TotalWeightKg,
			"free_runs_6kg_remaining":  ledger.FreeRuns6kgRemaining,
			"free_runs_20kg_remaining": ledger.FreeRuns20kgRemaining,
			"version":                  ledger.Version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	ledger.Version++
	return nil
}

// ListClientIDs 所有有账本的客户
func (r *LedgerRepository) ListClientIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.LoyaltyLedger{}).Order("client_id ASC").Pluck("client_id", &ids).Error
	return ids, err
}
