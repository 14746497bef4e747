package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/qs3c/laundry_go_server/internal/model"
)

type AccrualRepository struct {
	db *gorm.DB
}

func NewAccrualRepository(db *gorm.DB) *AccrualRepository {
	return &AccrualRepository{db: db}
}

// WithTx 绑定到事务
func (r *AccrualRepository) WithTx(tx *gorm.DB) *AccrualRepository {
	return &AccrualRepository{db: tx}
}

func (r *AccrualRepository) Create(ctx context.Context, accrual *model.LoyaltyAccrual) error {
	return r.db.WithContext(ctx).Create(accrual).Error
}

func (r *AccrualRepository) GetByOrderID(ctx context.Context, orderID int64) (*model.LoyaltyAccrual, error) {
	var accrual model.LoyaltyAccrual
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&accrual).Error
	if err != nil {
		return nil, err
	}
	return &accrual, nil
}

func (r *AccrualRepository) ExistsByOrderID(ctx context.Context, orderID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.LoyaltyAccrual{}).Where("order_id = ?", orderID).Count(&count).Error
	return count > 0, err
}

// ListByClient 按写入顺序列出客户流水
func (r *AccrualRepository) ListByClient(ctx context.Context, clientID int64) ([]model.LoyaltyAccrual, error) {
	var accruals []model.LoyaltyAccrual
	err := r.db.WithContext(ctx).Where("client_id = ?", clientID).Order("id ASC").Find(&accruals).Error
	return accruals, err
}
