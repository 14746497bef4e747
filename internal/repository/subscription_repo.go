package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/qs3c/laundry_go_server/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// WithTx 绑定到事务
func (r *SubscriptionRepository) WithTx(tx *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: tx}
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *model.MonthlySubscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *SubscriptionRepository) GetByPeriod(ctx context.Context, clientID int64, year, month int) (*model.MonthlySubscription, error) {
	var sub model.MonthlySubscription
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND year = ? AND month = ?", clientID, year, month).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetByPeriodForUpdate 加行锁读取某月额度
func (r *SubscriptionRepository) GetByPeriodForUpdate(ctx context.Context, clientID int64, year, month int) (*model.MonthlySubscription, error) {
	var sub model.MonthlySubscription
	err := forUpdate(r.db.WithContext(ctx)).
		Where("client_id = ? AND year = ? AND month = ?", clientID, year, month).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// AddUsed 按版本号累加已用额度
func (r *SubscriptionRepository) AddUsed(ctx context.Context, sub *model.MonthlySubscription, kg decimal.Decimal) error {
	used := sub.UsedKg.Add(kg)
	result := r.db.WithContext(ctx).Model(&model.MonthlySubscription{}).
		Where("id = ? AND version = ?", sub.ID, sub.Version).
		Updates(map[string]interface{}{
			"used_kg": used,
			"version": sub.Version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	sub.UsedKg = used
	sub.Version++
	return nil
}

// ListClientIDsByPeriod 某月已有额度记录的客户
func (r *SubscriptionRepository) ListClientIDsByPeriod(ctx context.Context, year, month int) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.MonthlySubscription{}).
		Where("year = ? AND month = ?", year, month).
		Pluck("client_id", &ids).Error
	return ids, err
}
