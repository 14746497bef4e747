package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/qs3c/laundry_go_server/internal/model"
)

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// WithTx 绑定到事务
func (r *ClientRepository) WithTx(tx *gorm.DB) *ClientRepository {
	return &ClientRepository{db: tx}
}

func (r *ClientRepository) Create(ctx context.Context, client *model.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

func (r *ClientRepository) GetByID(ctx context.Context, id int64) (*model.Client, error) {
	var client model.Client
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *ClientRepository) GetByPhone(ctx context.Context, phone string) (*model.Client, error) {
	var client model.Client
	err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *ClientRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Client{}).Where("phone = ?", phone).Count(&count).Error
	return count > 0, err
}

// ListIDsByTier 按等级列出客户 ID
func (r *ClientRepository) ListIDsByTier(ctx context.Context, tier string) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.Client{}).
		Where("tier = ?", tier).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *ClientRepository) UpdateTier(ctx context.Context, id int64, tier string) error {
	return r.db.WithContext(ctx).Model(&model.Client{}).Where("id = ?", id).Update("tier", tier).Error
}
