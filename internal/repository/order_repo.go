package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/qs3c/laundry_go_server/internal/model"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// WithTx 绑定到事务
func (r *OrderRepository) WithTx(tx *gorm.DB) *OrderRepository {
	return &OrderRepository{db: tx}
}

func (r *OrderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByIDForUpdate 加行锁读取订单
func (r *OrderRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) GetByReference(ctx context.Context, reference string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus 仅当当前状态与 from 一致时更新
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, from string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// ListByClient 分页获取客户订单，status 为空时不过滤
func (r *OrderRepository) ListByClient(ctx context.Context, clientID int64, page, pageSize int, status string) ([]*model.Order, int64, error) {
	var orders []*model.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Order{}).Where("client_id = ?", clientID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("id DESC").Offset(offset).Limit(pageSize).Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}
