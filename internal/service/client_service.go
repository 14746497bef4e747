package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/laundry_go_server/internal/model"
	"github.com/qs3c/laundry_go_server/internal/model/dto"
	"github.com/qs3c/laundry_go_server/internal/pricing"
	"github.com/qs3c/laundry_go_server/internal/repository"
)

var (
	ErrClientNotFound = errors.New("客户不存在")
	ErrPhoneExists    = errors.New("手机号已被使用")
)

type ClientService struct {
	db         *gorm.DB
	clientRepo *repository.ClientRepository
	ledgerRepo *repository.LedgerRepository
	logger     *zap.Logger
}

func NewClientService(
	db *gorm.DB,
	clientRepo *repository.ClientRepository,
	ledgerRepo *repository.LedgerRepository,
	logger *zap.Logger,
) *ClientService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientService{
		db:         db,
		clientRepo: clientRepo,
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// Create 创建客户，同一事务内创建积分账本
func (s *ClientService) Create(ctx context.Context, req *dto.CreateClientRequest) (*model.Client, error) {
	tier, err := pricing.ParseClientTier(req.Tier)
	if err != nil {
		return nil, err
	}

	exists, err := s.clientRepo.ExistsByPhone(ctx, req.Phone)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrPhoneExists
	}

	client := &model.Client{
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
		Tier:  string(tier),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.clientRepo.WithTx(tx).Create(ctx, client); err != nil {
			return err
		}
		return s.ledgerRepo.WithTx(tx).Create(ctx, &model.LoyaltyLedger{
			ClientID:      client.ID,
			TotalWeightKg: decimal.Zero,
		})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrPhoneExists
		}
		return nil, fmt.Errorf("create client: %w", err)
	}

	s.logger.Info("client created", zap.Int64("client_id", client.ID), zap.String("tier", client.Tier))
	return client, nil
}

// Get 获取客户
func (s *ClientService) Get(ctx context.Context, id int64) (*model.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return client, nil
}
