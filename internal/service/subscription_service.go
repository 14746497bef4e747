package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/laundry_go_server/internal/model"
	"github.com/qs3c/laundry_go_server/internal/model/dto"
	"github.com/qs3c/laundry_go_server/internal/pricing"
	"github.com/qs3c/laundry_go_server/internal/repository"
)

// ErrNotPremium 非会员客户没有月度额度
var ErrNotPremium = errors.New("该客户不是会员")

type SubscriptionService struct {
	clientRepo *repository.ClientRepository
	subRepo    *repository.SubscriptionRepository
	quotaKg    decimal.Decimal
	logger     *zap.Logger
	now        func() time.Time
}

func NewSubscriptionService(
	clientRepo *repository.ClientRepository,
	subRepo *repository.SubscriptionRepository,
	tariff pricing.Tariff,
	logger *zap.Logger,
) *SubscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{
		clientRepo: clientRepo,
		subRepo:    subRepo,
		quotaKg:    tariff.PremiumMonthlyQuotaKg,
		logger:     logger,
		now:        time.Now,
	}
}

// CurrentPeriod 当前自然月，按 UTC 计算，与定时任务的月初时刻一致
func (s *SubscriptionService) CurrentPeriod() (year, month int) {
	now := s.now().UTC()
	return now.Year(), int(now.Month())
}

// UsedKg 本月已用额度，只读；本月尚无记录时为 0
func (s *SubscriptionService) UsedKg(ctx context.Context, clientID int64) (decimal.Decimal, error) {
	year, month := s.CurrentPeriod()
	sub, err := s.subRepo.GetByPeriod(ctx, clientID, year, month)
	if err != nil {
		if repository.IsNotFound(err) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return sub.UsedKg, nil
}

// GetQuota 会员本月额度信息
func (s *SubscriptionService) GetQuota(ctx context.Context, clientID int64) (*dto.QuotaInfo, error) {
	client, err := s.clientRepo.GetByID(ctx, clientID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	if client.Tier != string(pricing.TierPremium) {
		return nil, ErrNotPremium
	}

	year, month := s.CurrentPeriod()
	info := &dto.QuotaInfo{
		Year:           year,
		Month:          month,
		MonthlyQuotaKg: s.quotaKg,
		UsedKg:         decimal.Zero,
	}

	sub, err := s.subRepo.GetByPeriod(ctx, clientID, year, month)
	switch {
	case err == nil:
		info.MonthlyQuotaKg = sub.QuotaKg
		info.UsedKg = sub.UsedKg
	case !repository.IsNotFound(err):
		return nil, err
	}

	info.RemainingQuotaKg = pricing.RemainingQuota(info.MonthlyQuotaKg, info.UsedKg)
	return info, nil
}

// lockOrCreate 在事务内锁定本月额度行，不存在时创建。
// 并发创建撞上唯一索引时返回 ErrDuplicatedKey，由外层重试。
func (s *SubscriptionService) lockOrCreate(ctx context.Context, tx *gorm.DB, clientID int64, year, month int) (*model.MonthlySubscription, error) {
	repo := s.subRepo.WithTx(tx)

	sub, err := repo.GetByPeriodForUpdate(ctx, clientID, year, month)
	if err == nil {
		return sub, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	sub = &model.MonthlySubscription{
		ClientID: clientID,
		Year:     year,
		Month:    month,
		QuotaKg:  s.quotaKg,
		UsedKg:   decimal.Zero,
	}
	if err := repo.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("monthly subscription opened",
		zap.Int64("client_id", clientID),
		zap.Int("year", year),
		zap.Int("month", month),
	)
	return sub, nil
}

// EnsureCurrentPeriod 为所有会员创建本月额度记录，返回新建数量
func (s *SubscriptionService) EnsureCurrentPeriod(ctx context.Context) (int, error) {
	year, month := s.CurrentPeriod()

	ids, err := s.clientRepo.ListIDsByTier(ctx, string(pricing.TierPremium))
	if err != nil {
		return 0, fmt.Errorf("list premium clients: %w", err)
	}
	existing, err := s.subRepo.ListClientIDsByPeriod(ctx, year, month)
	if err != nil {
		return 0, fmt.Errorf("list subscriptions: %w", err)
	}

	opened := make(map[int64]struct{}, len(existing))
	for _, id := range existing {
		opened[id] = struct{}{}
	}

	created := 0
	for _, id := range ids {
		if _, ok := opened[id]; ok {
			continue
		}
		err := s.subRepo.Create(ctx, &model.MonthlySubscription{
			ClientID: id,
			Year:     year,
			Month:    month,
			QuotaKg:  s.quotaKg,
			UsedKg:   decimal.Zero,
		})
		if err != nil {
			// 下单时已懒创建
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return created, fmt.Errorf("open subscription for client %d: %w", id, err)
		}
		created++
	}

	s.logger.Info("monthly rollover done",
		zap.Int("year", year),
		zap.Int("month", month),
		zap.Int("created", created),
	)
	return created, nil
}
