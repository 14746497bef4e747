package cron

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/laundry_go_server/internal/service"
)

type Service struct {
	subscriptionService *service.SubscriptionService
	loyaltyService      *service.LoyaltyService
	logger              *zap.Logger
	stopChan            chan struct{}
	now                 func() time.Time
}

func NewService(
	subscriptionService *service.SubscriptionService,
	loyaltyService *service.LoyaltyService,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		subscriptionService: subscriptionService,
		loyaltyService:      loyaltyService,
		logger:              logger,
		stopChan:            make(chan struct{}),
		now:                 time.Now,
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runMonthlyRollover()
	go s.runDailyDriftCheck()
	s.logger.Info("cron service started (monthly rollover + ledger drift check)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	s.logger.Info("cron service stopped")
}

// nextMonthStart 下个自然月的第一个时刻（UTC）
func nextMonthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

// nextMidnight 次日零点（UTC）
func nextMidnight(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}

// runMonthlyRollover 每月初为会员开出本月额度，启动时先补一次
func (s *Service) runMonthlyRollover() {
	s.rollover()

	now := s.now()
	timer := time.NewTimer(nextMonthStart(now).Sub(now))
	for {
		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			s.rollover()
			now := s.now()
			timer.Reset(nextMonthStart(now).Sub(now))
		}
	}
}

func (s *Service) rollover() {
	if _, err := s.RunNow(); err != nil {
		s.logger.Error("monthly rollover failed", zap.Error(err))
	}
}

// RunNow 立即执行一次月度额度开立
func (s *Service) RunNow() (int, error) {
	if s.subscriptionService == nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	created, err := s.subscriptionService.EnsureCurrentPeriod(ctx)
	if err != nil {
		return created, err
	}
	s.logger.Info("monthly rollover completed", zap.Int("created", created))
	return created, nil
}

// runDailyDriftCheck 每日零点核对积分账本，只报告不修正
func (s *Service) runDailyDriftCheck() {
	now := s.now()
	timer := time.NewTimer(nextMidnight(now).Sub(now))
	for {
		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			s.CheckDrift()
			timer.Reset(24 * time.Hour)
		}
	}
}

// CheckDrift 返回账本与流水不一致的客户数
func (s *Service) CheckDrift() int {
	if s.loyaltyService == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	ids, err := s.loyaltyService.ListLedgerClients(ctx)
	if err != nil {
		s.logger.Error("list ledgers failed", zap.Error(err))
		return 0
	}

	drifted := 0
	for _, id := range ids {
		d, err := s.loyaltyService.Reconcile(ctx, id, false)
		if err != nil {
			s.logger.Warn("reconcile ledger failed", zap.Int64("client_id", id), zap.Error(err))
			continue
		}
		if d.WashesDiffer || d.WeightDiffers {
			drifted++
			s.logger.Warn("ledger drift detected",
				zap.Int64("client_id", id),
				zap.Int("ledger_washes", d.Ledger.TotalWashes),
				zap.Int("journal_washes", d.Replayed.TotalWashes),
				zap.String("ledger_weight_kg", d.Ledger.TotalWeightKg.String()),
				zap.String("journal_weight_kg", d.Replayed.TotalWeightKg.String()),
			)
		}
	}
	return drifted
}
