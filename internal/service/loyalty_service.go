package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/laundry_go_server/config"
	"github.com/qs3c/laundry_go_server/internal/loyalty"
	"github.com/qs3c/laundry_go_server/internal/model"
	"github.com/qs3c/laundry_go_server/internal/pricing"
	"github.com/qs3c/laundry_go_server/internal/repository"
)

// ErrLedgerNotFound 客户没有积分账本
var ErrLedgerNotFound = errors.New("积分账本不存在")

// AccrualOutcome 一次累计调用的结果。Applied 为 false 表示该订单此前已累计过
type AccrualOutcome struct {
	Ledger  *model.LoyaltyLedger
	Result  *loyalty.Result
	Applied bool
}

type LoyaltyService struct {
	ledgerRepo  *repository.LedgerRepository
	accrualRepo *repository.AccrualRepository
	rules       loyalty.Rules
	tx          *txRunner
	logger      *zap.Logger
}

func NewLoyaltyService(
	db *gorm.DB,
	ledgerRepo *repository.LedgerRepository,
	accrualRepo *repository.AccrualRepository,
	rules loyalty.Rules,
	cfg *config.Config,
	logger *zap.Logger,
) *LoyaltyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoyaltyService{
		ledgerRepo:  ledgerRepo,
		accrualRepo: accrualRepo,
		rules:       rules,
		tx:          newTxRunner(db, cfg.Retry.MaxAttempts, logger),
		logger:      logger,
	}
}

// Rules 当前积分规则
func (s *LoyaltyService) Rules() loyalty.Rules {
	return s.rules
}

// Accrue 独立事务中为订单累计积分，按 orderID 幂等
func (s *LoyaltyService) Accrue(ctx context.Context, clientID, orderID int64, weightKg decimal.Decimal, formula pricing.Formula) (*AccrualOutcome, error) {
	var out *AccrualOutcome
	err := s.tx.run(ctx, "accrue_loyalty", func(tx *gorm.DB) error {
		var err error
		out, err = s.AccrueTx(ctx, tx, clientID, orderID, weightKg, formula)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AccrueTx 在调用方事务内累计，供订单状态变更复用同一事务
func (s *LoyaltyService) AccrueTx(ctx context.Context, tx *gorm.DB, clientID, orderID int64, weightKg decimal.Decimal, formula pricing.Formula) (*AccrualOutcome, error) {
	if !weightKg.IsPositive() {
		return nil, pricing.ErrInvalidWeight
	}

	ledgers := s.ledgerRepo.WithTx(tx)
	accruals := s.accrualRepo.WithTx(tx)

	done, err := accruals.ExistsByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if done {
		ledger, err := ledgers.GetByClientID(ctx, clientID)
		if err != nil {
			return nil, s.ledgerErr(err)
		}
		s.logger.Info("loyalty already accrued", zap.Int64("order_id", orderID))
		return &AccrualOutcome{Ledger: ledger}, nil
	}

	ledger, err := ledgers.GetByClientIDForUpdate(ctx, clientID)
	if err != nil {
		return nil, s.ledgerErr(err)
	}

	res := s.rules.Accrue(countersOf(ledger), weightKg, formula)
	ledger.TotalWashes = res.After.TotalWashes
	ledger.TotalWeightKg = res.After.TotalWeightKg
	ledger.FreeRuns6kgRemaining = res.After.FreeRuns6kgRemaining
	ledger.FreeRuns20kgRemaining = res.After.FreeRuns20kgRemaining

	if err := ledgers.UpdateCounters(ctx, ledger); err != nil {
		return nil, err
	}

	err = accruals.Create(ctx, &model.LoyaltyAccrual{
		OrderID:         orderID,
		ClientID:        clientID,
		Formula:         string(formula),
		Track:           string(res.Track),
		WeightKg:        weightKg,
		WashesAfter:     res.After.TotalWashes,
		WeightAfterKg:   res.After.TotalWeightKg,
		FreeRunsGranted: res.FreeRuns6kgGranted,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("loyalty accrued",
		zap.Int64("client_id", clientID),
		zap.Int64("order_id", orderID),
		zap.String("track", string(res.Track)),
		zap.Int("total_washes", ledger.TotalWashes),
		zap.String("total_weight_kg", ledger.TotalWeightKg.String()),
	)
	if res.FreeRuns6kgGranted > 0 {
		s.logger.Info("free run granted",
			zap.Int64("client_id", clientID),
			zap.Int("granted", res.FreeRuns6kgGranted),
			zap.Int("remaining", ledger.FreeRuns6kgRemaining),
		)
	}

	return &AccrualOutcome{Ledger: ledger, Result: &res, Applied: true}, nil
}

// GetLedger 获取客户积分账本
func (s *LoyaltyService) GetLedger(ctx context.Context, clientID int64) (*model.LoyaltyLedger, error) {
	ledger, err := s.ledgerRepo.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, s.ledgerErr(err)
	}
	return ledger, nil
}

// Drift 账本与流水重放结果的差异
type Drift struct {
	ClientID      int64
	Ledger        loyalty.Counters
	Replayed      loyalty.Counters
	GrantedTotal  int
	WashesDiffer  bool
	WeightDiffers bool
}

// Reconcile 按流水重放客户累计。兑换免费次数不在流水中，只核对洗涤次数与累计重量。
// fix 为 true 时以流水为准修正账本。
func (s *LoyaltyService) Reconcile(ctx context.Context, clientID int64, fix bool) (*Drift, error) {
	var drift *Drift
	err := s.tx.run(ctx, "reconcile_ledger", func(tx *gorm.DB) error {
		ledgers := s.ledgerRepo.WithTx(tx)

		ledger, err := ledgers.GetByClientIDForUpdate(ctx, clientID)
		if err != nil {
			return s.ledgerErr(err)
		}
		entries, err := s.accrualRepo.WithTx(tx).ListByClient(ctx, clientID)
		if err != nil {
			return err
		}

		replay := make([]loyalty.Entry, 0, len(entries))
		granted := 0
		for _, e := range entries {
			replay = append(replay, loyalty.Entry{WeightKg: e.WeightKg, Formula: pricing.Formula(e.Formula)})
			granted += e.FreeRunsGranted
		}
		replayed := s.rules.Replay(replay)

		drift = &Drift{
			ClientID:      clientID,
			Ledger:        countersOf(ledger),
			Replayed:      replayed,
			GrantedTotal:  granted,
			WashesDiffer:  ledger.TotalWashes != replayed.TotalWashes,
			WeightDiffers: !ledger.TotalWeightKg.Equal(replayed.TotalWeightKg),
		}
		if !fix || !(drift.WashesDiffer || drift.WeightDiffers) {
			return nil
		}

		ledger.TotalWashes = replayed.TotalWashes
		ledger.TotalWeightKg = replayed.TotalWeightKg
		if err := ledgers.UpdateCounters(ctx, ledger); err != nil {
			return err
		}
		s.logger.Warn("ledger drift fixed",
			zap.Int64("client_id", clientID),
			zap.Int("washes", replayed.TotalWashes),
			zap.String("weight_kg", replayed.TotalWeightKg.String()),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drift, nil
}

// ListLedgerClients 所有有账本的客户
func (s *LoyaltyService) ListLedgerClients(ctx context.Context) ([]int64, error) {
	return s.ledgerRepo.ListClientIDs(ctx)
}

func (s *LoyaltyService) ledgerErr(err error) error {
	if repository.IsNotFound(err) {
		return ErrLedgerNotFound
	}
	return fmt.Errorf("load ledger: %w", err)
}

func countersOf(l *model.LoyaltyLedger) loyalty.Counters {
	return loyalty.Counters{
		TotalWashes:           l.TotalWashes,
		TotalWeightKg:         l.TotalWeightKg,
		FreeRuns6kgRemaining:  l.FreeRuns6kgRemaining,
		FreeRuns20kgRemaining: l.FreeRuns20kgRemaining,
	}
}
