package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/laundry_go_server/config"
	"github.com/qs3c/laundry_go_server/internal/model"
	"github.com/qs3c/laundry_go_server/internal/model/dto"
	"github.com/qs3c/laundry_go_server/internal/pkg/queue"
	"github.com/qs3c/laundry_go_server/internal/pricing"
	"github.com/qs3c/laundry_go_server/internal/repository"
)

var (
	ErrOrderNotFound    = errors.New("订单不存在")
	ErrInvalidStatus    = errors.New("未知的订单状态")
	ErrStatusTransition = errors.New("订单当前状态不允许此变更")
)

// Notifier 事务提交后的事件出口
type Notifier interface {
	Push(ctx context.Context, msg *queue.Notification) error
}

type OrderService struct {
	calc       *pricing.Calculator
	clientRepo *repository.ClientRepository
	orderRepo  *repository.OrderRepository
	subRepo    *repository.SubscriptionRepository
	subs       *SubscriptionService
	loyalty    *LoyaltyService
	notifier   Notifier
	tx         *txRunner
	logger     *zap.Logger
	now        func() time.Time
}

func NewOrderService(
	db *gorm.DB,
	calc *pricing.Calculator,
	clientRepo *repository.ClientRepository,
	orderRepo *repository.OrderRepository,
	subRepo *repository.SubscriptionRepository,
	subs *SubscriptionService,
	loyaltyService *LoyaltyService,
	notifier Notifier,
	cfg *config.Config,
	logger *zap.Logger,
) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		calc:       calc,
		clientRepo: clientRepo,
		orderRepo:  orderRepo,
		subRepo:    subRepo,
		subs:       subs,
		loyalty:    loyaltyService,
		notifier:   notifier,
		tx:         newTxRunner(db, cfg.Retry.MaxAttempts, logger),
		logger:     logger,
		now:        time.Now,
	}
}

// Create 下单：锁定本月额度、计价、落库、扣减额度在同一事务内完成
func (s *OrderService) Create(ctx context.Context, req *dto.CreateOrderRequest) (*dto.OrderDetail, error) {
	client, err := s.clientRepo.GetByID(ctx, req.ClientID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	premium := client.Tier == string(pricing.TierPremium)
	in := pricingInput{
		WeightKg:     req.WeightKg,
		Formula:      req.Formula,
		Options:      req.Options,
		DiscountKind: req.DiscountKind,
	}

	var (
		order     *model.Order
		breakdown *pricing.Breakdown
	)
	err = s.tx.run(ctx, "create_order", func(tx *gorm.DB) error {
		var (
			sub *model.MonthlySubscription
			err error
		)
		used := decimal.Zero
		if premium {
			year, month := s.subs.CurrentPeriod()
			if sub, err = s.subs.lockOrCreate(ctx, tx, client.ID, year, month); err != nil {
				return err
			}
			used = sub.UsedKg
		}

		preq, err := buildRequest(client, in, used)
		if err != nil {
			return err
		}
		if breakdown, err = s.calc.Compute(preq); err != nil {
			return err
		}

		if order, err = newOrder(client, in, preq, breakdown); err != nil {
			return err
		}
		if sub != nil {
			order.SubscriptionID = &sub.ID
		}
		if err := s.orderRepo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}

		if sub != nil && order.CoveredKg.IsPositive() {
			return s.subRepo.WithTx(tx).AddUsed(ctx, sub, order.CoveredKg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.String("reference", order.Reference),
		zap.Int64("client_id", client.ID),
		zap.String("billed_formula", order.BilledFormula),
		zap.Int64("final_price", order.FinalPrice),
	)
	if order.CoveredKg.IsPositive() {
		s.logger.Info("quota consumed",
			zap.Int64("client_id", client.ID),
			zap.String("covered_kg", order.CoveredKg.String()),
		)
	}
	s.notify(ctx, &queue.Notification{
		Event:      queue.EventOrderCreated,
		ClientID:   order.ClientID,
		OrderID:    order.ID,
		Reference:  order.Reference,
		Status:     order.Status,
		FinalPrice: order.FinalPrice,
	})

	return &dto.OrderDetail{Order: order, Breakdown: breakdown}, nil
}

func newOrder(client *model.Client, in pricingInput, preq pricing.Request, b *pricing.Breakdown) (*model.Order, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal breakdown: %w", err)
	}

	order := &model.Order{
		Reference:        ulid.Make().String(),
		ClientID:         client.ID,
		ClientTier:       client.Tier,
		Status:           model.OrderStatusPending,
		WeightKg:         in.WeightKg,
		RequestedFormula: string(preq.Formula),
		BilledFormula:    string(b.BilledFormula),
		Delivery:         in.Options.Delivery,
		Drying:           in.Options.Drying,
		Ironing:          in.Options.Ironing,
		Express:          in.Options.Express,
		DiscountKind:     string(b.Discount.Kind),
		CoveredKg:        decimal.Zero,
		SurplusKg:        decimal.Zero,
		BasePrice:        b.BasePrice,
		OptionsPrice:     b.OptionsPrice.Total,
		Subtotal:         b.Subtotal,
		DiscountAmount:   b.Discount.Amount,
		FinalPrice:       b.FinalPrice,
		Breakdown:        string(raw),
	}
	if b.PremiumDetail != nil {
		order.CoveredKg = b.PremiumDetail.CoveredKg
		order.SurplusKg = b.PremiumDetail.SurplusKg
	}
	return order, nil
}

// UpdateStatus 变更订单状态。状态未变化时不做任何事；变为 delivered 时在同一事务内累计积分
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, req *dto.UpdateOrderStatusRequest) (*dto.StatusUpdateResult, error) {
	if !model.ValidOrderStatus(req.Status) {
		return nil, ErrInvalidStatus
	}
	if req.VerifiedWeightKg != nil {
		if err := pricing.ValidateWeight(*req.VerifiedWeightKg); err != nil {
			return nil, err
		}
	}

	var (
		result  *dto.StatusUpdateResult
		outcome *AccrualOutcome
	)
	err := s.tx.run(ctx, "update_order_status", func(tx *gorm.DB) error {
		outcome = nil
		orders := s.orderRepo.WithTx(tx)

		order, err := orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrOrderNotFound
			}
			return err
		}

		if order.Status == req.Status {
			result = &dto.StatusUpdateResult{Order: order}
			return nil
		}
		if !model.CanTransition(order.Status, req.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrStatusTransition, order.Status, req.Status)
		}

		fields := map[string]interface{}{"status": req.Status}
		if req.VerifiedWeightKg != nil {
			order.VerifiedWeightKg = decimal.NewNullDecimal(*req.VerifiedWeightKg)
			fields["verified_weight_kg"] = order.VerifiedWeightKg
		}
		if req.Status == model.OrderStatusDelivered {
			now := s.now()
			order.DeliveredAt = &now
			fields["delivered_at"] = now
		}
		if err := orders.UpdateStatus(ctx, order.ID, order.Status, fields); err != nil {
			return err
		}
		order.Status = req.Status

		result = &dto.StatusUpdateResult{Order: order, Changed: true}
		if req.Status != model.OrderStatusDelivered {
			return nil
		}

		outcome, err = s.loyalty.AccrueTx(ctx, tx, order.ClientID, order.ID, order.AccrualWeight(), pricing.Formula(order.BilledFormula))
		if err != nil {
			return err
		}
		result.Ledger = outcome.Ledger
		result.Accrual = outcome.Result
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Changed {
		return result, nil
	}

	order := result.Order
	s.logger.Info("order status changed",
		zap.Int64("order_id", order.ID),
		zap.String("status", order.Status),
	)
	s.notify(ctx, &queue.Notification{
		Event:     queue.EventOrderStatus,
		ClientID:  order.ClientID,
		OrderID:   order.ID,
		Reference: order.Reference,
		Status:    order.Status,
	})
	if outcome != nil && outcome.Result != nil && outcome.Result.FreeRuns6kgGranted > 0 {
		s.notify(ctx, &queue.Notification{
			Event:           queue.EventRewardGranted,
			ClientID:        order.ClientID,
			OrderID:         order.ID,
			Reference:       order.Reference,
			FreeRunsGranted: outcome.Result.FreeRuns6kgGranted,
		})
	}

	return result, nil
}

// Get 获取订单及下单时的报价明细
func (s *OrderService) Get(ctx context.Context, orderID int64) (*dto.OrderDetail, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	detail := &dto.OrderDetail{Order: order}
	if order.Breakdown != "" {
		var b pricing.Breakdown
		if err := json.Unmarshal([]byte(order.Breakdown), &b); err != nil {
			return nil, fmt.Errorf("decode breakdown of order %d: %w", order.ID, err)
		}
		detail.Breakdown = &b
	}
	return detail, nil
}

// ListByClient 分页获取客户订单
func (s *OrderService) ListByClient(ctx context.Context, clientID int64, page, pageSize int, status string) ([]*model.Order, int64, error) {
	if status != "" && !model.ValidOrderStatus(status) {
		return nil, 0, ErrInvalidStatus
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.orderRepo.ListByClient(ctx, clientID, page, pageSize, status)
}

// notify 通知失败不影响已提交的业务
func (s *OrderService) notify(ctx context.Context, msg *queue.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Push(ctx, msg); err != nil {
		s.logger.Warn("push notification failed",
			zap.String("event", msg.Event),
			zap.Int64("order_id", msg.OrderID),
			zap.Error(err),
		)
	}
}
