package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/laundry_go_server/internal/loyalty"
	"github.com/qs3c/laundry_go_server/internal/model"
	"github.com/qs3c/laundry_go_server/internal/model/dto"
	"github.com/qs3c/laundry_go_server/internal/pkg/queue"
	"github.com/qs3c/laundry_go_server/internal/pricing"
	"github.com/qs3c/laundry_go_server/internal/repository"
	"github.com/qs3c/laundry_go_server/internal/testutil"
)

var deliveryPath = []string{
	model.OrderStatusPickedUp,
	model.OrderStatusWashing,
	model.OrderStatusReady,
	model.OrderStatusOutForDelivery,
	model.OrderStatusDelivered,
}

func deliver(t *testing.T, svc *testServices, orderID int64) *dto.StatusUpdateResult {
	t.Helper()
	var res *dto.StatusUpdateResult
	for _, status := range deliveryPath {
		var err error
		res, err = svc.Orders.UpdateStatus(context.Background(), orderID, &dto.UpdateOrderStatusRequest{Status: status})
		require.NoError(t, err, "transition to %s", status)
		require.True(t, res.Changed)
	}
	return res
}

func TestOrderService_Create_Standard(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()

	client := testutil.TestClient(t, svc.DB)

	detail, err := svc.Orders.Create(context.Background(), &dto.CreateOrderRequest{
		ClientID:     client.ID,
		WeightKg:     kg("26"),
		Formula:      "run_based",
		DiscountKind: "student",
	})
	require.NoError(t, err)

	order := detail.Order
	assert.NotZero(t, order.ID)
	assert.Len(t, order.Reference, 26)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, "run_based", order.BilledFormula)
	assert.Equal(t, "student", order.DiscountKind)
	assert.Equal(t, int64(6000), order.Subtotal)
	assert.Equal(t, int64(600), order.DiscountAmount)
	assert.Equal(t, int64(5400), order.FinalPrice)
	assert.Nil(t, order.SubscriptionID)
	assert.Equal(t, []string{queue.EventOrderCreated}, svc.Notifier.events())

	stored, err := svc.Orders.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Breakdown)
	assert.Equal(t, int64(5400), stored.Breakdown.FinalPrice)
	require.NotNil(t, stored.Breakdown.MachineAllocation)
	assert.Equal(t, 1, stored.Breakdown.MachineAllocation.Count6kg)
}

func TestOrderService_Create_PremiumConsumesQuota(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	client := testutil.TestClient(t, svc.DB, testutil.WithTier("premium"))

	first, err := svc.Orders.Create(ctx, &dto.CreateOrderRequest{
		ClientID: client.ID,
		WeightKg: kg("30"),
		Options:  pricing.Options{Delivery: true, Drying: true},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), first.Order.FinalPrice)
	assert.Equal(t, "", first.Order.BilledFormula)
	assert.True(t, first.Order.CoveredKg.Equal(kg("30")))
	require.NotNil(t, first.Order.SubscriptionID)

	sub, err := svc.SubRepo.GetByPeriod(ctx, client.ID, 2026, 3)
	require.NoError(t, err)
	assert.True(t, sub.UsedKg.Equal(kg("30")))
	assert.Equal(t, sub.ID, *first.Order.SubscriptionID)

	second, err := svc.Orders.Create(ctx, &dto.CreateOrderRequest{
		ClientID: client.ID,
		WeightKg: kg("20"),
		Formula:  "per_kilogram",
	})
	require.NoError(t, err)
	assert.True(t, second.Order.CoveredKg.Equal(kg("10")))
	assert.True(t, second.Order.SurplusKg.Equal(kg("10")))
	assert.Equal(t, "per_kilogram", second.Order.BilledFormula)
	assert.Equal(t, int64(7000), second.Order.FinalPrice)
	assert.True(t, second.Breakdown.PremiumDetail.RemainingQuotaKg.Equal(kg("10")))

	info, err := svc.Subs.GetQuota(ctx, client.ID)
	require.NoError(t, err)
	assert.True(t, info.UsedKg.Equal(kg("40")))
	assert.True(t, info.RemainingQuotaKg.IsZero())

	// 额度用尽后整单按超出计费
	third, err := svc.Orders.Create(ctx, &dto.CreateOrderRequest{
		ClientID: client.ID,
		WeightKg: kg("8"),
		Formula:  "run_based",
	})
	require.NoError(t, err)
	assert.True(t, third.Order.CoveredKg.IsZero())
	assert.True(t, third.Order.SurplusKg.Equal(kg("8")))

	info, err = svc.Subs.GetQuota(ctx, client.ID)
	require.NoError(t, err)
	assert.True(t, info.UsedKg.Equal(kg("40")))
}

func TestOrderService_Create_FailureRollsBack(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	client := testutil.TestClient(t, svc.DB, testutil.WithTier("premium"))

	_, err := svc.Orders.Create(ctx, &dto.CreateOrderRequest{
		ClientID: client.ID,
		WeightKg: kg("50"),
	})
	assert.ErrorIs(t, err, pricing.ErrSurplusFormulaRequired)

	_, err = svc.SubRepo.GetByPeriod(ctx, client.ID, 2026, 3)
	assert.True(t, repository.IsNotFound(err))

	var count int64
	require.NoError(t, svc.DB.Model(&model.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, svc.Notifier.events())
}

func TestOrderService_Create_Errors(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	client := testutil.TestClient(t, svc.DB)

	_, err := svc.Orders.Create(ctx, &dto.CreateOrderRequest{ClientID: 777, WeightKg: kg("10"), Formula: "run_based"})
	assert.ErrorIs(t, err, ErrClientNotFound)

	_, err = svc.Orders.Create(ctx, &dto.CreateOrderRequest{ClientID: client.ID, WeightKg: kg("10"), Formula: "bag"})
	assert.ErrorIs(t, err, pricing.ErrUnknownFormula)

	_, err = svc.Orders.Create(ctx, &dto.CreateOrderRequest{ClientID: client.ID, WeightKg: kg("-1"), Formula: "run_based"})
	assert.ErrorIs(t, err, pricing.ErrInvalidWeight)
}

func TestOrderService_UpdateStatus_DeliveredAccrues(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	client := testutil.TestClient(t, svc.DB)
	testutil.SetLedger(t, svc.DB, client.ID, 9, "90", 0)

	detail, err := svc.Orders.Create(ctx, &dto.CreateOrderRequest{
		ClientID: client.ID,
		WeightKg: kg("12"),
		Formula:  "run_based",
	})
	require.NoError(t, err)

	res := deliver(t, svc, detail.Order.ID)
	assert.Equal(t, model.OrderStatusDelivered, res.Order.Status)
	require.NotNil(t, res.Order.DeliveredAt)
	require.NotNil(t, res.Accrual)
	assert.Equal(t, loyalty.TrackStandard, res.Accrual.Track)
	assert.Equal(t, 1, res.Accrual.FreeRuns6kgGranted)
	assert.Equal(t, 10, res.Ledger.TotalWashes)
	assert.True(t, res.Ledger.TotalWeightKg.Equal(kg("102")))

	events := svc.Notifier.events()
	assert.Equal(t, queue.EventOrderCreated, events[0])
	assert.Equal(t, queue.EventRewardGranted, events[len(events)-1])
	assert.Len(t, events, 1+len(deliveryPath)+1)

	// 重复提交 delivered 不会再次累计
	again, err := svc.Orders.UpdateStatus(ctx, detail.Order.ID, &dto.UpdateOrderStatusRequest{Status: model.OrderStatusDelivered})
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Nil(t, again.Accrual)

	ledger, err := svc.Loyalty.GetLedger(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, ledger.TotalWashes)
	assert.Equal(t, 1, ledger.FreeRuns6kgRemaining)
	assert.Len(t, svc.Notifier.events(), len(events))
}

func TestOrderService_UpdateStatus_VerifiedWeight(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	client := testutil.TestClient(t, svc.DB)
	testutil.SetLedger(t, svc.DB, client.ID, 2, "60", 0)
	order := testutil.TestOrder(t, svc.DB, client.ID,
		testutil.WithBilledFormula("per_kilogram"),
		testutil.WithWeight("9"),
		testutil.WithOrderStatus(model.OrderStatusOutForDelivery),
	)

	verified := kg("11.5")
	res, err := svc.Orders.UpdateStatus(ctx, order.ID, &dto.UpdateOrderStatusRequest{
		Status:           model.OrderStatusDelivered,
		VerifiedWeightKg: &verified,
	})
	require.NoError(t, err)
	assert.Equal(t, loyalty.TrackDetail, res.Accrual.Track)
	assert.Equal(t, 1, res.Accrual.FreeRuns6kgGranted)
	assert.True(t, res.Ledger.TotalWeightKg.Equal(kg("71.5")))

	stored, err := svc.Orders.Get(ctx, order.ID)
	require.NoError(t, err)
	require.True(t, stored.Order.VerifiedWeightKg.Valid)
	assert.True(t, stored.Order.VerifiedWeightKg.Decimal.Equal(verified))
	assert.True(t, stored.Order.WeightKg.Equal(kg("9")))

	zero := kg("0")
	_, err = svc.Orders.UpdateStatus(ctx, order.ID, &dto.UpdateOrderStatusRequest{
		Status:           model.OrderStatusDelivered,
		VerifiedWeightKg: &zero,
	})
	assert.ErrorIs(t, err, pricing.ErrInvalidWeight)
}

func TestOrderService_UpdateStatus_FullyCoveredPremium(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	client := testutil.TestClient(t, svc.DB, testutil.WithTier("premium"))
	testutil.SetLedger(t, svc.DB, client.ID, 9, "69", 0)

	detail, err := svc.Orders.Create(ctx, &dto.CreateOrderRequest{ClientID: client.ID, WeightKg: kg("15")})
	require.NoError(t, err)

	res := deliver(t, svc, detail.Order.ID)
	assert.Equal(t, loyalty.TrackNone, res.Accrual.Track)
	assert.Zero(t, res.Accrual.FreeRuns6kgGranted)
	assert.Equal(t, 10, res.Ledger.TotalWashes)
	assert.True(t, res.Ledger.TotalWeightKg.Equal(kg("84")))
	assert.NotContains(t, svc.Notifier.events(), queue.EventRewardGranted)
}

func TestOrderService_UpdateStatus_Transitions(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	client := testutil.TestClient(t, svc.DB)

	t.Run("same status is a no-op", func(t *testing.T) {
		order := testutil.TestOrder(t, svc.DB, client.ID)
		res, err := svc.Orders.UpdateStatus(ctx, order.ID, &dto.UpdateOrderStatusRequest{Status: model.OrderStatusPending})
		require.NoError(t, err)
		assert.False(t, res.Changed)
		assert.Equal(t, model.OrderStatusPending, res.Order.Status)
	})

	t.Run("skipping steps is rejected", func(t *testing.T) {
		order := testutil.TestOrder(t, svc.DB, client.ID)
		_, err := svc.Orders.UpdateStatus(ctx, order.ID, &dto.UpdateOrderStatusRequest{Status: model.OrderStatusDelivered})
		assert.ErrorIs(t, err, ErrStatusTransition)
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		order := testutil.TestOrder(t, svc.DB, client.ID, testutil.WithOrderStatus(model.OrderStatusWashing))
		res, err := svc.Orders.UpdateStatus(ctx, order.ID, &dto.UpdateOrderStatusRequest{Status: model.OrderStatusCancelled})
		require.NoError(t, err)
		assert.True(t, res.Changed)
		assert.Nil(t, res.Accrual)

		_, err = svc.Orders.UpdateStatus(ctx, order.ID, &dto.UpdateOrderStatusRequest{Status: model.OrderStatusReady})
		assert.ErrorIs(t, err, ErrStatusTransition)
	})

	t.Run("unknown status", func(t *testing.T) {
		order := testutil.TestOrder(t, svc.DB, client.ID)
		_, err := svc.Orders.UpdateStatus(ctx, order.ID, &dto.UpdateOrderStatusRequest{Status: "lost"})
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("order not found", func(t *testing.T) {
		_, err := svc.Orders.UpdateStatus(ctx, 4242, &dto.UpdateOrderStatusRequest{Status: model.OrderStatusPickedUp})
		assert.ErrorIs(t, err, ErrOrderNotFound)

		_, err = svc.Orders.Get(ctx, 4242)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	ledger, err := svc.Loyalty.GetLedger(ctx, client.ID)
	require.NoError(t, err)
	assert.Zero(t, ledger.TotalWashes)
}

func TestOrderService_Create_ConcurrentPremiumOrders(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	client := testutil.TestClient(t, svc.DB, testutil.WithTier("premium"))

	const workers = 6
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		orders []*model.Order
		errs   []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			detail, err := svc.Orders.Create(ctx, &dto.CreateOrderRequest{
				ClientID: client.ID,
				WeightKg: kg("8"),
				Formula:  "per_kilogram",
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			orders = append(orders, detail.Order)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Len(t, orders, workers)

	covered := kg("0")
	for _, o := range orders {
		covered = covered.Add(o.CoveredKg)
	}
	assert.True(t, covered.Equal(kg("40")), "covered total %s", covered)

	info, err := svc.Subs.GetQuota(ctx, client.ID)
	require.NoError(t, err)
	assert.True(t, info.UsedKg.Equal(kg("40")))

	var subs int64
	require.NoError(t, svc.DB.Model(&model.MonthlySubscription{}).Where("client_id = ?", client.ID).Count(&subs).Error)
	assert.Equal(t, int64(1), subs)
}

func TestOrderService_ListByClient(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	client := testutil.TestClient(t, svc.DB)
	for i := 0; i < 3; i++ {
		testutil.TestOrder(t, svc.DB, client.ID)
	}

	orders, total, err := svc.Orders.ListByClient(ctx, client.ID, 0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, orders, 3)

	_, _, err = svc.Orders.ListByClient(ctx, client.ID, 1, 20, "lost")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestOrderService_WeightOutsideStorableRange(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	premium := testutil.TestClient(t, svc.DB, testutil.WithTier("premium"))
	standard := testutil.TestClient(t, svc.DB)

	t.Run("create rejects more than two decimals", func(t *testing.T) {
		_, err := svc.Orders.Create(ctx, &dto.CreateOrderRequest{ClientID: premium.ID, WeightKg: kg("39.995")})
		assert.ErrorIs(t, err, pricing.ErrWeightPrecision)

		// 报价同样拒绝，预估与下单保持一致
		_, err = svc.Pricing.Quote(ctx, &dto.QuoteRequest{ClientID: premium.ID, WeightKg: kg("39.995")})
		assert.ErrorIs(t, err, pricing.ErrWeightPrecision)

		_, err = svc.SubRepo.GetByPeriod(ctx, premium.ID, 2026, 3)
		assert.True(t, repository.IsNotFound(err))
	})

	t.Run("create rejects weights that overflow prices", func(t *testing.T) {
		_, err := svc.Orders.Create(ctx, &dto.CreateOrderRequest{ClientID: standard.ID, WeightKg: kg("1e17"), Formula: "per_kilogram"})
		assert.ErrorIs(t, err, pricing.ErrWeightTooLarge)

		_, err = svc.Pricing.Quote(ctx, &dto.QuoteRequest{ClientID: standard.ID, WeightKg: kg("1e17"), Formula: "run_based"})
		assert.ErrorIs(t, err, pricing.ErrWeightTooLarge)
	})

	var count int64
	require.NoError(t, svc.DB.Model(&model.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, svc.Notifier.events())

	t.Run("verified weight is checked the same way", func(t *testing.T) {
		detail, err := svc.Orders.Create(ctx, &dto.CreateOrderRequest{ClientID: standard.ID, WeightKg: kg("10"), Formula: "run_based"})
		require.NoError(t, err)

		for weight, wantErr := range map[string]error{
			"39.995": pricing.ErrWeightPrecision,
			"1e9":    pricing.ErrWeightTooLarge,
		} {
			w := kg(weight)
			_, err := svc.Orders.UpdateStatus(ctx, detail.Order.ID, &dto.UpdateOrderStatusRequest{
				Status:           model.OrderStatusPickedUp,
				VerifiedWeightKg: &w,
			})
			assert.ErrorIs(t, err, wantErr, weight)
		}

		stored, err := svc.Orders.Get(ctx, detail.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusPending, stored.Order.Status)
		assert.False(t, stored.Order.VerifiedWeightKg.Valid)
	})
}
