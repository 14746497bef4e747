package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/laundry_go_server/internal/loyalty"
	"github.com/qs3c/laundry_go_server/internal/model"
	"github.com/qs3c/laundry_go_server/internal/pricing"
	"github.com/qs3c/laundry_go_server/internal/testutil"
)

func TestLoyaltyService_Accrue_StandardMilestone(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	client := testutil.TestClient(t, svc.DB)
	testutil.SetLedger(t, svc.DB, client.ID, 9, "90", 0)
	order := testutil.TestOrder(t, svc.DB, client.ID)

	out, err := svc.Loyalty.Accrue(ctx, client.ID, order.ID, kg("12"), pricing.FormulaRunBased)
	require.NoError(t, err)
	require.True(t, out.Applied)
	assert.Equal(t, 10, out.Ledger.TotalWashes)
	assert.True(t, out.Ledger.TotalWeightKg.Equal(kg("102")))
	assert.Equal(t, 1, out.Ledger.FreeRuns6kgRemaining)
	assert.Equal(t, loyalty.TrackStandard, out.Result.Track)

	// 同一订单再次累计不生效
	again, err := svc.Loyalty.Accrue(ctx, client.ID, order.ID, kg("12"), pricing.FormulaRunBased)
	require.NoError(t, err)
	assert.False(t, again.Applied)
	assert.Nil(t, again.Result)
	assert.Equal(t, 10, again.Ledger.TotalWashes)
	assert.Equal(t, 1, again.Ledger.FreeRuns6kgRemaining)

	var journal []model.LoyaltyAccrual
	require.NoError(t, svc.DB.Where("order_id = ?", order.ID).Find(&journal).Error)
	require.Len(t, journal, 1)
	assert.Equal(t, 1, journal[0].FreeRunsGranted)
	assert.Equal(t, "standard", journal[0].Track)
}

func TestLoyaltyService_Accrue_DetailCrossesTwoMilestones(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	client := testutil.TestClient(t, svc.DB)
	testutil.SetLedger(t, svc.DB, client.ID, 3, "65", 0)
	order := testutil.TestOrder(t, svc.DB, client.ID, testutil.WithBilledFormula("per_kilogram"))

	out, err := svc.Loyalty.Accrue(ctx, client.ID, order.ID, kg("80"), pricing.FormulaPerKilogram)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Ledger.TotalWashes)
	assert.True(t, out.Ledger.TotalWeightKg.Equal(kg("145")))
	assert.Equal(t, 2, out.Ledger.FreeRuns6kgRemaining)
	assert.Equal(t, 2, out.Result.FreeRuns6kgGranted)

	stored, err := svc.Loyalty.GetLedger(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.FreeRuns6kgRemaining)
	assert.Equal(t, int64(1), stored.Version)
}

func TestLoyaltyService_Accrue_Errors(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	client := testutil.TestClient(t, svc.DB)

	_, err := svc.Loyalty.Accrue(ctx, client.ID, 1, kg("0"), pricing.FormulaRunBased)
	assert.ErrorIs(t, err, pricing.ErrInvalidWeight)

	_, err = svc.Loyalty.Accrue(ctx, 9999, 1, kg("5"), pricing.FormulaRunBased)
	assert.ErrorIs(t, err, ErrLedgerNotFound)

	_, err = svc.Loyalty.GetLedger(ctx, 9999)
	assert.ErrorIs(t, err, ErrLedgerNotFound)
}

func TestLoyaltyService_Reconcile(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()

	ctx := context.Background()
	client := testutil.TestClient(t, svc.DB)
	for i := 0; i < 3; i++ {
		order := testutil.TestOrder(t, svc.DB, client.ID)
		_, err := svc.Loyalty.Accrue(ctx, client.ID, order.ID, kg("10"), pricing.FormulaRunBased)
		require.NoError(t, err)
	}

	drift, err := svc.Loyalty.Reconcile(ctx, client.ID, false)
	require.NoError(t, err)
	assert.False(t, drift.WashesDiffer)
	assert.False(t, drift.WeightDiffers)

	// 人为篡改账本
	require.NoError(t, svc.DB.Model(&model.LoyaltyLedger{}).
		Where("client_id = ?", client.ID).
		Update("total_washes", 7).Error)

	drift, err = svc.Loyalty.Reconcile(ctx, client.ID, false)
	require.NoError(t, err)
	assert.True(t, drift.WashesDiffer)
	assert.Equal(t, 7, drift.Ledger.TotalWashes)
	assert.Equal(t, 3, drift.Replayed.TotalWashes)

	_, err = svc.Loyalty.Reconcile(ctx, client.ID, true)
	require.NoError(t, err)

	ledger, err := svc.Loyalty.GetLedger(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, ledger.TotalWashes)
	assert.True(t, ledger.TotalWeightKg.Equal(kg("30")))
}
