package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/laundry_go_server/internal/model"
	"github.com/qs3c/laundry_go_server/internal/testutil"
)

func TestSubscriptionRepository_GetByPeriod(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewSubscriptionRepository(db)
	ctx := context.Background()
	client := testutil.TestClient(t, db, testutil.WithTier("premium"))
	period := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	testutil.TestSubscription(t, db, client.ID, period, "12.5")

	sub, err := repo.GetByPeriod(ctx, client.ID, 2026, 3)
	require.NoError(t, err)
	assert.True(t, sub.UsedKg.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, sub.RemainingKg().Equal(decimal.RequireFromString("27.5")))

	_, err = repo.GetByPeriodForUpdate(ctx, client.ID, 2026, 4)
	assert.True(t, IsNotFound(err))
}

func TestSubscriptionRepository_UniquePeriod(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewSubscriptionRepository(db)
	client := testutil.TestClient(t, db, testutil.WithTier("premium"))
	period := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	testutil.TestSubscription(t, db, client.ID, period, "0")

	err := repo.Create(context.Background(), &model.MonthlySubscription{
		ClientID: client.ID,
		Year:     2026,
		Month:    3,
		QuotaKg:  decimal.NewFromInt(40),
		UsedKg:   decimal.Zero,
	})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestSubscriptionRepository_AddUsed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewSubscriptionRepository(db)
	ctx := context.Background()
	client := testutil.TestClient(t, db, testutil.WithTier("premium"))
	period := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	testutil.TestSubscription(t, db, client.ID, period, "35")

	sub, err := repo.GetByPeriodForUpdate(ctx, client.ID, 2026, 3)
	require.NoError(t, err)
	stale := *sub

	require.NoError(t, repo.AddUsed(ctx, sub, decimal.NewFromInt(5)))
	assert.True(t, sub.UsedKg.Equal(decimal.NewFromInt(40)))
	assert.True(t, sub.RemainingKg().IsZero())

	assert.ErrorIs(t, repo.AddUsed(ctx, &stale, decimal.NewFromInt(5)), ErrVersionConflict)

	found, err := repo.GetByPeriod(ctx, client.ID, 2026, 3)
	require.NoError(t, err)
	assert.True(t, found.UsedKg.Equal(decimal.NewFromInt(40)))
}

func TestSubscriptionRepository_ListClientIDsByPeriod(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewSubscriptionRepository(db)
	c1 := testutil.TestClient(t, db, testutil.WithTier("premium"))
	c2 := testutil.TestClient(t, db, testutil.WithTier("premium"))
	testutil.TestSubscription(t, db, c1.ID, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), "0")
	testutil.TestSubscription(t, db, c2.ID, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), "0")

	ids, err := repo.ListClientIDsByPeriod(context.Background(), 2026, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{c1.ID}, ids)
}
