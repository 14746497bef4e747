package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/laundry_go_server/config"
	"github.com/qs3c/laundry_go_server/internal/loyalty"
	"github.com/qs3c/laundry_go_server/internal/pkg/queue"
	"github.com/qs3c/laundry_go_server/internal/pricing"
	"github.com/qs3c/laundry_go_server/internal/repository"
	"github.com/qs3c/laundry_go_server/internal/testutil"
)

var testPeriod = time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []*queue.Notification
}

func (n *recordingNotifier) Push(_ context.Context, msg *queue.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return nil
}

func (n *recordingNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	events := make([]string, 0, len(n.msgs))
	for _, m := range n.msgs {
		events = append(events, m.Event)
	}
	return events
}

type testServices struct {
	DB       *gorm.DB
	Clients  *ClientService
	Subs     *SubscriptionService
	Pricing  *PricingService
	Loyalty  *LoyaltyService
	Orders   *OrderService
	Notifier *recordingNotifier
	SubRepo  *repository.SubscriptionRepository
}

func setupServices(t *testing.T) (*testServices, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := &config.Config{Retry: config.RetryConfig{MaxAttempts: 3}}

	calc, err := pricing.NewCalculator(pricing.DefaultTariff())
	require.NoError(t, err)

	clientRepo := repository.NewClientRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	accrualRepo := repository.NewAccrualRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	notifier := &recordingNotifier{}
	subs := NewSubscriptionService(clientRepo, subRepo, calc.Tariff(), nil)
	subs.now = func() time.Time { return testPeriod }
	loyaltyService := NewLoyaltyService(db, ledgerRepo, accrualRepo, loyalty.DefaultRules(), cfg, nil)
	orders := NewOrderService(db, calc, clientRepo, orderRepo, subRepo, subs, loyaltyService, notifier, cfg, nil)
	orders.now = func() time.Time { return testPeriod }

	svc := &testServices{
		DB:       db,
		Clients:  NewClientService(db, clientRepo, ledgerRepo, nil),
		Subs:     subs,
		Pricing:  NewPricingService(calc, clientRepo, subs),
		Loyalty:  loyaltyService,
		Orders:   orders,
		Notifier: notifier,
		SubRepo:  subRepo,
	}

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}
	return svc, cleanup
}

func kg(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
