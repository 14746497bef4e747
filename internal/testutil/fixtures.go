package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/qs3c/laundry_go_server/internal/model"
)

var fixtureSeq atomic.Int64

// TestClient 创建测试客户及其积分账本
func TestClient(t *testing.T, db *gorm.DB, opts ...func(*model.Client)) *model.Client {
	t.Helper()

	n := fixtureSeq.Add(1)
	client := &model.Client{
		Name:  fmt.Sprintf("client_%d", n),
		Phone: fmt.Sprintf("138%08d", n),
		Tier:  "standard",
	}

	for _, opt := range opts {
		opt(client)
	}

	if err := db.Create(client).Error; err != nil {
		t.Fatalf("Failed to create test client: %v", err)
	}

	ledger := &model.LoyaltyLedger{ClientID: client.ID, TotalWeightKg: decimal.Zero}
	if err := db.Create(ledger).Error; err != nil {
		t.Fatalf("Failed to create test ledger: %v", err)
	}

	return client
}

// WithTier 设置客户等级
func WithTier(tier string) func(*model.Client) {
	return func(c *model.Client) {
		c.Tier = tier
	}
}

// WithName 设置客户名
func WithName(name string) func(*model.Client) {
	return func(c *model.Client) {
		c.Name = name
	}
}

// WithPhone 设置手机号
func WithPhone(phone string) func(*model.Client) {
	return func(c *model.Client) {
		c.Phone = phone
	}
}

// SetLedger 直接设置账本累计值
func SetLedger(t *testing.T, db *gorm.DB, clientID int64, washes int, weightKg string, freeRuns6kg int) {
	t.Helper()

	err := db.Model(&model.LoyaltyLedger{}).Where("client_id = ?", clientID).Updates(map[string]interface{}{
		"total_washes":            washes,
		"total_weight_kg":         decimal.RequireFromString(weightKg),
		"free_runs_6kg_remaining": freeRuns6kg,
	}).Error
	if err != nil {
		t.Fatalf("Failed to set test ledger: %v", err)
	}
}

// TestSubscription 创建某月会员额度记录
func TestSubscription(t *testing.T, db *gorm.DB, clientID int64, period time.Time, usedKg string) *model.MonthlySubscription {
	t.Helper()

	sub := &model.MonthlySubscription{
		ClientID: clientID,
		Year:     period.UTC().Year(),
		Month:    int(period.UTC().Month()),
		QuotaKg:  decimal.NewFromInt(40),
		UsedKg:   decimal.RequireFromString(usedKg),
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

// TestOrder 创建测试订单
func TestOrder(t *testing.T, db *gorm.DB, clientID int64, opts ...func(*model.Order)) *model.Order {
	t.Helper()

	order := &model.Order{
		Reference:        ulid.Make().String(),
		ClientID:         clientID,
		ClientTier:       "standard",
		Status:           model.OrderStatusPending,
		WeightKg:         decimal.NewFromInt(10),
		RequestedFormula: "run_based",
		BilledFormula:    "run_based",
		DiscountKind:     "none",
		CoveredKg:        decimal.Zero,
		SurplusKg:        decimal.Zero,
		BasePrice:        4000,
		Subtotal:         4000,
		FinalPrice:       4000,
	}

	for _, opt := range opts {
		opt(order)
	}

	if err := db.Create(order).Error; err != nil {
		t.Fatalf("Failed to create test order: %v", err)
	}

	return order
}

// WithOrderStatus 设置订单状态
func WithOrderStatus(status string) func(*model.Order) {
	return func(o *model.Order) {
		o.Status = status
	}
}

// WithBilledFormula 设置计费公式
func WithBilledFormula(formula string) func(*model.Order) {
	return func(o *model.Order) {
		o.RequestedFormula = formula
		o.BilledFormula = formula
	}
}

// WithWeight 设置订单重量
func WithWeight(weightKg string) func(*model.Order) {
	return func(o *model.Order) {
		o.WeightKg = decimal.RequireFromString(weightKg)
	}
}
