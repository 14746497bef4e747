package dto

import (
	"github.com/shopspring/decimal"

	"github.com/qs3c/laundry_go_server/internal/pricing"
)

// QuoteRequest 报价预估请求
type QuoteRequest struct {
	ClientID     int64           `json:"client_id" binding:"required"`
	WeightKg     decimal.Decimal `json:"weight_kg"`
	Formula      string          `json:"formula"`
	Options      pricing.Options `json:"options"`
	DiscountKind string          `json:"discount_kind"`
}

// CreateOrderRequest 下单请求，字段与报价请求一致，保证预估与账单一致
type CreateOrderRequest struct {
	ClientID     int64           `json:"client_id" binding:"required"`
	WeightKg     decimal.Decimal `json:"weight_kg"`
	Formula      string          `json:"formula"`
	Options      pricing.Options `json:"options"`
	DiscountKind string          `json:"discount_kind"`
}

// UpdateOrderStatusRequest 更新订单状态
type UpdateOrderStatusRequest struct {
	Status           string           `json:"status" binding:"required"`
	VerifiedWeightKg *decimal.Decimal `json:"verified_weight_kg"`
}

// TariffResponse 当前价目与积分规则
type TariffResponse struct {
	Tariff                        pricing.Tariff  `json:"tariff"`
	StandardRewardMilestoneWashes int             `json:"standard_reward_milestone_washes"`
	DetailRewardMilestoneKg       decimal.Decimal `json:"detail_reward_milestone_kg"`
}
