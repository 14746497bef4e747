package dto

import (
	"github.com/shopspring/decimal"

	"github.com/qs3c/laundry_go_server/internal/loyalty"
	"github.com/qs3c/laundry_go_server/internal/model"
	"github.com/qs3c/laundry_go_server/internal/pricing"
)

// CreateClientRequest 创建客户
type CreateClientRequest struct {
	Name  string  `json:"name" binding:"required,max=100"`
	Phone string  `json:"phone" binding:"required,max=30"`
	Email *string `json:"email" binding:"omitempty,email"`
	Tier  string  `json:"tier" binding:"required,oneof=standard premium"`
}

// QuotaInfo 会员本月额度
type QuotaInfo struct {
	Year             int             `json:"year"`
	Month            int             `json:"month"`
	MonthlyQuotaKg   decimal.Decimal `json:"monthly_quota_kg"`
	UsedKg           decimal.Decimal `json:"used_kg"`
	RemainingQuotaKg decimal.Decimal `json:"remaining_quota_kg"`
}

// OrderDetail 订单及其报价明细
type OrderDetail struct {
	Order     *model.Order       `json:"order"`
	Breakdown *pricing.Breakdown `json:"breakdown,omitempty"`
}

// StatusUpdateResult 状态更新结果
type StatusUpdateResult struct {
	Order   *model.Order         `json:"order"`
	Changed bool                 `json:"changed"`
	Ledger  *model.LoyaltyLedger `json:"ledger,omitempty"`
	Accrual *loyalty.Result      `json:"accrual,omitempty"`
}
