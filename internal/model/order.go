package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 订单状态
const (
	OrderStatusPending        = "pending"
	OrderStatusPickedUp       = "picked_up"
	OrderStatusWashing        = "washing"
	OrderStatusReady          = "ready"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
)

var orderStatusNext = map[string]string{
	OrderStatusPending:        OrderStatusPickedUp,
	OrderStatusPickedUp:       OrderStatusWashing,
	OrderStatusWashing:        OrderStatusReady,
	OrderStatusReady:          OrderStatusOutForDelivery,
	OrderStatusOutForDelivery: OrderStatusDelivered,
}

// ValidOrderStatus 是否为已知状态
func ValidOrderStatus(status string) bool {
	if status == OrderStatusDelivered || status == OrderStatusCancelled {
		return true
	}
	_, ok := orderStatusNext[status]
	return ok
}

// IsTerminalStatus 终态不可再变更
func IsTerminalStatus(status string) bool {
	return status == OrderStatusDelivered || status == OrderStatusCancelled
}

// CanTransition 状态只能前进一步，或从非终态取消
func CanTransition(from, to string) bool {
	if IsTerminalStatus(from) {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	return orderStatusNext[from] == to
}

type Order struct {
	ID               int64               `gorm:"primaryKey" json:"id"`
	Reference        string              `gorm:"size:26;uniqueIndex;not null" json:"reference"`
	ClientID         int64               `gorm:"not null;index" json:"client_id"`
	ClientTier       string              `gorm:"size:20;not null" json:"client_tier"`
	Status           string              `gorm:"size:20;not null;default:pending;index" json:"status"`
	WeightKg         decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"weight_kg"`
	VerifiedWeightKg decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"verified_weight_kg"`
	RequestedFormula string              `gorm:"size:20" json:"requested_formula"`
	BilledFormula    string              `gorm:"size:20" json:"billed_formula"` // run_based, per_kilogram, 额度全覆盖时为空
	Delivery         bool                `gorm:"default:false" json:"delivery"`
	Drying           bool                `gorm:"default:false" json:"drying"`
	Ironing          bool                `gorm:"default:false" json:"ironing"`
	Express          bool                `gorm:"default:false" json:"express"`
	DiscountKind     string              `gorm:"size:20;default:none" json:"discount_kind"`
	SubscriptionID   *int64              `gorm:"index" json:"subscription_id,omitempty"`
	CoveredKg        decimal.Decimal     `gorm:"type:decimal(10,2);not null;default:0" json:"covered_kg"`
	SurplusKg        decimal.Decimal     `gorm:"type:decimal(10,2);not null;default:0" json:"surplus_kg"`
	BasePrice        int64               `gorm:"not null;default:0" json:"base_price"`
	OptionsPrice     int64               `gorm:"not null;default:0" json:"options_price"`
	Subtotal         int64               `gorm:"not null;default:0" json:"subtotal"`
	DiscountAmount   int64               `gorm:"not null;default:0" json:"discount_amount"`
	FinalPrice       int64               `gorm:"not null;default:0" json:"final_price"`
	Breakdown        string              `gorm:"type:text" json:"-"` // 下单时的完整报价 JSON
	DeliveredAt      *time.Time          `json:"delivered_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// AccrualWeight 累计积分使用的重量：优先取核实重量
func (o *Order) AccrualWeight() decimal.Decimal {
	if o.VerifiedWeightKg.Valid {
		return o.VerifiedWeightKg.Decimal
	}
	return o.WeightKg
}
