package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoyaltyLedger 客户终身积分账本，每个客户一行
type LoyaltyLedger struct {
	ID                    int64           `gorm:"primaryKey" json:"id"`
	ClientID              int64           `gorm:"not null;uniqueIndex" json:"client_id"`
	TotalWashes           int             `gorm:"not null;default:0" json:"total_washes"`
	TotalWeightKg         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_weight_kg"`
	FreeRuns6kgRemaining  int             `gorm:"column:free_runs_6kg_remaining;not null;default:0" json:"free_runs_6kg_remaining"`
	FreeRuns20kgRemaining int             `gorm:"column:free_runs_20kg_remaining;not null;default:0" json:"free_runs_20kg_remaining"`
	Version               int64           `gorm:"not null;default:0" json:"-"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func (LoyaltyLedger) TableName() string {
	return "loyalty_ledgers"
}

// LoyaltyAccrual 积分累计流水，order_id 唯一保证每单只累计一次
type LoyaltyAccrual struct {
	ID              int64           `gorm:"primaryKey" json:"id"`
	OrderID         int64           `gorm:"not null;uniqueIndex" json:"order_id"`
	ClientID        int64           `gorm:"not null;index" json:"client_id"`
	Formula         string          `gorm:"size:20" json:"formula"`
	Track           string          `gorm:"size:20" json:"track"` // standard, detail, none
	WeightKg        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"weight_kg"`
	WashesAfter     int             `gorm:"not null" json:"washes_after"`
	WeightAfterKg   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"weight_after_kg"`
	FreeRunsGranted int             `gorm:"not null;default:0" json:"free_runs_granted"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (LoyaltyAccrual) TableName() string {
	return "loyalty_accruals"
}
