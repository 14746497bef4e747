package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlySubscription 会员某个自然月的额度
type MonthlySubscription struct {
	ID        int64           `gorm:"primaryKey" json:"id"`
	ClientID  int64           `gorm:"not null;uniqueIndex:idx_sub_period" json:"client_id"`
	Year      int             `gorm:"not null;uniqueIndex:idx_sub_period" json:"year"`
	Month     int             `gorm:"not null;uniqueIndex:idx_sub_period" json:"month"`
	QuotaKg   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quota_kg"`
	UsedKg    decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"used_kg"`
	Version   int64           `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (MonthlySubscription) TableName() string {
	return "monthly_subscriptions"
}

// RemainingKg 剩余额度，始终由 used 推导
func (s *MonthlySubscription) RemainingKg() decimal.Decimal {
	return decimal.Max(decimal.Zero, s.QuotaKg.Sub(s.UsedKg))
}
