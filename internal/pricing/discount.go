package pricing

import "github.com/shopspring/decimal"

// Discount 折扣明细，同一订单最多一种折扣
type Discount struct {
	Kind   DiscountKind    `json:"kind"`
	Rate   decimal.Decimal `json:"rate"`
	Amount int64           `json:"amount"`
	Reason *string         `json:"reason"`
}

// DiscountRate 折扣率，未知类型按无折扣
func (t Tariff) DiscountRate(kind DiscountKind) (DiscountKind, decimal.Decimal) {
	switch kind {
	case DiscountStudent:
		return kind, t.StudentDiscountRate
	case DiscountOpeningPromo:
		return kind, t.OpeningPromoDiscountRate
	default:
		return DiscountNone, decimal.Zero
	}
}

// ApplyDiscount 对小计应用折扣，折扣金额四舍五入到最小货币单位
func (t Tariff) ApplyDiscount(subtotal int64, kind DiscountKind) (Discount, int64) {
	kind, rate := t.DiscountRate(kind)
	d := Discount{Kind: kind, Rate: rate}
	if kind != DiscountNone {
		reason := string(kind)
		d.Reason = &reason
		d.Amount = decimal.NewFromInt(subtotal).Mul(rate).Round(0).IntPart()
	}
	return d, subtotal - d.Amount
}
