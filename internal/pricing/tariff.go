package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// 洗衣机容量（公斤），属于固定业务常量
const (
	LargeRunKg = 20
	SmallRunKg = 6
)

var (
	largeRunKg = decimal.NewFromInt(LargeRunKg)
	smallRunKg = decimal.NewFromInt(SmallRunKg)
)

// Tariff 价目表。金额单位为最小货币单位，按值传递，构造后不再修改。
type Tariff struct {
	Price20kgRun             int64           `json:"price_20kg_run"`
	Price6kgRun              int64           `json:"price_6kg_run"`
	PerKilogramRate          int64           `json:"per_kilogram_rate"`
	MinimumBillableKg        decimal.Decimal `json:"minimum_billable_kg"`
	DeliveryFee              int64           `json:"delivery_fee"`
	DryingRatePerKg          int64           `json:"drying_rate_per_kg"`
	IroningRatePerKg         int64           `json:"ironing_rate_per_kg"`
	ExpressFee               int64           `json:"express_fee"`
	StudentDiscountRate      decimal.Decimal `json:"student_discount_rate"`
	OpeningPromoDiscountRate decimal.Decimal `json:"opening_promo_discount_rate"`
	PremiumMonthlyQuotaKg    decimal.Decimal `json:"premium_monthly_quota_kg"`
}

// DefaultTariff 默认价目表
func DefaultTariff() Tariff {
	return Tariff{
		Price20kgRun:             4000,
		Price6kgRun:              2000,
		PerKilogramRate:          700,
		MinimumBillableKg:        decimal.NewFromInt(6),
		DeliveryFee:              1500,
		DryingRatePerKg:          100,
		IroningRatePerKg:         150,
		ExpressFee:               1000,
		StudentDiscountRate:      decimal.NewFromFloat(0.10),
		OpeningPromoDiscountRate: decimal.NewFromFloat(0.05),
		PremiumMonthlyQuotaKg:    decimal.NewFromInt(40),
	}
}

// Validate 校验价目表
func (t Tariff) Validate() error {
	if t.Price6kgRun <= 0 || t.Price20kgRun <= 0 {
		return fmt.Errorf("%w: run prices must be positive", ErrInvalidTariff)
	}
	if t.Price20kgRun <= t.Price6kgRun {
		return fmt.Errorf("%w: 20kg run must cost more than a 6kg run", ErrInvalidTariff)
	}
	// 20kg 机必须比等容量的 6kg 机组合便宜
	smallRunsPer20 := largeRunKg.Div(smallRunKg).Ceil().IntPart()
	if t.Price20kgRun >= t.Price6kgRun*smallRunsPer20 {
		return fmt.Errorf("%w: 20kg run must be cheaper than %d 6kg runs", ErrInvalidTariff, smallRunsPer20)
	}
	if t.PerKilogramRate <= 0 {
		return fmt.Errorf("%w: per kilogram rate must be positive", ErrInvalidTariff)
	}
	if !t.MinimumBillableKg.IsPositive() {
		return fmt.Errorf("%w: minimum billable weight must be positive", ErrInvalidTariff)
	}
	if t.DeliveryFee < 0 || t.DryingRatePerKg < 0 || t.IroningRatePerKg < 0 || t.ExpressFee < 0 {
		return fmt.Errorf("%w: option fees must not be negative", ErrInvalidTariff)
	}
	for _, rate := range []decimal.Decimal{t.StudentDiscountRate, t.OpeningPromoDiscountRate} {
		if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: discount rate %s out of range [0,1)", ErrInvalidTariff, rate)
		}
	}
	if !t.PremiumMonthlyQuotaKg.IsPositive() {
		return fmt.Errorf("%w: premium monthly quota must be positive", ErrInvalidTariff)
	}
	return nil
}

// GreedyAllocationOptimal 报告 AllocateMachines 的贪心分配是否一定最便宜。
// 一台 20kg 机不贵于能放进 20kg 以内的最多 6kg 机（3 台）时成立；
// 否则（如 7000/2000 下的 33kg）全部改用 6kg 机可能更便宜。
func (t Tariff) GreedyAllocationOptimal() bool {
	smallRunsBelow20 := int64((LargeRunKg - 1) / SmallRunKg)
	return t.Price20kgRun <= t.Price6kgRun*smallRunsBelow20
}

// perKg 按公斤计费，四舍五入到最小货币单位
func perKg(rate int64, kg decimal.Decimal) int64 {
	return decimal.NewFromInt(rate).Mul(kg).Round(0).IntPart()
}
