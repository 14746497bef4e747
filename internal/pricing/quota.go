package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// QuotaSplit 会员额度拆分结果。RemainingQuotaKg 是本单之前的剩余额度。
type QuotaSplit struct {
	MonthlyQuotaKg   decimal.Decimal `json:"monthly_quota_kg"`
	UsedKg           decimal.Decimal `json:"used_kg"`
	RemainingQuotaKg decimal.Decimal `json:"remaining_quota_kg"`
	CoveredKg        decimal.Decimal `json:"covered_kg"`
	SurplusKg        decimal.Decimal `json:"surplus_kg"`
	IsFullyCovered   bool            `json:"is_fully_covered"`
}

// RemainingQuota 剩余额度，始终由已用量推算
func RemainingQuota(quotaKg, usedKg decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, quotaKg.Sub(usedKg))
}

// AllocateQuota 将订单重量拆成额度内（免费）与超出两部分
func AllocateQuota(weightKg, monthlyUsedKg, quotaKg decimal.Decimal) QuotaSplit {
	remaining := RemainingQuota(quotaKg, monthlyUsedKg)
	covered := decimal.Min(weightKg, remaining)
	surplus := weightKg.Sub(covered)

	return QuotaSplit{
		MonthlyQuotaKg:   quotaKg,
		UsedKg:           monthlyUsedKg,
		RemainingQuotaKg: remaining,
		CoveredKg:        covered,
		SurplusKg:        surplus,
		IsFullyCovered:   surplus.IsZero(),
	}
}

// SurplusFormulas 超出部分可用的计价方式。
// 全覆盖时为空；超出量低于最低计费重量时只能按公斤计费。
func (t Tariff) SurplusFormulas(split QuotaSplit) []Formula {
	switch {
	case split.IsFullyCovered:
		return nil
	case split.SurplusKg.LessThan(t.MinimumBillableKg):
		return []Formula{FormulaPerKilogram}
	default:
		return []Formula{FormulaRunBased, FormulaPerKilogram}
	}
}

// ResolveSurplusFormula 确定超出部分的计价方式，返回值 forced 表示是否为强制指定
func (t Tariff) ResolveSurplusFormula(split QuotaSplit, requested Formula) (formula Formula, forced bool, err error) {
	available := t.SurplusFormulas(split)
	switch len(available) {
	case 0:
		return FormulaNone, false, nil
	case 1:
		return available[0], true, nil
	}

	if requested == FormulaNone {
		return FormulaNone, false, ErrSurplusFormulaRequired
	}
	for _, f := range available {
		if f == requested {
			return requested, false, nil
		}
	}
	return FormulaNone, false, fmt.Errorf("%w: %q", ErrUnknownFormula, string(requested))
}
