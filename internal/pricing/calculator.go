package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Request 计价请求
type Request struct {
	WeightKg     decimal.Decimal
	Formula      Formula
	Options      Options
	ClientTier   ClientTier
	DiscountKind DiscountKind
	// MonthlyUsedKg 本单之前的本月已用额度，仅会员必填
	MonthlyUsedKg *decimal.Decimal
}

// PremiumDetail 会员额度明细
type PremiumDetail struct {
	QuotaSplit
	SurplusFormula    Formula   `json:"surplus_formula"`
	FormulaForced     bool      `json:"formula_forced"`
	AvailableFormulas []Formula `json:"available_formulas"`
}

// Breakdown 报价明细
type Breakdown struct {
	ClientTier        ClientTier         `json:"client_tier"`
	WeightKg          decimal.Decimal    `json:"weight_kg"`
	BilledFormula     Formula            `json:"billed_formula"`
	BilledWeightKg    decimal.Decimal    `json:"billed_weight_kg"`
	BasePrice         int64              `json:"base_price"`
	OptionsPrice      OptionCharges      `json:"options_price"`
	Subtotal          int64              `json:"subtotal"`
	Discount          Discount           `json:"discount"`
	FinalPrice        int64              `json:"final_price"`
	MachineAllocation *MachineAllocation `json:"machine_allocation,omitempty"`
	PremiumDetail     *PremiumDetail     `json:"premium_detail,omitempty"`
}

// Calculator 报价计算器。无状态，可被预估与下单两处并发调用，结果完全一致。
type Calculator struct {
	tariff Tariff
}

// NewCalculator 创建计算器，价目表不合法时直接返回错误
func NewCalculator(tariff Tariff) (*Calculator, error) {
	if err := tariff.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{tariff: tariff}, nil
}

// Tariff 当前价目表
func (c *Calculator) Tariff() Tariff {
	return c.tariff
}

// MaxWeightKg 单笔重量上限，与 decimal(10,2) 重量列一致，同时保证金额不会溢出 int64
var MaxWeightKg = decimal.RequireFromString("99999999.99")

// weightScale 重量列保留的小数位
const weightScale = 2

// ValidateWeight 校验重量：大于 0、不超过上限、最多两位小数。
// 超出精度的重量入库后会被舍入，与报价不一致，因此直接拒绝。
func ValidateWeight(weightKg decimal.Decimal) error {
	if !weightKg.IsPositive() {
		return ErrInvalidWeight
	}
	if weightKg.GreaterThan(MaxWeightKg) {
		return fmt.Errorf("%w: %s kg > %s kg", ErrWeightTooLarge, weightKg, MaxWeightKg)
	}
	if !weightKg.Equal(weightKg.Round(weightScale)) {
		return fmt.Errorf("%w: %s", ErrWeightPrecision, weightKg)
	}
	return nil
}

// Compute 计算报价
func (c *Calculator) Compute(req Request) (*Breakdown, error) {
	if err := ValidateWeight(req.WeightKg); err != nil {
		return nil, err
	}
	if req.Formula != FormulaNone && !req.Formula.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormula, string(req.Formula))
	}

	var (
		b   *Breakdown
		err error
	)
	switch req.ClientTier {
	case TierStandard:
		b, err = c.computeStandard(req)
	case TierPremium:
		b, err = c.computePremium(req)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTier, string(req.ClientTier))
	}
	if err != nil {
		return nil, err
	}

	b.Discount, b.FinalPrice = c.tariff.ApplyDiscount(b.Subtotal, req.DiscountKind)
	return b, nil
}

func (c *Calculator) computeStandard(req Request) (*Breakdown, error) {
	if req.Formula == FormulaNone {
		return nil, ErrFormulaRequired
	}
	if req.WeightKg.LessThan(c.tariff.MinimumBillableKg) {
		return nil, fmt.Errorf("%w: %s kg < %s kg", ErrBelowMinimumWeight, req.WeightKg, c.tariff.MinimumBillableKg)
	}

	q, err := c.tariff.PriceFormula(req.Formula, req.WeightKg, req.Options)
	if err != nil {
		return nil, err
	}
	b := fromQuote(q)
	b.ClientTier = TierStandard
	b.WeightKg = req.WeightKg
	return b, nil
}

func (c *Calculator) computePremium(req Request) (*Breakdown, error) {
	if req.MonthlyUsedKg == nil {
		return nil, ErrMissingMonthlyUsage
	}
	if req.MonthlyUsedKg.IsNegative() {
		return nil, ErrInvalidMonthlyUsage
	}

	split := AllocateQuota(req.WeightKg, *req.MonthlyUsedKg, c.tariff.PremiumMonthlyQuotaKg)
	formula, forced, err := c.tariff.ResolveSurplusFormula(split, req.Formula)
	if err != nil {
		return nil, err
	}

	var b *Breakdown
	if split.IsFullyCovered {
		// 额度内所有服务都包含，只有加急另收
		b = &Breakdown{BilledFormula: FormulaNone, BilledWeightKg: decimal.Zero}
		for _, o := range req.Options.requested() {
			if o == OptionExpress {
				b.OptionsPrice.Express = c.tariff.ExpressFee
				continue
			}
			b.OptionsPrice.Included = append(b.OptionsPrice.Included, o)
		}
		b.OptionsPrice.sum()
		b.Subtotal = b.OptionsPrice.Total
	} else {
		q, err := c.tariff.PriceFormula(formula, split.SurplusKg, req.Options)
		if err != nil {
			return nil, err
		}
		b = fromQuote(q)
	}

	b.ClientTier = TierPremium
	b.WeightKg = req.WeightKg
	b.PremiumDetail = &PremiumDetail{
		QuotaSplit:        split,
		SurplusFormula:    formula,
		FormulaForced:     forced,
		AvailableFormulas: c.tariff.SurplusFormulas(split),
	}
	return b, nil
}

func fromQuote(q FormulaQuote) *Breakdown {
	return &Breakdown{
		BilledFormula:     q.Formula,
		BilledWeightKg:    q.BilledWeightKg,
		BasePrice:         q.BasePrice,
		OptionsPrice:      q.Options,
		Subtotal:          q.Subtotal,
		MachineAllocation: q.Machines,
	}
}
