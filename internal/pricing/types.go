package pricing

import "fmt"

// Formula 计价方式
type Formula string

const (
	// FormulaNone 未选择计价方式（会员额度全覆盖的订单也记为此值）
	FormulaNone        Formula = ""
	FormulaRunBased    Formula = "run_based"
	FormulaPerKilogram Formula = "per_kilogram"
)

// Valid 是否为可计价的方式
func (f Formula) Valid() bool {
	switch f {
	case FormulaRunBased, FormulaPerKilogram:
		return true
	}
	return false
}

// ParseFormula 解析计价方式，空串返回 FormulaNone
func ParseFormula(s string) (Formula, error) {
	f := Formula(s)
	if f == FormulaNone || f.Valid() {
		return f, nil
	}
	return FormulaNone, fmt.Errorf("%w: %q", ErrUnknownFormula, s)
}

// ClientTier 客户等级
type ClientTier string

const (
	TierStandard ClientTier = "standard"
	TierPremium  ClientTier = "premium"
)

// ParseClientTier 解析客户等级
func ParseClientTier(s string) (ClientTier, error) {
	switch t := ClientTier(s); t {
	case TierStandard, TierPremium:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
}

// DiscountKind 折扣类型
type DiscountKind string

const (
	DiscountNone         DiscountKind = "none"
	DiscountStudent      DiscountKind = "student"
	DiscountOpeningPromo DiscountKind = "opening_promo"
)

// ParseDiscountKind 解析折扣类型，无法识别的值一律按无折扣处理
func ParseDiscountKind(s string) DiscountKind {
	switch k := DiscountKind(s); k {
	case DiscountStudent, DiscountOpeningPromo:
		return k
	}
	return DiscountNone
}

// Option 附加服务
type Option string

const (
	OptionDelivery Option = "delivery"
	OptionDrying   Option = "drying"
	OptionIroning  Option = "ironing"
	OptionExpress  Option = "express"
)

// Options 客户勾选的附加服务
type Options struct {
	Delivery bool `json:"delivery"`
	Drying   bool `json:"drying"`
	Express  bool `json:"express"`
	Ironing  bool `json:"ironing"`
}

// requested 按固定顺序返回勾选项
func (o Options) requested() []Option {
	var out []Option
	if o.Delivery {
		out = append(out, OptionDelivery)
	}
	if o.Drying {
		out = append(out, OptionDrying)
	}
	if o.Ironing {
		out = append(out, OptionIroning)
	}
	if o.Express {
		out = append(out, OptionExpress)
	}
	return out
}
