package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OptionCharges 附加服务明细。
// Included 为计价方式已包含的服务，Ignored 为不符合条件而未计费的勾选项。
type OptionCharges struct {
	Delivery int64    `json:"delivery"`
	Drying   int64    `json:"drying"`
	Ironing  int64    `json:"ironing"`
	Express  int64    `json:"express"`
	Total    int64    `json:"total"`
	Included []Option `json:"included,omitempty"`
	Ignored  []Option `json:"ignored,omitempty"`
}

func (o *OptionCharges) sum() {
	o.Total = o.Delivery + o.Drying + o.Ironing + o.Express
}

// FormulaQuote 单一计价方式下的报价
type FormulaQuote struct {
	Formula        Formula            `json:"formula"`
	BilledWeightKg decimal.Decimal    `json:"billed_weight_kg"`
	BasePrice      int64              `json:"base_price"`
	Options        OptionCharges      `json:"options"`
	Subtotal       int64              `json:"subtotal"`
	Machines       *MachineAllocation `json:"machines,omitempty"`
}

// PriceFormula 按指定计价方式为 weightKg 报价
func (t Tariff) PriceFormula(formula Formula, weightKg decimal.Decimal, opts Options) (FormulaQuote, error) {
	var q FormulaQuote
	switch formula {
	case FormulaRunBased:
		q = t.priceRunBased(weightKg, opts)
	case FormulaPerKilogram:
		q = t.pricePerKilogram(weightKg, opts)
	default:
		return FormulaQuote{}, fmt.Errorf("%w: %q", ErrUnknownFormula, string(formula))
	}
	q.Options.sum()
	q.Subtotal = q.BasePrice + q.Options.Total
	return q, nil
}

// priceRunBased 按机计费；烘干、熨烫只在选择配送时计费，熨烫还须同时选择烘干
func (t Tariff) priceRunBased(weightKg decimal.Decimal, opts Options) FormulaQuote {
	alloc := t.AllocateMachines(weightKg)
	q := FormulaQuote{
		Formula:        FormulaRunBased,
		BilledWeightKg: weightKg,
		BasePrice:      alloc.Price,
		Machines:       &alloc,
	}

	if opts.Delivery {
		q.Options.Delivery = t.DeliveryFee
		if opts.Drying {
			q.Options.Drying = perKg(t.DryingRatePerKg, weightKg)
			if opts.Ironing {
				q.Options.Ironing = perKg(t.IroningRatePerKg, weightKg)
			}
		} else if opts.Ironing {
			q.Options.Ignored = append(q.Options.Ignored, OptionIroning)
		}
	} else {
		if opts.Drying {
			q.Options.Ignored = append(q.Options.Ignored, OptionDrying)
		}
		if opts.Ironing {
			q.Options.Ignored = append(q.Options.Ignored, OptionIroning)
		}
	}

	if opts.Express {
		q.Options.Express = t.ExpressFee
	}
	return q
}

// pricePerKilogram 按公斤计费，取件、洗、烘、熨、配送全部包含，仅加急另收
func (t Tariff) pricePerKilogram(weightKg decimal.Decimal, opts Options) FormulaQuote {
	billed := decimal.Max(weightKg, t.MinimumBillableKg)
	q := FormulaQuote{
		Formula:        FormulaPerKilogram,
		BilledWeightKg: billed,
		BasePrice:      perKg(t.PerKilogramRate, billed),
	}

	for _, o := range opts.requested() {
		if o == OptionExpress {
			q.Options.Express = t.ExpressFee
			continue
		}
		q.Options.Included = append(q.Options.Included, o)
	}
	return q
}
