package loyalty

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/qs3c/laundry_go_server/internal/pricing"
)

// ErrInvalidRules 积分规则不合法
var ErrInvalidRules = errors.New("invalid loyalty rules")

// Track 奖励通道
type Track string

const (
	TrackStandard Track = "standard" // 按洗涤次数
	TrackDetail   Track = "detail"   // 按累计公斤
	TrackNone     Track = "none"
)

// Rules 里程碑配置
type Rules struct {
	StandardMilestoneWashes int             `json:"standard_milestone_washes"`
	DetailMilestoneKg       decimal.Decimal `json:"detail_milestone_kg"`
}

// DefaultRules 默认规则：每 10 次洗涤或每 70kg 赠送一次 6kg 洗涤
func DefaultRules() Rules {
	return Rules{
		StandardMilestoneWashes: 10,
		DetailMilestoneKg:       decimal.NewFromInt(70),
	}
}

// Validate 校验规则
func (r Rules) Validate() error {
	if r.StandardMilestoneWashes <= 0 {
		return fmt.Errorf("%w: standard milestone must be positive", ErrInvalidRules)
	}
	if !r.DetailMilestoneKg.IsPositive() {
		return fmt.Errorf("%w: detail milestone must be positive", ErrInvalidRules)
	}
	return nil
}

// Counters 客户终身累计
type Counters struct {
	TotalWashes           int             `json:"total_washes"`
	TotalWeightKg         decimal.Decimal `json:"total_weight_kg"`
	FreeRuns6kgRemaining  int             `json:"free_runs_6kg_remaining"`
	FreeRuns20kgRemaining int             `json:"free_runs_20kg_remaining"`
}

// Result 一次累计的结果
type Result struct {
	Before             Counters `json:"before"`
	After              Counters `json:"after"`
	Track              Track    `json:"track"`
	FreeRuns6kgGranted int      `json:"free_runs_6kg_granted"`
}

// TrackFor 账单公式对应的奖励通道
func TrackFor(formula pricing.Formula) Track {
	switch formula {
	case pricing.FormulaRunBased:
		return TrackStandard
	case pricing.FormulaPerKilogram:
		return TrackDetail
	default:
		return TrackNone
	}
}

// Accrue 在 before 基础上累计一单。before 由调用方在同一事务内读出后显式传入。
func (r Rules) Accrue(before Counters, weightKg decimal.Decimal, formula pricing.Formula) Result {
	after := before
	after.TotalWashes++
	after.TotalWeightKg = before.TotalWeightKg.Add(weightKg)

	res := Result{Before: before, Track: TrackFor(formula)}

	switch res.Track {
	case TrackStandard:
		// 只在恰好跨过整数倍的那一次发放
		if after.TotalWashes%r.StandardMilestoneWashes == 0 {
			res.FreeRuns6kgGranted = 1
		}
	case TrackDetail:
		prev := before.TotalWeightKg.Div(r.DetailMilestoneKg).Floor()
		next := after.TotalWeightKg.Div(r.DetailMilestoneKg).Floor()
		if granted := next.Sub(prev).IntPart(); granted > 0 {
			res.FreeRuns6kgGranted = int(granted)
		}
	}

	after.FreeRuns6kgRemaining += res.FreeRuns6kgGranted
	res.After = after
	return res
}

// Replay 按顺序重放一组累计，用于对账
func (r Rules) Replay(entries []Entry) Counters {
	var c Counters
	c.TotalWeightKg = decimal.Zero
	for _, e := range entries {
		c = r.Accrue(c, e.WeightKg, e.Formula).After
	}
	return c
}

// Entry 对账重放的一条记录
type Entry struct {
	WeightKg decimal.Decimal
	Formula  pricing.Formula
}
