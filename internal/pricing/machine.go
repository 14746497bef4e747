package pricing

import "github.com/shopspring/decimal"

// MachineAllocation 洗衣机使用组合
type MachineAllocation struct {
	Count20kg int   `json:"count_20kg"`
	Count6kg  int   `json:"count_6kg"`
	Price     int64 `json:"price"`
}

// CapacityKg 组合的总容量
func (a MachineAllocation) CapacityKg() int {
	return a.Count20kg*LargeRunKg + a.Count6kg*SmallRunKg
}

// AllocateMachines 为给定重量选择最便宜的 20kg/6kg 组合。
// 余量用 6kg 机与多开一台 20kg 机比较，价格相同时选 20kg 机（总台数更少）。
// 调用方保证 weightKg > 0。
func (t Tariff) AllocateMachines(weightKg decimal.Decimal) MachineAllocation {
	fullRuns := weightKg.Div(largeRunKg).Floor()
	remainder := weightKg.Sub(fullRuns.Mul(largeRunKg))

	alloc := MachineAllocation{Count20kg: int(fullRuns.IntPart())}
	if remainder.IsPositive() {
		smallRuns := remainder.Div(smallRunKg).Ceil().IntPart()
		if smallRuns*t.Price6kgRun < t.Price20kgRun {
			alloc.Count6kg = int(smallRuns)
		} else {
			alloc.Count20kg++
		}
	}

	alloc.Price = int64(alloc.Count20kg)*t.Price20kgRun + int64(alloc.Count6kg)*t.Price6kgRun
	return alloc
}
