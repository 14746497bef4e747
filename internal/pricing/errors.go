package pricing

import "errors"

var (
	ErrInvalidWeight          = errors.New("重量必须大于 0")
	ErrWeightTooLarge         = errors.New("重量超出上限")
	ErrWeightPrecision        = errors.New("重量最多保留两位小数")
	ErrBelowMinimumWeight     = errors.New("低于最低计费重量")
	ErrFormulaRequired        = errors.New("请选择计价方式")
	ErrSurplusFormulaRequired = errors.New("超出额度部分需要选择计价方式")
	ErrMissingMonthlyUsage    = errors.New("会员订单缺少本月已用额度")
	ErrInvalidMonthlyUsage    = errors.New("本月已用额度不能为负数")

	// 以下属于配置或程序错误
	ErrUnknownFormula = errors.New("unknown pricing formula")
	ErrUnknownTier    = errors.New("unknown client tier")
	ErrInvalidTariff  = errors.New("invalid tariff")
)

// IsValidationError 判断是否为调用方输入错误
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidWeight) ||
		errors.Is(err, ErrWeightTooLarge) ||
		errors.Is(err, ErrWeightPrecision) ||
		errors.Is(err, ErrBelowMinimumWeight) ||
		errors.Is(err, ErrFormulaRequired) ||
		errors.Is(err, ErrSurplusFormulaRequired) ||
		errors.Is(err, ErrMissingMonthlyUsage) ||
		errors.Is(err, ErrInvalidMonthlyUsage)
}
