package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/laundry_go_server/internal/pkg/response"
	"github.com/qs3c/laundry_go_server/internal/pricing"
	"github.com/qs3c/laundry_go_server/internal/service"
)

// writeError 将业务错误映射为统一错误码
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pricing.ErrSurplusFormulaRequired):
		response.QuotaError(c, err.Error())
	case pricing.IsValidationError(err):
		response.ParamError(c, err.Error())
	case errors.Is(err, pricing.ErrUnknownFormula):
		response.ParamError(c, "未知的计价方式")
	case errors.Is(err, pricing.ErrUnknownTier):
		response.ParamError(c, "未知的客户等级")
	case errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrStatusTransition),
		errors.Is(err, service.ErrNotPremium):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrClientNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrLedgerNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrPhoneExists):
		response.DuplicateError(c, err.Error())
	case errors.Is(err, service.ErrConcurrentUpdate):
		response.RetryLaterError(c, err.Error())
	default:
		// 交给请求日志中间件记录
		_ = c.Error(err)
		response.ServerError(c, "")
	}
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "无效的ID")
		return 0, false
	}
	return id, true
}
