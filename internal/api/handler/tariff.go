package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/laundry_go_server/internal/model/dto"
	"github.com/qs3c/laundry_go_server/internal/pkg/response"
	"github.com/qs3c/laundry_go_server/internal/service"
)

type TariffHandler struct {
	pricingService *service.PricingService
	loyaltyService *service.LoyaltyService
}

func NewTariffHandler(pricingService *service.PricingService, loyaltyService *service.LoyaltyService) *TariffHandler {
	return &TariffHandler{
		pricingService: pricingService,
		loyaltyService: loyaltyService,
	}
}

// Get 获取当前价目与积分规则
// GET /api/v1/tariff
func (h *TariffHandler) Get(c *gin.Context) {
	rules := h.loyaltyService.Rules()
	response.Success(c, dto.TariffResponse{
		Tariff:                        h.pricingService.Tariff(),
		StandardRewardMilestoneWashes: rules.StandardMilestoneWashes,
		DetailRewardMilestoneKg:       rules.DetailMilestoneKg,
	})
}
