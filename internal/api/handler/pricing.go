package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/laundry_go_server/internal/api/middleware"
	"github.com/qs3c/laundry_go_server/internal/model/dto"
	"github.com/qs3c/laundry_go_server/internal/pkg/response"
	"github.com/qs3c/laundry_go_server/internal/service"
)

type PricingHandler struct {
	pricingService *service.PricingService
}

func NewPricingHandler(pricingService *service.PricingService) *PricingHandler {
	return &PricingHandler{pricingService: pricingService}
}

// Quote 报价预估
// POST /api/v1/pricing/quote
func (h *PricingHandler) Quote(c *gin.Context) {
	var req dto.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if !middleware.CanAccessClient(c, req.ClientID) {
		response.PermissionError(c, "")
		return
	}

	breakdown, err := h.pricingService.Quote(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, breakdown)
}
