package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/laundry_go_server/internal/api/middleware"
	"github.com/qs3c/laundry_go_server/internal/model/dto"
	"github.com/qs3c/laundry_go_server/internal/pkg/response"
	"github.com/qs3c/laundry_go_server/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// Create 下单
// POST /api/v1/orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	detail, err := h.orderService.Create(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "下单成功", detail)
}

// Get 获取订单详情
// GET /api/v1/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	detail, err := h.orderService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	// 客户看不到别人的订单，按不存在处理
	if !middleware.CanAccessClient(c, detail.Order.ClientID) {
		response.NotFoundError(c, service.ErrOrderNotFound.Error())
		return
	}

	response.Success(c, detail)
}

// UpdateStatus 更新订单状态
// PUT /api/v1/orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	result, err := h.orderService.UpdateStatus(c.Request.Context(), id, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}
