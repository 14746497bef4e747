package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/laundry_go_server/internal/api/middleware"
	"github.com/qs3c/laundry_go_server/internal/model/dto"
	"github.com/qs3c/laundry_go_server/internal/pkg/response"
	"github.com/qs3c/laundry_go_server/internal/service"
)

type ClientHandler struct {
	clientService       *service.ClientService
	loyaltyService      *service.LoyaltyService
	subscriptionService *service.SubscriptionService
	orderService        *service.OrderService
}

func NewClientHandler(
	clientService *service.ClientService,
	loyaltyService *service.LoyaltyService,
	subscriptionService *service.SubscriptionService,
	orderService *service.OrderService,
) *ClientHandler {
	return &ClientHandler{
		clientService:       clientService,
		loyaltyService:      loyaltyService,
		subscriptionService: subscriptionService,
		orderService:        orderService,
	}
}

// Create 创建客户
// POST /api/v1/clients
func (h *ClientHandler) Create(c *gin.Context) {
	var req dto.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	client, err := h.clientService.Create(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "创建成功", client)
}

// clientID 解析路径中的客户 ID 并检查访问权限
func (h *ClientHandler) clientID(c *gin.Context) (int64, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return 0, false
	}
	if !middleware.CanAccessClient(c, id) {
		response.PermissionError(c, "")
		return 0, false
	}
	return id, true
}

// GetLedger 获取积分账本
// GET /api/v1/clients/:id/ledger
func (h *ClientHandler) GetLedger(c *gin.Context) {
	id, ok := h.clientID(c)
	if !ok {
		return
	}

	ledger, err := h.loyaltyService.GetLedger(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, ledger)
}

// GetQuota 获取会员本月额度
// GET /api/v1/clients/:id/quota
func (h *ClientHandler) GetQuota(c *gin.Context) {
	id, ok := h.clientID(c)
	if !ok {
		return
	}

	info, err := h.subscriptionService.GetQuota(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, info)
}

// ListOrders 获取客户订单列表
// GET /api/v1/clients/:id/orders
func (h *ClientHandler) ListOrders(c *gin.Context) {
	id, ok := h.clientID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	status := c.Query("status")

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items, total, err := h.orderService.ListByClient(c.Request.Context(), id, page, pageSize, status)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}
