package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qs3c/laundry_go_server/config"
	"github.com/qs3c/laundry_go_server/internal/api/handler"
	"github.com/qs3c/laundry_go_server/internal/api/middleware"
	"github.com/qs3c/laundry_go_server/internal/pkg/jwt"
)

type Router struct {
	tariffHandler    *handler.TariffHandler
	pricingHandler   *handler.PricingHandler
	clientHandler    *handler.ClientHandler
	orderHandler     *handler.OrderHandler
	websocketHandler *handler.WebSocketHandler
	cfg              *config.Config
	logger           *zap.Logger
}

func NewRouter(
	tariffHandler *handler.TariffHandler,
	pricingHandler *handler.PricingHandler,
	clientHandler *handler.ClientHandler,
	orderHandler *handler.OrderHandler,
	websocketHandler *handler.WebSocketHandler,
	cfg *config.Config,
	logger *zap.Logger,
) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		tariffHandler:    tariffHandler,
		pricingHandler:   pricingHandler,
		clientHandler:    clientHandler,
		orderHandler:     orderHandler,
		websocketHandler: websocketHandler,
		cfg:              cfg,
		logger:           logger,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Logger(r.logger))
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 价目
		api.GET("/tariff", r.tariffHandler.Get)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			authenticated.POST("/pricing/quote", r.pricingHandler.Quote)

			clients := authenticated.Group("/clients")
			{
				clients.POST("", middleware.RequireRole(jwt.RoleStaff), r.clientHandler.Create)
				clients.GET("/:id/ledger", r.clientHandler.GetLedger)
				clients.GET("/:id/quota", r.clientHandler.GetQuota)
				clients.GET("/:id/orders", r.clientHandler.ListOrders)
			}

			orders := authenticated.Group("/orders")
			{
				orders.POST("", middleware.RequireRole(jwt.RoleStaff), r.orderHandler.Create)
				orders.GET("/:id", r.orderHandler.Get)
				orders.PUT("/:id/status", middleware.RequireRole(jwt.RoleStaff), r.orderHandler.UpdateStatus)
			}
		}
	}

	return engine
}
