package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/qs3c/laundry_go_server/config"
	"github.com/qs3c/laundry_go_server/internal/api"
	"github.com/qs3c/laundry_go_server/internal/api/handler"
	"github.com/qs3c/laundry_go_server/internal/database"
	"github.com/qs3c/laundry_go_server/internal/pkg/cron"
	"github.com/qs3c/laundry_go_server/internal/pkg/jwt"
	"github.com/qs3c/laundry_go_server/internal/pkg/logger"
	"github.com/qs3c/laundry_go_server/internal/pkg/pubsub"
	"github.com/qs3c/laundry_go_server/internal/pkg/queue"
	"github.com/qs3c/laundry_go_server/internal/pkg/ws"
	"github.com/qs3c/laundry_go_server/internal/pricing"
	"github.com/qs3c/laundry_go_server/internal/repository"
	"github.com/qs3c/laundry_go_server/internal/service"
)

func main() {
	// .env 可选，用于本地开发覆盖环境变量
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zlog.Sync()

	// 价目表和积分规则启动时校验，配置错误直接退出
	tariff, err := cfg.Tariff.ToTariff()
	if err != nil {
		zlog.Fatal("invalid tariff", zap.Error(err))
	}
	calc, err := pricing.NewCalculator(tariff)
	if err != nil {
		zlog.Fatal("invalid tariff", zap.Error(err))
	}
	if !tariff.GreedyAllocationOptimal() {
		zlog.Warn("20kg run price exceeds three 6kg runs, machine allocation may not be the cheapest",
			zap.Int64("price_20kg_run", tariff.Price20kgRun),
			zap.Int64("price_6kg_run", tariff.Price6kgRun),
		)
	}
	rules, err := cfg.Loyalty.ToRules()
	if err != nil {
		zlog.Fatal("invalid loyalty rules", zap.Error(err))
	}

	// 初始化数据库
	db, err := database.NewDB(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		zlog.Fatal("failed to connect database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zlog.Fatal("failed to migrate database", zap.Error(err))
	}
	zlog.Info("database connected", zap.String("driver", cfg.Database.Driver))

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		zlog.Fatal("failed to connect redis", zap.Error(err))
	}
	zlog.Info("redis connected")

	// 通知队列，由 worker 消费后发布到频道
	notifyQueue := queue.NewQueue(rdb, cfg.Queue.NotificationQueue)

	wsHub := ws.NewHub(zlog.Named("ws"))

	// 初始化 Repository
	clientRepo := repository.NewClientRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	accrualRepo := repository.NewAccrualRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// 初始化 Service
	subscriptionService := service.NewSubscriptionService(clientRepo, subRepo, calc.Tariff(), zlog)
	loyaltyService := service.NewLoyaltyService(db, ledgerRepo, accrualRepo, rules, cfg, zlog)
	pricingService := service.NewPricingService(calc, clientRepo, subscriptionService)
	clientService := service.NewClientService(db, clientRepo, ledgerRepo, zlog)
	orderService := service.NewOrderService(db, calc, clientRepo, orderRepo, subRepo,
		subscriptionService, loyaltyService, notifyQueue, cfg, zlog)

	// 定时任务：月度额度滚动与账本核对
	cronService := cron.NewService(subscriptionService, loyaltyService, zlog.Named("cron"))
	cronService.Start()
	defer cronService.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 订阅事件频道并推送给在线连接
	subscriber := pubsub.NewSubscriber(rdb, cfg.Queue.NotificationChannel)
	go func() {
		err := subscriber.Subscribe(ctx, func(n *queue.Notification) {
			msg := &ws.Message{Type: n.Event, Data: n}
			if err := wsHub.SendToUser(jwt.RoleClient, n.ClientID, msg); err != nil {
				zlog.Warn("push to client failed", zap.Int64("client_id", n.ClientID), zap.Error(err))
			}
			if err := wsHub.SendToRole(jwt.RoleStaff, msg); err != nil {
				zlog.Warn("push to staff failed", zap.Error(err))
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			zlog.Error("event subscriber stopped", zap.Error(err))
		}
	}()

	// 初始化 Handler
	tariffHandler := handler.NewTariffHandler(pricingService, loyaltyService)
	pricingHandler := handler.NewPricingHandler(pricingService)
	clientHandler := handler.NewClientHandler(clientService, loyaltyService, subscriptionService, orderService)
	orderHandler := handler.NewOrderHandler(orderService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins, zlog.Named("ws"))

	// 初始化 Router
	router := api.NewRouter(
		tariffHandler,
		pricingHandler,
		clientHandler,
		orderHandler,
		websocketHandler,
		cfg,
		zlog.Named("http"),
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router.Setup(),
	}

	go func() {
		zlog.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	zlog.Info("received shutdown signal")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server shutdown failed", zap.Error(err))
	}
	zlog.Info("server stopped")
}
