package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/qs3c/laundry_go_server/config"
	"github.com/qs3c/laundry_go_server/internal/database"
	"github.com/qs3c/laundry_go_server/internal/pkg/logger"
	"github.com/qs3c/laundry_go_server/internal/pkg/pubsub"
	"github.com/qs3c/laundry_go_server/internal/pkg/queue"
)

func main() {
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

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		zlog.Fatal("failed to connect redis", zap.Error(err))
	}
	zlog.Info("redis connected")

	// 初始化 Queue 和 Pub/Sub
	notifyQueue := queue.NewQueue(rdb, cfg.Queue.NotificationQueue)
	publisher := pubsub.NewPublisher(rdb, cfg.Queue.NotificationChannel)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		zlog.Info("received shutdown signal")
		cancel()
	}()

	workers := cfg.Queue.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	zlog.Info("worker started", zap.Int("max_workers", workers))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			wlog := zlog.With(zap.Int("worker", workerID))
			for {
				select {
				case <-ctx.Done():
					wlog.Info("worker shutting down")
					return
				default:
					// 从队列获取通知
					msg, err := notifyQueue.Pop(ctx, 5*time.Second)
					if err != nil {
						if ctx.Err() != nil {
							return
						}
						wlog.Warn("failed to pop notification", zap.Error(err))
						continue
					}

					if msg == nil {
						continue // 超时，继续等待
					}

					if err := publisher.Publish(ctx, msg); err != nil {
						wlog.Error("failed to publish notification",
							zap.String("event", msg.Event),
							zap.Int64("order_id", msg.OrderID),
							zap.Error(err),
						)
						continue
					}
					wlog.Debug("notification published",
						zap.String("event", msg.Event),
						zap.Int64("client_id", msg.ClientID),
						zap.Int64("order_id", msg.OrderID),
					)
				}
			}
		}(i)
	}

	wg.Wait()
	zlog.Info("worker shutdown complete")
}
