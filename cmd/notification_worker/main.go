package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"betalift_service/internal/notification/app"
	"betalift_service/internal/notification/repository"
	"betalift_service/pkg/config"
	"betalift_service/pkg/database"
	"betalift_service/pkg/logger"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.NotificationWorker, config.EnvConfig.NotificationWorkerLogPath)
	cfg := config.LoadConfig[config.NotificationWorker](config.EnvConfig.NotificationWorker, config.EnvConfig.NotificationWorkerYAMLPath)

	// 1. 連線 Mongo, 失敗直接退出
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s]", uri)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	notifyRepo := repository.NewMongoNotificationRepository(mongo.Database)

	// 2. 連線 RabbitMQ
	rabbitConnInfo := database.Connection{
		ConnectStr:    fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.IP, cfg.RabbitMQ.Port),
		RetryCount:    cfg.RabbitMQ.RetryCount,
		RetryInterval: time.Duration(cfg.RabbitMQ.RetryInterval),
	}
	conn, err := database.ConnectRabbitMQWithRetry(rabbitConnInfo)
	if err != nil {
		log.Fatalf("RabbitMQ 連線失敗: %v", err)
	}
	defer conn.Close()

	// consumer 綁在連線生命週期上, 斷線重連時整組重建
	consumerCtx, consumerCancel := context.WithCancel(ctx)
	startConsumer := func(c *amqp.Connection) {
		ch, err := database.GetRabbitMQChannelWithRetry(c, cfg.RabbitMQ.RetryCount, time.Duration(cfg.RabbitMQ.RetryInterval))
		if err != nil {
			log.Printf("取得 RabbitMQ Channel 失敗: %v", err)
			return
		}
		if err := database.DeclareDurableQueue(ch, cfg.RabbitMQ.NotificationQueue); err != nil {
			log.Printf("Queue Declare failed: %v", err)
			return
		}
		consumer := app.NewConsumer(ch, notifyRepo, cfg.RabbitMQ.NotificationQueue)
		go consumer.StartConsumer(consumerCtx)
	}

	startConsumer(conn)
	database.WatchAndRedial(conn, rabbitConnInfo, startConsumer)

	// 3. 啟動清理排程, 啟動時先掃一次
	sweeper := app.NewSweeper(notifyRepo, cfg.RetentionDays)
	if err := sweeper.Start(ctx); err != nil {
		log.Fatalf("啟動清理排程失敗: %v", err)
	}
	defer sweeper.Stop()

	logger.Log.Info("Notification worker started",
		zap.String("queue", cfg.RabbitMQ.NotificationQueue),
		zap.Int("retention_days", cfg.RetentionDays),
	)

	// 4. 等待停止訊號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Notification worker shutting down")
	consumerCancel()
}
