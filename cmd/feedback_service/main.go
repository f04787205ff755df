package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"betalift_service/internal/feedback/app"
	"betalift_service/internal/feedback/repository"
	"betalift_service/internal/feedback/router"
	"betalift_service/pkg/config"
	"betalift_service/pkg/database"
	"betalift_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.FeedbackService, config.EnvConfig.FeedbackServiceLogPath)
	cfg := config.LoadConfig[config.Feedback](config.EnvConfig.FeedbackService, config.EnvConfig.FeedbackServiceYAMLPath)

	// 1. 連線 PostgreSQL
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		cfg.PostgreSQL.Host, cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Database, cfg.PostgreSQL.Port)
	db, err := database.NewPGConnection(database.Connection{
		ConnectStr: dsn,

		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to postgreSQL database after retries",
			zap.String("address", fmt.Sprintf("[%s]", dsn)),
			zap.Error(err),
		)
	}

	// 自動遷移資料表
	feedbackRepo := repository.NewFeedbackRepo(db)
	if err := feedbackRepo.AutoMigrate(); err != nil {
		log.Fatalf("資料表遷移失敗: %v", err)
	}

	// 2. 連線 RabbitMQ, 回饋通知用
	rabbitURL := fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.IP, cfg.RabbitMQ.Port)
	conn, err := database.ConnectRabbitMQWithRetry(database.Connection{
		ConnectStr:    rabbitURL,
		RetryCount:    cfg.RabbitMQ.RetryCount,
		RetryInterval: time.Duration(cfg.RabbitMQ.RetryInterval),
	})
	if err != nil {
		log.Fatalf("RabbitMQ 連線失敗: %v", err)
	}
	defer conn.Close()

	rabbitChannel, err := database.GetRabbitMQChannelWithRetry(conn, cfg.RabbitMQ.RetryCount, time.Duration(cfg.RabbitMQ.RetryInterval))
	if err != nil {
		log.Fatalf("取得 RabbitMQ Channel 失敗: %v", err)
	}
	defer rabbitChannel.Close()

	if err := database.DeclareDurableQueue(rabbitChannel, cfg.RabbitMQ.NotificationQueue); err != nil {
		log.Fatalf("Queue Declare failed: %v", err)
	}
	rabbit := database.NewRabbitRepository(rabbitChannel)

	// 3. 初始化 UseCase / Handler
	uc := app.NewFeedbackUseCase(feedbackRepo, rabbit, cfg.RabbitMQ.NotificationQueue)
	handler := app.NewFeedbackHandler(uc)

	// 4. 啟動 Fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.FeedbackServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r, handler)

	port := ":" + cfg.Port
	log.Printf("Feedback Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
