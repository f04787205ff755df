package app

import (
	"context"
	"encoding/json"
	"log"

	"betalift_service/internal/notification/domain"
	"betalift_service/internal/notification/repository"

	"github.com/google/uuid"
	"github.com/streadway/amqp" // RabbitMQ 客戶端
)

// Consumer 定義通知消費者，將所有必要的依賴注入進來
type Consumer struct {
	rabbitChannel *amqp.Channel
	notifyRepo    repository.NotificationRepository
	queueName     string
}

// NewConsumer 建構 Consumer 實例
func NewConsumer(rabbitChannel *amqp.Channel, notifyRepo repository.NotificationRepository, queueName string) *Consumer {
	return &Consumer{
		rabbitChannel: rabbitChannel,
		notifyRepo:    notifyRepo,
		queueName:     queueName,
	}
}

// StartConsumer 開始消費訊息, 一筆一筆落地
func (c *Consumer) StartConsumer(ctx context.Context) {
	msgs, err := c.rabbitChannel.Consume(
		c.queueName, // queue name
		"",          // consumer tag，留空由系統分配
		false,       // autoAck 為 false，使用手動確認
		false,       // exclusive
		false,       // noLocal
		false,       // noWait
		nil,         // arguments
	)
	if err != nil {
		log.Fatalf("無法開始消費 RabbitMQ 訊息: %v", err)
	}

	log.Println("Consumer 已啟動，等待通知訊息...")

	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				log.Println("RabbitMQ 消費 channel 已關閉")
				return
			}
			c.HandleDelivery(ctx, d)
		case <-ctx.Done():
			log.Println("Consumer 收到停止訊號")
			return
		}
	}
}

// HandleDelivery 處理單筆訊息。
// 壞訊息與寫入失敗一律 Nack 不 requeue, 避免毒訊息卡死 queue。
func (c *Consumer) HandleDelivery(ctx context.Context, d amqp.Delivery) {
	var n domain.Notification
	if err := json.Unmarshal(d.Body, &n); err != nil {
		log.Printf("解析通知訊息失敗: %v", err)
		if err := d.Nack(false, false); err != nil {
			log.Printf("Nack 訊息失敗: %v", err)
		}
		return
	}

	if n.UserID == "" {
		log.Printf("通知缺少 user_id, 丟棄")
		if err := d.Nack(false, false); err != nil {
			log.Printf("Nack 訊息失敗: %v", err)
		}
		return
	}

	// save:false 只推播不落地
	if !n.Save {
		if err := d.Ack(false); err != nil {
			log.Printf("確認訊息失敗: %v", err)
		}
		return
	}

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if err := c.notifyRepo.Insert(ctx, &n); err != nil {
		log.Printf("寫入通知失敗: %v", err)
		if err := d.Nack(false, false); err != nil {
			log.Printf("Nack 訊息失敗: %v", err)
		}
		return
	}

	if err := d.Ack(false); err != nil {
		log.Printf("確認訊息失敗: %v", err)
	}
}
