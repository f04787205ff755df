package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"betalift_service/internal/chat/domain"
	"betalift_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// UserChannel 每個 user 一個 channel, 該 user 的所有連線都訂閱它
func UserChannel(userID string) string {
	return fmt.Sprintf("chat:user:%s", userID)
}

// ChatPubSub definition fan-out pub/sub
type ChatPubSub interface {
	Publish(channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string, handler func(resp domain.WSResponse)) error
}

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{
		client: client,
		ctx:    context.Background(),
	}
}

// Publish 將 message 序列化後，發布到指定 channel
func (r *RedisPubSub) Publish(channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.client.Publish(r.ctx, channel, data).Err()
}

// Subscribe 訂閱指定 channel，收到訊息後呼叫 handler 處理
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(resp domain.WSResponse)) error {
	sub := r.client.Subscribe(r.ctx, channel)
	go func() {
		ch := sub.Channel()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}

				var msg domain.Message
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					logger.Log.Error("pubsub payload err :", zap.String("err", fmt.Sprintf("failed to unmarshal message: %v", err)))
					continue
				}

				resp := domain.WSResponse{
					Action:  string(domain.NewMessage),
					Success: true,
					Data:    msg,
				}
				handler(resp)
			case <-ctx.Done():
				logger.Log.Info(fmt.Sprintf("%s , sub close", channel))
				// 當 ctx 被取消時，退出循環並關閉訂閱
				sub.Close()
				return
			}
		}
	}()
	return nil
}
