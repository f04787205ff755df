package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"betalift_service/internal/chat/domain"
	"betalift_service/internal/chat/repository"
	notifydomain "betalift_service/internal/notification/domain"
	"betalift_service/pkg/database"
	errprocess "betalift_service/pkg/err"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/streadway/amqp"
)

// SendMessageCmd send_message 的輸入參數
type SendMessageCmd struct {
	ConversationID string
	// RecipientID 沒有 conversation 時帶入, 伺服器會自動建立 1對1 conversation
	RecipientID string
	SenderID    string
	Content     string
	Type        domain.MessageType
	Attachments []string
	ClientKey   string
}

// SendMessageUseCase 負責處理聊天訊息
type SendMessageUseCase struct {
	convRepo          repository.ConversationRepository
	msgRepo           repository.MessageRepository
	convUC            *ConversationUseCase
	pubSub            repository.ChatPubSub
	rabbit            database.RabbitRepo
	kafkaWriter       *kafka.Writer
	notificationQueue string
}

// NewSendMessageUseCase init create message use case
func NewSendMessageUseCase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	convUC *ConversationUseCase,
	pubSub repository.ChatPubSub,
	rabbit database.RabbitRepo,
	kafkaWriter *kafka.Writer,
	notificationQueue string,
) *SendMessageUseCase {
	return &SendMessageUseCase{
		convRepo:          convRepo,
		msgRepo:           msgRepo,
		convUC:            convUC,
		pubSub:            pubSub,
		rabbit:            rabbit,
		kafkaWriter:       kafkaWriter,
		notificationQueue: notificationQueue,
	}
}

// Execute send message
func (uc *SendMessageUseCase) Execute(ctx context.Context, cmd SendMessageCmd) (*domain.Message, error) {
	if cmd.Content == "" && len(cmd.Attachments) == 0 {
		return nil, errprocess.Set("empty message")
	}

	// 1. 找到(或建立) conversation, 並確認寄件者是參與者
	var conv *domain.Conversation
	var err error
	if cmd.ConversationID != "" {
		conv, err = uc.convRepo.FindByID(ctx, cmd.ConversationID)
		if err != nil {
			return nil, errprocess.Set("conversation not found")
		}
	} else {
		if cmd.RecipientID == "" {
			return nil, errprocess.Set("conversation_id or recipient_id required")
		}
		conv, err = uc.convUC.EnsurePrivate(ctx, cmd.SenderID, cmd.RecipientID)
		if err != nil {
			return nil, err
		}
	}
	if !conv.HasParticipant(cmd.SenderID) {
		return nil, errprocess.Set("sender not in conversation")
	}

	msgType := cmd.Type
	if msgType == "" {
		msgType = domain.MessageText
	}

	// 2. 建立訊息, 寄件者視為已讀
	newMsg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		SenderID:       cmd.SenderID,
		Content:        cmd.Content,
		Type:           msgType,
		Attachments:    cmd.Attachments,
		ReadBy:         []string{cmd.SenderID},
		ClientKey:      cmd.ClientKey,
		CreatedAt:      time.Now().Unix(),
	}
	if err := uc.msgRepo.InsertMessage(ctx, newMsg); err != nil {
		return nil, err
	}

	// 3. 同一筆 update 更新 last_message + 未讀數
	if err := uc.convRepo.ApplyLastMessage(ctx, conv, newMsg); err != nil {
		return nil, err
	}

	// 4. pubSub 廣播給所有參與者, 含寄件者 echo(寄件端用 client_key 對消 placeholder)
	if uc.pubSub != nil {
		for _, memberID := range conv.Participants {
			if err := uc.pubSub.Publish(repository.UserChannel(memberID), newMsg); err != nil {
				log.Printf("Publish error: %v", err)
			}
		}
	}

	// 5. 收件者各發一筆通知進 queue, 由 notification worker 落地
	uc.publishNotifications(conv, newMsg)

	// 6. kafka 活動事件, 純分析用, 失敗不影響主流程
	uc.publishActivity(ctx, newMsg)

	return newMsg, nil
}

func (uc *SendMessageUseCase) publishNotifications(conv *domain.Conversation, msg *domain.Message) {
	if uc.rabbit == nil {
		return
	}
	for _, memberID := range conv.Participants {
		if memberID == msg.SenderID {
			continue
		}
		n := notifydomain.Notification{
			UserID: memberID,
			Title:  "new message",
			Body:   msg.Content,
			Type:   notifydomain.NotifyNewMessage,
			Data: map[string]string{
				"conversation_id": msg.ConversationID,
				"sender_id":       msg.SenderID,
			},
			CreatedAt: msg.CreatedAt,
			Save:      true,
		}
		body, err := json.Marshal(n)
		if err != nil {
			log.Printf("notification marshal error: %v", err)
			continue
		}
		if err := uc.rabbit.Publish("", uc.notificationQueue, false, false, amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		}); err != nil {
			log.Printf("notification publish error: %v", err)
		}
	}
}

func (uc *SendMessageUseCase) publishActivity(ctx context.Context, msg *domain.Message) {
	if uc.kafkaWriter == nil {
		return
	}
	event := map[string]interface{}{
		"event":           "message_sent",
		"conversation_id": msg.ConversationID,
		"sender_id":       msg.SenderID,
		"type":            msg.Type,
		"created_at":      msg.CreatedAt,
	}
	b, _ := json.Marshal(event)
	if err := uc.kafkaWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.ConversationID),
		Value: b,
	}); err != nil {
		log.Printf("kafka write error: %v", err)
	}
}

// MarkRead 已讀, 同時把該 user 在 conversation 的未讀數歸零
func (uc *SendMessageUseCase) MarkRead(ctx context.Context, conversationID, messageID, userID string) error {
	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return errprocess.Set("conversation not found")
	}
	if !conv.HasParticipant(userID) {
		return errprocess.Set("user not in conversation")
	}
	if err := uc.msgRepo.AddReadBy(ctx, messageID, userID); err != nil {
		return err
	}
	return uc.convRepo.ResetUnread(ctx, conversationID, userID)
}

// GetMessages 取一頁訊息, 最新的在前, limit 上限 50
func (uc *SendMessageUseCase) GetMessages(ctx context.Context, conversationID, userID string, limit, offset int64) ([]domain.Message, error) {
	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, errprocess.Set("conversation not found")
	}
	if !conv.HasParticipant(userID) {
		return nil, errprocess.Set("user not in conversation")
	}
	if limit <= 0 || limit > domain.DefaultMessagePageSize {
		limit = domain.DefaultMessagePageSize
	}
	if offset < 0 {
		offset = 0
	}
	return uc.msgRepo.FindPage(ctx, conversationID, limit, offset)
}
