package app

import (
	"context"
	"testing"
	"time"

	"betalift_service/internal/chat/domain"
	"betalift_service/internal/chat/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"
)

// 測試 SendMessageUseCase.Execute, 既有 conversation
func TestSendMessageUseCase_Execute(t *testing.T) {
	ctx := context.Background()
	convID := uuid.New().String()
	senderID := uuid.New().String()
	recipientID := uuid.New().String()
	content := "Hello, world!"

	mockConvRepo := new(MockConversationRepository)
	mockMsgRepo := new(MockMessageRepository)
	mockPubSub := new(MockChatPubSub)

	mockConv := &domain.Conversation{
		ID:           convID,
		Participants: []string{senderID, recipientID},
	}
	mockConvRepo.On("FindByID", ctx, convID).Return(mockConv, nil)
	mockMsgRepo.On("InsertMessage", ctx, mock.Anything).Return(nil)
	mockConvRepo.On("ApplyLastMessage", ctx, mockConv, mock.Anything).Return(nil)

	// 廣播給所有參與者, 含寄件者自己
	mockPubSub.On("Publish", repository.UserChannel(senderID), mock.Anything).Return(nil)
	mockPubSub.On("Publish", repository.UserChannel(recipientID), mock.Anything).Return(nil)

	uc := NewSendMessageUseCase(mockConvRepo, mockMsgRepo, nil, mockPubSub, nil, nil, "notification")
	msg, err := uc.Execute(ctx, SendMessageCmd{
		ConversationID: convID,
		SenderID:       senderID,
		Content:        content,
		ClientKey:      "ck-1",
	})

	assert.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, content, msg.Content)
	assert.Equal(t, "ck-1", msg.ClientKey)
	// 寄件者視為已讀
	assert.Contains(t, msg.ReadBy, senderID)

	mockConvRepo.AssertExpectations(t)
	mockMsgRepo.AssertExpectations(t)
	mockPubSub.AssertExpectations(t)
}

// 測試 Execute 沒有 conversation_id 時用 recipient_id 自動建立
func TestSendMessageUseCase_Execute_AutoCreate(t *testing.T) {
	ctx := context.Background()
	senderID := uuid.New().String()
	recipientID := uuid.New().String()

	mockConvRepo := new(MockConversationRepository)
	mockMsgRepo := new(MockMessageRepository)
	mockPubSub := new(MockChatPubSub)

	// 模擬兩人之間還沒有 conversation
	mockConvRepo.On("FindOnePrivate", ctx, senderID, recipientID).Return(nil, mongo.ErrNoDocuments)
	mockConvRepo.On("Create", ctx, mock.Anything).Return(nil)
	mockMsgRepo.On("InsertMessage", ctx, mock.Anything).Return(nil)
	mockConvRepo.On("ApplyLastMessage", ctx, mock.Anything, mock.Anything).Return(nil)
	mockPubSub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	convUC := NewConversationUseCase(mockConvRepo)
	uc := NewSendMessageUseCase(mockConvRepo, mockMsgRepo, convUC, mockPubSub, nil, nil, "notification")
	msg, err := uc.Execute(ctx, SendMessageCmd{
		RecipientID: recipientID,
		SenderID:    senderID,
		Content:     "first contact",
	})

	assert.NoError(t, err)
	assert.NotEmpty(t, msg.ConversationID)
	mockConvRepo.AssertExpectations(t)
	mockMsgRepo.AssertExpectations(t)
}

// 測試 Execute 寄件者不在 conversation 內
func TestSendMessageUseCase_Execute_NotParticipant(t *testing.T) {
	ctx := context.Background()
	convID := uuid.New().String()
	outsider := uuid.New().String()

	mockConvRepo := new(MockConversationRepository)
	mockMsgRepo := new(MockMessageRepository)

	mockConv := &domain.Conversation{
		ID:           convID,
		Participants: []string{"user-a", "user-b"},
	}
	mockConvRepo.On("FindByID", ctx, convID).Return(mockConv, nil)

	uc := NewSendMessageUseCase(mockConvRepo, mockMsgRepo, nil, nil, nil, nil, "notification")
	_, err := uc.Execute(ctx, SendMessageCmd{
		ConversationID: convID,
		SenderID:       outsider,
		Content:        "hi",
	})

	assert.Error(t, err)
	mockMsgRepo.AssertNotCalled(t, "InsertMessage", mock.Anything, mock.Anything)
}

// 測試 MarkRead 同時歸零未讀數
func TestSendMessageUseCase_MarkRead(t *testing.T) {
	ctx := context.Background()
	convID := uuid.New().String()
	messageID := uuid.New().String()
	userID := uuid.New().String()

	mockConvRepo := new(MockConversationRepository)
	mockMsgRepo := new(MockMessageRepository)

	mockConv := &domain.Conversation{
		ID:           convID,
		Participants: []string{userID, "someone"},
	}
	mockConvRepo.On("FindByID", ctx, convID).Return(mockConv, nil)
	mockMsgRepo.On("AddReadBy", ctx, messageID, userID).Return(nil)
	mockConvRepo.On("ResetUnread", ctx, convID, userID).Return(nil)

	uc := &SendMessageUseCase{convRepo: mockConvRepo, msgRepo: mockMsgRepo}
	err := uc.MarkRead(ctx, convID, messageID, userID)

	assert.NoError(t, err)
	mockConvRepo.AssertExpectations(t)
	mockMsgRepo.AssertExpectations(t)
}

// 測試 GetMessages 的 limit 上限
func TestSendMessageUseCase_GetMessages_LimitClamp(t *testing.T) {
	ctx := context.Background()
	convID := uuid.New().String()
	userID := uuid.New().String()

	mockConvRepo := new(MockConversationRepository)
	mockMsgRepo := new(MockMessageRepository)

	mockConv := &domain.Conversation{
		ID:           convID,
		Participants: []string{userID},
	}
	mockConvRepo.On("FindByID", ctx, convID).Return(mockConv, nil)

	now := time.Now().Unix()
	page := []domain.Message{
		{ID: "m2", ConversationID: convID, CreatedAt: now},
		{ID: "m1", ConversationID: convID, CreatedAt: now - 10},
	}
	// limit 超過 50 會被壓回 50
	mockMsgRepo.On("FindPage", ctx, convID, int64(domain.DefaultMessagePageSize), int64(0)).Return(page, nil)

	uc := &SendMessageUseCase{convRepo: mockConvRepo, msgRepo: mockMsgRepo}
	result, err := uc.GetMessages(ctx, convID, userID, 500, 0)

	assert.NoError(t, err)
	assert.Equal(t, page, result)
	mockMsgRepo.AssertExpectations(t)
}

// 測試 GetMessages 非參與者拒絕
func TestSendMessageUseCase_GetMessages_NotParticipant(t *testing.T) {
	ctx := context.Background()
	convID := uuid.New().String()

	mockConvRepo := new(MockConversationRepository)
	mockMsgRepo := new(MockMessageRepository)

	mockConv := &domain.Conversation{
		ID:           convID,
		Participants: []string{"user-a"},
	}
	mockConvRepo.On("FindByID", ctx, convID).Return(mockConv, nil)

	uc := &SendMessageUseCase{convRepo: mockConvRepo, msgRepo: mockMsgRepo}
	_, err := uc.GetMessages(ctx, convID, "outsider", 10, 0)

	assert.Error(t, err)
	mockMsgRepo.AssertNotCalled(t, "FindPage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
