package app

import (
	"context"

	"betalift_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockConversationRepository Mock ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

// Create moke create conversation
func (m *MockConversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

// FindByID moke find conversation by id
func (m *MockConversationRepository) FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindOnePrivate moke find private conversation
func (m *MockConversationRepository) FindOnePrivate(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByParticipant moke list conversations for user
func (m *MockConversationRepository) FindByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// ApplyLastMessage moke apply last message
func (m *MockConversationRepository) ApplyLastMessage(ctx context.Context, conv *domain.Conversation, msg *domain.Message) error {
	args := m.Called(ctx, conv, msg)
	return args.Error(0)
}

// ResetUnread moke reset unread
func (m *MockConversationRepository) ResetUnread(ctx context.Context, conversationID, userID string) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// InsertMessage moke insert msg
func (m *MockMessageRepository) InsertMessage(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindPage moke find page
func (m *MockMessageRepository) FindPage(ctx context.Context, conversationID string, limit, offset int64) ([]domain.Message, error) {
	args := m.Called(ctx, conversationID, limit, offset)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// AddReadBy moke add read by
func (m *MockMessageRepository) AddReadBy(ctx context.Context, messageID, userID string) error {
	args := m.Called(ctx, messageID, userID)
	return args.Error(0)
}

// MockChatPubSub Mock ChatPubSub
type MockChatPubSub struct {
	mock.Mock
}

// Publish moke publisher
func (m *MockChatPubSub) Publish(channel string, message interface{}) error {
	args := m.Called(channel, message)
	return args.Error(0)
}

// Subscribe moke subscriber
func (m *MockChatPubSub) Subscribe(ctx context.Context, channel string, handler func(resp domain.WSResponse)) error {
	args := m.Called(channel, handler)
	return args.Error(0)
}
