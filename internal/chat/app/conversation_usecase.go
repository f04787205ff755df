package app

import (
	"context"
	"time"

	"betalift_service/internal/chat/domain"
	"betalift_service/internal/chat/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// ConversationUseCase 負責 conversation 查詢與建立
type ConversationUseCase struct {
	convRepo repository.ConversationRepository
}

// NewConversationUseCase init conversation use case
func NewConversationUseCase(convRepo repository.ConversationRepository) *ConversationUseCase {
	return &ConversationUseCase{convRepo: convRepo}
}

// List 取某個 user 的完整 conversation 列表, 永遠整包回傳
func (uc *ConversationUseCase) List(ctx context.Context, userID string) ([]domain.Conversation, error) {
	return uc.convRepo.FindByParticipant(ctx, userID)
}

// EnsurePrivate 找兩人既有的 1對1 conversation, 沒有就建立
func (uc *ConversationUseCase) EnsurePrivate(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	conv, err := uc.convRepo.FindOnePrivate(ctx, userA, userB)
	if err == nil {
		return conv, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	now := time.Now().Unix()
	conv = &domain.Conversation{
		ID:           uuid.New().String(),
		Participants: []string{userA, userB},
		UnreadCounts: map[string]int{userA: 0, userB: 0},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.convRepo.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}
