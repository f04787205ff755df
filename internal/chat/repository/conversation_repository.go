package repository

import (
	"context"
	"time"

	"betalift_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationRepository definition conversation persistence
type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error)
	// FindOnePrivate 找兩個 user 之間既有的 1對1 conversation
	FindOnePrivate(ctx context.Context, userA, userB string) (*domain.Conversation, error)
	// FindByParticipant 撈某個 user 的所有 conversation, 依最後活動時間降序
	FindByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error)
	// ApplyLastMessage 一次 update 完成: 覆寫 last_message, 其他參與者 unread +1, 更新 updated_at
	ApplyLastMessage(ctx context.Context, conv *domain.Conversation, msg *domain.Message) error
	// ResetUnread read ack 時把該 user 的未讀數歸零
	ResetUnread(ctx context.Context, conversationID, userID string) error
}

type conversationRepository struct {
	coll *mongo.Collection
}

// NewMongoConversationRepository create a ConversationRepository
func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &conversationRepository{
		coll: db.Collection("conversations"),
	}
}

// Create create conversation
func (r *conversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	_, err := r.coll.InsertOne(ctx, conv)
	return err
}

// FindByID find conversation by id
func (r *conversationRepository) FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.coll.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&conv)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindOnePrivate find private conversation between two users
func (r *conversationRepository) FindOnePrivate(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	filter := bson.M{
		"participants": bson.M{
			"$all":  []string{userA, userB},
			"$size": 2,
		},
	}
	var conv domain.Conversation
	err := r.coll.FindOne(ctx, filter).Decode(&conv)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindByParticipant list conversations for user
func (r *conversationRepository) FindByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error) {
	filter := bson.M{"participants": userID}
	opts := options.Find()
	// 最近有新訊息的 conversation 排最前面
	opts.SetSort(bson.M{"updated_at": -1})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var convs []domain.Conversation
	if err := cur.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// ApplyLastMessage apply new message side effects to conversation
func (r *conversationRepository) ApplyLastMessage(ctx context.Context, conv *domain.Conversation, msg *domain.Message) error {
	inc := bson.M{}
	for _, p := range conv.Participants {
		// 寄件者自己的未讀數不動
		if p != msg.SenderID {
			inc["unread_counts."+p] = 1
		}
	}
	update := bson.M{
		"$set": bson.M{
			"last_message": msg,
			"updated_at":   time.Now().Unix(),
		},
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": conv.ID}, update)
	return err
}

// ResetUnread clear unread count for user
func (r *conversationRepository) ResetUnread(ctx context.Context, conversationID, userID string) error {
	update := bson.M{
		"$set": bson.M{"unread_counts." + userID: 0},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": conversationID}, update)
	return err
}
