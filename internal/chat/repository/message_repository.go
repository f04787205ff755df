package repository

import (
	"context"

	"betalift_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository definition message persistence
type MessageRepository interface {
	InsertMessage(ctx context.Context, msg *domain.Message) error
	// FindPage 以 created_at 降序分頁, 第 0 頁是最新的一批訊息
	FindPage(ctx context.Context, conversationID string, limit, offset int64) ([]domain.Message, error)
	// AddReadBy 把 userID 加進 read_by, 重複 ack 不會重複加
	AddReadBy(ctx context.Context, messageID, userID string) error
}

type messageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepository{
		coll: db.Collection("messages"),
	}
}

// InsertMessage insert one chat message
func (r *messageRepository) InsertMessage(ctx context.Context, msg *domain.Message) error {
	_, err := r.coll.InsertOne(ctx, msg)
	return err
}

// FindPage find newest-first page of messages
func (r *messageRepository) FindPage(ctx context.Context, conversationID string, limit, offset int64) ([]domain.Message, error) {
	filter := bson.M{"conversation_id": conversationID}
	opts := options.Find()
	opts.SetSort(bson.M{"created_at": -1})
	opts.SetSkip(offset)
	opts.SetLimit(limit)
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var msgs []domain.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// AddReadBy mark message read by user
func (r *messageRepository) AddReadBy(ctx context.Context, messageID, userID string) error {
	update := bson.M{
		"$addToSet": bson.M{"read_by": userID},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": messageID}, update)
	return err
}
