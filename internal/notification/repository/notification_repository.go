package repository

import (
	"context"
	"time"

	"betalift_service/internal/notification/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository definition notification persistence
type NotificationRepository interface {
	Insert(ctx context.Context, n *domain.Notification) error
	// FindByUser 撈某個 user 的通知, 最新在前
	FindByUser(ctx context.Context, userID string, limit int64) ([]domain.Notification, error)
	// DeleteOlderThan 刪除 cutoff(unix 秒) 之前的通知, 回傳刪除筆數
	DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error)
}

type notificationRepository struct {
	coll *mongo.Collection
}

// NewMongoNotificationRepository create a NotificationRepository
func NewMongoNotificationRepository(db *mongo.Database) NotificationRepository {
	return &notificationRepository{
		coll: db.Collection("notifications"),
	}
}

// Insert insert one notification
func (r *notificationRepository) Insert(ctx context.Context, n *domain.Notification) error {
	if n.CreatedAt == 0 {
		n.CreatedAt = time.Now().Unix()
	}
	_, err := r.coll.InsertOne(ctx, n)
	return err
}

// FindByUser find notifications for user
func (r *notificationRepository) FindByUser(ctx context.Context, userID string, limit int64) ([]domain.Notification, error) {
	filter := bson.M{"user_id": userID}
	opts := options.Find()
	opts.SetSort(bson.M{"created_at": -1})
	opts.SetLimit(limit)
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var out []domain.Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteOlderThan delete expired notifications
func (r *notificationRepository) DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
