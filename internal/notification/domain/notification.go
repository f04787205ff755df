package domain

// NotificationType definition notification type
type NotificationType string

const (
	// NotifyNewMessage 聊天新訊息通知
	NotifyNewMessage NotificationType = "new_message"
	// NotifyFeedback feedback 服務送出的 project 事件通知
	NotifyFeedback NotificationType = "feedback"
	// NotifySystem 系統公告
	NotifySystem NotificationType = "system"
)

// Notification queue 上的通知封包, 也是 mongo 內的儲存格式
type Notification struct {
	ID     string           `bson:"_id,omitempty" json:"_id,omitempty"`
	UserID string           `bson:"user_id" json:"user_id"`
	Title  string           `bson:"title" json:"title"`
	Body   string           `bson:"body" json:"body"`
	Type   NotificationType `bson:"type" json:"type"`
	// Data 附帶的跳轉資訊, 例如 conversation_id
	Data      map[string]string `bson:"data,omitempty" json:"data,omitempty"`
	CreatedAt int64             `bson:"created_at" json:"created_at"`
	// Save false 代表只推播不落地, worker 會直接 ack 跳過寫入
	Save bool `bson:"-" json:"save"`
}
