package domain

import "betalift_service/pkg"

// Conversation 表示固定參與者之間的持久對話串
type Conversation struct {
	ID           string   `bson:"_id,omitempty" json:"_id"`
	Participants []string `bson:"participants" json:"participants"`
	// LastMessage 列表渲染用的反正規化欄位, 永遠指向該對話最新一則訊息
	LastMessage *Message `bson:"last_message,omitempty" json:"last_message,omitempty"`
	// UnreadCounts 以 participant id 為 key, 只增不減, 直到 read ack 歸零
	UnreadCounts map[string]int `bson:"unread_counts,omitempty" json:"unread_counts,omitempty"`
	CreatedAt    int64          `bson:"created_at" json:"created_at"`
	UpdatedAt    int64          `bson:"updated_at" json:"updated_at"`
}

// HasParticipant check user in conversation
func (c *Conversation) HasParticipant(userID string) bool {
	return pkg.Contains(c.Participants, userID)
}
