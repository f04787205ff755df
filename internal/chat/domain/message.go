package domain

// MessageType definition message content type
type MessageType string

const (
	// MessageText plain text message
	MessageText MessageType = "text"
	// MessageImage image attachment message
	MessageImage MessageType = "image"
	// MessageFile file attachment message
	MessageFile MessageType = "file"
)

// Message 表示一則聊天訊息, 建立後不可變, 只有 read_by 會增長
type Message struct {
	ID             string      `bson:"_id,omitempty" json:"_id"`
	ConversationID string      `bson:"conversation_id" json:"conversation_id"`
	SenderID       string      `bson:"sender_id" json:"sender_id"`
	Content        string      `bson:"content" json:"content"`
	Type           MessageType `bson:"type" json:"type"`
	Attachments    []string    `bson:"attachments,omitempty" json:"attachments,omitempty"`
	ReadBy         []string    `bson:"read_by,omitempty" json:"read_by,omitempty"`
	// ClientKey 寄件端產生的冪等 key, echo 回來時用於對消 optimistic placeholder
	ClientKey string `bson:"client_key,omitempty" json:"client_key,omitempty"`
	CreatedAt int64  `bson:"created_at" json:"created_at"`
}
