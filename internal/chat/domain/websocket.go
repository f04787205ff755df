package domain

// Action websocket request action
type Action string

const (
	// GetConversations websocket action get_conversations
	GetConversations Action = "get_conversations"
	// GetMessages websocket action get_messages
	GetMessages Action = "get_messages"

	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// ReadMessage websocket action read_message
	ReadMessage Action = "read_message"

	// NewMessage server push, 訊息寫入後廣播給所有參與者(含寄件者 echo)
	NewMessage Action = "new_message"
	// ConversationsList get_conversations 的回覆 action
	ConversationsList Action = "conversations_list"
)

// DefaultMessagePageSize get_messages 預設(也是最大)分頁大小
const DefaultMessagePageSize = 50

// WSRequest websocket Request
type WSRequest struct {
	// RequestID 客戶端產生, 伺服器原樣帶回, 用於 request/response 配對
	RequestID      string      `json:"request_id,omitempty"`
	Action         string      `json:"action"`
	ConversationID string      `json:"conversation_id,omitempty"`
	// RecipientID 第一次互傳訊息時帶入, 伺服器負責建立 1對1 conversation
	RecipientID string      `json:"recipient_id,omitempty"`
	Content     string      `json:"content,omitempty"`
	Type        MessageType `json:"type,omitempty"`
	Attachments []string    `json:"attachments,omitempty"`
	MessageID   string      `json:"message_id,omitempty"`
	ClientKey   string      `json:"client_key,omitempty"`
	Limit       int64       `json:"limit,omitempty"`
	Offset      int64       `json:"offset,omitempty"`
}

// WSResponse websocket Response
type WSResponse struct {
	RequestID string      `json:"request_id,omitempty"`
	Action    string      `json:"action"`
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}
