package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"betalift_service/internal/chat/domain"

	"github.com/google/uuid"
)

// SendStatus optimistic 訊息的狀態
type SendStatus string

const (
	// StatusPending 已顯示, 等伺服器確認
	StatusPending SendStatus = "pending"
	// StatusSent 伺服器已確認
	StatusSent SendStatus = "sent"
	// StatusFailed 送出失敗, 可重送
	StatusFailed SendStatus = "failed"
)

// MessageView 訊息渲染用的資料
type MessageView struct {
	ID             string             `json:"id"`
	ConversationID string             `json:"conversation_id"`
	SenderID       string             `json:"sender_id"`
	Content        string             `json:"content"`
	Type           domain.MessageType `json:"type"`
	Attachments    []string           `json:"attachments,omitempty"`
	// IsMine 在映射邊界算好, 渲染層不再比對 id
	IsMine    bool       `json:"is_mine"`
	ClientKey string     `json:"client_key,omitempty"`
	Status    SendStatus `json:"status"`
	CreatedAt int64      `json:"created_at"`
}

func mapMessage(msg domain.Message, userID string) MessageView {
	return MessageView{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		Type:           msg.Type,
		Attachments:    msg.Attachments,
		IsMine:         msg.SenderID == userID,
		ClientKey:      msg.ClientKey,
		Status:         StatusSent,
		CreatedAt:      msg.CreatedAt,
	}
}

// Thread 單一 conversation 的訊息串 synchronizer。
// 內部永遠維持 oldest-first, 伺服器回的 newest-first 分頁在這層反轉。
type Thread struct {
	requester      Requester
	conversationID string
	userID         string

	mu       sync.Mutex
	messages []MessageView
	// confirmed 已從伺服器拿到的訊息數, 分頁 offset 以此為準,
	// pending placeholder 不算在內
	confirmed int
}

// NewThread create Thread
func NewThread(requester Requester, conversationID, userID string) *Thread {
	return &Thread{
		requester:      requester,
		conversationID: conversationID,
		userID:         userID,
	}
}

// Messages 目前的訊息快照, oldest-first
func (t *Thread) Messages() []MessageView {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]MessageView, len(t.messages))
	copy(out, t.messages)
	return out
}

// Load 拉最新一頁, 折疊回現有內容。
// 抓取期間 push 進來的即時訊息與還沒確認的 placeholder 不能被快照蓋掉,
// 快照已含的訊息用 ID/ClientKey 對消避免重複。
func (t *Thread) Load(ctx context.Context) error {
	page, err := t.fetchPage(ctx, 0)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	inPageID := make(map[string]struct{}, len(page))
	inPageKey := make(map[string]struct{}, len(page))
	for _, v := range page {
		if v.ID != "" {
			inPageID[v.ID] = struct{}{}
		}
		if v.ClientKey != "" {
			inPageKey[v.ClientKey] = struct{}{}
		}
	}

	merged := page
	confirmed := len(page)
	for _, v := range t.messages {
		if v.ID != "" {
			if _, ok := inPageID[v.ID]; ok {
				continue
			}
			merged = append(merged, v)
			confirmed++
			continue
		}
		// 沒有 ID 的是 pending/failed placeholder
		if v.ClientKey != "" {
			if _, ok := inPageKey[v.ClientKey]; ok {
				continue
			}
			merged = append(merged, v)
		}
	}
	t.messages = merged
	t.confirmed = confirmed
	return nil
}

// LoadOlder 往前再拉一頁, 接在現有內容前面
func (t *Thread) LoadOlder(ctx context.Context) error {
	t.mu.Lock()
	offset := int64(t.confirmed)
	t.mu.Unlock()

	page, err := t.fetchPage(ctx, offset)
	if err != nil {
		return err
	}
	if len(page) == 0 {
		return nil
	}

	t.mu.Lock()
	t.messages = append(page, t.messages...)
	t.confirmed += len(page)
	t.mu.Unlock()
	return nil
}

// fetchPage 伺服器回 newest-first, 這裡反轉成 oldest-first
func (t *Thread) fetchPage(ctx context.Context, offset int64) ([]MessageView, error) {
	resp, err := t.requester.Request(ctx, domain.WSRequest{
		Action:         string(domain.GetMessages),
		ConversationID: t.conversationID,
		Limit:          domain.DefaultMessagePageSize,
		Offset:         offset,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, errors.New(resp.Error)
	}

	msgs, err := decodeMessages(resp.Data)
	if err != nil {
		return nil, err
	}

	page := make([]MessageView, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		page = append(page, mapMessage(msgs[i], t.userID))
	}
	return page, nil
}

// HandlePush 處理 new_message 推播。
// 別的 conversation 的訊息直接丟掉, 自己發的靠 client_key 對消 placeholder。
func (t *Thread) HandlePush(msg domain.Message) {
	if msg.ConversationID != t.conversationID {
		return
	}

	view := mapMessage(msg, t.userID)

	t.mu.Lock()
	defer t.mu.Unlock()

	if view.IsMine && view.ClientKey != "" {
		for i := range t.messages {
			if t.messages[i].ClientKey == view.ClientKey && t.messages[i].Status != StatusSent {
				t.messages[i] = view
				t.confirmed++
				return
			}
		}
		// placeholder 已被 send 的回應換掉, echo 不重複 append
		for i := range t.messages {
			if t.messages[i].ID == view.ID {
				return
			}
		}
	}

	t.messages = append(t.messages, view)
	t.confirmed++
}

// Send optimistic 送出。先插 placeholder, 伺服器確認後原地替換,
// 失敗時標成 failed 留在原位。
func (t *Thread) Send(ctx context.Context, content string, msgType domain.MessageType) (string, error) {
	if msgType == "" {
		msgType = domain.MessageText
	}
	clientKey := uuid.New().String()
	placeholder := MessageView{
		ConversationID: t.conversationID,
		SenderID:       t.userID,
		Content:        content,
		Type:           msgType,
		IsMine:         true,
		ClientKey:      clientKey,
		Status:         StatusPending,
		CreatedAt:      time.Now().Unix(),
	}

	t.mu.Lock()
	t.messages = append(t.messages, placeholder)
	t.mu.Unlock()

	resp, err := t.requester.Request(ctx, domain.WSRequest{
		Action:         string(domain.SendMessage),
		ConversationID: t.conversationID,
		Content:        content,
		Type:           msgType,
		ClientKey:      clientKey,
	})
	if err != nil || !resp.Success {
		t.markFailed(clientKey)
		if err == nil {
			err = errors.New(resp.Error)
		}
		return clientKey, err
	}

	msg, decodeErr := decodeMessage(resp.Data)
	if decodeErr != nil {
		t.markFailed(clientKey)
		return clientKey, decodeErr
	}
	t.confirm(clientKey, mapMessage(msg, t.userID))
	return clientKey, nil
}

// Retry 重送一筆 failed 的訊息
func (t *Thread) Retry(ctx context.Context, clientKey string) error {
	t.mu.Lock()
	var target *MessageView
	for i := range t.messages {
		if t.messages[i].ClientKey == clientKey && t.messages[i].Status == StatusFailed {
			target = &t.messages[i]
			break
		}
	}
	if target == nil {
		t.mu.Unlock()
		return errors.New("no failed message with client key")
	}
	target.Status = StatusPending
	content, msgType := target.Content, target.Type
	t.mu.Unlock()

	resp, err := t.requester.Request(ctx, domain.WSRequest{
		Action:         string(domain.SendMessage),
		ConversationID: t.conversationID,
		Content:        content,
		Type:           msgType,
		ClientKey:      clientKey,
	})
	if err != nil || !resp.Success {
		t.markFailed(clientKey)
		if err == nil {
			err = errors.New(resp.Error)
		}
		return err
	}

	msg, decodeErr := decodeMessage(resp.Data)
	if decodeErr != nil {
		t.markFailed(clientKey)
		return decodeErr
	}
	t.confirm(clientKey, mapMessage(msg, t.userID))
	return nil
}

// MarkRead 對最新一則伺服器訊息送 read ack
func (t *Thread) MarkRead(ctx context.Context) error {
	t.mu.Lock()
	var messageID string
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].ID != "" {
			messageID = t.messages[i].ID
			break
		}
	}
	t.mu.Unlock()
	if messageID == "" {
		return nil
	}

	resp, err := t.requester.Request(ctx, domain.WSRequest{
		Action:         string(domain.ReadMessage),
		ConversationID: t.conversationID,
		MessageID:      messageID,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return errors.New(resp.Error)
	}
	return nil
}

func (t *Thread) markFailed(clientKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.messages {
		if t.messages[i].ClientKey == clientKey {
			t.messages[i].Status = StatusFailed
			return
		}
	}
}

func (t *Thread) confirm(clientKey string, view MessageView) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.messages {
		if t.messages[i].ClientKey == clientKey {
			if t.messages[i].Status == StatusSent {
				// echo 先到一步已經換過了
				return
			}
			t.messages[i] = view
			t.confirmed++
			return
		}
	}
}

func decodeMessages(data interface{}) ([]domain.Message, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var msgs []domain.Message
	if err := json.Unmarshal(b, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func decodeMessage(data interface{}) (domain.Message, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return domain.Message{}, err
	}
	var msg domain.Message
	if err := json.Unmarshal(b, &msg); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}
