package client

import (
	"context"
	"sync"

	"betalift_service/internal/chat/domain"
	"betalift_service/pkg/logger"

	"go.uber.org/zap"
)

// Session 把 Client, ConversationList 與開啟中的 Thread 接在一起。
// 推播只進 dispatcher 一個入口, 這裡負責轉給對的 synchronizer。
type Session struct {
	client *Client
	list   *ConversationList

	mu      sync.Mutex
	threads map[string]*Thread
}

// NewSession create Session, 會在 dispatcher 上掛 new_message 路由
func NewSession(ctx context.Context, c *Client, userID string) *Session {
	s := &Session{
		client:  c,
		list:    NewConversationList(c, userID),
		threads: make(map[string]*Thread),
	}

	c.Dispatcher().OnPush(func(resp domain.WSResponse) {
		if resp.Action != string(domain.NewMessage) {
			return
		}
		msg, err := decodeMessage(resp.Data)
		if err != nil {
			logger.Log.Warn("bad push payload", zap.Error(err))
			return
		}

		s.mu.Lock()
		t, ok := s.threads[msg.ConversationID]
		s.mu.Unlock()
		if ok {
			t.HandlePush(msg)
		}
		s.list.OnNewMessage(ctx)
	})

	// 重連成功後列表與開啟中的訊息串都可能已過期, 整包補齊
	c.OnStateChange(func(state State) {
		if state != StateConnected {
			return
		}
		s.list.OnNewMessage(ctx)

		s.mu.Lock()
		threads := make([]*Thread, 0, len(s.threads))
		for _, t := range s.threads {
			threads = append(threads, t)
		}
		s.mu.Unlock()
		for _, t := range threads {
			go func(t *Thread) {
				if err := t.Load(ctx); err != nil {
					logger.Log.Warn("thread reload failed", zap.Error(err))
				}
			}(t)
		}
	})

	return s
}

// Conversations 列表 synchronizer
func (s *Session) Conversations() *ConversationList {
	return s.list
}

// OpenThread 開啟(或取回)某個 conversation 的訊息串
func (s *Session) OpenThread(conversationID, userID string) *Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.threads[conversationID]; ok {
		return t
	}
	t := NewThread(s.client, conversationID, userID)
	s.threads[conversationID] = t
	return t
}

// CloseThread 關閉訊息串, 之後的推播不再進入它
func (s *Session) CloseThread(conversationID string) {
	s.mu.Lock()
	delete(s.threads, conversationID)
	s.mu.Unlock()
}
