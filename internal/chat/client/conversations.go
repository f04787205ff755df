package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"betalift_service/internal/chat/domain"
	"betalift_service/pkg/logger"

	"go.uber.org/zap"
)

// ConversationView 列表渲染用的資料, _id 在這層映射成 id
type ConversationView struct {
	ID           string       `json:"id"`
	Participants []string     `json:"participants"`
	LastMessage  *MessageView `json:"last_message,omitempty"`
	Unread       int          `json:"unread"`
	UpdatedAt    int64        `json:"updated_at"`
}

// ConversationList conversation 列表的 synchronizer。
// 不做增量合併, 任何 new_message 都整包重拉, 伺服器的排序就是顯示排序。
type ConversationList struct {
	requester Requester
	userID    string

	mu    sync.Mutex
	items []ConversationView
	// refreshing / dirty 把重拉與推播的 race 收斂成: 跑完再跑一次
	refreshing bool
	dirty      bool
}

// NewConversationList create ConversationList
func NewConversationList(requester Requester, userID string) *ConversationList {
	return &ConversationList{
		requester: requester,
		userID:    userID,
	}
}

// Items 目前的列表快照
func (l *ConversationList) Items() []ConversationView {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ConversationView, len(l.items))
	copy(out, l.items)
	return out
}

// OnNewMessage 收到 new_message 推播時呼叫, 觸發整包重拉
func (l *ConversationList) OnNewMessage(ctx context.Context) {
	l.mu.Lock()
	if l.refreshing {
		// 重拉進行中, 記下來結束後再跑一次
		l.dirty = true
		l.mu.Unlock()
		return
	}
	l.refreshing = true
	l.mu.Unlock()

	go l.refreshLoop(ctx)
}

func (l *ConversationList) refreshLoop(ctx context.Context) {
	for {
		if err := l.Refresh(ctx); err != nil {
			logger.Log.Warn("conversation refresh failed", zap.Error(err))
		}

		l.mu.Lock()
		if !l.dirty {
			l.refreshing = false
			l.mu.Unlock()
			return
		}
		l.dirty = false
		l.mu.Unlock()
	}
}

// Refresh 整包重拉 conversation 列表, 失敗時保留上一次的結果
func (l *ConversationList) Refresh(ctx context.Context) error {
	resp, err := l.requester.Request(ctx, domain.WSRequest{
		Action: string(domain.GetConversations),
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return errors.New(resp.Error)
	}

	convs, err := decodeConversations(resp.Data)
	if err != nil {
		return err
	}

	items := make([]ConversationView, 0, len(convs))
	for _, conv := range convs {
		items = append(items, l.mapConversation(conv))
	}

	l.mu.Lock()
	l.items = items
	l.mu.Unlock()
	return nil
}

func (l *ConversationList) mapConversation(conv domain.Conversation) ConversationView {
	view := ConversationView{
		ID:           conv.ID,
		Participants: conv.Participants,
		Unread:       conv.UnreadCounts[l.userID],
		UpdatedAt:    conv.UpdatedAt,
	}
	if conv.LastMessage != nil {
		mv := mapMessage(*conv.LastMessage, l.userID)
		view.LastMessage = &mv
	}
	return view
}

// decodeConversations resp.Data 經過一輪 json 傳輸, 型別是 []interface{}, 重新 marshal 回來
func decodeConversations(data interface{}) ([]domain.Conversation, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var convs []domain.Conversation
	if err := json.Unmarshal(b, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}
