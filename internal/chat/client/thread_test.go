package client

import (
	"context"
	"errors"
	"sync"
	"testing"

	"betalift_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
)

// fakeRequester 直接用函式假裝伺服器, 不開 socket
type fakeRequester struct {
	mu       sync.Mutex
	handler  func(req domain.WSRequest) (domain.WSResponse, error)
	requests []domain.WSRequest
}

func (f *fakeRequester) Request(ctx context.Context, req domain.WSRequest) (domain.WSResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.handler(req)
}

func (f *fakeRequester) lastRequest() domain.WSRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// 測試 Load 把伺服器的 newest-first 反轉成 oldest-first
func TestThread_Load_ReversesPage(t *testing.T) {
	me := "user-me"
	fake := &fakeRequester{
		handler: func(req domain.WSRequest) (domain.WSResponse, error) {
			page := []domain.Message{
				{ID: "m3", ConversationID: "conv-1", SenderID: me, CreatedAt: 300},
				{ID: "m2", ConversationID: "conv-1", SenderID: "other", CreatedAt: 200},
				{ID: "m1", ConversationID: "conv-1", SenderID: "other", CreatedAt: 100},
			}
			return domain.WSResponse{RequestID: req.RequestID, Action: req.Action, Success: true, Data: page}, nil
		},
	}

	thread := NewThread(fake, "conv-1", me)
	err := thread.Load(context.Background())

	assert.NoError(t, err)
	msgs := thread.Messages()
	assert.Len(t, msgs, 3)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m3", msgs[2].ID)
	// isMine 在映射邊界算好
	assert.False(t, msgs[0].IsMine)
	assert.True(t, msgs[2].IsMine)
}

// 測試抓取途中進來的推播不會被 Load 的快照蓋掉, 快照已含的也不重複
func TestThread_Load_FoldsLivePush(t *testing.T) {
	me := "user-me"
	var thread *Thread
	fake := &fakeRequester{}
	fake.handler = func(req domain.WSRequest) (domain.WSResponse, error) {
		// 分頁還沒回來前先進來兩則即時訊息, m2 也在快照裡
		thread.HandlePush(domain.Message{ID: "m2", ConversationID: "conv-1", SenderID: "other", CreatedAt: 200})
		thread.HandlePush(domain.Message{ID: "m3", ConversationID: "conv-1", SenderID: "other", CreatedAt: 300})
		page := []domain.Message{
			{ID: "m2", ConversationID: "conv-1", SenderID: "other", CreatedAt: 200},
			{ID: "m1", ConversationID: "conv-1", SenderID: "other", CreatedAt: 100},
		}
		return domain.WSResponse{Success: true, Data: page}, nil
	}
	thread = NewThread(fake, "conv-1", me)

	assert.NoError(t, thread.Load(context.Background()))
	msgs := thread.Messages()
	assert.Len(t, msgs, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"},
		[]string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
}

// 測試 failed placeholder 在 Load 之後還留著, 可以繼續 Retry
func TestThread_Load_KeepsFailedPlaceholder(t *testing.T) {
	me := "user-me"
	fail := true
	fake := &fakeRequester{
		handler: func(req domain.WSRequest) (domain.WSResponse, error) {
			if req.Action == string(domain.SendMessage) && fail {
				return domain.WSResponse{}, errors.New("boom")
			}
			page := []domain.Message{
				{ID: "m1", ConversationID: "conv-1", SenderID: "other", CreatedAt: 100},
			}
			return domain.WSResponse{Success: true, Data: page}, nil
		},
	}

	thread := NewThread(fake, "conv-1", me)
	clientKey, err := thread.Send(context.Background(), "hello", domain.MessageText)
	assert.Error(t, err)

	assert.NoError(t, thread.Load(context.Background()))
	msgs := thread.Messages()
	assert.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, clientKey, msgs[1].ClientKey)
	assert.Equal(t, StatusFailed, msgs[1].Status)
}

// 測試 LoadOlder 接在前面, offset 以已確認訊息數為準
func TestThread_LoadOlder_Prepends(t *testing.T) {
	me := "user-me"
	pages := map[int64][]domain.Message{
		0: {
			{ID: "m4", ConversationID: "conv-1", SenderID: me, CreatedAt: 400},
			{ID: "m3", ConversationID: "conv-1", SenderID: me, CreatedAt: 300},
		},
		2: {
			{ID: "m2", ConversationID: "conv-1", SenderID: "other", CreatedAt: 200},
			{ID: "m1", ConversationID: "conv-1", SenderID: "other", CreatedAt: 100},
		},
	}
	fake := &fakeRequester{
		handler: func(req domain.WSRequest) (domain.WSResponse, error) {
			return domain.WSResponse{Success: true, Data: pages[req.Offset]}, nil
		},
	}

	thread := NewThread(fake, "conv-1", me)
	assert.NoError(t, thread.Load(context.Background()))
	assert.NoError(t, thread.LoadOlder(context.Background()))

	msgs := thread.Messages()
	assert.Len(t, msgs, 4)
	assert.Equal(t, []string{"m1", "m2", "m3", "m4"},
		[]string{msgs[0].ID, msgs[1].ID, msgs[2].ID, msgs[3].ID})
}

// 測試別的 conversation 的推播被過濾掉
func TestThread_HandlePush_FiltersOtherConversations(t *testing.T) {
	thread := NewThread(nil, "conv-1", "user-me")

	thread.HandlePush(domain.Message{ID: "x", ConversationID: "conv-other", SenderID: "other"})
	assert.Empty(t, thread.Messages())

	thread.HandlePush(domain.Message{ID: "y", ConversationID: "conv-1", SenderID: "other"})
	assert.Len(t, thread.Messages(), 1)
}

// 測試 optimistic send: placeholder 先出現, 確認後原地替換
func TestThread_Send_Optimistic(t *testing.T) {
	me := "user-me"
	fake := &fakeRequester{
		handler: func(req domain.WSRequest) (domain.WSResponse, error) {
			msg := domain.Message{
				ID:             "server-id",
				ConversationID: req.ConversationID,
				SenderID:       me,
				Content:        req.Content,
				Type:           req.Type,
				ClientKey:      req.ClientKey,
				CreatedAt:      999,
			}
			return domain.WSResponse{Success: true, Data: msg}, nil
		},
	}

	thread := NewThread(fake, "conv-1", me)
	clientKey, err := thread.Send(context.Background(), "hello", domain.MessageText)

	assert.NoError(t, err)
	assert.NotEmpty(t, clientKey)
	msgs := thread.Messages()
	assert.Len(t, msgs, 1)
	assert.Equal(t, "server-id", msgs[0].ID)
	assert.Equal(t, StatusSent, msgs[0].Status)
	assert.Equal(t, clientKey, fake.lastRequest().ClientKey)
}

// 測試 echo 推播靠 client_key 對消, 不產生重複訊息
func TestThread_Send_EchoDedup(t *testing.T) {
	me := "user-me"
	var sentKey string
	fake := &fakeRequester{
		handler: func(req domain.WSRequest) (domain.WSResponse, error) {
			sentKey = req.ClientKey
			msg := domain.Message{
				ID:             "server-id",
				ConversationID: req.ConversationID,
				SenderID:       me,
				Content:        req.Content,
				ClientKey:      req.ClientKey,
			}
			return domain.WSResponse{Success: true, Data: msg}, nil
		},
	}

	thread := NewThread(fake, "conv-1", me)
	_, err := thread.Send(context.Background(), "hello", domain.MessageText)
	assert.NoError(t, err)

	// 伺服器 echo 同一則訊息回來
	thread.HandlePush(domain.Message{
		ID:             "server-id",
		ConversationID: "conv-1",
		SenderID:       me,
		Content:        "hello",
		ClientKey:      sentKey,
	})

	assert.Len(t, thread.Messages(), 1)
}

// 測試 send 失敗標成 failed, Retry 後轉 sent
func TestThread_Send_FailedAndRetry(t *testing.T) {
	me := "user-me"
	fail := true
	fake := &fakeRequester{
		handler: func(req domain.WSRequest) (domain.WSResponse, error) {
			if fail {
				return domain.WSResponse{}, errors.New("boom")
			}
			msg := domain.Message{
				ID:             "server-id",
				ConversationID: req.ConversationID,
				SenderID:       me,
				Content:        req.Content,
				ClientKey:      req.ClientKey,
			}
			return domain.WSResponse{Success: true, Data: msg}, nil
		},
	}

	thread := NewThread(fake, "conv-1", me)
	clientKey, err := thread.Send(context.Background(), "hello", domain.MessageText)
	assert.Error(t, err)

	msgs := thread.Messages()
	assert.Len(t, msgs, 1)
	assert.Equal(t, StatusFailed, msgs[0].Status)

	fail = false
	assert.NoError(t, thread.Retry(context.Background(), clientKey))

	msgs = thread.Messages()
	assert.Len(t, msgs, 1)
	assert.Equal(t, StatusSent, msgs[0].Status)
	assert.Equal(t, "server-id", msgs[0].ID)
}

// 測試 MarkRead 找最新一則伺服器訊息送 ack
func TestThread_MarkRead(t *testing.T) {
	me := "user-me"
	fake := &fakeRequester{
		handler: func(req domain.WSRequest) (domain.WSResponse, error) {
			if req.Action == string(domain.GetMessages) {
				page := []domain.Message{
					{ID: "m2", ConversationID: "conv-1", SenderID: "other", CreatedAt: 200},
					{ID: "m1", ConversationID: "conv-1", SenderID: "other", CreatedAt: 100},
				}
				return domain.WSResponse{Success: true, Data: page}, nil
			}
			return domain.WSResponse{Success: true}, nil
		},
	}

	thread := NewThread(fake, "conv-1", me)
	assert.NoError(t, thread.Load(context.Background()))
	assert.NoError(t, thread.MarkRead(context.Background()))

	last := fake.lastRequest()
	assert.Equal(t, string(domain.ReadMessage), last.Action)
	assert.Equal(t, "m2", last.MessageID)
}
