package client

import (
	"context"
	"errors"
	"testing"

	"betalift_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
)

// 測試 Refresh 的映射: _id→id, unread 取自己的那格
func TestConversationList_Refresh_Mapping(t *testing.T) {
	me := "user-me"
	fake := &fakeRequester{
		handler: func(req domain.WSRequest) (domain.WSResponse, error) {
			convs := []domain.Conversation{
				{
					ID:           "conv-1",
					Participants: []string{me, "other"},
					LastMessage:  &domain.Message{ID: "m1", SenderID: "other", Content: "yo"},
					UnreadCounts: map[string]int{me: 3, "other": 0},
					UpdatedAt:    200,
				},
				{
					ID:           "conv-2",
					Participants: []string{me, "third"},
					UnreadCounts: map[string]int{me: 0, "third": 5},
					UpdatedAt:    100,
				},
			}
			return domain.WSResponse{Success: true, Data: convs}, nil
		},
	}

	list := NewConversationList(fake, me)
	assert.NoError(t, list.Refresh(context.Background()))

	items := list.Items()
	assert.Len(t, items, 2)
	assert.Equal(t, "conv-1", items[0].ID)
	// unread 只看自己那格
	assert.Equal(t, 3, items[0].Unread)
	assert.Equal(t, 0, items[1].Unread)
	// last_message 也走 isMine 映射
	assert.NotNil(t, items[0].LastMessage)
	assert.False(t, items[0].LastMessage.IsMine)
}

// 測試同一份伺服器狀態重複 Refresh 兩次, 結果完全一致
func TestConversationList_Refresh_Repeatable(t *testing.T) {
	me := "user-me"
	fake := &fakeRequester{
		handler: func(req domain.WSRequest) (domain.WSResponse, error) {
			convs := []domain.Conversation{
				{
					ID:           "conv-1",
					Participants: []string{me, "other"},
					LastMessage:  &domain.Message{ID: "m1", SenderID: "other", Content: "yo"},
					UnreadCounts: map[string]int{me: 3},
					UpdatedAt:    200,
				},
				{ID: "conv-2", Participants: []string{me, "third"}, UpdatedAt: 100},
			}
			return domain.WSResponse{Success: true, Data: convs}, nil
		},
	}

	list := NewConversationList(fake, me)
	assert.NoError(t, list.Refresh(context.Background()))
	first := list.Items()

	assert.NoError(t, list.Refresh(context.Background()))
	assert.Equal(t, first, list.Items())
}

// 測試 Refresh 失敗時保留上一次的結果
func TestConversationList_Refresh_KeepsLastGood(t *testing.T) {
	me := "user-me"
	fail := false
	fake := &fakeRequester{
		handler: func(req domain.WSRequest) (domain.WSResponse, error) {
			if fail {
				return domain.WSResponse{}, errors.New("boom")
			}
			convs := []domain.Conversation{{ID: "conv-1", Participants: []string{me}}}
			return domain.WSResponse{Success: true, Data: convs}, nil
		},
	}

	list := NewConversationList(fake, me)
	assert.NoError(t, list.Refresh(context.Background()))
	assert.Len(t, list.Items(), 1)

	fail = true
	assert.Error(t, list.Refresh(context.Background()))
	// 舊資料還在
	assert.Len(t, list.Items(), 1)
	assert.Equal(t, "conv-1", list.Items()[0].ID)
}
