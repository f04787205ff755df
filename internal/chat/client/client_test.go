package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"betalift_service/internal/chat/domain"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

var upgrader = websocket.Upgrader{}

// echoServer 把每個 request 原樣標記成功回去
func echoServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req domain.WSRequest
			if err := json.Unmarshal(data, &req); err != nil {
				continue
			}
			resp := domain.WSResponse{RequestID: req.RequestID, Action: req.Action, Success: true}
			b, _ := json.Marshal(resp)
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// 測試 Request 走完整的 socket 往返
func TestClient_RequestRoundTrip(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	c := New(wsURL(srv), "test-token", Options{})
	assert.NoError(t, c.Connect(context.Background()))
	defer c.Close()
	assert.Equal(t, StateConnected, c.State())

	resp, err := c.Request(context.Background(), domain.WSRequest{Action: string(domain.GetConversations)})
	assert.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, string(domain.GetConversations), resp.Action)
}

// 測試重複 Connect 是 no-op, 不會開出第二條連線
func TestClient_ConnectIdempotent(t *testing.T) {
	var connCount int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&connCount, 1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := New(wsURL(srv), "test-token", Options{})
	assert.NoError(t, c.Connect(context.Background()))
	defer c.Close()
	assert.NoError(t, c.Connect(context.Background()))

	assert.Equal(t, StateConnected, c.State())
	assert.Equal(t, int32(1), atomic.LoadInt32(&connCount))
}

// 測試重複 Close 不會 panic
func TestClient_CloseTwice(t *testing.T) {
	c := New("ws://127.0.0.1:0", "test-token", Options{})
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

// 測試未連線時 Request 直接失敗
func TestClient_RequestNotConnected(t *testing.T) {
	c := New("ws://127.0.0.1:0", "test-token", Options{})
	_, err := c.Request(context.Background(), domain.WSRequest{Action: "x"})
	assert.ErrorIs(t, err, ErrNotConnected)
}

// 測試斷線後退避重連, 狀態走 reconnecting → connected
func TestClient_Reconnect(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	c := New(wsURL(srv), "test-token", Options{
		BaseDelay:  10 * time.Millisecond,
		MaxDelay:   50 * time.Millisecond,
		MaxRetries: 20,
	})

	states := make(chan State, 16)
	c.OnStateChange(func(s State) { states <- s })

	assert.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	// 把底層連線踢斷, 觸發重連
	c.mu.Lock()
	c.conn.Close()
	c.mu.Unlock()

	sawReconnecting := false
	deadline := time.After(3 * time.Second)
	for {
		select {
		case s := <-states:
			if s == StateReconnecting {
				sawReconnecting = true
			}
			if sawReconnecting && s == StateConnected {
				// 重連後要能正常收發
				resp, err := c.Request(context.Background(), domain.WSRequest{Action: "ping"})
				assert.NoError(t, err)
				assert.True(t, resp.Success)
				return
			}
		case <-deadline:
			t.Fatal("client did not reconnect in time")
		}
	}
}

// 測試退避序列: 指數成長, 有上限, jitter 不超過 25%
func TestClient_NextDelay(t *testing.T) {
	c := New("ws://x", "", Options{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		MaxRetries: 5,
	})

	prevBase := time.Duration(0)
	for attempt := 0; attempt < 8; attempt++ {
		d := c.nextDelay(attempt)
		base := 100 * time.Millisecond << uint(attempt)
		if base > time.Second || base <= 0 {
			base = time.Second
		}
		assert.GreaterOrEqual(t, d, base)
		assert.Less(t, d, base+base/4+time.Millisecond)
		assert.GreaterOrEqual(t, base, prevBase)
		prevBase = base
	}
}
