package app

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"betalift_service/internal/chat/domain"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
)

// overlapWriter 記錄是否有兩個 goroutine 同時進到 WriteMessage
type overlapWriter struct {
	inFlight int32
	overlap  int32
	writes   int32
}

func (w *overlapWriter) WriteMessage(messageType int, data []byte) error {
	if atomic.AddInt32(&w.inFlight, 1) > 1 {
		atomic.StoreInt32(&w.overlap, 1)
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(&w.inFlight, -1)
	atomic.AddInt32(&w.writes, 1)
	return nil
}

// 測試回應/推播/ping 同時寫同一條連線時寫入被序列化
func TestWsConn_SerializesConcurrentWrites(t *testing.T) {
	h := NewChatWebsocketHandler(nil, nil, nil)
	w := &overlapWriter{}
	wc := &wsConn{conn: w}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		// request 回應與 pubsub 推播走 sendResponse
		go func() {
			defer wg.Done()
			h.sendResponse(wc, domain.WSResponse{Action: string(domain.NewMessage), Success: true})
		}()
		// ping ticker 直接寫 control frame 以外的 ping
		go func() {
			defer wg.Done()
			_ = wc.WriteMessage(websocket.PingMessage, []byte("ping message"))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(0), atomic.LoadInt32(&w.overlap))
	assert.Equal(t, int32(20), atomic.LoadInt32(&w.writes))
}
