package client

import (
	"errors"
	"sync"

	"betalift_service/internal/chat/domain"
)

// ErrConnectionLost 連線中斷時, 所有等待中的 request 都以此錯誤結束
var ErrConnectionLost = errors.New("connection lost")

// Dispatcher 單一讀取點。
// 有 request_id 的回應配對給等待中的 request,
// 沒有的(new_message 等伺服器推播)交給 push handler。
type Dispatcher struct {
	mu           sync.Mutex
	pending      map[string]chan result
	pushHandlers []func(domain.WSResponse)
}

type result struct {
	resp domain.WSResponse
	err  error
}

// NewDispatcher create Dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		pending: make(map[string]chan result),
	}
}

// OnPush 註冊伺服器推播的 handler
func (d *Dispatcher) OnPush(fn func(domain.WSResponse)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushHandlers = append(d.pushHandlers, fn)
}

// Register 登記一個等待回應的 request_id
func (d *Dispatcher) Register(requestID string) <-chan result {
	ch := make(chan result, 1)
	d.mu.Lock()
	d.pending[requestID] = ch
	d.mu.Unlock()
	return ch
}

// Cancel 取消等待, caller timeout 時呼叫
func (d *Dispatcher) Cancel(requestID string) {
	d.mu.Lock()
	delete(d.pending, requestID)
	d.mu.Unlock()
}

// Dispatch 分發一筆伺服器訊息
func (d *Dispatcher) Dispatch(resp domain.WSResponse) {
	d.mu.Lock()
	if resp.RequestID != "" {
		if ch, ok := d.pending[resp.RequestID]; ok {
			delete(d.pending, resp.RequestID)
			d.mu.Unlock()
			ch <- result{resp: resp}
			return
		}
	}
	handlers := make([]func(domain.WSResponse), len(d.pushHandlers))
	copy(handlers, d.pushHandlers)
	d.mu.Unlock()

	for _, fn := range handlers {
		fn(resp)
	}
}

// FailAll 斷線時呼叫, 讓所有等待中的 request 立刻失敗而不是卡到 timeout
func (d *Dispatcher) FailAll() {
	d.mu.Lock()
	pending := d.pending
	d.pending = make(map[string]chan result)
	d.mu.Unlock()

	for _, ch := range pending {
		ch <- result{err: ErrConnectionLost}
	}
}
