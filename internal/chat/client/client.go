package client

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"betalift_service/internal/chat/domain"
	"betalift_service/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// State 連線狀態
type State string

const (
	// StateDisconnected 未連線, 或重試次數用盡後放棄
	StateDisconnected State = "disconnected"
	// StateConnecting 第一次連線中
	StateConnecting State = "connecting"
	// StateConnected 連線正常
	StateConnected State = "connected"
	// StateReconnecting 斷線後退避重連中
	StateReconnecting State = "reconnecting"
)

const (
	defaultBaseDelay   = 500 * time.Millisecond
	defaultMaxDelay    = 30 * time.Second
	defaultMaxRetries  = 10
	defaultRequestWait = 10 * time.Second
)

// ErrNotConnected request 在非 connected 狀態送出
var ErrNotConnected = errors.New("client not connected")

// Requester 對 synchronizer 暴露的最小介面, 測試時可直接替換
type Requester interface {
	Request(ctx context.Context, req domain.WSRequest) (domain.WSResponse, error)
}

// Options 客戶端參數, 零值使用預設
type Options struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	MaxRetries int
}

// Client websocket 客戶端, 負責連線生命週期與 request/response 配對
type Client struct {
	url    string
	token  string
	dialer *websocket.Dialer

	opts       Options
	dispatcher *Dispatcher

	mu      sync.Mutex
	conn    *websocket.Conn
	state   State
	writeMu sync.Mutex

	onState   func(State)
	closed    chan struct{}
	closeOnce sync.Once
}

// New create Client, url 需含 ws:// 與 token query
func New(url, token string, opts Options) *Client {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = defaultMaxDelay
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	return &Client{
		url:        url,
		token:      token,
		dialer:     websocket.DefaultDialer,
		opts:       opts,
		dispatcher: NewDispatcher(),
		state:      StateDisconnected,
		closed:     make(chan struct{}),
	}
}

// Dispatcher expose dispatcher for push subscription
func (c *Client) Dispatcher() *Dispatcher {
	return c.dispatcher
}

// OnStateChange 註冊狀態變化 callback
func (c *Client) OnStateChange(fn func(State)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

// State current connection state
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	fn := c.onState
	c.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

// Connect 建立連線並啟動讀取迴圈, 已連線或連線中時為 no-op
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	fn := c.onState
	c.mu.Unlock()
	if fn != nil {
		fn(StateConnecting)
	}

	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(StateDisconnected)
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(StateConnected)

	go c.readLoop(ctx, conn)
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url+"?auth="+c.token, nil)
	return conn, err
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
				return
			default:
			}
			logger.Log.Warn("client read error", zap.Error(err))
			c.reconnect(ctx)
			return
		}

		var resp domain.WSResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			logger.Log.Warn("client bad frame", zap.Error(err))
			continue
		}
		c.dispatcher.Dispatch(resp)
	}
}

// reconnect 指數退避加 jitter, 超過 MaxRetries 放棄
func (c *Client) reconnect(ctx context.Context) {
	// 等待中的 request 立刻失敗, 不留到新連線
	c.dispatcher.FailAll()
	c.setState(StateReconnecting)

	for attempt := 0; attempt < c.opts.MaxRetries; attempt++ {
		delay := c.nextDelay(attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			c.setState(StateDisconnected)
			return
		case <-c.closed:
			c.setState(StateDisconnected)
			return
		}

		conn, err := c.dial(ctx)
		if err != nil {
			logger.Log.Warn("reconnect failed",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		c.setState(StateConnected)
		go c.readLoop(ctx, conn)
		return
	}

	logger.Log.Error("reconnect gave up", zap.Int("max_retries", c.opts.MaxRetries))
	c.setState(StateDisconnected)
}

// nextDelay base * 2^attempt, 上限 MaxDelay, 加上 0~25% jitter 避免羊群效應
func (c *Client) nextDelay(attempt int) time.Duration {
	delay := c.opts.BaseDelay << uint(attempt)
	if delay > c.opts.MaxDelay || delay <= 0 {
		delay = c.opts.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay) / 4))
	return delay + jitter
}

// Request 送出一筆請求並等待配對的回應
func (c *Client) Request(ctx context.Context, req domain.WSRequest) (domain.WSResponse, error) {
	c.mu.Lock()
	conn := c.conn
	state := c.state
	c.mu.Unlock()
	if state != StateConnected || conn == nil {
		return domain.WSResponse{}, ErrNotConnected
	}

	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	ch := c.dispatcher.Register(req.RequestID)

	b, err := json.Marshal(req)
	if err != nil {
		c.dispatcher.Cancel(req.RequestID)
		return domain.WSResponse{}, err
	}

	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, b)
	c.writeMu.Unlock()
	if err != nil {
		c.dispatcher.Cancel(req.RequestID)
		return domain.WSResponse{}, err
	}

	timeout := time.NewTimer(defaultRequestWait)
	defer timeout.Stop()
	select {
	case r := <-ch:
		return r.resp, r.err
	case <-timeout.C:
		c.dispatcher.Cancel(req.RequestID)
		return domain.WSResponse{}, errors.New("request timeout")
	case <-ctx.Done():
		c.dispatcher.Cancel(req.RequestID)
		return domain.WSResponse{}, ctx.Err()
	}
}

// Close 關閉連線, 不再重連, 重複呼叫安全
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}
