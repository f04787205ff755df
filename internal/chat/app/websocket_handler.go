package app

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"betalift_service/internal/chat/domain"
	"betalift_service/internal/chat/repository"
	"betalift_service/pkg/logger"
	"betalift_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// messageWriter 寫 websocket frame 的最小介面
type messageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// wsConn 包住單一連線, 序列化應用層寫入。
// gorilla 系連線同時只允許一個 writer, 回應/推播/ping 可能同時寫。
type wsConn struct {
	conn    messageWriter
	writeMu sync.Mutex
}

func (c *wsConn) WriteMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

// ChatWebsocketHandler 可包含所有需要的 UseCase
type ChatWebsocketHandler struct {
	convUC    *ConversationUseCase
	messageUC *SendMessageUseCase
	pubSub    repository.ChatPubSub
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	convUC *ConversationUseCase,
	messageUC *SendMessageUseCase,
	pubSub repository.ChatPubSub,
) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		convUC:    convUC,
		messageUC: messageUC,
		pubSub:    pubSub,
	}
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	tokenUser := conn.Locals(middlewares.TokenUserID)
	userID, ok := tokenUser.(string)
	logger.Log.Info("websocket handle userID", zap.String("userID", userID), zap.String("ok", strconv.FormatBool(ok)))

	wc := &wsConn{conn: conn}

	ticker := time.NewTicker(10 * time.Minute)
	ctxClose, cancel := context.WithCancel(context.Background())

	defer func() {
		ticker.Stop()
		logger.Log.Info("websocket close", zap.String("userID", userID))
		conn.Close()
		cancel()
	}()

	//client發出close
	//fiber會自動處理(在read msg 回傳err),故需要SetCloseHandler另外接出
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	//server發出ping之後client連線正常會回pong
	//fiber會自動處理回傳pong,故需要SetPongHandler另外接出
	conn.SetPongHandler(func(appData string) error {
		logger.Log.Infof("Received PONG:", appData)
		return nil
	})

	//client發出ping
	//fiber會自動處理ping,故需要SetPingHandler另外接出
	conn.SetPingHandler(func(appData string) error {
		logger.Log.Infof("Received PING:", appData)
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	//啟用sub訂閱自己的訊息, 同一個 user 的每條連線都會收到 new_message
	channel := repository.UserChannel(userID)
	h.pubSub.Subscribe(ctxClose, channel, func(resp domain.WSResponse) {
		h.sendResponse(wc, resp)
	})

	// 定期發送 Ping
	go func() {
		for {
			select {
			case <-ticker.C:
				pingMsg := "ping message"
				if err := wc.WriteMessage(websocket.PingMessage, []byte(pingMsg)); err != nil {
					logger.Log.Errorf("Ping error:", err)
					return
				}
				logger.Log.Infof("%s Ping sent", userID)
			case <-ctxClose.Done():
				logger.Log.Infof("Ping goroutine cancelled for user:", userID)
				return
			}
		}
	}()

	for {
		// 1. 讀取前端訊息
		mt, message, err := conn.ReadMessage()
		if err != nil {
			// 檢查是否為 Close 正常結束
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Errorf("Connection closed:", err)
			} else {
				//直接斷線 1006
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		h.execWebsocketAction(ctx, wc, userID, mt, message)
	}
}

func (h *ChatWebsocketHandler) execWebsocketAction(ctx context.Context, wc *wsConn, userID string, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, wc, userID, msg)

	default:
		h.sendError(wc, "", "unknown message type")
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, wc *wsConn, userID string, msg []byte) {

	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		log.Printf("json unmarshal error: %v", err)
		return
	}

	// request_id 原樣帶回, 客戶端靠它配對 request/response
	resp := domain.WSResponse{RequestID: req.RequestID, Action: req.Action, Success: false}
	switch req.Action {
	//完整的 conversation 列表, 客戶端收到 new_message 後會整包重拉
	case string(domain.GetConversations):
		convs, err := h.convUC.List(ctx, userID)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Action = string(domain.ConversationsList)
			resp.Success = true
			resp.Data = convs
		}

	//取一頁歷史訊息, 最新在前
	case string(domain.GetMessages):
		msgs, err := h.messageUC.GetMessages(ctx, req.ConversationID, userID, req.Limit, req.Offset)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Data = msgs
		}

	//傳送訊息, 寫入db並廣播給所有參與者
	case string(domain.SendMessage):
		newMsg, err := h.messageUC.Execute(ctx, SendMessageCmd{
			ConversationID: req.ConversationID,
			RecipientID:    req.RecipientID,
			SenderID:       userID,
			Content:        req.Content,
			Type:           req.Type,
			Attachments:    req.Attachments,
			ClientKey:      req.ClientKey,
		})
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Data = newMsg
		}

	//讀取訊息, 將未讀訊息改為已讀並歸零未讀數
	case string(domain.ReadMessage):
		err := h.messageUC.MarkRead(ctx, req.ConversationID, req.MessageID, userID)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
		}

	default:
		h.sendError(wc, req.RequestID, "unknown action")
		return
	}

	if resp.Error != "" {
		logger.Log.Error("websocket err ", zap.String("UserID", userID), zap.String("Action", req.Action), zap.String("err", resp.Error))
	}
	h.sendResponse(wc, resp)
}

// sendResponse - 發送 JSON 給前端
func (h *ChatWebsocketHandler) sendResponse(wc *wsConn, resp domain.WSResponse) {
	b, _ := json.Marshal(resp)
	if err := wc.WriteMessage(websocket.TextMessage, b); err != nil {
		logger.Log.Errorf("write message error:", err)
	}
}

func (h *ChatWebsocketHandler) sendError(wc *wsConn, requestID, errorMsg string) {
	resp := domain.WSResponse{
		RequestID: requestID,
		Action:    "error",
		Success:   false,
		Error:     errorMsg,
	}
	h.sendResponse(wc, resp)
}
