package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	frameRequest         = "request"
	frameResponse        = "response"
	frameProcessingError = "processingError"
)

// rpcFrame 适用于请求和响应的通用帧结构
type rpcFrame struct {
	Type        string          `json:"type"`
	RequestID   string          `json:"requestId"`
	AccountID   string          `json:"accountId,omitempty"`
	Application string          `json:"application,omitempty"`
	Request     any             `json:"request,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"` // 延迟解析
	Error       string          `json:"error,omitempty"`
	Message     string          `json:"message,omitempty"`
}

// RPCConnection 一次调用使用一条 WebSocket 连接, 调用结束即关闭
type RPCConnection struct {
	conn      *websocket.Conn
	accountID string
	logger    *zap.Logger
	closeOnce sync.Once
}

// DialRPC 建立 RPC 连接, auth-token 放在请求头里
func DialRPC(ctx context.Context, rpcURL, token, accountID string, logger *zap.Logger) (*RPCConnection, error) {
	u, err := url.Parse(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("parse rpc url: %w", err)
	}
	q := u.Query()
	q.Set("accountId", accountID)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("auth-token", token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("dial rpc %s: %w", u.Host, err)
	}
	return &RPCConnection{conn: conn, accountID: accountID, logger: logger}, nil
}

// Call 发送一个请求并阻塞等待相同 requestId 的响应
// 其他 requestId 的帧 (例如同步事件) 直接忽略
func (c *RPCConnection) Call(ctx context.Context, request rpcRequest) (json.RawMessage, error) {
	requestID := uuid.NewString()

	// ctx 取消时关闭连接, 让阻塞中的 ReadJSON 返回
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.abort()
		case <-done:
		}
	}()

	frame := rpcFrame{
		Type:        frameRequest,
		RequestID:   requestID,
		AccountID:   c.accountID,
		Application: "RPC",
		Request:     request,
	}
	if err := c.conn.WriteJSON(frame); err != nil {
		return nil, c.wrapErr(ctx, fmt.Errorf("send %s: %w", request.requestType(), err))
	}

	for {
		var resp rpcFrame
		if err := c.conn.ReadJSON(&resp); err != nil {
			return nil, c.wrapErr(ctx, fmt.Errorf("read %s: %w", request.requestType(), err))
		}
		if resp.RequestID != requestID {
			continue
		}

		switch resp.Type {
		case frameResponse:
			return resp.Response, nil
		case frameProcessingError:
			return nil, &GatewayError{Op: request.requestType(), Code: resp.Error, Message: resp.Message}
		default:
			c.logger.Debug("Ignoring rpc frame", zap.String("Type", resp.Type), zap.String("RequestID", requestID))
		}
	}
}

func (c *RPCConnection) wrapErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Join(ctxErr, err)
	}
	return err
}

// abort 只关闭底层连接, 不写关闭帧, 可以和读写并发调用
func (c *RPCConnection) abort() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
}

// Close 发送关闭帧后断开连接
func (c *RPCConnection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = c.conn.Close()
	})
	return err
}
