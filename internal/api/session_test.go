package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"fx-breakout-trader/internal/model"
	"fx-breakout-trader/internal/service"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testAccountConfig(provisioningURL, rpcURL string) service.AccountConfig {
	return service.AccountConfig{
		Token:           "token-1",
		ID:              "acc-1",
		ProvisioningURL: provisioningURL,
		RPCURL:          rpcURL,
		ConnectTimeout:  2 * time.Second,
		RequestTimeout:  2 * time.Second,
	}
}

type receivedFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId"`
	AccountID string          `json:"accountId"`
	Request   json.RawMessage `json:"request"`
}

// fakeRPC 模拟 RPC WebSocket 端点, reply 根据请求生成响应帧
type fakeRPC struct {
	mu          sync.Mutex
	requests    []receivedFrame
	connections int
	reply       func(req receivedFrame) []map[string]any
}

func (f *fakeRPC) serve(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("auth-token") != "token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		f.mu.Lock()
		f.connections++
		f.mu.Unlock()

		for {
			var req receivedFrame
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			f.mu.Lock()
			f.requests = append(f.requests, req)
			f.mu.Unlock()

			for _, frame := range f.reply(req) {
				if _, ok := frame["requestId"]; !ok {
					frame["requestId"] = req.RequestID
				}
				if err := conn.WriteJSON(frame); err != nil {
					return
				}
			}
		}
	}))
}

func (f *fakeRPC) recorded() []receivedFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]receivedFrame(nil), f.requests...)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newTestSession(rpcURL string) *Session {
	return &Session{cfg: testAccountConfig("http://unused", rpcURL), logger: zap.NewNop()}
}

func TestSession_GetHistoricalCandles(t *testing.T) {
	fake := &fakeRPC{reply: func(req receivedFrame) []map[string]any {
		return []map[string]any{
			// 其他请求的帧应被忽略
			{"type": "response", "requestId": "someone-else", "response": []any{}},
			{"type": "response", "response": json.RawMessage(`[
				{"symbol":"EURUSD","timeframe":"15m","time":"2025-03-01T10:15:00Z","open":1.1040,"high":1.1065,"low":1.1035,"close":1.1060},
				{"symbol":"EURUSD","timeframe":"15m","time":"2025-03-01T10:00:00Z","open":1.1030,"high":1.1050,"low":1.1020,"close":1.1040}
			]`)},
		}
	}}
	srv := fake.serve(t)
	defer srv.Close()

	candles, err := newTestSession(wsURL(srv)).GetHistoricalCandles(context.Background(), "EURUSD", "15m", 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	// 按时间升序
	assert.True(t, candles[0].Time.Before(candles[1].Time))
	assert.True(t, candles[0].High.Equal(decimal.RequireFromString("1.1050")))
	assert.True(t, candles[1].Close.Equal(decimal.RequireFromString("1.1060")))

	requests := fake.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, "request", requests[0].Type)
	assert.Equal(t, "acc-1", requests[0].AccountID)
	assert.JSONEq(t, `{"type":"getCandles","symbol":"EURUSD","timeframe":"15m","limit":2}`, string(requests[0].Request))
}

func TestSession_GetHistoricalCandles_FillsRequestedSymbol(t *testing.T) {
	fake := &fakeRPC{reply: func(req receivedFrame) []map[string]any {
		return []map[string]any{{"type": "response", "response": json.RawMessage(`[
			{"time":"2025-03-01T10:00:00Z","open":1.1030,"high":1.1050,"low":1.1020,"close":1.1040},
			{"symbol":"EURUSD","time":"2025-03-01T10:15:00Z","open":1.1040,"high":1.1065,"low":1.1035,"close":1.1060}
		]`)}}
	}}
	srv := fake.serve(t)
	defer srv.Close()

	candles, err := newTestSession(wsURL(srv)).GetHistoricalCandles(context.Background(), "EURUSD", "15m", 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	for _, c := range candles {
		assert.Equal(t, "EURUSD", c.Symbol)
		assert.Equal(t, "15m", c.Timeframe)
	}
}

func TestSession_CreateMarketOrder(t *testing.T) {
	fake := &fakeRPC{reply: func(req receivedFrame) []map[string]any {
		return []map[string]any{{"type": "response", "response": map[string]any{
			"numericCode": 10009, "stringCode": "TRADE_RETCODE_DONE", "message": "Request completed",
			"orderId": "46870472", "positionId": "46870472",
		}}}
	}}
	srv := fake.serve(t)
	defer srv.Close()

	req := model.OrderRequest{
		ClientID:   "client-1",
		Symbol:     "EURUSD",
		Side:       model.SideBuy,
		Kind:       model.OrderKindMarket,
		Volume:     decimal.RequireFromString("5"),
		EntryPrice: decimal.RequireFromString("1.1060"),
		StopLoss:   decimal.RequireFromString("1.1035"),
		TakeProfit: decimal.RequireFromString("26.106"),
	}

	resp, err := newTestSession(wsURL(srv)).CreateMarketOrder(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.OK())
	assert.Equal(t, "46870472", resp.OrderID)

	requests := fake.recorded()
	require.Len(t, requests, 1)
	assert.JSONEq(t, `{"type":"trade","trade":{"actionType":"ORDER_TYPE_BUY","symbol":"EURUSD","volume":5,"stopLoss":1.1035,"takeProfit":26.106,"clientId":"client-1"}}`,
		string(requests[0].Request))
}

func TestSession_CreateMarketOrderEmptyResponse(t *testing.T) {
	fake := &fakeRPC{reply: func(req receivedFrame) []map[string]any {
		return []map[string]any{{"type": "response", "response": nil}}
	}}
	srv := fake.serve(t)
	defer srv.Close()

	req := model.OrderRequest{Symbol: "EURUSD", Side: model.SideSell, Volume: decimal.NewFromInt(5)}
	resp, err := newTestSession(wsURL(srv)).CreateMarketOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.False(t, resp.OK())
}

func TestSession_ProcessingError(t *testing.T) {
	fake := &fakeRPC{reply: func(req receivedFrame) []map[string]any {
		return []map[string]any{{"type": "processingError", "error": "ValidationError", "message": "symbol not found"}}
	}}
	srv := fake.serve(t)
	defer srv.Close()

	_, err := newTestSession(wsURL(srv)).GetHistoricalCandles(context.Background(), "XXXYYY", "15m", 2)

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "getCandles", gwErr.Op)
	assert.Equal(t, "ValidationError", gwErr.Code)
	assert.Equal(t, "symbol not found", gwErr.Message)
}

func TestSession_GetHistoryOrdersByTime(t *testing.T) {
	fake := &fakeRPC{reply: func(req receivedFrame) []map[string]any {
		return []map[string]any{{"type": "response", "response": json.RawMessage(`{
			"historyOrders":[
				{"id":"1","type":"ORDER_TYPE_BUY","state":"ORDER_STATE_FILLED","symbol":"EURUSD","volume":5,"doneTime":"2025-03-01T10:16:00Z"},
				{"id":"2","type":"ORDER_TYPE_SELL","state":"ORDER_STATE_FILLED","symbol":"GBPUSD","volume":5,"doneTime":"2025-03-01T10:31:00Z"}
			],
			"synchronizing":false}`)}}
	}}
	srv := fake.serve(t)
	defer srv.Close()

	to := time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)
	records, err := newTestSession(wsURL(srv)).GetHistoryOrdersByTime(context.Background(), to.Add(-time.Hour), to)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0].ID)
	assert.Equal(t, "GBPUSD", records[1].Symbol)

	var sent historyRequest
	requests := fake.recorded()
	require.Len(t, requests, 1)
	require.NoError(t, json.Unmarshal(requests[0].Request, &sent))
	assert.Equal(t, "getHistoryOrdersByTimeRange", sent.Type)
	assert.True(t, sent.StartTime.Equal(to.Add(-time.Hour)))
	assert.True(t, sent.EndTime.Equal(to))
	// 单页读取
	assert.Equal(t, 0, sent.Offset)
	assert.Equal(t, historyPageLimit, sent.Limit)
}

func TestSession_FreshConnectionPerCall(t *testing.T) {
	fake := &fakeRPC{reply: func(req receivedFrame) []map[string]any {
		return []map[string]any{{"type": "response", "response": []any{}}}
	}}
	srv := fake.serve(t)
	defer srv.Close()

	session := newTestSession(wsURL(srv))
	for i := 0; i < 3; i++ {
		_, err := session.GetHistoricalCandles(context.Background(), "EURUSD", "15m", 2)
		require.NoError(t, err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 3, fake.connections)
}

func TestSession_CallHonoursContext(t *testing.T) {
	// 服务端从不回复
	fake := &fakeRPC{reply: func(req receivedFrame) []map[string]any { return nil }}
	srv := fake.serve(t)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newTestSession(wsURL(srv)).GetHistoricalCandles(ctx, "EURUSD", "15m", 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSession_Unauthorized(t *testing.T) {
	fake := &fakeRPC{reply: func(req receivedFrame) []map[string]any { return nil }}
	srv := fake.serve(t)
	defer srv.Close()

	s := newTestSession(wsURL(srv))
	s.cfg.Token = "wrong"
	_, err := s.GetHistoricalCandles(context.Background(), "EURUSD", "15m", 2)
	assert.Error(t, err)
}
