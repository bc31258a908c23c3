package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"fx-breakout-trader/internal/model"
	"fx-breakout-trader/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type rpcRequest interface {
	requestType() string
}

type candlesRequest struct {
	Type      string `json:"type"`
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Limit     int    `json:"limit"`
}

func (r candlesRequest) requestType() string { return r.Type }

type tradeRequest struct {
	Type  string       `json:"type"`
	Trade tradePayload `json:"trade"`
}

func (r tradeRequest) requestType() string { return r.Type }

// tradePayload 价格以 JSON 数字发送, 避免 float64 转换带来的误差
type tradePayload struct {
	ActionType string      `json:"actionType"`
	Symbol     string      `json:"symbol"`
	Volume     json.Number `json:"volume"`
	StopLoss   json.Number `json:"stopLoss"`
	TakeProfit json.Number `json:"takeProfit"`
	ClientID   string      `json:"clientId,omitempty"`
}

type historyRequest struct {
	Type      string    `json:"type"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Offset    int       `json:"offset"`
	Limit     int       `json:"limit"`
}

func (r historyRequest) requestType() string { return r.Type }

type historyResponse struct {
	HistoryOrders []model.HistoryRecord `json:"historyOrders"`
	Synchronizing bool                  `json:"synchronizing"`
}

const historyPageLimit = 1000

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func actionType(side model.Side) (string, error) {
	switch side {
	case model.SideBuy:
		return "ORDER_TYPE_BUY", nil
	case model.SideSell:
		return "ORDER_TYPE_SELL", nil
	default:
		return "", fmt.Errorf("unsupported order side %q", side)
	}
}

// Session 代表已部署且已连接的账户
// 每次调用都建立新的 RPC 连接, 调用结束即关闭
type Session struct {
	account model.AccountInfo
	cfg     service.AccountConfig
	logger  *zap.Logger
}

// Account 返回连接时的账户快照
func (s *Session) Account() model.AccountInfo {
	return s.account
}

func (s *Session) call(ctx context.Context, request rpcRequest) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	conn, err := DialRPC(ctx, s.cfg.RPCURL, s.cfg.Token, s.cfg.ID, s.logger)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return conn.Call(ctx, request)
}

func isEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// GetHistoricalCandles 返回按时间升序排列的 K 线, 最新的在尾部
func (s *Session) GetHistoricalCandles(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	raw, err := s.call(ctx, candlesRequest{Type: "getCandles", Symbol: symbol, Timeframe: timeframe, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("get candles %s %s: %w", symbol, timeframe, err)
	}
	if isEmpty(raw) {
		return nil, nil
	}

	var candles []model.Candle
	if err := json.Unmarshal(raw, &candles); err != nil {
		return nil, fmt.Errorf("decode candles %s: %w", symbol, err)
	}
	// 部分返回不带 symbol/timeframe, 用请求参数补齐
	for i := range candles {
		if candles[i].Symbol == "" {
			candles[i].Symbol = symbol
		}
		if candles[i].Timeframe == "" {
			candles[i].Timeframe = timeframe
		}
	}
	slices.SortStableFunc(candles, func(a, b model.Candle) int {
		return a.Time.Compare(b.Time)
	})
	return candles, nil
}

// CreateMarketOrder 提交市价单; 空返回时 response 为 nil, 由调用方判定为失败
func (s *Session) CreateMarketOrder(ctx context.Context, req model.OrderRequest) (*model.TradeResponse, error) {
	action, err := actionType(req.Side)
	if err != nil {
		return nil, err
	}

	raw, err := s.call(ctx, tradeRequest{
		Type: "trade",
		Trade: tradePayload{
			ActionType: action,
			Symbol:     req.Symbol,
			Volume:     number(req.Volume),
			StopLoss:   number(req.StopLoss),
			TakeProfit: number(req.TakeProfit),
			ClientID:   req.ClientID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create market order %s %s: %w", req.Side, req.Symbol, err)
	}
	if isEmpty(raw) {
		return nil, nil
	}

	var resp model.TradeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode trade response: %w", err)
	}
	return &resp, nil
}

// GetHistoryOrdersByTime 返回 [from, to] 内的历史订单, 按经纪商返回的时间顺序
// 只读取第一页 (historyPageLimit 条), 不翻页; synchronizing 为 true 时结果可能不完整
func (s *Session) GetHistoryOrdersByTime(ctx context.Context, from, to time.Time) ([]model.HistoryRecord, error) {
	raw, err := s.call(ctx, historyRequest{
		Type:      "getHistoryOrdersByTimeRange",
		StartTime: from.UTC(),
		EndTime:   to.UTC(),
		Offset:    0,
		Limit:     historyPageLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("get history orders: %w", err)
	}
	if isEmpty(raw) {
		return nil, nil
	}

	var resp historyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode history orders: %w", err)
	}
	if resp.Synchronizing {
		s.logger.Debug("History is still synchronizing, result may be incomplete")
	}
	return resp.HistoryOrders, nil
}

// Client 负责把账户带到已连接状态并返回 Session
type Client struct {
	cfg      service.AccountConfig
	accounts *AccountClient
	logger   *zap.Logger
}

func NewClient(cfg service.AccountConfig, logger *zap.Logger, opts ...AccountOption) *Client {
	return &Client{
		cfg:      cfg,
		accounts: NewAccountClient(cfg.ProvisioningURL, cfg.Token, cfg.ID, logger, opts...),
		logger:   logger.With(zap.String("AccountID", cfg.ID)),
	}
}

// Connect 查询账户, 未部署时先部署, 然后等待连接完成
func (c *Client) Connect(ctx context.Context) (*Session, error) {
	info, err := c.accounts.GetAccount(ctx)
	if err != nil {
		return nil, err
	}

	if info.State != StateDeployed {
		c.logger.Info("Deploying trading account...", zap.String("State", info.State))
		if err := c.accounts.Deploy(ctx); err != nil {
			return nil, err
		}
	}

	c.logger.Info("Waiting for account to connect to broker...")
	if err := c.accounts.WaitConnected(ctx, c.cfg.ConnectTimeout); err != nil {
		return nil, err
	}

	// 重新读取一次, 拿到最新状态
	if latest, err := c.accounts.GetAccount(ctx); err == nil {
		info = latest
	}

	return &Session{account: *info, cfg: c.cfg, logger: c.logger}, nil
}
