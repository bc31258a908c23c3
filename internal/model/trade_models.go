package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side 订单方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) String() string {
	return string(s)
}

// SignalType 突破检测的结果
type SignalType string

const (
	SignalNone SignalType = "NONE" // 无突破
	SignalBuy  SignalType = "BUY"  // 收盘价突破前一根 K 线最高价
	SignalSell SignalType = "SELL" // 收盘价跌破前一根 K 线最低价
)

// Side 将非 NONE 信号转换为订单方向
func (s SignalType) Side() (Side, bool) {
	switch s {
	case SignalBuy:
		return SideBuy, true
	case SignalSell:
		return SideSell, true
	default:
		return "", false
	}
}

// OrderKind 只支持市价单
type OrderKind string

const OrderKindMarket OrderKind = "MARKET"

// OrderRequest 是策略层向执行层发出的完整下单指令, 构造后不可修改
type OrderRequest struct {
	ClientID   string
	Symbol     string
	Side       Side
	Kind       OrderKind
	Volume     decimal.Decimal
	EntryPrice decimal.Decimal // 参考入场价 (触发 K 线收盘价), 市价单不发送给经纪商
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
	CreatedAt  time.Time
}

func (r OrderRequest) String() string {
	return fmt.Sprintf("ORDER [%s %s %s] %s @ ~%s | SL: %s | TP: %s",
		r.Kind, r.Side, r.Symbol, r.Volume, r.EntryPrice, r.StopLoss, r.TakeProfit)
}

// ExecutionStatus 下单结果
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "SUCCESS"
	ExecutionFailure ExecutionStatus = "FAILURE"
)

// ExecutionResult 记录一次下单的结果
type ExecutionResult struct {
	Status     ExecutionStatus
	OrderID    string
	PositionID string
	Reason     string // 失败原因或经纪商原始返回
	Request    OrderRequest
	ExecutedAt time.Time
}

func (r ExecutionResult) OK() bool {
	return r.Status == ExecutionSuccess
}

// TradeResponse 经纪商交易接口的原始返回
type TradeResponse struct {
	NumericCode int    `json:"numericCode"`
	StringCode  string `json:"stringCode"`
	Message     string `json:"message"`
	OrderID     string `json:"orderId"`
	PositionID  string `json:"positionId"`
}

var successCodes = map[string]struct{}{
	"ERR_NO_ERROR":               {},
	"TRADE_RETCODE_PLACED":       {},
	"TRADE_RETCODE_DONE":         {},
	"TRADE_RETCODE_DONE_PARTIAL": {}, // 部分成交, 仓位已存在
	"TRADE_RETCODE_NO_CHANGES":   {},
}

// OK 判断返回是否为成功: 空返回视为失败
func (r *TradeResponse) OK() bool {
	if r == nil {
		return false
	}
	if r.StringCode == "" {
		return r.OrderID != ""
	}
	_, ok := successCodes[strings.ToUpper(r.StringCode)]
	return ok
}

func (r *TradeResponse) String() string {
	if r == nil {
		return "<empty response>"
	}
	return fmt.Sprintf("code=%s(%d) order=%s position=%s message=%q",
		r.StringCode, r.NumericCode, r.OrderID, r.PositionID, r.Message)
}

// HistoryRecord 经纪商返回的历史订单, 对核心逻辑不透明, 只用于日志输出
type HistoryRecord struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	State      string          `json:"state"`
	Symbol     string          `json:"symbol"`
	Volume     decimal.Decimal `json:"volume"`
	OpenPrice  decimal.Decimal `json:"openPrice"`
	StopLoss   decimal.Decimal `json:"stopLoss"`
	TakeProfit decimal.Decimal `json:"takeProfit"`
	ClientID   string          `json:"clientId"`
	Comment    string          `json:"comment,omitempty"`
	Time       time.Time       `json:"time"`
	DoneTime   time.Time       `json:"doneTime"`
}

func (h HistoryRecord) String() string {
	return fmt.Sprintf("%s %s %s %s vol=%s @ %s SL=%s TP=%s done=%s",
		h.ID, h.Symbol, h.Type, h.State, h.Volume, h.OpenPrice, h.StopLoss, h.TakeProfit,
		h.DoneTime.UTC().Format(time.RFC3339))
}
