package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fx-breakout-trader/internal/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	paperOrderPrefix = "PAPER-"

	orderTypeBuy     = "ORDER_TYPE_BUY"
	orderTypeSell    = "ORDER_TYPE_SELL"
	orderStateFilled = "ORDER_STATE_FILLED"

	closeReasonSL = "SL"
	closeReasonTP = "TP"
)

// paperPosition 模拟持仓
type paperPosition struct {
	id          string
	req         model.OrderRequest
	openedAfter time.Time // 开仓时已见过的最新 K 线时间, 之后的 K 线才参与 SL/TP 检查
}

// SimulatorExecutor 纸面交易执行器, 实现了 Executor 接口
// 订单以参考入场价立即成交, 不向经纪商发送任何订单
type SimulatorExecutor struct {
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time

	mu         sync.Mutex
	seq        int
	positions  map[string][]*paperPosition // symbol -> 未平仓位
	lastCandle map[string]time.Time
	history    []model.HistoryRecord
}

func NewSimulatorExecutor(recorder Recorder, logger *zap.Logger) *SimulatorExecutor {
	return &SimulatorExecutor{
		recorder:   recorder,
		logger:     logger.With(zap.String("executor", "simulator")),
		now:        time.Now,
		positions:  make(map[string][]*paperPosition),
		lastCandle: make(map[string]time.Time),
	}
}

func (e *SimulatorExecutor) nextID() string {
	e.seq++
	return fmt.Sprintf("%s%d", paperOrderPrefix, e.seq)
}

// SubmitOrder 模拟下单, 总是成功
func (e *SimulatorExecutor) SubmitOrder(ctx context.Context, req model.OrderRequest) (model.ExecutionResult, error) {
	e.mu.Lock()
	now := e.now()
	id := e.nextID()
	e.positions[req.Symbol] = append(e.positions[req.Symbol], &paperPosition{
		id:          id,
		req:         req,
		openedAfter: e.lastCandle[req.Symbol],
	})
	e.history = append(e.history, model.HistoryRecord{
		ID:         id,
		Type:       orderType(req.Side),
		State:      orderStateFilled,
		Symbol:     req.Symbol,
		Volume:     req.Volume,
		OpenPrice:  req.EntryPrice,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		ClientID:   req.ClientID,
		Time:       now,
		DoneTime:   now,
	})
	e.mu.Unlock()

	result := model.ExecutionResult{
		Status:     model.ExecutionSuccess,
		OrderID:    id,
		PositionID: id,
		Request:    req,
		ExecutedAt: now,
	}
	e.logger.Info("Sim ORDER FILLED (OPEN)",
		zap.Stringer("Order", req),
		zap.String("OrderID", id))

	if e.recorder != nil {
		if err := e.recorder.RecordExecution(ctx, result); err != nil {
			e.logger.Error("Failed to journal execution result", zap.String("ClientID", req.ClientID), zap.Error(err))
		}
	}
	return result, nil
}

// ObserveCandle 用新 K 线检查该品种的模拟持仓是否触发止损或止盈
// 同一根 K 线同时覆盖 SL 和 TP 时按止损处理
func (e *SimulatorExecutor) ObserveCandle(candle model.Candle) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if candle.Time.After(e.lastCandle[candle.Symbol]) {
		e.lastCandle[candle.Symbol] = candle.Time
	}

	open := e.positions[candle.Symbol]
	if len(open) == 0 {
		return
	}

	remaining := open[:0]
	for _, pos := range open {
		if !candle.Time.After(pos.openedAfter) {
			remaining = append(remaining, pos)
			continue
		}

		var reason string
		var price decimal.Decimal
		switch {
		case checkStopLoss(pos.req, candle):
			reason, price = closeReasonSL, pos.req.StopLoss
		case checkTakeProfit(pos.req, candle):
			reason, price = closeReasonTP, pos.req.TakeProfit
		default:
			remaining = append(remaining, pos)
			continue
		}

		now := e.now()
		e.history = append(e.history, model.HistoryRecord{
			ID:        e.nextID(),
			Type:      orderType(opposite(pos.req.Side)),
			State:     orderStateFilled,
			Symbol:    pos.req.Symbol,
			Volume:    pos.req.Volume,
			OpenPrice: price,
			ClientID:  pos.req.ClientID,
			Comment:   fmt.Sprintf("%s %s", reason, pos.id),
			Time:      now,
			DoneTime:  now,
		})
		e.logger.Info("Sim CLOSE TRIGGERED",
			zap.String("Trigger", reason),
			zap.String("PositionID", pos.id),
			zap.String("Symbol", pos.req.Symbol),
			zap.String("Side", pos.req.Side.String()),
			zap.Stringer("Price", price),
			zap.Time("CandleTime", candle.Time))
	}
	e.positions[candle.Symbol] = remaining
}

// OpenPositions 返回未平仓的模拟持仓数量
func (e *SimulatorExecutor) OpenPositions(symbol string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.positions[symbol])
}

// GetHistoryOrders 返回 [from, to] 内成交的模拟订单
func (e *SimulatorExecutor) GetHistoryOrders(ctx context.Context, from, to time.Time) ([]model.HistoryRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var records []model.HistoryRecord
	for _, h := range e.history {
		if h.DoneTime.Before(from) || h.DoneTime.After(to) {
			continue
		}
		records = append(records, h)
	}
	return records, nil
}

// checkStopLoss 多头: 最低价 <= 止损价; 空头: 最高价 >= 止损价
func checkStopLoss(req model.OrderRequest, c model.Candle) bool {
	if req.StopLoss.IsZero() {
		return false
	}
	if req.Side == model.SideBuy {
		return c.Low.LessThanOrEqual(req.StopLoss)
	}
	return c.High.GreaterThanOrEqual(req.StopLoss)
}

// checkTakeProfit 多头: 最高价 >= 止盈价; 空头: 最低价 <= 止盈价
func checkTakeProfit(req model.OrderRequest, c model.Candle) bool {
	if req.TakeProfit.IsZero() {
		return false
	}
	if req.Side == model.SideBuy {
		return c.High.GreaterThanOrEqual(req.TakeProfit)
	}
	return c.Low.LessThanOrEqual(req.TakeProfit)
}

func orderType(side model.Side) string {
	if side == model.SideSell {
		return orderTypeSell
	}
	return orderTypeBuy
}

func opposite(side model.Side) model.Side {
	if side == model.SideBuy {
		return model.SideSell
	}
	return model.SideBuy
}
