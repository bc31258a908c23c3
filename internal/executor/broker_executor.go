package executor

import (
	"context"
	"time"

	"fx-breakout-trader/internal/model"

	"go.uber.org/zap"
)

// BrokerExecutor 通过经纪商会话下单, 实现了 Executor 接口
// 失败只记录不重试, 下一次突破是唯一的重新下单机会
type BrokerExecutor struct {
	gateway  TradeGateway
	recorder Recorder // 可为 nil
	logger   *zap.Logger
	now      func() time.Time
}

func NewBrokerExecutor(gateway TradeGateway, recorder Recorder, logger *zap.Logger) *BrokerExecutor {
	return &BrokerExecutor{
		gateway:  gateway,
		recorder: recorder,
		logger:   logger.With(zap.String("executor", "broker")),
		now:      time.Now,
	}
}

// SubmitOrder 将订单发送给经纪商并对结果分类
func (e *BrokerExecutor) SubmitOrder(ctx context.Context, req model.OrderRequest) (model.ExecutionResult, error) {
	e.logger.Info("Sending market order...",
		zap.String("Symbol", req.Symbol),
		zap.String("Side", req.Side.String()),
		zap.Stringer("Volume", req.Volume),
		zap.Stringer("StopLoss", req.StopLoss),
		zap.Stringer("TakeProfit", req.TakeProfit),
		zap.String("ClientID", req.ClientID))

	result := model.ExecutionResult{Request: req}
	resp, err := e.gateway.CreateMarketOrder(ctx, req)
	result.ExecutedAt = e.now()

	switch {
	case err != nil:
		result.Status = model.ExecutionFailure
		result.Reason = err.Error()
		e.logger.Error("Trade execution error", zap.Stringer("Order", req), zap.Error(err))
	case !resp.OK():
		result.Status = model.ExecutionFailure
		result.Reason = resp.String()
		e.logger.Error("Trade execution failed", zap.Stringer("Order", req), zap.String("Response", resp.String()))
	default:
		result.Status = model.ExecutionSuccess
		result.OrderID = resp.OrderID
		result.PositionID = resp.PositionID
		e.logger.Info("Trade executed",
			zap.Stringer("Order", req),
			zap.String("OrderID", resp.OrderID),
			zap.String("PositionID", resp.PositionID))
	}

	e.record(ctx, result)
	return result, err
}

func (e *BrokerExecutor) record(ctx context.Context, result model.ExecutionResult) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordExecution(ctx, result); err != nil {
		e.logger.Error("Failed to journal execution result", zap.String("ClientID", result.Request.ClientID), zap.Error(err))
	}
}

// GetHistoryOrders 直接转发给经纪商
func (e *BrokerExecutor) GetHistoryOrders(ctx context.Context, from, to time.Time) ([]model.HistoryRecord, error) {
	return e.gateway.GetHistoryOrdersByTime(ctx, from, to)
}
