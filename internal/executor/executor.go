package executor

import (
	"context"
	"time"

	"fx-breakout-trader/internal/model"
)

// Executor 是交易执行器的通用接口, 负责与交易所通信
type Executor interface {
	// SubmitOrder 提交订单并给出明确的成功/失败结果
	// error 只在网关或传输层故障时返回, 此时 result 同样为 FAILURE
	SubmitOrder(ctx context.Context, req model.OrderRequest) (model.ExecutionResult, error)

	// GetHistoryOrders 返回 [from, to] 内的历史订单, 按时间顺序
	GetHistoryOrders(ctx context.Context, from, to time.Time) ([]model.HistoryRecord, error)
}

// TradeGateway 是经纪商连接层提供的原始交易接口
type TradeGateway interface {
	CreateMarketOrder(ctx context.Context, req model.OrderRequest) (*model.TradeResponse, error)
	GetHistoryOrdersByTime(ctx context.Context, from, to time.Time) ([]model.HistoryRecord, error)
}

// Recorder 持久化每一次下单结果
type Recorder interface {
	RecordExecution(ctx context.Context, result model.ExecutionResult) error
}
