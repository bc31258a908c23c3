package strategy

import (
	"fmt"
	"time"

	"fx-breakout-trader/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderPolicy 根据信号和触发 K 线生成市价单
// 手数和止盈距离在启动时固定, 所有品种共用
type OrderPolicy struct {
	lotSize          decimal.Decimal
	takeProfitOffset decimal.Decimal
	now              func() time.Time
	newID            func() string
}

// NewOrderPolicy lotSize 和 takeProfitOffset 必须为正数
func NewOrderPolicy(lotSize, takeProfitOffset decimal.Decimal) *OrderPolicy {
	return &OrderPolicy{
		lotSize:          lotSize,
		takeProfitOffset: takeProfitOffset,
		now:              time.Now,
		newID:            uuid.NewString,
	}
}

// BuildOrder 入场价为触发 K 线收盘价
// BUY: 止损 = K 线最低价, 止盈 = 入场价 + 偏移
// SELL: 止损 = K 线最高价, 止盈 = 入场价 - 偏移
// 调用方必须先过滤掉 NONE 信号
func (p *OrderPolicy) BuildOrder(signal model.SignalType, symbol string, candle model.Candle) (model.OrderRequest, error) {
	side, ok := signal.Side()
	if !ok {
		return model.OrderRequest{}, fmt.Errorf("no order for signal %s on %s", signal, symbol)
	}

	entry := candle.Close
	req := model.OrderRequest{
		ClientID:   p.newID(),
		Symbol:     symbol,
		Side:       side,
		Kind:       model.OrderKindMarket,
		Volume:     p.lotSize,
		EntryPrice: entry,
		CreatedAt:  p.now(),
	}

	if side == model.SideBuy {
		req.StopLoss = candle.Low
		req.TakeProfit = entry.Add(p.takeProfitOffset)
	} else {
		req.StopLoss = candle.High
		req.TakeProfit = entry.Sub(p.takeProfitOffset)
	}
	return req, nil
}
