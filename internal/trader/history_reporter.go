package trader

import (
	"context"
	"time"

	"fx-breakout-trader/internal/metrics"
	"fx-breakout-trader/internal/model"

	"go.uber.org/zap"
)

// HistorySource 提供账户历史订单
type HistorySource interface {
	GetHistoryOrders(ctx context.Context, from, to time.Time) ([]model.HistoryRecord, error)
}

// HistoryReporter 输出最近一段时间内的成交记录快照
type HistoryReporter struct {
	source  HistorySource
	window  time.Duration
	limit   int
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewHistoryReporter(source HistorySource, window time.Duration, limit int, logger *zap.Logger, m *metrics.Metrics) *HistoryReporter {
	return &HistoryReporter{
		source:  source,
		window:  window,
		limit:   limit,
		logger:  logger,
		metrics: m,
	}
}

// Report 拉取 [now-window, now] 的历史订单, 输出最后 limit 条 (保持原顺序)
// 拉取失败只记录错误, 不影响交易循环
func (r *HistoryReporter) Report(ctx context.Context, now time.Time) []model.HistoryRecord {
	from := now.Add(-r.window)
	records, err := r.source.GetHistoryOrders(ctx, from, now)
	if err != nil {
		r.metrics.HistoryFetchErrors.Inc()
		r.logger.Error("Failed to fetch trade history",
			zap.Time("From", from),
			zap.Time("To", now),
			zap.Error(err))
		return nil
	}

	if len(records) == 0 {
		r.logger.Info("No recent trades found.")
		return nil
	}

	if len(records) > r.limit {
		records = records[len(records)-r.limit:]
	}

	r.logger.Info("Recent trades", zap.Int("Count", len(records)), zap.Duration("Window", r.window))
	for _, rec := range records {
		r.logger.Info("Trade", zap.Stringer("Record", rec))
	}
	return records
}
