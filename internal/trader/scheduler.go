package trader

import (
	"context"
	"fmt"
	"time"

	"fx-breakout-trader/internal/executor"
	"fx-breakout-trader/internal/metrics"
	"fx-breakout-trader/internal/model"
	"fx-breakout-trader/internal/service"
	"fx-breakout-trader/internal/strategy"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MarketData 提供历史 K 线, 结果按时间升序
type MarketData interface {
	GetHistoricalCandles(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error)
}

// Session 已连接的经纪商账户会话
type Session interface {
	MarketData
	executor.TradeGateway
}

// Connector 部署账户并等待会话连接成功
type Connector interface {
	Connect(ctx context.Context) (Session, error)
}

type ConnectorFunc func(ctx context.Context) (Session, error)

func (f ConnectorFunc) Connect(ctx context.Context) (Session, error) {
	return f(ctx)
}

// ExecutorFactory 根据已连接的会话构造执行器
type ExecutorFactory func(gw executor.TradeGateway) executor.Executor

// candleObserver 由纸面执行器实现, 用新 K 线检查模拟持仓的 SL/TP
type candleObserver interface {
	ObserveCandle(candle model.Candle)
}

// CycleSummary 一次循环的结果
type CycleSummary struct {
	Signals map[string]model.SignalType
	Orders  []model.ExecutionResult
	Skipped []string
	History []model.HistoryRecord
}

type Option func(*Scheduler)

// WithClock 替换时钟, 用于测试
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// Scheduler 驱动 连接 -> 循环 (检测突破, 下单, 汇报历史) -> 休眠
type Scheduler struct {
	cfg         service.TradingConfig
	timeframe   string
	connector   Connector
	newExecutor ExecutorFactory
	policy      *strategy.OrderPolicy
	logger      *zap.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	state       *StateMachine

	session  Session
	exec     executor.Executor
	reporter *HistoryReporter
}

func NewScheduler(
	cfg service.TradingConfig,
	connector Connector,
	newExecutor ExecutorFactory,
	logger *zap.Logger,
	m *metrics.Metrics,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		cfg:         cfg,
		timeframe:   service.FormatInterval(cfg.Timeframe),
		connector:   connector,
		newExecutor: newExecutor,
		policy:      strategy.NewOrderPolicy(decimal.NewFromFloat(cfg.LotSize), decimal.NewFromFloat(cfg.TakeProfitOffset)),
		logger:      logger,
		metrics:     m,
		now:         time.Now,
	}
	s.state = NewStateMachine(logger, func(st SessionState) {
		m.SessionState.Set(st.Value())
	})
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State 当前会话状态, 可并发调用
func (s *Scheduler) State() SessionState {
	return s.state.Current()
}

// Connect 部署账户并等待连接, 失败时保持 DISCONNECTED
func (s *Scheduler) Connect(ctx context.Context) error {
	s.state.Transition(StateConnecting, "deploying account")
	s.logger.Info("Connecting to broker account...")

	session, err := s.connector.Connect(ctx)
	if err != nil {
		s.state.Transition(StateDisconnected, err.Error())
		s.logger.Error("Failed to connect to broker account", zap.Error(err))
		return fmt.Errorf("connect broker account: %w", err)
	}

	s.session = session
	s.exec = s.newExecutor(session)
	s.reporter = NewHistoryReporter(s.exec, s.cfg.HistoryWindow, s.cfg.HistoryLimit, s.logger, s.metrics)
	s.state.Transition(StateConnected, "session connected")
	s.logger.Info("Connected to broker account",
		zap.Strings("Symbols", s.cfg.Symbols),
		zap.String("Timeframe", s.timeframe),
		zap.Bool("DryRun", s.cfg.DryRun))
	return nil
}

// Run 连接成功后无限循环, 直到 ctx 被取消
// 连接失败时返回错误, 不会重连
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}
	defer s.state.Transition(StateDisconnected, "trading loop stopped")

	timer := time.NewTimer(s.cfg.Timeframe)
	defer timer.Stop()

	for {
		s.RunCycle(ctx)
		if ctx.Err() != nil {
			s.logger.Info("Shutdown requested, stopping trading loop")
			return nil
		}

		s.logger.Info("Cycle complete, waiting for next candle", zap.Duration("Sleep", s.cfg.Timeframe))
		timer.Reset(s.cfg.Timeframe)
		select {
		case <-ctx.Done():
			s.logger.Info("Shutdown requested, stopping trading loop")
			return nil
		case <-timer.C:
		}
	}
}

// RunCycle 按配置顺序处理每个品种, 最后汇报一次历史订单
// 单个品种的失败不会影响其他品种
func (s *Scheduler) RunCycle(ctx context.Context) CycleSummary {
	started := s.now()
	summary := CycleSummary{Signals: make(map[string]model.SignalType, len(s.cfg.Symbols))}

	for _, symbol := range s.cfg.Symbols {
		if ctx.Err() != nil {
			break
		}
		signal, result, ok := s.processSymbol(ctx, symbol)
		if !ok {
			summary.Skipped = append(summary.Skipped, symbol)
			continue
		}
		summary.Signals[symbol] = signal
		if result != nil {
			summary.Orders = append(summary.Orders, *result)
		}
	}

	if ctx.Err() == nil {
		summary.History = s.reporter.Report(ctx, s.now())
	}
	s.metrics.ObserveCycle(started, s.now())
	return summary
}

// processSymbol 返回 ok=false 表示本轮跳过该品种
func (s *Scheduler) processSymbol(ctx context.Context, symbol string) (model.SignalType, *model.ExecutionResult, bool) {
	log := s.logger.With(zap.String("Symbol", symbol))

	candles, err := s.session.GetHistoricalCandles(ctx, symbol, s.timeframe, s.cfg.CandleCount)
	if err != nil {
		s.metrics.CandleFetchErrors.WithLabelValues(symbol).Inc()
		log.Error("Failed to fetch candles, skipping symbol", zap.Error(err))
		return model.SignalNone, nil, false
	}

	if obs, ok := s.exec.(candleObserver); ok {
		for _, c := range candles {
			// 模拟持仓按请求的品种归档
			c.Symbol = symbol
			obs.ObserveCandle(c)
		}
	}

	signal, trigger, ok := strategy.DetectLatest(candles)
	if !ok {
		s.metrics.InsufficientCandles.WithLabelValues(symbol).Inc()
		log.Warn("Not enough candles to evaluate breakout, skipping symbol", zap.Int("Candles", len(candles)))
		return model.SignalNone, nil, false
	}

	s.metrics.SignalsTotal.WithLabelValues(symbol, string(signal)).Inc()
	log.Info("Breakout check",
		zap.String("Signal", string(signal)),
		zap.Stringer("Close", trigger.Close),
		zap.Time("CandleTime", trigger.Time))
	if signal == model.SignalNone {
		return signal, nil, true
	}

	order, err := s.policy.BuildOrder(signal, symbol, trigger)
	if err != nil {
		log.Error("Failed to build order", zap.Error(err))
		return signal, nil, true
	}
	log.Info("!!! NEW TRADING SIGNAL !!!", zap.Stringer("Order", order))

	// 执行器已记录所有结果, 这里只统计
	result, err := s.exec.SubmitOrder(ctx, order)
	if err != nil && result.Status == "" {
		result.Status = model.ExecutionFailure
		result.Reason = err.Error()
	}
	s.metrics.OrdersTotal.WithLabelValues(symbol, string(result.Status)).Inc()
	return signal, &result, true
}
