package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fx-breakout-trader/internal/api"
	"fx-breakout-trader/internal/executor"
	"fx-breakout-trader/internal/metrics"
	"fx-breakout-trader/internal/server"
	"fx-breakout-trader/internal/service"
	"fx-breakout-trader/internal/trader"

	"go.uber.org/zap"
)

func main() {
	cfg, err := service.LoadConfig("config")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	service.MustInitLogger(cfg.Log)
	defer service.Logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		service.Logger.Error("Trader stopped with error", zap.Error(err))
		service.Logger.Sync()
		os.Exit(1)
	}
	service.Logger.Info("Trader stopped")
}

func run(ctx context.Context, cfg *service.Config) error {
	logger := service.Logger
	m := metrics.NewMetrics()

	// 1. 可选的 SQLite 下单日志
	var (
		recorder executor.Recorder
		reader   server.JournalReader
	)
	if cfg.Journal.Path != "" {
		journal, err := executor.NewJournal(cfg.Journal.Path, logger)
		if err != nil {
			return err
		}
		defer journal.Close()
		recorder, reader = journal, journal
	}

	// 2. 执行器: 实盘或纸面交易
	var factory trader.ExecutorFactory
	if cfg.Trading.DryRun {
		logger.Warn("Dry run enabled: orders are simulated, market data still comes from the broker")
		sim := executor.NewSimulatorExecutor(recorder, logger)
		factory = func(executor.TradeGateway) executor.Executor { return sim }
	} else {
		factory = func(gw executor.TradeGateway) executor.Executor {
			return executor.NewBrokerExecutor(gw, recorder, logger)
		}
	}

	// 3. 经纪商连接
	client := api.NewClient(cfg.Account, logger)
	connector := trader.ConnectorFunc(func(ctx context.Context) (trader.Session, error) {
		session, err := client.Connect(ctx)
		if err != nil {
			return nil, err
		}
		account := session.Account()
		logger.Info("Broker account ready",
			zap.String("Name", account.Name),
			zap.String("State", account.State),
			zap.String("ConnectionStatus", account.ConnectionStatus))
		return session, nil
	})

	scheduler := trader.NewScheduler(cfg.Trading, connector, factory, logger, m)

	// 4. 可选的运维 HTTP 服务
	if cfg.Server.Addr != "" {
		router := server.NewRouter(scheduler, m, reader, logger)
		go func() {
			if err := server.Serve(ctx, cfg.Server.Addr, router, logger); err != nil {
				logger.Error("Ops server failed", zap.Error(err))
			}
		}()
	}

	logger.Info("Starting breakout trader",
		zap.Strings("Symbols", cfg.Trading.Symbols),
		zap.Float64("LotSize", cfg.Trading.LotSize),
		zap.Float64("TakeProfitOffset", cfg.Trading.TakeProfitOffset),
		zap.Duration("Timeframe", cfg.Trading.Timeframe))

	err := scheduler.Run(ctx)
	if errors.Is(err, context.Canceled) {
		// 连接阶段收到退出信号
		return nil
	}
	return err
}
