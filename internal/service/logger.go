package service

import (
	"log"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 是全局日志接口, 仅供 cmd 层使用
// 业务组件通过构造函数注入 *zap.Logger
var Logger = zap.NewNop()

// InitLogger 初始化 Zap 日志: 同时写入 stdout 和持久化日志文件 (追加写)
func InitLogger(cfg LogConfig) (*zap.Logger, error) {
	logger, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	Logger = logger
	return logger, nil
}

// NewLogger 按配置构建一个独立的 logger, 不修改全局变量
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	// 格式化时间
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	if cfg.Encoding != "" {
		config.Encoding = cfg.Encoding
	}

	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)

	// 控制台 + 文件, zap 以 O_APPEND 打开文件
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	if cfg.File != "" {
		config.OutputPaths = append(config.OutputPaths, cfg.File)
	}

	// 采样会丢弃重复日志, 交易记录必须完整
	config.Sampling = nil

	return config.Build()
}

// MustInitLogger 初始化失败时直接退出
func MustInitLogger(cfg LogConfig) *zap.Logger {
	logger, err := InitLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return logger
}
