// internal/service/config.go
package service

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	Account AccountConfig `mapstructure:"account"`
	Trading TradingConfig `mapstructure:"trading"`
	Log     LogConfig     `mapstructure:"log"`
	Journal JournalConfig `mapstructure:"journal"`
	Server  ServerConfig  `mapstructure:"server"`
}

// AccountConfig 定义了经纪商账户的连接信息
type AccountConfig struct {
	Token           string        `mapstructure:"token"`
	ID              string        `mapstructure:"id"`
	ProvisioningURL string        `mapstructure:"provisioning_url"`
	RPCURL          string        `mapstructure:"rpc_url"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// TradingConfig 定义了策略参数, 启动后不再修改
type TradingConfig struct {
	Symbols          []string      `mapstructure:"symbols"`
	LotSize          float64       `mapstructure:"lot_size"`
	TakeProfitOffset float64       `mapstructure:"take_profit_offset"` // 价格单位
	Timeframe        time.Duration `mapstructure:"timeframe"`
	CandleCount      int           `mapstructure:"candle_count"`
	HistoryWindow    time.Duration `mapstructure:"history_window"`
	HistoryLimit     int           `mapstructure:"history_limit"`
	DryRun           bool          `mapstructure:"dry_run"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	File     string `mapstructure:"file"`
	Encoding string `mapstructure:"encoding"` // console 或 json
}

// JournalConfig Path 为空时不启用 SQLite 订单日志
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig Addr 为空时不启动运维 HTTP 服务
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("account.token", "")
	v.SetDefault("account.id", "")
	v.SetDefault("account.provisioning_url", "https://mt-provisioning-api-v1.agiliumtrade.agiliumtrade.ai")
	v.SetDefault("account.rpc_url", "wss://mt-client-api-v1.new-york.agiliumtrade.ai/ws")
	v.SetDefault("account.connect_timeout", 5*time.Minute)
	v.SetDefault("account.request_timeout", 60*time.Second)

	v.SetDefault("trading.symbols", []string{"EURUSD", "GBPUSD", "USDCHF", "EURCAD"})
	v.SetDefault("trading.lot_size", 5.0)
	v.SetDefault("trading.take_profit_offset", 25.0)
	v.SetDefault("trading.timeframe", 15*time.Minute)
	v.SetDefault("trading.candle_count", 2)
	v.SetDefault("trading.history_window", time.Hour)
	v.SetDefault("trading.history_limit", 5)
	v.SetDefault("trading.dry_run", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "trading_log.txt")
	v.SetDefault("log.encoding", "console")

	v.SetDefault("journal.path", "")
	v.SetDefault("server.addr", "")
}

// LoadConfig 读取 .env, 可选的 config.yaml 和环境变量
// configPath 下没有 config.yaml 时只使用默认值和环境变量
func LoadConfig(configPath string) (*Config, error) {
	// .env 不存在不是错误, 已存在的环境变量不会被覆盖
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 兼容旧的凭证变量名
	_ = v.BindEnv("account.token", "ACCOUNT_TOKEN", "METAAPI_TOKEN")
	_ = v.BindEnv("account.id", "ACCOUNT_ID")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	for i, s := range cfg.Trading.Symbols {
		cfg.Trading.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查配置是否可以启动交易循环
func (c *Config) Validate() error {
	// 模拟盘也需要从经纪商读取 K 线, 凭证始终必填
	if c.Account.Token == "" {
		return errors.New("config: account token is required (METAAPI_TOKEN)")
	}
	if c.Account.ID == "" {
		return errors.New("config: account id is required (ACCOUNT_ID)")
	}
	if c.Account.ProvisioningURL == "" || c.Account.RPCURL == "" {
		return errors.New("config: broker endpoints must not be empty")
	}
	if c.Account.ConnectTimeout <= 0 || c.Account.RequestTimeout <= 0 {
		return errors.New("config: account timeouts must be positive")
	}

	t := c.Trading
	if len(t.Symbols) == 0 {
		return errors.New("config: at least one trading symbol is required")
	}
	for _, s := range t.Symbols {
		if s == "" {
			return errors.New("config: empty trading symbol")
		}
	}
	if t.LotSize <= 0 {
		return fmt.Errorf("config: lot_size must be positive, got %v", t.LotSize)
	}
	if t.TakeProfitOffset <= 0 {
		return fmt.Errorf("config: take_profit_offset must be positive, got %v", t.TakeProfitOffset)
	}
	if t.Timeframe <= 0 {
		return fmt.Errorf("config: timeframe must be positive, got %s", t.Timeframe)
	}
	// 经纪商只接受 "15m", "1h" 这类整数周期
	if _, err := ParseIntervalDuration(FormatInterval(t.Timeframe)); err != nil {
		return fmt.Errorf("config: timeframe %s is not a broker timeframe: %w", t.Timeframe, err)
	}
	if t.CandleCount < 2 {
		return fmt.Errorf("config: candle_count must be at least 2, got %d", t.CandleCount)
	}
	if t.HistoryWindow <= 0 {
		return fmt.Errorf("config: history_window must be positive, got %s", t.HistoryWindow)
	}
	if t.HistoryLimit <= 0 {
		return fmt.Errorf("config: history_limit must be positive, got %d", t.HistoryLimit)
	}
	return nil
}
