package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Candle 代表经纪商返回的一根已收盘 K 线
type Candle struct {
	Symbol     string          `json:"symbol"`
	Timeframe  string          `json:"timeframe"` // 周期，例如 "15m"
	Time       time.Time       `json:"time"`      // 周期起始时间
	Open       decimal.Decimal `json:"open"`
	High       decimal.Decimal `json:"high"`
	Low        decimal.Decimal `json:"low"`
	Close      decimal.Decimal `json:"close"`
	TickVolume int64           `json:"tickVolume"`
}

func (c Candle) String() string {
	return fmt.Sprintf("%s %s @ %s O:%s H:%s L:%s C:%s",
		c.Symbol, c.Timeframe, c.Time.UTC().Format(time.RFC3339), c.Open, c.High, c.Low, c.Close)
}

// AccountInfo 对应 provisioning API 返回的账户信息
type AccountInfo struct {
	ID               string `json:"_id"`
	Name             string `json:"name"`
	State            string `json:"state"`            // DEPLOYED, UNDEPLOYED, DEPLOYING ...
	ConnectionStatus string `json:"connectionStatus"` // CONNECTED, DISCONNECTED ...
}
