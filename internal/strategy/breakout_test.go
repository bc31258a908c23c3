package strategy

import (
	"testing"

	"fx-breakout-trader/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func candle(open, high, low, close string) model.Candle {
	return model.Candle{Symbol: "EURUSD", Timeframe: "15m", Open: d(open), High: d(high), Low: d(low), Close: d(close)}
}

func TestDetectBreakout(t *testing.T) {
	prev := candle("1.1030", "1.1050", "1.1020", "1.1040")

	tests := []struct {
		name  string
		close string
		want  model.SignalType
	}{
		{"close above previous high", "1.1060", model.SignalBuy},
		{"close below previous low", "1.1010", model.SignalSell},
		{"close inside range", "1.1035", model.SignalNone},
		{"close equal to previous high", "1.1050", model.SignalNone},
		{"close equal to previous low", "1.1020", model.SignalNone},
		{"one pip above high", "1.10501", model.SignalBuy},
		{"one pip below low", "1.10199", model.SignalSell},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			curr := candle("1.1040", "1.1070", "1.1000", tt.close)
			assert.Equal(t, tt.want, DetectBreakout(prev, curr))
		})
	}
}

func TestDetectBreakout_Idempotent(t *testing.T) {
	prev := candle("1.2000", "1.2000", "1.1950", "1.1960")
	curr := candle("1.1960", "1.1970", "1.1930", "1.1940")

	first := DetectBreakout(prev, curr)
	second := DetectBreakout(prev, curr)
	assert.Equal(t, model.SignalSell, first)
	assert.Equal(t, first, second)
}

func TestDetectLatest(t *testing.T) {
	t.Run("fewer than two candles", func(t *testing.T) {
		sig, _, ok := DetectLatest([]model.Candle{candle("1", "2", "0.5", "1.5")})
		assert.False(t, ok)
		assert.Equal(t, model.SignalNone, sig)

		sig, _, ok = DetectLatest(nil)
		assert.False(t, ok)
		assert.Equal(t, model.SignalNone, sig)
	})

	t.Run("uses the last two candles", func(t *testing.T) {
		candles := []model.Candle{
			candle("1.0", "9.0", "0.1", "5.0"), // ignored
			candle("1.3000", "1.3000", "1.2950", "1.2960"),
			candle("1.2960", "1.3010", "1.2955", "1.3005"),
		}
		sig, curr, ok := DetectLatest(candles)
		assert.True(t, ok)
		assert.Equal(t, model.SignalBuy, sig)
		assert.True(t, curr.Close.Equal(d("1.3005")))
	})

	t.Run("inside range", func(t *testing.T) {
		candles := []model.Candle{
			candle("1.2960", "1.3000", "1.2950", "1.2990"),
			candle("1.2990", "1.2995", "1.2960", "1.2975"),
		}
		sig, _, ok := DetectLatest(candles)
		assert.True(t, ok)
		assert.Equal(t, model.SignalNone, sig)
	})
}
