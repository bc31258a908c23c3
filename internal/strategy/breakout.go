package strategy

import "fx-breakout-trader/internal/model"

// DetectBreakout 比较前一根 K 线与最新收盘的 K 线
// 收盘价严格高于前高为 BUY, 严格低于前低为 SELL, 其余为 NONE
func DetectBreakout(prev, curr model.Candle) model.SignalType {
	if curr.Close.GreaterThan(prev.High) {
		return model.SignalBuy
	}
	if curr.Close.LessThan(prev.Low) {
		return model.SignalSell
	}
	return model.SignalNone
}

// DetectLatest 对按时间升序排列的 K 线序列, 取最后两根做突破判断
// 不足两根时无法判断, 返回 NONE 和 false
func DetectLatest(candles []model.Candle) (model.SignalType, model.Candle, bool) {
	if len(candles) < 2 {
		return model.SignalNone, model.Candle{}, false
	}
	prev := candles[len(candles)-2]
	curr := candles[len(candles)-1]
	return DetectBreakout(prev, curr), curr, true
}
