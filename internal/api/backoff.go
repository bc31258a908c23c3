package api

import "time"

const (
	defaultPollBase = 1 * time.Second
	defaultPollMax  = 30 * time.Second
)

// calculateBackoff 返回第 retry 次轮询前的等待时间: base * 2^retry, 不超过 max
func calculateBackoff(retry int, base, max time.Duration) time.Duration {
	if retry <= 0 {
		return base
	}
	// 2^30 秒早已超过任何合理的上限
	if retry > 30 {
		return max
	}
	backoff := base * time.Duration(1<<retry)
	if backoff > max || backoff <= 0 {
		return max
	}
	return backoff
}
