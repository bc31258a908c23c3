package api

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound = errors.New("trading account not found")
	ErrConnectTimeout  = errors.New("timed out waiting for account connection")
)

// GatewayError 经纪商处理请求时返回的错误 (processingError 帧或非 2xx 响应)
type GatewayError struct {
	Op      string
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Message)
}
