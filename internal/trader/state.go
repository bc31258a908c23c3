package trader

import (
	"sync"

	"go.uber.org/zap"
)

// SessionState 经纪商会话状态
type SessionState string

const (
	StateDisconnected SessionState = "DISCONNECTED"
	StateConnecting   SessionState = "CONNECTING"
	StateConnected    SessionState = "CONNECTED" // 交易循环只在此状态下运行
)

// Value 用于 Prometheus gauge
func (s SessionState) Value() float64 {
	switch s {
	case StateConnecting:
		return 1
	case StateConnected:
		return 2
	default:
		return 0
	}
}

// StateMachine 会话状态机, 只有调度器写入, 运维接口并发读取
type StateMachine struct {
	mu       sync.RWMutex
	current  SessionState
	logger   *zap.Logger
	onChange func(SessionState)
}

func NewStateMachine(logger *zap.Logger, onChange func(SessionState)) *StateMachine {
	return &StateMachine{
		current:  StateDisconnected,
		logger:   logger,
		onChange: onChange,
	}
}

// Transition 切换状态并记录日志, 状态未变化时不做任何事
func (sm *StateMachine) Transition(to SessionState, reason string) {
	sm.mu.Lock()
	from := sm.current
	if from == to {
		sm.mu.Unlock()
		return
	}
	sm.current = to
	sm.mu.Unlock()

	sm.logger.Info(
		"!!! State Transition !!!",
		zap.String("From", string(from)),
		zap.String("To", string(to)),
		zap.String("Reason", reason),
	)
	if sm.onChange != nil {
		sm.onChange(to)
	}
}

// Current 供运维接口查询当前状态
func (sm *StateMachine) Current() SessionState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}
