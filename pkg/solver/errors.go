package solver

import (
	"errors"
	"fmt"
)

// ErrSolverUnavailable 求解器不可达或超时（重试耗尽后返回）
var ErrSolverUnavailable = errors.New("求解服务不可用")

// SolverError 求解器返回的业务错误 {"error": "..."}，消息原样透传
type SolverError struct {
	StatusCode int
	Message    string
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("求解器错误 (HTTP %d): %s", e.StatusCode, e.Message)
}

// StatusError 求解器返回非 2xx 且无 error 字段
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("求解器返回 HTTP %d: %s", e.StatusCode, e.Body)
}

// transientError 可重试的传输层错误
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }
