package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"team-matching/config"
	applogger "team-matching/pkg/logger"
)

// maxResponseBytes 求解器响应体上限
const maxResponseBytes = 8 << 20

// Client 外部分组求解器 HTTP 客户端
//
// 每次尝试有独立超时；仅对连接失败与 502/503/504 做指数退避重试。
// 单次尝试超时直接返回 ErrSolverUnavailable，不重试。
type Client struct {
	endpoint        string
	http            *http.Client
	timeout         time.Duration
	maxRetries      int
	initialInterval time.Duration
	logger          *zap.Logger
}

// NewClient 创建求解器客户端
func NewClient(cfg *config.SolverConfig, logger *zap.Logger) *Client {
	interval := cfg.RetryInitialInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Client{
		endpoint:        strings.TrimRight(cfg.BaseURL, "/") + "/match",
		http:            &http.Client{},
		timeout:         cfg.Timeout,
		maxRetries:      cfg.MaxRetries,
		initialInterval: interval,
		logger:          logger,
	}
}

// Match 发送 POST {base_url}/match，成功时将 JSON 响应解码到 out
//
// 返回错误：
//   - *SolverError: 响应体含 error 字段
//   - *StatusError: 其他非 2xx
//   - ErrSolverUnavailable: 超时或重试耗尽
func (c *Client) Match(ctx context.Context, req any, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("编码求解请求失败: %w", err)
	}

	start := time.Now()
	attempt := 0
	op := func() error {
		attempt++
		attemptsTotal.Inc()
		return c.do(ctx, body, out)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialInterval
	policy.MaxElapsedTime = 0

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("求解器暂时不可用，准备重试",
			zap.String("endpoint", c.endpoint),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	err = backoff.RetryNotify(op,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx),
		notify,
	)
	requestDuration.Observe(time.Since(start).Seconds())

	if err == nil {
		requestsTotal.WithLabelValues(outcomeOK).Inc()
		return nil
	}

	var transient *transientError
	var solverErr *SolverError
	var statusErr *StatusError
	switch {
	case errors.As(err, &transient):
		requestsTotal.WithLabelValues(outcomeUnavailable).Inc()
		c.logger.Error("求解器重试耗尽", zap.Int("attempts", attempt), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrSolverUnavailable, transient.err)
	case errors.Is(err, ErrSolverUnavailable):
		requestsTotal.WithLabelValues(outcomeUnavailable).Inc()
	case errors.Is(err, context.Canceled):
		requestsTotal.WithLabelValues(outcomeCanceled).Inc()
	case errors.As(err, &solverErr):
		requestsTotal.WithLabelValues(outcomeSolverError).Inc()
	case errors.As(err, &statusErr):
		requestsTotal.WithLabelValues(outcomeStatusError).Inc()
	default:
		requestsTotal.WithLabelValues(outcomeDecodeError).Inc()
	}
	return err
}

// do 执行单次尝试；可重试的错误以 *transientError 返回，其余包装为 Permanent
func (c *Client) do(ctx context.Context, body []byte, out any) error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if rid := applogger.RequestIDFrom(ctx); rid != "" {
		httpReq.Header.Set("X-Request-ID", rid)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return backoff.Permanent(fmt.Errorf("%w: 单次求解超过 %s", ErrSolverUnavailable, c.timeout))
		}
		return &transientError{err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return backoff.Permanent(fmt.Errorf("%w: 单次求解超过 %s", ErrSolverUnavailable, c.timeout))
		}
		return &transientError{err: err}
	}

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &transientError{err: &StatusError{StatusCode: resp.StatusCode, Body: truncate(raw)}}
	}

	var envelope struct {
		Error *string `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != nil && *envelope.Error != "" {
		return backoff.Permanent(&SolverError{StatusCode: resp.StatusCode, Message: *envelope.Error})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return backoff.Permanent(&StatusError{StatusCode: resp.StatusCode, Body: truncate(raw)})
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return backoff.Permanent(fmt.Errorf("解析求解器响应失败: %w", err))
	}
	return nil
}

func truncate(b []byte) string {
	const limit = 512
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
