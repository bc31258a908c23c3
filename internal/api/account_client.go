package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fx-breakout-trader/internal/model"

	"go.uber.org/zap"
)

const (
	StateDeployed       = "DEPLOYED"
	ConnectionConnected = "CONNECTED"
)

// AccountClient 访问 provisioning REST API: 查询账户, 部署, 等待连接
type AccountClient struct {
	baseURL   string
	token     string
	accountID string
	hc        *http.Client
	logger    *zap.Logger

	pollBase time.Duration
	pollMax  time.Duration
}

type AccountOption func(*AccountClient)

// WithPollInterval 设置等待连接时的退避区间
func WithPollInterval(base, max time.Duration) AccountOption {
	return func(c *AccountClient) {
		c.pollBase = base
		c.pollMax = max
	}
}

// WithHTTPClient 替换默认的 http.Client
func WithHTTPClient(hc *http.Client) AccountOption {
	return func(c *AccountClient) {
		c.hc = hc
	}
}

func NewAccountClient(baseURL, token, accountID string, logger *zap.Logger, opts ...AccountOption) *AccountClient {
	c := &AccountClient{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:     token,
		accountID: accountID,
		hc:        &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
		pollBase:  defaultPollBase,
		pollMax:   defaultPollMax,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *AccountClient) accountURL(suffix string) string {
	return fmt.Sprintf("%s/users/current/accounts/%s%s", c.baseURL, url.PathEscape(c.accountID), suffix)
}

func (c *AccountClient) do(ctx context.Context, method, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("new request %s %s: %w", method, u, err)
	}
	req.Header.Set("auth-token", c.token)
	req.Header.Set("Accept", "application/json")
	return c.hc.Do(req)
}

// GetAccount 查询账户部署状态和连接状态
func (c *AccountClient) GetAccount(ctx context.Context) (*model.AccountInfo, error) {
	res, err := c.do(ctx, http.MethodGet, c.accountURL(""))
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, c.accountID)
	}
	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &GatewayError{Op: "get account", Code: res.Status, Message: string(b)}
	}

	var info model.AccountInfo
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return &info, nil
}

// Deploy 请求部署账户, 已部署时经纪商同样返回 2xx
func (c *AccountClient) Deploy(ctx context.Context) error {
	res, err := c.do(ctx, http.MethodPost, c.accountURL("/deploy"))
	if err != nil {
		return fmt.Errorf("deploy account: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &GatewayError{Op: "deploy account", Code: res.Status, Message: string(b)}
	}
	return nil
}

// WaitConnected 轮询账户直到 connectionStatus 为 CONNECTED 或超时
func (c *AccountClient) WaitConnected(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for attempt := 0; ; attempt++ {
		info, err := c.GetAccount(ctx)
		switch {
		case err == nil && info.ConnectionStatus == ConnectionConnected:
			return nil
		case err != nil && ctx.Err() == nil:
			c.logger.Warn("Account status poll failed", zap.Int("Attempt", attempt), zap.Error(err))
		case err == nil:
			c.logger.Debug("Waiting for account connection",
				zap.String("State", info.State), zap.String("ConnectionStatus", info.ConnectionStatus))
		}

		timer := time.NewTimer(calculateBackoff(attempt, c.pollBase, c.pollMax))
		select {
		case <-ctx.Done():
			timer.Stop()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w after %s", ErrConnectTimeout, timeout)
			}
			return ctx.Err()
		case <-timer.C:
		}
	}
}
