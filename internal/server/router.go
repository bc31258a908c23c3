package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"fx-breakout-trader/internal/executor"
	"fx-breakout-trader/internal/metrics"
	"fx-breakout-trader/internal/trader"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 500
)

// StateProvider 提供会话状态
type StateProvider interface {
	State() trader.SessionState
}

// JournalReader 读取最近的下单记录
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]executor.JournalEntry, error)
}

type handlers struct {
	state   StateProvider
	journal JournalReader
	logger  *zap.Logger
}

// NewRouter 构造运维接口; journal 为 nil 时 /orders/recent 返回 404
func NewRouter(state StateProvider, m *metrics.Metrics, journal JournalReader, logger *zap.Logger) *gin.Engine {
	h := &handlers{state: state, journal: journal, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	// 导通确认
	r.GET("/healthz", h.health)
	r.GET("/metrics", gin.WrapH(m.Handler()))
	r.GET("/orders/recent", h.recentOrders)
	return r
}

func (h *handlers) health(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	state := h.state.State()
	if state != trader.StateConnected {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "state": state})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "state": state})
}

func (h *handlers) recentOrders(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "execution journal is disabled"})
		return
	}

	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRecentLimit)
	}

	entries, err := h.journal.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to read execution journal", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read execution journal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": entries})
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// Serve 在 addr 上启动运维服务, ctx 结束时优雅关闭
func Serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Ops server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Ops server stopped")
	return nil
}
