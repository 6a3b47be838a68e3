package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"polymarket-execution/internal/monitor"
)

// journalHandler 以 JSON 暴露执行日志：GET /events?type=&token_id=&limit=。
func journalHandler(journal Journal, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		filter := monitor.Filter{Limit: 200}
		if qs := q.Get("limit"); qs != "" {
			if v, err := strconv.Atoi(qs); err == nil && v > 0 {
				if v > 1000 {
					v = 1000
				}
				filter.Limit = v
			}
		}
		if typ := strings.TrimSpace(q.Get("type")); typ != "" {
			filter.Type = monitor.EventType(strings.ToLower(typ))
		}
		filter.TokenID = strings.TrimSpace(q.Get("token_id"))

		events, err := journal.ListEvents(r.Context(), filter)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(events); err != nil {
			logger.Warn("写入执行日志响应失败", zap.Error(err))
		}
	})
	return mux
}

// Serve 启动只读的执行日志 HTTP 接口，阻塞直至 ctx 结束。
func (a *App) Serve(ctx context.Context, addr string) error {
	if a.journal == nil {
		return ErrNoJournal
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           journalHandler(a.journal, a.logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a.serve(ctx, srv, func() error { return srv.ListenAndServe() })
}

// serve 运行 listen 直至 ctx 结束；listen 提前返回时关闭 goroutine 随之退出。
func (a *App) serve(ctx context.Context, srv *http.Server, listen func() error) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("关闭执行日志接口失败", zap.Error(err))
		}
	}()

	a.logger.Info("执行日志接口已启动", zap.String("addr", srv.Addr))
	if err := listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	a.logger.Info("执行日志接口已停止")
	return nil
}
