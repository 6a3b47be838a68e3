package app

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"polymarket-execution/internal/config"
	"polymarket-execution/internal/exchange"
	"polymarket-execution/internal/execution"
	"polymarket-execution/internal/monitor"
	"polymarket-execution/internal/retry"
	"polymarket-execution/internal/store"
)

// Journal 为命令层使用的执行日志能力。
type Journal interface {
	ListEvents(ctx context.Context, filter monitor.Filter) ([]monitor.Event, error)
	RecordCancel(ctx context.Context, orderID string, canceled bool)
	RecordError(ctx context.Context, msg string, err error, ctxMap map[string]interface{})
}

// App 聚合核心依赖并执行 CLI 子命令。
type App struct {
	trader  execution.Trader
	journal Journal
	logger  *zap.Logger
	out     io.Writer
	closers []func() error
}

// New 创建 App 实例。journal 可为 nil，表示未启用执行日志。
func New(trader execution.Trader, journal Journal, logger *zap.Logger, out io.Writer) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	return &App{
		trader:  trader,
		journal: journal,
		logger:  logger,
		out:     out,
	}
}

// Build 按配置装配场所客户端、执行引擎与执行日志。
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	limits, err := cfg.TradingLimits()
	if err != nil {
		return nil, fmt.Errorf("初始化安全限制失败: %w", err)
	}

	var (
		journal *monitor.Service
		closers []func() error
	)
	if cfg.Database.Enabled {
		sqliteStore, err := store.NewSQLite(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("初始化数据库失败: %w", err)
		}
		closers = append(closers, sqliteStore.Close)

		journal, err = monitor.NewService(ctx, sqliteStore, logger)
		if err != nil {
			_ = sqliteStore.Close()
			return nil, fmt.Errorf("初始化执行日志失败: %w", err)
		}
	}

	retryPolicy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
	}

	factory := exchange.NewFactory(exchange.FactoryOptions{
		HTTPTimeout: cfg.Timeouts.RequestTimeout(),
		RateLimit:   cfg.Venue.RateLimit,
		ReadRetry:   retryPolicy,
	}, logger.Named("exchange"))

	opts := execution.Options{
		Retry:          retryPolicy,
		ConnectTimeout: cfg.Timeouts.ConnectionTimeout(),
		RequestTimeout: cfg.Timeouts.RequestTimeout(),
	}
	if journal != nil {
		opts.Recorder = journal
	}

	engine, err := execution.NewEngine(factory, execution.SessionParams{
		Host:          cfg.Venue.Host,
		ChainID:       cfg.Venue.ChainID,
		PrivateKey:    cfg.Venue.PrivateKey,
		SignatureType: cfg.Venue.SignatureType,
		FunderAddress: cfg.Venue.ProxyAddress,
	}, limits, opts, logger.Named("execution"))
	if err != nil {
		for _, closeFn := range closers {
			_ = closeFn()
		}
		return nil, err
	}

	a := New(engine, nil, logger, out)
	if journal != nil {
		a.journal = journal
	}
	a.closers = closers
	return a, nil
}

// Close 关闭会话与数据库。
func (a *App) Close() error {
	err := a.trader.Close()
	for _, closeFn := range a.closers {
		err = multierr.Append(err, closeFn())
	}
	return err
}
