package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"polymarket-execution/internal/retry"
	"polymarket-execution/internal/risk"
	"polymarket-execution/internal/trading"
)

// Engine 负责会话初始化、参数校验、下单与结果分类。
// 一个 Engine 只持有一个会话；初始化与关闭持写锁，其余操作持读锁。
type Engine struct {
	factory SessionFactory
	params  SessionParams
	limits  risk.Limits
	opts    Options
	logger  *zap.Logger

	mu      sync.RWMutex
	state   State
	session Session
}

// NewEngine 创建执行引擎，安全限制无效时拒绝创建。
func NewEngine(factory SessionFactory, params SessionParams, limits risk.Limits, opts Options, logger *zap.Logger) (*Engine, error) {
	if factory == nil {
		return nil, errors.New("execution: session factory 不能为空")
	}
	if !limits.Valid() {
		return nil, errors.New("execution: 安全限制无效，拒绝启动")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry.MaxAttempts = retry.DefaultMaxAttempts
	}

	return &Engine{
		factory: factory,
		params:  params,
		limits:  limits,
		opts:    opts,
		logger:  logger,
		state:   StateUninitialized,
	}, nil
}

// State 返回当前会话状态。
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Limits 返回引擎使用的安全限制。
func (e *Engine) Limits() risk.Limits {
	return e.limits
}

// Initialize 建立会话并安装 API 凭证，失败按指数退避重试。
// 重试耗尽后返回 false 并保持未初始化状态，错误只写日志不向上抛出。
func (e *Engine) Initialize(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateReady && e.session != nil {
		return true
	}

	e.logger.Info("正在初始化场所客户端",
		zap.String("host", e.params.Host),
		zap.Int64("chain_id", e.params.ChainID),
		zap.Int("signature_type", e.params.SignatureType),
	)

	policy := e.opts.Retry
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		e.logger.Warn("客户端初始化失败，等待重试",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	session, err := retry.Do(ctx, policy, e.connect)
	if err != nil {
		e.logger.Error("客户端初始化失败", zap.Int("attempts", policy.MaxAttempts), zap.Error(err))
		e.state = StateUninitialized
		e.session = nil
		return false
	}

	e.session = session
	e.state = StateReady
	e.logger.Info("客户端初始化成功")
	return true
}

func (e *Engine) connect(ctx context.Context) (Session, error) {
	attemptCtx, cancel := withTimeout(ctx, e.opts.ConnectTimeout)
	defer cancel()

	session, err := e.factory.Connect(attemptCtx, e.params)
	if err != nil {
		return nil, fmt.Errorf("execution: 创建会话失败: %w", err)
	}

	e.logger.Info("正在设置 API 凭证")
	creds, err := session.DeriveOrCreateCredentials(attemptCtx)
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("execution: 获取 API 凭证失败: %w", err)
	}
	session.SetCredentials(creds)

	return session, nil
}

// ValidateOrder 仅做参数校验，不需要会话，供 dry-run 使用。
func (e *Engine) ValidateOrder(req trading.OrderRequest) error {
	return risk.ValidateRequest(req, e.limits)
}

// PlaceBuyOrder 提交买单。
func (e *Engine) PlaceBuyOrder(ctx context.Context, tokenID string, price, size float64) (trading.Outcome, error) {
	return e.PlaceOrder(ctx, trading.OrderRequest{TokenID: tokenID, Price: price, Size: size, Side: trading.SideBuy})
}

// PlaceSellOrder 提交卖单。
func (e *Engine) PlaceSellOrder(ctx context.Context, tokenID string, price, size float64) (trading.Outcome, error) {
	return e.PlaceOrder(ctx, trading.OrderRequest{TokenID: tokenID, Price: price, Size: size, Side: trading.SideSell})
}

// PlaceOrder 校验并提交一笔 GTC 订单。
//
// 返回的 error 只表示前置条件不满足（会话未就绪，连接类错误）。
// 校验失败与下单过程中的任何失败都记录日志，并以 Outcome.Success=false 返回，
// 失败原因保存在 Outcome.Err 中。
func (e *Engine) PlaceOrder(ctx context.Context, req trading.OrderRequest) (trading.Outcome, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.ensureReady("place_order"); err != nil {
		return trading.Outcome{}, err
	}

	outcome := trading.Outcome{
		AttemptID: uuid.NewString(),
		Request:   req,
		At:        time.Now().UTC(),
	}
	logger := e.logger.With(
		zap.String("attempt_id", outcome.AttemptID),
		zap.String("side", string(req.Side)),
		zap.String("token_id", req.TokenID),
	)

	if err := risk.ValidateRequest(req, e.limits); err != nil {
		logger.Error("订单参数校验失败", zap.Error(err))
		outcome.Err = err
		e.record(ctx, outcome)
		return outcome, nil
	}

	logger.Info("准备下单",
		zap.Float64("price", req.Price),
		zap.Float64("size", req.Size),
		zap.Float64("total", req.Notional()),
	)

	start := time.Now()
	result, err := e.submit(ctx, logger, req)
	outcome.Elapsed = time.Since(start)

	if err != nil {
		if apiErr, ok := trading.AsAPIError(err); ok {
			logger.Error("场所 API 下单失败",
				zap.Int("status_code", apiErr.StatusCode),
				zap.Int64("elapsed_ms", outcome.ElapsedMillis()),
				zap.Error(err),
			)
		} else {
			logger.Error("下单出现未预期错误",
				zap.Int64("elapsed_ms", outcome.ElapsedMillis()),
				zap.Error(err),
			)
		}
		outcome.Err = trading.NewError(trading.KindOrder, "place_order", "", err)
		e.record(ctx, outcome)
		return outcome, nil
	}

	outcome.Success = true
	outcome.OrderID = result.OrderID
	outcome.Status = result.Status

	orderID := result.OrderID
	if orderID == "" {
		orderID = "N/A"
	}
	logger.Info("订单执行成功",
		zap.Int64("elapsed_ms", outcome.ElapsedMillis()),
		zap.String("order_id", orderID),
		zap.String("status", result.Status),
	)
	e.record(ctx, outcome)
	return outcome, nil
}

func (e *Engine) submit(ctx context.Context, logger *zap.Logger, req trading.OrderRequest) (result trading.PostResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("execution: 下单过程 panic: %v", r)
		}
	}()

	args := trading.OrderArgs{
		TokenID: req.TokenID,
		Price:   req.Price,
		Size:    req.Size,
		Side:    req.Side,
	}

	logger.Info("正在创建并签名订单")
	createCtx, cancelCreate := withTimeout(ctx, e.opts.RequestTimeout)
	signed, err := e.session.CreateOrder(createCtx, args)
	cancelCreate()
	if err != nil {
		return trading.PostResult{}, fmt.Errorf("创建订单失败: %w", err)
	}

	logger.Info("正在提交订单")
	postCtx, cancelPost := withTimeout(ctx, e.opts.RequestTimeout)
	defer cancelPost()
	result, err = e.session.PostOrder(postCtx, signed, trading.OrderTypeGTC)
	if err != nil {
		return trading.PostResult{}, fmt.Errorf("提交订单失败: %w", err)
	}
	return result, nil
}

// GetOrderStatus 查询订单状态。会话未就绪时返回连接类错误；
// 查询过程失败时返回 nil 状态，错误只写日志。
func (e *Engine) GetOrderStatus(ctx context.Context, orderID string) (*trading.OrderStatus, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.ensureReady("get_order_status"); err != nil {
		return nil, err
	}

	e.logger.Info("查询订单状态", zap.String("order_id", orderID))

	reqCtx, cancel := withTimeout(ctx, e.opts.RequestTimeout)
	defer cancel()

	status, err := e.session.GetOrder(reqCtx, orderID)
	if err != nil {
		e.logger.Error("查询订单状态失败", zap.String("order_id", orderID), zap.Error(err))
		return nil, nil
	}
	return &status, nil
}

// CancelOrder 撤销订单。会话未就绪时返回连接类错误；撤单失败时返回 false。
func (e *Engine) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.ensureReady("cancel_order"); err != nil {
		return false, err
	}

	e.logger.Info("正在撤销订单", zap.String("order_id", orderID))

	reqCtx, cancel := withTimeout(ctx, e.opts.RequestTimeout)
	defer cancel()

	if err := e.session.CancelOrder(reqCtx, orderID); err != nil {
		e.logger.Error("撤销订单失败", zap.String("order_id", orderID), zap.Error(err))
		return false, nil
	}
	e.logger.Info("订单已撤销", zap.String("order_id", orderID))
	return true, nil
}

// Close 关闭会话并回到未初始化状态。
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		e.state = StateUninitialized
		return nil
	}
	err := e.session.Close()
	e.session = nil
	e.state = StateUninitialized
	if err != nil {
		return fmt.Errorf("execution: 关闭会话失败: %w", err)
	}
	return nil
}

// ensureReady 需在持锁状态下调用。
func (e *Engine) ensureReady(op string) error {
	if e.state != StateReady || e.session == nil {
		return trading.NewError(trading.KindConnection, op, "客户端未初始化", nil)
	}
	return nil
}

func (e *Engine) record(ctx context.Context, outcome trading.Outcome) {
	if e.opts.Recorder == nil {
		return
	}
	e.opts.Recorder.RecordOutcome(ctx, outcome)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
