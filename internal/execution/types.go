package execution

import (
	"context"
	"time"

	"polymarket-execution/internal/retry"
	"polymarket-execution/internal/trading"
)

// State 为会话生命周期状态。初始化失败不会进入单独的失败态，而是保持未初始化。
type State int32

const (
	StateUninitialized State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "uninitialized"
}

// SessionParams 为建立场所会话所需的连接参数。
type SessionParams struct {
	Host          string
	ChainID       int64
	PrivateKey    string
	SignatureType int
	FunderAddress string
}

// SessionFactory 建立到场所的会话。
type SessionFactory interface {
	Connect(ctx context.Context, params SessionParams) (Session, error)
}

// Session 为已认证的场所句柄，负责订单签名与提交。
// 场所侧业务错误以 *trading.APIError 返回。
type Session interface {
	DeriveOrCreateCredentials(ctx context.Context) (trading.Credentials, error)
	SetCredentials(creds trading.Credentials)
	CreateOrder(ctx context.Context, args trading.OrderArgs) (trading.SignedOrder, error)
	PostOrder(ctx context.Context, order trading.SignedOrder, orderType trading.OrderType) (trading.PostResult, error)
	GetOrder(ctx context.Context, orderID string) (trading.OrderStatus, error)
	CancelOrder(ctx context.Context, orderID string) error
	Close() error
}

// Recorder 接收每次下单尝试的结果，用于持久化执行日志。
type Recorder interface {
	RecordOutcome(ctx context.Context, outcome trading.Outcome)
}

// Options 控制引擎的重试与超时。
type Options struct {
	Retry          retry.Policy
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	Recorder       Recorder
}

// DefaultOptions 返回默认参数：初始化重试 3 次、基础间隔 1s，连接 30s，请求 10s。
func DefaultOptions() Options {
	return Options{
		Retry:          retry.DefaultPolicy(),
		ConnectTimeout: 30 * time.Second,
		RequestTimeout: 10 * time.Second,
	}
}
