package execution

import (
	"context"

	"polymarket-execution/internal/trading"
)

// Trader 抽象执行引擎接口，方便命令层切换真实或模拟执行。
type Trader interface {
	Initialize(ctx context.Context) bool
	ValidateOrder(req trading.OrderRequest) error
	PlaceOrder(ctx context.Context, req trading.OrderRequest) (trading.Outcome, error)
	GetOrderStatus(ctx context.Context, orderID string) (*trading.OrderStatus, error)
	CancelOrder(ctx context.Context, orderID string) (bool, error)
	Close() error
}

var _ Trader = (*Engine)(nil)
