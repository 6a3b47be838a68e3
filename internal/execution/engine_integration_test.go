//go:build integration

package execution_test

import (
	"context"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"polymarket-execution/internal/config"
	"polymarket-execution/internal/exchange"
	"polymarket-execution/internal/execution"
	"polymarket-execution/internal/retry"
	"polymarket-execution/internal/trading"
)

// 需要真实凭证：POLYMARKET_PRIVATE_KEY 与 POLYMARKET_PROXY_ADDRESS。
// 设置 POLYMARKET_INTEGRATION_TOKEN_ID 后会提交一笔远离盘口的买单并立即撤销。
func TestEngineIntegration_Polymarket(t *testing.T) {
	cfg, err := config.Load(os.Getenv("POLYMARKET_CONFIG"))
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.Venue.PrivateKey == "" || cfg.Venue.ProxyAddress == "" {
		t.Skip("缺少 Polymarket 钱包配置，跳过测试")
	}
	if err := cfg.Validate(zap.NewNop()); err != nil {
		t.Skipf("配置无效，跳过测试: %v", err)
	}

	limits, err := cfg.TradingLimits()
	if err != nil {
		t.Fatalf("初始化安全限制失败: %v", err)
	}

	logger := zap.NewExample()
	policy := retry.Policy{MaxAttempts: cfg.Retry.MaxAttempts, BaseDelay: cfg.Retry.BaseDelay}
	factory := exchange.NewFactory(exchange.FactoryOptions{
		HTTPTimeout: cfg.Timeouts.RequestTimeout(),
		RateLimit:   cfg.Venue.RateLimit,
		ReadRetry:   policy,
	}, logger)

	engine, err := execution.NewEngine(factory, execution.SessionParams{
		Host:          cfg.Venue.Host,
		ChainID:       cfg.Venue.ChainID,
		PrivateKey:    cfg.Venue.PrivateKey,
		SignatureType: cfg.Venue.SignatureType,
		FunderAddress: cfg.Venue.ProxyAddress,
	}, limits, execution.Options{
		Retry:          policy,
		ConnectTimeout: cfg.Timeouts.ConnectionTimeout(),
		RequestTimeout: cfg.Timeouts.RequestTimeout(),
	}, logger)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if !engine.Initialize(ctx) {
		t.Fatalf("会话初始化失败")
	}

	status, err := engine.GetOrderStatus(ctx, "0x0000000000000000000000000000000000000000000000000000000000000000")
	if err != nil {
		t.Fatalf("GetOrderStatus: %v", err)
	}
	if status != nil {
		t.Fatalf("不存在的订单不应返回状态: %+v", status)
	}

	tokenID := os.Getenv("POLYMARKET_INTEGRATION_TOKEN_ID")
	if tokenID == "" {
		t.Log("未设置 POLYMARKET_INTEGRATION_TOKEN_ID，跳过下单")
		return
	}

	outcome, err := engine.PlaceOrder(ctx, trading.OrderRequest{
		TokenID: tokenID,
		Price:   0.01,
		Size:    5,
		Side:    trading.SideBuy,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("下单失败: %v", outcome.Err)
	}
	t.Logf("下单成功 order_id=%s elapsed=%dms", outcome.OrderID, outcome.ElapsedMillis())

	canceled, err := engine.CancelOrder(ctx, outcome.OrderID)
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if !canceled {
		t.Fatalf("撤单失败 order_id=%s", outcome.OrderID)
	}
}
