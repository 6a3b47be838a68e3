package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"polymarket-execution/internal/monitor"
	"polymarket-execution/internal/risk"
	"polymarket-execution/internal/trading"
)

var (
	// ErrInitialize 表示会话初始化失败。
	ErrInitialize = errors.New("交易客户端初始化失败")
	// ErrTradeFailed 表示下单未成功。
	ErrTradeFailed = errors.New("下单失败")
	// ErrNoJournal 表示未启用执行日志。
	ErrNoJournal = errors.New("执行日志未启用")
)

// maxStatusConcurrency 限制 status 子命令的并发查询数。
const maxStatusConcurrency = 4

// TradeInput 为 trade 子命令的参数。
type TradeInput struct {
	TokenID string
	Price   float64
	Size    float64
	Side    string
	DryRun  bool
}

// CheckTradeInput 为命令行层的预检查，早于引擎校验执行。
func CheckTradeInput(in TradeInput) error {
	if strings.TrimSpace(in.TokenID) == "" {
		return errors.New("--token-id 为必填项")
	}
	if !(in.Price >= risk.DefaultMinPrice && in.Price <= risk.MaxPrice) {
		return fmt.Errorf("价格必须位于 %v 与 %v 之间", risk.DefaultMinPrice, risk.MaxPrice)
	}
	if !(in.Size > 0) {
		return errors.New("数量必须为正数")
	}
	return nil
}

// Trade 执行 trade 子命令。dry-run 只做校验并打印订单，不建立会话。
func (a *App) Trade(ctx context.Context, in TradeInput) error {
	if err := CheckTradeInput(in); err != nil {
		fmt.Fprintf(a.out, "错误: %v\n", err)
		return err
	}

	side := trading.SideBuy
	if in.Side != "" {
		parsed, err := trading.ParseSide(in.Side)
		if err != nil {
			fmt.Fprintf(a.out, "错误: %v\n", err)
			return err
		}
		side = parsed
	}

	req := trading.OrderRequest{TokenID: in.TokenID, Price: in.Price, Size: in.Size, Side: side}

	if in.DryRun {
		fmt.Fprintln(a.out, "DRY RUN 模式：不会提交任何订单")
		fmt.Fprintf(a.out, "拟提交 %s 订单:\n", side)
		fmt.Fprintf(a.out, "  Token ID: %s\n", req.TokenID)
		fmt.Fprintf(a.out, "  价格: %v USDC\n", req.Price)
		fmt.Fprintf(a.out, "  数量: %v\n", req.Size)
		fmt.Fprintf(a.out, "  总额: %v USDC\n", req.Notional())

		if err := a.trader.ValidateOrder(req); err != nil {
			fmt.Fprintf(a.out, "校验失败: %v\n", err)
			return err
		}
		fmt.Fprintln(a.out, "订单参数有效")
		return nil
	}

	fmt.Fprintln(a.out, "正在初始化交易客户端...")
	if !a.trader.Initialize(ctx) {
		fmt.Fprintln(a.out, "交易客户端初始化失败，请检查网络与凭证配置")
		return ErrInitialize
	}

	fmt.Fprintf(a.out, "正在执行 %s 订单...\n", side)
	outcome, err := a.trader.PlaceOrder(ctx, req)
	if err != nil {
		fmt.Fprintf(a.out, "%s\n", describeError(err))
		return err
	}
	if !outcome.Success {
		if outcome.Err != nil {
			fmt.Fprintf(a.out, "%s\n", describeError(outcome.Err))
		}
		fmt.Fprintln(a.out, "下单失败")
		return ErrTradeFailed
	}

	orderID := outcome.OrderID
	if orderID == "" {
		orderID = "N/A"
	}
	fmt.Fprintf(a.out, "下单成功! order_id=%s status=%s elapsed=%dms\n", orderID, outcome.Status, outcome.ElapsedMillis())
	return nil
}

// Status 并发查询多个订单状态，任一查询失败即返回错误，但会打印全部结果。
func (a *App) Status(ctx context.Context, orderIDs []string) error {
	if len(orderIDs) == 0 {
		err := errors.New("至少需要一个订单 ID")
		fmt.Fprintf(a.out, "错误: %v\n", err)
		return err
	}
	if !a.trader.Initialize(ctx) {
		fmt.Fprintln(a.out, "交易客户端初始化失败，请检查网络与凭证配置")
		return ErrInitialize
	}

	results := make([]*trading.OrderStatus, len(orderIDs))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxStatusConcurrency)
	for i, id := range orderIDs {
		group.Go(func() error {
			status, err := a.trader.GetOrderStatus(groupCtx, id)
			if err != nil {
				return err
			}
			results[i] = status
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		fmt.Fprintf(a.out, "%s\n", describeError(err))
		return err
	}

	var missing int
	for i, id := range orderIDs {
		status := results[i]
		if status == nil {
			missing++
			fmt.Fprintf(a.out, "%s: 查询失败\n", id)
			if a.journal != nil {
				a.journal.RecordError(ctx, "查询订单状态失败", nil, map[string]interface{}{"order_id": id})
			}
			continue
		}
		fmt.Fprintf(a.out, "%s: status=%s side=%s price=%v matched=%v/%v\n",
			id, status.Status, status.Side, status.Price, status.SizeMatched, status.OriginalSize)
	}
	if missing > 0 {
		return fmt.Errorf("%d 个订单查询失败", missing)
	}
	return nil
}

// Cancel 撤销单个订单并写入执行日志。
func (a *App) Cancel(ctx context.Context, orderID string) error {
	if strings.TrimSpace(orderID) == "" {
		err := errors.New("订单 ID 为必填项")
		fmt.Fprintf(a.out, "错误: %v\n", err)
		return err
	}
	if !a.trader.Initialize(ctx) {
		fmt.Fprintln(a.out, "交易客户端初始化失败，请检查网络与凭证配置")
		return ErrInitialize
	}

	ok, err := a.trader.CancelOrder(ctx, orderID)
	if err != nil {
		fmt.Fprintf(a.out, "%s\n", describeError(err))
		return err
	}
	if a.journal != nil {
		a.journal.RecordCancel(ctx, orderID, ok)
	}
	if !ok {
		fmt.Fprintf(a.out, "撤单失败: %s\n", orderID)
		return fmt.Errorf("撤单失败: %s", orderID)
	}
	fmt.Fprintf(a.out, "订单已撤销: %s\n", orderID)
	return nil
}

// History 打印最近的执行日志。
func (a *App) History(ctx context.Context, filter monitor.Filter) error {
	if a.journal == nil {
		fmt.Fprintln(a.out, "执行日志未启用 (database.enabled=false)")
		return ErrNoJournal
	}

	events, err := a.journal.ListEvents(ctx, filter)
	if err != nil {
		a.logger.Error("读取执行日志失败", zap.Error(err))
		fmt.Fprintf(a.out, "读取执行日志失败: %v\n", err)
		return err
	}
	if len(events) == 0 {
		fmt.Fprintln(a.out, "暂无执行记录")
		return nil
	}
	for _, ev := range events {
		fmt.Fprintf(a.out, "%s  %-15s token=%s order=%s %s\n",
			ev.Timestamp.Format("2006-01-02 15:04:05"), ev.Type, orDash(ev.TokenID), orDash(ev.OrderID), ev.Payload)
	}
	return nil
}

func describeError(err error) string {
	kind, ok := trading.KindOf(err)
	if !ok {
		return fmt.Sprintf("未预期错误: %v", err)
	}
	switch kind {
	case trading.KindValidation:
		return fmt.Sprintf("校验失败: %v", err)
	case trading.KindConnection:
		return fmt.Sprintf("连接错误: %v", err)
	default:
		return fmt.Sprintf("下单错误: %v", err)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
