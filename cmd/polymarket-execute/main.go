package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"polymarket-execution/internal/app"
	"polymarket-execution/internal/config"
	"polymarket-execution/internal/log"
	"polymarket-execution/internal/monitor"
)

const usage = `用法: polymarket-execute [--config path] <command> [flags]

命令:
  trade    --token-id ID --price P --size S [--side buy|sell] [--dry-run]
  status   <order-id>...
  cancel   <order-id>
  history  [--limit N] [--type TYPE] [--token-id ID]
  serve    [--addr :8080]

示例:
  polymarket-execute trade --token-id "12345" --price 0.50 --size 10.0
  polymarket-execute trade --token-id "12345" --price 0.60 --size 5.0 --side sell
  polymarket-execute trade --token-id "12345" --price 0.50 --size 5.0 --dry-run
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("polymarket-execute", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := global.String("config", "", "YAML 配置文件路径，可选")
	if err := global.Parse(args); err != nil {
		return 1
	}

	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprint(stdout, usage)
		return 0
	}
	command, cmdArgs := rest[0], rest[1:]

	cmd, err := parseCommand(command, cmdArgs, stderr)
	if err != nil {
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "初始化日志失败: %v\n", err)
		return 1
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	cfg.LogWarnings(logger)
	if err := cfg.Validate(logger); err != nil {
		config.WriteHelp(stderr)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tradingApp, err := app.Build(ctx, cfg, logger, stdout)
	if err != nil {
		logger.Error("初始化失败", zap.Error(err))
		return 1
	}
	defer func() {
		if closeErr := tradingApp.Close(); closeErr != nil {
			logger.Warn("关闭资源失败", zap.Error(closeErr))
		}
	}()

	if err := cmd(ctx, tradingApp); err != nil {
		logger.Debug("命令执行失败", zap.String("command", command), zap.Error(err))
		return 1
	}
	return 0
}

type commandFunc func(ctx context.Context, a *app.App) error

// parseCommand 在加载配置之前解析子命令参数，参数错误无需触达配置与网络。
func parseCommand(name string, args []string, stderr io.Writer) (commandFunc, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	switch name {
	case "trade":
		var in app.TradeInput
		fs.StringVar(&in.TokenID, "token-id", "", "Token ID")
		fs.Float64Var(&in.Price, "price", 0, "价格 (0.01-1.0)")
		fs.Float64Var(&in.Size, "size", 0, "数量")
		fs.StringVar(&in.Side, "side", "buy", "方向 buy|sell")
		fs.BoolVar(&in.DryRun, "dry-run", false, "仅校验参数，不提交订单")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if err := app.CheckTradeInput(in); err != nil {
			fmt.Fprintf(stderr, "错误: %v\n", err)
			return nil, err
		}
		return func(ctx context.Context, a *app.App) error { return a.Trade(ctx, in) }, nil

	case "status":
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		ids := fs.Args()
		if len(ids) == 0 {
			fmt.Fprintln(stderr, "错误: 至少需要一个订单 ID")
			return nil, flag.ErrHelp
		}
		return func(ctx context.Context, a *app.App) error { return a.Status(ctx, ids) }, nil

	case "cancel":
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(stderr, "错误: 需要且仅需要一个订单 ID")
			return nil, flag.ErrHelp
		}
		id := fs.Arg(0)
		return func(ctx context.Context, a *app.App) error { return a.Cancel(ctx, id) }, nil

	case "history":
		var (
			filter  monitor.Filter
			typeRaw string
		)
		fs.IntVar(&filter.Limit, "limit", 20, "最多显示的记录数")
		fs.StringVar(&typeRaw, "type", "", "事件类型过滤")
		fs.StringVar(&filter.TokenID, "token-id", "", "Token ID 过滤")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		filter.Type = monitor.EventType(typeRaw)
		return func(ctx context.Context, a *app.App) error { return a.History(ctx, filter) }, nil

	case "serve":
		addr := fs.String("addr", ":8080", "监听地址")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return func(ctx context.Context, a *app.App) error { return a.Serve(ctx, *addr) }, nil

	default:
		fmt.Fprintf(stderr, "未知命令: %s\n\n%s", name, usage)
		return nil, flag.ErrHelp
	}
}
