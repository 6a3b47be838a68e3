package config

import (
	"fmt"
	"io"
)

// WriteHelp 输出配置缺失时的修复提示。
func WriteHelp(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "配置帮助:")
	fmt.Fprintln(w, "请确认 .env 文件包含:")
	fmt.Fprintln(w, "POLYMARKET_PRIVATE_KEY=your_wallet_private_key")
	fmt.Fprintln(w, "POLYMARKET_PROXY_ADDRESS=your_polymarket_proxy_address")
	fmt.Fprintln(w, "POLYMARKET_SIGNATURE_TYPE=1  # 可选，默认 1")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "可选的安全设置:")
	fmt.Fprintln(w, "POLYMARKET_MAX_ORDER_SIZE=1000.0  # 单笔最大数量")
	fmt.Fprintln(w, "POLYMARKET_CONNECTION_TIMEOUT=30  # 连接超时（秒）")
}
