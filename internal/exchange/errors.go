package exchange

import (
	"context"
	"errors"
	"net"
	"net/http"

	"polymarket-execution/internal/trading"
)

var (
	// ErrNoCredentials 表示尚未安装 L2 API 凭证。
	ErrNoCredentials = errors.New("exchange: 尚未设置 API 凭证")
	// ErrUnsupportedTickSize 表示场所返回了无法识别的 tick size。
	ErrUnsupportedTickSize = errors.New("exchange: 不支持的 tick size")
)

// IsRetryable 判断只读请求的错误是否可重试：网络错误、限流与 5xx 可重试，
// 上下文取消与其余业务错误不重试。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if apiErr, ok := trading.AsAPIError(err); ok {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
