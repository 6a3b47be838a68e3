package trading

import (
	"fmt"
	"strings"
	"time"
)

// Side 表示下单方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide 解析命令行或配置中的方向字符串，大小写不敏感。
func ParseSide(raw string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(SideBuy):
		return SideBuy, nil
	case string(SideSell):
		return SideSell, nil
	default:
		return "", NewError(KindValidation, "parse_side", fmt.Sprintf("无效的下单方向 %q，仅支持 buy/sell", raw), nil)
	}
}

// Valid 判断方向是否受支持。
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderType 为提交订单时的有效期标记。
type OrderType string

const (
	// OrderTypeGTC 挂单直至成交或撤单。
	OrderTypeGTC OrderType = "GTC"
	OrderTypeFOK OrderType = "FOK"
	OrderTypeGTD OrderType = "GTD"
)

// OrderRequest 为单次下单请求，由调用方构造，执行后即丢弃。
type OrderRequest struct {
	TokenID string
	Price   float64
	Size    float64
	Side    Side
}

// Notional 返回订单总价值 price × size。
func (r OrderRequest) Notional() float64 {
	return r.Price * r.Size
}

// OrderArgs 为交给签名方的订单参数，仅在校验通过后构造。
type OrderArgs struct {
	TokenID string
	Price   float64
	Size    float64
	Side    Side
}

// Credentials 为场所 API 凭证（L2 认证使用）。
type Credentials struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// Empty 判断凭证是否缺失。
func (c Credentials) Empty() bool {
	return c.APIKey == "" || c.Secret == "" || c.Passphrase == ""
}

// SignedOrder 为已签名、可提交的订单。Payload 为场所原始订单结构。
type SignedOrder struct {
	TokenID string
	Side    Side
	Price   float64
	Size    float64
	Payload map[string]interface{}
}

// PostResult 为场所对提交订单的响应。
type PostResult struct {
	OrderID string
	Status  string
}

// OrderStatus 描述场所侧订单状态。
type OrderStatus struct {
	OrderID      string  `json:"order_id"`
	Status       string  `json:"status"`
	TokenID      string  `json:"token_id,omitempty"`
	Side         Side    `json:"side,omitempty"`
	Price        float64 `json:"price,omitempty"`
	OriginalSize float64 `json:"original_size,omitempty"`
	SizeMatched  float64 `json:"size_matched,omitempty"`
}

// Outcome 为一次下单尝试的结果，同步返回给调用方。
type Outcome struct {
	AttemptID string
	Request   OrderRequest
	Success   bool
	OrderID   string
	Status    string
	Elapsed   time.Duration
	Err       error
	At        time.Time
}

// ElapsedMillis 返回耗时毫秒数。
func (o Outcome) ElapsedMillis() int64 {
	return o.Elapsed.Milliseconds()
}

// Kind 返回失败类别，成功时 ok 为 false。
func (o Outcome) Kind() (Kind, bool) {
	if o.Err == nil {
		return 0, false
	}
	return KindOf(o.Err)
}
