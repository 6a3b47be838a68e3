package exchange

import (
	"github.com/shopspring/decimal"

	"polymarket-execution/internal/trading"
)

const (
	zeroAddress = "0x0000000000000000000000000000000000000000"

	// 场所代币与 USDC 均为 6 位精度。
	tokenDecimals = 6

	clobAuthDomain  = "ClobAuthDomain"
	clobAuthVersion = "1"
	clobAuthMessage = "This message attests that I control the given wallet"
)

// HTTP 端点。
const (
	pathCreateAPIKey = "/auth/api-key"
	pathDeriveAPIKey = "/auth/derive-api-key"
	pathTickSize     = "/tick-size"
	pathNegRisk      = "/neg-risk"
	pathOrder        = "/order"
	pathOrderData    = "/data/order/"
)

// roundConfig 为某一 tick size 下价格、数量与金额的小数位数。
type roundConfig struct {
	price  int32
	size   int32
	amount int32
}

type tickSizeResponse struct {
	MinimumTickSize decimal.Decimal `json:"minimum_tick_size"`
}

type negRiskResponse struct {
	NegRisk bool `json:"neg_risk"`
}

type postOrderRequest struct {
	Order     map[string]interface{} `json:"order"`
	Owner     string                 `json:"owner"`
	OrderType trading.OrderType      `json:"orderType"`
}

type postOrderResponse struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg"`
	OrderID  string `json:"orderID"`
	Status   string `json:"status"`
}

type cancelOrderRequest struct {
	OrderID string `json:"orderID"`
}

type cancelOrderResponse struct {
	Canceled    []string          `json:"canceled"`
	NotCanceled map[string]string `json:"not_canceled"`
}

type openOrderResponse struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	AssetID      string          `json:"asset_id"`
	Side         string          `json:"side"`
	Price        decimal.Decimal `json:"price"`
	OriginalSize decimal.Decimal `json:"original_size"`
	SizeMatched  decimal.Decimal `json:"size_matched"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (o openOrderResponse) toStatus() trading.OrderStatus {
	return trading.OrderStatus{
		OrderID:      o.ID,
		Status:       o.Status,
		TokenID:      o.AssetID,
		Side:         trading.Side(o.Side),
		Price:        o.Price.InexactFloat64(),
		OriginalSize: o.OriginalSize.InexactFloat64(),
		SizeMatched:  o.SizeMatched.InexactFloat64(),
	}
}
