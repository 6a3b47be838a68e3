package risk

import (
	"math"
	"regexp"

	"polymarket-execution/internal/trading"
)

var tokenIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateTokenID 校验 token id：非空且仅包含字母、数字、下划线与连字符。
func ValidateTokenID(tokenID string) error {
	if tokenID == "" || !tokenIDPattern.MatchString(tokenID) {
		return trading.Validationf("validate_token_id", "无效的 token id: %q", tokenID)
	}
	return nil
}

// ValidateOrder 按固定顺序校验下单参数，返回第一个失败项。
func ValidateOrder(price, size float64, side trading.Side, limits Limits) error {
	const op = "validate_order"

	if !isFinite(price) || price <= 0 {
		return trading.Validationf(op, "价格必须为正数")
	}
	if !isFinite(size) || size <= 0 {
		return trading.Validationf(op, "数量必须为正数")
	}
	if price < limits.minPrice {
		return trading.Validationf(op, "价格 %v 低于最小值 %v", price, limits.minPrice)
	}
	if price > MaxPrice {
		return trading.Validationf(op, "价格 %v 超过最大值 %v", price, MaxPrice)
	}
	if size < limits.minOrderSize {
		return trading.Validationf(op, "数量 %v 低于最小值 %v", size, limits.minOrderSize)
	}
	if size > limits.maxOrderSize {
		return trading.Validationf(op, "数量 %v 超过最大值 %v", size, limits.maxOrderSize)
	}
	if total := price * size; total > limits.MaxNotional() {
		return trading.Validationf(op, "订单总额 %v 超过安全上限 %v", total, limits.MaxNotional())
	}
	if !side.Valid() {
		return trading.Validationf(op, "无效的下单方向 %q", side)
	}
	return nil
}

// ValidateRequest 同时校验 token id 与数值参数。
func ValidateRequest(req trading.OrderRequest, limits Limits) error {
	if err := ValidateTokenID(req.TokenID); err != nil {
		return err
	}
	return ValidateOrder(req.Price, req.Size, req.Side, limits)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
