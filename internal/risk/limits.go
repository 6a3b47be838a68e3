package risk

import (
	"errors"
	"fmt"
)

const (
	// MaxPrice 为价格上限，场所价格以概率计价。
	MaxPrice = 1.0

	DefaultMaxOrderSize = 1000.0
	DefaultMinPrice     = 0.01
	DefaultMinOrderSize = 0.1
)

// Limits 为下单安全限制，启动时构造一次，之后只读共享。
type Limits struct {
	maxOrderSize float64
	minPrice     float64
	minOrderSize float64
}

// NewLimits 创建安全限制，max_order_size 必须为正且不小于 min_order_size。
func NewLimits(maxOrderSize, minPrice, minOrderSize float64) (Limits, error) {
	if !isFinite(maxOrderSize) || maxOrderSize <= 0 {
		return Limits{}, fmt.Errorf("risk: max_order_size 必须为正数，当前为 %v", maxOrderSize)
	}
	if !isFinite(minPrice) || !isFinite(minOrderSize) {
		return Limits{}, errors.New("risk: min_price 与 min_order_size 必须为有限数值")
	}
	if minOrderSize > maxOrderSize {
		return Limits{}, fmt.Errorf("risk: min_order_size %v 不能大于 max_order_size %v", minOrderSize, maxOrderSize)
	}
	return Limits{
		maxOrderSize: maxOrderSize,
		minPrice:     minPrice,
		minOrderSize: minOrderSize,
	}, nil
}

// DefaultLimits 返回默认安全限制。
func DefaultLimits() Limits {
	return Limits{
		maxOrderSize: DefaultMaxOrderSize,
		minPrice:     DefaultMinPrice,
		minOrderSize: DefaultMinOrderSize,
	}
}

func (l Limits) MaxOrderSize() float64 { return l.maxOrderSize }
func (l Limits) MinPrice() float64     { return l.minPrice }
func (l Limits) MinOrderSize() float64 { return l.minOrderSize }

// MaxNotional 返回单笔订单总价值上限。
func (l Limits) MaxNotional() float64 {
	return MaxPrice * l.maxOrderSize
}

// Valid 判断是否为通过 NewLimits 构造的有效限制。
func (l Limits) Valid() bool {
	return l.maxOrderSize > 0 && l.minOrderSize <= l.maxOrderSize
}
