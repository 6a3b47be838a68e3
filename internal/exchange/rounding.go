package exchange

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"polymarket-execution/internal/trading"
)

var one = decimal.NewFromInt(1)

func roundConfigFor(tickSize decimal.Decimal) (roundConfig, error) {
	switch tickSize.String() {
	case "0.1":
		return roundConfig{price: 1, size: 2, amount: 3}, nil
	case "0.01":
		return roundConfig{price: 2, size: 2, amount: 4}, nil
	case "0.001":
		return roundConfig{price: 3, size: 2, amount: 5}, nil
	case "0.0001":
		return roundConfig{price: 4, size: 2, amount: 6}, nil
	default:
		return roundConfig{}, fmt.Errorf("%w: %s", ErrUnsupportedTickSize, tickSize.String())
	}
}

// priceInTickRange 要求 tick <= price <= 1 - tick。
func priceInTickRange(price, tickSize decimal.Decimal) bool {
	return price.GreaterThanOrEqual(tickSize) && price.LessThanOrEqual(one.Sub(tickSize))
}

// orderAmounts 计算以 6 位精度表示的 maker/taker 数量。
// 买单 maker 付出 USDC、taker 收到份额；卖单相反。
func orderAmounts(side trading.Side, size, price float64, rc roundConfig) (maker, taker *big.Int, err error) {
	rawPrice := decimal.NewFromFloat(price).Round(rc.price)
	rawSize := decimal.NewFromFloat(size).RoundDown(rc.size)
	if !rawSize.IsPositive() {
		return nil, nil, fmt.Errorf("exchange: 数量 %v 按 %d 位小数取整后为零", size, rc.size)
	}

	var rawMaker, rawTaker decimal.Decimal
	switch side {
	case trading.SideBuy:
		rawTaker = rawSize
		rawMaker = fitAmount(rawTaker.Mul(rawPrice), rc.amount)
	case trading.SideSell:
		rawMaker = rawSize
		rawTaker = fitAmount(rawMaker.Mul(rawPrice), rc.amount)
	default:
		return nil, nil, fmt.Errorf("exchange: 无效的下单方向 %q", side)
	}

	return toTokenUnits(rawMaker), toTokenUnits(rawTaker), nil
}

// fitAmount 将金额限制在 places 位小数内：先在 places+4 位上向上取整，
// 仍超出时再向下截断。
func fitAmount(amount decimal.Decimal, places int32) decimal.Decimal {
	if !exceedsPlaces(amount, places) {
		return amount
	}
	amount = amount.RoundUp(places + 4)
	if exceedsPlaces(amount, places) {
		amount = amount.RoundDown(places)
	}
	return amount
}

func exceedsPlaces(d decimal.Decimal, places int32) bool {
	return !d.Truncate(places).Equal(d)
}

func toTokenUnits(d decimal.Decimal) *big.Int {
	return d.Shift(tokenDecimals).Round(0).BigInt()
}
