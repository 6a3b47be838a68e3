package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/polymarket/go-order-utils/pkg/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"polymarket-execution/internal/execution"
	"polymarket-execution/internal/retry"
	"polymarket-execution/internal/trading"
)

// FactoryOptions 控制 HTTP 传输、限流与只读请求重试。
type FactoryOptions struct {
	HTTPClient  *http.Client
	HTTPTimeout time.Duration
	// RateLimit 为每秒请求数，<=0 表示不限流。
	RateLimit float64
	Burst     int
	ReadRetry retry.Policy
}

func (o FactoryOptions) withDefaults() FactoryOptions {
	if o.HTTPTimeout <= 0 {
		o.HTTPTimeout = 10 * time.Second
	}
	if o.RateLimit <= 0 {
		o.RateLimit = float64(rate.Inf)
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	if o.ReadRetry.MaxAttempts <= 0 {
		o.ReadRetry = retry.Policy{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond}
	}
	return o
}

// Factory 为 Polymarket CLOB 建立会话。
type Factory struct {
	opts   FactoryOptions
	logger *zap.Logger
}

var _ execution.SessionFactory = (*Factory)(nil)

// NewFactory 创建会话工厂。
func NewFactory(opts FactoryOptions, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{opts: opts, logger: logger}
}

// Connect 实现 execution.SessionFactory。
func (f *Factory) Connect(_ context.Context, params execution.SessionParams) (execution.Session, error) {
	client, err := NewClient(params, f.opts, f.logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// DeriveOrCreateCredentials 先尝试创建 API Key，失败时派生已有的 Key。
func (c *Client) DeriveOrCreateCredentials(ctx context.Context) (trading.Credentials, error) {
	var created trading.Credentials
	_, createErr := c.do(ctx, request{method: http.MethodPost, path: pathCreateAPIKey, auth: authL1}, &created)
	if createErr == nil && !created.Empty() {
		c.logger.Info("已创建 API 凭证")
		return created, nil
	}
	c.logger.Debug("创建 API 凭证失败，尝试派生", zap.Error(createErr))

	var derived trading.Credentials
	if _, err := c.do(ctx, request{method: http.MethodGet, path: pathDeriveAPIKey, auth: authL1}, &derived); err != nil {
		return trading.Credentials{}, fmt.Errorf("exchange: 获取 API 凭证失败: %w", errors.Join(createErr, err))
	}
	if derived.Empty() {
		return trading.Credentials{}, errors.New("exchange: 场所返回的 API 凭证不完整")
	}
	c.logger.Info("已派生 API 凭证")
	return derived, nil
}

// CreateOrder 按 tick size 取整金额并用 EIP-712 签名订单。
func (c *Client) CreateOrder(ctx context.Context, args trading.OrderArgs) (trading.SignedOrder, error) {
	tickSize, err := c.tickSize(ctx, args.TokenID)
	if err != nil {
		return trading.SignedOrder{}, err
	}
	rc, err := roundConfigFor(tickSize)
	if err != nil {
		return trading.SignedOrder{}, err
	}
	if !priceInTickRange(decimal.NewFromFloat(args.Price), tickSize) {
		return trading.SignedOrder{}, fmt.Errorf("exchange: 价格 %v 不在 tick size %s 允许的区间 [%s, %s]",
			args.Price, tickSize.String(), tickSize.String(), one.Sub(tickSize).String())
	}

	negRisk, err := c.isNegRisk(ctx, args.TokenID)
	if err != nil {
		return trading.SignedOrder{}, err
	}

	makerAmount, takerAmount, err := orderAmounts(args.Side, args.Size, args.Price, rc)
	if err != nil {
		return trading.SignedOrder{}, err
	}

	var side int
	if args.Side == trading.SideBuy {
		side = model.BUY
	} else {
		side = model.SELL
	}

	contract := model.CTFExchange
	if negRisk {
		contract = model.NegRiskCTFExchange
	}

	data := &model.OrderData{
		Maker:         c.funder,
		Signer:        c.address.Hex(),
		Taker:         zeroAddress,
		TokenId:       args.TokenID,
		MakerAmount:   makerAmount.String(),
		TakerAmount:   takerAmount.String(),
		Side:          side,
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "0",
		SignatureType: c.signatureType,
	}

	signed, err := c.builder.BuildSignedOrder(c.key, data, contract)
	if err != nil {
		return trading.SignedOrder{}, fmt.Errorf("exchange: 订单签名失败: %w", err)
	}

	c.logger.Debug("订单已签名",
		zap.String("token_id", args.TokenID),
		zap.String("tick_size", tickSize.String()),
		zap.Bool("neg_risk", negRisk),
		zap.String("maker_amount", makerAmount.String()),
		zap.String("taker_amount", takerAmount.String()),
	)

	return trading.SignedOrder{
		TokenID: args.TokenID,
		Side:    args.Side,
		Price:   args.Price,
		Size:    args.Size,
		Payload: map[string]interface{}{
			"salt":          signed.Order.Salt.Int64(),
			"maker":         signed.Order.Maker.Hex(),
			"signer":        signed.Order.Signer.Hex(),
			"taker":         signed.Order.Taker.Hex(),
			"tokenId":       signed.Order.TokenId.String(),
			"makerAmount":   signed.Order.MakerAmount.String(),
			"takerAmount":   signed.Order.TakerAmount.String(),
			"side":          string(args.Side),
			"expiration":    signed.Order.Expiration.String(),
			"nonce":         signed.Order.Nonce.String(),
			"feeRateBps":    signed.Order.FeeRateBps.String(),
			"signatureType": int(signed.Order.SignatureType.Int64()),
			"signature":     hexutil.Encode(signed.Signature),
		},
	}, nil
}

// PostOrder 提交已签名订单。场所拒绝时返回 *trading.APIError。
func (c *Client) PostOrder(ctx context.Context, order trading.SignedOrder, orderType trading.OrderType) (trading.PostResult, error) {
	creds, err := c.credentials()
	if err != nil {
		return trading.PostResult{}, err
	}

	body := postOrderRequest{
		Order:     order.Payload,
		Owner:     creds.APIKey,
		OrderType: orderType,
	}

	var resp postOrderResponse
	status, err := c.do(ctx, request{method: http.MethodPost, path: pathOrder, body: body, auth: authL2}, &resp)
	if err != nil {
		return trading.PostResult{}, err
	}
	if !resp.Success || resp.ErrorMsg != "" {
		msg := resp.ErrorMsg
		if msg == "" {
			msg = "order rejected"
		}
		return trading.PostResult{}, &trading.APIError{StatusCode: status, Message: msg, Path: pathOrder}
	}

	return trading.PostResult{OrderID: resp.OrderID, Status: resp.Status}, nil
}

// GetOrder 查询单个订单。
func (c *Client) GetOrder(ctx context.Context, orderID string) (trading.OrderStatus, error) {
	var resp *openOrderResponse
	path := pathOrderData + url.PathEscape(orderID)
	if err := c.doRead(ctx, request{method: http.MethodGet, path: path, auth: authL2}, &resp); err != nil {
		return trading.OrderStatus{}, err
	}
	if resp == nil || resp.ID == "" {
		return trading.OrderStatus{}, &trading.APIError{StatusCode: http.StatusNotFound, Message: "order not found", Path: path}
	}
	return resp.toStatus(), nil
}

// CancelOrder 撤销订单，场所未确认撤销时返回错误。
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	var resp cancelOrderResponse
	status, err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   pathOrder,
		body:   cancelOrderRequest{OrderID: orderID},
		auth:   authL2,
	}, &resp)
	if err != nil {
		return err
	}

	for _, id := range resp.Canceled {
		if id == orderID {
			return nil
		}
	}
	reason := resp.NotCanceled[orderID]
	if reason == "" {
		reason = "cancel not confirmed"
	}
	return &trading.APIError{StatusCode: status, Message: reason, Path: pathOrder}
}

func (c *Client) tickSize(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	c.metaMu.Lock()
	cached, ok := c.tickSizes[tokenID]
	c.metaMu.Unlock()
	if ok {
		return cached, nil
	}

	var resp tickSizeResponse
	query := url.Values{"token_id": []string{tokenID}}
	if err := c.doRead(ctx, request{method: http.MethodGet, path: pathTickSize, query: query}, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("exchange: 获取 tick size 失败: %w", err)
	}
	if !resp.MinimumTickSize.IsPositive() {
		return decimal.Zero, fmt.Errorf("exchange: tick size 响应缺少 minimum_tick_size")
	}

	c.metaMu.Lock()
	c.tickSizes[tokenID] = resp.MinimumTickSize
	c.metaMu.Unlock()
	return resp.MinimumTickSize, nil
}

func (c *Client) isNegRisk(ctx context.Context, tokenID string) (bool, error) {
	c.metaMu.Lock()
	cached, ok := c.negRisk[tokenID]
	c.metaMu.Unlock()
	if ok {
		return cached, nil
	}

	var resp negRiskResponse
	query := url.Values{"token_id": []string{tokenID}}
	if err := c.doRead(ctx, request{method: http.MethodGet, path: pathNegRisk, query: query}, &resp); err != nil {
		return false, fmt.Errorf("exchange: 获取 neg-risk 标记失败: %w", err)
	}

	c.metaMu.Lock()
	c.negRisk[tokenID] = resp.NegRisk
	c.metaMu.Unlock()
	return resp.NegRisk, nil
}
