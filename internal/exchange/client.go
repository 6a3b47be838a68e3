package exchange

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"polymarket-execution/internal/execution"
	"polymarket-execution/internal/retry"
	"polymarket-execution/internal/trading"
)

const maxResponseBytes = 1 << 20

type authLevel int

const (
	authNone authLevel = iota
	authL1
	authL2
)

// Client 为 Polymarket CLOB 的已认证会话，实现 execution.Session。
type Client struct {
	host          string
	chainID       int64
	signatureType int
	key           *ecdsa.PrivateKey
	address       common.Address
	funder        string

	http      *http.Client
	limiter   *rate.Limiter
	builder   *builder.ExchangeOrderBuilderImpl
	readRetry retry.Policy
	logger    *zap.Logger
	now       func() time.Time

	credsMu sync.RWMutex
	creds   trading.Credentials

	metaMu    sync.Mutex
	tickSizes map[string]decimal.Decimal
	negRisk   map[string]bool
}

var _ execution.Session = (*Client)(nil)

// NewClient 解析私钥并构造客户端，不发起网络请求。
func NewClient(params execution.SessionParams, opts FactoryOptions, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	host := strings.TrimRight(strings.TrimSpace(params.Host), "/")
	if host == "" {
		return nil, fmt.Errorf("exchange: host 不能为空")
	}
	if params.ChainID <= 0 {
		return nil, fmt.Errorf("exchange: 无效的链 ID %d", params.ChainID)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimPrefix(params.PrivateKey, "0x"), "0X"))
	if err != nil {
		return nil, fmt.Errorf("exchange: 私钥无效: %w", err)
	}
	address := crypto.PubkeyToAddress(key.PublicKey)

	funder := strings.TrimSpace(params.FunderAddress)
	if funder == "" {
		funder = address.Hex()
	}

	opts = opts.withDefaults()
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.HTTPTimeout}
	}

	return &Client{
		host:          host,
		chainID:       params.ChainID,
		signatureType: params.SignatureType,
		key:           key,
		address:       address,
		funder:        funder,
		http:          httpClient,
		limiter:       rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
		builder:       builder.NewExchangeOrderBuilderImpl(big.NewInt(params.ChainID), nil),
		readRetry:     opts.ReadRetry,
		logger:        logger.With(zap.String("signer", address.Hex())),
		now:           time.Now,
		tickSizes:     make(map[string]decimal.Decimal),
		negRisk:       make(map[string]bool),
	}, nil
}

// Address 返回签名地址。
func (c *Client) Address() common.Address {
	return c.address
}

// SetCredentials 安装 L2 凭证。
func (c *Client) SetCredentials(creds trading.Credentials) {
	c.credsMu.Lock()
	defer c.credsMu.Unlock()
	c.creds = creds
}

func (c *Client) credentials() (trading.Credentials, error) {
	c.credsMu.RLock()
	defer c.credsMu.RUnlock()
	if c.creds.Empty() {
		return trading.Credentials{}, ErrNoCredentials
	}
	return c.creds, nil
}

// Close 释放空闲连接。
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

type request struct {
	method string
	path   string
	query  url.Values
	body   interface{}
	auth   authLevel
	nonce  int64
}

// do 发送请求并把 2xx 响应解码到 out。非 2xx 响应返回 *trading.APIError。
func (c *Client) do(ctx context.Context, req request, out interface{}) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("exchange: 等待限流令牌失败: %w", err)
	}

	var payload []byte
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return 0, fmt.Errorf("exchange: 序列化请求失败: %w", err)
		}
		payload = b
	}

	target := c.host + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, bodyReader)
	if err != nil {
		return 0, fmt.Errorf("exchange: 构造请求失败: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	timestamp := c.now().Unix()
	switch req.auth {
	case authL1:
		headers, err := l1Headers(c.key, c.chainID, timestamp, req.nonce)
		if err != nil {
			return 0, err
		}
		mergeHeaders(httpReq.Header, headers)
	case authL2:
		creds, err := c.credentials()
		if err != nil {
			return 0, err
		}
		mergeHeaders(httpReq.Header, l2Headers(c.address, creds, timestamp, req.method, req.path, payload))
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("exchange: 请求 %s %s 失败: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("exchange: 读取响应失败: %w", err)
	}

	c.logger.Debug("场所请求完成",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &trading.APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
			Path:       req.path,
		}
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("exchange: 解析 %s 响应失败: %w", req.path, err)
		}
	}
	return resp.StatusCode, nil
}

// doRead 为幂等的只读请求加上可重试错误的退避重试。
func (c *Client) doRead(ctx context.Context, req request, out interface{}) error {
	policy := c.readRetry
	policy.Retryable = IsRetryable
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		c.logger.Warn("场所调用失败，等待重试",
			zap.String("path", req.path),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	return retry.Run(ctx, policy, func(ctx context.Context) error {
		_, err := c.do(ctx, req, out)
		return err
	})
}

func mergeHeaders(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

func errorMessage(raw []byte) string {
	var body errorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return msg
}
