package config

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"polymarket-execution/internal/risk"
)

const (
	// DefaultHost 为场所生产环境 CLOB 地址。
	DefaultHost = "https://clob.polymarket.com"

	PolygonMainnet = 137
	PolygonTestnet = 80001

	// DefaultSignatureType 为签名方案回退值。
	DefaultSignatureType = 1
)

var (
	validSignatureTypes = map[int]struct{}{1: {}, 2: {}}

	hexPattern = regexp.MustCompile(`^[0-9a-fA-F]+$`)
)

// Config 聚合了执行客户端运行所需的全部配置项。
type Config struct {
	Venue    VenueConfig    `mapstructure:"venue"`
	Limits   LimitsConfig   `mapstructure:"limits"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`

	// Warnings 为加载阶段产生的非致命提示，待日志初始化后输出。
	Warnings []string `mapstructure:"-"`
}

// VenueConfig 描述场所连接与认证信息。
type VenueConfig struct {
	Host             string  `mapstructure:"host"`
	ChainID          int64   `mapstructure:"chain_id"`
	PrivateKey       string  `mapstructure:"private_key"`
	ProxyAddress     string  `mapstructure:"proxy_address"`
	SignatureTypeRaw string  `mapstructure:"signature_type"`
	RateLimit        float64 `mapstructure:"rate_limit"`

	// SignatureType 为解析后的签名方案，始终位于 {1,2}。
	SignatureType int `mapstructure:"-"`
}

// LimitsConfig 为下单安全限制。
type LimitsConfig struct {
	MaxOrderSize float64 `mapstructure:"max_order_size"`
	MinPrice     float64 `mapstructure:"min_price"`
	MinOrderSize float64 `mapstructure:"min_order_size"`
}

// TimeoutsConfig 以秒为单位，与环境变量保持一致。
type TimeoutsConfig struct {
	Connection int `mapstructure:"connection"`
	Request    int `mapstructure:"request"`
}

// ConnectionTimeout 返回单次会话初始化的超时时间。
func (t TimeoutsConfig) ConnectionTimeout() time.Duration {
	return time.Duration(t.Connection) * time.Second
}

// RequestTimeout 返回单次场所请求的超时时间。
func (t TimeoutsConfig) RequestTimeout() time.Duration {
	return time.Duration(t.Request) * time.Second
}

// RetryConfig 控制会话初始化的重试。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
}

// DatabaseConfig 管理执行日志数据库。
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// resolve 处理加载阶段的软性规则：格式异常只记警告，签名方案非法时回退为 1。
func (c *Config) resolve() {
	if c.Venue.PrivateKey != "" && !IsValidPrivateKey(c.Venue.PrivateKey) {
		c.warn("私钥格式疑似无效")
	}
	if c.Venue.ProxyAddress != "" && !IsValidAddress(c.Venue.ProxyAddress) {
		c.warn("代理地址格式疑似无效")
	}

	sigType, warning := ResolveSignatureType(c.Venue.SignatureTypeRaw)
	c.Venue.SignatureType = sigType
	if warning != "" {
		c.warn(warning)
	}
}

func (c *Config) warn(msg string) {
	c.Warnings = append(c.Warnings, msg)
}

// LogWarnings 输出加载阶段积累的警告。
func (c *Config) LogWarnings(logger *zap.Logger) {
	if logger == nil {
		return
	}
	for _, w := range c.Warnings {
		logger.Warn(w)
	}
}

// ResolveSignatureType 解析签名方案，非法或无法解析时回退为 1 并返回警告文本。
func ResolveSignatureType(raw string) (int, string) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return DefaultSignatureType, "签名方案格式无效，使用默认值 1"
	}
	if _, ok := validSignatureTypes[value]; !ok {
		return DefaultSignatureType, fmt.Sprintf("无效的签名方案 %d，使用默认值 1", value)
	}
	return value, ""
}

// IsValidPrivateKey 校验私钥为 64 位十六进制（可带 0x 前缀）。
func IsValidPrivateKey(key string) bool {
	return isHexOfLength(key, 64)
}

// IsValidAddress 校验地址为 40 位十六进制（可带 0x 前缀）。
func IsValidAddress(address string) bool {
	return isHexOfLength(address, 40)
}

func isHexOfLength(value string, length int) bool {
	clean := strings.TrimPrefix(strings.TrimPrefix(value, "0x"), "0X")
	return len(clean) == length && hexPattern.MatchString(clean)
}

// TradingLimits 根据配置构造安全限制。
func (c *Config) TradingLimits() (risk.Limits, error) {
	return risk.NewLimits(c.Limits.MaxOrderSize, c.Limits.MinPrice, c.Limits.MinOrderSize)
}

// Validate 对配置进行完整校验：缺失或格式错误的凭证、非正的 max_order_size 为错误，
// 非常见链 ID 仅为警告。警告与错误均写入日志，错误聚合后返回，由调用方决定是否退出。
func (c *Config) Validate(logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		err      error
		warnings []string
	)

	switch {
	case c.Venue.PrivateKey == "":
		err = multierr.Append(err, errors.New("POLYMARKET_PRIVATE_KEY 为必填项"))
	case !IsValidPrivateKey(c.Venue.PrivateKey):
		err = multierr.Append(err, errors.New("POLYMARKET_PRIVATE_KEY 格式无效"))
	}

	switch {
	case c.Venue.ProxyAddress == "":
		err = multierr.Append(err, errors.New("POLYMARKET_PROXY_ADDRESS 为必填项"))
	case !IsValidAddress(c.Venue.ProxyAddress):
		err = multierr.Append(err, errors.New("POLYMARKET_PROXY_ADDRESS 格式无效"))
	}

	if c.Venue.ChainID != PolygonMainnet && c.Venue.ChainID != PolygonTestnet {
		warnings = append(warnings, fmt.Sprintf("非常见的链 ID: %d", c.Venue.ChainID))
	}

	if c.Limits.MaxOrderSize <= 0 {
		err = multierr.Append(err, errors.New("POLYMARKET_MAX_ORDER_SIZE 必须为正数"))
	} else if c.Limits.MinOrderSize > c.Limits.MaxOrderSize {
		err = multierr.Append(err, errors.New("POLYMARKET_MIN_ORDER_SIZE 不能大于 POLYMARKET_MAX_ORDER_SIZE"))
	}

	if c.Database.Enabled && c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}

	for _, w := range warnings {
		logger.Warn(w)
	}

	if err != nil {
		logger.Error("配置校验失败")
		for _, e := range multierr.Errors(err) {
			logger.Error("  - " + e.Error())
		}
		return fmt.Errorf("配置校验失败: %w", err)
	}

	logger.Info("配置校验通过")
	return nil
}
