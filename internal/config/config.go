package config

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "polymarket"

// envBindings 保持与历史部署一致的环境变量名。
var envBindings = map[string]string{
	"venue.host":            "POLYMARKET_HOST",
	"venue.chain_id":        "POLYMARKET_CHAIN_ID",
	"venue.private_key":     "POLYMARKET_PRIVATE_KEY",
	"venue.proxy_address":   "POLYMARKET_PROXY_ADDRESS",
	"venue.signature_type":  "POLYMARKET_SIGNATURE_TYPE",
	"limits.max_order_size": "POLYMARKET_MAX_ORDER_SIZE",
	"limits.min_price":      "POLYMARKET_MIN_PRICE",
	"limits.min_order_size": "POLYMARKET_MIN_ORDER_SIZE",
	"timeouts.connection":   "POLYMARKET_CONNECTION_TIMEOUT",
	"timeouts.request":      "POLYMARKET_REQUEST_TIMEOUT",
	"retry.max_attempts":    "POLYMARKET_MAX_RETRIES",
	"retry.base_delay":      "POLYMARKET_RETRY_DELAY",
	"database.path":         "POLYMARKET_JOURNAL_PATH",
	"database.enabled":      "POLYMARKET_JOURNAL_ENABLED",
	"logging.level":         "POLYMARKET_LOG_LEVEL",
	"logging.encoding":      "POLYMARKET_LOG_ENCODING",
}

// Load 读取 .env、可选的 YAML 配置文件与环境变量并返回 Config。
// 加载阶段只产生警告（Config.Warnings），硬性校验由 Validate 完成。
func Load(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("绑定环境变量 %s 失败: %w", env, err)
		}
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
			}
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.resolve()
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("venue.host", DefaultHost)
	v.SetDefault("venue.chain_id", PolygonMainnet)
	v.SetDefault("venue.private_key", "")
	v.SetDefault("venue.proxy_address", "")
	v.SetDefault("venue.signature_type", "1")
	v.SetDefault("venue.rate_limit", 10.0)

	v.SetDefault("limits.max_order_size", 1000.0)
	v.SetDefault("limits.min_price", 0.01)
	v.SetDefault("limits.min_order_size", 0.1)

	v.SetDefault("timeouts.connection", 30)
	v.SetDefault("timeouts.request", 10)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "1s")

	v.SetDefault("database.enabled", true)
	v.SetDefault("database.path", "data/executions.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.output_paths", []string{"stderr"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
