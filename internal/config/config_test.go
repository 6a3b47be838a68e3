package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	testPrivateKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testAddress    = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Venue.Host != DefaultHost {
		t.Errorf("unexpected host %q", cfg.Venue.Host)
	}
	if cfg.Venue.ChainID != PolygonMainnet {
		t.Errorf("unexpected chain id %d", cfg.Venue.ChainID)
	}
	if cfg.Venue.SignatureType != 1 {
		t.Errorf("unexpected signature type %d", cfg.Venue.SignatureType)
	}
	if cfg.Limits.MaxOrderSize != 1000.0 || cfg.Limits.MinPrice != 0.01 || cfg.Limits.MinOrderSize != 0.1 {
		t.Errorf("unexpected limits %+v", cfg.Limits)
	}
	if cfg.Timeouts.ConnectionTimeout() != 30*time.Second || cfg.Timeouts.RequestTimeout() != 10*time.Second {
		t.Errorf("unexpected timeouts %+v", cfg.Timeouts)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.BaseDelay != time.Second {
		t.Errorf("unexpected retry %+v", cfg.Retry)
	}
	if len(cfg.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", cfg.Warnings)
	}
}

func TestLoad_BindsEnvironment(t *testing.T) {
	t.Setenv("POLYMARKET_HOST", "https://clob.example.com")
	t.Setenv("POLYMARKET_CHAIN_ID", "80001")
	t.Setenv("POLYMARKET_PRIVATE_KEY", testPrivateKey)
	t.Setenv("POLYMARKET_PROXY_ADDRESS", testAddress)
	t.Setenv("POLYMARKET_SIGNATURE_TYPE", "2")
	t.Setenv("POLYMARKET_MAX_ORDER_SIZE", "250.5")
	t.Setenv("POLYMARKET_MAX_RETRIES", "5")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Venue.Host != "https://clob.example.com" || cfg.Venue.ChainID != PolygonTestnet {
		t.Errorf("unexpected venue %+v", cfg.Venue)
	}
	if cfg.Venue.PrivateKey != testPrivateKey || cfg.Venue.ProxyAddress != testAddress {
		t.Errorf("credentials not bound")
	}
	if cfg.Venue.SignatureType != 2 {
		t.Errorf("expected signature type 2, got %d", cfg.Venue.SignatureType)
	}
	if cfg.Limits.MaxOrderSize != 250.5 {
		t.Errorf("expected max order size 250.5, got %v", cfg.Limits.MaxOrderSize)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("expected 5 retries, got %d", cfg.Retry.MaxAttempts)
	}
}

func TestLoad_InvalidSignatureTypeFallsBack(t *testing.T) {
	t.Setenv("POLYMARKET_SIGNATURE_TYPE", "invalid_text")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("invalid signature type must not be an error: %v", err)
	}
	if cfg.Venue.SignatureType != 1 {
		t.Fatalf("expected fallback to 1, got %d", cfg.Venue.SignatureType)
	}
	if len(cfg.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", cfg.Warnings)
	}

	logger, logs := observedLogger()
	cfg.LogWarnings(logger)
	if logs.FilterLevelExact(zapcore.WarnLevel).Len() != 1 {
		t.Fatalf("expected warning to be logged")
	}
}

func TestResolveSignatureType(t *testing.T) {
	cases := []struct {
		raw      string
		want     int
		warnings bool
	}{
		{"", 1, true},
		{"   ", 1, true},
		{"1", 1, false},
		{"2", 2, false},
		{" 2 ", 2, false},
		{"3", 1, true},
		{"0", 1, true},
		{"invalid_text", 1, true},
	}
	for _, tc := range cases {
		got, warning := ResolveSignatureType(tc.raw)
		if got != tc.want || (warning != "") != tc.warnings {
			t.Errorf("raw=%q: got (%d,%q)", tc.raw, got, warning)
		}
	}
}

func TestLoad_MalformedCredentialsAreSoft(t *testing.T) {
	t.Setenv("POLYMARKET_PRIVATE_KEY", "not-a-key")
	t.Setenv("POLYMARKET_PROXY_ADDRESS", "0x1234")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("malformed credentials must not fail loading: %v", err)
	}
	if len(cfg.Warnings) != 2 {
		t.Fatalf("expected two warnings, got %v", cfg.Warnings)
	}

	err = cfg.Validate(zap.NewNop())
	if err == nil {
		t.Fatalf("expected explicit validation to fail")
	}
	if !strings.Contains(err.Error(), "POLYMARKET_PRIVATE_KEY 格式无效") ||
		!strings.Contains(err.Error(), "POLYMARKET_PROXY_ADDRESS 格式无效") {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
venue:
  host: https://clob.file.example
  signature_type: 2
limits:
  max_order_size: 42
database:
  enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Venue.Host != "https://clob.file.example" || cfg.Venue.SignatureType != 2 {
		t.Errorf("unexpected venue %+v", cfg.Venue)
	}
	if cfg.Limits.MaxOrderSize != 42 || cfg.Database.Enabled {
		t.Errorf("file values not applied: %+v %+v", cfg.Limits, cfg.Database)
	}
}

func TestLoad_EmptySignatureTypeWarns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
venue:
  signature_type: ""
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("empty signature type must not be an error: %v", err)
	}
	if cfg.Venue.SignatureType != 1 {
		t.Fatalf("expected fallback to 1, got %d", cfg.Venue.SignatureType)
	}
	if len(cfg.Warnings) != 1 || !strings.Contains(cfg.Warnings[0], "签名方案格式无效") {
		t.Fatalf("expected a format warning, got %v", cfg.Warnings)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func validConfig() *Config {
	return &Config{
		Venue: VenueConfig{
			Host:          DefaultHost,
			ChainID:       PolygonMainnet,
			PrivateKey:    testPrivateKey,
			ProxyAddress:  testAddress,
			SignatureType: 1,
		},
		Limits: LimitsConfig{MaxOrderSize: 500.0, MinPrice: 0.01, MinOrderSize: 0.1},
		Database: DatabaseConfig{
			Enabled: true,
			Path:    "data/executions.db",
		},
	}
}

func TestValidate_Success(t *testing.T) {
	logger, logs := observedLogger()
	if err := validConfig().Validate(logger); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if logs.FilterLevelExact(zapcore.ErrorLevel).Len() != 0 {
		t.Fatalf("unexpected error logs")
	}
}

func TestValidate_UnusualChainIsWarningOnly(t *testing.T) {
	cfg := validConfig()
	cfg.Venue.ChainID = 1

	logger, logs := observedLogger()
	if err := cfg.Validate(logger); err != nil {
		t.Fatalf("unusual chain id must not fail validation: %v", err)
	}
	if logs.FilterMessage("非常见的链 ID: 1").Len() != 1 {
		t.Fatalf("expected chain id warning")
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Venue.PrivateKey = ""
	cfg.Venue.ProxyAddress = ""

	err := cfg.Validate(zap.NewNop())
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	if !strings.Contains(err.Error(), "POLYMARKET_PRIVATE_KEY 为必填项") ||
		!strings.Contains(err.Error(), "POLYMARKET_PROXY_ADDRESS 为必填项") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_NonPositiveMaxOrderSize(t *testing.T) {
	cfg := validConfig()
	cfg.Limits.MaxOrderSize = 0
	if err := cfg.Validate(zap.NewNop()); err == nil || !strings.Contains(err.Error(), "必须为正数") {
		t.Fatalf("expected max order size error, got %v", err)
	}
}

func TestConfigTradingLimits(t *testing.T) {
	limits, err := validConfig().TradingLimits()
	if err != nil {
		t.Fatalf("TradingLimits returned error: %v", err)
	}
	if limits.MaxOrderSize() != 500 || limits.MinPrice() != 0.01 || limits.MinOrderSize() != 0.1 {
		t.Fatalf("unexpected limits %+v", limits)
	}
}

func TestCredentialFormats(t *testing.T) {
	if !IsValidPrivateKey(strings.TrimPrefix(testPrivateKey, "0x")) || !IsValidPrivateKey(testPrivateKey) {
		t.Errorf("expected private key to be valid with and without prefix")
	}
	if IsValidPrivateKey("0x1234") || IsValidPrivateKey(strings.Repeat("g", 64)) {
		t.Errorf("expected invalid private keys to be rejected")
	}
	if !IsValidAddress(testAddress) || IsValidAddress(testAddress+"00") {
		t.Errorf("address validation mismatch")
	}
}

func TestWriteHelp(t *testing.T) {
	var buf bytes.Buffer
	WriteHelp(&buf)
	for _, name := range []string{"POLYMARKET_PRIVATE_KEY", "POLYMARKET_PROXY_ADDRESS", "POLYMARKET_MAX_ORDER_SIZE"} {
		if !strings.Contains(buf.String(), name) {
			t.Errorf("help should mention %s", name)
		}
	}
}
