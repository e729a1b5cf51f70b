package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/any-hub/fetchcache/internal/freshness"
)

func TestLoadWithDefaults(t *testing.T) {
	cfgPath := testConfigPath(t, "valid.toml")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Global.ListenPort != 5100 {
		t.Fatalf("ListenPort 应当被解析, got %d", cfg.Global.ListenPort)
	}
	if !filepath.IsAbs(cfg.Global.StoragePath) {
		t.Fatalf("StoragePath 应被转换为绝对路径: %s", cfg.Global.StoragePath)
	}
	if cfg.Global.MaxMemoryCacheEntries != 1024 {
		t.Fatalf("MaxMemoryCacheEntries 应填充默认值, got %d", cfg.Global.MaxMemoryCacheEntries)
	}
	if cfg.Global.UpstreamTimeout.DurationValue() != 15*time.Second {
		t.Fatalf("UpstreamTimeout 解析错误: %s", cfg.Global.UpstreamTimeout.DurationValue())
	}
	if !cfg.Global.CompressionEnabled() || !cfg.Global.SingleFlight || !cfg.Global.LenientDecoding {
		t.Fatalf("Compression/SingleFlight/LenientDecoding 应被解析")
	}

	policy, err := cfg.Global.FreshnessPolicy()
	if err != nil {
		t.Fatalf("FreshnessPolicy 返回错误: %v", err)
	}
	if policy != freshness.RefreshAfter(10*time.Minute) {
		t.Fatalf("纯数字 RefreshAfter 应按秒解析, got %s", policy)
	}
}

func TestLoadAppliesFreshnessDefault(t *testing.T) {
	path := writeTempConfig(t, `StoragePath = "./data"`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	policy, err := cfg.Global.FreshnessPolicy()
	if err != nil || policy.Mode != freshness.ModeAlwaysUseCache {
		t.Fatalf("默认策略应为 alwaysUseCacheIfAvailable, got %s (%v)", policy, err)
	}
	if cfg.Global.Compression != CompressionNone || cfg.Global.SingleFlight {
		t.Fatalf("压缩与 single-flight 默认关闭")
	}
	if cfg.Global.LenientDecoding {
		t.Fatalf("默认应使用严格解码")
	}
}

func TestValidateRejectsMissingFields(t *testing.T) {
	cfgPath := testConfigPath(t, "missing.toml")

	if _, err := Load(cfgPath); err == nil {
		t.Fatalf("不合法的配置应返回错误")
	}
}

func TestValidateEnforcesListenPortRange(t *testing.T) {
	cfg := validConfig()
	cfg.Global.ListenPort = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatalf("ListenPort 超出范围应当报错")
	}
}

func TestValidateFieldErrors(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*GlobalConfig)
		field  string
	}{
		{"empty storage", func(g *GlobalConfig) { g.StoragePath = "" }, "Global.StoragePath"},
		{"zero memory", func(g *GlobalConfig) { g.MaxMemoryCache = 0 }, "Global.MaxMemoryCacheSize"},
		{"zero entries", func(g *GlobalConfig) { g.MaxMemoryCacheEntries = 0 }, "Global.MaxMemoryCacheEntries"},
		{"zero timeout", func(g *GlobalConfig) { g.UpstreamTimeout = 0 }, "Global.UpstreamTimeout"},
		{"bad compression", func(g *GlobalConfig) { g.Compression = "gzip" }, "Global.Compression"},
		{"unknown freshness", func(g *GlobalConfig) { g.Freshness = "sometimes" }, "Global.Freshness"},
		{"refreshAfter without duration", func(g *GlobalConfig) { g.Freshness = "refreshAfter" }, "Global.Freshness"},
		{"negative refresh", func(g *GlobalConfig) { g.RefreshAfter = Duration(-time.Second) }, "Global.RefreshAfter"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg.Global)
			err := cfg.Validate()
			var fieldErr FieldError
			if !errors.As(err, &fieldErr) {
				t.Fatalf("expected FieldError, got %v", err)
			}
			if fieldErr.Field != tc.field {
				t.Fatalf("expected field %s, got %s", tc.field, fieldErr.Field)
			}
		})
	}
}

func TestValidateUpstreamProxy(t *testing.T) {
	cfg := validConfig()
	cfg.Global.UpstreamProxy = "ftp://proxy.local"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("不支持的代理协议应报错")
	}

	cfg.Global.UpstreamProxy = "http://proxy.local:3128"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("合法代理不应报错: %v", err)
	}
}

func TestFreshnessNamesAreCaseInsensitive(t *testing.T) {
	cfg := validConfig()
	cfg.Global.Freshness = "NEWCALL"
	policy, err := cfg.Global.FreshnessPolicy()
	if err != nil || policy.Mode != freshness.ModeNewCall {
		t.Fatalf("expected newCall, got %s (%v)", policy, err)
	}
}

func validConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			ListenPort:            5000,
			StoragePath:           "./data",
			Compression:           CompressionNone,
			MaxMemoryCache:        1,
			MaxMemoryCacheEntries: 1,
			UpstreamTimeout:       Duration(time.Second),
			Freshness:             "alwaysUseCacheIfAvailable",
		},
	}
}
