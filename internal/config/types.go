package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// 磁盘缓存压缩方式。
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// GlobalConfig 描述服务与缓存的全部运行参数。
type GlobalConfig struct {
	ListenPort            int      `mapstructure:"ListenPort"`
	LogLevel              string   `mapstructure:"LogLevel"`
	LogFilePath           string   `mapstructure:"LogFilePath"`
	LogMaxSize            int      `mapstructure:"LogMaxSize"`
	LogMaxBackups         int      `mapstructure:"LogMaxBackups"`
	LogCompress           bool     `mapstructure:"LogCompress"`
	StoragePath           string   `mapstructure:"StoragePath"`
	TempDir               string   `mapstructure:"TempDir"`
	Compression           string   `mapstructure:"Compression"`
	MaxMemoryCache        int64    `mapstructure:"MaxMemoryCacheSize"`
	MaxMemoryCacheEntries int      `mapstructure:"MaxMemoryCacheEntries"`
	UpstreamTimeout       Duration `mapstructure:"UpstreamTimeout"`
	UpstreamProxy         string   `mapstructure:"UpstreamProxy"`
	Freshness             string   `mapstructure:"Freshness"`
	RefreshAfter          Duration `mapstructure:"RefreshAfter"`
	SingleFlight          bool     `mapstructure:"SingleFlight"`
	LenientDecoding       bool     `mapstructure:"LenientDecoding"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
}

// CompressionEnabled 表示磁盘条目是否需要 zstd 压缩。
func (g GlobalConfig) CompressionEnabled() bool {
	return strings.EqualFold(strings.TrimSpace(g.Compression), CompressionZstd)
}
