package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/asset-hub/asset-hub/internal/assets"
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

	if intVal, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// GlobalConfig 描述全局运行时行为，所有挂载点共享同一份参数。
type GlobalConfig struct {
	ListenPort      int      `mapstructure:"ListenPort"`
	LogLevel        string   `mapstructure:"LogLevel"`
	LogFilePath     string   `mapstructure:"LogFilePath"`
	LogMaxSize      int      `mapstructure:"LogMaxSize"`
	LogMaxBackups   int      `mapstructure:"LogMaxBackups"`
	LogCompress     bool     `mapstructure:"LogCompress"`
	ShutdownTimeout Duration `mapstructure:"ShutdownTimeout"`

	AssetRoot          string `mapstructure:"AssetRoot"`
	IndexFile          string `mapstructure:"IndexFile"`
	DefaultCharset     string `mapstructure:"DefaultCharset"`
	CacheSpec          string `mapstructure:"CacheSpec"`
	CacheControlHeader string `mapstructure:"CacheControlHeader"`
}

// MappingConfig 将资源根目录映射到对外的 URI 根。声明顺序即匹配顺序。
type MappingConfig struct {
	ResourcePath string `mapstructure:"ResourcePath"`
	URIPath      string `mapstructure:"UriPath"`
}

// OverrideConfig 把某个 URI 前缀重定向到本地文件系统目录，常用于开发期
// 直接编辑静态文件而无需重启。
type OverrideConfig struct {
	URIPath   string `mapstructure:"UriPath"`
	Directory string `mapstructure:"Directory"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global    GlobalConfig      `mapstructure:",squash"`
	Mappings  []MappingConfig   `mapstructure:"Mapping"`
	Overrides []OverrideConfig  `mapstructure:"Override"`
	MimeTypes map[string]string `mapstructure:"MimeTypes"`
}

// ResourceMappings converts the configured mapping table into the resolver's
// form. When no mapping is declared the default /assets → /assets pair is
// used, mirroring the constructor-time fallback of the serving core.
func (c *Config) ResourceMappings() []assets.Mapping {
	if len(c.Mappings) == 0 {
		return []assets.Mapping{{ResourceRoot: defaultAssetPath, URIRoot: defaultAssetPath}}
	}

	out := make([]assets.Mapping, 0, len(c.Mappings))
	for _, m := range c.Mappings {
		out = append(out, assets.Mapping{ResourceRoot: m.ResourcePath, URIRoot: m.URIPath})
	}
	return out
}

// AssetOverrides 转换覆盖表，保持声明顺序。
func (c *Config) AssetOverrides() []assets.Override {
	out := make([]assets.Override, 0, len(c.Overrides))
	for _, o := range c.Overrides {
		out = append(out, assets.Override{URIPrefix: o.URIPath, Directory: o.Directory})
	}
	return out
}
