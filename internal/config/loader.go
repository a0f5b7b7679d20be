package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	defaultAssetPath = "/assets"
	defaultIndexFile = "index.htm"
	defaultCacheSpec = "maximumSize=100"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(cfg.Global.AssetRoot)
	if err != nil {
		return nil, fmt.Errorf("无法解析资源根目录: %w", err)
	}
	cfg.Global.AssetRoot = absRoot

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("ShutdownTimeout", "10s")
	v.SetDefault("AssetRoot", "./assets")
	v.SetDefault("IndexFile", defaultIndexFile)
	v.SetDefault("DefaultCharset", "utf-8")
	v.SetDefault("CacheSpec", defaultCacheSpec)
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	if g.IndexFile == "" {
		g.IndexFile = defaultIndexFile
	}
	if g.CacheSpec == "" {
		g.CacheSpec = defaultCacheSpec
	}
	if g.ShutdownTimeout.DurationValue() == 0 {
		g.ShutdownTimeout = Duration(10 * time.Second)
	}
}

// durationDecodeHook 让 mapstructure 能把字符串/整数字段转成 Duration。
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(Duration(0)) {
			return data, nil
		}

		var d Duration
		switch value := data.(type) {
		case string:
			if err := d.UnmarshalText([]byte(value)); err != nil {
				return nil, err
			}
		case int, int32, int64, float64:
			if err := d.UnmarshalText([]byte(fmt.Sprintf("%v", value))); err != nil {
				return nil, err
			}
		default:
			return data, nil
		}
		return d, nil
	}
}
