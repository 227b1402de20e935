package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。path 为空时只使用默认值。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
		if err := rejectDeprecatedKeys(v); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "json")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("CacheFile", "any-fetch-cache.dat")
	v.SetDefault("HTTPClearCache", false)
	v.SetDefault("Behavior", "current")
	v.SetDefault("Downloader", "http")
	v.SetDefault("UpstreamTimeout", "30s")
	v.SetDefault("UserAgent", "")
	v.SetDefault("ListenPort", 5080)
	v.SetDefault("Proxy.Type", "none")
	v.SetDefault("Proxy.Host", "")
	v.SetDefault("Proxy.Port", 0)
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.UpstreamTimeout.DurationValue() == 0 {
		g.UpstreamTimeout = Duration(30 * time.Second)
	}
	if g.ListenPort == 0 {
		g.ListenPort = 5080
	}
	g.Behavior = strings.ToLower(strings.TrimSpace(g.Behavior))
	g.Downloader = strings.ToLower(strings.TrimSpace(g.Downloader))
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			parsed, err := parseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
			}
			return parsed, nil
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}

// deprecatedKeys 记录已弃用的配置键及其替代项。
var deprecatedKeys = map[string]string{
	"httpcachefile": "CacheFile",
	"proxytype":     "Proxy.Type",
	"proxyhost":     "Proxy.Host",
	"proxyport":     "Proxy.Port",
}

func rejectDeprecatedKeys(v *viper.Viper) error {
	for _, key := range v.AllKeys() {
		if replacement, ok := deprecatedKeys[key]; ok {
			return newFieldError(key, "字段已弃用，请改用 "+replacement)
		}
	}
	return nil
}
