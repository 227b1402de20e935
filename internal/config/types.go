package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

func parseDuration(text string) (Duration, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return Duration(0), nil
	}
	if parsed, err := time.ParseDuration(raw); err == nil {
		return Duration(parsed), nil
	}
	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		return Duration(time.Duration(seconds * float64(time.Second))), nil
	}
	return 0, fmt.Errorf("invalid duration value: %s", raw)
}

// GlobalConfig 描述进程级运行参数。
type GlobalConfig struct {
	LogLevel      string `mapstructure:"LogLevel"`
	LogFormat     string `mapstructure:"LogFormat"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`

	// CacheFile 是启动时加载、结束时保存的缓存文件路径。
	CacheFile string `mapstructure:"CacheFile"`
	// HTTPClearCache 为真时在任何抓取之前清空缓存（子实例忽略）。
	HTTPClearCache bool `mapstructure:"HTTPClearCache"`
	// Behavior 是批处理模式默认的缓存行为：current / any / only。
	Behavior string `mapstructure:"Behavior"`

	Downloader      string   `mapstructure:"Downloader"`
	UpstreamTimeout Duration `mapstructure:"UpstreamTimeout"`
	UserAgent       string   `mapstructure:"UserAgent"`
	Cookies         []string `mapstructure:"Cookies"`

	ListenPort int `mapstructure:"ListenPort"`
}

// ProxyConfig 是进程级代理设置，启动时设定一次，之后只读。
type ProxyConfig struct {
	Type string `mapstructure:"Type"`
	Host string `mapstructure:"Host"`
	Port int    `mapstructure:"Port"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
	Proxy  ProxyConfig  `mapstructure:"Proxy"`
}

// Enabled 表示是否配置了代理。
func (p ProxyConfig) Enabled() bool {
	t := strings.ToLower(strings.TrimSpace(p.Type))
	return t != "" && t != "none"
}

// URL 返回代理地址，未启用时返回 nil。
func (p ProxyConfig) URL() *url.URL {
	if !p.Enabled() {
		return nil
	}
	return &url.URL{
		Scheme: strings.ToLower(strings.TrimSpace(p.Type)),
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
	}
}

// String 输出 type://host:port，供日志字段使用。
func (p ProxyConfig) String() string {
	if u := p.URL(); u != nil {
		return u.String()
	}
	return "none"
}
