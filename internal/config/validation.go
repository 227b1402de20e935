package config

import (
	"errors"
	"strings"
)

var supportedBehaviors = map[string]struct{}{
	"current": {},
	"any":     {},
	"only":    {},
}

var supportedDownloaders = map[string]struct{}{
	"http":     {},
	"fasthttp": {},
	"disabled": {},
}

var supportedProxyTypes = map[string]struct{}{
	"":       {},
	"none":   {},
	"http":   {},
	"https":  {},
	"socks5": {},
}

// Validate 针对语义级别做进一步校验，防止非法配置启动。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if strings.TrimSpace(g.CacheFile) == "" {
		return newFieldError("Global.CacheFile", "不能为空")
	}
	if _, ok := supportedBehaviors[strings.ToLower(g.Behavior)]; !ok {
		return newFieldError("Global.Behavior", "仅支持 current/any/only")
	}
	if _, ok := supportedDownloaders[strings.ToLower(g.Downloader)]; !ok {
		return newFieldError("Global.Downloader", "仅支持 http/fasthttp/disabled")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.LogMaxSize < 0 || g.LogMaxBackups < 0 {
		return newFieldError("Global.LogMaxSize/LogMaxBackups", "不能为负数")
	}

	return c.Proxy.validate()
}

func (p ProxyConfig) validate() error {
	proxyType := strings.ToLower(strings.TrimSpace(p.Type))
	if _, ok := supportedProxyTypes[proxyType]; !ok {
		return newFieldError("Proxy.Type", "仅支持 none/http/https/socks5")
	}
	if !p.Enabled() {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return newFieldError("Proxy.Host", "启用代理时不能为空")
	}
	if strings.ContainsAny(p.Host, "/ ") {
		return newFieldError("Proxy.Host", "不允许包含路径或空格")
	}
	if p.Port <= 0 || p.Port > 65535 {
		return newFieldError("Proxy.Port", "必须在 1-65535")
	}
	return nil
}
