// Package downloader 提供 fetch.Downloader 的可互换实现：net/http、fasthttp 与禁用网络的空实现。
// 选择在进程配置阶段通过 New 完成一次。
package downloader

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/any-hub/any-fetch/internal/config"
	"github.com/any-hub/any-fetch/internal/fetch"
	"github.com/any-hub/any-fetch/internal/version"
)

const maxRedirects = 20

// Options 汇总所有后端共享的请求参数。
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Cookies   []string
	// Proxy 为空表示直连（net/http 后端仍会读取环境变量中的代理）。
	Proxy *url.URL
}

// OptionsFromConfig 从全局配置提取下载参数。
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Timeout:   30 * time.Second,
		UserAgent: version.Full(),
	}
	if cfg == nil {
		return opts
	}
	if timeout := cfg.Global.UpstreamTimeout.DurationValue(); timeout > 0 {
		opts.Timeout = timeout
	}
	if ua := strings.TrimSpace(cfg.Global.UserAgent); ua != "" {
		opts.UserAgent = ua
	}
	opts.Cookies = append([]string(nil), cfg.Global.Cookies...)
	opts.Proxy = cfg.Proxy.URL()
	return opts
}

// New 根据配置选择下载后端。
func New(cfg *config.Config) (fetch.Downloader, error) {
	kind := "http"
	if cfg != nil && cfg.Global.Downloader != "" {
		kind = strings.ToLower(cfg.Global.Downloader)
	}
	opts := OptionsFromConfig(cfg)

	switch kind {
	case "http":
		return NewHTTP(opts), nil
	case "fasthttp":
		return NewFastHTTP(opts)
	case "disabled":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unsupported downloader: %s", kind)
	}
}

// StatusError 表示源站返回了既不是 200 也不是 304 的状态码。
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// requestHeaders 返回每次请求都要带上的头部，token 非空时追加 If-Modified-Since。
func requestHeaders(opts Options, token string) map[string]string {
	headers := map[string]string{
		"User-Agent": opts.UserAgent,
	}
	if len(opts.Cookies) > 0 {
		headers["Cookie"] = strings.Join(opts.Cookies, "; ")
	}
	if token != "" {
		headers["If-Modified-Since"] = token
	}
	return headers
}
