package fetch

import (
	"context"
	"errors"
)

// Response 是一次条件请求的结果：NotModified 表示源站确认缓存仍然有效，
// 否则 Body/Token 为新的正文与新鲜度标记（Token 可能为空）。
type Response struct {
	NotModified bool
	Body        []byte
	Token       string
}

// Downloader 执行一次条件 GET。token 非空时必须作为 If-Modified-Since 前置条件发送。
// 任何非 nil error 都视为失败，核心不会重试。实现会在缓存锁内被同步调用。
type Downloader interface {
	Attempt(ctx context.Context, requestURL, token string) (Response, error)
}

// DownloaderFunc adapts a function to the Downloader interface.
type DownloaderFunc func(ctx context.Context, requestURL, token string) (Response, error)

// Attempt makes DownloaderFunc satisfy Downloader.
func (f DownloaderFunc) Attempt(ctx context.Context, requestURL, token string) (Response, error) {
	return f(ctx, requestURL, token)
}

// ErrDownloadDisabled 表示当前进程未启用网络下载。
var ErrDownloadDisabled = errors.New("download disabled")
