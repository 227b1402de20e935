package downloader

import (
	"context"

	"github.com/any-hub/any-fetch/internal/fetch"
)

// Disabled 用于禁止访问网络的环境：每次尝试都失败，缓存只能命中已有条目。
type Disabled struct{}

// Attempt 总是返回 fetch.ErrDownloadDisabled。
func (Disabled) Attempt(context.Context, string, string) (fetch.Response, error) {
	return fetch.Response{}, fetch.ErrDownloadDisabled
}
