package fetch

import (
	"bytes"
	"context"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-fetch/internal/cache"
	"github.com/any-hub/any-fetch/internal/era"
	"github.com/any-hub/any-fetch/internal/logging"
	"github.com/any-hub/any-fetch/internal/urlenc"
)

// Fetcher 负责“查缓存 → 判断新鲜度 → 条件回源 → 写回缓存”的完整流程。
// 整个调用期间持有 Store 的唯一锁，包括下载本身，因此同一 Store 同时最多只有一个下载。
type Fetcher struct {
	store      *cache.Store
	clock      *era.Clock
	downloader Downloader
	logger     *logrus.Logger
}

// NewFetcher 组装 Fetcher，logger 为空时使用 logrus 全局实例。
func NewFetcher(store *cache.Store, clock *era.Clock, downloader Downloader, logger *logrus.Logger) *Fetcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Fetcher{
		store:      store,
		clock:      clock,
		downloader: downloader,
		logger:     logger,
	}
}

// Get 以请求 URL 本身作为缓存键，不做内容校验。
func (f *Fetcher) Get(ctx context.Context, url string, behavior Behavior) ([]byte, bool) {
	return f.Fetch(ctx, url, url, behavior, "")
}

// Fetch 返回 requestURL 的内容。cacheKey 是规范化后的缓存键（例如去掉会话参数的 URL），为空时等同于 requestURL。
// required 非空时，正文必须包含该子串，否则返回失败；此时缓存条目已经写入新的正文，不会回滚。
func (f *Fetcher) Fetch(ctx context.Context, requestURL, cacheKey string, behavior Behavior, required string) ([]byte, bool) {
	body, _, ok := f.FetchInEra(ctx, requestURL, cacheKey, behavior, required)
	return body, ok
}

// FetchInEra 与 Fetch 相同，额外返回持锁后判断新鲜度时使用的 era。
func (f *Fetcher) FetchInEra(ctx context.Context, requestURL, cacheKey string, behavior Behavior, required string) ([]byte, era.Era, bool) {
	if cacheKey == "" {
		cacheKey = requestURL
	}
	encodedURL := urlenc.Encode(requestURL)
	encodedKey := urlenc.Encode(cacheKey)

	var (
		body []byte
		now  era.Era
		ok   bool
	)
	f.store.Exclusive(func(tx *cache.Txn) {
		now = f.clock.Current()
		body, ok = f.fetchLocked(ctx, tx, encodedURL, encodedKey, now, behavior, required)
	})
	return body, now, ok
}

func (f *Fetcher) fetchLocked(
	ctx context.Context,
	tx *cache.Txn,
	requestURL string,
	key string,
	now era.Era,
	behavior Behavior,
	required string,
) ([]byte, bool) {
	entry := tx.GetOrCreate(key)
	stale := isStale(entry.Validated, now, behavior)

	fields := logging.FetchFields(key, behavior.String(), now)
	fields["state"] = cacheState(entry.Validated, now, behavior)
	fields["modified_era"] = entry.Modified
	fields["validated_era"] = entry.Validated
	fields["download"] = stale && behavior != CacheOnly
	f.logger.WithFields(fields).Debug("fetch_lookup")

	if stale {
		if behavior == CacheOnly {
			return nil, false
		}
		if !f.download(ctx, entry, requestURL, now, fields) {
			return nil, false
		}
	}

	if required != "" && !bytes.Contains(entry.Body, []byte(required)) {
		fields["required"] = required
		f.logger.WithFields(fields).Warn("fetch_content_rejected")
		return nil, false
	}

	return bytes.Clone(entry.Body), true
}

// download 调用 Downloader 并在成功时提交结果；失败时条目保持调用前的状态。
func (f *Fetcher) download(ctx context.Context, entry *cache.Entry, requestURL string, now era.Era, fields logrus.Fields) bool {
	resp, err := f.downloader.Attempt(ctx, requestURL, entry.Token)
	if err != nil {
		f.logger.WithFields(fields).WithError(err).WithField("url", requestURL).Warn("fetch_download_failed")
		return false
	}

	if resp.NotModified {
		entry.Validated = now
		f.logger.WithFields(fields).Debug("fetch_not_modified")
		return true
	}

	entry.Body = resp.Body
	entry.Token = resp.Token
	entry.Modified = now
	entry.Validated = now
	f.logger.WithFields(fields).WithField("size_bytes", len(resp.Body)).Debug("fetch_downloaded")
	return true
}
