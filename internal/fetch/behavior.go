package fetch

import (
	"fmt"
	"strings"

	"github.com/any-hub/any-fetch/internal/era"
)

// Behavior 决定缓存条目何时被视为过期。
type Behavior int

const (
	// AnyCached 只要曾经成功获取过就直接使用，无论多旧。
	AnyCached Behavior = iota
	// AlwaysFresh 要求条目在当前 era 内验证过，否则回源再验证。
	AlwaysFresh
	// CacheOnly 从不触发下载，过期或缺失即失败。
	CacheOnly
)

func (b Behavior) String() string {
	switch b {
	case AlwaysFresh:
		return "current"
	case CacheOnly:
		return "only"
	default:
		return "any"
	}
}

// ParseBehavior 解析配置/HTTP 参数中的行为名称（current/any/only，与配置校验一致），空字符串返回 AnyCached。
func ParseBehavior(raw string) (Behavior, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "any":
		return AnyCached, nil
	case "current":
		return AlwaysFresh, nil
	case "only":
		return CacheOnly, nil
	default:
		return AnyCached, fmt.Errorf("unknown cache behavior: %s", raw)
	}
}

// isStale 按行为判断条目是否需要回源。CacheOnly 与 AnyCached 只在从未验证时过期。
func isStale(validated, now era.Era, behavior Behavior) bool {
	if validated >= now {
		return false
	}
	return behavior == AlwaysFresh || validated == era.Invalid
}

// cacheState 给 debug 日志使用：miss / hot / warm / cold。
func cacheState(validated, now era.Era, behavior Behavior) string {
	switch {
	case validated == era.Invalid:
		return "miss"
	case validated >= now:
		return "hot"
	case behavior != AlwaysFresh:
		return "warm"
	default:
		return "cold"
	}
}
