package logging

import (
	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-fetch/internal/era"
)

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// FetchFields 提供缓存键/行为/当前 era 字段，供 fetch 日志复用。
func FetchFields(key, behavior string, current era.Era) logrus.Fields {
	return logrus.Fields{
		"action":   "fetch",
		"key":      key,
		"behavior": behavior,
		"era":      uint64(current),
	}
}

// PersistFields 描述一次缓存文件读写，outcome 为 ok/missing/version_mismatch 等。
func PersistFields(action, path, outcome string, entries int) logrus.Fields {
	return logrus.Fields{
		"action":  action,
		"path":    path,
		"outcome": outcome,
		"entries": entries,
	}
}
