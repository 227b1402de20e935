package version

import "fmt"

// Version/Commit 可在构建时通过 -ldflags 注入，默认使用开发占位符。
var (
	Version = "0.1.0"
	Commit  = "dev"
)

// Full 返回便于 CLI 打印的完整版本信息。
func Full() string {
	return fmt.Sprintf("any-fetch %s (%s)", Version, Commit)
}

// CacheTag 是缓存文件头部的版本标签，不同版本写出的缓存文件不会被互相加载。
func CacheTag() string {
	return "any-fetch-" + Version
}
