package main

import (
	"fmt"

	"github.com/any-hub/any-fetch/internal/version"
)

// printVersion 输出注入的版本 + 提交信息，以及缓存文件版本标记。
func printVersion() {
	fmt.Fprintln(stdOut, version.Full())
	fmt.Fprintf(stdOut, "cache format: %s\n", version.CacheTag())
}
