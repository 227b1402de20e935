// Package urlenc 把调用方给出的“干净” URL 规范化为可以直接发出请求、也可以作为缓存键的形式。
package urlenc

import "strings"

const upperhex = "0123456789ABCDEF"

// Encode 对非 ASCII 字节、空格以及会破坏 URL 的引号/尖括号做百分号编码，丢弃控制字符。
// 已有的 %XX 序列与保留字符保持原样，因此对已编码的 URL 重复调用结果不变。
func Encode(raw string) string {
	if !needsEncoding(raw) {
		return raw
	}

	var b strings.Builder
	b.Grow(len(raw) + 8)
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c < 0x20 || c == 0x7F:
			continue
		case shouldEscape(c):
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&15])
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func needsEncoding(raw string) bool {
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c < 0x20 || c == 0x7F || shouldEscape(c) {
			return true
		}
	}
	return false
}

func shouldEscape(c byte) bool {
	if c > 0x7F {
		return true
	}
	switch c {
	case ' ', '"', '\'', '<', '>', '`', '\\', '^', '{', '}', '|':
		return true
	}
	return false
}
