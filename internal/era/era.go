// Package era 提供进程内单调递增的逻辑时钟，缓存新鲜度只依据 era 判断，与墙上时间无关。
package era

import (
	"strconv"
	"sync/atomic"
)

// Era 是逻辑时间点，64 位宽度在现实运行时长内不会溢出。
type Era uint64

const (
	// Invalid 表示“从未验证”，小于任何真实 era。
	Invalid Era = 0
	// InTheBeginning 仅用于从磁盘恢复的条目：比 Invalid 大，但比本进程 Advance 产生的任何 era 都小。
	InTheBeginning Era = 1
)

// String 便于日志输出，Invalid/InTheBeginning 使用可读名称。
func (e Era) String() string {
	switch e {
	case Invalid:
		return "invalid"
	case InTheBeginning:
		return "beginning"
	default:
		return strconv.FormatUint(uint64(e), 10)
	}
}

// Clock 持有当前 era。调用方（批处理循环、HTTP 服务）决定何时推进，核心只读取 Current。
type Clock struct {
	current atomic.Uint64
}

// NewClock 创建时钟，起点为 InTheBeginning+1，保证首个工作单元已新于任何磁盘条目。
func NewClock() *Clock {
	c := &Clock{}
	c.current.Store(uint64(InTheBeginning) + 1)
	return c
}

// Current 返回当前 era。
func (c *Clock) Current() Era {
	return Era(c.current.Load())
}

// Advance 将 era 加一并返回新值。
func (c *Clock) Advance() Era {
	return Era(c.current.Add(1))
}
