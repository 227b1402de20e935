package cache

import (
	"bytes"
	"sort"
	"sync"

	"github.com/any-hub/any-fetch/internal/era"
	"github.com/any-hub/any-fetch/internal/version"
)

// Entry 描述一个 URL 的缓存内容。Body 不保证是文本，可能包含任意字节（包括 0）。
//
// 不变量：Modified <= Validated；Validated == era.Invalid 当且仅当从未成功获取过。
type Entry struct {
	URL       string
	Body      []byte
	Token     string
	Modified  era.Era
	Validated era.Era
}

// HasData 表示条目至少成功获取过一次，只有这类条目会被持久化。
func (e *Entry) HasData() bool {
	return e.Validated != era.Invalid
}

func (e *Entry) clone() Entry {
	out := *e
	out.Body = bytes.Clone(e.Body)
	return out
}

// Store 是进程独占的 URL → Entry 映射，由单一互斥锁保护。
// 生命周期由调用方显式管理：NewStore → (LoadFile) → Fetch... → (SaveFile)。
type Store struct {
	versionTag string

	mu      sync.Mutex
	entries map[string]*Entry
}

// Option 调整 Store 的构造参数。
type Option func(*Store)

// WithVersionTag 覆盖缓存文件的版本标签，默认使用 version.CacheTag()。
func WithVersionTag(tag string) Option {
	return func(s *Store) {
		s.versionTag = tag
	}
}

// NewStore 创建一个空缓存。
func NewStore(opts ...Option) *Store {
	s := &Store{
		versionTag: version.CacheTag(),
		entries:    make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VersionTag 返回当前 Store 读写缓存文件时使用的版本标签。
func (s *Store) VersionTag() string {
	return s.versionTag
}

// Txn 是持锁期间对映射的访问句柄，从 Txn 取得的 *Entry 不得逃逸出 Exclusive 回调。
type Txn struct {
	entries map[string]*Entry
}

// Exclusive 在持有 Store 锁的情况下执行 fn，fn 可以在其中做阻塞的网络 I/O。
func (s *Store) Exclusive(fn func(tx *Txn)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&Txn{entries: s.entries})
}

// GetOrCreate 返回已有条目，或插入一个未验证的新条目。
func (tx *Txn) GetOrCreate(key string) *Entry {
	if entry, ok := tx.entries[key]; ok {
		return entry
	}
	entry := &Entry{
		URL:       key,
		Modified:  era.Invalid,
		Validated: era.Invalid,
	}
	tx.entries[key] = entry
	return entry
}

// Lookup 仅查询，不会插入新条目。
func (tx *Txn) Lookup(key string) (*Entry, bool) {
	entry, ok := tx.entries[key]
	return entry, ok
}

// Len 返回条目数量（包含未验证条目）。
func (tx *Txn) Len() int {
	return len(tx.entries)
}

// Clear 删除全部条目。
func (tx *Txn) Clear() {
	clear(tx.entries)
}

// Clear 持锁清空缓存，不会与进行中的 fetch 交错。
func (s *Store) Clear() {
	s.Exclusive(func(tx *Txn) {
		tx.Clear()
	})
}

// Len 持锁返回条目数量。
func (s *Store) Len() int {
	var n int
	s.Exclusive(func(tx *Txn) {
		n = tx.Len()
	})
	return n
}

// Snapshot 返回条目的值拷贝，调用方可以自由持有。
func (s *Store) Snapshot(key string) (Entry, bool) {
	var (
		out Entry
		ok  bool
	)
	s.Exclusive(func(tx *Txn) {
		var entry *Entry
		if entry, ok = tx.Lookup(key); ok {
			out = entry.clone()
		}
	})
	return out, ok
}

// Entries 返回全部条目的值拷贝，按 URL 排序，供 dump 与诊断接口使用。
func (s *Store) Entries() []Entry {
	var out []Entry
	s.Exclusive(func(tx *Txn) {
		out = make([]Entry, 0, len(tx.entries))
		for _, entry := range tx.entries {
			out = append(out, entry.clone())
		}
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].URL < out[j].URL
	})
	return out
}

// ApplyClearOption 对应 http_clear_cache 选项：开启且当前进程不是子实例时清空缓存。
// 返回是否真的执行了清空。
func (s *Store) ApplyClearOption(enabled, subordinate bool) bool {
	if subordinate || !enabled {
		return false
	}
	s.Clear()
	return true
}
