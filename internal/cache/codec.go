package cache

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/any-hub/any-fetch/internal/era"
)

// 缓存文件格式：
//
//	<version-tag>\0
//	{ <key>\0 <token>\0 <u32 little-endian length> <body bytes> } ...  直到流结束
//
// 没有校验和，也没有逐条版本号。

// LoadOutcome 描述一次加载的结果。除 LoadOK 外，其余结果都等价于“没有加载到完整文件”。
type LoadOutcome int

const (
	LoadOK LoadOutcome = iota
	LoadMissing
	LoadVersionMismatch
	LoadCorrupt
	LoadFailed
)

func (o LoadOutcome) String() string {
	switch o {
	case LoadOK:
		return "ok"
	case LoadMissing:
		return "missing"
	case LoadVersionMismatch:
		return "version_mismatch"
	case LoadCorrupt:
		return "corrupt"
	default:
		return "failed"
	}
}

// LoadResult 汇总加载过程。Err 仅用于诊断日志，调用方不需要处理它。
type LoadResult struct {
	Outcome LoadOutcome
	Entries int
	Err     error
}

// SaveOutcome 描述一次保存的结果。
type SaveOutcome int

const (
	SaveOK SaveOutcome = iota
	SaveFailed
)

func (o SaveOutcome) String() string {
	if o == SaveOK {
		return "ok"
	}
	return "failed"
}

// SaveResult 汇总保存过程，Skipped 统计因正文超过 u32 上限而无法写入的条目。
type SaveResult struct {
	Outcome SaveOutcome
	Entries int
	Skipped int
	Err     error
}

var errVersionMismatch = errors.New("cache version mismatch")

// Load 从 r 读取缓存文件并合并进当前 Store，持锁直到读取结束。
// 版本不匹配时立即返回且不触碰现有条目；记录损坏时保留之前已完整解析的记录。
func (s *Store) Load(r io.Reader) LoadResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(r)
}

func (s *Store) load(r io.Reader) LoadResult {
	br := bufio.NewReader(r)

	tag, err := readCString(br)
	if err != nil || tag != s.versionTag {
		if err == nil {
			err = fmt.Errorf("%w: %q", errVersionMismatch, tag)
		}
		return LoadResult{Outcome: LoadVersionMismatch, Err: err}
	}

	loaded := 0
	for {
		entry, err := readRecord(br)
		if errors.Is(err, io.EOF) {
			return LoadResult{Outcome: LoadOK, Entries: loaded}
		}
		if err != nil {
			return LoadResult{Outcome: LoadCorrupt, Entries: loaded, Err: err}
		}
		s.entries[entry.URL] = entry
		loaded++
	}
}

// readRecord 读取一条完整记录。仅当流恰好在记录边界结束时返回 io.EOF。
func readRecord(br *bufio.Reader) (*Entry, error) {
	key, err := readCString(br)
	if err != nil {
		if errors.Is(err, io.EOF) && key == "" {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read key: %w", unexpected(err))
	}

	token, err := readCString(br)
	if err != nil {
		return nil, fmt.Errorf("read token for %s: %w", key, unexpected(err))
	}

	var size uint32
	if err := binary.Read(br, binary.LittleEndian, &size); err != nil {
		return nil, fmt.Errorf("read size for %s: %w", key, unexpected(err))
	}

	// 逐步增长缓冲区，避免损坏的长度字段一次性申请巨大内存。
	var body bytes.Buffer
	if _, err := io.CopyN(&body, br, int64(size)); err != nil {
		return nil, fmt.Errorf("read body for %s: %w", key, unexpected(err))
	}

	return &Entry{
		URL:       key,
		Body:      body.Bytes(),
		Token:     token,
		Modified:  era.InTheBeginning,
		Validated: era.InTheBeginning,
	}, nil
}

func readCString(br *bufio.Reader) (string, error) {
	raw, err := br.ReadBytes(0)
	if err != nil {
		return string(raw), err
	}
	return string(raw[:len(raw)-1]), nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Save 将所有已验证条目写入 w，持锁直到写入结束，不修改内存中的任何条目。
func (s *Store) Save(w io.Writer) SaveResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(w)
}

func (s *Store) save(w io.Writer) SaveResult {
	bw := bufio.NewWriter(w)
	result := SaveResult{Outcome: SaveOK}

	if err := writeCString(bw, s.versionTag); err != nil {
		return SaveResult{Outcome: SaveFailed, Err: err}
	}

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		entry := s.entries[key]
		if !entry.HasData() {
			continue
		}
		if uint64(len(entry.Body)) > math.MaxUint32 {
			result.Skipped++
			continue
		}
		if err := writeRecord(bw, key, entry); err != nil {
			return SaveResult{Outcome: SaveFailed, Entries: result.Entries, Err: err}
		}
		result.Entries++
	}

	if err := bw.Flush(); err != nil {
		return SaveResult{Outcome: SaveFailed, Entries: result.Entries, Err: err}
	}
	return result
}

func writeRecord(bw *bufio.Writer, key string, entry *Entry) error {
	if err := writeCString(bw, key); err != nil {
		return err
	}
	if err := writeCString(bw, entry.Token); err != nil {
		return err
	}
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(entry.Body)))
	if _, err := bw.Write(size[:]); err != nil {
		return err
	}
	_, err := bw.Write(entry.Body)
	return err
}

func writeCString(bw *bufio.Writer, s string) error {
	if _, err := bw.WriteString(s); err != nil {
		return err
	}
	return bw.WriteByte(0)
}
