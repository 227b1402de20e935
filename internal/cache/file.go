package cache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const cacheFileMode os.FileMode = 0o644

// LoadFile 打开 path 并加载缓存。文件不存在、无法读取、版本不符或内容损坏都只体现在 Outcome 上。
func (s *Store) LoadFile(path string) LoadResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return LoadResult{Outcome: LoadMissing, Err: err}
		}
		return LoadResult{Outcome: LoadFailed, Err: err}
	}
	defer f.Close()

	return s.load(f)
}

// SaveFile 通过临时文件 + rename 写入 path，失败时旧文件保持不变并清理临时文件。
func (s *Store) SaveFile(path string) SaveResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return SaveResult{Outcome: SaveFailed, Err: err}
	}

	tempFile, err := os.CreateTemp(dir, ".cache-*")
	if err != nil {
		return SaveResult{Outcome: SaveFailed, Err: err}
	}
	tempName := tempFile.Name()

	result := s.save(tempFile)
	// CreateTemp 创建的文件权限为 0600，缓存文件需要和普通文件一样可读。
	if err := tempFile.Chmod(cacheFileMode); err != nil && result.Outcome == SaveOK {
		result = SaveResult{Outcome: SaveFailed, Entries: result.Entries, Err: err}
	}
	closeErr := tempFile.Close()
	if result.Outcome == SaveOK && closeErr != nil {
		result = SaveResult{Outcome: SaveFailed, Entries: result.Entries, Err: closeErr}
	}
	if result.Outcome != SaveOK {
		os.Remove(tempName)
		return result
	}

	if err := os.Rename(tempName, path); err != nil {
		os.Remove(tempName)
		return SaveResult{Outcome: SaveFailed, Entries: result.Entries, Err: err}
	}
	return result
}
