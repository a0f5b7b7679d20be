package assets

import (
	"os"
	"sync"
	"time"
)

// Asset is a resolved, servable payload. Implementations expose their state
// through a single Snapshot call so callers always observe body, ETag and
// last-modified time from the same read, even while a filesystem-backed
// asset refreshes itself concurrently.
type Asset interface {
	Snapshot() Snapshot
}

// Snapshot 是一次读取得到的一致视图：正文、引号包裹的内容指纹、以及截断到
// 秒的最后修改时间（HTTP 日期只有秒级精度）。
type Snapshot struct {
	Body    []byte
	ETag    string
	ModTime time.Time
}

// Size returns the body length in bytes, used as the cache weight.
func (s Snapshot) Size() int64 {
	return int64(len(s.Body))
}

// StaticAsset wraps bytes loaded once from a resource root. It never changes
// after construction.
type StaticAsset struct {
	snap Snapshot
}

// NewStaticAsset computes the content tag for body and freezes the snapshot.
// modTime is truncated to whole seconds.
func NewStaticAsset(body []byte, modTime time.Time) *StaticAsset {
	return &StaticAsset{snap: Snapshot{
		Body:    body,
		ETag:    ContentTag(body),
		ModTime: modTime.Truncate(time.Second),
	}}
}

// Snapshot 返回构造时冻结的视图。
func (a *StaticAsset) Snapshot() Snapshot {
	return a.snap
}

// FileSystemAsset serves a file straight from disk, reloading its contents
// whenever the file's modification time changes. Used for override mappings
// so edits show up without a restart.
type FileSystemAsset struct {
	path string

	mu       sync.Mutex
	snap     Snapshot
	rawMtime time.Time // untruncated, compared against os.Stat
}

// NewFileSystemAsset reads path and returns the asset, or an error when the
// initial read fails.
func NewFileSystemAsset(path string) (*FileSystemAsset, error) {
	a := &FileSystemAsset{path: path}
	if err := a.reload(); err != nil {
		return nil, err
	}
	return a, nil
}

// Snapshot refreshes the asset if the backing file changed since the last
// read, then returns a consistent view. A failed refresh keeps the previous
// snapshot; no error escapes to the caller.
func (a *FileSystemAsset) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	if info, err := os.Stat(a.path); err == nil && !info.ModTime().Equal(a.rawMtime) {
		// reload failure keeps the old snapshot
		_ = a.reload()
	}
	return a.snap
}

// reload 在持锁状态下整体替换 body/etag/mtime，避免读到撕裂的组合。
func (a *FileSystemAsset) reload() error {
	body, err := os.ReadFile(a.path)
	if err != nil {
		return err
	}
	info, err := os.Stat(a.path)
	if err != nil {
		return err
	}

	a.snap = Snapshot{
		Body:    body,
		ETag:    ContentTag(body),
		ModTime: info.ModTime().Truncate(time.Second),
	}
	a.rawMtime = info.ModTime()
	return nil
}
