// Package fdcache owns the on-disk file handles backing every shard: one
// FileBacking per file (memory-mapped for reads, a plain *os.File for
// writes), and an FDCache bounding how many of those stay open at once.
package fdcache

import (
	"fmt"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/schemejs/storage/errs"
)

// FileBacking owns one file: reads are served from a memory map, writes go
// through the file handle. Every write rebuilds the map so that later reads
// observe the appended bytes; there is no second read code path.
type FileBacking struct {
	path string
	log  *zap.Logger

	mu   sync.RWMutex // guards file + mp together; writers take it exclusively
	file *os.File
	mp   mmap.MMap

	// flock is an advisory lock on path+".lock", tried without blocking in
	// Open and released on Close. When another holder already has it, Open
	// still succeeds and the FileBacking runs without holding the lock.
	flock *flock.Flock
}

// Open creates (if needed) and memory-maps the file at path, opened for
// reading and writing.
func Open(path string, log *zap.Logger) (*FileBacking, error) {
	if log == nil {
		log = zap.NewNop()
	}

	// Deliberately not O_APPEND: on Linux, pwrite (os.File.WriteAt) on an
	// O_APPEND file ignores the given offset and always appends, which would
	// break header-patching writes at fixed offsets. Every write in this
	// package computes its own absolute offset instead.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("fdcache: open %s: %w", path, err)
	}

	fl := flock.New(path + ".lock")
	if _, err := fl.TryLock(); err != nil {
		f.Close()
		return nil, fmt.Errorf("fdcache: lock %s: %w", path, err)
	}

	fb := &FileBacking{path: path, log: log, file: f, flock: fl}
	if err := fb.remapLocked(); err != nil {
		f.Close()
		fl.Unlock()
		return nil, err
	}
	return fb, nil
}

// Path returns the backing file's path.
func (fb *FileBacking) Path() string { return fb.path }

// TryWriteLock reports whether this FileBacking's writer side is currently
// free, used by FDCache eviction to skip busy entries without blocking.
func (fb *FileBacking) TryWriteLock() bool {
	if !fb.mu.TryLock() {
		return false
	}
	fb.mu.Unlock()
	return true
}

// Read returns a copy of mmap[offset:offset+length]. Fails with ErrRange if
// the range exceeds the mapped length.
func (fb *FileBacking) Read(offset, length int) ([]byte, error) {
	fb.mu.RLock()
	defer fb.mu.RUnlock()

	if offset < 0 || length < 0 || offset+length > len(fb.mp) {
		return nil, fmt.Errorf("%w: [%d:%d) len=%d", errs.ErrRange, offset, offset+length, len(fb.mp))
	}
	out := make([]byte, length)
	copy(out, fb.mp[offset:offset+length])
	return out, nil
}

// Len returns the current mapped length (== file length as of the last
// write).
func (fb *FileBacking) Len() int {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	return len(fb.mp)
}

// Metadata returns the underlying file's os.FileInfo.
func (fb *FileBacking) Metadata() (os.FileInfo, error) {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	return fb.file.Stat()
}

// Write runs op against the underlying *os.File under the exclusive writer
// lock, flushes, and remaps before returning op's result. The remap is
// mandatory: it is the only way later reads observe newly appended bytes.
func Write[R any](fb *FileBacking, op func(*os.File) (R, error)) (R, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	var zero R
	result, err := op(fb.file)
	if err != nil {
		return zero, err
	}
	if err := fb.file.Sync(); err != nil {
		return zero, fmt.Errorf("%w: %v", errs.ErrFlushing, err)
	}
	if err := fb.remapLocked(); err != nil {
		return zero, err
	}
	return result, nil
}

// remapLocked rebuilds the memory map from the current file contents. Caller
// must hold fb.mu exclusively. A remap failure is fatal to the FileBacking:
// the caller is expected to abandon and reopen it.
func (fb *FileBacking) remapLocked() error {
	if fb.mp != nil {
		if err := fb.mp.Unmap(); err != nil {
			fb.log.Warn("unmap failed during remap", zap.String("path", fb.path), zap.Error(err))
		}
	}
	info, err := fb.file.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat: %v", errs.ErrFlushing, err)
	}
	if info.Size() == 0 {
		// mmap-go refuses to map a zero-length file; keep an empty map.
		fb.mp = mmap.MMap{}
		return nil
	}
	m, err := mmap.Map(fb.file, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("%w: remap: %v", errs.ErrFlushing, err)
	}
	fb.mp = m
	return nil
}

// Close releases the memory map, the cross-process lock, and the file
// handle.
func (fb *FileBacking) Close() error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	if fb.mp != nil {
		_ = fb.mp.Unmap()
	}
	_ = fb.flock.Unlock()
	return fb.file.Close()
}
