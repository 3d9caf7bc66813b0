package storage

import (
	"io"
	"sync"
)

// memFile implements StorageFile backed by a byte slice, for tests and
// the embedded in-memory mode (grounded on the teacher's MemFile).
type memFile struct {
	mu   sync.RWMutex
	data []byte
}

func newMemFile() *memFile { return &memFile{} }

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	n := copy(m.data[off:], p)
	return n, nil
}

func (m *memFile) Sync() error  { return nil }
func (m *memFile) Close() error { return nil }

func (m *memFile) Size() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.data)), nil
}
