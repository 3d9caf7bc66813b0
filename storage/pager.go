package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// StorageFile abstracts file operations for both a real OS file and an
// in-memory target, so tests and the embedded/no-filesystem path share
// the pager's logic (grounded on the teacher's MemFile split).
type StorageFile interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Sync() error
	Close() error
	Size() (int64, error)
}

// osFile adapts *os.File to StorageFile.
type osFile struct{ f *os.File }

func (o *osFile) ReadAt(p []byte, off int64) (int, error)  { return o.f.ReadAt(p, off) }
func (o *osFile) WriteAt(p []byte, off int64) (int, error) { return o.f.WriteAt(p, off) }
func (o *osFile) Sync() error                              { return o.f.Sync() }
func (o *osFile) Close() error                             { return o.f.Close() }
func (o *osFile) Size() (int64, error) {
	fi, err := o.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// ErrReadOnly is returned when a write is attempted against a pager
// opened read-only.
var ErrReadOnly = errors.New("pager: table is read-only")

// ErrPageNotFound is returned by ReadPage when the id is out of range.
var ErrPageNotFound = errors.New("pager: page not found")

// Pager is page-aligned I/O on a single table file (C1, §4.1). It serves
// one Table; the Table is responsible for serializing concurrent access
// per §4.1's "a Table serializes access" contract.
type Pager struct {
	mu   sync.RWMutex
	file StorageFile
	path string
	lock *fileLock

	totalPages uint32
	cache      *pageCache
	readOnly   bool
}

// OpenOptions configures a Pager at open/create time.
type OpenOptions struct {
	CacheCapacityPages int
	ReadOnly           bool
}

// Open opens or creates a table file at path.
func Open(path string, opts OpenOptions) (*Pager, error) {
	lock, err := lockFile(path)
	if err != nil {
		return nil, err
	}
	flags := os.O_RDWR | os.O_CREATE
	if opts.ReadOnly {
		flags = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		lock.unlock()
		return nil, fmt.Errorf("pager: open %s: %w", path, err)
	}
	return newPager(&osFile{f}, path, lock, opts)
}

// OpenMemory creates a Pager backed by an in-memory buffer (tests, the
// embedded/no-filesystem path).
func OpenMemory(opts OpenOptions) (*Pager, error) {
	return newPager(newMemFile(), "", &fileLock{}, opts)
}

func newPager(file StorageFile, path string, lock *fileLock, opts OpenOptions) (*Pager, error) {
	p := &Pager{
		file:     file,
		path:     path,
		lock:     lock,
		readOnly: opts.ReadOnly,
	}
	p.cache = newPageCache(opts.CacheCapacityPages, p)

	size, err := file.Size()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("pager: stat: %w", err)
	}
	if size == 0 {
		if opts.ReadOnly {
			file.Close()
			return nil, errors.New("pager: cannot create table in read-only mode")
		}
		meta := NewPage(PageTypeMeta, 0)
		if _, err := file.WriteAt(meta.Data[:], 0); err != nil {
			file.Close()
			return nil, fmt.Errorf("pager: init metadata page: %w", err)
		}
		p.totalPages = 1
	} else {
		if size%PageSize != 0 {
			file.Close()
			return nil, fmt.Errorf("pager: %s: truncated file (size %d not a multiple of page size)", path, size)
		}
		p.totalPages = uint32(size / PageSize)
	}
	return p, nil
}

// IsReadOnly reports whether the pager rejects writes.
func (p *Pager) IsReadOnly() bool { return p.readOnly }

// PageCount returns the number of pages in the file, including page 0.
func (p *Pager) PageCount() uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.totalPages
}

// ReadPage reads a page for inspection only; mutate via GetForWrite.
func (p *Pager) ReadPage(id uint32) (*Page, error) {
	p.mu.RLock()
	total := p.totalPages
	p.mu.RUnlock()
	if id >= total {
		return nil, ErrPageNotFound
	}
	return p.cache.get(id)
}

// GetForWrite returns the live page for in-place mutation. Pair with
// WritePage, which persists the mutation and releases the pin.
func (p *Pager) GetForWrite(id uint32) (*Page, error) {
	p.mu.RLock()
	total := p.totalPages
	p.mu.RUnlock()
	if id >= total {
		return nil, ErrPageNotFound
	}
	return p.cache.getForWrite(id)
}

// WritePage persists a page obtained from GetForWrite (or freshly
// allocated) and releases its pin.
func (p *Pager) WritePage(page *Page) error {
	if p.readOnly {
		return ErrReadOnly
	}
	return p.cache.putAfterWrite(page)
}

// AppendPage extends the file by one page and returns it; its id
// equals the prior page count (§4.1).
func (p *Pager) AppendPage(ptype PageType) (*Page, error) {
	if p.readOnly {
		return nil, ErrReadOnly
	}
	p.mu.Lock()
	id := p.totalPages
	p.totalPages++
	p.mu.Unlock()

	page := NewPage(ptype, id)
	if err := p.cache.putAfterWrite(page); err != nil {
		p.mu.Lock()
		p.totalPages--
		p.mu.Unlock()
		return nil, fmt.Errorf("pager: append page: %w", err)
	}
	return page, nil
}

// SaveMetadata overwrites page 0 with the given bytes (caller encodes).
func (p *Pager) SaveMetadata(data []byte) error {
	if p.readOnly {
		return ErrReadOnly
	}
	if len(data) > PageSize-PageHeaderSize {
		return fmt.Errorf("pager: metadata too large: %d bytes", len(data))
	}
	page := NewPage(PageTypeMeta, 0)
	copy(page.Data[PageHeaderSize:], data)
	page.SetFreeSpaceOffset(uint16(PageHeaderSize + len(data)))
	return p.cache.putAfterWrite(page)
}

// ReadMetadata returns the raw bytes written by the last SaveMetadata.
func (p *Pager) ReadMetadata() ([]byte, error) {
	page, err := p.ReadPage(0)
	if err != nil {
		return nil, err
	}
	n := int(page.FreeSpaceOffset()) - PageHeaderSize
	if n < 0 {
		return nil, fmt.Errorf("pager: corrupt metadata page")
	}
	out := make([]byte, n)
	copy(out, page.Data[PageHeaderSize:PageHeaderSize+n])
	return out, nil
}

// Flush forces all writes to durable storage. Since WritePage is
// write-through, this only needs to fsync the underlying file — there is
// no write-behind buffer to drain; see DESIGN.md.
func (p *Pager) Flush() error {
	if p.readOnly {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.file.Sync()
}

// Close flushes and releases the file handle and OS-level lock.
func (p *Pager) Close() error {
	err := p.Flush()
	p.mu.Lock()
	defer p.mu.Unlock()
	closeErr := p.file.Close()
	if p.lock != nil {
		p.lock.unlock()
	}
	if err != nil {
		return err
	}
	return closeErr
}

// CacheStats exposes page-cache counters for metrics/diagnostics.
func (p *Pager) CacheStats() (hits, misses, evictions uint64, size, capacity int) {
	return p.cache.stats()
}

// --- pageLoader implementation, used by pageCache on miss/write ---

func (p *Pager) loadPageFromDisk(id uint32) (*Page, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	page := &Page{}
	_, err := p.file.ReadAt(page.Data[:], int64(id)*PageSize)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("pager: read page %d: %w", id, err)
	}
	return page, nil
}

func (p *Pager) persistPageToDisk(page *Page) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if page.PageID() >= p.totalPages {
		return fmt.Errorf("pager: page %d out of range (total=%d)", page.PageID(), p.totalPages)
	}
	_, err := p.file.WriteAt(page.Data[:], int64(page.PageID())*PageSize)
	if err != nil {
		return fmt.Errorf("pager: write page %d: %w", page.PageID(), err)
	}
	return nil
}
