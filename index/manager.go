package index

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gqlstore/gqlstore/gqlerr"
	"github.com/gqlstore/gqlstore/storage"
)

// Kind distinguishes the primary hash index from a secondary B-tree.
type Kind int

const (
	KindHash Kind = iota
	KindBTree
)

// primaryColumn is the fixed name of the id -> page-id sidecar, kept
// distinct from any user column name.
const primaryColumn = "id"

// Descriptor is the persisted directory entry for one index, stored in
// the table's own metadata page (§4.6) so a reopen knows which sidecar
// files to open without listing a directory.
type Descriptor struct {
	Column     string
	Kind       Kind
	KeyType    KeyType
	RootPageID uint32
}

// secondary pairs a B-tree with the sidecar pager backing it.
type secondary struct {
	desc  Descriptor
	tree  *BTree
	pager *storage.Pager
}

// Manager owns the primary hash index and every secondary B-tree index
// for one table (C8, §4.7), each backed by its own sidecar file under
// `<dir>/<table>_indexes/<column>.idx` (§6), separate from the table's
// own `.tbl` file so a corrupt index never corrupts table data and vice
// versa.
type Manager struct {
	mu    sync.RWMutex
	dir   string
	table string
	order int
	cache int

	primary      *HashIndex
	primaryPager *storage.Pager

	secondary map[string]*secondary
}

// sidecarDir is the directory holding every index file for table.
func sidecarDir(dir, table string) string {
	return filepath.Join(dir, table+"_indexes")
}

func sidecarPath(dir, table, column string) string {
	return filepath.Join(sidecarDir(dir, table), column+".idx")
}

func openSidecar(dir, table, column string, cache int) (*storage.Pager, error) {
	if err := os.MkdirAll(sidecarDir(dir, table), 0o755); err != nil {
		return nil, fmt.Errorf("index: create sidecar directory: %w", err)
	}
	return storage.Open(sidecarPath(dir, table, column), storage.OpenOptions{CacheCapacityPages: cache})
}

// NewManager creates a manager with a fresh, empty primary index backed
// by a new `id.idx` sidecar under dir/table_indexes.
func NewManager(dir, table string, order, cacheCapacityPages int) (*Manager, error) {
	pager, err := openSidecar(dir, table, primaryColumn, cacheCapacityPages)
	if err != nil {
		return nil, gqlerr.New(gqlerr.KindIO, "index.NewManager", err)
	}
	if err := writeSidecarMeta(pager, sidecarMeta{Column: primaryColumn, Kind: sidecarHash}); err != nil {
		pager.Close()
		return nil, gqlerr.New(gqlerr.KindIO, "index.NewManager", err)
	}
	return &Manager{
		dir: dir, table: table, order: order, cache: cacheCapacityPages,
		primary:      NewHashIndex(),
		primaryPager: pager,
		secondary:    make(map[string]*secondary),
	}, nil
}

// Primary returns the primary key -> page id index.
func (m *Manager) Primary() *HashIndex {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.primary
}

// Create builds a new secondary B-tree index over column, backed by its
// own sidecar file, idempotently: calling it again for an
// already-indexed column is a no-op (§4.6).
func (m *Manager) Create(column string, kt KeyType) (*BTree, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.secondary[column]; ok {
		return s.tree, nil
	}
	pager, err := openSidecar(m.dir, m.table, column, m.cache)
	if err != nil {
		return nil, gqlerr.New(gqlerr.KindIO, "index.Create", err)
	}
	if err := writeSidecarMeta(pager, sidecarMeta{Column: column, Kind: sidecarBTree, KeyType: kt}); err != nil {
		pager.Close()
		return nil, gqlerr.New(gqlerr.KindIO, "index.Create", err)
	}
	tree, err := NewBTree(pager, kt, m.order)
	if err != nil {
		pager.Close()
		return nil, gqlerr.New(gqlerr.KindIO, "index.Create", err)
	}
	m.secondary[column] = &secondary{
		desc:  Descriptor{Column: column, Kind: KindBTree, KeyType: kt, RootPageID: tree.RootPageID},
		tree:  tree,
		pager: pager,
	}
	return tree, nil
}

// Get returns the secondary index over column, or nil if none exists.
func (m *Manager) Get(column string) *BTree {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.secondary[column]; ok {
		return s.tree
	}
	return nil
}

// Has reports whether column currently has a secondary index.
func (m *Manager) Has(column string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.secondary[column]
	return ok
}

// Drop removes a secondary index and deletes its sidecar file. Unlike a
// dropped B-tree page inside a shared file, a sidecar is a whole file,
// so this one case reclaims space outright rather than abandoning pages.
func (m *Manager) Drop(column string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.secondary[column]
	if !ok {
		return gqlerr.New(gqlerr.KindIndexMissing, "index.Drop", fmt.Errorf("no index on %q", column))
	}
	s.pager.Close()
	delete(m.secondary, column)
	os.Remove(sidecarPath(m.dir, m.table, column))
	return nil
}

// Columns lists every column that currently has a secondary index.
func (m *Manager) Columns() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.secondary))
	for c := range m.secondary {
		out = append(out, c)
	}
	return out
}

// IndexRecord adds id to the primary index under pageID, and to every
// secondary index under the corresponding field value.
func (m *Manager) IndexRecord(id string, pageID uint32, rec *storage.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primary.Put(id, pageID)
	for col, s := range m.secondary {
		v, ok := rec.Get(col)
		if !ok || v.IsNull() {
			continue
		}
		if err := s.tree.Insert(v, id); err != nil {
			return gqlerr.New(gqlerr.KindCorruptIndex, "index.IndexRecord", err)
		}
	}
	return nil
}

// UnindexRecord removes id from the primary index and from every
// secondary index that held it under rec's field values.
func (m *Manager) UnindexRecord(id string, rec *storage.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primary.Remove(id)
	for col, s := range m.secondary {
		v, ok := rec.Get(col)
		if !ok || v.IsNull() {
			continue
		}
		if err := s.tree.Remove(v, id); err != nil {
			return gqlerr.New(gqlerr.KindCorruptIndex, "index.UnindexRecord", err)
		}
	}
	return nil
}

// Directory is the persisted snapshot: one Descriptor per index,
// embedded in the table's own metadata page (§4.6) so reopen knows
// which sidecar files to open and with which key types without a
// directory listing.
type Directory struct {
	Primary   Descriptor
	Secondary []Descriptor
}

// SaveAll flushes every sidecar pager and returns the directory to embed
// in the table's metadata.
func (m *Manager) SaveAll() (Directory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	root, err := m.primary.Save(m.primaryPager)
	if err != nil {
		return Directory{}, gqlerr.New(gqlerr.KindIO, "index.SaveAll", err)
	}
	if err := m.primaryPager.Flush(); err != nil {
		return Directory{}, gqlerr.New(gqlerr.KindIO, "index.SaveAll", err)
	}
	dir := Directory{Primary: Descriptor{Column: primaryColumn, Kind: KindHash, RootPageID: root}}
	for _, s := range m.secondary {
		s.desc.RootPageID = s.tree.RootPageID
		if err := s.pager.Flush(); err != nil {
			return Directory{}, gqlerr.New(gqlerr.KindIO, "index.SaveAll", err)
		}
		dir.Secondary = append(dir.Secondary, s.desc)
	}
	return dir, nil
}

// LoadAll reopens every sidecar file named in dir. A sidecar whose
// header or chain fails to parse is reported via rebuildColumns so the
// caller can fall back to a page-scan rebuild for just that column
// (§4.7: "if sidecar parses cleanly, adopt it; else mark for rebuild").
func LoadAll(dirPath, table string, order, cache int, d Directory) (mgr *Manager, rebuildColumns []Descriptor, err error) {
	m := &Manager{dir: dirPath, table: table, order: order, cache: cache, secondary: make(map[string]*secondary)}

	primaryPager, perr := openSidecar(dirPath, table, primaryColumn, cache)
	if perr != nil {
		return nil, nil, gqlerr.New(gqlerr.KindIO, "index.LoadAll", perr)
	}
	m.primaryPager = primaryPager
	if d.Primary.RootPageID != 0 {
		if _, merr := readSidecarMeta(primaryPager); merr != nil {
			m.primary = NewHashIndex()
			rebuildColumns = append(rebuildColumns, Descriptor{Column: primaryColumn, Kind: KindHash})
		} else if primary, herr := LoadHashIndex(primaryPager, d.Primary.RootPageID); herr != nil {
			m.primary = NewHashIndex()
			rebuildColumns = append(rebuildColumns, Descriptor{Column: primaryColumn, Kind: KindHash})
		} else {
			m.primary = primary
		}
	} else {
		m.primary = NewHashIndex()
	}

	for _, sd := range d.Secondary {
		pager, perr := openSidecar(dirPath, table, sd.Column, cache)
		if perr != nil {
			return nil, nil, gqlerr.New(gqlerr.KindIO, "index.LoadAll", perr)
		}
		if _, merr := readSidecarMeta(pager); merr != nil {
			pager.Close()
			rebuildColumns = append(rebuildColumns, sd)
			continue
		}
		m.secondary[sd.Column] = &secondary{
			desc:  sd,
			tree:  OpenBTree(pager, sd.RootPageID, sd.KeyType, order),
			pager: pager,
		}
	}
	return m, rebuildColumns, nil
}

// Close releases every sidecar file handle.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	if err := m.primaryPager.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	for _, s := range m.secondary {
		if err := s.pager.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
