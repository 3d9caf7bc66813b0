// Package table implements the public per-table handle (C9, §4.8): the
// MemTable, the pager, and the index manager behind one named collection
// of records.
package table

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gqlstore/gqlstore/config"
	"github.com/gqlstore/gqlstore/gqlerr"
	"github.com/gqlstore/gqlstore/index"
	"github.com/gqlstore/gqlstore/schema"
	"github.com/gqlstore/gqlstore/storage"
)

// State is where a Table handle sits in its lifecycle (§4.8).
type State int

const (
	StateFresh State = iota
	StateOpen
	StateFlushing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "Fresh"
	case StateOpen:
		return "Open"
	case StateFlushing:
		return "Flushing"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// placeholderPageID marks a primary-index entry for a record that is
// still staged in the MemTable: page 0 is always the metadata page, so
// it can never be a real data page id (§4.8's "updates the hash index
// with a placeholder until flush finalizes the page-id").
const placeholderPageID uint32 = 0

// Table is a single named collection of records: one page file, one
// MemTable, one index manager (C9, §4.8).
type Table struct {
	mu sync.RWMutex

	name string
	dir  string

	pager    *storage.Pager
	memtable *storage.MemTable
	indexes  *index.Manager
	meta     *schema.TableMetadata

	state        State
	lastDataPage uint32
	readOnly     bool
}

// Create makes a new table file under dir, storing meta (if non-nil) as
// the table's column schema.
func Create(dir, name string, meta *schema.TableMetadata, cfg *config.Config) (*Table, error) {
	path := filepath.Join(dir, name+".tbl")
	pager, err := storage.Open(path, storage.OpenOptions{CacheCapacityPages: cfg.CacheCapacityPages})
	if err != nil {
		return nil, gqlerr.New(gqlerr.KindIO, "table.Create", err)
	}
	if meta == nil {
		meta = &schema.TableMetadata{}
	}
	meta.Name = name
	meta.CreatedAt = time.Now().UTC()

	mgr, err := index.NewManager(dir, name, cfg.BTreeOrder, cfg.CacheCapacityPages)
	if err != nil {
		pager.Close()
		return nil, err
	}

	t := &Table{
		name:     name,
		dir:      dir,
		pager:    pager,
		memtable: storage.NewMemTable(cfg.MemtableThreshold),
		indexes:  mgr,
		meta:     meta,
		state:    StateFresh,
	}
	if err := t.persistMetadata(); err != nil {
		mgr.Close()
		pager.Close()
		return nil, err
	}
	return t, nil
}

// Open reopens an existing table file, loading its metadata and asking
// the index manager to load or rebuild its indexes (§4.7, §4.8).
func Open(dir, name string, cfg *config.Config) (*Table, error) {
	return open(dir, name, cfg, false)
}

// OpenReadOnly reopens an existing table file the way Open does, but
// marks the handle so Insert/Update/Delete reject with KindClosed
// instead of mutating — the per-table half of a read-only database
// open (§6's "toute tentative d'écriture... retournera une erreur",
// adapted from Felmond13-novusdb's OpenReadOnly to the per-table
// handle rather than a single shared pager).
func OpenReadOnly(dir, name string, cfg *config.Config) (*Table, error) {
	return open(dir, name, cfg, true)
}

func open(dir, name string, cfg *config.Config, readOnly bool) (*Table, error) {
	path := filepath.Join(dir, name+".tbl")
	pager, err := storage.Open(path, storage.OpenOptions{CacheCapacityPages: cfg.CacheCapacityPages, ReadOnly: readOnly})
	if err != nil {
		return nil, gqlerr.New(gqlerr.KindIO, "table.Open", err)
	}
	raw, err := pager.ReadMetadata()
	if err != nil {
		pager.Close()
		return nil, gqlerr.New(gqlerr.KindCorruptPage, "table.Open", err)
	}
	meta, err := schema.Decode(raw)
	if err != nil {
		pager.Close()
		return nil, err
	}

	secondary := make([]index.Descriptor, 0, len(meta.SecondaryIndexes))
	for _, d := range meta.SecondaryIndexes {
		kt, err := index.KeyTypeFromValueKind(d.KeyKind)
		if err != nil {
			pager.Close()
			return nil, gqlerr.New(gqlerr.KindCorruptPage, "table.Open", err)
		}
		secondary = append(secondary, index.Descriptor{
			Column: d.Column, Kind: index.KindBTree, KeyType: kt, RootPageID: d.RootPageID,
		})
	}
	dir2 := index.Directory{
		Primary:   index.Descriptor{Column: "id", Kind: index.KindHash, RootPageID: meta.PrimaryIndexRootPageID},
		Secondary: secondary,
	}

	mgr, toRebuild, loadErr := index.LoadAll(dir, name, cfg.BTreeOrder, cfg.CacheCapacityPages, dir2)
	if loadErr != nil {
		pager.Close()
		return nil, loadErr
	}
	if len(toRebuild) > 0 {
		if err := rebuildIndexes(mgr, pager, meta, toRebuild); err != nil {
			mgr.Close()
			pager.Close()
			return nil, err
		}
	}

	t := &Table{
		name:         name,
		dir:          dir,
		pager:        pager,
		memtable:     storage.NewMemTable(cfg.MemtableThreshold),
		indexes:      mgr,
		meta:         meta,
		state:        StateOpen,
		lastDataPage: lastPageID(pager),
		readOnly:     readOnly,
	}
	return t, nil
}

func lastPageID(pager *storage.Pager) uint32 {
	total := pager.PageCount()
	if total <= 1 {
		return 0
	}
	return total - 1
}

// rebuildIndexes replays every live record on disk into whichever indexes
// LoadAll could not parse, used when one or more sidecar files fail to
// load (§4.7: "if a sidecar fails to parse, rebuild that index by
// replaying every record"). Indexes that loaded cleanly are left alone so
// they are never double-populated.
func rebuildIndexes(mgr *index.Manager, pager *storage.Pager, meta *schema.TableMetadata, broken []index.Descriptor) error {
	needPrimary := false
	trees := make(map[string]*index.BTree, len(broken))
	for _, d := range broken {
		if d.Kind == index.KindHash {
			needPrimary = true
			continue
		}
		tree, err := mgr.Create(d.Column, d.KeyType)
		if err != nil {
			return err
		}
		trees[d.Column] = tree
	}

	fieldOrder := meta.FieldOrder()
	total := pager.PageCount()
	for pid := uint32(1); pid < total; pid++ {
		page, err := pager.ReadPage(pid)
		if err != nil {
			return gqlerr.New(gqlerr.KindIO, "table.rebuildIndexes", err)
		}
		if page.Type() != storage.PageTypeData {
			continue
		}
		for _, s := range page.ReadRecords() {
			if s.Deleted {
				continue
			}
			flag := storage.SlotFlagActive
			if s.Compressed {
				flag = storage.SlotFlagCompressed
			}
			rec, err := storage.DecodeFromPage(s.Data, flag, fieldOrder)
			if err != nil {
				return gqlerr.New(gqlerr.KindCorruptPage, "table.rebuildIndexes", err)
			}
			if needPrimary {
				mgr.Primary().Put(s.ID, pid)
			}
			for col, tree := range trees {
				v, ok := rec.Get(col)
				if !ok || v.IsNull() {
					continue
				}
				if err := tree.Insert(v, s.ID); err != nil {
					return gqlerr.New(gqlerr.KindCorruptIndex, "table.rebuildIndexes", err)
				}
			}
		}
	}
	return nil
}

// Name returns the table's name.
func (t *Table) Name() string { return t.name }

// Metadata returns the table's current column schema and counters.
func (t *Table) Metadata() *schema.TableMetadata {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.meta
}

func (t *Table) fieldOrder() []string {
	fo := t.meta.FieldOrder()
	if len(fo) == 0 {
		return nil
	}
	return fo
}

// Insert writes id's record to the MemTable, indexing it with a
// placeholder page id until the next flush (§4.8). With overwrite=false
// it returns Duplicate if id already exists anywhere in the table.
func (t *Table) Insert(id string, rec *storage.Record, overwrite bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateClosed {
		return gqlerr.New(gqlerr.KindClosed, "table.Insert", nil)
	}
	if t.readOnly {
		return gqlerr.New(gqlerr.KindClosed, "table.Insert", fmt.Errorf("table %q is read-only", t.name))
	}
	if !overwrite {
		if _, exists, err := t.find(id); err != nil {
			return err
		} else if exists {
			return gqlerr.New(gqlerr.KindDuplicate, "table.Insert",
				fmt.Errorf("id %q already exists in %s", id, t.name))
		}
	}

	withID := rec.Clone()
	withID.Set("id", storage.String(id))
	data, flag, err := storage.EncodeForPage(withID, t.fieldOrder())
	if err != nil {
		return gqlerr.New(gqlerr.KindSchemaMismatch, "table.Insert", err)
	}
	t.memtable.Put(id, data, flag)
	if err := t.indexes.IndexRecord(id, placeholderPageID, withID); err != nil {
		return err
	}
	if t.state == StateFresh {
		t.state = StateOpen
	}
	t.meta.RecordCount++

	if t.memtable.Full() {
		return t.flush()
	}
	return nil
}

// find looks up id without taking a lock; callers must already hold t.mu
// (read or write). It checks the MemTable first, then the primary index
// and the data page it points to.
func (t *Table) find(id string) (*storage.Record, bool, error) {
	if data, flag, ok := t.memtable.Get(id); ok {
		rec, err := storage.DecodeFromPage(data, flag, t.fieldOrder())
		if err != nil {
			return nil, false, gqlerr.New(gqlerr.KindCorruptPage, "table.find", err)
		}
		return rec, true, nil
	}
	pageID, ok := t.indexes.Primary().Get(id)
	if !ok || pageID == placeholderPageID {
		return nil, false, nil
	}
	page, err := t.pager.ReadPage(pageID)
	if err != nil {
		return nil, false, gqlerr.New(gqlerr.KindIO, "table.find", err)
	}
	for _, s := range page.ReadRecords() {
		if s.ID != id || s.Deleted {
			continue
		}
		flag := storage.SlotFlagActive
		if s.Compressed {
			flag = storage.SlotFlagCompressed
		}
		rec, err := storage.DecodeFromPage(s.Data, flag, t.fieldOrder())
		if err != nil {
			return nil, false, gqlerr.New(gqlerr.KindCorruptPage, "table.find", err)
		}
		return rec, true, nil
	}
	return nil, false, nil
}

// Find returns the record stored under id, if any (§4.8).
func (t *Table) Find(id string) (*storage.Record, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.find(id)
}

// rewriteWithout compacts pageID in place, dropping the slot for id
// (§4.8's delete/update "rewrite owning page without the record").
func (t *Table) rewriteWithout(pageID uint32, id string) error {
	page, err := t.pager.GetForWrite(pageID)
	if err != nil {
		return gqlerr.New(gqlerr.KindIO, "table.rewriteWithout", err)
	}
	var keep []storage.RecordSlot
	for _, s := range page.ReadRecords() {
		if s.Deleted || s.ID == id {
			continue
		}
		keep = append(keep, s)
	}
	page.Compact(keep)
	if err := t.pager.WritePage(page); err != nil {
		return gqlerr.New(gqlerr.KindIO, "table.rewriteWithout", err)
	}
	return nil
}

// Update reads id, merges partial onto it, and reinserts the result with
// overwrite (§4.8). Every secondary index is unindexed from the old
// value and reindexed from the merged one; this is a blunter version of
// the "only changed columns" wording but converges on the same state.
func (t *Table) Update(id string, partial *storage.Record) (*storage.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateClosed {
		return nil, gqlerr.New(gqlerr.KindClosed, "table.Update", nil)
	}
	if t.readOnly {
		return nil, gqlerr.New(gqlerr.KindClosed, "table.Update", fmt.Errorf("table %q is read-only", t.name))
	}

	old, exists, err := t.find(id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, gqlerr.New(gqlerr.KindNotFound, "table.Update",
			fmt.Errorf("id %q not found in %s", id, t.name))
	}
	merged := old.Merge(partial)
	merged.Set("id", storage.String(id))

	// Physically remove any on-disk slot now, so the record's only
	// surviving copy is the one about to land back in the MemTable.
	if pageID, ok := t.indexes.Primary().Get(id); ok && pageID != placeholderPageID {
		if err := t.rewriteWithout(pageID, id); err != nil {
			return nil, err
		}
	} else {
		t.memtable.Delete(id)
	}
	if err := t.indexes.UnindexRecord(id, old); err != nil {
		return nil, err
	}

	data, flag, err := storage.EncodeForPage(merged, t.fieldOrder())
	if err != nil {
		return nil, gqlerr.New(gqlerr.KindSchemaMismatch, "table.Update", err)
	}
	t.memtable.Put(id, data, flag)
	if err := t.indexes.IndexRecord(id, placeholderPageID, merged); err != nil {
		return nil, err
	}
	if t.memtable.Full() {
		if err := t.flush(); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// Delete removes id from the MemTable or, if it is on disk, rewrites its
// owning page without the slot, then drops it from every index (§4.8).
func (t *Table) Delete(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateClosed {
		return gqlerr.New(gqlerr.KindClosed, "table.Delete", nil)
	}
	if t.readOnly {
		return gqlerr.New(gqlerr.KindClosed, "table.Delete", fmt.Errorf("table %q is read-only", t.name))
	}

	rec, exists, err := t.find(id)
	if err != nil {
		return err
	}
	if !exists {
		return gqlerr.New(gqlerr.KindNotFound, "table.Delete",
			fmt.Errorf("id %q not found in %s", id, t.name))
	}
	if pageID, ok := t.indexes.Primary().Get(id); ok && pageID != placeholderPageID {
		if err := t.rewriteWithout(pageID, id); err != nil {
			return err
		}
	} else {
		t.memtable.Delete(id)
	}
	if err := t.indexes.UnindexRecord(id, rec); err != nil {
		return err
	}
	if t.meta.RecordCount > 0 {
		t.meta.RecordCount--
	}
	return nil
}

// SelectAll returns every live record: staged MemTable entries in
// insertion order, then data pages in ascending page id, skipping
// tombstones (§4.8).
func (t *Table) SelectAll() ([]*storage.Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.selectAll()
}

func (t *Table) selectAll() ([]*storage.Record, error) {
	var out []*storage.Record
	fieldOrder := t.fieldOrder()

	for _, e := range t.memtable.All() {
		rec, err := storage.DecodeFromPage(e.Data, e.Flag, fieldOrder)
		if err != nil {
			return nil, gqlerr.New(gqlerr.KindCorruptPage, "table.SelectAll", err)
		}
		out = append(out, rec)
	}

	total := t.pager.PageCount()
	for pid := uint32(1); pid < total; pid++ {
		page, err := t.pager.ReadPage(pid)
		if err != nil {
			return nil, gqlerr.New(gqlerr.KindIO, "table.SelectAll", err)
		}
		if page.Type() != storage.PageTypeData {
			continue
		}
		for _, s := range page.ReadRecords() {
			if s.Deleted {
				continue
			}
			flag := storage.SlotFlagActive
			if s.Compressed {
				flag = storage.SlotFlagCompressed
			}
			rec, err := storage.DecodeFromPage(s.Data, flag, fieldOrder)
			if err != nil {
				return nil, gqlerr.New(gqlerr.KindCorruptPage, "table.SelectAll", err)
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

// FindByRange resolves every record whose column value falls within
// [min, max] (bounds nil-able, inclusivity per flag), using a B-tree
// index over column when one exists, else a full scan with an inline
// predicate (§4.8).
func (t *Table) FindByRange(column string, min, max *storage.Value, minIncl, maxIncl bool) ([]*storage.Record, error) {
	t.mu.RLock()
	tree := t.indexes.Get(column)
	if tree != nil {
		rids, err := tree.RangeScan(min, max, minIncl, maxIncl)
		t.mu.RUnlock()
		if err != nil {
			return nil, err
		}
		return t.resolveAll(rids)
	}
	all, err := t.selectAll()
	t.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	out := make([]*storage.Record, 0, len(all))
	for _, rec := range all {
		v, ok := rec.Get(column)
		if !ok || v.IsNull() {
			continue
		}
		if inRange(v, min, max, minIncl, maxIncl) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (t *Table) resolveAll(ids []string) ([]*storage.Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*storage.Record, 0, len(ids))
	for _, id := range ids {
		rec, ok, err := t.find(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func inRange(v storage.Value, min, max *storage.Value, minIncl, maxIncl bool) bool {
	if min != nil {
		c := storage.CompareValues(v, *min)
		if c < 0 || (c == 0 && !minIncl) {
			return false
		}
	}
	if max != nil {
		c := storage.CompareValues(v, *max)
		if c > 0 || (c == 0 && !maxIncl) {
			return false
		}
	}
	return true
}

// FindGT, FindGE, FindLT, FindLE are convenience wrappers over
// FindByRange with one open bound (§4.8's "find-gt / find-lt / etc.").
func (t *Table) FindGT(column string, v storage.Value) ([]*storage.Record, error) {
	return t.FindByRange(column, &v, nil, false, false)
}

func (t *Table) FindGE(column string, v storage.Value) ([]*storage.Record, error) {
	return t.FindByRange(column, &v, nil, true, false)
}

func (t *Table) FindLT(column string, v storage.Value) ([]*storage.Record, error) {
	return t.FindByRange(column, nil, &v, false, false)
}

func (t *Table) FindLE(column string, v storage.Value) ([]*storage.Record, error) {
	return t.FindByRange(column, nil, &v, false, true)
}

// SelectAllSorted returns live records ordered by column: a B-tree
// walk when column is indexed, otherwise a full scan followed by a sort
// (§4.8). The B-tree walk returns only records whose column value is
// non-null, since null and absent values are not indexed; the full scan
// returns every live record, nulls last.
func (t *Table) SelectAllSorted(column string) ([]*storage.Record, error) {
	t.mu.RLock()
	tree := t.indexes.Get(column)
	if tree != nil {
		rids, err := tree.RangeScan(nil, nil, true, true)
		t.mu.RUnlock()
		if err != nil {
			return nil, err
		}
		return t.resolveAll(rids)
	}
	all, err := t.selectAll()
	t.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		vi, _ := all[i].Get(column)
		vj, _ := all[j].Get(column)
		return storage.CompareValues(vi, vj) < 0
	})
	return all, nil
}

// HasIndex reports whether column currently has a secondary index.
func (t *Table) HasIndex(column string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.indexes.Has(column)
}

// CreateIndex builds a B-tree index over column from every record
// currently in the table (MemTable and disk), then persists it (§4.8).
func (t *Table) CreateIndex(column string, kt index.KeyType) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateClosed {
		return gqlerr.New(gqlerr.KindClosed, "table.CreateIndex", nil)
	}
	tree, err := t.indexes.Create(column, kt)
	if err != nil {
		return err
	}
	all, err := t.selectAll()
	if err != nil {
		return err
	}
	for _, rec := range all {
		id, ok := rec.ID()
		if !ok {
			continue
		}
		v, ok := rec.Get(column)
		if !ok || v.IsNull() {
			continue
		}
		if err := tree.Insert(v, id); err != nil {
			return gqlerr.New(gqlerr.KindCorruptIndex, "table.CreateIndex", err)
		}
	}
	return t.persistMetadata()
}

// appendToPage writes a record into the current tail data page, or a
// fresh one if it doesn't fit. Only the tail page is appended to: space
// that updates and deletes free on earlier pages (rewriteWithout
// compacts the owning page) is never refilled — see DESIGN.md.
func (t *Table) appendToPage(id string, data []byte, flag byte) (uint32, error) {
	if t.lastDataPage != 0 {
		page, err := t.pager.GetForWrite(t.lastDataPage)
		if err != nil {
			return 0, gqlerr.New(gqlerr.KindIO, "table.appendToPage", err)
		}
		if page.AppendRecord(id, data, flag) {
			if err := t.pager.WritePage(page); err != nil {
				return 0, gqlerr.New(gqlerr.KindIO, "table.appendToPage", err)
			}
			return t.lastDataPage, nil
		}
		if err := t.pager.WritePage(page); err != nil {
			return 0, gqlerr.New(gqlerr.KindIO, "table.appendToPage", err)
		}
	}

	page, err := t.pager.AppendPage(storage.PageTypeData)
	if err != nil {
		return 0, gqlerr.New(gqlerr.KindIO, "table.appendToPage", err)
	}
	if !page.AppendRecord(id, data, flag) {
		return 0, gqlerr.New(gqlerr.KindInvalid, "table.appendToPage",
			fmt.Errorf("record %q does not fit in an empty page", id))
	}
	if err := t.pager.WritePage(page); err != nil {
		return 0, gqlerr.New(gqlerr.KindIO, "table.appendToPage", err)
	}
	t.lastDataPage = page.PageID()
	return t.lastDataPage, nil
}

// FlushMemTable drains the MemTable into data pages and finalizes every
// placeholder primary-index entry with the page it landed on (§4.8).
func (t *Table) FlushMemTable() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateClosed {
		return gqlerr.New(gqlerr.KindClosed, "table.FlushMemTable", nil)
	}
	return t.flush()
}

// flush is FlushMemTable's core, called both from the public entry point
// and internally once the MemTable fills past its threshold. The caller
// must already hold t.mu for writing; the mutex also serializes any
// concurrent flush attempt, satisfying §4.8's "flush in Flushing is
// serialized" without extra bookkeeping.
func (t *Table) flush() error {
	if t.memtable.Len() == 0 {
		return t.persistMetadata()
	}
	prev := t.state
	t.state = StateFlushing
	defer func() { t.state = prev }()

	for _, e := range t.memtable.Drain() {
		pageID, err := t.appendToPage(e.ID, e.Data, e.Flag)
		if err != nil {
			return err
		}
		t.indexes.Primary().Put(e.ID, pageID)
	}
	return t.persistMetadata()
}

func (t *Table) persistMetadata() error {
	dir, err := t.indexes.SaveAll()
	if err != nil {
		return err
	}
	t.meta.PrimaryIndexRootPageID = dir.Primary.RootPageID
	t.meta.SecondaryIndexes = t.meta.SecondaryIndexes[:0]
	for _, d := range dir.Secondary {
		t.meta.SecondaryIndexes = append(t.meta.SecondaryIndexes, schema.IndexDescriptor{
			Column:     d.Column,
			IsBTree:    d.Kind == index.KindBTree,
			KeyKind:    valueKindOf(d.KeyType),
			RootPageID: d.RootPageID,
		})
	}
	t.meta.PageCount = t.pager.PageCount()

	data, err := t.meta.Encode()
	if err != nil {
		return err
	}
	if err := t.pager.SaveMetadata(data); err != nil {
		return gqlerr.New(gqlerr.KindIO, "table.persistMetadata", err)
	}
	return nil
}

func valueKindOf(kt index.KeyType) storage.ValueKind {
	switch kt {
	case index.KeyTypeInt:
		return storage.KindInt
	case index.KeyTypeFloat:
		return storage.KindFloat
	case index.KeyTypeBool:
		return storage.KindBool
	default:
		return storage.KindString
	}
}

// Close flushes any staged writes and closes the underlying file (§4.8).
// Writes after Close fail with Closed; Close itself is idempotent.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateClosed {
		return nil
	}
	if !t.readOnly {
		if err := t.flush(); err != nil {
			return err
		}
	}
	t.state = StateClosed
	if err := t.indexes.Close(); err != nil {
		t.pager.Close()
		return gqlerr.New(gqlerr.KindIO, "table.Close", err)
	}
	return t.pager.Close()
}

// State reports the table's current lifecycle state.
func (t *Table) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}
