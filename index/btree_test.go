package index

import (
	"testing"

	"github.com/gqlstore/gqlstore/storage"
)

func newTestPager(t *testing.T) *storage.Pager {
	t.Helper()
	p, err := storage.OpenMemory(storage.OpenOptions{})
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestBTreeInsertLookup(t *testing.T) {
	pager := newTestPager(t)
	bt, err := NewBTree(pager, KeyTypeInt, 4)
	if err != nil {
		t.Fatalf("NewBTree: %v", err)
	}

	for i := int64(0); i < 50; i++ {
		if err := bt.Insert(storage.Int(i%10), idFor(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	got, err := bt.Lookup(storage.Int(3))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d record ids for key 3, want 5", len(got))
	}
}

func TestBTreeRangeScanOrderedAcrossLeaves(t *testing.T) {
	pager := newTestPager(t)
	bt, err := NewBTree(pager, KeyTypeInt, 4)
	if err != nil {
		t.Fatalf("NewBTree: %v", err)
	}
	for i := int64(0); i < 200; i++ {
		if err := bt.Insert(storage.Int(i), idFor(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	min := storage.Int(50)
	max := storage.Int(60)
	got, err := bt.RangeScan(&min, &max, true, true)
	if err != nil {
		t.Fatalf("RangeScan: %v", err)
	}
	if len(got) != 11 {
		t.Fatalf("got %d ids in [50,60], want 11", len(got))
	}
}

func TestBTreeRangeScanExclusiveBounds(t *testing.T) {
	pager := newTestPager(t)
	bt, _ := NewBTree(pager, KeyTypeInt, 4)
	for i := int64(0); i < 10; i++ {
		bt.Insert(storage.Int(i), idFor(i))
	}
	min := storage.Int(2)
	max := storage.Int(5)
	got, err := bt.RangeScan(&min, &max, false, false)
	if err != nil {
		t.Fatalf("RangeScan: %v", err)
	}
	if len(got) != 2 { // 3, 4
		t.Fatalf("got %d ids in (2,5), want 2", len(got))
	}
}

func TestBTreeRemove(t *testing.T) {
	pager := newTestPager(t)
	bt, _ := NewBTree(pager, KeyTypeString, 4)
	bt.Insert(storage.String("k"), "r1")
	bt.Insert(storage.String("k"), "r2")

	if err := bt.Remove(storage.String("k"), "r1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	got, err := bt.Lookup(storage.String("k"))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(got) != 1 || got[0] != "r2" {
		t.Fatalf("got %v, want [r2]", got)
	}
}

func TestBTreeFloatOrderPreserved(t *testing.T) {
	pager := newTestPager(t)
	bt, _ := NewBTree(pager, KeyTypeFloat, 4)
	values := []float64{-3.5, -1.0, 0.0, 1.5, 2.25, 100.0}
	for i, v := range values {
		bt.Insert(storage.Float(v), idFor(int64(i)))
	}
	all, err := bt.AllEntries()
	if err != nil {
		t.Fatalf("AllEntries: %v", err)
	}
	if len(all) != len(values) {
		t.Fatalf("got %d distinct keys, want %d", len(all), len(values))
	}
	min := storage.Float(-1.0)
	max := storage.Float(2.25)
	got, err := bt.RangeScan(&min, &max, true, true)
	if err != nil {
		t.Fatalf("RangeScan: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d ids in [-1.0, 2.25], want 3", len(got))
	}
}

func idFor(i int64) string {
	const letters = "0123456789abcdefghijklmnopqrstuvwxyz"
	return "r" + string(letters[i%int64(len(letters))]) + string(rune('A'+(i/int64(len(letters)))%26))
}

// assertBTreeInvariant walks every node but the root and fails the test
// if any of them holds fewer than ⌈m/2⌉ keys (§3).
func assertBTreeInvariant(t *testing.T, bt *BTree) {
	t.Helper()
	root, err := bt.pager.ReadPage(bt.RootPageID)
	if err != nil {
		t.Fatalf("ReadPage(root): %v", err)
	}
	if root.Data[btreeNodeTypeOff] == nodeTypeLeaf {
		return
	}
	assertSubtreeInvariant(t, bt, bt.RootPageID, true)
}

func assertSubtreeInvariant(t *testing.T, bt *BTree, pageID uint32, isRoot bool) {
	t.Helper()
	page, err := bt.pager.ReadPage(pageID)
	if err != nil {
		t.Fatalf("ReadPage(%d): %v", pageID, err)
	}
	if page.Data[btreeNodeTypeOff] == nodeTypeLeaf {
		if n := len(readLeafEntries(page)); !isRoot && n < minLeafEntries(bt.Order) {
			t.Errorf("leaf page %d has %d entries, below minimum %d", pageID, n, minLeafEntries(bt.Order))
		}
		return
	}
	node := readInternalNode(page)
	if n := len(node.keys); !isRoot && n < minInternalKeys(bt.Order) {
		t.Errorf("internal page %d has %d keys, below minimum %d", pageID, n, minInternalKeys(bt.Order))
	}
	for _, child := range node.children {
		assertSubtreeInvariant(t, bt, child, false)
	}
}

func TestBTreeRemoveRebalancesOnUnderflow(t *testing.T) {
	pager := newTestPager(t)
	bt, err := NewBTree(pager, KeyTypeInt, 4)
	if err != nil {
		t.Fatalf("NewBTree: %v", err)
	}

	const n = 500
	for i := int64(0); i < n; i++ {
		if err := bt.Insert(storage.Int(i), idFor(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	// Drop all but a handful of keys so leaves and internal nodes are
	// forced below their minimum repeatedly, exercising borrow, merge,
	// and root collapse.
	for i := int64(0); i < n-5; i++ {
		if err := bt.Remove(storage.Int(i), idFor(i)); err != nil {
			t.Fatalf("Remove(%d): %v", i, err)
		}
	}
	assertBTreeInvariant(t, bt)

	for i := int64(n - 5); i < n; i++ {
		got, err := bt.Lookup(storage.Int(i))
		if err != nil {
			t.Fatalf("Lookup(%d): %v", i, err)
		}
		if len(got) != 1 || got[0] != idFor(i) {
			t.Fatalf("Lookup(%d) = %v, want [%s]", i, got, idFor(i))
		}
	}
	all, err := bt.AllEntries()
	if err != nil {
		t.Fatalf("AllEntries: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("got %d surviving keys, want 5", len(all))
	}
}

func TestBTreeRemoveAllCollapsesToEmptyLeafRoot(t *testing.T) {
	pager := newTestPager(t)
	bt, err := NewBTree(pager, KeyTypeInt, 4)
	if err != nil {
		t.Fatalf("NewBTree: %v", err)
	}
	const n = 300
	for i := int64(0); i < n; i++ {
		if err := bt.Insert(storage.Int(i), idFor(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	for i := int64(0); i < n; i++ {
		if err := bt.Remove(storage.Int(i), idFor(i)); err != nil {
			t.Fatalf("Remove(%d): %v", i, err)
		}
	}
	root, err := pager.ReadPage(bt.RootPageID)
	if err != nil {
		t.Fatalf("ReadPage(root): %v", err)
	}
	if root.Data[btreeNodeTypeOff] != nodeTypeLeaf {
		t.Fatal("expected the root to collapse back to a leaf once every key is gone")
	}
	all, err := bt.AllEntries()
	if err != nil {
		t.Fatalf("AllEntries: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("got %d leftover keys, want 0", len(all))
	}
}
