// Package index implements the secondary B-tree index (C7, §4.6) and the
// primary hash index (C6, §4.6) over a table's pages, plus the manager
// that owns both (C8, §4.7). Node layout and the page-per-node,
// leaf-chaining split design are adapted from the teacher's string-keyed
// B+Tree, generalized here to typed keys and to record ids that
// accumulate under a single entry when duplicates occur.
package index

import (
	"encoding/binary"
	"sort"

	"github.com/gqlstore/gqlstore/storage"
)

const (
	btreeNodeTypeOff = storage.PageHeaderSize // 0=internal, 1=leaf
	btreeNumKeysOff  = btreeNodeTypeOff + 1
	btreeNextLeafOff = btreeNumKeysOff + 2
	leafDataOff      = btreeNextLeafOff + 4
	internalDataOff  = btreeNumKeysOff + 2

	nodeTypeInternal = byte(0)
	nodeTypeLeaf     = byte(1)

	maxLeafPayload     = storage.PageSize - leafDataOff
	maxInternalPayload = storage.PageSize - internalDataOff

	noNextLeaf = 0
)

// btreeEntry is one key and the record ids stored under it, in
// insertion order (duplicate keys never split across entries, §4.6).
type btreeEntry struct {
	Key  []byte
	RIDs []string
}

type internalNode struct {
	keys     [][]byte
	children []uint32 // len == len(keys)+1
}

// BTree is an order-preserving B+Tree over a single scalar column,
// backed by the Pager of its own sidecar file.
type BTree struct {
	RootPageID uint32
	KeyType    KeyType
	Order      int
	pager      *storage.Pager
}

// NewBTree allocates an empty B-tree (a single empty leaf root).
func NewBTree(pager *storage.Pager, kt KeyType, order int) (*BTree, error) {
	if order < 4 {
		order = 4
	}
	root, err := pager.AppendPage(storage.PageTypeIndex)
	if err != nil {
		return nil, err
	}
	live, err := pager.GetForWrite(root.PageID())
	if err != nil {
		return nil, err
	}
	live.Data[btreeNodeTypeOff] = nodeTypeLeaf
	binary.LittleEndian.PutUint16(live.Data[btreeNumKeysOff:], 0)
	binary.LittleEndian.PutUint32(live.Data[btreeNextLeafOff:], noNextLeaf)
	if err := pager.WritePage(live); err != nil {
		return nil, err
	}
	return &BTree{RootPageID: root.PageID(), KeyType: kt, Order: order, pager: pager}, nil
}

// OpenBTree reattaches to an existing tree given its root page.
func OpenBTree(pager *storage.Pager, rootPageID uint32, kt KeyType, order int) *BTree {
	if order < 4 {
		order = 4
	}
	return &BTree{RootPageID: rootPageID, KeyType: kt, Order: order, pager: pager}
}

// ---- node codec ----

func readLeafEntries(page *storage.Page) []btreeEntry {
	num := binary.LittleEndian.Uint16(page.Data[btreeNumKeysOff:])
	off := uint16(leafDataOff)
	entries := make([]btreeEntry, 0, num)
	for i := 0; i < int(num); i++ {
		if int(off)+2 > storage.PageSize {
			break
		}
		kl := binary.LittleEndian.Uint16(page.Data[off:])
		off += 2
		key := make([]byte, kl)
		copy(key, page.Data[off:off+kl])
		off += kl
		ridCount := binary.LittleEndian.Uint16(page.Data[off:])
		off += 2
		rids := make([]string, 0, ridCount)
		for j := 0; j < int(ridCount); j++ {
			rl := binary.LittleEndian.Uint16(page.Data[off:])
			off += 2
			rids = append(rids, string(page.Data[off:off+rl]))
			off += rl
		}
		entries = append(entries, btreeEntry{Key: key, RIDs: rids})
	}
	return entries
}

func readLeafNext(page *storage.Page) uint32 {
	return binary.LittleEndian.Uint32(page.Data[btreeNextLeafOff:])
}

func writeLeafNode(page *storage.Page, entries []btreeEntry, nextLeaf uint32) {
	page.Data[btreeNodeTypeOff] = nodeTypeLeaf
	binary.LittleEndian.PutUint16(page.Data[btreeNumKeysOff:], uint16(len(entries)))
	binary.LittleEndian.PutUint32(page.Data[btreeNextLeafOff:], nextLeaf)
	off := uint16(leafDataOff)
	for _, e := range entries {
		binary.LittleEndian.PutUint16(page.Data[off:], uint16(len(e.Key)))
		off += 2
		copy(page.Data[off:], e.Key)
		off += uint16(len(e.Key))
		binary.LittleEndian.PutUint16(page.Data[off:], uint16(len(e.RIDs)))
		off += 2
		for _, rid := range e.RIDs {
			rb := []byte(rid)
			binary.LittleEndian.PutUint16(page.Data[off:], uint16(len(rb)))
			off += 2
			copy(page.Data[off:], rb)
			off += uint16(len(rb))
		}
	}
}

func readInternalNode(page *storage.Page) internalNode {
	numKeys := binary.LittleEndian.Uint16(page.Data[btreeNumKeysOff:])
	off := uint16(internalDataOff)
	node := internalNode{
		keys:     make([][]byte, 0, numKeys),
		children: make([]uint32, 0, numKeys+1),
	}
	child0 := binary.LittleEndian.Uint32(page.Data[off:])
	off += 4
	node.children = append(node.children, child0)
	for i := 0; i < int(numKeys); i++ {
		kl := binary.LittleEndian.Uint16(page.Data[off:])
		off += 2
		key := make([]byte, kl)
		copy(key, page.Data[off:off+kl])
		off += kl
		child := binary.LittleEndian.Uint32(page.Data[off:])
		off += 4
		node.keys = append(node.keys, key)
		node.children = append(node.children, child)
	}
	return node
}

func writeInternalNode(page *storage.Page, node internalNode) {
	page.Data[btreeNodeTypeOff] = nodeTypeInternal
	binary.LittleEndian.PutUint16(page.Data[btreeNumKeysOff:], uint16(len(node.keys)))
	off := uint16(internalDataOff)
	binary.LittleEndian.PutUint32(page.Data[off:], node.children[0])
	off += 4
	for i, key := range node.keys {
		binary.LittleEndian.PutUint16(page.Data[off:], uint16(len(key)))
		off += 2
		copy(page.Data[off:], key)
		off += uint16(len(key))
		binary.LittleEndian.PutUint32(page.Data[off:], node.children[i+1])
		off += 4
	}
}

func leafEntriesSize(entries []btreeEntry) int {
	s := 0
	for _, e := range entries {
		s += 2 + len(e.Key) + 2
		for _, r := range e.RIDs {
			s += 2 + len(r)
		}
	}
	return s
}

func internalNodeSize(node internalNode) int {
	s := 4
	for _, k := range node.keys {
		s += 2 + len(k) + 4
	}
	return s
}

func keyCompare(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// ---- traversal ----

func (bt *BTree) findLeaf(key []byte) (*storage.Page, error) {
	pageID := bt.RootPageID
	for {
		page, err := bt.pager.ReadPage(pageID)
		if err != nil {
			return nil, err
		}
		if page.Data[btreeNodeTypeOff] == nodeTypeLeaf {
			return page, nil
		}
		node := readInternalNode(page)
		idx := sort.Search(len(node.keys), func(i int) bool {
			return keyCompare(node.keys[i], key) > 0
		})
		pageID = node.children[idx]
	}
}

func (bt *BTree) findLeftmostLeaf() (*storage.Page, error) {
	pageID := bt.RootPageID
	for {
		page, err := bt.pager.ReadPage(pageID)
		if err != nil {
			return nil, err
		}
		if page.Data[btreeNodeTypeOff] == nodeTypeLeaf {
			return page, nil
		}
		node := readInternalNode(page)
		pageID = node.children[0]
	}
}

// Lookup returns every record id stored under key, in insertion order.
func (bt *BTree) Lookup(key storage.Value) ([]string, error) {
	enc, err := EncodeKey(bt.KeyType, key)
	if err != nil {
		return nil, err
	}
	page, err := bt.findLeaf(enc)
	if err != nil {
		return nil, err
	}
	for {
		entries := readLeafEntries(page)
		for _, e := range entries {
			c := keyCompare(e.Key, enc)
			if c == 0 {
				return e.RIDs, nil
			}
			if c > 0 {
				return nil, nil
			}
		}
		next := readLeafNext(page)
		if next == noNextLeaf {
			break
		}
		if page, err = bt.pager.ReadPage(next); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// RangeScan returns record ids for keys within [min, max], honoring
// inclusive/exclusive bounds; a nil bound is unbounded on that side.
func (bt *BTree) RangeScan(min, max *storage.Value, minInclusive, maxInclusive bool) ([]string, error) {
	var encMin, encMax []byte
	var err error
	if min != nil {
		if encMin, err = EncodeKey(bt.KeyType, *min); err != nil {
			return nil, err
		}
	}
	if max != nil {
		if encMax, err = EncodeKey(bt.KeyType, *max); err != nil {
			return nil, err
		}
	}

	var page *storage.Page
	if encMin != nil {
		page, err = bt.findLeaf(encMin)
	} else {
		page, err = bt.findLeftmostLeaf()
	}
	if err != nil {
		return nil, err
	}

	var result []string
	for {
		entries := readLeafEntries(page)
		for _, e := range entries {
			if encMin != nil {
				c := keyCompare(e.Key, encMin)
				if c < 0 || (c == 0 && !minInclusive) {
					continue
				}
			}
			if encMax != nil {
				c := keyCompare(e.Key, encMax)
				if c > 0 || (c == 0 && !maxInclusive) {
					return result, nil
				}
			}
			result = append(result, e.RIDs...)
		}
		next := readLeafNext(page)
		if next == noNextLeaf {
			break
		}
		if page, err = bt.pager.ReadPage(next); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ---- insert ----

type splitResult struct {
	key       []byte
	newPageID uint32
}

// Insert records that rid now has the given key value.
func (bt *BTree) Insert(key storage.Value, rid string) error {
	enc, err := EncodeKey(bt.KeyType, key)
	if err != nil {
		return err
	}
	split, err := bt.insertRecursive(bt.RootPageID, enc, rid)
	if err != nil {
		return err
	}
	if split != nil {
		newRoot, err := bt.pager.AppendPage(storage.PageTypeIndex)
		if err != nil {
			return err
		}
		live, err := bt.pager.GetForWrite(newRoot.PageID())
		if err != nil {
			return err
		}
		writeInternalNode(live, internalNode{
			keys:     [][]byte{split.key},
			children: []uint32{bt.RootPageID, split.newPageID},
		})
		if err := bt.pager.WritePage(live); err != nil {
			return err
		}
		bt.RootPageID = newRoot.PageID()
	}
	return nil
}

func (bt *BTree) insertRecursive(pageID uint32, key []byte, rid string) (*splitResult, error) {
	page, err := bt.pager.GetForWrite(pageID)
	if err != nil {
		return nil, err
	}
	if page.Data[btreeNodeTypeOff] == nodeTypeLeaf {
		return bt.insertIntoLeaf(page, key, rid)
	}
	node := readInternalNode(page)
	childIdx := sort.Search(len(node.keys), func(i int) bool {
		return keyCompare(node.keys[i], key) > 0
	})
	childSplit, err := bt.insertRecursive(node.children[childIdx], key, rid)
	if err != nil {
		return nil, err
	}
	if childSplit == nil {
		return nil, nil
	}
	return bt.insertIntoInternal(page, node, childIdx, childSplit)
}

func (bt *BTree) insertIntoLeaf(page *storage.Page, key []byte, rid string) (*splitResult, error) {
	entries := readLeafEntries(page)
	nextLeaf := readLeafNext(page)

	pos := sort.Search(len(entries), func(i int) bool {
		return keyCompare(entries[i].Key, key) >= 0
	})
	if pos < len(entries) && keyCompare(entries[pos].Key, key) == 0 {
		entries[pos].RIDs = append(entries[pos].RIDs, rid)
	} else {
		entries = append(entries, btreeEntry{})
		copy(entries[pos+1:], entries[pos:])
		entries[pos] = btreeEntry{Key: key, RIDs: []string{rid}}
	}

	if leafEntriesSize(entries) <= maxLeafPayload {
		writeLeafNode(page, entries, nextLeaf)
		return nil, bt.pager.WritePage(page)
	}

	mid := len(entries) / 2
	left := make([]btreeEntry, mid)
	copy(left, entries[:mid])
	right := make([]btreeEntry, len(entries)-mid)
	copy(right, entries[mid:])

	newPage, err := bt.pager.AppendPage(storage.PageTypeIndex)
	if err != nil {
		return nil, err
	}
	newLive, err := bt.pager.GetForWrite(newPage.PageID())
	if err != nil {
		return nil, err
	}
	writeLeafNode(newLive, right, nextLeaf)
	if err := bt.pager.WritePage(newLive); err != nil {
		return nil, err
	}

	writeLeafNode(page, left, newPage.PageID())
	if err := bt.pager.WritePage(page); err != nil {
		return nil, err
	}

	return &splitResult{key: right[0].Key, newPageID: newPage.PageID()}, nil
}

func (bt *BTree) insertIntoInternal(page *storage.Page, node internalNode, childIdx int, split *splitResult) (*splitResult, error) {
	node.keys = append(node.keys, nil)
	copy(node.keys[childIdx+1:], node.keys[childIdx:])
	node.keys[childIdx] = split.key

	node.children = append(node.children, 0)
	copy(node.children[childIdx+2:], node.children[childIdx+1:])
	node.children[childIdx+1] = split.newPageID

	if internalNodeSize(node) <= maxInternalPayload {
		writeInternalNode(page, node)
		return nil, bt.pager.WritePage(page)
	}

	mid := len(node.keys) / 2
	pushUp := node.keys[mid]

	left := internalNode{keys: make([][]byte, mid), children: make([]uint32, mid+1)}
	copy(left.keys, node.keys[:mid])
	copy(left.children, node.children[:mid+1])

	right := internalNode{keys: make([][]byte, len(node.keys)-mid-1), children: make([]uint32, len(node.children)-mid-1)}
	copy(right.keys, node.keys[mid+1:])
	copy(right.children, node.children[mid+1:])

	newPage, err := bt.pager.AppendPage(storage.PageTypeIndex)
	if err != nil {
		return nil, err
	}
	newLive, err := bt.pager.GetForWrite(newPage.PageID())
	if err != nil {
		return nil, err
	}
	writeInternalNode(newLive, right)
	if err := bt.pager.WritePage(newLive); err != nil {
		return nil, err
	}

	writeInternalNode(page, left)
	if err := bt.pager.WritePage(page); err != nil {
		return nil, err
	}

	return &splitResult{key: pushUp, newPageID: newPage.PageID()}, nil
}

// ---- remove ----

// minLeafEntries and minInternalKeys implement §3's "every non-root
// node has between ⌈m/2⌉ and m keys", using the tree's Order as m. The
// root is exempt: it may be a leaf with fewer entries, or an internal
// node with as little as one key, without being underflowed.
func minLeafEntries(order int) int {
	return (order + 1) / 2
}

func minInternalKeys(order int) int {
	min := (order+1)/2 - 1
	if min < 1 {
		min = 1
	}
	return min
}

// Remove drops rid from the entry for key, then rebalances: a node that
// falls below the minimum borrows a key from an adjacent sibling that
// can spare one, else merges into a sibling and drops the separator out
// of the parent, recursing up and finally collapsing the root if it was
// left with a single child (§4.6).
func (bt *BTree) Remove(key storage.Value, rid string) error {
	enc, err := EncodeKey(bt.KeyType, key)
	if err != nil {
		return err
	}
	if _, err := bt.removeRecursive(bt.RootPageID, enc, rid); err != nil {
		return err
	}
	return bt.collapseRoot()
}

// removeRecursive removes rid from key's entry within the subtree
// rooted at pageID and reports whether pageID is now underflowed, so
// the caller one level up can fix it before checking itself.
func (bt *BTree) removeRecursive(pageID uint32, key []byte, rid string) (bool, error) {
	page, err := bt.pager.GetForWrite(pageID)
	if err != nil {
		return false, err
	}
	if page.Data[btreeNodeTypeOff] == nodeTypeLeaf {
		return bt.removeFromLeaf(page, key, rid)
	}

	node := readInternalNode(page)
	childIdx := sort.Search(len(node.keys), func(i int) bool {
		return keyCompare(node.keys[i], key) > 0
	})
	underflow, err := bt.removeRecursive(node.children[childIdx], key, rid)
	if err != nil {
		return false, err
	}
	if underflow {
		if err := bt.fixChild(&node, childIdx); err != nil {
			return false, err
		}
	}
	writeInternalNode(page, node)
	if err := bt.pager.WritePage(page); err != nil {
		return false, err
	}
	return len(node.keys) < minInternalKeys(bt.Order), nil
}

func (bt *BTree) removeFromLeaf(page *storage.Page, key []byte, rid string) (bool, error) {
	entries := readLeafEntries(page)
	nextLeaf := readLeafNext(page)
	for i, e := range entries {
		if keyCompare(e.Key, key) != 0 {
			continue
		}
		kept := e.RIDs[:0]
		for _, r := range e.RIDs {
			if r != rid {
				kept = append(kept, r)
			}
		}
		if len(kept) == 0 {
			entries = append(entries[:i], entries[i+1:]...)
		} else {
			entries[i].RIDs = kept
		}
		break
	}
	writeLeafNode(page, entries, nextLeaf)
	if err := bt.pager.WritePage(page); err != nil {
		return false, err
	}
	return len(entries) < minLeafEntries(bt.Order), nil
}

// fixChild restores node.children[childIdx] to the minimum, preferring
// to borrow from whichever adjacent sibling has a spare key over
// merging. Siblings are only peeked at with ReadPage until the chosen
// fixup is known, since every GetForWrite must be paired with exactly
// one WritePage.
func (bt *BTree) fixChild(node *internalNode, childIdx int) error {
	childID := node.children[childIdx]
	childPeek, err := bt.pager.ReadPage(childID)
	if err != nil {
		return err
	}
	leaf := childPeek.Data[btreeNodeTypeOff] == nodeTypeLeaf

	hasSpare := func(pageID uint32) (bool, error) {
		peek, err := bt.pager.ReadPage(pageID)
		if err != nil {
			return false, err
		}
		if leaf {
			return len(readLeafEntries(peek)) > minLeafEntries(bt.Order), nil
		}
		return len(readInternalNode(peek).keys) > minInternalKeys(bt.Order), nil
	}

	if childIdx > 0 {
		spare, err := hasSpare(node.children[childIdx-1])
		if err != nil {
			return err
		}
		if spare {
			left, err := bt.pager.GetForWrite(node.children[childIdx-1])
			if err != nil {
				return err
			}
			child, err := bt.pager.GetForWrite(childID)
			if err != nil {
				return err
			}
			if leaf {
				return bt.borrowLeafLeft(node, childIdx, left, child)
			}
			return bt.borrowInternalLeft(node, childIdx, left, child)
		}
	}

	if childIdx < len(node.children)-1 {
		spare, err := hasSpare(node.children[childIdx+1])
		if err != nil {
			return err
		}
		if spare {
			child, err := bt.pager.GetForWrite(childID)
			if err != nil {
				return err
			}
			right, err := bt.pager.GetForWrite(node.children[childIdx+1])
			if err != nil {
				return err
			}
			if leaf {
				return bt.borrowLeafRight(node, childIdx, child, right)
			}
			return bt.borrowInternalRight(node, childIdx, child, right)
		}
	}

	// Neither sibling can spare a key: merge with whichever one exists.
	// The merged-away page is abandoned rather than reclaimed: nothing
	// in the sidecar's pager reuses it.
	if childIdx > 0 {
		left, err := bt.pager.GetForWrite(node.children[childIdx-1])
		if err != nil {
			return err
		}
		child, err := bt.pager.GetForWrite(childID)
		if err != nil {
			return err
		}
		if leaf {
			return bt.mergeLeaves(node, childIdx-1, left, child)
		}
		return bt.mergeInternal(node, childIdx-1, left, child)
	}
	child, err := bt.pager.GetForWrite(childID)
	if err != nil {
		return err
	}
	right, err := bt.pager.GetForWrite(node.children[childIdx+1])
	if err != nil {
		return err
	}
	if leaf {
		return bt.mergeLeaves(node, childIdx, child, right)
	}
	return bt.mergeInternal(node, childIdx, child, right)
}

// borrowLeafLeft moves the left sibling's last entry onto the front of
// child, updating the separator key to match.
func (bt *BTree) borrowLeafLeft(node *internalNode, childIdx int, left, child *storage.Page) error {
	leftEntries := readLeafEntries(left)
	moved := leftEntries[len(leftEntries)-1]
	leftEntries = leftEntries[:len(leftEntries)-1]

	childEntries := append([]btreeEntry{moved}, readLeafEntries(child)...)

	writeLeafNode(left, leftEntries, readLeafNext(left))
	writeLeafNode(child, childEntries, readLeafNext(child))
	node.keys[childIdx-1] = moved.Key

	if err := bt.pager.WritePage(left); err != nil {
		return err
	}
	return bt.pager.WritePage(child)
}

// borrowLeafRight moves the right sibling's first entry onto the end of
// child, updating the separator key to match.
func (bt *BTree) borrowLeafRight(node *internalNode, childIdx int, child, right *storage.Page) error {
	rightEntries := readLeafEntries(right)
	moved := rightEntries[0]
	rightEntries = rightEntries[1:]

	childEntries := append(readLeafEntries(child), moved)

	writeLeafNode(child, childEntries, readLeafNext(child))
	writeLeafNode(right, rightEntries, readLeafNext(right))
	node.keys[childIdx] = rightEntries[0].Key

	if err := bt.pager.WritePage(child); err != nil {
		return err
	}
	return bt.pager.WritePage(right)
}

// mergeLeaves folds right (children[idx+1]) into left (children[idx]),
// relinks the leaf chain, and drops the separator out of node.
func (bt *BTree) mergeLeaves(node *internalNode, idx int, left, right *storage.Page) error {
	merged := append(readLeafEntries(left), readLeafEntries(right)...)
	writeLeafNode(left, merged, readLeafNext(right))
	if err := bt.pager.WritePage(left); err != nil {
		return err
	}
	node.keys = append(node.keys[:idx], node.keys[idx+1:]...)
	node.children = append(node.children[:idx+1], node.children[idx+2:]...)
	return nil
}

// borrowInternalLeft rotates the left sibling's last key/child through
// the parent separator into the front of child.
func (bt *BTree) borrowInternalLeft(node *internalNode, childIdx int, left, child *storage.Page) error {
	leftNode := readInternalNode(left)
	borrowedKey := leftNode.keys[len(leftNode.keys)-1]
	borrowedChild := leftNode.children[len(leftNode.children)-1]
	leftNode.keys = leftNode.keys[:len(leftNode.keys)-1]
	leftNode.children = leftNode.children[:len(leftNode.children)-1]

	childNode := readInternalNode(child)
	childNode.keys = append([][]byte{node.keys[childIdx-1]}, childNode.keys...)
	childNode.children = append([]uint32{borrowedChild}, childNode.children...)

	node.keys[childIdx-1] = borrowedKey

	writeInternalNode(left, leftNode)
	writeInternalNode(child, childNode)
	if err := bt.pager.WritePage(left); err != nil {
		return err
	}
	return bt.pager.WritePage(child)
}

// borrowInternalRight rotates the right sibling's first key/child
// through the parent separator into the end of child.
func (bt *BTree) borrowInternalRight(node *internalNode, childIdx int, child, right *storage.Page) error {
	rightNode := readInternalNode(right)
	borrowedKey := rightNode.keys[0]
	borrowedChild := rightNode.children[0]
	rightNode.keys = rightNode.keys[1:]
	rightNode.children = rightNode.children[1:]

	childNode := readInternalNode(child)
	childNode.keys = append(childNode.keys, node.keys[childIdx])
	childNode.children = append(childNode.children, borrowedChild)

	node.keys[childIdx] = borrowedKey

	writeInternalNode(child, childNode)
	writeInternalNode(right, rightNode)
	if err := bt.pager.WritePage(child); err != nil {
		return err
	}
	return bt.pager.WritePage(right)
}

// mergeInternal folds the parent separator and right's keys/children
// into left, and drops the separator out of node.
func (bt *BTree) mergeInternal(node *internalNode, idx int, left, right *storage.Page) error {
	leftNode := readInternalNode(left)
	rightNode := readInternalNode(right)

	leftNode.keys = append(leftNode.keys, node.keys[idx])
	leftNode.keys = append(leftNode.keys, rightNode.keys...)
	leftNode.children = append(leftNode.children, rightNode.children...)

	writeInternalNode(left, leftNode)
	if err := bt.pager.WritePage(left); err != nil {
		return err
	}
	node.keys = append(node.keys[:idx], node.keys[idx+1:]...)
	node.children = append(node.children[:idx+1], node.children[idx+2:]...)
	return nil
}

// collapseRoot shortens the tree by one level when a merge left the
// root an internal node with a single child (§4.6).
func (bt *BTree) collapseRoot() error {
	page, err := bt.pager.ReadPage(bt.RootPageID)
	if err != nil {
		return err
	}
	if page.Data[btreeNodeTypeOff] == nodeTypeLeaf {
		return nil
	}
	node := readInternalNode(page)
	if len(node.keys) > 0 {
		return nil
	}
	bt.RootPageID = node.children[0]
	return nil
}

// AllEntries walks every leaf, for rebuild-from-scan and tests.
func (bt *BTree) AllEntries() (map[string][]string, error) {
	page, err := bt.findLeftmostLeaf()
	if err != nil {
		return nil, err
	}
	result := make(map[string][]string)
	for {
		for _, e := range readLeafEntries(page) {
			result[string(e.Key)] = append(result[string(e.Key)], e.RIDs...)
		}
		next := readLeafNext(page)
		if next == noNextLeaf {
			break
		}
		if page, err = bt.pager.ReadPage(next); err != nil {
			return nil, err
		}
	}
	return result, nil
}
