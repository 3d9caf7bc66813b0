package index

import (
	"encoding/binary"

	"github.com/gqlstore/gqlstore/storage"
)

const (
	hashChainNextOff = storage.PageHeaderSize // uint32
	hashChainCountOff = hashChainNextOff + 4  // uint16
	hashChainDataOff  = hashChainCountOff + 2

	maxHashChainPayload = storage.PageSize - hashChainDataOff
)

// HashIndex is the primary-key index (C6, §4.6): id -> data page id. It
// is kept in memory for O(1) point lookups and persisted as a chain of
// pages the way the B-tree persists leaves, via Save/LoadHashIndex.
type HashIndex struct {
	entries map[string]uint32
}

// NewHashIndex returns an empty primary index.
func NewHashIndex() *HashIndex {
	return &HashIndex{entries: make(map[string]uint32)}
}

func (h *HashIndex) Put(id string, pageID uint32) { h.entries[id] = pageID }

func (h *HashIndex) Get(id string) (uint32, bool) {
	pid, ok := h.entries[id]
	return pid, ok
}

func (h *HashIndex) Remove(id string) { delete(h.entries, id) }

func (h *HashIndex) Len() int { return len(h.entries) }

// All returns every (id, pageID) pair; order is unspecified.
func (h *HashIndex) All() map[string]uint32 {
	out := make(map[string]uint32, len(h.entries))
	for k, v := range h.entries {
		out[k] = v
	}
	return out
}

// Save writes the full map as a freshly allocated page chain and returns
// its head page id, to be recorded in the table's metadata.
func (h *HashIndex) Save(pager *storage.Pager) (uint32, error) {
	type kv struct {
		id  string
		pid uint32
	}
	all := make([]kv, 0, len(h.entries))
	for id, pid := range h.entries {
		all = append(all, kv{id, pid})
	}

	// Group entries into page-sized chunks first, then allocate and
	// link pages back-to-front so each page's "next" pointer is known
	// at write time.
	var chunks [][]kv
	cur := []kv{}
	curSize := 0
	for _, e := range all {
		recSize := 2 + len(e.id) + 4
		if curSize+recSize > maxHashChainPayload && len(cur) > 0 {
			chunks = append(chunks, cur)
			cur = nil
			curSize = 0
		}
		cur = append(cur, e)
		curSize += recSize
	}
	chunks = append(chunks, cur) // always at least one page, even if empty

	pageIDs := make([]uint32, len(chunks))
	for i := range chunks {
		page, err := pager.AppendPage(storage.PageTypeIndex)
		if err != nil {
			return 0, err
		}
		pageIDs[i] = page.PageID()
	}

	for i, chunk := range chunks {
		live, err := pager.GetForWrite(pageIDs[i])
		if err != nil {
			return 0, err
		}
		var next uint32
		if i+1 < len(pageIDs) {
			next = pageIDs[i+1]
		}
		binary.LittleEndian.PutUint32(live.Data[hashChainNextOff:], next)
		binary.LittleEndian.PutUint16(live.Data[hashChainCountOff:], uint16(len(chunk)))
		off := hashChainDataOff
		for _, e := range chunk {
			binary.LittleEndian.PutUint16(live.Data[off:], uint16(len(e.id)))
			off += 2
			copy(live.Data[off:], e.id)
			off += len(e.id)
			binary.LittleEndian.PutUint32(live.Data[off:], e.pid)
			off += 4
		}
		if err := pager.WritePage(live); err != nil {
			return 0, err
		}
	}
	return pageIDs[0], nil
}

// LoadHashIndex rebuilds a HashIndex from the page chain at rootPageID.
func LoadHashIndex(pager *storage.Pager, rootPageID uint32) (*HashIndex, error) {
	h := NewHashIndex()
	pageID := rootPageID
	for {
		page, err := pager.ReadPage(pageID)
		if err != nil {
			return nil, err
		}
		count := binary.LittleEndian.Uint16(page.Data[hashChainCountOff:])
		off := hashChainDataOff
		for i := 0; i < int(count); i++ {
			idLen := binary.LittleEndian.Uint16(page.Data[off:])
			off += 2
			id := string(page.Data[off : off+int(idLen)])
			off += int(idLen)
			pid := binary.LittleEndian.Uint32(page.Data[off:])
			off += 4
			h.Put(id, pid)
		}
		next := binary.LittleEndian.Uint32(page.Data[hashChainNextOff:])
		if next == 0 {
			break
		}
		pageID = next
	}
	return h, nil
}
