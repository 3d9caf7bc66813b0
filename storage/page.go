package storage

import (
	"encoding/binary"
)

// PageSize is the fixed size of every page on disk, 4 KiB per §6.
const PageSize = 4096

// PageType identifies the role of a page within a table file.
type PageType byte

const (
	PageTypeMeta  PageType = 1 // page 0: table metadata
	PageTypeData  PageType = 2 // pages >= 1: records
	PageTypeIndex PageType = 3 // pages in a sidecar index file
)

// PageHeader is the 16-byte header common to every page.
// Layout:
//
//	[0]     PageType
//	[1-4]   PageID (uint32)
//	[5-6]   NumRecords (uint16) — data pages only
//	[7-8]   FreeSpaceOffset (uint16) — first free byte in the page
//	[9-15]  reserved
const PageHeaderSize = 16

// Page is a raw 4 KiB page, read from or about to be written to disk.
type Page struct {
	Data [PageSize]byte
}

// NewPage creates an empty page of the given type and id.
func NewPage(ptype PageType, pageID uint32) *Page {
	p := &Page{}
	p.Data[0] = byte(ptype)
	binary.LittleEndian.PutUint32(p.Data[1:5], pageID)
	binary.LittleEndian.PutUint16(p.Data[7:9], PageHeaderSize)
	return p
}

func (p *Page) Type() PageType { return PageType(p.Data[0]) }

func (p *Page) PageID() uint32 { return binary.LittleEndian.Uint32(p.Data[1:5]) }

func (p *Page) NumRecords() uint16 { return binary.LittleEndian.Uint16(p.Data[5:7]) }

func (p *Page) SetNumRecords(n uint16) { binary.LittleEndian.PutUint16(p.Data[5:7], n) }

func (p *Page) FreeSpaceOffset() uint16 { return binary.LittleEndian.Uint16(p.Data[7:9]) }

func (p *Page) SetFreeSpaceOffset(off uint16) { binary.LittleEndian.PutUint16(p.Data[7:9], off) }

func (p *Page) FreeSpace() int { return PageSize - int(p.FreeSpaceOffset()) }

// Slot flags. A record's logical identity is its "id" field (a string);
// unlike a synthetic numeric record id, it is stored inline in the slot.
const (
	SlotFlagActive     byte = 0x00
	SlotFlagDeleted    byte = 0x01
	SlotFlagCompressed byte = 0x02 // data is snappy-compressed (§3 supplement)
)

// RecordSlotHeaderSize is the fixed portion of a slot header:
// [idLen:uint16][dataLen:uint16][flags:byte], followed by id bytes then data bytes.
const RecordSlotHeaderSize = 2 + 2 + 1

// AppendRecord appends a record slot. Returns false if there is not enough
// free space left in the page; the caller must then allocate another page.
func (p *Page) AppendRecord(id string, data []byte, flag byte) bool {
	idBytes := []byte(id)
	needed := RecordSlotHeaderSize + len(idBytes) + len(data)
	if p.FreeSpace() < needed {
		return false
	}
	off := p.FreeSpaceOffset()
	binary.LittleEndian.PutUint16(p.Data[off:], uint16(len(idBytes)))
	binary.LittleEndian.PutUint16(p.Data[off+2:], uint16(len(data)))
	p.Data[off+4] = flag
	copy(p.Data[off+5:], idBytes)
	copy(p.Data[off+5+uint16(len(idBytes)):], data)

	p.SetFreeSpaceOffset(off + uint16(needed))
	p.SetNumRecords(p.NumRecords() + 1)
	return true
}

// RecordSlot is a record read back from a page.
type RecordSlot struct {
	ID         string
	Data       []byte
	Deleted    bool
	Compressed bool
	Offset     uint16 // offset of this slot, for in-place update/delete
}

// ReadRecords reads every slot in the page, including deleted ones
// (the caller filters; select-all and rebuild both need to see tombstones).
func (p *Page) ReadRecords() []RecordSlot {
	slots := make([]RecordSlot, 0, p.NumRecords())
	off := uint16(PageHeaderSize)
	end := p.FreeSpaceOffset()

	for off < end {
		if off+RecordSlotHeaderSize > end {
			break
		}
		idLen := binary.LittleEndian.Uint16(p.Data[off:])
		dataLen := binary.LittleEndian.Uint16(p.Data[off+2:])
		flags := p.Data[off+4]

		idStart := off + RecordSlotHeaderSize
		dataStart := idStart + idLen
		if int(dataStart)+int(dataLen) > PageSize {
			break
		}
		id := string(p.Data[idStart:dataStart])
		dataCopy := make([]byte, dataLen)
		copy(dataCopy, p.Data[dataStart:dataStart+dataLen])

		slots = append(slots, RecordSlot{
			ID:         id,
			Data:       dataCopy,
			Deleted:    flags == SlotFlagDeleted,
			Compressed: flags == SlotFlagCompressed,
			Offset:     off,
		})
		off = dataStart + dataLen
	}
	return slots
}

// MarkDeleted tombstones the slot at the given offset in place.
func (p *Page) MarkDeleted(slotOffset uint16) {
	p.Data[slotOffset+4] = SlotFlagDeleted
}

// SlotFlags returns the raw flag byte of the slot at the given offset.
func (p *Page) SlotFlags(slotOffset uint16) byte {
	return p.Data[slotOffset+4]
}

// Compact rewrites the page in place keeping only the given slots, in
// order, discarding tombstones. Used by overwrite-driven updates and by
// delete's "compact on overwrite" policy (§9 open question, resolved).
func (p *Page) Compact(keep []RecordSlot) {
	ptype := p.Type()
	pageID := p.PageID()
	*p = *NewPage(ptype, pageID)
	for _, s := range keep {
		flag := SlotFlagActive
		if s.Compressed {
			flag = SlotFlagCompressed
		}
		p.AppendRecord(s.ID, s.Data, flag)
	}
}
