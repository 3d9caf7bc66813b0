// Package schema derives table metadata from GraphQL SDL (C4/C10, §4.4,
// §4.9) and persists/loads it from a table's metadata page.
package schema

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gqlstore/gqlstore/gqlerr"
	"github.com/gqlstore/gqlstore/storage"
)

// RelationKind classifies how a column relates a record to another table.
type RelationKind byte

const (
	RelationNone RelationKind = iota
	RelationOneToOne
	RelationOneToMany
	RelationManyToOne
	RelationManyToMany
)

func (k RelationKind) String() string {
	switch k {
	case RelationOneToOne:
		return "OneToOne"
	case RelationOneToMany:
		return "OneToMany"
	case RelationManyToOne:
		return "ManyToOne"
	case RelationManyToMany:
		return "ManyToMany"
	default:
		return "None"
	}
}

// Column describes one field of a table's records (§4.4).
type Column struct {
	Name          string
	Kind          storage.ValueKind
	IsList        bool
	Nullable      bool
	RelatedTable  string // empty if not a relationship column
	ForeignKey    string // empty if this column IS the foreign key itself
	Relation      RelationKind
}

// StorageKey is the record field this column is actually read from and
// written to. A relation field's GraphQL name (e.g. "author", "posts")
// is a logical name the query layer exposes; the value itself lives
// under the synthesized foreign-key field (e.g. "authorId", "postsIds")
// when ForeignKey is set, per §4.9. OneToMany columns and every scalar
// column have no ForeignKey, so StorageKey is just Name for them.
func (c Column) StorageKey() string {
	if c.ForeignKey != "" {
		return c.ForeignKey
	}
	return c.Name
}

// TableMetadata is everything the engine needs to interpret a table's
// pages without re-parsing its SDL (§4.4, persisted on page 0).
type TableMetadata struct {
	Name         string
	RecordCount  uint64
	PageCount    uint32
	CreatedAt    time.Time
	Columns      []Column
	SourceSDL    string

	// These two fields mirror index.Directory but are stored here too, so
	// the table's single metadata page is the one source of truth for
	// "how do I interpret my own file" (§4.6: indexes reopen without a
	// page scan unless the sidecar is itself corrupt).
	PrimaryIndexRootPageID uint32
	SecondaryIndexes       []IndexDescriptor
}

// IndexDescriptor is metadata.TableMetadata's copy of an index.Descriptor,
// kept free of an import cycle (index imports storage, schema imports
// storage; table wires schema's descriptors into index.Directory).
type IndexDescriptor struct {
	Column     string
	IsBTree    bool
	KeyKind    storage.ValueKind
	RootPageID uint32
}

// FieldOrder returns the column names in declaration order, the order
// the schema-present record codec (§4.4) encodes by.
func (m *TableMetadata) FieldOrder() []string {
	out := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by name.
func (m *TableMetadata) Column(name string) (Column, bool) {
	for _, c := range m.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ---------- binary codec (page 0) ----------

// Encode serializes the metadata into the form SaveMetadata expects.
// Layout: recordCount(8) pageCount(4) createdAtUnix(8) nameLen(2) name
// numColumns(2) [per column: nameLen(2) name kind(1) isList(1)
// nullable(1) relatedLen(2) related fkLen(2) fk relation(1)]
// primaryRoot(4) numSecondary(2) [per secondary: colLen(2) col isBTree(1)
// keyKind(1) root(4)] sdlLen(4) sdl.
func (m *TableMetadata) Encode() ([]byte, error) {
	buf := make([]byte, 0, 512)
	tmp8 := make([]byte, 8)

	binary.LittleEndian.PutUint64(tmp8, m.RecordCount)
	buf = append(buf, tmp8...)

	tmp4 := make([]byte, 4)
	binary.LittleEndian.PutUint32(tmp4, m.PageCount)
	buf = append(buf, tmp4...)

	binary.LittleEndian.PutUint64(tmp8, uint64(m.CreatedAt.Unix()))
	buf = append(buf, tmp8...)

	buf = appendString(buf, m.Name)

	tmp2 := make([]byte, 2)
	binary.LittleEndian.PutUint16(tmp2, uint16(len(m.Columns)))
	buf = append(buf, tmp2...)
	for _, c := range m.Columns {
		buf = appendString(buf, c.Name)
		buf = append(buf, byte(c.Kind))
		buf = append(buf, boolByte(c.IsList), boolByte(c.Nullable))
		buf = appendString(buf, c.RelatedTable)
		buf = appendString(buf, c.ForeignKey)
		buf = append(buf, byte(c.Relation))
	}

	binary.LittleEndian.PutUint32(tmp4, m.PrimaryIndexRootPageID)
	buf = append(buf, tmp4...)

	binary.LittleEndian.PutUint16(tmp2, uint16(len(m.SecondaryIndexes)))
	buf = append(buf, tmp2...)
	for _, s := range m.SecondaryIndexes {
		buf = appendString(buf, s.Column)
		buf = append(buf, boolByte(s.IsBTree), byte(s.KeyKind))
		binary.LittleEndian.PutUint32(tmp4, s.RootPageID)
		buf = append(buf, tmp4...)
	}

	sdlBytes := []byte(m.SourceSDL)
	binary.LittleEndian.PutUint32(tmp4, uint32(len(sdlBytes)))
	buf = append(buf, tmp4...)
	buf = append(buf, sdlBytes...)

	if len(buf) > storage.PageSize-storage.PageHeaderSize {
		return nil, gqlerr.New(gqlerr.KindMetadataTooLarge, "schema.Encode",
			fmt.Errorf("metadata is %d bytes, page holds %d", len(buf), storage.PageSize-storage.PageHeaderSize))
	}
	return buf, nil
}

// Decode reverses Encode.
func Decode(data []byte) (*TableMetadata, error) {
	r := &reader{data: data}
	m := &TableMetadata{}

	m.RecordCount = r.uint64()
	m.PageCount = r.uint32()
	m.CreatedAt = time.Unix(int64(r.uint64()), 0).UTC()
	m.Name = r.string()

	numCols := int(r.uint16())
	m.Columns = make([]Column, numCols)
	for i := 0; i < numCols; i++ {
		c := Column{}
		c.Name = r.string()
		c.Kind = storage.ValueKind(r.byte())
		c.IsList = r.byte() != 0
		c.Nullable = r.byte() != 0
		c.RelatedTable = r.string()
		c.ForeignKey = r.string()
		c.Relation = RelationKind(r.byte())
		m.Columns[i] = c
	}

	m.PrimaryIndexRootPageID = r.uint32()
	numSec := int(r.uint16())
	m.SecondaryIndexes = make([]IndexDescriptor, numSec)
	for i := 0; i < numSec; i++ {
		d := IndexDescriptor{}
		d.Column = r.string()
		d.IsBTree = r.byte() != 0
		d.KeyKind = storage.ValueKind(r.byte())
		d.RootPageID = r.uint32()
		m.SecondaryIndexes[i] = d
	}

	sdlLen := int(r.uint32())
	m.SourceSDL = string(r.bytes(sdlLen))

	if r.err != nil {
		return nil, gqlerr.New(gqlerr.KindCorruptPage, "schema.Decode", r.err)
	}
	return m, nil
}

func appendString(buf []byte, s string) []byte {
	b := []byte(s)
	tmp := make([]byte, 2)
	binary.LittleEndian.PutUint16(tmp, uint16(len(b)))
	buf = append(buf, tmp...)
	return append(buf, b...)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// reader is a small cursor over metadata bytes that records the first
// error it hits and turns every subsequent read into a no-op, so Decode
// can be written as a straight-line sequence of field reads.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.off+n > len(r.data) {
		r.err = fmt.Errorf("schema: truncated metadata at offset %d (need %d, have %d)", r.off, n, len(r.data)-r.off)
		return false
	}
	return true
}

func (r *reader) byte() byte {
	if !r.need(1) {
		return 0
	}
	b := r.data[r.off]
	r.off++
	return b
}

func (r *reader) uint16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *reader) uint32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *reader) uint64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v
}

func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) string() string {
	n := int(r.uint16())
	return string(r.bytes(n))
}
