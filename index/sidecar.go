package index

import (
	"encoding/binary"
	"fmt"

	"github.com/gqlstore/gqlstore/storage"
)

// sidecarKind tags which structure a sidecar file holds, written to its
// own metadata page independently of the table's (§3: "a metadata page
// {column name, index kind, key type}").
type sidecarKind byte

const (
	sidecarHash  sidecarKind = 1
	sidecarBTree sidecarKind = 2
)

type sidecarMeta struct {
	Column  string
	Kind    sidecarKind
	KeyType KeyType
}

func encodeSidecarMeta(m sidecarMeta) []byte {
	cb := []byte(m.Column)
	buf := make([]byte, 0, 4+len(cb))
	tmp := make([]byte, 2)
	binary.LittleEndian.PutUint16(tmp, uint16(len(cb)))
	buf = append(buf, tmp...)
	buf = append(buf, cb...)
	buf = append(buf, byte(m.Kind), byte(m.KeyType))
	return buf
}

func decodeSidecarMeta(data []byte) (sidecarMeta, error) {
	if len(data) < 2 {
		return sidecarMeta{}, fmt.Errorf("index: sidecar metadata too short")
	}
	n := int(binary.LittleEndian.Uint16(data))
	if len(data) < 2+n+2 {
		return sidecarMeta{}, fmt.Errorf("index: sidecar metadata truncated")
	}
	return sidecarMeta{
		Column:  string(data[2 : 2+n]),
		Kind:    sidecarKind(data[2+n]),
		KeyType: KeyType(data[2+n+1]),
	}, nil
}

func writeSidecarMeta(pager *storage.Pager, m sidecarMeta) error {
	return pager.SaveMetadata(encodeSidecarMeta(m))
}

func readSidecarMeta(pager *storage.Pager) (sidecarMeta, error) {
	raw, err := pager.ReadMetadata()
	if err != nil {
		return sidecarMeta{}, err
	}
	return decodeSidecarMeta(raw)
}
