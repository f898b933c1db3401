package sqpack

import (
	"fmt"
	"os"
)

// index is a parsed index1 hash table.
type index struct {
	path    string
	entries map[uint64]uint32
}

// entry is one decoded hash table value.
type entry struct {
	synonym bool
	dat     uint8
	offset  int64
}

func decodeEntry(data uint32) entry {
	return entry{
		synonym: data&1 == 1,
		dat:     uint8((data & 0b1110) >> 1),
		offset:  int64(data&^0xf) * 8,
	}
}

// EncodeEntry packs a dat id and 128-byte aligned offset into an index value.
func EncodeEntry(dat uint8, offset int64, synonym bool) uint32 {
	v := uint32(offset/8) | uint32(dat&0b111)<<1
	if synonym {
		v |= 1
	}
	return v
}

func loadIndex(path string) (*index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	hdr, err := checkHeader(data, ContainerIndex)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(data) < hdr+16 {
		return nil, fmt.Errorf("%s: %w: short index header", path, ErrCorrupt)
	}

	ih := data[hdr:]
	offset := int(le.Uint32(ih[8:]))
	size := int(le.Uint32(ih[12:]))
	if offset < 0 || size < 0 || offset+size > len(data) || size%IndexEntrySize != 0 {
		return nil, fmt.Errorf("%s: %w: hash table at %d+%d", path, ErrCorrupt, offset, size)
	}

	idx := &index{
		path:    path,
		entries: make(map[uint64]uint32, size/IndexEntrySize),
	}
	table := data[offset : offset+size]
	for i := 0; i < len(table); i += IndexEntrySize {
		idx.entries[le.Uint64(table[i:])] = le.Uint32(table[i+8:])
	}
	return idx, nil
}

func (i *index) lookup(hash uint64) (entry, bool) {
	v, ok := i.entries[hash]
	if !ok {
		return entry{}, false
	}
	return decodeEntry(v), true
}
