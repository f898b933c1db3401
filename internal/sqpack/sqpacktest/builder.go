// Package sqpacktest writes small synthetic SqPack installs for tests.
//
//	dir := t.TempDir()
//	err := sqpacktest.New().
//	    AddFile("exd/root.exl", []byte("EXLT,2\n")).
//	    AddEmpty("exd/gone.exh").
//	    Write(dir)
//
//	r, _ := sqpack.Open(dir)
package sqpacktest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/handiism/xivextract/internal/sqpack"
	"github.com/klauspost/compress/flate"
)

var le = binary.LittleEndian

type kind int

const (
	kindStandard kind = iota
	kindStored
	kindTexture
	kindEmpty
	kindModel
	kindSynonym
)

type file struct {
	path   string
	kind   kind
	data   []byte
	header []byte
	lods   [][]byte
}

// Builder accumulates files and writes them as one dat per index family.
type Builder struct {
	files []file
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// AddFile adds a standard entry with deflate-compressed blocks.
func (b *Builder) AddFile(path string, data []byte) *Builder {
	b.files = append(b.files, file{path: path, kind: kindStandard, data: data})
	return b
}

// AddStored adds a standard entry whose blocks are stored uncompressed.
func (b *Builder) AddStored(path string, data []byte) *Builder {
	b.files = append(b.files, file{path: path, kind: kindStored, data: data})
	return b
}

// AddTexture adds a texture entry: an uncompressed header followed by one
// compressed stream per mip level.
func (b *Builder) AddTexture(path string, header []byte, lods ...[]byte) *Builder {
	b.files = append(b.files, file{path: path, kind: kindTexture, header: header, lods: lods})
	return b
}

// AddEmpty adds a placeholder entry with no content.
func (b *Builder) AddEmpty(path string) *Builder {
	b.files = append(b.files, file{path: path, kind: kindEmpty})
	return b
}

// AddModel adds a model entry header with no blocks.
func (b *Builder) AddModel(path string) *Builder {
	b.files = append(b.files, file{path: path, kind: kindModel})
	return b
}

// AddSynonym adds an index entry flagged as a hash synonym.
func (b *Builder) AddSynonym(path string) *Builder {
	b.files = append(b.files, file{path: path, kind: kindSynonym})
	return b
}

// TextureBytes returns what a reader should rebuild for a texture entry.
func TextureBytes(header []byte, lods ...[]byte) []byte {
	out := append([]byte(nil), header...)
	for _, lod := range lods {
		out = append(out, lod...)
	}
	return out
}

type family struct {
	loc     sqpack.Location
	dat     bytes.Buffer
	entries map[uint64]uint32
}

// Write lays the install out under dir/game/sqpack. The ffxiv repository
// directory is always created so that an empty Builder yields a valid
// install.
func (b *Builder) Write(dir string) error {
	root := filepath.Join(dir, "game", "sqpack")
	if err := os.MkdirAll(filepath.Join(root, sqpack.DefaultRepository), 0755); err != nil {
		return err
	}

	families := make(map[sqpack.Location]*family)
	var order []sqpack.Location
	for _, f := range b.files {
		loc, err := sqpack.Locate(f.path)
		if err != nil {
			return err
		}
		hash, err := sqpack.Hash(f.path)
		if err != nil {
			return err
		}

		fam, ok := families[loc]
		if !ok {
			fam = &family{loc: loc, entries: make(map[uint64]uint32)}
			fam.dat.Write(header(sqpack.ContainerData))
			families[loc] = fam
			order = append(order, loc)
		}

		offset := int64(fam.dat.Len())
		if f.kind == kindSynonym {
			fam.entries[hash] = sqpack.EncodeEntry(0, offset, true)
			continue
		}
		blob, err := encode(f)
		if err != nil {
			return fmt.Errorf("%s: %w", f.path, err)
		}
		fam.dat.Write(blob)
		fam.entries[hash] = sqpack.EncodeEntry(0, offset, false)
	}

	for _, loc := range order {
		fam := families[loc]
		repoDir := filepath.Join(root, loc.Repository)
		if err := os.MkdirAll(repoDir, 0755); err != nil {
			return err
		}
		indexName := loc.IndexName(0)
		if err := os.WriteFile(filepath.Join(repoDir, indexName), indexBytes(fam.entries), 0644); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(repoDir, sqpack.DatName(indexName, 0)), fam.dat.Bytes(), 0644); err != nil {
			return err
		}
	}
	return nil
}

func header(typ uint32) []byte {
	h := make([]byte, sqpack.HeaderSize)
	sqpack.PutHeader(h, typ)
	return h
}

func indexBytes(entries map[uint64]uint32) []byte {
	hashes := make([]uint64, 0, len(entries))
	for h := range entries {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })

	tableOffset := sqpack.HeaderSize + sqpack.IndexHeaderSize
	out := make([]byte, tableOffset+len(hashes)*sqpack.IndexEntrySize)
	sqpack.PutHeader(out, sqpack.ContainerIndex)

	ih := out[sqpack.HeaderSize:]
	le.PutUint32(ih[0:], sqpack.IndexHeaderSize)
	le.PutUint32(ih[4:], 1)
	le.PutUint32(ih[8:], uint32(tableOffset))
	le.PutUint32(ih[12:], uint32(len(hashes)*sqpack.IndexEntrySize))

	for i, h := range hashes {
		e := out[tableOffset+i*sqpack.IndexEntrySize:]
		le.PutUint64(e[0:], h)
		le.PutUint32(e[8:], entries[h])
	}
	return out
}

func align(n int) int {
	return (n + sqpack.EntryAlignment - 1) / sqpack.EntryAlignment * sqpack.EntryAlignment
}

func pad(b []byte) []byte {
	return append(b, make([]byte, align(len(b))-len(b))...)
}

func fileInfo(headerSize, typ, rawSize, blocks int) []byte {
	b := make([]byte, sqpack.FileInfoSize)
	le.PutUint32(b[0:], uint32(headerSize))
	le.PutUint32(b[4:], uint32(typ))
	le.PutUint32(b[8:], uint32(rawSize))
	le.PutUint32(b[20:], uint32(blocks))
	return b
}

// blocks splits data into padded blocks.
func blocks(data []byte, stored bool) ([][]byte, error) {
	var out [][]byte
	for start := 0; start < len(data) || (start == 0 && len(data) == 0); start += sqpack.BlockSize {
		end := min(start+sqpack.BlockSize, len(data))
		blk, err := block(data[start:end], stored)
		if err != nil {
			return nil, err
		}
		out = append(out, blk)
		if len(data) == 0 {
			break
		}
	}
	return out, nil
}

func block(chunk []byte, stored bool) ([]byte, error) {
	payload := chunk
	compressed := sqpack.StoredBlockMarker
	if !stored {
		var buf bytes.Buffer
		fw, err := flate.NewWriter(&buf, flate.BestSpeed)
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(chunk); err != nil {
			return nil, err
		}
		if err := fw.Close(); err != nil {
			return nil, err
		}
		payload = buf.Bytes()
		compressed = len(payload)
	}

	hdr := make([]byte, sqpack.BlockHeaderSize)
	le.PutUint32(hdr[0:], sqpack.BlockHeaderSize)
	le.PutUint32(hdr[8:], uint32(compressed))
	le.PutUint32(hdr[12:], uint32(len(chunk)))
	return pad(append(hdr, payload...)), nil
}

func encode(f file) ([]byte, error) {
	switch f.kind {
	case kindEmpty:
		return pad(fileInfo(sqpack.EntryAlignment, int(sqpack.EntryEmpty), 0, 0)), nil
	case kindModel:
		return pad(fileInfo(sqpack.EntryAlignment, int(sqpack.EntryModel), 0, 0)), nil
	case kindTexture:
		return encodeTexture(f)
	default:
		return encodeStandard(f.data, f.kind == kindStored)
	}
}

func encodeStandard(data []byte, stored bool) ([]byte, error) {
	blks, err := blocks(data, stored)
	if err != nil {
		return nil, err
	}

	headerSize := align(sqpack.FileInfoSize + 8*len(blks))
	head := fileInfo(headerSize, int(sqpack.EntryStandard), len(data), len(blks))
	var body []byte
	for i, blk := range blks {
		decompressed := min(sqpack.BlockSize, len(data)-i*sqpack.BlockSize)
		info := make([]byte, 8)
		le.PutUint32(info[0:], uint32(len(body)))
		le.PutUint16(info[4:], uint16(len(blk)))
		le.PutUint16(info[6:], uint16(decompressed))
		head = append(head, info...)
		body = append(body, blk...)
	}
	head = append(head, make([]byte, headerSize-len(head))...)
	return append(head, body...), nil
}

func encodeTexture(f file) ([]byte, error) {
	type lod struct {
		blocks [][]byte
		size   int
	}
	lods := make([]lod, len(f.lods))
	total := 0
	for i, data := range f.lods {
		blks, err := blocks(data, false)
		if err != nil {
			return nil, err
		}
		lods[i] = lod{blocks: blks, size: len(data)}
		total += len(blks)
	}

	headerSize := align(sqpack.FileInfoSize + 20*len(lods) + 2*total)
	rawSize := len(f.header)
	for _, l := range lods {
		rawSize += l.size
	}

	head := fileInfo(headerSize, int(sqpack.EntryTexture), rawSize, len(lods))
	var sizes, body []byte
	body = append(body, f.header...)
	blockIndex := 0
	for _, l := range lods {
		entry := make([]byte, 20)
		compressedOffset := len(body)
		compressedSize := 0
		for _, blk := range l.blocks {
			sizes = le.AppendUint16(sizes, uint16(len(blk)))
			body = append(body, blk...)
			compressedSize += len(blk)
		}
		le.PutUint32(entry[0:], uint32(compressedOffset))
		le.PutUint32(entry[4:], uint32(compressedSize))
		le.PutUint32(entry[8:], uint32(l.size))
		le.PutUint32(entry[12:], uint32(blockIndex))
		le.PutUint32(entry[16:], uint32(len(l.blocks)))
		head = append(head, entry...)
		blockIndex += len(l.blocks)
	}
	head = append(head, sizes...)
	head = append(head, make([]byte, headerSize-len(head))...)
	return pad(append(head, body...)), nil
}
