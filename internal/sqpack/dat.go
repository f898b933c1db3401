package sqpack

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/flate"
)

const (
	// maxEntrySize bounds allocations driven by on-disk sizes.
	maxEntrySize = 1 << 30
	maxBlocks    = maxEntrySize / BlockSize
)

// fileInfo is the header shared by every dat entry.
type fileInfo struct {
	headerSize uint32
	typ        uint32
	rawSize    uint32
	blocks     uint32
}

// lodBlock describes one mip level of a texture entry.
type lodBlock struct {
	compressedOffset uint32
	compressedSize   uint32
	decompressedSize uint32
	blockOffset      uint32
	blockCount       uint32
}

// datFile reads entries from one open dat file.
type datFile struct {
	f        *os.File
	inflater io.ReadCloser
}

func (d *datFile) readAt(n int, off int64) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := d.f.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("%w: read %d bytes at %d: %v", ErrCorrupt, n, off, err)
	}
	return buf, nil
}

func (d *datFile) readInfo(offset int64) (fileInfo, error) {
	b, err := d.readAt(FileInfoSize, offset)
	if err != nil {
		return fileInfo{}, err
	}
	info := fileInfo{
		headerSize: le.Uint32(b[0:]),
		typ:        le.Uint32(b[4:]),
		rawSize:    le.Uint32(b[8:]),
		blocks:     le.Uint32(b[20:]),
	}
	if info.rawSize > maxEntrySize || info.blocks > maxBlocks {
		return fileInfo{}, fmt.Errorf("%w: entry at %d claims %d bytes in %d blocks", ErrCorrupt, offset, info.rawSize, info.blocks)
	}
	return info, nil
}

// read rebuilds the file stored at offset.
func (d *datFile) read(offset int64) ([]byte, error) {
	info, err := d.readInfo(offset)
	if err != nil {
		return nil, err
	}

	var out []byte
	switch info.typ {
	case EntryEmpty:
		return nil, ErrNotFound
	case EntryStandard:
		out, err = d.readStandard(offset, info)
	case EntryTexture:
		out, err = d.readTexture(offset, info)
	case EntryModel:
		return nil, fmt.Errorf("%w: model entry", ErrUnsupported)
	default:
		return nil, fmt.Errorf("%w: entry type %d", ErrCorrupt, info.typ)
	}
	if err != nil {
		return nil, err
	}

	if len(out) != int(info.rawSize) {
		return nil, fmt.Errorf("%w: rebuilt %d bytes, header says %d", ErrCorrupt, len(out), info.rawSize)
	}
	return out, nil
}

func (d *datFile) readStandard(offset int64, info fileInfo) ([]byte, error) {
	table, err := d.readAt(int(info.blocks)*8, offset+FileInfoSize)
	if err != nil {
		return nil, err
	}

	base := offset + int64(info.headerSize)
	out := make([]byte, 0, info.rawSize)
	for i := 0; i < int(info.blocks); i++ {
		blockOffset := int64(le.Uint32(table[i*8:]))
		if out, err = d.readBlock(base+blockOffset, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// readTexture copies the uncompressed texture header, then every mip
// level's blocks in order.
func (d *datFile) readTexture(offset int64, info fileInfo) ([]byte, error) {
	if info.blocks == 0 {
		return nil, fmt.Errorf("%w: texture without mip levels", ErrCorrupt)
	}

	raw, err := d.readAt(int(info.blocks)*20, offset+FileInfoSize)
	if err != nil {
		return nil, err
	}
	lods := make([]lodBlock, info.blocks)
	var subBlocks uint32
	for i := range lods {
		b := raw[i*20:]
		lods[i] = lodBlock{
			compressedOffset: le.Uint32(b[0:]),
			compressedSize:   le.Uint32(b[4:]),
			decompressedSize: le.Uint32(b[8:]),
			blockOffset:      le.Uint32(b[12:]),
			blockCount:       le.Uint32(b[16:]),
		}
		end := uint64(lods[i].blockOffset) + uint64(lods[i].blockCount)
		if end > maxBlocks {
			return nil, fmt.Errorf("%w: mip level %d spans blocks %d+%d", ErrCorrupt, i, lods[i].blockOffset, lods[i].blockCount)
		}
		if uint32(end) > subBlocks {
			subBlocks = uint32(end)
		}
	}

	sizes, err := d.readAt(int(subBlocks)*2, offset+FileInfoSize+int64(info.blocks)*20)
	if err != nil {
		return nil, err
	}

	base := offset + int64(info.headerSize)
	headerLen := lods[0].compressedOffset
	if headerLen > info.rawSize {
		return nil, fmt.Errorf("%w: texture header of %d bytes", ErrCorrupt, headerLen)
	}
	out := make([]byte, 0, info.rawSize)
	if headerLen > 0 {
		hdr, err := d.readAt(int(headerLen), base)
		if err != nil {
			return nil, err
		}
		out = append(out, hdr...)
	}

	for _, lod := range lods {
		pos := base + int64(lod.compressedOffset)
		for j := uint32(0); j < lod.blockCount; j++ {
			if out, err = d.readBlock(pos, out); err != nil {
				return nil, err
			}
			pos += int64(le.Uint16(sizes[(lod.blockOffset+j)*2:]))
		}
	}
	return out, nil
}

// readBlock appends the decompressed contents of the block at pos to dst.
func (d *datFile) readBlock(pos int64, dst []byte) ([]byte, error) {
	hdr, err := d.readAt(BlockHeaderSize, pos)
	if err != nil {
		return nil, err
	}
	headerSize := int64(le.Uint32(hdr[0:]))
	compressed := le.Uint32(hdr[8:])
	decompressed := le.Uint32(hdr[12:])
	if decompressed > BlockSize*4 {
		return nil, fmt.Errorf("%w: block at %d claims %d bytes", ErrCorrupt, pos, decompressed)
	}
	if compressed != StoredBlockMarker && compressed > BlockSize*4 {
		return nil, fmt.Errorf("%w: block at %d claims %d compressed bytes", ErrCorrupt, pos, compressed)
	}

	if compressed == StoredBlockMarker {
		payload, err := d.readAt(int(decompressed), pos+headerSize)
		if err != nil {
			return nil, err
		}
		return append(dst, payload...), nil
	}

	payload, err := d.readAt(int(compressed), pos+headerSize)
	if err != nil {
		return nil, err
	}
	if err := d.resetInflater(bytes.NewReader(payload)); err != nil {
		return nil, err
	}

	start := len(dst)
	dst = append(dst, make([]byte, decompressed)...)
	if _, err := io.ReadFull(d.inflater, dst[start:]); err != nil {
		return nil, fmt.Errorf("%w: inflate block at %d: %v", ErrCorrupt, pos, err)
	}
	return dst, nil
}

func (d *datFile) resetInflater(r io.Reader) error {
	if d.inflater == nil {
		d.inflater = flate.NewReader(r)
		return nil
	}
	return d.inflater.(flate.Resetter).Reset(r, nil)
}

func (d *datFile) Close() error {
	if d.inflater != nil {
		_ = d.inflater.Close()
	}
	return d.f.Close()
}
