package sqpack

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strconv"
	"strings"
)

var (
	// ErrNotFound is returned when the install has no entry for a path.
	ErrNotFound = errors.New("sqpack: file not found")

	// ErrUnsupported is returned for entries this package cannot rebuild.
	ErrUnsupported = errors.New("sqpack: unsupported entry")

	// ErrCorrupt is returned when index or dat contents are inconsistent.
	ErrCorrupt = errors.New("sqpack: corrupt data")

	// ErrNoInstall is returned by Open when no sqpack directory is found.
	ErrNoInstall = errors.New("sqpack: no sqpack directory found")
)

// Magic opens every SqPack container file.
var Magic = [8]byte{'S', 'q', 'P', 'a', 'c', 'k', 0, 0}

const (
	// HeaderSize is the size of the container header in index and dat files.
	HeaderSize = 0x400

	// IndexHeaderSize is the size of the index header that follows it.
	IndexHeaderSize = 0x400

	// IndexEntrySize is the size of one index1 hash table entry.
	IndexEntrySize = 16

	// EntryAlignment is the granularity of dat entry offsets.
	EntryAlignment = 128

	// FileInfoSize is the size of the common dat entry header.
	FileInfoSize = 24

	// BlockHeaderSize is the size of the header before each data block.
	BlockHeaderSize = 16

	// BlockSize is the maximum decompressed size of one data block.
	BlockSize = 16000

	// StoredBlockMarker in a block's compressed size field means the
	// payload is not compressed.
	StoredBlockMarker = 32000

	// DefaultRepository holds the base game and every non-expansion path.
	DefaultRepository = "ffxiv"
)

// Container types stored in the header.
const (
	ContainerData  uint32 = 1
	ContainerIndex uint32 = 2
)

// Entry types stored in the dat file info header.
const (
	EntryEmpty    uint32 = 1
	EntryStandard uint32 = 2
	EntryModel    uint32 = 3
	EntryTexture  uint32 = 4
)

var le = binary.LittleEndian

var categories = map[string]uint8{
	"common":      0x00,
	"bgcommon":    0x01,
	"bg":          0x02,
	"cut":         0x03,
	"chara":       0x04,
	"shader":      0x05,
	"ui":          0x06,
	"sound":       0x07,
	"vfx":         0x08,
	"ui_script":   0x09,
	"exd":         0x0a,
	"game_script": 0x0b,
	"music":       0x0c,
	"sqpack_test": 0x12,
	"debug":       0x13,
}

// Location identifies the repository and index family holding a path.
type Location struct {
	Repository string
	Category   uint8
	Expansion  uint8
}

// IndexName returns the index file name for one chunk of the location.
func (l Location) IndexName(chunk uint8) string {
	return fmt.Sprintf("%02x%02x%02x.win32.index", l.Category, l.Expansion, chunk)
}

// indexPattern matches every chunk of the location.
func (l Location) indexPattern() string {
	return fmt.Sprintf("%02x%02x??.win32.index", l.Category, l.Expansion)
}

// DatName returns the dat file paired with indexName.
func DatName(indexName string, dat uint8) string {
	return strings.TrimSuffix(indexName, ".index") + ".dat" + strconv.Itoa(int(dat))
}

// Locate resolves the repository and index family for a virtual path.
//
// The first segment names the category. A second segment of the form exN
// selects expansion repository N; every other path lives in ffxiv.
func Locate(path string) (Location, error) {
	lower := strings.ToLower(path)
	parts := strings.SplitN(lower, "/", 3)
	if len(parts) < 2 {
		return Location{}, fmt.Errorf("%q: no category: %w", path, ErrNotFound)
	}

	category, ok := categories[parts[0]]
	if !ok {
		return Location{}, fmt.Errorf("%q: unknown category %q: %w", path, parts[0], ErrNotFound)
	}

	loc := Location{Repository: DefaultRepository, Category: category}
	if len(parts) == 3 {
		if n, ok := expansion(parts[1]); ok {
			loc.Repository = parts[1]
			loc.Expansion = n
		}
	}
	return loc, nil
}

func expansion(segment string) (uint8, bool) {
	digits, ok := strings.CutPrefix(segment, "ex")
	if !ok || digits == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(digits, 10, 8)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint8(n), true
}

// Hash returns the index1 key for a virtual path: the folder hash in the
// high 32 bits and the file name hash in the low 32 bits.
func Hash(path string) (uint64, error) {
	lower := strings.ToLower(path)
	i := strings.LastIndexByte(lower, '/')
	if i < 0 {
		return 0, fmt.Errorf("%q: no folder: %w", path, ErrNotFound)
	}
	return uint64(jamcrc(lower[:i]))<<32 | uint64(jamcrc(lower[i+1:])), nil
}

// jamcrc is CRC-32/IEEE without the final inversion.
func jamcrc(s string) uint32 {
	return ^crc32.ChecksumIEEE([]byte(s))
}

// checkHeader validates the container header and returns its declared size.
func checkHeader(data []byte, want uint32) (int, error) {
	if len(data) < 0x18 {
		return 0, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	if [8]byte(data[:8]) != Magic {
		return 0, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if typ := le.Uint32(data[0x14:]); typ != want {
		return 0, fmt.Errorf("%w: container type %d, want %d", ErrCorrupt, typ, want)
	}
	size := int(le.Uint32(data[0x0c:]))
	if size < 0x18 || size > len(data) {
		return 0, fmt.Errorf("%w: header size %d", ErrCorrupt, size)
	}
	return size, nil
}

// PutHeader writes a container header of HeaderSize bytes into dst.
func PutHeader(dst []byte, typ uint32) {
	copy(dst, Magic[:])
	le.PutUint32(dst[0x0c:], HeaderSize)
	le.PutUint32(dst[0x10:], 1)
	le.PutUint32(dst[0x14:], typ)
}
