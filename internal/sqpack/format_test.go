package sqpack

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocate(t *testing.T) {
	tests := []struct {
		path  string
		want  Location
		index string
	}{
		{"exd/root.exl", Location{"ffxiv", 0x0a, 0}, "0a0000.win32.index"},
		{"chara/human/c0101/skeleton.sklb", Location{"ffxiv", 0x04, 0}, "040000.win32.index"},
		{"bg/ex1/01_roc_r2/twn/r2t1/level/bg.lgb", Location{"ex1", 0x02, 1}, "020100.win32.index"},
		{"BG/EX3/x/y.lgb", Location{"ex3", 0x02, 3}, "020300.win32.index"},
		{"music/ex2/bgm_ex2_alex.scd", Location{"ex2", 0x0c, 2}, "0c0200.win32.index"},
		{"bg/ffxiv/sea_s1/fld/s1f1/level/bg.lgb", Location{"ffxiv", 0x02, 0}, "020000.win32.index"},
		{"ui/icon/000000/000001.tex", Location{"ffxiv", 0x06, 0}, "060000.win32.index"},
		{"cut/ex0/x.cutb", Location{"ffxiv", 0x03, 0}, "030000.win32.index"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := Locate(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.index, got.IndexName(0))
		})
	}
}

func TestLocateUnknown(t *testing.T) {
	for _, p := range []string{"nothing", "", "textures/a.tex"} {
		_, err := Locate(p)
		assert.ErrorIs(t, err, ErrNotFound, p)
	}
}

func TestDatName(t *testing.T) {
	assert.Equal(t, "/x/0a0000.win32.dat0", DatName("/x/0a0000.win32.index", 0))
	assert.Equal(t, "040000.win32.dat3", DatName("040000.win32.index", 3))
}

func TestHash(t *testing.T) {
	h, err := Hash("EXD/Root.exl")
	require.NoError(t, err)

	folder := ^crc32.ChecksumIEEE([]byte("exd"))
	file := ^crc32.ChecksumIEEE([]byte("root.exl"))
	assert.Equal(t, uint64(folder)<<32|uint64(file), h)

	// Folder hash of exd as listed by community path indexes.
	assert.Equal(t, uint32(0xE39B7999), uint32(h>>32))

	_, err = Hash("root.exl")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEncodeDecodeEntry(t *testing.T) {
	v := EncodeEntry(3, 128*77, false)
	e := decodeEntry(v)
	assert.Equal(t, entry{dat: 3, offset: 128 * 77}, e)

	e = decodeEntry(EncodeEntry(1, 0x400, true))
	assert.True(t, e.synonym)
	assert.Equal(t, uint8(1), e.dat)
	assert.Equal(t, int64(0x400), e.offset)
}

func TestCheckHeader(t *testing.T) {
	buf := make([]byte, HeaderSize)
	PutHeader(buf, ContainerIndex)

	size, err := checkHeader(buf, ContainerIndex)
	require.NoError(t, err)
	assert.Equal(t, HeaderSize, size)

	_, err = checkHeader(buf, ContainerData)
	assert.ErrorIs(t, err, ErrCorrupt)

	buf[0] = 'X'
	_, err = checkHeader(buf, ContainerIndex)
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = checkHeader(buf[:8], ContainerIndex)
	assert.ErrorIs(t, err, ErrCorrupt)
}
