package sqpack_test

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/handiism/xivextract/internal/sqpack"
	"github.com/handiism/xivextract/internal/sqpack/sqpacktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBytes(n int, seed int64) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

func openInstall(t *testing.T, b *sqpacktest.Builder) *sqpack.Reader {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, b.Write(dir))

	r, err := sqpack.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestReader_ReadStandard(t *testing.T) {
	small := []byte("EXLT,2\nAchievement,209\n")
	large := bytes.Repeat([]byte("0123456789abcdef"), 5000) // 80000 bytes, 5 blocks
	noisy := randomBytes(sqpack.BlockSize*2+17, 1)

	r := openInstall(t, sqpacktest.New().
		AddFile("exd/root.exl", small).
		AddFile("exd/large.exd", large).
		AddFile("common/font/noise.bin", noisy).
		AddFile("exd/empty.exd", nil))

	tests := []struct {
		path string
		want []byte
	}{
		{"exd/root.exl", small},
		{"EXD/ROOT.EXL", small},
		{"exd/large.exd", large},
		{"common/font/noise.bin", noisy},
		{"exd/empty.exd", []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := r.Read(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReader_ReadStored(t *testing.T) {
	data := randomBytes(sqpack.BlockSize+1, 2)
	r := openInstall(t, sqpacktest.New().AddStored("ui/uld/stored.uld", data))

	got, err := r.Read("ui/uld/stored.uld")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestReader_ReadTexture(t *testing.T) {
	header := randomBytes(80, 3)
	lod0 := randomBytes(sqpack.BlockSize*2+500, 4)
	lod1 := randomBytes(900, 5)

	r := openInstall(t, sqpacktest.New().
		AddTexture("chara/common/texture/dummy.tex", header, lod0, lod1))

	got, err := r.Read("chara/common/texture/dummy.tex")
	require.NoError(t, err)
	assert.Equal(t, sqpacktest.TextureBytes(header, lod0, lod1), got)
}

func TestReader_ExpansionRepository(t *testing.T) {
	r := openInstall(t, sqpacktest.New().
		AddFile("bg/ex1/01_roc_r2/level/bg.lgb", []byte("ex1")).
		AddFile("bg/ffxiv/sea_s1/level/bg.lgb", []byte("base")))

	got, err := r.Read("bg/ex1/01_roc_r2/level/bg.lgb")
	require.NoError(t, err)
	assert.Equal(t, []byte("ex1"), got)

	got, err = r.Read("bg/ffxiv/sea_s1/level/bg.lgb")
	require.NoError(t, err)
	assert.Equal(t, []byte("base"), got)

	assert.DirExists(t, filepath.Join(r.Root(), "ex1"))
}

func TestReader_NotFound(t *testing.T) {
	r := openInstall(t, sqpacktest.New().
		AddFile("exd/root.exl", []byte("x")).
		AddEmpty("exd/placeholder.exh"))

	for _, p := range []string{
		"exd/missing.exl",        // family exists, hash absent
		"chara/human/none.sklb",  // no index family at all
		"unknown/category/a.bin", // unknown category
		"noslash",                // not a virtual path
		"",                       // empty manifest line
		"exd/placeholder.exh",    // empty entry
	} {
		_, err := r.Read(p)
		assert.ErrorIs(t, err, sqpack.ErrNotFound, p)
	}
}

func TestReader_Unsupported(t *testing.T) {
	r := openInstall(t, sqpacktest.New().
		AddModel("chara/human/c0101/obj/body/b0001/model/c0101b0001_top.mdl").
		AddSynonym("exd/collide.exh"))

	_, err := r.Read("chara/human/c0101/obj/body/b0001/model/c0101b0001_top.mdl")
	assert.ErrorIs(t, err, sqpack.ErrUnsupported)

	_, err = r.Read("exd/collide.exh")
	assert.ErrorIs(t, err, sqpack.ErrUnsupported)
}

func TestReader_CorruptDat(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, sqpacktest.New().AddFile("exd/root.exl", []byte("payload")).Write(dir))

	datPath := filepath.Join(dir, "game", "sqpack", "ffxiv", "0a0000.win32.dat0")
	require.NoError(t, os.Truncate(datPath, sqpack.HeaderSize+8))

	r, err := sqpack.Open(dir)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Read("exd/root.exl")
	assert.ErrorIs(t, err, sqpack.ErrCorrupt)
}

func TestOpen_Layouts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, sqpacktest.New().AddFile("exd/root.exl", []byte("x")).Write(dir))

	for _, p := range []string{
		dir,
		filepath.Join(dir, "game"),
		filepath.Join(dir, "game", "sqpack"),
	} {
		r, err := sqpack.Open(p)
		require.NoError(t, err, p)
		assert.Equal(t, filepath.Join(dir, "game", "sqpack"), r.Root())
		require.NoError(t, r.Close())
	}
}

func TestOpen_NoInstall(t *testing.T) {
	_, err := sqpack.Open(t.TempDir())
	assert.ErrorIs(t, err, sqpack.ErrNoInstall)
}

func TestReader_IndependentHandles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, sqpacktest.New().AddFile("exd/root.exl", []byte("shared")).Write(dir))

	a, err := sqpack.Open(dir)
	require.NoError(t, err)
	b, err := sqpack.Open(dir)
	require.NoError(t, err)

	_, err = a.Read("exd/root.exl")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	got, err := b.Read("exd/root.exl")
	require.NoError(t, err)
	assert.Equal(t, []byte("shared"), got)
	require.NoError(t, b.Close())
}
