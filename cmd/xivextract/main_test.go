package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/handiism/xivextract/internal/sqpack/sqpacktest"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// fixture builds an install and a manifest server for a path list.
func fixture(t *testing.T, list string) (install, url string) {
	t.Helper()

	install = t.TempDir()
	require.NoError(t, sqpacktest.New().
		AddFile("exd/root.exl", []byte("EXLT,2\n")).
		AddFile("ui/icon/000000/000001.tex", []byte("icon")).
		Write(install))

	body := gzipped(t, list)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/list.gz" {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(srv.Close)

	return install, srv.URL + "/list.gz"
}

func runCLI(ctx context.Context, args ...string) (code int, stdout, stderr string) {
	var out, errb bytes.Buffer
	code = run(ctx, args, &out, &errb)
	return code, out.String(), errb.String()
}

func TestRun_Extracts(t *testing.T) {
	install, url := fixture(t, "exd/root.exl\nexd/missing.exh\nui/icon/000000/000001.tex\n")
	output := filepath.Join(t.TempDir(), "out")

	code, stdout, stderr := runCLI(context.Background(), "--manifest-url", url, install, output, "2")
	require.Equal(t, exitOK, code, stderr)

	assert.Contains(t, stdout, "Found 3 files to export!")
	assert.Contains(t, stdout, "Complete! Extracted 2/3 files")
	assert.Contains(t, stdout, "(1 missing, 0 unreadable, 0 refused)")

	got, err := os.ReadFile(filepath.Join(output, "exd", "root.exl"))
	require.NoError(t, err)
	assert.Equal(t, "EXLT,2\n", string(got))
	assert.FileExists(t, filepath.Join(output, "ui", "icon", "000000", "000001.tex"))
}

func TestRun_VerboseShowsWorkers(t *testing.T) {
	install, url := fixture(t, "exd/root.exl\n")

	code, stdout, _ := runCLI(context.Background(), "-v", "--manifest-url", url, install, t.TempDir())
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Worker 0: 1 paths (0..1)")
}

func TestRun_DryRun(t *testing.T) {
	install, url := fixture(t, "a\nb\nc\nd\ne\n")
	output := filepath.Join(t.TempDir(), "out")

	code, stdout, _ := runCLI(context.Background(), "--dry-run", "--manifest-url", url, install, output, "2")
	require.Equal(t, exitOK, code)

	assert.Contains(t, stdout, "worker 0: 2 paths (0..2)")
	assert.Contains(t, stdout, "worker 1: 3 paths (2..5)")
	assert.NoDirExists(t, output)
}

func TestRun_ConfigFile(t *testing.T) {
	install, url := fixture(t, "exd/root.exl\n")
	cfg := filepath.Join(t.TempDir(), "xivextract.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("manifest_url: "+url+"\nworkers: 3\n"), 0644))

	code, stdout, stderr := runCLI(context.Background(), "--config", cfg, "--dry-run", install, t.TempDir())
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "worker 0: 1 paths")
}

func TestRun_ExitCodes(t *testing.T) {
	install, url := fixture(t, "exd/root.exl\n")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"missing arguments", nil, exitUsage},
		{"unknown format", []string{"--format", "xml", "--manifest-url", url, install, t.TempDir()}, exitUsage},
		{"no install", []string{"--manifest-url", url, t.TempDir(), t.TempDir()}, exitUsage},
		{"manifest not found", []string{"--manifest-url", strings.TrimSuffix(url, "list.gz") + "nope.gz", install, t.TempDir()}, exitFetch},
		{"help", []string{"--help"}, exitOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runCLI(context.Background(), tt.args...)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(context.Background(), "--version")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, Version)
}

func TestRun_WriteFailure(t *testing.T) {
	install, url := fixture(t, "exd/root.exl\n")
	blocker := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	code, _, stderr := runCLI(context.Background(), "--manifest-url", url, install, blocker)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "Error during extraction")
}

func TestRun_Interrupted(t *testing.T) {
	install, url := fixture(t, "exd/root.exl\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code, _, _ := runCLI(ctx, "--manifest-url", url, install, t.TempDir())
	assert.Equal(t, exitInterrupted, code)
}

func TestLoadSettings(t *testing.T) {
	s, err := loadSettings(&CLI{Threads: 4, Format: "csv", ManifestURL: "https://example.org/p.csv"})
	require.NoError(t, err)
	assert.Equal(t, 4, s.Workers)
	assert.Equal(t, "csv", s.ManifestFormat)
	assert.Equal(t, "https://example.org/p.csv", s.ManifestURL)

	s, err = loadSettings(&CLI{})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Workers, "threads default to one worker")

	_, err = loadSettings(&CLI{Threads: -1})
	assert.Error(t, err)
}

func TestRun_Bar(t *testing.T) {
	install, url := fixture(t, "exd/root.exl\nui/icon/000000/000001.tex\n")

	code, stdout, stderr := runCLI(context.Background(), "--bar", "--manifest-url", url, install, t.TempDir())
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stderr, "extracting")
	assert.NotContains(t, stdout, "2/2\n", "progress lines are replaced by the bar")
	assert.Contains(t, stdout, "Complete! Extracted 2/2 files")
}
