package sqpack

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger used for index and dat diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		r.logger = logger
	}
}

// Reader resolves virtual paths against one SqPack installation.
type Reader struct {
	root   string
	logger *slog.Logger

	families map[Location][]string
	indexes  map[string]*index
	dats     map[string]*datFile
}

// Open locates the sqpack directory of an install.
//
// installPath may be the client root (containing game/sqpack), the game
// directory (containing sqpack) or the sqpack directory itself. No index
// is read until the first lookup.
func Open(installPath string, opts ...Option) (*Reader, error) {
	root, err := findRoot(installPath)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		root:     root,
		families: make(map[Location][]string),
		indexes:  make(map[string]*index),
		dats:     make(map[string]*datFile),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r, nil
}

func findRoot(installPath string) (string, error) {
	candidates := []string{
		filepath.Join(installPath, "game", "sqpack"),
		filepath.Join(installPath, "sqpack"),
		installPath,
	}
	for _, dir := range candidates {
		info, err := os.Stat(filepath.Join(dir, DefaultRepository))
		if err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w under %s", ErrNoInstall, installPath)
}

// Root returns the resolved sqpack directory.
func (r *Reader) Root() string {
	return r.root
}

// Read returns the contents of the file at a virtual path.
//
// Paths are case-insensitive. Errors wrap ErrNotFound when no index holds
// the path, ErrUnsupported for entries that cannot be rebuilt, and
// ErrCorrupt for malformed data.
func (r *Reader) Read(path string) ([]byte, error) {
	loc, err := Locate(path)
	if err != nil {
		return nil, err
	}
	hash, err := Hash(path)
	if err != nil {
		return nil, err
	}

	indexPaths, err := r.family(loc)
	if err != nil {
		return nil, err
	}

	for _, indexPath := range indexPaths {
		idx, err := r.index(indexPath)
		if err != nil {
			return nil, err
		}
		e, ok := idx.lookup(hash)
		if !ok {
			continue
		}
		if e.synonym {
			return nil, fmt.Errorf("%q: %w: hash synonym", path, ErrUnsupported)
		}

		dat, err := r.dat(DatName(indexPath, e.dat))
		if err != nil {
			return nil, err
		}
		data, err := dat.read(e.offset)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", path, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%q: %w", path, ErrNotFound)
}

// family lists the index chunks for loc, sorted by chunk number.
func (r *Reader) family(loc Location) ([]string, error) {
	if paths, ok := r.families[loc]; ok {
		return paths, nil
	}

	paths, err := filepath.Glob(filepath.Join(r.root, loc.Repository, loc.indexPattern()))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	r.families[loc] = paths
	r.logger.Debug("resolved index family",
		slog.String("repository", loc.Repository),
		slog.Int("category", int(loc.Category)),
		slog.Int("chunks", len(paths)))
	return paths, nil
}

func (r *Reader) index(path string) (*index, error) {
	if idx, ok := r.indexes[path]; ok {
		return idx, nil
	}
	idx, err := loadIndex(path)
	if err != nil {
		return nil, err
	}
	r.indexes[path] = idx
	r.logger.Debug("loaded index", slog.String("path", path), slog.Int("entries", len(idx.entries)))
	return idx, nil
}

func (r *Reader) dat(path string) (*datFile, error) {
	if d, ok := r.dats[path]; ok {
		return d, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: missing dat %s", ErrCorrupt, path)
		}
		return nil, err
	}

	hdr := make([]byte, HeaderSize)
	if _, err := f.ReadAt(hdr, 0); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w: %v", path, ErrCorrupt, err)
	}
	if _, err := checkHeader(hdr, ContainerData); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	d := &datFile{f: f}
	r.dats[path] = d
	return d, nil
}

// Close releases every open dat file.
func (r *Reader) Close() error {
	var errs []error
	for path, d := range r.dats {
		if err := d.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", path, err))
		}
		delete(r.dats, path)
	}
	return errors.Join(errs...)
}
