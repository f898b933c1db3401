package manifest

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/handiism/xivextract/internal/model"
)

// PathList fetches a newline separated list of virtual paths.
type PathList struct {
	getter      Getter
	url         string
	compression Compression
}

// PathListOption configures a PathList.
type PathListOption func(*PathList)

// WithPathListCompression overrides the default gzip decoding.
func WithPathListCompression(c Compression) PathListOption {
	return func(p *PathList) {
		p.compression = c
	}
}

// NewPathList creates a PathList source reading url through getter.
func NewPathList(getter Getter, url string, opts ...PathListOption) *PathList {
	p := &PathList{
		getter:      getter,
		url:         url,
		compression: CompressionGzip,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fetch downloads, decompresses and splits the list.
func (p *PathList) Fetch(ctx context.Context) (model.Manifest, error) {
	data, err := fetch(ctx, p.getter, p.url, p.compression)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, &FetchError{URL: p.url, Op: "parse", Err: ErrMalformed}
	}
	return ParsePathList(string(data)), nil
}

// ParsePathList splits text on '\n' and trims each line.
//
// Lines that are empty after trimming are dropped, so a trailing newline
// or a CRLF file never produces blank entries.
func ParsePathList(text string) model.Manifest {
	lines := strings.Split(text, "\n")
	paths := make(model.Manifest, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths
}
