package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/handiism/xivextract/internal/model"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// DefaultURL is the community-maintained list of known game paths.
const DefaultURL = "https://rl2.perchbird.dev/download/export/CurrentPathList.gz"

// Format selects the manifest encoding.
type Format string

const (
	FormatPathList Format = "pathlist"
	FormatCSV      Format = "csv"
)

// Compression selects how the fetched body is decoded before parsing.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// ErrMalformed is wrapped by FetchError when a record cannot be parsed.
var ErrMalformed = errors.New("malformed manifest")

// Getter fetches the raw bytes at a URL.
//
// *http.Client from this module satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Source produces the ordered manifest for a run.
type Source interface {
	Fetch(ctx context.Context) (model.Manifest, error)
}

// FetchError reports a manifest that could not be obtained.
type FetchError struct {
	// URL is the manifest location.
	URL string

	// Op is the stage that failed: "fetch", "decompress" or "parse".
	Op string

	// Err is the underlying error.
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("manifest %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPathList, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown manifest format %q", s)
	}
}

// ParseCompression validates a compression name. Empty means none.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return CompressionNone, nil
	case CompressionNone, CompressionGzip, CompressionZstd:
		return c, nil
	default:
		return "", fmt.Errorf("unknown manifest compression %q", s)
	}
}

// fetch downloads and decompresses the body at url.
func fetch(ctx context.Context, getter Getter, url string, compression Compression) ([]byte, error) {
	body, err := getter.Get(ctx, url)
	if err != nil {
		return nil, &FetchError{URL: url, Op: "fetch", Err: err}
	}

	data, err := decompress(body, compression)
	if err != nil {
		return nil, &FetchError{URL: url, Op: "decompress", Err: err}
	}
	return data, nil
}

func decompress(body []byte, compression Compression) ([]byte, error) {
	switch compression {
	case CompressionNone, "":
		return body, nil
	case CompressionGzip:
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(body, nil)
	default:
		return nil, fmt.Errorf("unknown compression %q", compression)
	}
}

// Options describes a manifest source independent of its encoding.
type Options struct {
	Format      Format
	URL         string
	Compression Compression // empty selects the format's default
	PathColumn  int         // CSV only
	SkipHeader  bool        // CSV only
}

// New builds the Source described by opts.
func New(getter Getter, opts Options) (Source, error) {
	if opts.URL == "" {
		return nil, errors.New("manifest URL is empty")
	}

	switch opts.Format {
	case FormatPathList, "":
		var po []PathListOption
		if opts.Compression != "" {
			po = append(po, WithPathListCompression(opts.Compression))
		}
		return NewPathList(getter, opts.URL, po...), nil
	case FormatCSV:
		co := []CSVOption{
			WithPathColumn(opts.PathColumn),
			WithHeader(opts.SkipHeader),
		}
		if opts.Compression != "" {
			co = append(co, WithCSVCompression(opts.Compression))
		}
		return NewCSV(getter, opts.URL, co...), nil
	default:
		return nil, fmt.Errorf("unknown manifest format %q", opts.Format)
	}
}
