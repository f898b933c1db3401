package manifest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/handiism/xivextract/internal/model"
)

// DefaultPathColumn is the zero-based CSV field holding the virtual path.
const DefaultPathColumn = 2

// CSV fetches comma separated records and takes one column as the path.
type CSV struct {
	getter      Getter
	url         string
	compression Compression
	column      int
	skipHeader  bool
}

// CSVOption configures a CSV source.
type CSVOption func(*CSV)

// WithCSVCompression sets how the body is decoded. The default is none.
func WithCSVCompression(c Compression) CSVOption {
	return func(s *CSV) {
		s.compression = c
	}
}

// WithPathColumn selects the zero-based field to read the path from.
func WithPathColumn(column int) CSVOption {
	return func(s *CSV) {
		s.column = column
	}
}

// WithHeader skips the first record.
func WithHeader(skip bool) CSVOption {
	return func(s *CSV) {
		s.skipHeader = skip
	}
}

// NewCSV creates a CSV source reading url through getter.
func NewCSV(getter Getter, url string, opts ...CSVOption) *CSV {
	s := &CSV{
		getter:      getter,
		url:         url,
		compression: CompressionNone,
		column:      DefaultPathColumn,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch downloads and parses the records.
func (s *CSV) Fetch(ctx context.Context) (model.Manifest, error) {
	data, err := fetch(ctx, s.getter, s.url, s.compression)
	if err != nil {
		return nil, err
	}

	paths, err := ParseCSV(bytes.NewReader(data), s.column, s.skipHeader)
	if err != nil {
		return nil, &FetchError{URL: s.url, Op: "parse", Err: err}
	}
	return paths, nil
}

// ParseCSV reads every record from r and returns field column of each.
//
// Records may have any number of fields, but every record must reach
// column; a shorter record fails the whole parse with ErrMalformed.
// Fields are trimmed and empty paths are dropped.
func ParseCSV(r io.Reader, column int, skipHeader bool) (model.Manifest, error) {
	if column < 0 {
		return nil, fmt.Errorf("%w: negative path column %d", ErrMalformed, column)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var paths model.Manifest
	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if line == 1 && skipHeader {
			continue
		}
		if len(record) <= column {
			return nil, fmt.Errorf("%w: record %d has %d fields, need at least %d", ErrMalformed, line, len(record), column+1)
		}
		if path := strings.TrimSpace(record[column]); path != "" {
			paths = append(paths, path)
		}
	}
	return paths, nil
}
