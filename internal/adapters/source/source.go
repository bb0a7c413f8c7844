// Package source fetches the raw case line list from an upstream: the
// national open data API, a local export file or a MongoDB collection.
//
// Fetch is all or nothing. A source never returns a partial table.
package source

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/okian/rtmonitor/internal/domain/linelist"
)

// Source produces the raw line list.
type Source interface {
	// Name identifies the source kind in logs and metrics.
	Name() string
	// Fetch returns every row of the upstream table.
	Fetch(ctx context.Context) ([]linelist.Raw, error)
}

// Format is an encoding of the line list.
type Format int

// Supported formats.
const (
	FormatJSON Format = iota
	FormatCSV
)

// DecodeJSON reads a JSON array of flat objects one element at a time.
// Keys are matched against the known column names; other keys are ignored.
func DecodeJSON(r io.Reader) ([]linelist.Raw, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if t, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: opening bracket: %v", ErrDecode, err)
	} else if d, ok := t.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("%w: data starts with %v instead of an array", ErrDecode, t)
	}

	var out []linelist.Raw
	for dec.More() {
		var row map[string]any
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrDecode, len(out)+1, err)
		}
		var raw linelist.Raw
		for k, v := range row {
			raw.Set(k, stringify(v))
		}
		out = append(out, raw)
	}

	if t, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: closing bracket: %v", ErrDecode, err)
	} else if d, ok := t.(json.Delim); !ok || d != ']' {
		return nil, fmt.Errorf("%w: data ends with %v instead of closing bracket", ErrDecode, t)
	}
	return out, nil
}

// DecodeCSV reads a CSV table with a header row. Rows may be shorter than
// the header; missing cells are empty.
func DecodeCSV(r io.Reader) ([]linelist.Raw, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: csv header: %v", ErrDecode, err)
	}
	known := 0
	for i, h := range headers {
		headers[i] = strings.TrimPrefix(h, "\ufeff")
		if linelist.KnownColumn(headers[i]) {
			known++
		}
	}
	if known == 0 {
		return nil, fmt.Errorf("%w: csv header has no known column", ErrDecode)
	}

	var out []linelist.Raw
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: csv line %d: %v", ErrDecode, line, err)
		}
		var raw linelist.Raw
		for i, h := range headers {
			if i < len(record) {
				raw.Set(h, record[i])
			}
		}
		out = append(out, raw)
	}
	return out, nil
}

// Decode reads r in format f, transparently gunzipping when gzipped is set.
func Decode(r io.Reader, f Format, gzipped bool) ([]linelist.Raw, error) {
	if gzipped {
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", ErrDecode, err)
		}
		defer gr.Close()
		r = gr
	}
	switch f {
	case FormatJSON:
		return DecodeJSON(r)
	case FormatCSV:
		return DecodeCSV(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
