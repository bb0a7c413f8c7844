package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/rtmonitor/internal/domain/linelist"
)

// FileSource reads a local export. The format follows the extension:
// .json, .csv, and either with a trailing .gz.
type FileSource struct {
	path string
}

// NewFileSource builds a source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name implements Source.
func (s *FileSource) Name() string { return "file" }

// Fetch implements Source.
func (s *FileSource) Fetch(ctx context.Context) ([]linelist.Raw, error) {
	format, gzipped, err := FormatOf(s.path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer f.Close()
	return Decode(f, format, gzipped)
}

// FormatOf derives the format from a file name.
func FormatOf(path string) (Format, bool, error) {
	name := strings.ToLower(filepath.Base(path))
	gzipped := false
	if strings.HasSuffix(name, ".gz") {
		gzipped = true
		name = strings.TrimSuffix(name, ".gz")
	}
	switch filepath.Ext(name) {
	case ".json":
		return FormatJSON, gzipped, nil
	case ".csv":
		return FormatCSV, gzipped, nil
	default:
		return 0, false, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
}
