package export

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileWriter writes to a temp file next to its target and renames it into
// place on Close. After the first write error further writes are no-ops and
// Close reports that error without touching the target.
type FileWriter struct {
	path string
	f    *os.File
	werr error
}

// NewFileWriter returns a FileWriter for path.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreate, err)
	}
	return &FileWriter{path: path, f: f}, nil
}

// Write implements io.Writer.
func (fw *FileWriter) Write(p []byte) (int, error) {
	if fw.werr != nil {
		return 0, fw.werr
	}
	n, err := fw.f.Write(p)
	fw.werr = err
	return n, err
}

// Printf writes formatted data.
func (fw *FileWriter) Printf(format string, args ...any) {
	if fw.werr == nil {
		_, fw.werr = fmt.Fprintf(fw.f, format, args...)
	}
}

// Close renames the temp file to the target path.
func (fw *FileWriter) Close() error {
	defer os.Remove(fw.f.Name()) // no-op after a successful rename
	cerr := fw.f.Close()
	if fw.werr != nil {
		return fw.werr
	}
	if cerr != nil {
		return cerr
	}
	if err := os.Chmod(fw.f.Name(), filePermission); err != nil {
		return err
	}
	return os.Rename(fw.f.Name(), fw.path)
}

// Abort discards everything written so far.
func (fw *FileWriter) Abort() {
	_ = fw.f.Close()
	_ = os.Remove(fw.f.Name())
}
