package render

import (
	"os"
	"path/filepath"

	"github.com/pixie-sh/errors-go"
)

// FileSink receives rendered artifacts. Paths are relative, slash-separated.
// The sink may deduplicate or clean a prior tree; the driver only promises
// not to write the same path twice in one run.
type FileSink interface {
	Write(relativePath string, data []byte) error
}

// DirSink writes artifacts under a root directory, creating parents as
// needed.
type DirSink struct {
	Root string
}

// NewDirSink creates a sink rooted at dir.
func NewDirSink(dir string) *DirSink {
	return &DirSink{Root: dir}
}

// Write stores data at the relative path under the sink root.
func (s *DirSink) Write(relativePath string, data []byte) error {
	path := filepath.Join(s.Root, filepath.FromSlash(relativePath))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "failed to create directory for %s", relativePath)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write file %s", relativePath)
	}
	return nil
}
