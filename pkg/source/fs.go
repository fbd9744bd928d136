package source

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// FSSource reads mapping tables from a file system.
type FSSource struct {
	fs      afero.Fs
	pattern string
}

func NewFSSource(fs afero.Fs, pattern string) *FSSource {
	return &FSSource{fs: fs, pattern: pattern}
}

func (s *FSSource) Open(_ context.Context, version string) (io.ReadCloser, error) {
	name := (&Config{Pattern: s.pattern}).Name(version)
	f, err := s.fs.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "file not found: %s", name)
		}
		return nil, errors.Wrapf(err, "open %s", name)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "stat %s", name)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, errors.Wrapf(ErrNotFound, "not a file: %s", name)
	}
	return f, nil
}
