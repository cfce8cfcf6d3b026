package resume

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
)

// DirSource serves assets from a file system rooted at the public directory.
// Candidate "/assets/a%20b.pdf" maps to file "assets/a b.pdf".
type DirSource struct {
	fsys fs.FS
}

func NewDirSource(fsys fs.FS) *DirSource {
	return &DirSource{fsys: fsys}
}

func (s *DirSource) Exists(_ context.Context, p string) error {
	key, err := cleanKey(p)
	if err != nil {
		return err
	}
	info, err := fs.Stat(s.fsys, key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissing, p)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrMissing, p)
	}
	return nil
}

func (s *DirSource) Fetch(_ context.Context, p string) (*Blob, error) {
	key, err := cleanKey(p)
	if err != nil {
		return nil, err
	}
	f, err := s.fsys.Open(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissing, p)
		}
		return nil, err
	}
	defer f.Close()

	data, err := readLimited(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}

	ct := mime.TypeByExtension(path.Ext(key))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return &Blob{Data: data, ContentType: ct}, nil
}

// URL returns the candidate unchanged; the public directory is served at the
// same paths.
func (s *DirSource) URL(p string) string { return p }

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxSize {
		return nil, ErrTooLarge
	}
	return data, nil
}
