// Package uploads stores user-uploaded files under a single directory and maps
// them to the public URL prefix they are served from.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// ErrTooLarge is returned by a reader from LimitReader once its cap is passed.
var ErrTooLarge = errors.New("uploads: file too large")

// LimitReader returns a reader that fails with ErrTooLarge after more than
// n bytes. Unlike io.LimitReader it does not silently truncate.
func LimitReader(r io.Reader, n int64) io.Reader {
	return &capReader{r: r, left: n}
}

type capReader struct {
	r    io.Reader
	left int64
}

func (c *capReader) Read(p []byte) (int, error) {
	if c.left < 0 {
		return 0, ErrTooLarge
	}
	if int64(len(p)) > c.left+1 {
		p = p[:c.left+1]
	}
	n, err := c.r.Read(p)
	c.left -= int64(n)
	if c.left < 0 {
		return n, ErrTooLarge
	}
	return n, err
}

// Store writes files into Dir on FS. Files are served at URLPrefix/<name>.
type Store struct {
	fs        afero.Fs
	dir       string
	urlPrefix string
}

// New returns a Store rooted at dir, creating the directory if needed.
func New(fs afero.Fs, dir, urlPrefix string) (*Store, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: create %s: %w", dir, err)
	}
	return &Store{
		fs:        fs,
		dir:       dir,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
	}, nil
}

// Dir is the directory files are written to.
func (s *Store) Dir() string { return s.dir }

// Save copies r into a new file called name. A partially written file is
// removed on error.
func (s *Store) Save(name string, r io.Reader) (int64, error) {
	if name == "" || name != filepath.Base(name) {
		return 0, fmt.Errorf("uploads: invalid file name %q", name)
	}
	p := filepath.Join(s.dir, name)
	f, err := s.fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("uploads: create %s: %w", name, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.fs.Remove(p)
		return n, err
	}
	return n, nil
}

// Remove deletes the file called name.
func (s *Store) Remove(name string) error {
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("uploads: invalid file name %q", name)
	}
	return s.fs.Remove(filepath.Join(s.dir, name))
}

// Exists reports whether name is present.
func (s *Store) Exists(name string) bool {
	ok, err := afero.Exists(s.fs, filepath.Join(s.dir, name))
	return err == nil && ok
}

// URL returns the public path for name.
func (s *Store) URL(name string) string {
	return path.Join(s.urlPrefix, name)
}

// LocalName returns the file name behind a public path produced by URL.
// Absolute http(s) URLs and paths outside the prefix are not local.
func (s *Store) LocalName(publicPath string) (string, bool) {
	if publicPath == "" || IsRemote(publicPath) {
		return "", false
	}
	prefix := s.urlPrefix + "/"
	if !strings.HasPrefix(publicPath, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(publicPath, prefix)
	if name == "" || name != path.Base(name) || name == ".." {
		return "", false
	}
	return name, true
}

// IsRemote reports whether p is an absolute http or https URL.
func IsRemote(p string) bool {
	lp := strings.ToLower(p)
	return strings.HasPrefix(lp, "http://") || strings.HasPrefix(lp, "https://")
}

// AvatarFileName builds "avatar-<unix-millis>-<8 hex chars><ext>", keeping
// the lowercased extension of the client's file name.
func AvatarFileName(original string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(original))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("avatar-%d-%s%s", now.UnixMilli(), id, ext)
}
