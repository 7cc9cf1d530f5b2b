// Package download writes a presentation stream to disk.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"text2ppt/internal/logging"
)

// DefaultFileName is the name a downloaded presentation is saved under.
const DefaultFileName = "generated_ppt.pptx"

// maxSuffix bounds the " (n)" collision search.
const maxSuffix = 999

// Saver saves streams into Dir. Existing files are never overwritten: a
// taken name gets a " (n)" suffix the way browsers do.
type Saver struct {
	Dir string
}

// New creates a Saver rooted at dir ("" means the working directory).
func New(dir string) *Saver {
	if dir == "" {
		dir = "."
	}
	return &Saver{Dir: dir}
}

// Save streams r into a temp file next to the destination and renames it
// into place. It returns the final path. The temp file is removed on
// every failure path.
func (s *Saver) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if name == "" {
		name = DefaultFileName
	}
	name = filepath.Base(name)

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download dir: %w", err)
	}

	f, err := os.CreateTemp(s.Dir, ".text2ppt-*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := f.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(f, &ctxReader{ctx: ctx, r: r})
	if err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write download: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to finish download: %w", err)
	}

	dest, err := s.reservePath(name)
	if err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("failed to move download into place: %w", err)
	}
	committed = true

	logging.Get(logging.CategoryDownload).Infow("saved", "path", dest, "bytes", n)
	logging.Audit().Download(dest, n)
	return dest, nil
}

// reservePath claims name in Dir, or "stem (n)ext" for the first free n,
// by creating an empty placeholder exclusively. The caller renames its
// temp file over the placeholder, which only ever replaces its own file.
func (s *Saver) reservePath(name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := filepath.Join(s.Dir, name)
	for i := 1; ; i++ {
		f, err := os.OpenFile(candidate, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_ = f.Close()
			return candidate, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("failed to reserve %s: %w", candidate, err)
		}
		if i > maxSuffix {
			return "", fmt.Errorf("no free file name for %s in %s", name, s.Dir)
		}
		candidate = filepath.Join(s.Dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
	}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
