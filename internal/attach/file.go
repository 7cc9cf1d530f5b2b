// Package attach holds attachments staged for a generation request and
// enforces the client-side type and size rules before anything is sent.
package attach

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
)

// File is a handle to a local file chosen for upload.
type File struct {
	Name     string // base name sent as the multipart filename
	Path     string
	Size     int64
	MIMEType string
}

// Open opens the underlying file for streaming.
func (f File) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// Inspect stats path and sniffs its content type.
func Inspect(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to detect type of %s: %w", path, err)
	}

	return File{
		Name:     filepath.Base(path),
		Path:     path,
		Size:     info.Size(),
		MIMEType: mt.String(),
	}, nil
}

// inspectConcurrency bounds parallel sniffing of a batch.
const inspectConcurrency = 4

// InspectAll inspects a batch of paths concurrently, preserving order.
// The first failure cancels the rest.
func InspectAll(ctx context.Context, paths []string) ([]File, error) {
	files := make([]File, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(inspectConcurrency)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := Inspect(p)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}
