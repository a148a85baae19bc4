// Package transport moves a saved artifact to its remote location.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Uploader is implemented by every transport.
type Uploader interface {
	Upload(ctx context.Context, localPath, remotePath string) error
	// Check validates the account or destination before the first upload.
	Check(ctx context.Context) error
}

// ErrInvalidRemotePath is returned for remote paths that escape the destination.
var ErrInvalidRemotePath = errors.New("invalid remote path")

// Local copies artifacts into a directory, typically a synced or served folder.
type Local struct {
	Dir string
}

// NewLocal returns a Local transport rooted at dir.
func NewLocal(dir string) (*Local, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("LOCAL_TARGET_DIR is required for the local transport")
	}
	return &Local{Dir: dir}, nil
}

// Check makes sure the target directory exists and is a directory.
func (l *Local) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create target dir: %w", err)
	}
	info, err := os.Stat(l.Dir)
	if err != nil {
		return fmt.Errorf("failed to stat target dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("target %s is not a directory", l.Dir)
	}
	return nil
}

// Upload copies localPath to Dir/remotePath.
func (l *Local) Upload(ctx context.Context, localPath, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := l.target(remotePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create remote folder: %w", err)
	}

	in, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer in.Close()

	tmp := dst + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	if _, err := io.Copy(out, &ctxReader{ctx: ctx, r: in}); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("copy failed: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}
	log.Printf("Transport: copied %s to %s", localPath, dst)
	return nil
}

func (l *Local) target(remotePath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash("/" + remotePath))
	if clean == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRemotePath, remotePath)
	}
	return filepath.Join(l.Dir, clean), nil
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
