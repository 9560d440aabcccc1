// Package download streams a file over HTTP to a target path, atomically,
// so a crash mid-transfer never leaves a partial file at the final path.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ProgressFunc is called periodically during a transfer with bytes read so
// far and the total, when known (total is -1 if the server omitted
// Content-Length).
type ProgressFunc func(read, total int64)

// progressReader wraps an io.Reader, tracking how many bytes have been read
// and invoking a callback after each chunk.
type progressReader struct {
	inner    io.Reader
	total    int64
	read     int64
	onChange ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.inner.Read(buf)
	if n > 0 {
		p.read += int64(n)
		if p.onChange != nil {
			p.onChange(p.read, p.total)
		}
	}
	return n, err
}

// ToFile downloads url and writes it to target. It streams the body to a
// uniquely named sibling temp file and renames it into place only after the
// full transfer succeeds, so target never observes a partial file, and two
// concurrent downloads of the same target never collide on the same temp
// file. Any error removes the temp file.
func ToFile(ctx context.Context, url, target string, onProgress ProgressFunc) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("ensure download directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	tmpPath := target + "." + uuid.NewString() + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file %s: %w", tmpPath, err)
	}

	reader := &progressReader{inner: resp.Body, total: resp.ContentLength, onChange: onProgress}
	_, copyErr := io.Copy(out, reader)
	closeErr := out.Close()

	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmpPath)
		if copyErr != nil {
			return fmt.Errorf("download %s: %w", url, copyErr)
		}
		return fmt.Errorf("close temp file %s: %w", tmpPath, closeErr)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s to %s: %w", tmpPath, target, err)
	}
	return nil
}
