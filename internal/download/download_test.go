package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestToFile_AtomicRenameOnSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("model-bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	target := filepath.Join(dir, "model.bin")

	var lastRead int64
	err := ToFile(context.Background(), server.URL, target, func(read, total int64) {
		lastRead = read
	})
	if err != nil {
		t.Fatalf("ToFile: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if string(data) != "model-bytes" {
		t.Fatalf("target contents = %q", data)
	}
	if lastRead != int64(len("model-bytes")) {
		t.Fatalf("lastRead = %d, want %d", lastRead, len("model-bytes"))
	}
	assertNoLeftoverTempFiles(t, dir)
}

func TestToFile_RemovesTempFileOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dir := t.TempDir()
	target := filepath.Join(dir, "model.bin")

	if err := ToFile(context.Background(), server.URL, target, nil); err == nil {
		t.Fatal("expected error for 500 response")
	}
	if _, err := os.Stat(target); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no target file, stat err = %v", err)
	}
	assertNoLeftoverTempFiles(t, dir)
}

func assertNoLeftoverTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no leftover temp files, found %v", matches)
	}
}
