package walker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestWalkFindsMediaAndSidecar(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.mp4"))
	writeFile(t, filepath.Join(root, "a.srt"))
	writeFile(t, filepath.Join(root, "sub", "b.mkv"))
	writeFile(t, filepath.Join(root, "ignore.txt"))

	files, err := Walk(context.Background(), Options{
		Roots:      []string{root},
		Extensions: []string{".mp4", ".mkv"},
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2: %+v", len(files), files)
	}

	var a, b bool
	for _, f := range files {
		switch filepath.Base(f.Media) {
		case "a.mp4":
			a = true
			if f.Subtitles == "" || filepath.Base(f.Subtitles) != "a.srt" {
				t.Errorf("a.mp4 subtitles = %q, want a.srt", f.Subtitles)
			}
		case "b.mkv":
			b = true
			if f.Subtitles != "" {
				t.Errorf("b.mkv subtitles = %q, want none", f.Subtitles)
			}
		}
	}
	if !a || !b {
		t.Fatalf("missing expected files: %+v", files)
	}
}

func TestWalkMultipleRootsConcurrent(t *testing.T) {
	root1 := t.TempDir()
	root2 := t.TempDir()
	writeFile(t, filepath.Join(root1, "x.mp4"))
	writeFile(t, filepath.Join(root2, "y.mp4"))

	files, err := Walk(context.Background(), Options{
		Roots:      []string{root1, root2},
		Extensions: []string{".mp4"},
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
}

func TestWalkAppliesMinDurationFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "short.mp4"))
	writeFile(t, filepath.Join(root, "long.mp4"))

	probe := func(ctx context.Context, path string) (float64, error) {
		if filepath.Base(path) == "short.mp4" {
			return 2, nil
		}
		return 30, nil
	}

	files, err := Walk(context.Background(), Options{
		Roots:         []string{root},
		Extensions:    []string{".mp4"},
		MinDurationS:  10,
		ProbeDuration: probe,
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0].Media) != "long.mp4" {
		t.Fatalf("files = %+v, want only long.mp4", files)
	}
}

func TestWalkFailsOnMissingRoot(t *testing.T) {
	_, err := Walk(context.Background(), Options{
		Roots:      []string{filepath.Join(t.TempDir(), "does-not-exist")},
		Extensions: []string{".mp4"},
	})
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}
