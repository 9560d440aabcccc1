package searchidx

import (
	"path/filepath"
	"testing"

	"github.com/grapesalt/engram/internal/model"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Create(filepath.Join(t.TempDir(), "idx.bleve"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestAddAndSearchPhrase(t *testing.T) {
	idx := newTestIndex(t)
	segs := []model.Segment{
		{StartMS: 1000, EndMS: 2500, Text: "hello world"},
		{StartMS: 3000, EndMS: 4000, Text: "goodbye"},
	}
	if err := idx.AddMediaFile("/m/a.mp4", segs); err != nil {
		t.Fatalf("AddMediaFile: %v", err)
	}

	hits, err := idx.Search("hello world", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1: %+v", len(hits), hits)
	}
	if hits[0].Path != "/m/a.mp4" || hits[0].StartMS != 1000 || hits[0].EndMS != 2500 {
		t.Fatalf("unexpected hit: %+v", hits[0])
	}

	if hits, err := idx.Search("hello quux", 10); err != nil || len(hits) != 0 {
		t.Fatalf("Search(hello quux) = %+v, %v, want no hits", hits, err)
	}
}

func TestSearchQuotedPassthrough(t *testing.T) {
	idx := newTestIndex(t)
	segs := []model.Segment{{StartMS: 0, EndMS: 1000, Text: "foo bar baz"}}
	if err := idx.AddMediaFile("/m/b.mkv", segs); err != nil {
		t.Fatalf("AddMediaFile: %v", err)
	}

	for _, q := range []string{`"bar baz"`, "bar baz"} {
		hits, err := idx.Search(q, 10)
		if err != nil {
			t.Fatalf("Search(%q): %v", q, err)
		}
		if len(hits) != 1 {
			t.Fatalf("Search(%q) = %d hits, want 1", q, len(hits))
		}
	}

	hits, err := idx.Search("bar quux", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("Search(bar quux) = %d hits, want 0", len(hits))
	}
}

func TestRemoveMediaFileDeletesAllSegments(t *testing.T) {
	idx := newTestIndex(t)
	segs := []model.Segment{
		{StartMS: 0, EndMS: 1000, Text: "one"},
		{StartMS: 1000, EndMS: 2000, Text: "two"},
	}
	if err := idx.AddMediaFile("/m/c.mp4", segs); err != nil {
		t.Fatalf("AddMediaFile: %v", err)
	}
	if err := idx.RemoveMediaFile("/m/c.mp4"); err != nil {
		t.Fatalf("RemoveMediaFile: %v", err)
	}
	has, err := idx.HasMediaFile("/m/c.mp4")
	if err != nil {
		t.Fatalf("HasMediaFile: %v", err)
	}
	if has {
		t.Fatal("expected no documents after RemoveMediaFile")
	}
	if hits, err := idx.Search("one", 10); err != nil || len(hits) != 0 {
		t.Fatalf("Search(one) after remove = %+v, %v", hits, err)
	}
}

func TestUpdateMediaFileReplacesSegments(t *testing.T) {
	idx := newTestIndex(t)
	if err := idx.AddMediaFile("/m/d.mp4", []model.Segment{{StartMS: 0, EndMS: 1000, Text: "hello"}}); err != nil {
		t.Fatalf("AddMediaFile: %v", err)
	}
	if err := idx.UpdateMediaFile("/m/d.mp4", []model.Segment{{StartMS: 0, EndMS: 1000, Text: "goodbye"}}); err != nil {
		t.Fatalf("UpdateMediaFile: %v", err)
	}

	if hits, err := idx.Search("hello", 10); err != nil || len(hits) != 0 {
		t.Fatalf("Search(hello) after update = %+v, %v, want none", hits, err)
	}
	hits, err := idx.Search("goodbye", 10)
	if err != nil {
		t.Fatalf("Search(goodbye): %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("Search(goodbye) = %d hits, want 1", len(hits))
	}
}

func TestPathFieldIsExactNotPrefix(t *testing.T) {
	idx := newTestIndex(t)
	if err := idx.AddMediaFile("/m/e.mp4", []model.Segment{{StartMS: 0, EndMS: 1000, Text: "match"}}); err != nil {
		t.Fatalf("AddMediaFile: %v", err)
	}
	if err := idx.AddMediaFile("/m/e.mp4.bak", []model.Segment{{StartMS: 0, EndMS: 1000, Text: "match"}}); err != nil {
		t.Fatalf("AddMediaFile: %v", err)
	}
	if err := idx.RemoveMediaFile("/m/e.mp4"); err != nil {
		t.Fatalf("RemoveMediaFile: %v", err)
	}
	has, err := idx.HasMediaFile("/m/e.mp4.bak")
	if err != nil {
		t.Fatalf("HasMediaFile: %v", err)
	}
	if !has {
		t.Fatal("removing /m/e.mp4 should not remove /m/e.mp4.bak")
	}
}
