// Package searchidx is the full-text search index over transcript segments,
// backed by a bleve index. One document per segment; the docs for a media
// file share its path as a non-analyzed keyword field so they can be
// deleted as a group when the file is re-indexed or removed.
package searchidx

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/grapesalt/engram/internal/model"
)

// SearchError wraps a failure from the underlying bleve index: open/create,
// query parsing, or a malformed stored field on a retrieved hit.
var SearchError = fmt.Errorf("search index error")

// Hit is one scored match: a segment plus the score bleve assigned it.
type Hit struct {
	Path    string
	StartMS int64
	EndMS   int64
	Text    string
	Score   float64
}

// Index is the search index wrapper. All writes go through a single
// internal mutex: bleve permits only one writer at a time against a given
// index directory, and the orchestrator may have several worker goroutines
// racing to update it.
type Index struct {
	mu  sync.Mutex
	idx bleve.Index
}

// segmentDoc is the document bleve stores and indexes for one segment.
type segmentDoc struct {
	Path      string `json:"path"`
	Text      string `json:"text"`
	StartMS   int64  `json:"start_ms"`
	EndMS     int64  `json:"end_ms"`
	SegmentID int64  `json:"segment_id"`
}

func buildMapping() *bleve.IndexMapping {
	pathField := bleve.NewTextFieldMapping()
	pathField.Analyzer = "keyword"
	pathField.Store = true
	pathField.Index = true

	textField := bleve.NewTextFieldMapping()
	textField.Store = true
	textField.Index = true

	numField := bleve.NewNumericFieldMapping()
	numField.Store = true
	numField.Index = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("path", pathField)
	doc.AddFieldMappingsAt("text", textField)
	doc.AddFieldMappingsAt("start_ms", numField)
	doc.AddFieldMappingsAt("end_ms", numField)
	doc.AddFieldMappingsAt("segment_id", numField)

	mapping := bleve.NewIndexMapping()
	mapping.DefaultMapping = doc
	return mapping
}

// Create builds a fresh index at dir with the segment document mapping.
func Create(dir string) (*Index, error) {
	idx, err := bleve.New(dir, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", SearchError, dir, err)
	}
	return &Index{idx: idx}, nil
}

// Open reopens an existing index directory.
func Open(dir string) (*Index, error) {
	idx, err := bleve.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", SearchError, dir, err)
	}
	return &Index{idx: idx}, nil
}

// OpenOrCreate reopens dir if it already holds an index, else creates one.
func OpenOrCreate(dir string) (*Index, error) {
	idx, err := Open(dir)
	if err == nil {
		return idx, nil
	}
	return Create(dir)
}

// Close releases the underlying index handle.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.idx.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", SearchError, err)
	}
	return nil
}

func docID(path string, segmentID int64) string {
	return path + "#" + strconv.FormatInt(segmentID, 10)
}

// AddMediaFile indexes every segment of path as its own document.
func (i *Index) AddMediaFile(path string, segments []model.Segment) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.idx.NewBatch()
	for n, seg := range segments {
		doc := segmentDoc{
			Path:      path,
			Text:      seg.Text,
			StartMS:   seg.StartMS,
			EndMS:     seg.EndMS,
			SegmentID: int64(n),
		}
		if err := batch.Index(docID(path, int64(n)), doc); err != nil {
			return fmt.Errorf("%w: index %s segment %d: %v", SearchError, path, n, err)
		}
	}
	if err := i.idx.Batch(batch); err != nil {
		return fmt.Errorf("%w: batch add %s: %v", SearchError, path, err)
	}
	return nil
}

// RemoveMediaFile deletes every document whose path field equals the exact
// literal path, via a term query (not a prefix match).
func (i *Index) RemoveMediaFile(path string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.removeMediaFileLocked(path)
}

func (i *Index) removeMediaFileLocked(path string) error {
	ids, err := i.matchingDocIDs(path)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	batch := i.idx.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := i.idx.Batch(batch); err != nil {
		return fmt.Errorf("%w: batch delete %s: %v", SearchError, path, err)
	}
	return nil
}

func (i *Index) matchingDocIDs(path string) ([]string, error) {
	termQuery := bleve.NewTermQuery(path)
	termQuery.SetField("path")
	req := bleve.NewSearchRequestOptions(termQuery, i.docCountHint(), 0, false)
	result, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("%w: term query %s: %v", SearchError, path, err)
	}
	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// docCountHint returns a search size large enough to retrieve every segment
// of one media file in a single request.
func (i *Index) docCountHint() int {
	const maxSegmentsPerFile = 1 << 16
	return maxSegmentsPerFile
}

// UpdateMediaFile replaces every document for path: remove then add, so a
// shrinking segment set never leaves stale docs behind.
func (i *Index) UpdateMediaFile(path string, segments []model.Segment) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.removeMediaFileLocked(path); err != nil {
		return err
	}
	batch := i.idx.NewBatch()
	for n, seg := range segments {
		doc := segmentDoc{
			Path:      path,
			Text:      seg.Text,
			StartMS:   seg.StartMS,
			EndMS:     seg.EndMS,
			SegmentID: int64(n),
		}
		if err := batch.Index(docID(path, int64(n)), doc); err != nil {
			return fmt.Errorf("%w: index %s segment %d: %v", SearchError, path, n, err)
		}
	}
	if batch.Size() > 0 {
		if err := i.idx.Batch(batch); err != nil {
			return fmt.Errorf("%w: batch update %s: %v", SearchError, path, err)
		}
	}
	return nil
}

// Commit is a visibility barrier: bleve's Batch already commits durably, so
// this exists to give callers a single named point after which every prior
// write is guaranteed observable to new searches. Exposed so the
// orchestrator can call it once after a pass instead of reasoning about
// per-write visibility.
func (i *Index) Commit() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return nil
}

// HasMediaFile reports whether any document is indexed for path.
func (i *Index) HasMediaFile(path string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	ids, err := i.matchingDocIDs(path)
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// quotePhrase wraps q in double quotes unless it is already a quoted
// phrase, escaping any inner quotes first.
func quotePhrase(q string) string {
	trimmed := strings.TrimSpace(q)
	if len(trimmed) >= 2 && strings.HasPrefix(trimmed, `"`) && strings.HasSuffix(trimmed, `"`) {
		return trimmed
	}
	escaped := strings.ReplaceAll(trimmed, `"`, `\"`)
	return `"` + escaped + `"`
}

// Search runs q (phrase-quoted per quotePhrase) against the text field and
// returns up to limit hits ordered by descending score.
func (i *Index) Search(q string, limit int) ([]Hit, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}
	var asQuery query.Query = bleve.NewQueryStringQuery(fieldScopedQuery(q))
	req := bleve.NewSearchRequestOptions(asQuery, limit, 0, false)
	req.Fields = []string{"path", "text", "start_ms", "end_ms"}
	req.SortBy([]string{"-_score"})

	result, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("%w: query %q: %v", SearchError, q, err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		path, ok := h.Fields["path"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: hit %s missing path field", SearchError, h.ID)
		}
		text, _ := h.Fields["text"].(string)
		startMS, err := fieldInt64(h.Fields["start_ms"])
		if err != nil {
			return nil, fmt.Errorf("%w: hit %s: %v", SearchError, h.ID, err)
		}
		endMS, err := fieldInt64(h.Fields["end_ms"])
		if err != nil {
			return nil, fmt.Errorf("%w: hit %s: %v", SearchError, h.ID, err)
		}
		hits = append(hits, Hit{Path: path, StartMS: startMS, EndMS: endMS, Text: text, Score: h.Score})
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	return hits, nil
}

func fieldScopedQuery(q string) string {
	return "text:" + quotePhrase(q)
}

func fieldInt64(v interface{}) (int64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("expected numeric field, got %T", v)
	}
	return int64(f), nil
}
