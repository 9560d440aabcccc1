package catalog

import (
	"fmt"

	"github.com/grapesalt/engram/internal/model"
)

// Record is the persisted catalog entry for one media file.
type Record struct {
	Path               string
	ModifiedAt         int64
	FileSize           int64
	HasSubtitles       bool
	TranscriptionModel *model.Model // nil iff HasSubtitles
	IndexedAt          int64
}

// Validate enforces I1: either HasSubtitles and no model, or not
// HasSubtitles and a model is set.
func (r Record) Validate() error {
	if r.HasSubtitles && r.TranscriptionModel != nil {
		return fmt.Errorf("record for %q has subtitles but also a transcription model", r.Path)
	}
	if !r.HasSubtitles && r.TranscriptionModel == nil {
		return fmt.Errorf("record for %q has no subtitles and no transcription model", r.Path)
	}
	return nil
}
