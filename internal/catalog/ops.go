package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/grapesalt/engram/internal/model"
)

// UpsertRecord inserts or replaces the catalog entry for rec.Path, stamping
// IndexedAt with the current time.
func (s *Store) UpsertRecord(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.IndexedAt = time.Now().Unix()

	var modelOrdinal any
	if rec.TranscriptionModel != nil {
		modelOrdinal = int(*rec.TranscriptionModel)
	}

	_, err := s.execWithRetry(ctx, `
		INSERT INTO indexed_files (path, modified_at, file_size, has_subtitles, transcription_model, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			modified_at = excluded.modified_at,
			file_size = excluded.file_size,
			has_subtitles = excluded.has_subtitles,
			transcription_model = excluded.transcription_model,
			indexed_at = excluded.indexed_at
	`, rec.Path, rec.ModifiedAt, rec.FileSize, rec.HasSubtitles, modelOrdinal, rec.IndexedAt)
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", rec.Path, err)
	}
	return nil
}

// GetRecord looks up the catalog entry for path, returning (Record{}, false,
// nil) if none exists.
func (s *Store) GetRecord(ctx context.Context, path string) (Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT path, modified_at, file_size, has_subtitles, transcription_model, indexed_at
		FROM indexed_files WHERE path = ?
	`, path)

	var (
		rec          Record
		hasSubtitles int
		modelOrdinal sql.NullInt64
	)
	if err := row.Scan(&rec.Path, &rec.ModifiedAt, &rec.FileSize, &hasSubtitles, &modelOrdinal, &rec.IndexedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("get record %s: %w", path, err)
	}
	rec.HasSubtitles = hasSubtitles != 0
	if modelOrdinal.Valid {
		m := model.Model(modelOrdinal.Int64)
		rec.TranscriptionModel = &m
	}
	return rec, true, nil
}

// RemoveRecord deletes the catalog entry for path; its transcript rows
// cascade via the foreign key.
func (s *Store) RemoveRecord(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeRecordLocked(ctx, path)
}

func (s *Store) removeRecordLocked(ctx context.Context, path string) error {
	_, err := s.execWithRetry(ctx, "DELETE FROM indexed_files WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("remove record %s: %w", path, err)
	}
	return nil
}

// IsUpToDate reports whether a record exists for path whose modified_at and
// file_size exactly match mtime and size (I4).
func (s *Store) IsUpToDate(ctx context.Context, path string, mtime, size int64) (bool, error) {
	rec, ok, err := s.GetRecord(ctx, path)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return rec.ModifiedAt == mtime && rec.FileSize == size, nil
}

// AllPaths returns every path currently in the catalog.
func (s *Store) AllPaths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path FROM indexed_files")
	if err != nil {
		return nil, fmt.Errorf("list paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan path: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

// StoreSegments replaces the transcript rows for path with segments, in
// order, inside a single transaction.
func (s *Store) StoreSegments(ctx context.Context, path string, segments []model.Segment) error {
	for _, seg := range segments {
		if err := seg.Validate(); err != nil {
			return fmt.Errorf("store segments for %s: %w", path, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin store segments tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM transcriptions WHERE file_path = ?", path); err != nil {
		return fmt.Errorf("clear segments for %s: %w", path, err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO transcriptions (file_path, start_ms, end_ms, text) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert segment: %w", err)
	}
	defer stmt.Close()

	for _, seg := range segments {
		if _, err := stmt.ExecContext(ctx, path, seg.StartMS, seg.EndMS, seg.Text); err != nil {
			return fmt.Errorf("insert segment for %s: %w", path, err)
		}
	}

	return tx.Commit()
}

// LoadSegments returns the transcript segments for path, ordered by
// start_ms ascending, or (nil, false, nil) when none exist.
func (s *Store) LoadSegments(ctx context.Context, path string) ([]model.Segment, bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT start_ms, end_ms, text FROM transcriptions
		WHERE file_path = ? ORDER BY start_ms ASC
	`, path)
	if err != nil {
		return nil, false, fmt.Errorf("load segments for %s: %w", path, err)
	}
	defer rows.Close()

	var segments []model.Segment
	for rows.Next() {
		var seg model.Segment
		if err := rows.Scan(&seg.StartMS, &seg.EndMS, &seg.Text); err != nil {
			return nil, false, fmt.Errorf("scan segment for %s: %w", path, err)
		}
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	if len(segments) == 0 {
		return nil, false, nil
	}
	return segments, true, nil
}

// PruneMissing removes every catalog record whose path no longer exists on
// disk, returning the removed paths (I3) so callers can mirror the removal
// into the search index.
func (s *Store) PruneMissing(ctx context.Context) ([]string, error) {
	paths, err := s.AllPaths(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("stat %s: %w", path, err)
		}
		if err := s.removeRecordLocked(ctx, path); err != nil {
			return removed, err
		}
		removed = append(removed, path)
	}
	return removed, nil
}
