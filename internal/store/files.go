package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// File is the cached build state of one source file.
type File struct {
	RelPath string
	// SourceHash is the content hash of the source.
	SourceHash string
	// ExpansionHash fingerprints the matched file lists of its glob calls.
	ExpansionHash string
	// OutputPath is where the transformed file was written, "" if the
	// file had nothing to rewrite.
	OutputPath    string
	TransformedAt string
}

// UpsertFile stores the build state of a file.
func (s *Store) UpsertFile(f *File) error {
	if f.TransformedAt == "" {
		f.TransformedAt = Now()
	}
	_, err := s.q.Exec(`
		INSERT INTO files (rel_path, source_hash, expansion_hash, output_path, transformed_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(rel_path) DO UPDATE SET source_hash=excluded.source_hash, expansion_hash=excluded.expansion_hash,
			output_path=excluded.output_path, transformed_at=excluded.transformed_at`,
		f.RelPath, f.SourceHash, f.ExpansionHash, f.OutputPath, f.TransformedAt)
	if err != nil {
		return fmt.Errorf("upsert file %s: %w", f.RelPath, err)
	}
	return nil
}

// GetFile returns the state of a file, or nil if it is not cached.
func (s *Store) GetFile(relPath string) (*File, error) {
	var f File
	err := s.q.QueryRow(`SELECT rel_path, source_hash, expansion_hash, output_path, transformed_at FROM files WHERE rel_path=?`, relPath).
		Scan(&f.RelPath, &f.SourceHash, &f.ExpansionHash, &f.OutputPath, &f.TransformedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", relPath, err)
	}
	return &f, nil
}

// ListFiles returns all cached files keyed by relative path.
func (s *Store) ListFiles() (map[string]*File, error) {
	rows, err := s.q.Query(`SELECT rel_path, source_hash, expansion_hash, output_path, transformed_at FROM files`)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()
	result := make(map[string]*File)
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.RelPath, &f.SourceHash, &f.ExpansionHash, &f.OutputPath, &f.TransformedAt); err != nil {
			return nil, err
		}
		result[f.RelPath] = &f
	}
	return result, rows.Err()
}

// DeleteFile deletes a file and its globs (CASCADE).
func (s *Store) DeleteFile(relPath string) error {
	_, err := s.q.Exec("DELETE FROM files WHERE rel_path=?", relPath)
	return err
}
