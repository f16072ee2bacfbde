package store

import "fmt"

// SetGlobs replaces the resolved glob patterns recorded for a file. The
// file must exist.
func (s *Store) SetGlobs(relPath string, patterns []string) error {
	if _, err := s.q.Exec("DELETE FROM globs WHERE rel_path=?", relPath); err != nil {
		return fmt.Errorf("clear globs %s: %w", relPath, err)
	}
	for _, p := range patterns {
		if _, err := s.q.Exec("INSERT OR IGNORE INTO globs (rel_path, pattern) VALUES (?, ?)", relPath, p); err != nil {
			return fmt.Errorf("insert glob %s: %w", relPath, err)
		}
	}
	return nil
}

// AllGlobs returns the recorded patterns of every file, keyed by relative
// path, each list in insertion order.
func (s *Store) AllGlobs() (map[string][]string, error) {
	rows, err := s.q.Query("SELECT rel_path, pattern FROM globs ORDER BY rel_path, rowid")
	if err != nil {
		return nil, fmt.Errorf("all globs: %w", err)
	}
	defer rows.Close()
	result := make(map[string][]string)
	for rows.Next() {
		var path, p string
		if err := rows.Scan(&path, &p); err != nil {
			return nil, err
		}
		result[path] = append(result[path], p)
	}
	return result, rows.Err()
}
