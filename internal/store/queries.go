package store

import (
	"database/sql"
	"fmt"
)

// --- Version lookups ---

const versionCols = "id, repo_id, scan_id, commit_hash, created_at, complexity_score, risk_score"

func scanVersion(scanner interface{ Scan(...any) error }) (*Version, error) {
	v := &Version{}
	err := scanner.Scan(
		&v.ID, &v.RepoID, &v.ScanID, &v.CommitHash, &v.CreatedAt,
		&v.ComplexityScore, &v.RiskScore,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// VersionByScanID returns the most recent version recorded under scanID, or
// (nil, nil) when none exists. Rebuilding under the same scan id creates a
// newer version; the latest one wins.
func (s *Store) VersionByScanID(scanID string) (*Version, error) {
	row := s.db.QueryRow(
		"SELECT "+versionCols+" FROM repo_versions WHERE scan_id = ? ORDER BY id DESC LIMIT 1", scanID,
	)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("version by scan id: %w", err)
	}
	return v, nil
}

// ListVersions returns all versions newest-first, with repository root and
// file count attached. A non-empty rootPath restricts the listing to one
// repository.
func (s *Store) ListVersions(rootPath string) ([]*VersionSummary, error) {
	query := `SELECT v.id, v.repo_id, v.scan_id, v.commit_hash, v.created_at,
		v.complexity_score, v.risk_score, r.root_path,
		(SELECT COUNT(*) FROM graph_files f WHERE f.version_id = v.id)
	FROM repo_versions v
	JOIN repositories r ON v.repo_id = r.id`
	var args []any
	if rootPath != "" {
		query += " WHERE r.root_path = ?"
		args = append(args, rootPath)
	}
	query += " ORDER BY v.id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []*VersionSummary
	for rows.Next() {
		vs := &VersionSummary{}
		if err := rows.Scan(
			&vs.ID, &vs.RepoID, &vs.ScanID, &vs.CommitHash, &vs.CreatedAt,
			&vs.ComplexityScore, &vs.RiskScore, &vs.RootPath, &vs.FileCount,
		); err != nil {
			return nil, fmt.Errorf("scan version summary: %w", err)
		}
		out = append(out, vs)
	}
	return out, rows.Err()
}

// RepositoryByRootPath returns the repository row for a root path, or
// (nil, nil) when the root has never been built.
func (s *Store) RepositoryByRootPath(rootPath string) (*Repository, error) {
	r := &Repository{}
	err := s.db.QueryRow(
		"SELECT id, root_path, created_at FROM repositories WHERE root_path = ?", rootPath,
	).Scan(&r.ID, &r.RootPath, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repository by root path: %w", err)
	}
	return r, nil
}

// --- Version contents ---
// All loads are ordered by rowid so identity assignment stays reproducible
// across reads.

func (s *Store) FilesByVersion(versionID int64) ([]*File, error) {
	rows, err := s.db.Query(
		"SELECT id, version_id, path, module_name FROM graph_files WHERE version_id = ? ORDER BY id", versionID,
	)
	if err != nil {
		return nil, fmt.Errorf("files by version: %w", err)
	}
	defer rows.Close()

	var files []*File
	for rows.Next() {
		f := &File{}
		if err := rows.Scan(&f.ID, &f.VersionID, &f.Path, &f.ModuleName); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *Store) SymbolsByVersion(versionID int64) ([]*Symbol, error) {
	rows, err := s.db.Query(
		`SELECT s.id, s.file_id, s.name, s.qualified_name, s.type, s.start_line, s.end_line
		 FROM symbols s
		 JOIN graph_files f ON s.file_id = f.id
		 WHERE f.version_id = ?
		 ORDER BY s.id`, versionID,
	)
	if err != nil {
		return nil, fmt.Errorf("symbols by version: %w", err)
	}
	defer rows.Close()

	var symbols []*Symbol
	for rows.Next() {
		sym := &Symbol{}
		if err := rows.Scan(
			&sym.ID, &sym.FileID, &sym.Name, &sym.QualifiedName, &sym.Kind,
			&sym.StartLine, &sym.EndLine,
		); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

func (s *Store) EdgesByVersion(versionID int64) ([]*Edge, error) {
	rows, err := s.db.Query(
		`SELECT e.id, e.source_id, e.target_id, e.relation
		 FROM edges e
		 JOIN symbols s ON e.source_id = s.id
		 JOIN graph_files f ON s.file_id = f.id
		 WHERE f.version_id = ?
		 ORDER BY e.id`, versionID,
	)
	if err != nil {
		return nil, fmt.Errorf("edges by version: %w", err)
	}
	defer rows.Close()

	var edges []*Edge
	for rows.Next() {
		e := &Edge{}
		if err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.Relation); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
