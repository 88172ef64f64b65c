package store

import (
	"database/sql"
	"fmt"
)

// Snapshot buffers one version's rows in memory using fake (negative) IDs,
// so the graph builder can wire files, symbols, and edges together before
// anything touches SQLite. CommitSnapshot writes the whole version in a
// single transaction, remapping fake IDs to real ones.
//
// Not safe for concurrent use: the builder aggregates serially to keep ID
// assignment deterministic.
type Snapshot struct {
	RootPath string
	Version  Version // RepoID and ID are assigned at commit

	Files   []File
	Symbols []Symbol
	Edges   []Edge

	nextFakeID int64 // starts at -1, decrements
}

// NewSnapshot starts an empty snapshot for the repository at rootPath.
func NewSnapshot(rootPath string, v Version) *Snapshot {
	return &Snapshot{
		RootPath:   rootPath,
		Version:    v,
		nextFakeID: -1,
	}
}

func (sn *Snapshot) allocFakeID() int64 {
	id := sn.nextFakeID
	sn.nextFakeID--
	return id
}

// AddFile buffers a file row and returns its fake ID.
func (sn *Snapshot) AddFile(f File) int64 {
	f.ID = sn.allocFakeID()
	sn.Files = append(sn.Files, f)
	return f.ID
}

// AddSymbol buffers a symbol row and returns its fake ID. FileID may be a
// fake ID from AddFile.
func (sn *Snapshot) AddSymbol(sym Symbol) int64 {
	sym.ID = sn.allocFakeID()
	sn.Symbols = append(sn.Symbols, sym)
	return sym.ID
}

// AddEdge buffers an edge row. SourceID and TargetID may be fake IDs from
// AddSymbol.
func (sn *Snapshot) AddEdge(e Edge) int64 {
	e.ID = sn.allocFakeID()
	sn.Edges = append(sn.Edges, e)
	return e.ID
}

// CommitSnapshot inserts one buffered version into SQLite within a single
// transaction. Fake (negative) IDs are remapped to real (positive) rowids,
// and all FK references within the snapshot are rewritten via the
// fakeToReal mapping.
//
// Insert order respects FK dependencies:
//  1. Repository (get-or-create by root path)
//  2. Version
//  3. Files (depend on version_id)
//  4. Symbols (depend on file_id)
//  5. Edges (depend on source_id, target_id)
func (s *Store) CommitSnapshot(snap *Snapshot) (*Version, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("commit snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	repoID, err := getOrCreateRepositoryTx(tx, snap.RootPath, snap.Version)
	if err != nil {
		return nil, fmt.Errorf("commit snapshot: repository %q: %w", snap.RootPath, err)
	}

	v := snap.Version
	v.RepoID = repoID
	res, err := tx.Exec(
		`INSERT INTO repo_versions (repo_id, scan_id, commit_hash, created_at, complexity_score, risk_score)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		v.RepoID, v.ScanID, v.CommitHash, v.CreatedAt, v.ComplexityScore, v.RiskScore,
	)
	if err != nil {
		return nil, fmt.Errorf("commit snapshot: version %q: %w", v.ScanID, err)
	}
	if v.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("commit snapshot: version id: %w", err)
	}

	fakeToReal := make(map[int64]int64, len(snap.Files)+len(snap.Symbols))

	for _, f := range snap.Files {
		f.VersionID = v.ID
		realID, err := insertFileTx(tx, &f)
		if err != nil {
			return nil, fmt.Errorf("commit snapshot: file %q: %w", f.Path, err)
		}
		fakeToReal[f.ID] = realID
	}

	for _, sym := range snap.Symbols {
		if sym.FileID < 0 {
			realID, ok := fakeToReal[sym.FileID]
			if !ok {
				return nil, fmt.Errorf("commit snapshot: symbol %q references unknown file id %d", sym.Name, sym.FileID)
			}
			sym.FileID = realID
		}
		realID, err := insertSymbolTx(tx, &sym)
		if err != nil {
			return nil, fmt.Errorf("commit snapshot: symbol %q: %w", sym.Name, err)
		}
		fakeToReal[sym.ID] = realID
	}

	for _, e := range snap.Edges {
		if e.SourceID < 0 {
			e.SourceID = fakeToReal[e.SourceID]
		}
		if e.TargetID < 0 {
			e.TargetID = fakeToReal[e.TargetID]
		}
		if e.SourceID == 0 || e.TargetID == 0 {
			return nil, fmt.Errorf("commit snapshot: %s edge references unknown symbol", e.Relation)
		}
		if _, err := insertEdgeTx(tx, &e); err != nil {
			return nil, fmt.Errorf("commit snapshot: %s edge: %w", e.Relation, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit snapshot: %w", err)
	}
	return &v, nil
}

// getOrCreateRepositoryTx resolves the repository row for a root path.
// INSERT OR IGNORE against the UNIQUE root_path keeps concurrent first
// builds of the same root race-free.
func getOrCreateRepositoryTx(tx *sql.Tx, rootPath string, v Version) (int64, error) {
	if _, err := tx.Exec(
		"INSERT OR IGNORE INTO repositories (root_path, created_at) VALUES (?, ?)",
		rootPath, v.CreatedAt,
	); err != nil {
		return 0, err
	}
	var id int64
	if err := tx.QueryRow("SELECT id FROM repositories WHERE root_path = ?", rootPath).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// --- Transaction-scoped insert helpers ---
// These accept *sql.Tx so CommitSnapshot controls the transaction boundary.

func insertFileTx(tx *sql.Tx, f *File) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO graph_files (version_id, path, module_name) VALUES (?, ?, ?)",
		f.VersionID, f.Path, f.ModuleName,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertSymbolTx(tx *sql.Tx, sym *Symbol) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO symbols (file_id, name, qualified_name, type, start_line, end_line)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sym.FileID, sym.Name, sym.QualifiedName, sym.Kind, sym.StartLine, sym.EndLine,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertEdgeTx(tx *sql.Tx, e *Edge) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO edges (source_id, target_id, relation) VALUES (?, ?, ?)",
		e.SourceID, e.TargetID, e.Relation,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
