// Package store persists facts extracted from CAPL files into a single
// embedded SQLite database and answers the closure/visibility queries the
// rule framework depends on. Schema is additive-only: readers must tolerate
// columns future versions add, never ones this version removes.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/capl-tools/capllint/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
	file_id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_path TEXT UNIQUE NOT NULL,
	last_parsed TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	parse_success BOOLEAN,
	file_hash TEXT
);

CREATE TABLE IF NOT EXISTS symbols (
	symbol_id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL,
	symbol_name TEXT NOT NULL,
	symbol_kind TEXT,
	start_byte INTEGER,
	end_byte INTEGER,
	start_row INTEGER,
	declared_scope TEXT,
	type_text TEXT,
	has_body BOOLEAN,
	param_count INTEGER,
	is_forward_declaration BOOLEAN,
	parent_symbol TEXT,
	statements_before INTEGER,
	FOREIGN KEY (file_id) REFERENCES files(file_id)
);

CREATE TABLE IF NOT EXISTS includes (
	include_id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_file_id INTEGER NOT NULL,
	included_file_id INTEGER,
	include_path TEXT NOT NULL,
	line_number INTEGER,
	is_resolved BOOLEAN,
	FOREIGN KEY (source_file_id) REFERENCES files(file_id),
	FOREIGN KEY (included_file_id) REFERENCES files(file_id)
);

CREATE TABLE IF NOT EXISTS type_definitions (
	type_id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL,
	type_name TEXT NOT NULL,
	type_kind TEXT NOT NULL,
	start_row INTEGER,
	scope TEXT,
	FOREIGN KEY (file_id) REFERENCES files(file_id)
);

CREATE TABLE IF NOT EXISTS symbol_references (
	ref_id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL,
	symbol_name TEXT NOT NULL,
	start_row INTEGER,
	start_column INTEGER,
	reference_type TEXT,
	context TEXT,
	FOREIGN KEY (file_id) REFERENCES files(file_id)
);

CREATE TABLE IF NOT EXISTS message_usage (
	usage_id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL,
	message_name TEXT NOT NULL,
	usage_type TEXT,
	start_row INTEGER,
	FOREIGN KEY (file_id) REFERENCES files(file_id)
);

CREATE TABLE IF NOT EXISTS visibility_edges (
	edge_id INTEGER PRIMARY KEY AUTOINCREMENT,
	from_path TEXT NOT NULL,
	to_path TEXT NOT NULL,
	in_cycle BOOLEAN
);

CREATE INDEX IF NOT EXISTS idx_files_path ON files(file_path);
CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(symbol_name);
CREATE INDEX IF NOT EXISTS idx_includes_source ON includes(source_file_id);
CREATE INDEX IF NOT EXISTS idx_includes_target ON includes(included_file_id);
CREATE INDEX IF NOT EXISTS idx_refs_name ON symbol_references(symbol_name);
CREATE INDEX IF NOT EXISTS idx_visibility_from ON visibility_edges(from_path);
`

// Store is the symbol database: single writer, concurrent readers, within
// one analysis pass.
type Store struct {
	mu sync.RWMutex
	db *sql.DB

	// edgeCache holds the raw include adjacency list; invalidated whenever
	// includes for any file change. reachableCache memoizes the DFS closure
	// per root file on top of it.
	edgeCache      map[string][]string
	edgeCacheBuilt bool
	reachableCache map[string][]string
}

// Open creates or attaches to the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ContentHash returns the content-addressed identity of source, used to
// decide whether facts for a file need recomputation.
func ContentHash(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

// UpsertFile records a file's path and hash, returning its internal id. If
// the file's hash hasn't changed since the last write, callers should skip
// re-extraction entirely; this method itself is unconditional.
func (s *Store) UpsertFile(path string, hash string, parseSuccess bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`
		INSERT INTO files (file_path, parse_success, file_hash)
		VALUES (?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			last_parsed = CURRENT_TIMESTAMP,
			parse_success = excluded.parse_success,
			file_hash = excluded.file_hash
	`, path, parseSuccess, hash); err != nil {
		return 0, fmt.Errorf("upserting file %s: %w", path, err)
	}
	// On the ON CONFLICT UPDATE path SQLite leaves last_insert_rowid at
	// whatever an earlier insert set, so the id is always read back by path.
	var id int64
	row := s.db.QueryRow(`SELECT file_id FROM files WHERE file_path = ?`, path)
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("resolving file id for %s: %w", path, err)
	}
	return id, nil
}

// FileHash returns the stored hash for path, or "" if the file isn't known.
func (s *Store) FileHash(path string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hash sql.NullString
	err := s.db.QueryRow(`SELECT file_hash FROM files WHERE file_path = ?`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("looking up hash for %s: %w", path, err)
	}
	return hash.String, nil
}

// ReplaceSymbols clears and re-inserts every symbol fact for a file.
func (s *Store) ReplaceSymbols(fileID int64, symbols []model.Symbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM symbols WHERE file_id = ?`, fileID); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO symbols (file_id, symbol_name, symbol_kind, start_byte, end_byte,
			start_row, declared_scope, type_text, has_body, param_count,
			is_forward_declaration, parent_symbol, statements_before)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, sym := range symbols {
		if _, err := stmt.Exec(fileID, sym.Name, string(sym.Kind), sym.Range.StartByte, sym.Range.EndByte,
			sym.Range.Start.Row, string(sym.DeclaredInScope), sym.TypeText, sym.HasBody, sym.ParamCount,
			sym.IsForwardDeclaration, sym.ParentSymbol, sym.StatementsBeforeInBlock); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ReplaceReferences clears and re-inserts every reference fact for a file.
func (s *Store) ReplaceReferences(fileID int64, refs []model.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM symbol_references WHERE file_id = ?`, fileID); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO symbol_references (file_id, symbol_name, start_row, start_column, reference_type, context)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ref := range refs {
		if _, err := stmt.Exec(fileID, ref.ReferencedName, ref.Range.Start.Row, ref.Range.Start.Column,
			string(ref.Context), ref.EnclosingSymbol); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ReplaceIncludes clears and re-inserts every include fact for a file, then
// invalidates the cached visibility closure so it gets rebuilt from current
// data on next use.
func (s *Store) ReplaceIncludes(fileID int64, includes []model.Include) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM includes WHERE source_file_id = ?`, fileID); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO includes (source_file_id, include_path, line_number, is_resolved)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, inc := range includes {
		if _, err := stmt.Exec(fileID, inc.TargetText, inc.LineNumber, inc.Resolved()); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.edgeCacheBuilt = false
	s.reachableCache = nil
	return nil
}

// SymbolsIn returns every symbol fact recorded for path.
func (s *Store) SymbolsIn(path string) ([]model.Symbol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT s.symbol_name, s.symbol_kind, s.start_byte, s.end_byte, s.start_row,
			s.declared_scope, s.type_text, s.has_body, s.param_count,
			s.is_forward_declaration, s.parent_symbol, s.statements_before
		FROM symbols s
		JOIN files f ON f.file_id = s.file_id
		WHERE f.file_path = ?
	`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Symbol
	for rows.Next() {
		var sym model.Symbol
		var kind, scope string
		if err := rows.Scan(&sym.Name, &kind, &sym.Range.StartByte, &sym.Range.EndByte, &sym.Range.Start.Row,
			&scope, &sym.TypeText, &sym.HasBody, &sym.ParamCount,
			&sym.IsForwardDeclaration, &sym.ParentSymbol, &sym.StatementsBeforeInBlock); err != nil {
			return nil, err
		}
		sym.DefiningFile = path
		sym.Kind = model.SymbolKind(kind)
		sym.DeclaredInScope = model.DeclaredScope(scope)
		out = append(out, sym)
	}
	return out, rows.Err()
}

// VisibleSymbols returns the union of facts in path and every file
// transitively reachable via #include. Cycle-tolerant: a cycle's members
// all see the union of the cycle's own facts.
func (s *Store) VisibleSymbols(path string) ([]model.Symbol, error) {
	reachable, err := s.reachableFiles(path)
	if err != nil {
		return nil, err
	}
	var all []model.Symbol
	for _, p := range reachable {
		syms, err := s.SymbolsIn(p)
		if err != nil {
			return nil, err
		}
		all = append(all, syms...)
	}
	return all, nil
}

// reachableFiles computes path's transitive include closure via DFS,
// tolerant of cycles: once a file is visited it is never re-expanded.
func (s *Store) reachableFiles(path string) ([]string, error) {
	s.mu.RLock()
	if s.reachableCache != nil {
		if cached, ok := s.reachableCache[path]; ok {
			s.mu.RUnlock()
			return cached, nil
		}
	}
	s.mu.RUnlock()

	edges, err := s.includeEdges()
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{path: true}
	order := []string{path}
	stack := []string{path}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, to := range edges[cur] {
			if visited[to] {
				continue
			}
			visited[to] = true
			order = append(order, to)
			stack = append(stack, to)
		}
	}

	s.mu.Lock()
	if s.reachableCache == nil {
		s.reachableCache = make(map[string][]string)
	}
	s.reachableCache[path] = order
	s.mu.Unlock()

	return order, nil
}

func (s *Store) includeEdges() (map[string][]string, error) {
	s.mu.RLock()
	if s.edgeCacheBuilt {
		edges := s.edgeCache
		s.mu.RUnlock()
		return edges, nil
	}
	s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT f.file_path, i.include_path
		FROM includes i
		JOIN files f ON f.file_id = i.source_file_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edges := make(map[string][]string)
	for rows.Next() {
		var from, to string
		if err := rows.Scan(&from, &to); err != nil {
			return nil, err
		}
		edges[from] = append(edges[from], to)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.edgeCache = edges
	s.edgeCacheBuilt = true
	s.reachableCache = nil
	s.mu.Unlock()

	return edges, nil
}

// IncludeCycles returns every cycle found in the include graph, each
// reported once and named by its lexicographically smallest member file
// (the deterministic ordering W001 requires).
func (s *Store) IncludeCycles() ([][]string, error) {
	edges, err := s.includeEdges()
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]bool)
	for from, tos := range edges {
		nodes[from] = true
		for _, to := range tos {
			nodes[to] = true
		}
	}

	sccs := tarjanSCC(nodes, edges)

	var cycles [][]string
	for _, scc := range sccs {
		if len(scc) < 2 {
			// self-include edge counts as a one-node cycle
			if len(scc) == 1 && hasSelfEdge(edges, scc[0]) {
				cycles = append(cycles, scc)
			}
			continue
		}
		sort.Strings(scc)
		cycles = append(cycles, scc)
	}

	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles, nil
}

func hasSelfEdge(edges map[string][]string, node string) bool {
	for _, to := range edges[node] {
		if to == node {
			return true
		}
	}
	return false
}

// tarjanSCC computes strongly connected components; a component of size >1
// (or size 1 with a self-loop) is a cycle.
func tarjanSCC(nodes map[string]bool, edges map[string][]string) [][]string {
	index := 0
	indices := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	var result [][]string

	var ordered []string
	for n := range nodes {
		ordered = append(ordered, n)
	}
	sort.Strings(ordered)

	var strongconnect func(v string)
	strongconnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		neighbors := append([]string{}, edges[v]...)
		sort.Strings(neighbors)
		for _, w := range neighbors {
			if _, seen := indices[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			result = append(result, scc)
		}
	}

	for _, n := range ordered {
		if _, seen := indices[n]; !seen {
			strongconnect(n)
		}
	}
	return result
}

// DuplicateFunctions returns names with more than one (kind=function,
// has_body=true) definition across the project.
func (s *Store) DuplicateFunctions() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT symbol_name
		FROM symbols
		WHERE symbol_kind = 'function' AND has_body = 1
		GROUP BY symbol_name
		HAVING COUNT(*) > 1
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, rows.Err()
}

// ReferencesTo returns every reference to name across the project.
func (s *Store) ReferencesTo(name string) ([]model.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT f.file_path, sr.start_row, sr.start_column, sr.reference_type, sr.context
		FROM symbol_references sr
		JOIN files f ON f.file_id = sr.file_id
		WHERE sr.symbol_name = ?
	`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Reference
	for rows.Next() {
		var ref model.Reference
		var ctx string
		if err := rows.Scan(&ref.File, &ref.Range.Start.Row, &ref.Range.Start.Column, &ctx, &ref.EnclosingSymbol); err != nil {
			return nil, err
		}
		ref.ReferencedName = name
		ref.Context = model.ReferenceContext(ctx)
		out = append(out, ref)
	}
	return out, rows.Err()
}

// ReferencesFrom returns every reference recorded for file path.
func (s *Store) ReferencesFrom(path string) ([]model.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT sr.symbol_name, sr.start_row, sr.start_column, sr.reference_type, sr.context
		FROM symbol_references sr
		JOIN files f ON f.file_id = sr.file_id
		WHERE f.file_path = ?
	`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Reference
	for rows.Next() {
		var ref model.Reference
		var ctx string
		if err := rows.Scan(&ref.ReferencedName, &ref.Range.Start.Row, &ref.Range.Start.Column, &ctx, &ref.EnclosingSymbol); err != nil {
			return nil, err
		}
		ref.File = path
		ref.Context = model.ReferenceContext(ctx)
		out = append(out, ref)
	}
	return out, rows.Err()
}
