package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/chajda/internal/models"
)

const (
	conceptTable = "concepts"
	literalTable = "literal_props"
	uriTable     = "uri_props"
)

var upsertConceptSQL = fmt.Sprintf(
	`INSERT INTO %q (concept_id, type) VALUES (?, ?)
	 ON CONFLICT(concept_id) DO UPDATE SET type = excluded.type`, conceptTable)

// SQLiteStore implements Store over a single SQLite snapshot file.
type SQLiteStore struct {
	mu      sync.RWMutex
	db      *sql.DB
	path    string
	mapping *Mapping
	// schemaErr is the resolution failure for this connection, if any.
	// Every literal/relation query surfaces it until Reopen succeeds.
	schemaErr error
	// ftsVerified is set after the mirror/base row counts have been
	// compared for this connection. Writes through this store keep the
	// mirror consistent, so one check per connection suffices.
	ftsVerified bool
}

// NewSQLiteStore opens or creates a snapshot at dbPath. An existing snapshot
// has its schema resolved (tolerating foreign column naming); a fresh file
// is initialized with the canonical schema. The full-text mirror is created
// and backfilled if missing.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	s := &SQLiteStore{path: dbPath}
	if err := s.open(dbPath); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) open(dbPath string) error {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	existed := fileExists(dbPath)

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable WAL: %w", err)
	}

	if !existed {
		if err := initSchema(db); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	mapping, schemaErr := ResolveSchema(db)
	if schemaErr == nil {
		ensureIndexes(db, mapping)
		if err := ensureMirror(db, mapping); err != nil {
			_ = db.Close()
			return err
		}
	}

	s.mu.Lock()
	s.db = db
	s.path = dbPath
	s.mapping = mapping
	s.schemaErr = schemaErr
	s.ftsVerified = false
	s.mu.Unlock()
	return nil
}

func initSchema(db *sql.DB) error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %q (
		concept_id TEXT PRIMARY KEY,
		type TEXT
	);

	CREATE TABLE IF NOT EXISTS %q (
		concept_id TEXT NOT NULL,
		prop TEXT NOT NULL,
		value TEXT NOT NULL,
		lang TEXT,
		UNIQUE(concept_id, prop, value)
	);

	CREATE TABLE IF NOT EXISTS %q (
		concept_id TEXT NOT NULL,
		prop TEXT NOT NULL,
		target TEXT NOT NULL,
		UNIQUE(concept_id, prop, target)
	);
	`, conceptTable, literalTable, uriTable)
	_, err := db.Exec(schema)
	return err
}

// ensureIndexes creates the query-path indexes, named after the resolved
// columns so foreign snapshots get them too. Errors are ignored: a read-only
// snapshot still works, just slower.
func ensureIndexes(db *sql.DB, m *Mapping) {
	idx := func(table, name string, cols ...string) {
		_, _ = db.Exec(fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %q(%s)",
			name, table, strings.Join(cols, ", ")))
	}
	lt, lc := m.LiteralTable, m.LiteralCols
	idx(lt, fmt.Sprintf("ix_%s_%s_%s", lt, lc.ConceptID, lc.Predicate), lc.ConceptID, lc.Predicate)
	idx(lt, fmt.Sprintf("ix_%s_%s_%s", lt, lc.Predicate, lc.Text), lc.Predicate, lc.Text)
	if m.RelationTable != "" {
		rt, rc := m.RelationTable, m.RelationCols
		idx(rt, fmt.Sprintf("ix_%s_%s_%s", rt, rc.Source, rc.Predicate), rc.Source, rc.Predicate)
		idx(rt, fmt.Sprintf("ix_%s_%s_%s", rt, rc.Predicate, rc.Target), rc.Predicate, rc.Target)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// guard returns the db handle and mapping after checking schema resolution.
func (s *SQLiteStore) guard() (*sql.DB, *Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.schemaErr != nil {
		return nil, nil, s.schemaErr
	}
	return s.db, s.mapping, nil
}

// Concept returns the concept row for id, or nil when the snapshot has no
// concept table or no such row.
func (s *SQLiteStore) Concept(ctx context.Context, id string) (*models.Concept, error) {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()

	var c models.Concept
	var typ sql.NullString
	err := db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT concept_id, type FROM %q WHERE concept_id = ?`, conceptTable), id,
	).Scan(&c.ID, &typ)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		// Foreign snapshots may have no concepts table at all.
		if strings.Contains(err.Error(), "no such table") {
			return nil, nil
		}
		return nil, err
	}
	c.Type = typ.String
	return &c, nil
}

// LiteralsByPredicateAndText returns (concept_id, text) pairs whose text
// contains substring, restricted to predicates. Case-sensitive (instr, not
// LIKE, which folds ASCII case), no dedup.
func (s *SQLiteStore) LiteralsByPredicateAndText(ctx context.Context, predicates []string, substring string) ([]models.CandidateMatch, error) {
	db, m, err := s.guard()
	if err != nil {
		return nil, err
	}
	lc := m.LiteralCols
	query := fmt.Sprintf(
		`SELECT %q, %q, %q FROM %q WHERE %q IN (%s) AND instr(%q, ?) > 0`,
		lc.ConceptID, lc.Text, lc.Predicate, m.LiteralTable,
		lc.Predicate, placeholders(len(predicates)), lc.Text)
	args := append(predicateArgs(predicates), substring)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("literal query failed: %w", err)
	}
	defer rows.Close()

	var out []models.CandidateMatch
	for rows.Next() {
		var cm models.CandidateMatch
		if err := rows.Scan(&cm.ConceptID, &cm.MatchedText, &cm.Predicate); err != nil {
			return nil, err
		}
		cm.PredicatePriority = models.LabelPredicatePriority(cm.Predicate)
		out = append(out, cm)
	}
	return out, rows.Err()
}

// LiteralsFor returns the literals of a concept under the given predicates.
func (s *SQLiteStore) LiteralsFor(ctx context.Context, conceptID string, predicates []string) ([]models.Literal, error) {
	db, m, err := s.guard()
	if err != nil {
		return nil, err
	}
	lc := m.LiteralCols

	langExpr := "NULL"
	if lc.Lang != "" {
		langExpr = fmt.Sprintf("%q", lc.Lang)
	}
	query := fmt.Sprintf(
		`SELECT %q, %s, %q FROM %q WHERE %q = ? AND %q IN (%s)`,
		lc.Text, langExpr, lc.Predicate, m.LiteralTable,
		lc.ConceptID, lc.Predicate, placeholders(len(predicates)))
	args := append([]interface{}{conceptID}, predicateArgs(predicates)...)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("literal query failed: %w", err)
	}
	defer rows.Close()

	var out []models.Literal
	for rows.Next() {
		var l models.Literal
		var lang sql.NullString
		if err := rows.Scan(&l.Text, &lang, &l.Predicate); err != nil {
			return nil, err
		}
		l.ConceptID = conceptID
		l.Lang = lang.String
		out = append(out, l)
	}
	return out, rows.Err()
}

// RelationTargets returns target ids for edges (conceptID, predicate, *).
// An unresolved relation table yields empty results, not an error.
func (s *SQLiteStore) RelationTargets(ctx context.Context, conceptID, predicate string) ([]string, error) {
	db, m, err := s.guard()
	if err != nil {
		return nil, err
	}
	if m.RelationTable == "" {
		return nil, nil
	}
	rc := m.RelationCols
	query := fmt.Sprintf(`SELECT %q FROM %q WHERE %q = ? AND %q = ?`,
		rc.Target, m.RelationTable, rc.Source, rc.Predicate)
	return s.queryIDs(ctx, db, query, conceptID, predicate)
}

// RelationSources returns source ids for edges (*, predicate, targetID).
func (s *SQLiteStore) RelationSources(ctx context.Context, predicate, targetID string) ([]string, error) {
	db, m, err := s.guard()
	if err != nil {
		return nil, err
	}
	if m.RelationTable == "" {
		return nil, nil
	}
	rc := m.RelationCols
	query := fmt.Sprintf(`SELECT %q FROM %q WHERE %q = ? AND %q = ?`,
		rc.Source, m.RelationTable, rc.Target, rc.Predicate)
	return s.queryIDs(ctx, db, query, targetID, predicate)
}

func (s *SQLiteStore) queryIDs(ctx context.Context, db *sql.DB, query string, args ...interface{}) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("relation query failed: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

// AllLabels returns every label-bearing literal.
func (s *SQLiteStore) AllLabels(ctx context.Context) ([]models.Literal, error) {
	return s.allLabelLiterals(ctx)
}

// PutConcept inserts or updates a concept row.
func (s *SQLiteStore) PutConcept(ctx context.Context, c *models.Concept) error {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()
	_, err := db.ExecContext(ctx, upsertConceptSQL, c.ID, c.Type)
	return err
}

// PutLiteral inserts a literal and, for label predicates, mirrors it into
// the full-text index within the same transaction. Duplicate triples are
// ignored.
func (s *SQLiteStore) PutLiteral(ctx context.Context, l *models.Literal) error {
	db, m, err := s.guard()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertLiteralTx(ctx, tx, m, l); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteLiteral removes a literal triple and its mirror row in one
// transaction.
func (s *SQLiteStore) DeleteLiteral(ctx context.Context, conceptID, predicate, text string) error {
	db, m, err := s.guard()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteLiteralTx(ctx, tx, m, conceptID, predicate, text); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceLiteral swaps a literal's text, keeping the mirror consistent.
func (s *SQLiteStore) ReplaceLiteral(ctx context.Context, conceptID, predicate, oldText, newText string) error {
	db, m, err := s.guard()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteLiteralTx(ctx, tx, m, conceptID, predicate, oldText); err != nil {
		return err
	}
	if err := insertLiteralTx(ctx, tx, m, &models.Literal{
		ConceptID: conceptID, Predicate: predicate, Text: newText,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// PutRelation inserts a relation edge. Duplicates are ignored.
func (s *SQLiteStore) PutRelation(ctx context.Context, r *models.Relation) error {
	db, m, err := s.guard()
	if err != nil {
		return err
	}
	if m.RelationTable == "" {
		return fmt.Errorf("snapshot has no relation table: %w", ErrSchemaUnresolved)
	}
	rc := m.RelationCols
	query := fmt.Sprintf(`INSERT OR IGNORE INTO %q (%q, %q, %q) VALUES (?, ?, ?)`,
		m.RelationTable, rc.Source, rc.Predicate, rc.Target)
	_, err = db.ExecContext(ctx, query, r.ConceptID, r.Predicate, r.Target)
	return err
}

// BatchPut loads concepts, literals, and relations in a single transaction,
// mirroring label literals as it goes. This is the bulk-ingestion entry
// point; going through it (rather than raw SQL) is what keeps the
// full-text mirror consistent.
func (s *SQLiteStore) BatchPut(ctx context.Context, concepts []models.Concept, literals []models.Literal, relations []models.Relation) error {
	db, m, err := s.guard()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range concepts {
		c := &concepts[i]
		if _, err := tx.ExecContext(ctx, upsertConceptSQL, c.ID, c.Type); err != nil {
			return fmt.Errorf("concept %s: %w", c.ID, err)
		}
	}
	for i := range literals {
		if err := insertLiteralTx(ctx, tx, m, &literals[i]); err != nil {
			return fmt.Errorf("literal %s/%s: %w", literals[i].ConceptID, literals[i].Predicate, err)
		}
	}
	if len(relations) > 0 && m.RelationTable == "" {
		return fmt.Errorf("snapshot has no relation table: %w", ErrSchemaUnresolved)
	}
	rc := m.RelationCols
	for i := range relations {
		r := &relations[i]
		query := fmt.Sprintf(`INSERT OR IGNORE INTO %q (%q, %q, %q) VALUES (?, ?, ?)`,
			m.RelationTable, rc.Source, rc.Predicate, rc.Target)
		if _, err := tx.ExecContext(ctx, query, r.ConceptID, r.Predicate, r.Target); err != nil {
			return fmt.Errorf("relation %s/%s: %w", r.ConceptID, r.Predicate, err)
		}
	}
	return tx.Commit()
}

// CountConcepts returns the number of concept rows.
func (s *SQLiteStore) CountConcepts(ctx context.Context) (int64, error) {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()
	var n int64
	err := db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %q`, conceptTable)).Scan(&n)
	if err != nil && strings.Contains(err.Error(), "no such table") {
		return 0, nil
	}
	return n, err
}

// CountLiterals returns the number of literal rows.
func (s *SQLiteStore) CountLiterals(ctx context.Context) (int64, error) {
	db, m, err := s.guard()
	if err != nil {
		return 0, err
	}
	var n int64
	err = db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %q`, m.LiteralTable)).Scan(&n)
	return n, err
}

// Path returns the snapshot file currently open.
func (s *SQLiteStore) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Reopen closes the current connection and opens the snapshot at path. The
// schema mapping and mirror consistency are re-evaluated from scratch.
func (s *SQLiteStore) Reopen(path string) error {
	s.mu.Lock()
	old := s.db
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return s.open(path)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func predicateArgs(predicates []string) []interface{} {
	args := make([]interface{}, len(predicates))
	for i, p := range predicates {
		args[i] = p
	}
	return args
}
