package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hyperjump/chajda/internal/models"
)

// mirrorTable is the FTS5 mirror of label-bearing literal text. Text is
// indexed with internal whitespace removed, so queries must be normalized
// the same way (the search package owns that).
const mirrorTable = "literal_fts"

// NormalizeForIndex strips all whitespace from label text, matching how the
// mirror is populated. "한국 전쟁" and "한국전쟁" index identically.
func NormalizeForIndex(text string) string {
	return strings.Join(strings.Fields(text), "")
}

func isLabelPredicate(predicate string) bool {
	return models.LabelPredicatePriority(predicate) < 4
}

// ensureMirror creates the FTS5 mirror if absent and backfills it whenever
// its row count disagrees with the base label count. Run at open time, so a
// freshly attached snapshot (or one last written by an older tool) starts
// consistent.
func ensureMirror(db *sql.DB, m *Mapping) error {
	_, err := db.Exec(fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING fts5(label, tokenize='unicode61')`,
		mirrorTable))
	if err != nil {
		return fmt.Errorf("failed to create full-text mirror (driver built without sqlite_fts5?): %w", err)
	}

	baseN, mirrorN, err := mirrorCounts(db, m)
	if err != nil {
		return err
	}
	if baseN == mirrorN {
		return nil
	}
	return rebuildMirror(db, m)
}

func mirrorCounts(db *sql.DB, m *Mapping) (base, mirror int64, err error) {
	lc := m.LiteralCols
	baseQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %q WHERE %q IN (%s)`,
		m.LiteralTable, lc.Predicate, placeholders(len(models.LabelPredicates)))
	if err = db.QueryRow(baseQuery, predicateArgs(models.LabelPredicates)...).Scan(&base); err != nil {
		return 0, 0, fmt.Errorf("mirror count: %w", err)
	}
	if err = db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %s`, mirrorTable)).Scan(&mirror); err != nil {
		return 0, 0, fmt.Errorf("mirror count: %w", err)
	}
	return base, mirror, nil
}

// rebuildMirror repopulates the mirror from the base table in one
// transaction.
func rebuildMirror(db *sql.DB, m *Mapping) error {
	lc := m.LiteralCols
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s`, mirrorTable)); err != nil {
		return fmt.Errorf("mirror rebuild: %w", err)
	}

	rows, err := tx.Query(fmt.Sprintf(`SELECT rowid, %q FROM %q WHERE %q IN (%s)`,
		lc.Text, m.LiteralTable, lc.Predicate, placeholders(len(models.LabelPredicates))),
		predicateArgs(models.LabelPredicates)...)
	if err != nil {
		return fmt.Errorf("mirror rebuild: %w", err)
	}
	type entry struct {
		rowid int64
		label string
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.rowid, &e.label); err != nil {
			rows.Close()
			return err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	stmt, err := tx.Prepare(fmt.Sprintf(`INSERT INTO %s(rowid, label) VALUES (?, ?)`, mirrorTable))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range entries {
		if _, err := stmt.Exec(e.rowid, NormalizeForIndex(e.label)); err != nil {
			return fmt.Errorf("mirror rebuild: %w", err)
		}
	}
	return tx.Commit()
}

// insertLiteralTx inserts a literal row and, for label predicates, the
// matching mirror row, inside the caller's transaction. Duplicate triples
// are ignored (and not re-mirrored).
func insertLiteralTx(ctx context.Context, tx *sql.Tx, m *Mapping, l *models.Literal) error {
	lc := m.LiteralCols

	var res sql.Result
	var err error
	if lc.Lang != "" {
		query := fmt.Sprintf(`INSERT OR IGNORE INTO %q (%q, %q, %q, %q) VALUES (?, ?, ?, ?)`,
			m.LiteralTable, lc.ConceptID, lc.Predicate, lc.Text, lc.Lang)
		lang := sql.NullString{String: l.Lang, Valid: l.Lang != ""}
		res, err = tx.ExecContext(ctx, query, l.ConceptID, l.Predicate, l.Text, lang)
	} else {
		query := fmt.Sprintf(`INSERT OR IGNORE INTO %q (%q, %q, %q) VALUES (?, ?, ?)`,
			m.LiteralTable, lc.ConceptID, lc.Predicate, lc.Text)
		res, err = tx.ExecContext(ctx, query, l.ConceptID, l.Predicate, l.Text)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	if !isLabelPredicate(l.Predicate) {
		return nil
	}

	var rowid int64
	if err := tx.QueryRowContext(ctx, `SELECT last_insert_rowid()`).Scan(&rowid); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s(rowid, label) VALUES (?, ?)`, mirrorTable),
		rowid, NormalizeForIndex(l.Text))
	return err
}

// deleteLiteralTx removes a literal triple and its mirror rows inside the
// caller's transaction.
func deleteLiteralTx(ctx context.Context, tx *sql.Tx, m *Mapping, conceptID, predicate, text string) error {
	lc := m.LiteralCols

	rows, err := tx.QueryContext(ctx,
		fmt.Sprintf(`SELECT rowid FROM %q WHERE %q = ? AND %q = ? AND %q = ?`,
			m.LiteralTable, lc.ConceptID, lc.Predicate, lc.Text),
		conceptID, predicate, text)
	if err != nil {
		return err
	}
	var rowids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		rowids = append(rowids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, id := range rowids {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, mirrorTable), id); err != nil {
			return err
		}
	}
	_, err = tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %q WHERE %q = ? AND %q = ? AND %q = ?`,
			m.LiteralTable, lc.ConceptID, lc.Predicate, lc.Text),
		conceptID, predicate, text)
	return err
}

// SearchLabels runs an FTS5 MATCH expression over the mirror, joining back
// to the base table for predicate and original text, and returns one
// candidate per concept (best predicate priority, then shortest, then
// lexicographic). The index's own relevance rank is only a secondary sort
// key; final ordering belongs to the ranker.
func (s *SQLiteStore) SearchLabels(ctx context.Context, matchExpr string, predicates []string) ([]models.CandidateMatch, error) {
	if matchExpr == "" {
		return nil, nil
	}
	db, m, err := s.guard()
	if err != nil {
		return nil, err
	}
	if err := s.verifyMirror(db, m); err != nil {
		return nil, err
	}
	lc := m.LiteralCols

	query := fmt.Sprintf(`
		WITH ranked AS (
			SELECT
				lp.%q AS concept_id,
				lp.%q AS matched_value,
				lp.%q AS prop,
				CASE lp.%q WHEN 'prefLabel' THEN 1 WHEN 'label' THEN 2 WHEN 'altLabel' THEN 3 ELSE 4 END AS prop_priority,
				%s.rank AS fts_rank
			FROM %s
			JOIN %q lp ON lp.rowid = %s.rowid
			WHERE %s MATCH ?
			  AND lp.%q IN (%s)
		)
		SELECT concept_id, matched_value, prop FROM (
			SELECT concept_id, matched_value, prop, prop_priority, fts_rank,
				ROW_NUMBER() OVER (
					PARTITION BY concept_id
					ORDER BY prop_priority ASC, LENGTH(matched_value) ASC, matched_value ASC
				) AS rn
			FROM ranked
		)
		WHERE rn = 1
		ORDER BY fts_rank ASC, prop_priority ASC, LENGTH(matched_value) ASC, matched_value ASC`,
		lc.ConceptID, lc.Text, lc.Predicate, lc.Predicate,
		mirrorTable, mirrorTable, m.LiteralTable, mirrorTable, mirrorTable,
		lc.Predicate, placeholders(len(predicates)))

	args := append([]interface{}{matchExpr}, predicateArgs(predicates)...)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("full-text search failed: %w", err)
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

// verifyMirror compares mirror and base row counts once per connection.
// Divergence means rows were loaded outside the store's write path; that is
// a correctness bug in the loader, so the query fails rather than serving
// incomplete results.
func (s *SQLiteStore) verifyMirror(db *sql.DB, m *Mapping) error {
	s.mu.RLock()
	verified := s.ftsVerified
	s.mu.RUnlock()
	if verified {
		return nil
	}

	base, mirror, err := mirrorCounts(db, m)
	if err != nil {
		return err
	}
	if base != mirror {
		return fmt.Errorf("%w: %d label literals, %d mirror rows", ErrStaleIndex, base, mirror)
	}
	s.mu.Lock()
	s.ftsVerified = true
	s.mu.Unlock()
	return nil
}

func (s *SQLiteStore) allLabelLiterals(ctx context.Context) ([]models.Literal, error) {
	db, m, err := s.guard()
	if err != nil {
		return nil, err
	}
	lc := m.LiteralCols

	langExpr := "NULL"
	if lc.Lang != "" {
		langExpr = fmt.Sprintf("%q", lc.Lang)
	}
	query := fmt.Sprintf(`SELECT %q, %q, %q, %s FROM %q WHERE %q IN (%s)`,
		lc.ConceptID, lc.Predicate, lc.Text, langExpr,
		m.LiteralTable, lc.Predicate, placeholders(len(models.LabelPredicates)))

	rows, err := db.QueryContext(ctx, query, predicateArgs(models.LabelPredicates)...)
	if err != nil {
		return nil, fmt.Errorf("label scan failed: %w", err)
	}
	defer rows.Close()

	var out []models.Literal
	for rows.Next() {
		var l models.Literal
		var lang sql.NullString
		if err := rows.Scan(&l.ConceptID, &l.Predicate, &l.Text, &lang); err != nil {
			return nil, err
		}
		l.Lang = lang.String
		out = append(out, l)
	}
	return out, rows.Err()
}
