package storage

import (
	"database/sql"
	"fmt"
	"strings"
)

// Mapping is the resolved column layout for one snapshot, computed once at
// open time and immutable for the connection's lifetime. Catalog snapshots
// from different generations use inconsistent table and column names;
// resolving once avoids per-query inspection.
type Mapping struct {
	LiteralTable string
	LiteralCols  LiteralColumns

	// RelationTable may be empty when the snapshot carries no relation
	// table; relation queries then return empty results.
	RelationTable string
	RelationCols  RelationColumns
}

// LiteralColumns maps the logical literal roles to physical column names.
// Lang is empty when the snapshot has no language column.
type LiteralColumns struct {
	ConceptID string
	Predicate string
	Text      string
	Lang      string
}

// RelationColumns maps the logical relation roles to physical column names.
type RelationColumns struct {
	Source    string
	Predicate string
	Target    string
}

// Candidate column names per role, in priority order. Mirrors the naming
// drift observed across snapshot generations.
var (
	literalConceptCandidates  = []string{"concept_id", "subject_id", "s", "id"}
	literalPredCandidates     = []string{"prop", "pred", "predicate", "p"}
	literalTextCandidates     = []string{"value", "text", "literal", "label"}
	literalLangCandidates     = []string{"lang", "langtag", "language"}
	relationSourceCandidates  = []string{"concept_id", "source", "source_id", "s", "subject_id"}
	relationPredCandidates    = []string{"prop", "pred", "predicate", "p"}
	relationTargetCandidates  = []string{"target", "target_id", "t", "object_id"}
	literalTableNameHints     = []string{"literal"}
	relationTableNameHints    = []string{"uri", "relation"}
)

// ResolveSchema inspects the snapshot's tables and produces the column
// mapping. Returns ErrSchemaUnresolved (wrapped) when no usable
// concept_id/predicate/text columns exist — callers must not fall back to
// guessed columns.
func ResolveSchema(db *sql.DB) (*Mapping, error) {
	tables, err := discoverTables(db)
	if err != nil {
		return nil, fmt.Errorf("schema discovery: %w", err)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("empty snapshot: %w", ErrSchemaUnresolved)
	}

	m := &Mapping{}
	for _, t := range tables {
		low := strings.ToLower(t.name)
		if m.LiteralTable == "" && containsAny(low, literalTableNameHints) {
			m.LiteralTable = t.name
		}
		if m.RelationTable == "" && containsAny(low, relationTableNameHints) {
			m.RelationTable = t.name
		}
	}
	// No name matched: fall back to discovery order.
	if m.LiteralTable == "" {
		m.LiteralTable = tables[0].name
	}
	if m.RelationTable == "" && len(tables) >= 2 {
		for _, t := range tables {
			if t.name != m.LiteralTable {
				m.RelationTable = t.name
				break
			}
		}
	}

	lcols := columnsOf(tables, m.LiteralTable)
	m.LiteralCols = LiteralColumns{
		ConceptID: pick(lcols, literalConceptCandidates),
		Predicate: pick(lcols, literalPredCandidates),
		Text:      pick(lcols, literalTextCandidates),
		Lang:      pick(lcols, literalLangCandidates),
	}
	if m.LiteralCols.ConceptID == "" || m.LiteralCols.Predicate == "" || m.LiteralCols.Text == "" {
		return nil, fmt.Errorf("literal table %q lacks concept/predicate/text columns: %w",
			m.LiteralTable, ErrSchemaUnresolved)
	}

	if m.RelationTable != "" {
		rcols := columnsOf(tables, m.RelationTable)
		m.RelationCols = RelationColumns{
			Source:    pick(rcols, relationSourceCandidates),
			Predicate: pick(rcols, relationPredCandidates),
			Target:    pick(rcols, relationTargetCandidates),
		}
		// A relation table we cannot map is treated as absent rather
		// than fatal; literal search still works.
		if m.RelationCols.Source == "" || m.RelationCols.Predicate == "" || m.RelationCols.Target == "" {
			m.RelationTable = ""
		}
	}

	return m, nil
}

type tableInfo struct {
	name    string
	columns []string
}

func discoverTables(db *sql.DB) ([]tableInfo, error) {
	rows, err := db.Query(
		`SELECT name FROM sqlite_master WHERE type='table'
		 AND name NOT LIKE 'sqlite_%' AND name NOT LIKE '%_fts%'
		 AND name != ?`, conceptTable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tables := make([]tableInfo, 0, len(names))
	for _, n := range names {
		cols, err := tableColumns(db, n)
		if err != nil {
			return nil, err
		}
		tables = append(tables, tableInfo{name: n, columns: cols})
	}
	return tables, nil
}

func tableColumns(db *sql.DB, table string) ([]string, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			dflt       sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &primaryKey); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func columnsOf(tables []tableInfo, name string) []string {
	for _, t := range tables {
		if t.name == name {
			return t.columns
		}
	}
	return nil
}

func pick(cols []string, candidates []string) string {
	set := make(map[string]string, len(cols))
	for _, c := range cols {
		set[strings.ToLower(c)] = c
	}
	for _, cand := range candidates {
		if c, ok := set[cand]; ok {
			return c
		}
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
