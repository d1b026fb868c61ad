package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/chajda/internal/models"
)

func TestNormalizeForIndex(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"한국 전쟁", "한국전쟁"},
		{"  Korean  War ", "KoreanWar"},
		{"경제학", "경제학"},
		{"\ttabbed\nvalue", "tabbedvalue"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeForIndex(c.in); got != c.want {
			t.Errorf("NormalizeForIndex(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSearchLabels_ExactAndPrefix(t *testing.T) {
	s := newTestStore(t)
	seedStore(t, s)
	ctx := context.Background()

	exact, err := s.SearchLabels(ctx, `"전쟁"`, models.LabelPredicates)
	if err != nil {
		t.Fatalf("SearchLabels: %v", err)
	}
	if len(exact) != 1 || exact[0].ConceptID != "KSH2" {
		t.Errorf("exact matches = %+v", exact)
	}

	prefix, err := s.SearchLabels(ctx, `한국*`, models.LabelPredicates)
	if err != nil {
		t.Fatalf("SearchLabels prefix: %v", err)
	}
	if len(prefix) != 1 || prefix[0].ConceptID != "KSH1" {
		t.Errorf("prefix matches = %+v", prefix)
	}
	if prefix[0].MatchedText != "한국전쟁" {
		t.Errorf("matched text = %q", prefix[0].MatchedText)
	}
}

func TestSearchLabels_WhitespaceInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	err := s.BatchPut(ctx, nil, []models.Literal{
		{ConceptID: "KSH10", Predicate: "prefLabel", Text: "데이터 베이스", Lang: "ko"},
	}, nil)
	if err != nil {
		t.Fatalf("BatchPut: %v", err)
	}

	// The stored label has an internal space; the index folds it away.
	matches, err := s.SearchLabels(ctx, `"데이터베이스"`, models.LabelPredicates)
	if err != nil {
		t.Fatalf("SearchLabels: %v", err)
	}
	if len(matches) != 1 || matches[0].MatchedText != "데이터 베이스" {
		t.Errorf("matches = %+v", matches)
	}
}

func TestSearchLabels_OneRowPerConcept(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	err := s.BatchPut(ctx, nil, []models.Literal{
		{ConceptID: "KSH20", Predicate: "altLabel", Text: "물리", Lang: "ko"},
		{ConceptID: "KSH20", Predicate: "prefLabel", Text: "물리", Lang: "ko"},
	}, nil)
	if err != nil {
		t.Fatalf("BatchPut: %v", err)
	}

	matches, err := s.SearchLabels(ctx, `물리*`, models.LabelPredicates)
	if err != nil {
		t.Fatalf("SearchLabels: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1 per concept", len(matches))
	}
	if matches[0].Predicate != "prefLabel" || matches[0].PredicatePriority != 1 {
		t.Errorf("kept match = %+v, want the prefLabel row", matches[0])
	}
}

func TestSearchLabels_NonLabelPredicatesNotIndexed(t *testing.T) {
	s := newTestStore(t)
	seedStore(t, s)
	ctx := context.Background()

	matches, err := s.SearchLabels(ctx, `military*`, models.LabelPredicates)
	if err != nil {
		t.Fatalf("SearchLabels: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("note text leaked into index: %+v", matches)
	}
}

func TestSearchLabels_StaleIndex(t *testing.T) {
	s := newTestStore(t)
	seedStore(t, s)
	ctx := context.Background()

	// Insert through a second connection, bypassing the store's write path,
	// so the mirror is left behind.
	raw, err := sql.Open("sqlite3", s.path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	defer raw.Close()
	if _, err := raw.Exec(
		`INSERT INTO literal_props (concept_id, prop, value, lang) VALUES ('KSH99', 'prefLabel', '지리학', 'ko')`); err != nil {
		t.Fatalf("raw insert: %v", err)
	}

	_, err = s.SearchLabels(ctx, `지리학*`, models.LabelPredicates)
	if !errors.Is(err, ErrStaleIndex) {
		t.Fatalf("err = %v, want ErrStaleIndex", err)
	}

	// Reopening rebuilds the mirror and clears the condition.
	if err := s.Reopen(s.path); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	matches, err := s.SearchLabels(ctx, `지리학*`, models.LabelPredicates)
	if err != nil {
		t.Fatalf("SearchLabels after reopen: %v", err)
	}
	if len(matches) != 1 || matches[0].ConceptID != "KSH99" {
		t.Errorf("matches after rebuild = %+v", matches)
	}
}

func TestEnsureMirror_BackfillsForeignSnapshot(t *testing.T) {
	// A snapshot produced by another tool has no mirror table at all.
	path := filepath.Join(t.TempDir(), "foreign.sqlite")
	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	_, err = raw.Exec(`
		CREATE TABLE literal_props (concept_id TEXT, prop TEXT, value TEXT, lang TEXT);
		INSERT INTO literal_props VALUES ('KSH1', 'prefLabel', '천문학', 'ko');
		INSERT INTO literal_props VALUES ('KSH1', 'note', 'stars and such', NULL);
	`)
	raw.Close()
	if err != nil {
		t.Fatalf("seed foreign snapshot: %v", err)
	}

	s, err := NewSQLiteStore(path)
	if err != nil {
		if errors.Is(err, ErrStorageUnavailable) {
			t.Fatalf("NewSQLiteStore: %v", err)
		}
		t.Skipf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	matches, err := s.SearchLabels(context.Background(), `천문학*`, models.LabelPredicates)
	if err != nil {
		t.Fatalf("SearchLabels: %v", err)
	}
	if len(matches) != 1 || matches[0].ConceptID != "KSH1" {
		t.Errorf("matches = %+v", matches)
	}
}

func TestSearchLabels_EmptyExpression(t *testing.T) {
	s := newTestStore(t)
	matches, err := s.SearchLabels(context.Background(), "", models.LabelPredicates)
	if err != nil {
		t.Fatalf("SearchLabels: %v", err)
	}
	if matches != nil {
		t.Errorf("matches = %+v, want nil", matches)
	}
}
