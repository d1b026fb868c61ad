package suggest

import (
	"context"
	"testing"

	"github.com/hyperjump/chajda/internal/models"
)

// labelStore feeds canned labels to Rebuild.
type labelStore struct {
	labels []models.Literal
}

func (s *labelStore) AllLabels(context.Context) ([]models.Literal, error) {
	return s.labels, nil
}

func (s *labelStore) Concept(context.Context, string) (*models.Concept, error) { return nil, nil }
func (s *labelStore) LiteralsByPredicateAndText(context.Context, []string, string) ([]models.CandidateMatch, error) {
	return nil, nil
}
func (s *labelStore) LiteralsFor(context.Context, string, []string) ([]models.Literal, error) {
	return nil, nil
}
func (s *labelStore) RelationTargets(context.Context, string, string) ([]string, error) {
	return nil, nil
}
func (s *labelStore) RelationSources(context.Context, string, string) ([]string, error) {
	return nil, nil
}
func (s *labelStore) SearchLabels(context.Context, string, []string) ([]models.CandidateMatch, error) {
	return nil, nil
}
func (s *labelStore) PutConcept(context.Context, *models.Concept) error { return nil }
func (s *labelStore) PutLiteral(context.Context, *models.Literal) error { return nil }
func (s *labelStore) DeleteLiteral(context.Context, string, string, string) error {
	return nil
}
func (s *labelStore) ReplaceLiteral(context.Context, string, string, string, string) error {
	return nil
}
func (s *labelStore) PutRelation(context.Context, *models.Relation) error { return nil }
func (s *labelStore) BatchPut(context.Context, []models.Concept, []models.Literal, []models.Relation) error {
	return nil
}
func (s *labelStore) CountConcepts(context.Context) (int64, error) { return 0, nil }
func (s *labelStore) CountLiterals(context.Context) (int64, error) { return 0, nil }
func (s *labelStore) Reopen(string) error                          { return nil }
func (s *labelStore) Close() error                                 { return nil }

func newTestDictionary(t *testing.T, labels []models.Literal) *Dictionary {
	t.Helper()
	d, err := NewDictionary("", 2, 5, nil)
	if err != nil {
		t.Fatalf("NewDictionary: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Rebuild(context.Background(), &labelStore{labels: labels}); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	return d
}

func TestSuggest_TypoCorrection(t *testing.T) {
	d := newTestDictionary(t, []models.Literal{
		{ConceptID: "c1", Predicate: "prefLabel", Text: "history"},
		{ConceptID: "c2", Predicate: "prefLabel", Text: "chemistry"},
	})

	got, err := d.Suggest(context.Background(), "histor")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 1 || got[0] != "history" {
		t.Errorf("suggestions = %v, want [history]", got)
	}
}

func TestSuggest_ExcludesExactTerm(t *testing.T) {
	d := newTestDictionary(t, []models.Literal{
		{ConceptID: "c1", Predicate: "prefLabel", Text: "history"},
	})

	got, err := d.Suggest(context.Background(), "history")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	for _, s := range got {
		if s == "history" {
			t.Errorf("exact term suggested back: %v", got)
		}
	}
}

func TestSuggest_EmptyTerm(t *testing.T) {
	d := newTestDictionary(t, nil)
	got, err := d.Suggest(context.Background(), "")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if got != nil {
		t.Errorf("suggestions = %v, want nil", got)
	}
}

func TestRebuild_CleansAndDedupes(t *testing.T) {
	d := newTestDictionary(t, []models.Literal{
		{ConceptID: "c1", Predicate: "prefLabel", Text: "눈 (snow)@ko"},
		{ConceptID: "c2", Predicate: "altLabel", Text: "눈"},
		{ConceptID: "c3", Predicate: "prefLabel", Text: "  "},
	})

	n, err := d.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("term count = %d, want 1 after cleaning and dedup", n)
	}
}

func TestRebuild_Idempotent(t *testing.T) {
	labels := []models.Literal{
		{ConceptID: "c1", Predicate: "prefLabel", Text: "physics"},
	}
	d := newTestDictionary(t, labels)
	if err := d.Rebuild(context.Background(), &labelStore{labels: labels}); err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}
	n, err := d.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("term count = %d, want 1", n)
	}
}
