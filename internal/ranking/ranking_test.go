package ranking

import (
	"testing"

	"github.com/hyperjump/chajda/internal/models"
)

func TestHasHangul(t *testing.T) {
	if !HasHangul("한국전쟁") {
		t.Error("pure Hangul not detected")
	}
	if !HasHangul("IT강국") {
		t.Error("mixed script not detected")
	}
	if HasHangul("Korean War") {
		t.Error("Latin text misdetected as Hangul")
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"한국 전쟁", "한국전쟁"},
		{"Korean Wars", "koreanwar"},
		{"Databases", "database"},
		{"IT 강국들", "it강국들"}, // mixed script skips singularization
		{"  ", ""},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTier(t *testing.T) {
	r := NewRanker("전쟁")
	cases := []struct {
		label string
		want  Tier
	}{
		{"전쟁", TierExact},
		{"전쟁 사", TierPrefix},
		{"한국전쟁", TierContains},
		{"무력충돌(전쟁)", TierQualifier},
		{"평화", TierNone},
	}
	for _, c := range cases {
		if got := r.Tier(c.label); got != c.want {
			t.Errorf("Tier(%q) = %v, want %v", c.label, got, c.want)
		}
	}
}

func TestTier_EnglishSingularization(t *testing.T) {
	r := NewRanker("databases")
	if got := r.Tier("Database"); got != TierExact {
		t.Errorf("Tier = %v, want exact after singularization", got)
	}
}

func TestTier_PluralVariantsShareExactTier(t *testing.T) {
	r := NewRanker("cat")
	if got := r.Tier("cat"); got != TierExact {
		t.Errorf("Tier(cat) = %v, want exact", got)
	}
	if got := r.Tier("cats"); got != TierExact {
		t.Errorf("Tier(cats) = %v, want exact", got)
	}
	if got := r.Tier("concatenate"); got != TierContains {
		t.Errorf("Tier(concatenate) = %v, want contains", got)
	}
}

func TestTier_WhitespaceFolding(t *testing.T) {
	r := NewRanker("한국전쟁")
	if got := r.Tier("한국 전쟁"); got != TierExact {
		t.Errorf("Tier = %v, want exact across whitespace", got)
	}
}

func TestTier_IgnoresQualifierInExactCheck(t *testing.T) {
	// The base label is compared with its qualifier stripped.
	r := NewRanker("백합")
	if got := r.Tier("백합(식물)"); got != TierExact {
		t.Errorf("Tier = %v, want exact with qualifier stripped", got)
	}
}

func TestSortRows(t *testing.T) {
	r := NewRanker("전쟁")
	rows := []models.ResultRow{
		{ConceptID: "c", Matched: "한국전쟁"},  // contains
		{ConceptID: "a", Matched: "전쟁"},    // exact
		{ConceptID: "d", Matched: "평화"},    // none
		{ConceptID: "b", Matched: "전쟁 문학"}, // prefix
	}
	r.SortRows(rows)

	got := []string{rows[0].ConceptID, rows[1].ConceptID, rows[2].ConceptID, rows[3].ConceptID}
	want := []string{"a", "b", "c", "d"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestSortRows_ShorterFirstWithinTier(t *testing.T) {
	r := NewRanker("경제")
	rows := []models.ResultRow{
		{ConceptID: "long", Matched: "경제발전론"},
		{ConceptID: "short", Matched: "경제학"},
	}
	r.SortRows(rows)
	if rows[0].ConceptID != "short" {
		t.Errorf("first = %s, want short", rows[0].ConceptID)
	}
}

func TestSortRows_FallsBackToPrefLabel(t *testing.T) {
	r := NewRanker("음악")
	rows := []models.ResultRow{
		{ConceptID: "b", PrefLabel: "회화"},
		{ConceptID: "a", PrefLabel: "음악"},
	}
	r.SortRows(rows)
	if rows[0].ConceptID != "a" {
		t.Errorf("first = %s, want a", rows[0].ConceptID)
	}
}

func TestSortCandidates_PredicateTiebreak(t *testing.T) {
	r := NewRanker("물리")
	cands := []models.CandidateMatch{
		{ConceptID: "alt", MatchedText: "물리", Predicate: "altLabel", PredicatePriority: 3},
		{ConceptID: "pref", MatchedText: "물리", Predicate: "prefLabel", PredicatePriority: 1},
	}
	r.SortCandidates(cands)
	if cands[0].ConceptID != "pref" {
		t.Errorf("first = %s, want pref", cands[0].ConceptID)
	}
}

func TestTierString(t *testing.T) {
	if TierExact.String() != "exact" || TierNone.String() != "none" {
		t.Error("Tier strings wrong")
	}
}
