package search

import (
	"regexp"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/hyperjump/chajda/internal/ranking"
	"github.com/hyperjump/chajda/internal/storage"
	"github.com/hyperjump/chajda/internal/subject"
)

// Preprocess turns a raw query into its search terms. Subject-token markup
// is unwrapped to its labels (catalogers paste tokens straight back in),
// comma-separated input becomes one term per segment, qualifiers and
// language tags are stripped, Hangul terms lose their internal whitespace
// (labels are indexed whitespace-free), Latin terms are singularized per
// word, and duplicates are dropped.
func Preprocess(raw string) []string {
	var segments []string
	if labels := subject.Labels(raw); labels != nil {
		segments = labels
	} else {
		segments = strings.Split(raw, ",")
	}

	seen := make(map[string]bool, len(segments))
	var terms []string
	for _, seg := range segments {
		term := subject.Clean(seg)
		if ranking.HasHangul(term) {
			term = storage.NormalizeForIndex(term)
		} else if term != "" {
			term = singularizeWords(term)
		}
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		terms = append(terms, term)
	}
	return terms
}

// singularizeWords reduces each word to its singular form, so "cats" queries
// the index as "cat" and prefix-matches both variants.
func singularizeWords(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		fields[i] = inflection.Singular(f)
	}
	return strings.Join(fields, " ")
}

// nonWordRE matches everything outside the word-character class. Stripped
// from terms before they enter a MATCH expression so stray punctuation
// cannot produce malformed query syntax.
var nonWordRE = regexp.MustCompile(`[^\p{L}\p{N}_]`)

// BuildMatchExpr renders terms as one FTS5 MATCH expression. Each term
// matches either exactly or as a token prefix, and terms are OR-joined:
//
//	한국 전쟁, war  ->  "한국전쟁" OR "한국전쟁"* OR "war" OR "war"*
//
// Terms are whitespace-folded to agree with how the index is populated and
// reduced to word characters. A term that is nothing but punctuation
// contributes no clause; the result is "" when no term survives.
func BuildMatchExpr(terms []string) string {
	var parts []string
	for _, t := range terms {
		folded := nonWordRE.ReplaceAllString(storage.NormalizeForIndex(t), "")
		if folded == "" {
			continue
		}
		quoted := `"` + folded + `"`
		parts = append(parts, quoted, quoted+"*")
	}
	return strings.Join(parts, " OR ")
}
