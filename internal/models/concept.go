// Package models defines the core data structures for concepts, literals,
// relations, and search results.
package models

// Concept is a subject heading identified by a stable id.
type Concept struct {
	ID   string `json:"concept_id" db:"concept_id"`
	Type string `json:"type,omitempty" db:"type"`
}

// Literal is a text-valued attribute of a concept. Lang may be empty, in
// which case the language can still be embedded as a trailing @xx tag on
// Text.
type Literal struct {
	ConceptID string `json:"concept_id" db:"concept_id"`
	Predicate string `json:"predicate" db:"prop"`
	Text      string `json:"text" db:"value"`
	Lang      string `json:"lang,omitempty" db:"lang"`
}

// Relation is a directed, predicate-typed edge between two concepts. The
// target need not exist as a Concept row; dangling targets degrade to empty
// labels downstream.
type Relation struct {
	ConceptID string `json:"concept_id" db:"concept_id"`
	Predicate string `json:"predicate" db:"prop"`
	Target    string `json:"target" db:"target"`
}

// Label-bearing predicates mirrored into the full-text index, in priority
// order (preferred first).
var LabelPredicates = []string{"prefLabel", "label", "altLabel"}

// LabelPredicatePriority ranks label predicates for match selection:
// prefLabel before label before altLabel, anything else last.
func LabelPredicatePriority(predicate string) int {
	switch predicate {
	case "prefLabel":
		return 1
	case "label":
		return 2
	case "altLabel":
		return 3
	default:
		return 4
	}
}

// CandidateMatch is one full-text hit: a concept and the literal text that
// matched. Ephemeral, produced by the index and consumed by the ranker.
type CandidateMatch struct {
	ConceptID         string `json:"concept_id"`
	MatchedText       string `json:"matched_text"`
	Predicate         string `json:"predicate"`
	PredicatePriority int    `json:"-"`
}
