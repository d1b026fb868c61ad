package models

// SearchQuery is a concept search request. Comma-separated terms are OR'd.
// Concept-level dedup is on unless NoDedup is set.
type SearchQuery struct {
	Term       string `json:"term"`
	AltLabels  bool   `json:"include_alt_labels"`
	PrefLabels bool   `json:"include_pref_labels"`
	NoDedup    bool   `json:"no_dedup,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// Validate normalizes the query: at least one label class must be searched
// (both default on when neither is set), and the limit is clamped.
func (q *SearchQuery) Validate() {
	if !q.AltLabels && !q.PrefLabels {
		q.AltLabels = true
		q.PrefLabels = true
	}
	if q.Limit < 0 {
		q.Limit = 0
	}
	if q.Limit > 10000 {
		q.Limit = 10000
	}
}

// Predicates returns the literal predicates the query searches over.
func (q *SearchQuery) Predicates() []string {
	var preds []string
	if q.AltLabels {
		preds = append(preds, "altLabel")
	}
	if q.PrefLabels {
		preds = append(preds, "prefLabel", "label")
	}
	return preds
}
