package models

import (
	"strings"
	"time"
)

// ResultRow is one ordered search result. Subject and the neighbor columns
// carry ▼a…▼0…▲ formatted tokens, one per neighbor.
type ResultRow struct {
	Subject   string   `json:"subject"`
	PrefLabel string   `json:"pref_label"`
	Matched   string   `json:"matched"`
	Category  string   `json:"category,omitempty"`
	DDC       string   `json:"ddc,omitempty"`
	KDCLike   string   `json:"kdc_like,omitempty"`
	Related   []string `json:"related,omitempty"`
	Broader   []string `json:"broader,omitempty"`
	Narrower  []string `json:"narrower,omitempty"`
	Synonyms  []string `json:"synonyms,omitempty"`
	ConceptID string   `json:"concept_id"`
	LinkURL   string   `json:"link_url,omitempty"`
	// Partial marks a row whose secondary lookups failed; PartialErr says
	// why. The matched label and concept id are always present.
	Partial    bool   `json:"partial,omitempty"`
	PartialErr string `json:"partial_error,omitempty"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Rows      []ResultRow   `json:"rows"`
	Total     int           `json:"total"`
	QueryTime time.Duration `json:"query_time_ns"`
	Term      string        `json:"term"`
	// Suggestions holds "did you mean" terms, populated only when the
	// query matched nothing.
	Suggestions []string `json:"suggestions,omitempty"`
}

// Columns is the canonical result column order, shared by the CSV and XLSX
// exporters.
var Columns = []string{
	"Subject", "PrefLabel", "Matched", "Category", "DDC", "KDC-Like",
	"Related", "Broader", "Narrower", "Synonyms", "ConceptID", "Link",
}

// Record flattens the row in Columns order; multi-valued columns are joined
// with "; ".
func (r *ResultRow) Record() []string {
	join := func(ss []string) string { return strings.Join(ss, "; ") }
	return []string{
		r.Subject, r.PrefLabel, r.Matched, r.Category, r.DDC, r.KDCLike,
		join(r.Related), join(r.Broader), join(r.Narrower), join(r.Synonyms),
		r.ConceptID, r.LinkURL,
	}
}
