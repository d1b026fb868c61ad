// Package ranking orders search results by how well a label matches the
// query term. Matching is tiered (exact, prefix, substring, qualifier,
// none); within a tier shorter labels win, then lexicographic order keeps
// the output stable.
package ranking

import (
	"sort"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"

	"github.com/hyperjump/chajda/internal/models"
	"github.com/hyperjump/chajda/internal/subject"
)

// Tier classifies how a label matched the query term. Lower is better.
type Tier int

const (
	TierExact Tier = iota + 1
	TierPrefix
	TierContains
	TierQualifier
	TierNone
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierPrefix:
		return "prefix"
	case TierContains:
		return "contains"
	case TierQualifier:
		return "qualifier"
	default:
		return "none"
	}
}

// HasHangul reports whether s contains at least one Hangul syllable.
func HasHangul(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}

// Normalize folds a term for comparison: whitespace removed, lowercased.
// Terms without Hangul additionally get each word singularized, so
// "Korean Wars" and "korean war" compare equal. Mixed-script terms are
// treated as Korean and skip singularization.
func Normalize(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	if !HasHangul(s) {
		for i, f := range fields {
			fields[i] = inflection.Singular(f)
		}
	}
	return strings.ToLower(strings.Join(fields, ""))
}

// Ranker ranks labels against a single query term.
type Ranker struct {
	term string
	norm string
}

func NewRanker(term string) *Ranker {
	return &Ranker{term: term, norm: Normalize(term)}
}

// Tier classifies label against the ranker's term.
func (r *Ranker) Tier(label string) Tier {
	norm := Normalize(subject.Clean(label))
	if norm == "" || r.norm == "" {
		return TierNone
	}
	switch {
	case norm == r.norm:
		return TierExact
	case strings.HasPrefix(norm, r.norm):
		return TierPrefix
	case strings.Contains(norm, r.norm):
		return TierContains
	}
	paren, bracket := subject.Qualifiers(label)
	if paren != "" && strings.Contains(Normalize(paren), r.norm) {
		return TierQualifier
	}
	if bracket != "" && strings.Contains(Normalize(bracket), r.norm) {
		return TierQualifier
	}
	return TierNone
}

// Key is the composite sort key for one label.
type Key struct {
	Tier   Tier
	Length int
	Lower  string
}

func (r *Ranker) Key(label string) Key {
	clean := subject.Clean(label)
	return Key{
		Tier:   r.Tier(label),
		Length: len([]rune(clean)),
		Lower:  strings.ToLower(clean),
	}
}

// Less reports whether a ranks ahead of b.
func (a Key) Less(b Key) bool {
	return a.less(b)
}

func (a Key) less(b Key) bool {
	if a.Tier != b.Tier {
		return a.Tier < b.Tier
	}
	if a.Length != b.Length {
		return a.Length < b.Length
	}
	return a.Lower < b.Lower
}

// Less reports whether label a ranks ahead of label b.
func (r *Ranker) Less(a, b string) bool {
	return r.Key(a).less(r.Key(b))
}

// MultiRanker ranks labels against several query terms at once, scoring
// each label by its best term. A comma-separated query ("전쟁, war") ranks
// a label by whichever term it matches best.
type MultiRanker struct {
	rankers []*Ranker
}

func NewMultiRanker(terms []string) *MultiRanker {
	m := &MultiRanker{rankers: make([]*Ranker, 0, len(terms))}
	for _, t := range terms {
		m.rankers = append(m.rankers, NewRanker(t))
	}
	return m
}

// Key returns the best composite key for label across all terms.
func (m *MultiRanker) Key(label string) Key {
	if len(m.rankers) == 0 {
		return Key{Tier: TierNone}
	}
	best := m.rankers[0].Key(label)
	for _, r := range m.rankers[1:] {
		if k := r.Key(label); k.less(best) {
			best = k
		}
	}
	return best
}

// SortRows orders rows in place, ranking each row's matched label (or its
// preferred label when no match text was recorded) against all terms.
func (m *MultiRanker) SortRows(rows []models.ResultRow) {
	type keyed struct {
		key Key
		row models.ResultRow
	}
	pairs := make([]keyed, len(rows))
	for i := range rows {
		label := rows[i].Matched
		if label == "" {
			label = rows[i].PrefLabel
		}
		pairs[i] = keyed{key: m.Key(label), row: rows[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].key.less(pairs[j].key)
	})
	for i := range pairs {
		rows[i] = pairs[i].row
	}
}

// SortCandidates orders index candidates with predicate priority as the
// final tiebreak.
func (m *MultiRanker) SortCandidates(cands []models.CandidateMatch) {
	type keyed struct {
		key  Key
		cand models.CandidateMatch
	}
	pairs := make([]keyed, len(cands))
	for i := range cands {
		pairs[i] = keyed{key: m.Key(cands[i].MatchedText), cand: cands[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.key != b.key {
			return a.key.less(b.key)
		}
		return a.cand.PredicatePriority < b.cand.PredicatePriority
	})
	for i := range pairs {
		cands[i] = pairs[i].cand
	}
}

// SortRows orders rows in place by the match quality of their matched
// label, falling back to the preferred label when no matched text was
// recorded. The sort is stable so candidate order (already FTS-ranked)
// breaks remaining ties.
func (r *Ranker) SortRows(rows []models.ResultRow) {
	type keyed struct {
		key Key
		row models.ResultRow
	}
	pairs := make([]keyed, len(rows))
	for i := range rows {
		label := rows[i].Matched
		if label == "" {
			label = rows[i].PrefLabel
		}
		pairs[i] = keyed{key: r.Key(label), row: rows[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].key.less(pairs[j].key)
	})
	for i := range pairs {
		rows[i] = pairs[i].row
	}
}

// SortCandidates orders raw index candidates the same way, with predicate
// priority as the final tiebreak.
func (r *Ranker) SortCandidates(cands []models.CandidateMatch) {
	type keyed struct {
		key  Key
		cand models.CandidateMatch
	}
	pairs := make([]keyed, len(cands))
	for i := range cands {
		pairs[i] = keyed{key: r.Key(cands[i].MatchedText), cand: cands[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.key.Tier != b.key.Tier {
			return a.key.Tier < b.key.Tier
		}
		if a.key.Length != b.key.Length {
			return a.key.Length < b.key.Length
		}
		if a.key.Lower != b.key.Lower {
			return a.key.Lower < b.key.Lower
		}
		return a.cand.PredicatePriority < b.cand.PredicatePriority
	})
	for i := range pairs {
		cands[i] = pairs[i].cand
	}
}
