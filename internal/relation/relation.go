// Package relation resolves a concept's semantic neighborhood: related,
// broader, and narrower concepts, each rendered as a subject token, plus
// the concept's preferred label and synonyms.
package relation

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/hyperjump/chajda/internal/langtag"
	"github.com/hyperjump/chajda/internal/models"
	"github.com/hyperjump/chajda/internal/storage"
	"github.com/hyperjump/chajda/internal/subject"
)

const (
	PredRelated  = "related"
	PredBroader  = "broader"
	PredNarrower = "narrower"
)

// Neighbors holds a concept's relation targets, one subject token per
// neighbor, in deterministic order.
type Neighbors struct {
	Related  []string
	Broader  []string
	Narrower []string
}

// Resolver walks relation edges and hydrates neighbor labels.
type Resolver struct {
	store  storage.Store
	logger *zap.Logger
}

func NewResolver(store storage.Store, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: store, logger: logger}
}

// PreferredLabel returns the best display label for a concept: prefLabel
// before label before altLabel, and within each predicate Korean before
// English before anything else. Returns "" when the concept has no labels.
func (r *Resolver) PreferredLabel(ctx context.Context, conceptID string) (string, error) {
	for _, pred := range models.LabelPredicates {
		lits, err := r.store.LiteralsFor(ctx, conceptID, []string{pred})
		if err != nil {
			return "", fmt.Errorf("labels for %s: %w", conceptID, err)
		}
		if best := pickByLanguage(lits); best != "" {
			return best, nil
		}
	}
	return "", nil
}

// pickByLanguage chooses the literal with the best language rank; literals
// sharing a rank keep stored order, so the first seen wins. The language
// comes from the lang column when present, otherwise from an inline @tag
// suffix.
func pickByLanguage(lits []models.Literal) string {
	bestText := ""
	bestRank := -1
	for _, l := range lits {
		text := l.Text
		lang := l.Lang
		if lang == "" {
			base, tag := langtag.Split(text)
			text, lang = base, tag
		}
		if text == "" {
			continue
		}
		if rank := langtag.Rank(lang); bestRank == -1 || rank < bestRank {
			bestText, bestRank = text, rank
		}
	}
	return bestText
}

// Synonyms returns the concept's alternative labels, language-deduplicated.
func (r *Resolver) Synonyms(ctx context.Context, conceptID string) ([]string, error) {
	lits, err := r.store.LiteralsFor(ctx, conceptID, []string{"altLabel"})
	if err != nil {
		return nil, fmt.Errorf("synonyms for %s: %w", conceptID, err)
	}
	texts := make([]string, 0, len(lits))
	for _, l := range lits {
		text := l.Text
		if l.Lang != "" && langtag.Strip(text) == text {
			text = text + "@" + l.Lang
		}
		texts = append(texts, text)
	}
	deduped := langtag.Dedup(texts)
	for i, s := range deduped {
		deduped[i] = langtag.Strip(s)
	}
	return deduped, nil
}

// Neighbors resolves every relation edge of a concept. Broader and narrower
// are each other's inverse in the data, so both directions are walked:
// a stored (x broader y) edge makes y broader-of x and x narrower-of y even
// when only one direction was asserted. Neighbors without any resolvable
// label are dropped.
func (r *Resolver) Neighbors(ctx context.Context, conceptID string) (*Neighbors, error) {
	related, err := r.neighborIDs(ctx, conceptID, PredRelated, PredRelated)
	if err != nil {
		return nil, err
	}
	broader, err := r.neighborIDs(ctx, conceptID, PredBroader, PredNarrower)
	if err != nil {
		return nil, err
	}
	narrower, err := r.neighborIDs(ctx, conceptID, PredNarrower, PredBroader)
	if err != nil {
		return nil, err
	}

	n := &Neighbors{}
	if n.Related, err = r.tokens(ctx, conceptID, related); err != nil {
		return nil, err
	}
	if n.Broader, err = r.tokens(ctx, conceptID, broader); err != nil {
		return nil, err
	}
	if n.Narrower, err = r.tokens(ctx, conceptID, narrower); err != nil {
		return nil, err
	}
	return n, nil
}

// neighborIDs unions direct targets of pred with sources of its inverse,
// excluding self-loops.
func (r *Resolver) neighborIDs(ctx context.Context, conceptID, pred, inverse string) ([]string, error) {
	targets, err := r.store.RelationTargets(ctx, conceptID, pred)
	if err != nil {
		return nil, fmt.Errorf("%s edges of %s: %w", pred, conceptID, err)
	}
	sources, err := r.store.RelationSources(ctx, inverse, conceptID)
	if err != nil {
		return nil, fmt.Errorf("inverse %s edges of %s: %w", inverse, conceptID, err)
	}

	seen := make(map[string]bool, len(targets)+len(sources))
	var ids []string
	for _, id := range append(targets, sources...) {
		if id == "" || id == conceptID || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// tokens renders neighbor ids as subject tokens, skipping unlabelable ones.
func (r *Resolver) tokens(ctx context.Context, conceptID string, ids []string) ([]string, error) {
	var out []string
	for _, id := range ids {
		label, err := r.PreferredLabel(ctx, id)
		if err != nil {
			return nil, err
		}
		if label == "" {
			r.logger.Debug("dropping unlabeled neighbor",
				zap.String("concept", conceptID),
				zap.String("neighbor", id))
			continue
		}
		out = append(out, subject.Format(label, id))
	}
	return out, nil
}
