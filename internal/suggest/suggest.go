// Package suggest maintains a typo-correction dictionary of every label
// term in the snapshot. When a query comes back empty, fuzzy-matching the
// dictionary proposes terms the user probably meant.
package suggest

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/chajda/internal/storage"
	"github.com/hyperjump/chajda/internal/subject"
)

const rebuildBatchSize = 500

// bleve caps edit distance at 2
const maxFuzziness = 2

type termDoc struct {
	Term string `json:"term"`
}

// Dictionary is a fuzzy-searchable set of label terms.
type Dictionary struct {
	index          bleve.Index
	path           string
	maxDistance    int
	maxSuggestions int
	logger         *zap.Logger
}

// NewDictionary opens (or creates) the dictionary index at path. An empty
// path keeps the dictionary in memory.
func NewDictionary(path string, maxDistance, maxSuggestions int, logger *zap.Logger) (*Dictionary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxDistance <= 0 || maxDistance > maxFuzziness {
		maxDistance = maxFuzziness
	}
	if maxSuggestions <= 0 {
		maxSuggestions = 5
	}

	mapping := bleve.NewIndexMapping()
	var index bleve.Index
	var err error
	switch {
	case path == "":
		index, err = bleve.NewMemOnly(mapping)
	case dirExists(path):
		index, err = bleve.Open(path)
	default:
		index, err = bleve.New(path, mapping)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open suggestion index: %w", err)
	}
	return &Dictionary{
		index:          index,
		path:           path,
		maxDistance:    maxDistance,
		maxSuggestions: maxSuggestions,
		logger:         logger,
	}, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Rebuild re-indexes every label term in the store. Terms are cleaned of
// qualifiers and language tags, so the dictionary holds what users actually
// type.
func (d *Dictionary) Rebuild(ctx context.Context, store storage.Store) error {
	labels, err := store.AllLabels(ctx)
	if err != nil {
		return fmt.Errorf("failed to load labels for suggestion index: %w", err)
	}

	batch := d.index.NewBatch()
	seen := make(map[string]bool, len(labels))
	indexed := 0
	for _, l := range labels {
		if err := ctx.Err(); err != nil {
			return err
		}
		term := subject.Clean(l.Text)
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		if err := batch.Index(term, termDoc{Term: term}); err != nil {
			return err
		}
		indexed++
		if batch.Size() >= rebuildBatchSize {
			if err := d.index.Batch(batch); err != nil {
				return fmt.Errorf("failed to index suggestion batch: %w", err)
			}
			batch = d.index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := d.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to index suggestion batch: %w", err)
		}
	}
	d.logger.Info("suggestion dictionary rebuilt", zap.Int("terms", indexed))
	return nil
}

// Suggest returns up to maxSuggestions dictionary terms within edit
// distance of term, best score first. The term itself is excluded.
func (d *Dictionary) Suggest(ctx context.Context, term string) ([]string, error) {
	if term == "" {
		return nil, nil
	}
	// MatchQuery analyzes the input, so multi-word terms fuzzy-match per
	// token instead of failing as one oversized term.
	query := bleve.NewMatchQuery(term)
	query.SetFuzziness(d.maxDistance)
	query.SetField("term")

	req := bleve.NewSearchRequestOptions(query, d.maxSuggestions+1, 0, false)
	res, err := d.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("suggestion lookup failed: %w", err)
	}

	var out []string
	for _, hit := range res.Hits {
		if hit.ID == term {
			continue
		}
		out = append(out, hit.ID)
		if len(out) == d.maxSuggestions {
			break
		}
	}
	return out, nil
}

// Count returns the number of dictionary terms.
func (d *Dictionary) Count() (uint64, error) {
	return d.index.DocCount()
}

// Close releases the underlying index.
func (d *Dictionary) Close() error {
	return d.index.Close()
}
