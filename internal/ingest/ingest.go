// Package ingest loads concept snapshots from JSON into the store. Loading
// goes through the store's batch write path, which is what keeps the
// full-text mirror consistent with the loaded rows.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/chajda/internal/models"
	"github.com/hyperjump/chajda/internal/storage"
)

const defaultBatchSize = 1000

// ConceptDoc is one concept in the ingestion file.
type ConceptDoc struct {
	ID        string       `json:"id"`
	Type      string       `json:"type,omitempty"`
	Literals  []LiteralDoc `json:"literals,omitempty"`
	Relations []EdgeDoc    `json:"relations,omitempty"`
}

type LiteralDoc struct {
	Prop  string `json:"prop"`
	Value string `json:"value"`
	Lang  string `json:"lang,omitempty"`
}

type EdgeDoc struct {
	Prop   string `json:"prop"`
	Target string `json:"target"`
}

// Stats summarizes one ingestion run.
type Stats struct {
	BatchID   string        `json:"batch_id"`
	Concepts  int           `json:"concepts"`
	Literals  int           `json:"literals"`
	Relations int           `json:"relations"`
	Skipped   int           `json:"skipped"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Loader streams concept documents into a store in batches.
type Loader struct {
	store     storage.Store
	logger    *zap.Logger
	batchSize int
}

func NewLoader(store storage.Store, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{store: store, logger: logger, batchSize: defaultBatchSize}
}

// LoadFile ingests a JSON array of concept documents from path.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ingestion file: %w", err)
	}
	defer f.Close()
	return l.Load(ctx, f)
}

// Load ingests a JSON array of concept documents from r. Documents are
// decoded one at a time, so arbitrarily large files never load fully into
// memory. Documents without an id are counted as skipped, not fatal.
func (l *Loader) Load(ctx context.Context, r io.Reader) (*Stats, error) {
	start := time.Now()
	stats := &Stats{BatchID: uuid.New().String()}
	log := l.logger.With(zap.String("batch_id", stats.BatchID))

	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read ingestion file: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("ingestion file must be a JSON array, got %v", tok)
	}

	var (
		concepts  []models.Concept
		literals  []models.Literal
		relations []models.Relation
	)
	flush := func() error {
		if len(concepts) == 0 && len(literals) == 0 && len(relations) == 0 {
			return nil
		}
		if err := l.store.BatchPut(ctx, concepts, literals, relations); err != nil {
			return fmt.Errorf("failed to write batch: %w", err)
		}
		concepts, literals, relations = concepts[:0], literals[:0], relations[:0]
		return nil
	}

	for dec.More() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var doc ConceptDoc
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("malformed concept document after %d concepts: %w", stats.Concepts, err)
		}
		if doc.ID == "" {
			stats.Skipped++
			log.Warn("skipping concept without id")
			continue
		}

		concepts = append(concepts, models.Concept{ID: doc.ID, Type: doc.Type})
		stats.Concepts++
		for _, lit := range doc.Literals {
			if lit.Prop == "" || lit.Value == "" {
				stats.Skipped++
				continue
			}
			literals = append(literals, models.Literal{
				ConceptID: doc.ID,
				Predicate: lit.Prop,
				Text:      lit.Value,
				Lang:      lit.Lang,
			})
			stats.Literals++
		}
		for _, e := range doc.Relations {
			if e.Prop == "" || e.Target == "" {
				stats.Skipped++
				continue
			}
			relations = append(relations, models.Relation{
				ConceptID: doc.ID,
				Predicate: e.Prop,
				Target:    e.Target,
			})
			stats.Relations++
		}

		if len(concepts) >= l.batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	stats.Elapsed = time.Since(start)
	log.Info("ingestion complete",
		zap.Int("concepts", stats.Concepts),
		zap.Int("literals", stats.Literals),
		zap.Int("relations", stats.Relations),
		zap.Int("skipped", stats.Skipped),
		zap.Duration("elapsed", stats.Elapsed))
	return stats, nil
}
