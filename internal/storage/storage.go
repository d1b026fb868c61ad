// Package storage provides the SQLite-backed triple store for concepts and
// the full-text label mirror kept consistent with it.
//
// The mirror is an FTS5 virtual table living in the same database file as
// the literal table, and every literal mutation updates it inside the same
// transaction. Builds must enable FTS5 in the driver:
//
//	go build -tags sqlite_fts5 ./...
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/chajda/internal/models"
)

var (
	// ErrSchemaUnresolved means the snapshot's tables could not be mapped
	// to the literal/relation roles. Fatal for the connection; every
	// literal and relation query returns it until the store is reopened
	// against a usable snapshot.
	ErrSchemaUnresolved = errors.New("snapshot schema unresolved")

	// ErrStorageUnavailable means the database could not be reached.
	// Transient; the caller may retry.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrStaleIndex means the full-text mirror has diverged from the
	// literal table, which can only happen when rows were loaded outside
	// the store's write path. Treated as a correctness failure, not a
	// performance concern.
	ErrStaleIndex = errors.New("full-text mirror out of sync with literal table")
)

// Store is the read/write surface over the concept triple store.
type Store interface {
	// Concept returns the concept row for id, or nil when absent.
	Concept(ctx context.Context, id string) (*models.Concept, error)

	// LiteralsByPredicateAndText returns (concept_id, text) pairs whose
	// text contains substring, restricted to the given predicates.
	// Case-sensitive, no dedup.
	LiteralsByPredicateAndText(ctx context.Context, predicates []string, substring string) ([]models.CandidateMatch, error)

	// LiteralsFor returns the literals of a concept under the given
	// predicates, in stored order.
	LiteralsFor(ctx context.Context, conceptID string, predicates []string) ([]models.Literal, error)

	// RelationTargets returns target concept ids for edges
	// (conceptID, predicate, *).
	RelationTargets(ctx context.Context, conceptID, predicate string) ([]string, error)

	// RelationSources returns source concept ids for edges
	// (*, predicate, conceptID) — the inverse direction.
	RelationSources(ctx context.Context, predicate, targetID string) ([]string, error)

	// SearchLabels runs an FTS5 MATCH expression over the label mirror
	// and returns one candidate per concept: the best-matching literal
	// by predicate priority, then length, then text.
	SearchLabels(ctx context.Context, matchExpr string, predicates []string) ([]models.CandidateMatch, error)

	// AllLabels streams every label-bearing literal, for rebuilding
	// secondary structures (suggestion dictionary).
	AllLabels(ctx context.Context) ([]models.Literal, error)

	// Write path. Literal mutations propagate to the full-text mirror
	// within the same transaction.
	PutConcept(ctx context.Context, c *models.Concept) error
	PutLiteral(ctx context.Context, l *models.Literal) error
	DeleteLiteral(ctx context.Context, conceptID, predicate, text string) error
	ReplaceLiteral(ctx context.Context, conceptID, predicate, oldText, newText string) error
	PutRelation(ctx context.Context, r *models.Relation) error
	BatchPut(ctx context.Context, concepts []models.Concept, literals []models.Literal, relations []models.Relation) error

	// CountConcepts and CountLiterals report store size for status output.
	CountConcepts(ctx context.Context) (int64, error)
	CountLiterals(ctx context.Context) (int64, error)

	// Reopen closes the connection and opens the snapshot at path,
	// re-resolving the schema mapping. Used when the snapshot file is
	// replaced with a new catalog generation.
	Reopen(path string) error

	Close() error
}
