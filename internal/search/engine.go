// Package search orchestrates a query end to end: preprocessing, full-text
// candidate recall, hydration of each hit into a result row, and final
// ranking. One query runs at a time; the engine's state is observable for
// the status endpoint.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/chajda/internal/models"
	"github.com/hyperjump/chajda/internal/ranking"
	"github.com/hyperjump/chajda/internal/relation"
	"github.com/hyperjump/chajda/internal/storage"
	"github.com/hyperjump/chajda/internal/subject"
)

var (
	// ErrEmptyQuery is returned when preprocessing leaves no usable term.
	ErrEmptyQuery = errors.New("empty query")
	// ErrIndexUnavailable is returned when the full-text index cannot
	// serve the query; the underlying cause is wrapped alongside it.
	ErrIndexUnavailable = errors.New("search index unavailable")
)

// State tracks where the engine is in the query pipeline.
type State int

const (
	StateIdle State = iota
	StateBuildingExpression
	StateSearching
	StateHydrating
	StateRanking
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuildingExpression:
		return "building_expression"
	case StateSearching:
		return "searching"
	case StateHydrating:
		return "hydrating"
	case StateRanking:
		return "ranking"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Suggester proposes alternative terms when a query comes back empty.
type Suggester interface {
	Suggest(ctx context.Context, term string) ([]string, error)
}

// Engine runs the search pipeline over a store.
type Engine struct {
	store     storage.Store
	resolver  *relation.Resolver
	suggester Suggester
	logger    *zap.Logger

	// runMu serializes queries so the observable state always describes
	// one pipeline run. mu only guards the state field itself.
	runMu sync.Mutex
	mu    sync.Mutex
	state State
}

// NewEngine wires the pipeline. suggester may be nil.
func NewEngine(store storage.Store, resolver *relation.Resolver, suggester Suggester, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:     store,
		resolver:  resolver,
		suggester: suggester,
		logger:    logger,
		state:     StateIdle,
	}
}

// State returns the engine's current pipeline state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Search runs one query through the pipeline. Queries are serialized; a
// second caller blocks until the first finishes. Rows that fail hydration
// are returned partial rather than failing the whole query, but a canceled
// context aborts immediately.
func (e *Engine) Search(ctx context.Context, q models.SearchQuery) (*models.SearchResponse, error) {
	q.Validate()
	if strings.TrimSpace(q.Term) == "" {
		return nil, ErrEmptyQuery
	}

	e.runMu.Lock()
	defer e.runMu.Unlock()

	queryID := uuid.New().String()
	start := time.Now()
	log := e.logger.With(zap.String("query_id", queryID))

	resp, err := e.run(ctx, q, log)
	if err != nil {
		e.setState(StateFailed)
		log.Warn("search failed",
			zap.String("term", q.Term),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, err
	}
	resp.QueryTime = time.Since(start)
	e.setState(StateDone)
	log.Info("search complete",
		zap.String("term", q.Term),
		zap.Int("total", resp.Total),
		zap.Int("returned", len(resp.Rows)),
		zap.Duration("elapsed", resp.QueryTime))
	return resp, nil
}

func (e *Engine) run(ctx context.Context, q models.SearchQuery, log *zap.Logger) (*models.SearchResponse, error) {
	e.setState(StateBuildingExpression)
	terms := Preprocess(q.Term)
	if len(terms) == 0 {
		return nil, ErrEmptyQuery
	}
	expr := BuildMatchExpr(terms)
	if expr == "" {
		// Every term was pure punctuation. Nothing can match; the
		// storage layer is never consulted.
		return nil, ErrEmptyQuery
	}
	log.Debug("match expression built",
		zap.Strings("terms", terms),
		zap.String("expr", expr))

	e.setState(StateSearching)
	cands, err := e.recall(ctx, expr, terms, q.Predicates(), !q.NoDedup)
	if err != nil {
		return nil, err
	}
	total := len(cands)

	ranker := ranking.NewMultiRanker(terms)
	ranker.SortCandidates(cands)
	if q.Limit > 0 && len(cands) > q.Limit {
		cands = cands[:q.Limit]
	}

	e.setState(StateHydrating)
	rows, err := e.hydrate(ctx, cands, log)
	if err != nil {
		return nil, err
	}

	e.setState(StateRanking)
	ranker.SortRows(rows)

	resp := &models.SearchResponse{
		Rows:  rows,
		Total: total,
		Term:  q.Term,
	}
	if len(rows) == 0 && e.suggester != nil {
		suggestions, serr := e.suggester.Suggest(ctx, terms[0])
		if serr != nil {
			log.Debug("suggestion lookup failed", zap.Error(serr))
		} else {
			resp.Suggestions = suggestions
		}
	}
	return resp, nil
}

// recall unions full-text hits with substring hits. The index only finds
// token prefixes, so "전쟁" recalling "한국전쟁" needs the substring pass;
// the index hit wins when both find the same concept. With dedup off every
// substring literal is kept, so one concept may yield several rows.
func (e *Engine) recall(ctx context.Context, expr string, terms, predicates []string, dedup bool) ([]models.CandidateMatch, error) {
	cands, err := e.store.SearchLabels(ctx, expr, predicates)
	if err != nil {
		if errors.Is(err, storage.ErrStaleIndex) ||
			errors.Is(err, storage.ErrStorageUnavailable) ||
			errors.Is(err, storage.ErrSchemaUnresolved) {
			return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
		}
		return nil, err
	}

	seen := make(map[string]bool, len(cands))
	for _, c := range cands {
		seen[c.ConceptID] = true
	}
	for _, term := range terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		subs, err := e.store.LiteralsByPredicateAndText(ctx, predicates, term)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
		}
		for _, c := range subs {
			if dedup && seen[c.ConceptID] {
				continue
			}
			seen[c.ConceptID] = true
			cands = append(cands, c)
		}
	}
	return cands, nil
}

// hydrate builds a full result row per candidate. A row whose secondary
// lookups fail is marked partial and kept; cancellation between fetches
// aborts the whole query.
func (e *Engine) hydrate(ctx context.Context, cands []models.CandidateMatch, log *zap.Logger) ([]models.ResultRow, error) {
	rows := make([]models.ResultRow, 0, len(cands))
	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := e.hydrateOne(ctx, c)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("partial result",
				zap.String("concept", c.ConceptID),
				zap.Error(err))
			// Keep whatever hydrateOne managed to fill in before failing.
			row.Partial = true
			row.PartialErr = err.Error()
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (e *Engine) hydrateOne(ctx context.Context, c models.CandidateMatch) (models.ResultRow, error) {
	row := models.ResultRow{
		ConceptID: c.ConceptID,
		Matched:   subject.Clean(c.MatchedText),
		LinkURL:   subject.LinkURL(c.ConceptID),
	}

	pref, err := e.resolver.PreferredLabel(ctx, c.ConceptID)
	if err != nil {
		return row, err
	}
	if pref == "" {
		pref = subject.Clean(c.MatchedText)
	}
	row.PrefLabel = pref
	row.Subject = subject.Format(pref, c.ConceptID)

	neighbors, err := e.resolver.Neighbors(ctx, c.ConceptID)
	if err != nil {
		return row, err
	}
	row.Related = neighbors.Related
	row.Broader = neighbors.Broader
	row.Narrower = neighbors.Narrower

	row.Synonyms, err = e.resolver.Synonyms(ctx, c.ConceptID)
	if err != nil {
		return row, err
	}

	row.Category, err = e.joinedLiterals(ctx, c.ConceptID, "category")
	if err != nil {
		return row, err
	}
	row.DDC, err = e.joinedLiterals(ctx, c.ConceptID, "ddc")
	if err != nil {
		return row, err
	}
	row.KDCLike, err = e.joinedLiterals(ctx, c.ConceptID, "kdc")
	if err != nil {
		return row, err
	}
	return row, nil
}

// joinedLiterals returns a concept's literals under one predicate as a
// single "; "-joined classification string.
func (e *Engine) joinedLiterals(ctx context.Context, conceptID, predicate string) (string, error) {
	lits, err := e.store.LiteralsFor(ctx, conceptID, []string{predicate})
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(lits))
	for _, l := range lits {
		if l.Text != "" {
			parts = append(parts, l.Text)
		}
	}
	return strings.Join(parts, "; "), nil
}
