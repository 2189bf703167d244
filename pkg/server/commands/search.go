//go:generate mockgen -source search.go -destination ./mock_search_executor.go -package commands SearchExecutor

package commands

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ontologymarket/catalog/internal/concurrency"
	"github.com/ontologymarket/catalog/internal/keys"
	"github.com/ontologymarket/catalog/pkg/logger"
	serverErrors "github.com/ontologymarket/catalog/pkg/server/errors"
	"github.com/ontologymarket/catalog/pkg/storage"
)

var tracer = otel.Tracer("catalog/pkg/server/commands")

// SearchRequest is one page of a search as seen by Identity. An empty Identity is an
// anonymous caller.
type SearchRequest struct {
	Term     string
	Limit    int
	Offset   int
	Identity string
}

// SearchResult is one page of matching records. Count is the size of the page and Total
// the number of matches across all pages.
type SearchResult struct {
	Results []storage.Record `json:"results"`
	Count   int              `json:"count"`
	Total   int              `json:"total"`
	Offset  int              `json:"offset"`
	Limit   int              `json:"limit"`
}

// SearchExecutor answers search requests.
type SearchExecutor interface {
	Execute(ctx context.Context, req SearchRequest) (*SearchResult, error)
}

// NormalizeSearchRequest clamps the page bounds and normalizes the term the same way the
// cache key does, so that a cached page and a fresh one agree.
//
// Matching stays case-sensitive against the lowercased term. A term such as "Gene"
// therefore only finds records whose name or description contains "gene", and never
// finds "Gene Ontology" through its name.
func NormalizeSearchRequest(req SearchRequest) SearchRequest {
	req.Limit = min(max(req.Limit, 1), storage.MaxSearchLimit)
	req.Offset = max(req.Offset, 0)
	req.Term, _ = keys.NormalizeTerm(req.Term)
	return req
}

// SearchQuery runs searches against the datastore.
type SearchQuery struct {
	backend storage.RecordReader
	logger  logger.Logger
}

var _ SearchExecutor = (*SearchQuery)(nil)

type SearchQueryOption func(*SearchQuery)

func WithSearchQueryLogger(l logger.Logger) SearchQueryOption {
	return func(q *SearchQuery) {
		q.logger = l
	}
}

func NewSearchQuery(backend storage.RecordReader, opts ...SearchQueryOption) *SearchQuery {
	q := &SearchQuery{
		backend: backend,
		logger:  logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Execute returns the page of visible records matching req, newest first, with their
// tags attached.
func (q *SearchQuery) Execute(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	ctx, span := tracer.Start(ctx, "SearchQuery.Execute")
	defer span.End()

	req = NormalizeSearchRequest(req)
	filter := storage.SearchFilter{
		Term:     req.Term,
		Identity: req.Identity,
		Limit:    req.Limit,
		Offset:   req.Offset,
	}

	records, total, err := concurrency.Pair(ctx,
		func(ctx context.Context) ([]storage.Record, error) {
			return q.backend.SearchRecords(ctx, filter)
		},
		func(ctx context.Context) (int, error) {
			return q.backend.CountRecords(ctx, filter)
		},
	)
	if err != nil {
		q.logger.ErrorWithContext(ctx, "search failed", zap.Error(err))
		return nil, serverErrors.HandleError("", err)
	}

	if len(records) > 0 {
		ids := make([]string, 0, len(records))
		for _, r := range records {
			ids = append(ids, r.ID)
		}

		tags, err := q.backend.ReadTags(ctx, ids)
		if err != nil {
			q.logger.ErrorWithContext(ctx, "failed to read tags", zap.Error(err))
			return nil, serverErrors.HandleError("", err)
		}

		for i := range records {
			records[i].Tags = tags[records[i].ID]
		}
	}

	// an empty page and tag list encode as [] rather than null
	if records == nil {
		records = []storage.Record{}
	}
	for i := range records {
		if records[i].Tags == nil {
			records[i].Tags = []string{}
		}
	}

	span.SetAttributes(attribute.Int("count", len(records)), attribute.Int("total", total))

	return &SearchResult{
		Results: records,
		Count:   len(records),
		Total:   total,
		Offset:  req.Offset,
		Limit:   req.Limit,
	}, nil
}
