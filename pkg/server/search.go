package server

import (
	"context"

	"github.com/ontologymarket/catalog/internal/authn"
	"github.com/ontologymarket/catalog/pkg/server/commands"
)

type SearchRequest struct {
	Term   string
	Limit  int
	Offset int
}

// Search returns one page of the records visible to the caller and matching the term.
// Anonymous callers see public records only.
func (s *Server) Search(ctx context.Context, req SearchRequest) (*Response[commands.SearchResult], error) {
	ctx, span := tracer.Start(ctx, "Search")
	defer span.End()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.search.Execute(ctx, commands.SearchRequest{
		Term:     req.Term,
		Limit:    req.Limit,
		Offset:   req.Offset,
		Identity: authn.SubjectFromContext(ctx),
	})
	if err != nil {
		return nil, err
	}

	return ok("Ontologies retrieved successfully", *res), nil
}
