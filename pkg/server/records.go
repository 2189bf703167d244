package server

import (
	"context"
	"fmt"
	"time"

	"github.com/ontologymarket/catalog/pkg/server/commands"
	"github.com/ontologymarket/catalog/pkg/storage"
)

type AddRequest struct {
	Records []commands.NewRecord
	// CreatedAt overrides the creation time of every added record.
	CreatedAt *time.Time
}

func (s *Server) AddRecords(ctx context.Context, req AddRequest) (*Response[commands.AddRecordsResult], error) {
	ctx, span := tracer.Start(ctx, "AddRecords")
	defer span.End()

	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.add.Execute(ctx, identity.Subject, req.Records, req.CreatedAt)
	if err != nil {
		return nil, err
	}

	return ok(addedMessage(len(res.CreatedRecords), res.SkippedCount), *res), nil
}

func addedMessage(created, skipped int) string {
	if created == 0 && skipped == 0 {
		return "No ontologies added."
	}

	var msg string
	if created > 0 {
		msg = fmt.Sprintf("Successfully added %d ontologies.", created)
	}
	if skipped > 0 {
		if msg != "" {
			msg += " "
		}
		msg += fmt.Sprintf("Skipped %d ontologies that already existed.", skipped)
	}
	return msg
}

func (s *Server) UpdateRecord(ctx context.Context, id string, req commands.UpdateRequest) (*Response[storage.Record], error) {
	ctx, span := tracer.Start(ctx, "UpdateRecord")
	defer span.End()

	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	record, err := s.update.Execute(ctx, identity.Subject, id, req)
	if err != nil {
		return nil, err
	}

	return ok("Ontology updated successfully", *record), nil
}

// DeleteRecords deletes the records the caller may delete. Ids the caller cannot delete
// are ignored without revealing whether they exist.
func (s *Server) DeleteRecords(ctx context.Context, ids []string) (*Response[commands.DeleteRecordsResult], error) {
	ctx, span := tracer.Start(ctx, "DeleteRecords")
	defer span.End()

	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.remove.Execute(ctx, identity.Subject, ids)
	if err != nil {
		return nil, err
	}

	return ok(fmt.Sprintf("Successfully deleted %d ontologies", res.DeletedCount), *res), nil
}
