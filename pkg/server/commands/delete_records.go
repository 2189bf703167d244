package commands

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/ontologymarket/catalog/pkg/logger"
	serverErrors "github.com/ontologymarket/catalog/pkg/server/errors"
	"github.com/ontologymarket/catalog/pkg/storage"
)

type DeleteRecordsResult struct {
	DeletedCount int `json:"deleted_count"`
}

type DeleteRecordsCommand struct {
	backend     storage.RecordWriter
	invalidator Invalidator
	maxRecords  int
	logger      logger.Logger
}

type DeleteRecordsCommandOption func(*DeleteRecordsCommand)

func WithDeleteRecordsMaxRecords(n int) DeleteRecordsCommandOption {
	return func(c *DeleteRecordsCommand) {
		c.maxRecords = n
	}
}

func WithDeleteRecordsLogger(l logger.Logger) DeleteRecordsCommandOption {
	return func(c *DeleteRecordsCommand) {
		c.logger = l
	}
}

func NewDeleteRecordsCommand(backend storage.RecordWriter, invalidator Invalidator, opts ...DeleteRecordsCommandOption) *DeleteRecordsCommand {
	c := &DeleteRecordsCommand{
		backend:     backend,
		invalidator: invalidator,
		maxRecords:  storage.DefaultMaxRecordsPerWrite,
		logger:      logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute deletes the records on which identity holds CREATED or CAN_DELETE. When none
// qualifies the result is NotFound, whether or not the records exist. The permission is
// the one of [authz.Resolver.CanDelete], evaluated by the datastore as part of the delete.
func (c *DeleteRecordsCommand) Execute(ctx context.Context, identity string, ids []string) (*DeleteRecordsResult, error) {
	ctx, span := tracer.Start(ctx, "DeleteRecordsCommand.Execute")
	defer span.End()

	ids = slices.DeleteFunc(slices.Clone(ids), func(id string) bool { return id == "" })
	if len(ids) == 0 {
		return nil, serverErrors.ValidationError("No ontology IDs provided")
	}
	if len(ids) > c.maxRecords {
		return nil, serverErrors.ValidationErrorf("At most %d ontologies can be deleted at once", c.maxRecords)
	}

	deleted, err := c.backend.DeleteRecords(ctx, identity, ids)
	if err != nil {
		c.logger.ErrorWithContext(ctx, "failed to delete records", zap.Error(err))
		return nil, serverErrors.HandleError("Failed to delete ontologies", err)
	}
	if deleted == 0 {
		return nil, serverErrors.NotFoundError("No ontologies found with the provided IDs for the given user")
	}

	c.invalidator.Invalidate(ctx)
	return &DeleteRecordsResult{DeletedCount: deleted}, nil
}
