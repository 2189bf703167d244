package commands

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ontologymarket/catalog/pkg/authz"
	"github.com/ontologymarket/catalog/pkg/logger"
	serverErrors "github.com/ontologymarket/catalog/pkg/server/errors"
	"github.com/ontologymarket/catalog/pkg/storage"
)

const (
	noRecordIDMsg       = "No ontology ID provided"
	recordNotFoundMsg   = "No ontology found with the provided ID"
	notAuthorizedToEdit = "Not authorized to update this ontology"
)

// UpdateRequest holds the fields to change. Nil fields are left as they are; a non-nil
// Tags replaces the whole tag set.
type UpdateRequest struct {
	Name              *string   `json:"name,omitempty"`
	SourceURL         *string   `json:"source_url,omitempty"`
	ImageURL          *string   `json:"image_url,omitempty"`
	Description       *string   `json:"description,omitempty"`
	NodeCount         *int64    `json:"node_count,omitempty"`
	RelationshipCount *int64    `json:"relationship_count,omitempty"`
	Score             *float64  `json:"score,omitempty"`
	IsPublic          *bool     `json:"is_public,omitempty"`
	Tags              *[]string `json:"tags,omitempty"`
}

type UpdateRecordCommand struct {
	backend     storage.RecordWriter
	resolver    *authz.Resolver
	invalidator Invalidator
	now         func() time.Time
	logger      logger.Logger
}

type UpdateRecordCommandOption func(*UpdateRecordCommand)

func WithUpdateRecordClock(now func() time.Time) UpdateRecordCommandOption {
	return func(c *UpdateRecordCommand) {
		c.now = now
	}
}

func WithUpdateRecordLogger(l logger.Logger) UpdateRecordCommandOption {
	return func(c *UpdateRecordCommand) {
		c.logger = l
	}
}

func NewUpdateRecordCommand(
	backend storage.RecordWriter,
	resolver *authz.Resolver,
	invalidator Invalidator,
	opts ...UpdateRecordCommandOption,
) *UpdateRecordCommand {
	c := &UpdateRecordCommand{
		backend:     backend,
		resolver:    resolver,
		invalidator: invalidator,
		now:         time.Now,
		logger:      logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute applies req to the record if identity holds CREATED or CAN_EDIT on it.
func (c *UpdateRecordCommand) Execute(ctx context.Context, identity, id string, req UpdateRequest) (*storage.Record, error) {
	ctx, span := tracer.Start(ctx, "UpdateRecordCommand.Execute")
	defer span.End()

	if strings.TrimSpace(id) == "" {
		return nil, serverErrors.ValidationError(noRecordIDMsg)
	}
	if err := validateUpdate(req); err != nil {
		return nil, err
	}

	allowed, err := c.resolver.CanEdit(ctx, identity, id)
	if err != nil {
		return nil, serverErrors.HandleError("Failed authorization check", err)
	}
	if !allowed {
		return nil, c.denied(ctx, id)
	}

	patch := storage.RecordPatch{
		Name:              req.Name,
		SourceURL:         req.SourceURL,
		ImageURL:          req.ImageURL,
		Description:       req.Description,
		NodeCount:         req.NodeCount,
		RelationshipCount: req.RelationshipCount,
		Score:             req.Score,
		IsPublic:          req.IsPublic,
		UpdatedAt:         c.now().UTC().Truncate(time.Microsecond),
	}
	if req.Tags != nil {
		tags := storage.NormalizeTags(*req.Tags)
		patch.Tags = &tags
	}

	// the write is conditioned on the edge again, so a grant revoked since the check
	// above turns it into a no-op
	updated, err := c.backend.UpdateRecord(ctx, identity, id, patch)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, serverErrors.NotFoundError(recordNotFoundMsg)
		}
		c.logger.ErrorWithContext(ctx, "failed to update record", zap.String("record_id", id), zap.Error(err))
		return nil, serverErrors.HandleError("Failed to update ontology", err)
	}

	c.invalidator.Invalidate(ctx)
	return updated, nil
}

// denied tells an absent record from a missing permission.
func (c *UpdateRecordCommand) denied(ctx context.Context, id string) error {
	exists, err := c.resolver.Exists(ctx, id)
	if err != nil {
		return serverErrors.HandleError("Failed authorization check", err)
	}
	if !exists {
		return serverErrors.NotFoundError(recordNotFoundMsg)
	}
	return serverErrors.AuthorizationError(notAuthorizedToEdit)
}

func validateUpdate(req UpdateRequest) error {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return serverErrors.ValidationError("name must not be empty")
	}
	if req.SourceURL != nil && strings.TrimSpace(*req.SourceURL) == "" {
		return serverErrors.ValidationError("source_url must not be empty")
	}
	return validateCounts(req.NodeCount, req.RelationshipCount)
}
