package commands

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ontologymarket/catalog/pkg/authz"
	"github.com/ontologymarket/catalog/pkg/logger"
	serverErrors "github.com/ontologymarket/catalog/pkg/server/errors"
	"github.com/ontologymarket/catalog/pkg/storage"
)

const notAuthorizedToManage = "Not authorized to manage access to this ontology"

// CapabilityRequest names the user receiving or losing a capability.
type CapabilityRequest struct {
	Subject    string `json:"subject"`
	Capability string `json:"capability"`
}

// CapabilityCommand grants and revokes CAN_EDIT and CAN_DELETE. Only the creator of a
// record manages its capabilities.
type CapabilityCommand struct {
	backend     storage.AccessBackend
	resolver    *authz.Resolver
	invalidator Invalidator
	logger      logger.Logger
}

type CapabilityCommandOption func(*CapabilityCommand)

func WithCapabilityCommandLogger(l logger.Logger) CapabilityCommandOption {
	return func(c *CapabilityCommand) {
		c.logger = l
	}
}

func NewCapabilityCommand(
	backend storage.AccessBackend,
	resolver *authz.Resolver,
	invalidator Invalidator,
	opts ...CapabilityCommandOption,
) *CapabilityCommand {
	c := &CapabilityCommand{
		backend:     backend,
		resolver:    resolver,
		invalidator: invalidator,
		logger:      logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CapabilityCommand) Grant(ctx context.Context, identity, id string, req CapabilityRequest) error {
	ctx, span := tracer.Start(ctx, "CapabilityCommand.Grant")
	defer span.End()

	return c.execute(ctx, identity, id, req, c.backend.WriteCapability)
}

func (c *CapabilityCommand) Revoke(ctx context.Context, identity, id string, req CapabilityRequest) error {
	ctx, span := tracer.Start(ctx, "CapabilityCommand.Revoke")
	defer span.End()

	return c.execute(ctx, identity, id, req, c.backend.DeleteCapability)
}

func (c *CapabilityCommand) execute(
	ctx context.Context,
	identity, id string,
	req CapabilityRequest,
	write func(context.Context, string, string, storage.Capability) error,
) error {
	if strings.TrimSpace(id) == "" {
		return serverErrors.ValidationError(noRecordIDMsg)
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return serverErrors.ValidationError("No subject provided")
	}
	capability, err := storage.ParseCapability(strings.ToUpper(strings.TrimSpace(req.Capability)))
	if err != nil {
		return serverErrors.HandleError("", err)
	}

	owner, err := c.resolver.IsOwner(ctx, identity, id)
	if err != nil {
		return serverErrors.HandleError("Failed authorization check", err)
	}
	if !owner {
		exists, err := c.resolver.Exists(ctx, id)
		if err != nil {
			return serverErrors.HandleError("Failed authorization check", err)
		}
		if !exists {
			return serverErrors.NotFoundError(recordNotFoundMsg)
		}
		return serverErrors.AuthorizationError(notAuthorizedToManage)
	}

	if err := write(ctx, subject, id, capability); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return serverErrors.NotFoundError(recordNotFoundMsg)
		}
		c.logger.ErrorWithContext(ctx, "failed to change capability",
			zap.String("record_id", id),
			zap.String("capability", string(capability)),
			zap.Error(err))
		return serverErrors.HandleError("Failed to update access", err)
	}

	c.invalidator.Invalidate(ctx)
	return nil
}
