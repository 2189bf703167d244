// Package authz decides whether an identity may mutate a record. Every decision reads the
// capability edges currently stored; nothing is cached.
package authz

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ontologymarket/catalog/pkg/logger"
	"github.com/ontologymarket/catalog/pkg/storage"
)

var tracer = otel.Tracer("catalog/pkg/authz")

type Resolver struct {
	backend storage.AccessBackend
	logger  logger.Logger
}

// NewResolver creates a new resolver.
func NewResolver(backend storage.AccessBackend, logger logger.Logger) *Resolver {
	return &Resolver{
		backend: backend,
		logger:  logger,
	}
}

// CanEdit reports whether identity holds CREATED or CAN_EDIT on the record.
func (r *Resolver) CanEdit(ctx context.Context, identity, recordID string) (bool, error) {
	return r.check(ctx, "CanEdit", identity, recordID, func(a storage.Access) bool {
		return a.Created || a.CanEdit
	})
}

// CanDelete reports whether identity holds CREATED or CAN_DELETE on the record.
//
// Deletes do not call it: [storage.RecordWriter].DeleteRecords applies the same
// predicate inside the delete statement, so the check and the delete cannot be split
// by a concurrent revoke.
func (r *Resolver) CanDelete(ctx context.Context, identity, recordID string) (bool, error) {
	return r.check(ctx, "CanDelete", identity, recordID, func(a storage.Access) bool {
		return a.Created || a.CanDelete
	})
}

// IsOwner reports whether identity created the record.
func (r *Resolver) IsOwner(ctx context.Context, identity, recordID string) (bool, error) {
	return r.check(ctx, "IsOwner", identity, recordID, func(a storage.Access) bool {
		return a.Created
	})
}

// Exists reports whether the record exists, regardless of who may see it.
func (r *Resolver) Exists(ctx context.Context, recordID string) (bool, error) {
	if recordID == "" {
		return false, nil
	}
	access, err := r.backend.ReadAccess(ctx, "", recordID)
	if err != nil {
		return false, err
	}
	return access.Exists, nil
}

func (r *Resolver) check(ctx context.Context, name, identity, recordID string, allowed func(storage.Access) bool) (bool, error) {
	ctx, span := tracer.Start(ctx, "authz."+name, trace.WithAttributes(
		attribute.String("record_id", recordID),
	))
	defer span.End()

	if identity == "" || recordID == "" {
		return false, nil
	}

	access, err := r.backend.ReadAccess(ctx, identity, recordID)
	if err != nil {
		r.logger.ErrorWithContext(ctx, "failed to read access", zap.String("record_id", recordID), zap.Error(err))
		return false, err
	}

	ok := access.Exists && allowed(access)
	span.SetAttributes(attribute.Bool("allowed", ok))
	return ok, nil
}
