package commands

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ontologymarket/catalog/internal/concurrency"
	"github.com/ontologymarket/catalog/pkg/logger"
	serverErrors "github.com/ontologymarket/catalog/pkg/server/errors"
	"github.com/ontologymarket/catalog/pkg/storage"
)

type UserPermissions struct {
	CanEditOntologies   []string `json:"can_edit_ontologies"`
	CanDeleteOntologies []string `json:"can_delete_ontologies"`
}

type UserProfile struct {
	IsPublic    bool            `json:"is_public"`
	Permissions UserPermissions `json:"permissions"`
}

func emptyProfile() *UserProfile {
	return &UserProfile{
		Permissions: UserPermissions{
			CanEditOntologies:   []string{},
			CanDeleteOntologies: []string{},
		},
	}
}

type userProfileBackend interface {
	storage.UserBackend
	storage.AccessBackend
}

// UserProfileQuery returns the visibility of a user and the records it may edit or
// delete.
type UserProfileQuery struct {
	backend userProfileBackend
	logger  logger.Logger
}

func NewUserProfileQuery(backend userProfileBackend, l logger.Logger) *UserProfileQuery {
	if l == nil {
		l = logger.NewNoopLogger()
	}
	return &UserProfileQuery{backend: backend, logger: l}
}

func (q *UserProfileQuery) Execute(ctx context.Context, fuid string) (*UserProfile, error) {
	ctx, span := tracer.Start(ctx, "UserProfileQuery.Execute")
	defer span.End()

	user, err := q.backend.ReadUser(ctx, fuid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return emptyProfile(), nil
		}
		q.logger.ErrorWithContext(ctx, "failed to read user", zap.Error(err))
		return nil, serverErrors.HandleError("", err)
	}

	return q.profile(ctx, user)
}

func (q *UserProfileQuery) profile(ctx context.Context, user *storage.User) (*UserProfile, error) {
	canEdit, canDelete, err := concurrency.Pair(ctx,
		func(ctx context.Context) ([]string, error) {
			return q.backend.ListRecordIDs(ctx, user.FUID, storage.CapabilityCanEdit)
		},
		func(ctx context.Context) ([]string, error) {
			return q.backend.ListRecordIDs(ctx, user.FUID, storage.CapabilityCanDelete)
		},
	)
	if err != nil {
		q.logger.ErrorWithContext(ctx, "failed to list user permissions", zap.Error(err))
		return nil, serverErrors.HandleError("", err)
	}

	profile := emptyProfile()
	profile.IsPublic = user.IsPublic
	if canEdit != nil {
		profile.Permissions.CanEditOntologies = canEdit
	}
	if canDelete != nil {
		profile.Permissions.CanDeleteOntologies = canDelete
	}
	return profile, nil
}

// UpdateUserVisibilityCommand sets whether a user's profile is public, creating the user
// on first sight. Record visibility is unaffected, so the search cache is left alone.
type UpdateUserVisibilityCommand struct {
	query *UserProfileQuery
}

func NewUpdateUserVisibilityCommand(query *UserProfileQuery) *UpdateUserVisibilityCommand {
	return &UpdateUserVisibilityCommand{query: query}
}

func (c *UpdateUserVisibilityCommand) Execute(ctx context.Context, fuid string, isPublic bool) (*UserProfile, error) {
	ctx, span := tracer.Start(ctx, "UpdateUserVisibilityCommand.Execute")
	defer span.End()

	user, err := c.query.backend.UpsertUserVisibility(ctx, fuid, isPublic)
	if err != nil {
		c.query.logger.ErrorWithContext(ctx, "failed to update user visibility", zap.Error(err))
		return nil, serverErrors.HandleError("Failed to update user profile", err)
	}

	return c.query.profile(ctx, user)
}
