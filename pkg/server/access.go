package server

import (
	"context"

	"github.com/ontologymarket/catalog/pkg/server/commands"
)

// GrantCapability gives req.Subject the capability on the record. Only the creator of
// the record may grant.
func (s *Server) GrantCapability(ctx context.Context, id string, req commands.CapabilityRequest) (*Response[commands.CapabilityRequest], error) {
	ctx, span := tracer.Start(ctx, "GrantCapability")
	defer span.End()

	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.capability.Grant(ctx, identity.Subject, id, req); err != nil {
		return nil, err
	}
	return ok("Capability granted successfully", req), nil
}

func (s *Server) RevokeCapability(ctx context.Context, id string, req commands.CapabilityRequest) (*Response[commands.CapabilityRequest], error) {
	ctx, span := tracer.Start(ctx, "RevokeCapability")
	defer span.End()

	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.capability.Revoke(ctx, identity.Subject, id, req); err != nil {
		return nil, err
	}
	return ok("Capability revoked successfully", req), nil
}

func (s *Server) GetUserProfile(ctx context.Context) (*Response[commands.UserProfile], error) {
	ctx, span := tracer.Start(ctx, "GetUserProfile")
	defer span.End()

	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	profile, err := s.profile.Execute(ctx, identity.Subject)
	if err != nil {
		return nil, err
	}
	return ok("User profile retrieved successfully", *profile), nil
}

func (s *Server) UpdateUserVisibility(ctx context.Context, isPublic bool) (*Response[commands.UserProfile], error) {
	ctx, span := tracer.Start(ctx, "UpdateUserVisibility")
	defer span.End()

	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	profile, err := s.visibility.Execute(ctx, identity.Subject, isPublic)
	if err != nil {
		return nil, err
	}
	return ok("User profile updated successfully", *profile), nil
}
