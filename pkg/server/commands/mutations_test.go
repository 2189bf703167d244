package commands

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ontologymarket/catalog/internal/mocks"
	"github.com/ontologymarket/catalog/pkg/authz"
	"github.com/ontologymarket/catalog/pkg/logger"
	serverErrors "github.com/ontologymarket/catalog/pkg/server/errors"
	"github.com/ontologymarket/catalog/pkg/storage"
	"github.com/ontologymarket/catalog/pkg/storage/memory"
)

type countingInvalidator struct {
	calls atomic.Int32
}

func (c *countingInvalidator) Invalidate(context.Context) {
	c.calls.Add(1)
}

func ptr[T any](v T) *T {
	return &v
}

type fixture struct {
	ds          *memory.MemoryBackend
	invalidator *countingInvalidator
	resolver    *authz.Resolver
	add         *AddRecordsCommand
	update      *UpdateRecordCommand
	del         *DeleteRecordsCommand
	capability  *CapabilityCommand
}

func newFixture() *fixture {
	ds := memory.New()
	invalidator := &countingInvalidator{}
	resolver := authz.NewResolver(ds, logger.NewNoopLogger())
	return &fixture{
		ds:          ds,
		invalidator: invalidator,
		resolver:    resolver,
		add:         NewAddRecordsCommand(ds, invalidator, WithAddRecordsMaxRecords(3)),
		update:      NewUpdateRecordCommand(ds, resolver, invalidator),
		del:         NewDeleteRecordsCommand(ds, invalidator),
		capability:  NewCapabilityCommand(ds, resolver, invalidator),
	}
}

func (f *fixture) addOne(t *testing.T, owner, name string) string {
	t.Helper()
	res, err := f.add.Execute(context.Background(), owner, []NewRecord{{Name: name, SourceURL: "https://example.com/" + name}}, nil)
	require.NoError(t, err)
	require.Len(t, res.CreatedRecords, 1)
	return res.CreatedRecords[0].ID
}

func requireKind(t *testing.T, err error, kind serverErrors.Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, serverErrors.KindOf(err), err.Error())
	if msg != "" {
		require.Equal(t, msg, err.Error())
	}
}

func TestAddRecords(t *testing.T) {
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		f := newFixture()

		_, err := f.add.Execute(ctx, "owner", nil, nil)
		requireKind(t, err, serverErrors.KindValidation, "No ontologies provided")

		_, err = f.add.Execute(ctx, "owner", make([]NewRecord, 4), nil)
		requireKind(t, err, serverErrors.KindValidation, "At most 3 ontologies can be added at once")

		_, err = f.add.Execute(ctx, "owner", []NewRecord{{Name: " ", SourceURL: "https://a"}}, nil)
		requireKind(t, err, serverErrors.KindValidation, "")

		_, err = f.add.Execute(ctx, "owner", []NewRecord{{Name: "a", SourceURL: "https://a", NodeCount: ptr(int64(-1))}}, nil)
		requireKind(t, err, serverErrors.KindValidation, "node_count must not be negative")

		require.Zero(t, f.invalidator.calls.Load())
	})

	t.Run("idempotent", func(t *testing.T) {
		f := newFixture()
		records := []NewRecord{
			{Name: "one", SourceURL: "https://a", Tags: []string{"Graph", " graph ", ""}},
			{Name: "again", SourceURL: "https://a"},
			{Name: "two", SourceURL: "https://b"},
		}

		res, err := f.add.Execute(ctx, "owner", records, nil)
		require.NoError(t, err)
		require.Len(t, res.CreatedRecords, 2)
		require.Equal(t, 1, res.SkippedCount)
		require.Equal(t, int32(1), f.invalidator.calls.Load())

		tags, err := f.ds.ReadTags(ctx, []string{res.CreatedRecords[0].ID})
		require.NoError(t, err)
		require.Equal(t, []string{"graph"}, tags[res.CreatedRecords[0].ID])

		res, err = f.add.Execute(ctx, "owner", records, nil)
		require.NoError(t, err)
		require.Empty(t, res.CreatedRecords)
		require.Equal(t, 3, res.SkippedCount)
		require.Equal(t, int32(1), f.invalidator.calls.Load(), "a no-op add must not invalidate")

		// another owner publishes the same source independently
		res, err = f.add.Execute(ctx, "someone-else", records[:1], nil)
		require.NoError(t, err)
		require.Len(t, res.CreatedRecords, 1)
	})

	t.Run("created_at_override", func(t *testing.T) {
		f := newFixture()
		when := time.Date(2020, 2, 2, 0, 0, 0, 0, time.FixedZone("CET", 3600))

		res, err := f.add.Execute(ctx, "owner", []NewRecord{{Name: "old", SourceURL: "https://old", IsPublic: true}}, &when)
		require.NoError(t, err)

		page, err := f.ds.SearchRecords(ctx, storage.SearchFilter{Limit: 10})
		require.NoError(t, err)
		require.Len(t, page, 1)
		require.Equal(t, res.CreatedRecords[0].ID, page[0].ID)
		require.Equal(t, when.UTC(), page[0].CreatedAt)
		require.Equal(t, page[0].CreatedAt, page[0].UpdatedAt)
	})

	t.Run("store_failure", func(t *testing.T) {
		mockController := gomock.NewController(t)
		mockDatastore := mocks.NewMockCatalogDatastore(mockController)
		invalidator := &countingInvalidator{}

		mockDatastore.EXPECT().CreateRecords(gomock.Any(), "owner", gomock.Any()).Return(nil, errors.New("boom"))

		_, err := NewAddRecordsCommand(mockDatastore, invalidator).Execute(ctx, "owner", []NewRecord{{Name: "a", SourceURL: "https://a"}}, nil)
		requireKind(t, err, serverErrors.KindStore, "Database operation failed")
		require.Zero(t, invalidator.calls.Load())
	})
}

func TestUpdateRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		f := newFixture()

		_, err := f.update.Execute(ctx, "owner", "", UpdateRequest{})
		requireKind(t, err, serverErrors.KindValidation, "No ontology ID provided")

		_, err = f.update.Execute(ctx, "owner", "id", UpdateRequest{Name: ptr("")})
		requireKind(t, err, serverErrors.KindValidation, "name must not be empty")
	})

	t.Run("absent_record", func(t *testing.T) {
		f := newFixture()

		_, err := f.update.Execute(ctx, "owner", "missing", UpdateRequest{Name: ptr("x")})
		requireKind(t, err, serverErrors.KindNotFound, "No ontology found with the provided ID")
		require.Zero(t, f.invalidator.calls.Load())
	})

	t.Run("stranger", func(t *testing.T) {
		f := newFixture()
		id := f.addOne(t, "owner", "mine")

		_, err := f.update.Execute(ctx, "stranger", id, UpdateRequest{Name: ptr("x")})
		requireKind(t, err, serverErrors.KindAuthorization, "Not authorized to update this ontology")
		require.Equal(t, int32(1), f.invalidator.calls.Load())
	})

	t.Run("owner_updates_fields_and_tags", func(t *testing.T) {
		f := newFixture()
		id := f.addOne(t, "owner", "mine")

		tags := []string{"B", "a", "b"}
		updated, err := f.update.Execute(ctx, "owner", id, UpdateRequest{
			Description: ptr("about pizza"),
			IsPublic:    ptr(true),
			Tags:        &tags,
		})
		require.NoError(t, err)
		require.Equal(t, "mine", updated.Name)
		require.Equal(t, "about pizza", *updated.Description)
		require.True(t, updated.IsPublic)
		require.Equal(t, []string{"a", "b"}, updated.Tags)
		require.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
		require.Equal(t, int32(2), f.invalidator.calls.Load())
	})

	t.Run("revoked_editor_is_denied", func(t *testing.T) {
		f := newFixture()
		id := f.addOne(t, "owner", "shared")
		req := CapabilityRequest{Subject: "editor", Capability: "CAN_EDIT"}

		require.NoError(t, f.capability.Grant(ctx, "owner", id, req))

		_, err := f.update.Execute(ctx, "editor", id, UpdateRequest{Name: ptr("edited")})
		require.NoError(t, err)

		require.NoError(t, f.capability.Revoke(ctx, "owner", id, req))

		_, err = f.update.Execute(ctx, "editor", id, UpdateRequest{Name: ptr("again")})
		requireKind(t, err, serverErrors.KindAuthorization, "Not authorized to update this ontology")
	})

	t.Run("edge_lost_between_check_and_write", func(t *testing.T) {
		mockController := gomock.NewController(t)
		mockDatastore := mocks.NewMockCatalogDatastore(mockController)
		invalidator := &countingInvalidator{}
		resolver := authz.NewResolver(mockDatastore, logger.NewNoopLogger())

		mockDatastore.EXPECT().ReadAccess(gomock.Any(), "editor", "id").Return(storage.Access{Exists: true, CanEdit: true}, nil)
		mockDatastore.EXPECT().UpdateRecord(gomock.Any(), "editor", "id", gomock.Any()).Return(nil, storage.ErrNotFound)

		_, err := NewUpdateRecordCommand(mockDatastore, resolver, invalidator).Execute(ctx, "editor", "id", UpdateRequest{Name: ptr("x")})
		requireKind(t, err, serverErrors.KindNotFound, "No ontology found with the provided ID")
		require.Zero(t, invalidator.calls.Load())
	})
}

func TestDeleteRecords(t *testing.T) {
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		f := newFixture()

		_, err := f.del.Execute(ctx, "owner", nil)
		requireKind(t, err, serverErrors.KindValidation, "No ontology IDs provided")

		_, err = f.del.Execute(ctx, "owner", []string{""})
		requireKind(t, err, serverErrors.KindValidation, "No ontology IDs provided")
	})

	t.Run("nothing_deletable_hides_existence", func(t *testing.T) {
		f := newFixture()
		id := f.addOne(t, "owner", "mine")

		_, err := f.del.Execute(ctx, "stranger", []string{id})
		requireKind(t, err, serverErrors.KindNotFound, "No ontologies found with the provided IDs for the given user")

		_, err = f.del.Execute(ctx, "stranger", []string{"missing"})
		requireKind(t, err, serverErrors.KindNotFound, "No ontologies found with the provided IDs for the given user")
		require.Equal(t, int32(1), f.invalidator.calls.Load())
	})

	t.Run("deletes_permitted_subset", func(t *testing.T) {
		f := newFixture()
		mine := f.addOne(t, "owner", "mine")
		theirs := f.addOne(t, "other", "theirs")

		res, err := f.del.Execute(ctx, "owner", []string{mine, theirs, "missing"})
		require.NoError(t, err)
		require.Equal(t, 1, res.DeletedCount)
		require.Equal(t, int32(3), f.invalidator.calls.Load())

		access, err := f.ds.ReadAccess(ctx, "other", theirs)
		require.NoError(t, err)
		require.True(t, access.Exists)
	})
}

func TestCapabilityCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		f := newFixture()
		id := f.addOne(t, "owner", "mine")

		err := f.capability.Grant(ctx, "owner", id, CapabilityRequest{Subject: "", Capability: "CAN_EDIT"})
		requireKind(t, err, serverErrors.KindValidation, "No subject provided")

		err = f.capability.Grant(ctx, "owner", id, CapabilityRequest{Subject: "x", Capability: "CREATED"})
		requireKind(t, err, serverErrors.KindValidation, "")
	})

	t.Run("only_the_creator_manages_access", func(t *testing.T) {
		f := newFixture()
		id := f.addOne(t, "owner", "mine")

		require.NoError(t, f.capability.Grant(ctx, "owner", id, CapabilityRequest{Subject: "editor", Capability: "can_edit"}))

		err := f.capability.Grant(ctx, "editor", id, CapabilityRequest{Subject: "friend", Capability: "CAN_EDIT"})
		requireKind(t, err, serverErrors.KindAuthorization, "Not authorized to manage access to this ontology")

		err = f.capability.Revoke(ctx, "owner", "missing", CapabilityRequest{Subject: "friend", Capability: "CAN_EDIT"})
		requireKind(t, err, serverErrors.KindNotFound, "No ontology found with the provided ID")
	})

	t.Run("grant_enables_delete", func(t *testing.T) {
		f := newFixture()
		id := f.addOne(t, "owner", "mine")

		ok, err := f.resolver.CanDelete(ctx, "deleter", id)
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, f.capability.Grant(ctx, "owner", id, CapabilityRequest{Subject: "deleter", Capability: "CAN_DELETE"}))
		require.Equal(t, int32(2), f.invalidator.calls.Load())

		res, err := f.del.Execute(ctx, "deleter", []string{id})
		require.NoError(t, err)
		require.Equal(t, 1, res.DeletedCount)
	})
}

func TestUserProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	query := NewUserProfileQuery(f.ds, nil)

	profile, err := query.Execute(ctx, "nobody")
	require.NoError(t, err)
	require.Equal(t, emptyProfile(), profile)

	mine := f.addOne(t, "owner", "mine")
	theirs := f.addOne(t, "other", "theirs")
	require.NoError(t, f.capability.Grant(ctx, "other", theirs, CapabilityRequest{Subject: "owner", Capability: "CAN_EDIT"}))

	profile, err = query.Execute(ctx, "owner")
	require.NoError(t, err)
	require.False(t, profile.IsPublic)
	require.ElementsMatch(t, []string{mine, theirs}, profile.Permissions.CanEditOntologies)
	require.Equal(t, []string{mine}, profile.Permissions.CanDeleteOntologies)

	calls := f.invalidator.calls.Load()
	profile, err = NewUpdateUserVisibilityCommand(query).Execute(ctx, "owner", true)
	require.NoError(t, err)
	require.True(t, profile.IsPublic)
	require.Equal(t, calls, f.invalidator.calls.Load())

	profile, err = NewUpdateUserVisibilityCommand(query).Execute(ctx, "brand-new", true)
	require.NoError(t, err)
	require.True(t, profile.IsPublic)
	require.Empty(t, profile.Permissions.CanEditOntologies)
}
