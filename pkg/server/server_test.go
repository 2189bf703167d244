package server

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ontologymarket/catalog/internal/authn"
	"github.com/ontologymarket/catalog/pkg/cache/redis"
	"github.com/ontologymarket/catalog/pkg/server/commands"
	serverErrors "github.com/ontologymarket/catalog/pkg/server/errors"
	"github.com/ontologymarket/catalog/pkg/storage"
	"github.com/ontologymarket/catalog/pkg/storage/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func ptr[T any](v T) *T {
	return &v
}

func as(subject string) context.Context {
	return authn.ContextWithIdentity(context.Background(), &authn.Identity{Subject: subject})
}

func newServer(t *testing.T, opts ...CatalogServiceOption) (*Server, *memory.MemoryBackend) {
	t.Helper()

	ds := memory.New()
	s := MustNewServerWithOpts(append([]CatalogServiceOption{WithDatastore(ds)}, opts...)...)
	t.Cleanup(s.Close)
	return s, ds
}

func add(t *testing.T, s *Server, owner string, records ...commands.NewRecord) []string {
	t.Helper()

	res, err := s.AddRecords(as(owner), AddRequest{Records: records})
	require.NoError(t, err)

	ids := make([]string, 0, len(res.Data.CreatedRecords))
	for _, r := range res.Data.CreatedRecords {
		ids = append(ids, r.ID)
	}
	return ids
}

func search(t *testing.T, s *Server, ctx context.Context, term string) []string {
	t.Helper()

	res, err := s.Search(ctx, SearchRequest{Term: term, Limit: 100})
	require.NoError(t, err)
	require.True(t, res.Success)

	names := make([]string, 0, len(res.Data.Results))
	for _, r := range res.Data.Results {
		names = append(names, r.Name)
	}
	return names
}

func requireKind(t *testing.T, err error, kind serverErrors.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, serverErrors.KindOf(err), err.Error())
}

func TestNewServerWithOpts(t *testing.T) {
	_, err := NewServerWithOpts()
	require.Error(t, err)

	_, err = NewServerWithOpts(WithDatastore(memory.New()), WithCacheTTL(0))
	require.Error(t, err)

	_, err = NewServerWithOpts(WithDatastore(memory.New()), WithMaxRecordsPerWrite(0))
	require.Error(t, err)

	require.Panics(t, func() { MustNewServerWithOpts() })
}

func TestVisibilityAcrossIdentities(t *testing.T) {
	s, _ := newServer(t)

	add(t, s, "user-a",
		commands.NewRecord{Name: "pizza private", SourceURL: "https://a.example/private"},
		commands.NewRecord{Name: "pizza public", SourceURL: "https://a.example/public", IsPublic: true},
	)

	require.ElementsMatch(t, []string{"pizza private", "pizza public"}, search(t, s, as("user-a"), "pizza"))
	require.ElementsMatch(t, []string{"pizza public"}, search(t, s, as("user-b"), "pizza"))
	require.ElementsMatch(t, []string{"pizza public"}, search(t, s, context.Background(), "pizza"))

	// a cached page of one identity is never served to another
	require.ElementsMatch(t, []string{"pizza public"}, search(t, s, as("user-b"), "pizza"))
	size, err := s.CacheSize(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, size)
}

func TestSearchMatchesTheLowercasedTermCaseSensitively(t *testing.T) {
	s, _ := newServer(t)

	add(t, s, "user-a",
		commands.NewRecord{Name: "Gene Ontology", SourceURL: "https://a.example/go", IsPublic: true},
		commands.NewRecord{Name: "gene sets", SourceURL: "https://a.example/sets", IsPublic: true},
		commands.NewRecord{Name: "GO slim", SourceURL: "https://a.example/slim", Description: ptr("a gene subset"), IsPublic: true},
	)

	// "Gene" is searched as "gene", which the capitalized name does not contain
	require.ElementsMatch(t, []string{"gene sets", "GO slim"}, search(t, s, as("user-a"), "Gene"))
	require.ElementsMatch(t, []string{"gene sets", "GO slim"}, search(t, s, as("user-a"), "gene"))
	require.Empty(t, search(t, s, as("user-a"), "Ontology"))
}

func TestMakingARecordPublicIsVisibleImmediately(t *testing.T) {
	s, _ := newServer(t)

	ids := add(t, s, "user-a", commands.NewRecord{Name: "pizza", SourceURL: "https://a.example/pizza"})
	require.Empty(t, search(t, s, as("user-b"), "pizza"))
	require.Empty(t, search(t, s, context.Background(), "pizza"))

	res, err := s.UpdateRecord(as("user-a"), ids[0], commands.UpdateRequest{IsPublic: ptr(true)})
	require.NoError(t, err)
	require.Equal(t, "Ontology updated successfully", res.Message)
	require.True(t, res.Data.IsPublic)

	require.Equal(t, []string{"pizza"}, search(t, s, as("user-b"), "pizza"))
	require.Equal(t, []string{"pizza"}, search(t, s, context.Background(), "pizza"))
}

func TestCachedSearchMatchesFreshSearch(t *testing.T) {
	s, _ := newServer(t)
	add(t, s, "user-a", commands.NewRecord{Name: "graph data", SourceURL: "https://a.example/g", IsPublic: true})

	first, err := s.Search(as("user-a"), SearchRequest{Term: "  Graph ", Limit: 10})
	require.NoError(t, err)
	second, err := s.Search(as("user-a"), SearchRequest{Term: "graph", Limit: 10})
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, second.Data.Total)
	require.Equal(t, "Ontologies retrieved successfully", second.Message)

	size, err := s.CacheSize(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, size)
}

func TestRedisCacheWithCustomNamespaceIsInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := redis.New(redis.WithURL("redis://"+mr.Addr()+"/0"), redis.WithNamespace("tenant-a:"))
	require.NoError(t, err)

	s, _ := newServer(t, WithCacheStore(store))

	require.Empty(t, search(t, s, as("user-a"), "gene"))
	size, err := s.CacheSize(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, size)
	for _, key := range mr.Keys() {
		require.Regexp(t, "^tenant-a:search:", key)
	}

	add(t, s, "user-b", commands.NewRecord{Name: "gene ontology", SourceURL: "https://b.example/go", IsPublic: true})

	size, err = s.CacheSize(context.Background())
	require.NoError(t, err)
	require.Zero(t, size)
	require.Empty(t, mr.Keys())

	require.Equal(t, []string{"gene ontology"}, search(t, s, as("user-a"), "gene"))
}

func TestEveryMutationClearsTheCache(t *testing.T) {
	s, _ := newServer(t)
	ids := add(t, s, "user-a",
		commands.NewRecord{Name: "one", SourceURL: "https://a.example/1"},
		commands.NewRecord{Name: "two", SourceURL: "https://a.example/2"},
	)

	warm := func() {
		t.Helper()
		for _, ctx := range []context.Context{as("user-a"), as("user-b"), context.Background()} {
			search(t, s, ctx, "")
		}
		size, err := s.CacheSize(context.Background())
		require.NoError(t, err)
		require.Equal(t, 3, size)
	}
	requireEmpty := func() {
		t.Helper()
		size, err := s.CacheSize(context.Background())
		require.NoError(t, err)
		require.Zero(t, size)
	}

	warm()
	add(t, s, "user-a", commands.NewRecord{Name: "three", SourceURL: "https://a.example/3"})
	requireEmpty()

	warm()
	_, err := s.UpdateRecord(as("user-a"), ids[0], commands.UpdateRequest{Name: ptr("uno")})
	require.NoError(t, err)
	requireEmpty()

	warm()
	_, err = s.GrantCapability(as("user-a"), ids[0], commands.CapabilityRequest{Subject: "user-b", Capability: "CAN_EDIT"})
	require.NoError(t, err)
	requireEmpty()

	warm()
	_, err = s.RevokeCapability(as("user-a"), ids[0], commands.CapabilityRequest{Subject: "user-b", Capability: "CAN_EDIT"})
	require.NoError(t, err)
	requireEmpty()

	warm()
	_, err = s.DeleteRecords(as("user-a"), []string{ids[1]})
	require.NoError(t, err)
	requireEmpty()

	// failed or no-op mutations keep the cache
	warm()
	_, err = s.UpdateRecord(as("user-b"), ids[0], commands.UpdateRequest{Name: ptr("stolen")})
	requireKind(t, err, serverErrors.KindAuthorization)
	_, err = s.DeleteRecords(as("user-b"), []string{ids[0]})
	requireKind(t, err, serverErrors.KindNotFound)
	res, err := s.AddRecords(as("user-a"), AddRequest{Records: []commands.NewRecord{{Name: "three", SourceURL: "https://a.example/3"}}})
	require.NoError(t, err)
	require.Equal(t, "Skipped 1 ontologies that already existed.", res.Message)
	_, err = s.UpdateUserVisibility(as("user-a"), true)
	require.NoError(t, err)

	size, err := s.CacheSize(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, size)
}

func TestRevokedEditorCannotUpdate(t *testing.T) {
	s, _ := newServer(t)
	ids := add(t, s, "user-a", commands.NewRecord{Name: "shared", SourceURL: "https://a.example/shared"})

	grant := commands.CapabilityRequest{Subject: "user-b", Capability: "can_edit"}
	res, err := s.GrantCapability(as("user-a"), ids[0], grant)
	require.NoError(t, err)
	require.True(t, res.Success)

	require.Equal(t, []string{"shared"}, search(t, s, as("user-b"), "shared"))
	_, err = s.UpdateRecord(as("user-b"), ids[0], commands.UpdateRequest{Description: ptr("edited by b")})
	require.NoError(t, err)

	_, err = s.RevokeCapability(as("user-a"), ids[0], grant)
	require.NoError(t, err)

	_, err = s.UpdateRecord(as("user-b"), ids[0], commands.UpdateRequest{Description: ptr("again")})
	requireKind(t, err, serverErrors.KindAuthorization)
	require.Equal(t, "Not authorized to update this ontology", err.Error())
	require.Empty(t, search(t, s, as("user-b"), "shared"))

	// only the creator manages access
	_, err = s.GrantCapability(as("user-b"), ids[0], grant)
	requireKind(t, err, serverErrors.KindAuthorization)
	_, err = s.GrantCapability(as("user-a"), "missing", grant)
	requireKind(t, err, serverErrors.KindNotFound)
}

func TestAddRecordsMessages(t *testing.T) {
	s, _ := newServer(t)

	res, err := s.AddRecords(as("user-a"), AddRequest{Records: []commands.NewRecord{
		{Name: "one", SourceURL: "https://a.example/1"},
		{Name: "one again", SourceURL: "https://a.example/1"},
	}})
	require.NoError(t, err)
	require.Equal(t, "Successfully added 1 ontologies. Skipped 1 ontologies that already existed.", res.Message)
	require.Len(t, res.Data.CreatedRecords, 1)
	require.Equal(t, 1, res.Data.SkippedCount)

	createdAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	res, err = s.AddRecords(as("user-a"), AddRequest{
		Records:   []commands.NewRecord{{Name: "dated", SourceURL: "https://a.example/dated", IsPublic: true}},
		CreatedAt: &createdAt,
	})
	require.NoError(t, err)
	require.Equal(t, "Successfully added 1 ontologies.", res.Message)

	page, err := s.Search(context.Background(), SearchRequest{Term: "dated", Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Data.Results, 1)
	require.True(t, createdAt.Equal(page.Data.Results[0].CreatedAt))
	require.True(t, createdAt.Equal(page.Data.Results[0].UpdatedAt))

	require.Equal(t, "No ontologies added.", addedMessage(0, 0))
}

func TestOperationsRequireAnIdentity(t *testing.T) {
	s, _ := newServer(t)
	ctx := context.Background()

	_, err := s.AddRecords(ctx, AddRequest{Records: []commands.NewRecord{{Name: "x", SourceURL: "y"}}})
	requireKind(t, err, serverErrors.KindAuthentication)
	_, err = s.UpdateRecord(ctx, "id", commands.UpdateRequest{})
	requireKind(t, err, serverErrors.KindAuthentication)
	_, err = s.DeleteRecords(ctx, []string{"id"})
	requireKind(t, err, serverErrors.KindAuthentication)
	_, err = s.GrantCapability(ctx, "id", commands.CapabilityRequest{})
	requireKind(t, err, serverErrors.KindAuthentication)
	_, err = s.RevokeCapability(ctx, "id", commands.CapabilityRequest{})
	requireKind(t, err, serverErrors.KindAuthentication)
	_, err = s.GetUserProfile(ctx)
	requireKind(t, err, serverErrors.KindAuthentication)
	_, err = s.UpdateUserVisibility(ctx, true)
	requireKind(t, err, serverErrors.KindAuthentication)
	_, err = s.WhoAmI(ctx)
	requireKind(t, err, serverErrors.KindAuthentication)

	me, err := s.WhoAmI(as("user-a"))
	require.NoError(t, err)
	require.Equal(t, "user-a", me.Data.Subject)
}

func TestDeleteRecords(t *testing.T) {
	s, _ := newServer(t)
	ids := add(t, s, "user-a",
		commands.NewRecord{Name: "one", SourceURL: "https://a.example/1"},
		commands.NewRecord{Name: "two", SourceURL: "https://a.example/2"},
	)

	_, err := s.DeleteRecords(as("user-a"), nil)
	requireKind(t, err, serverErrors.KindValidation)

	res, err := s.DeleteRecords(as("user-a"), append(ids, "missing"))
	require.NoError(t, err)
	require.Equal(t, 2, res.Data.DeletedCount)
	require.Equal(t, "Successfully deleted 2 ontologies", res.Message)

	_, err = s.DeleteRecords(as("user-a"), ids)
	requireKind(t, err, serverErrors.KindNotFound)
}

func TestUserProfile(t *testing.T) {
	s, _ := newServer(t)

	profile, err := s.GetUserProfile(as("user-a"))
	require.NoError(t, err)
	require.False(t, profile.Data.IsPublic)
	require.Empty(t, profile.Data.Permissions.CanEditOntologies)
	require.NotNil(t, profile.Data.Permissions.CanEditOntologies)

	ids := add(t, s, "user-a", commands.NewRecord{Name: "mine", SourceURL: "https://a.example/mine"})

	updated, err := s.UpdateUserVisibility(as("user-a"), true)
	require.NoError(t, err)
	require.True(t, updated.Data.IsPublic)
	require.Equal(t, ids, updated.Data.Permissions.CanEditOntologies)
	require.Equal(t, ids, updated.Data.Permissions.CanDeleteOntologies)

	profile, err = s.GetUserProfile(as("user-a"))
	require.NoError(t, err)
	require.Equal(t, updated.Data, profile.Data)
}

func TestCacheDisabled(t *testing.T) {
	s, _ := newServer(t, WithCacheEnabled(false))
	add(t, s, "user-a", commands.NewRecord{Name: "one", SourceURL: "https://a.example/1", IsPublic: true})

	require.Equal(t, []string{"one"}, search(t, s, context.Background(), "one"))
	size, err := s.CacheSize(context.Background())
	require.NoError(t, err)
	require.Zero(t, size)
}

type blockingDatastore struct {
	storage.CatalogDatastore
}

func (blockingDatastore) SearchRecords(ctx context.Context, _ storage.SearchFilter) ([]storage.Record, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRequestTimeout(t *testing.T) {
	s := MustNewServerWithOpts(
		WithDatastore(blockingDatastore{CatalogDatastore: memory.New()}),
		WithRequestTimeout(20*time.Millisecond),
	)
	t.Cleanup(s.Close)

	_, err := s.Search(context.Background(), SearchRequest{Limit: 10})
	requireKind(t, err, serverErrors.KindTimeout)

	size, err := s.CacheSize(context.Background())
	require.NoError(t, err)
	require.Zero(t, size)
}

func TestIsReady(t *testing.T) {
	s, _ := newServer(t)

	ready, err := s.IsReady(context.Background())
	require.NoError(t, err)
	require.True(t, ready)
}
