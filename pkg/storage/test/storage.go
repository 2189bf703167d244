// Package test is the behavioural suite every storage engine runs.
package test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ontologymarket/catalog/pkg/storage"
)

var cmpOpts = []cmp.Option{
	cmpopts.EquateEmpty(),
}

func RunAllTests(t *testing.T, ds storage.CatalogDatastore) {
	t.Run("TestDatastoreIsReady", func(t *testing.T) {
		status, err := ds.IsReady(context.Background())
		require.NoError(t, err)
		require.True(t, status.IsReady)
	})

	// Records.
	t.Run("TestCreateAndSearch", func(t *testing.T) { CreateAndSearchTest(t, ds) })
	t.Run("TestIdempotentCreate", func(t *testing.T) { IdempotentCreateTest(t, ds) })
	t.Run("TestSearchMatching", func(t *testing.T) { SearchMatchingTest(t, ds) })
	t.Run("TestSearchPagination", func(t *testing.T) { SearchPaginationTest(t, ds) })
	t.Run("TestReadTags", func(t *testing.T) { ReadTagsTest(t, ds) })
	t.Run("TestUpdateRecord", func(t *testing.T) { UpdateRecordTest(t, ds) })
	t.Run("TestDeleteRecords", func(t *testing.T) { DeleteRecordsTest(t, ds) })

	// Capabilities.
	t.Run("TestCapabilities", func(t *testing.T) { CapabilitiesTest(t, ds) })
	t.Run("TestVisibilityThroughGrants", func(t *testing.T) { VisibilityThroughGrantsTest(t, ds) })

	// Users.
	t.Run("TestUsers", func(t *testing.T) { UsersTest(t, ds) })
}

// marker returns a string unique to the running test. Records named after it are only
// matched by searches for it, so tests sharing a datastore do not see each other.
func marker(t *testing.T) string {
	return "m" + uuid.NewString()[:8]
}

func identity(t *testing.T, name string) string {
	return fmt.Sprintf("%s-%s", name, uuid.NewString()[:8])
}

func newRecord(name, sourceURL string, createdAt time.Time, public bool) storage.Record {
	createdAt = createdAt.UTC().Truncate(time.Microsecond)
	return storage.Record{
		ID:        uuid.NewString(),
		Name:      name,
		SourceURL: sourceURL,
		IsPublic:  public,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func ptr[T any](v T) *T {
	return &v
}

func ids(records []storage.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func search(t *testing.T, ds storage.CatalogDatastore, term, who string) []storage.Record {
	t.Helper()
	records, err := ds.SearchRecords(context.Background(), storage.SearchFilter{
		Term:     term,
		Identity: who,
		Limit:    storage.MaxSearchLimit,
	})
	require.NoError(t, err)
	return records
}

func CreateAndSearchTest(t *testing.T, ds storage.CatalogDatastore) {
	ctx := context.Background()
	m := marker(t)
	owner := identity(t, "owner")
	stranger := identity(t, "stranger")
	now := time.Now()

	description := "a " + m + " description"
	public := newRecord(m+" public", "https://example.com/"+m+"/public", now, true)
	public.Description = &description
	public.ImageURL = ptr("https://example.com/img.png")
	public.NodeCount = ptr(int64(42))
	public.RelationshipCount = ptr(int64(7))
	public.Score = ptr(4.5)
	private := newRecord(m+" private", "https://example.com/"+m+"/private", now.Add(time.Second), false)

	created, err := ds.CreateRecords(ctx, owner, []storage.Record{public, private})
	require.NoError(t, err)
	require.Equal(t, []string{public.ID, private.ID}, ids(created))

	t.Run("owner_sees_both_newest_first", func(t *testing.T) {
		got := search(t, ds, m, owner)
		if diff := cmp.Diff([]storage.Record{private, public}, got, cmpOpts...); diff != "" {
			t.Fatalf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("anonymous_sees_public_only", func(t *testing.T) {
		require.Equal(t, []string{public.ID}, ids(search(t, ds, m, "")))
	})

	t.Run("stranger_sees_public_only", func(t *testing.T) {
		require.Equal(t, []string{public.ID}, ids(search(t, ds, m, stranger)))
	})

	t.Run("count_ignores_paging", func(t *testing.T) {
		count, err := ds.CountRecords(ctx, storage.SearchFilter{Term: m, Identity: owner, Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Equal(t, 2, count)

		count, err = ds.CountRecords(ctx, storage.SearchFilter{Term: m, Limit: 1})
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})

	t.Run("owner_holds_every_edge", func(t *testing.T) {
		access, err := ds.ReadAccess(ctx, owner, private.ID)
		require.NoError(t, err)
		require.Equal(t, storage.Access{Exists: true, Created: true, CanEdit: true, CanDelete: true}, access)

		access, err = ds.ReadAccess(ctx, stranger, private.ID)
		require.NoError(t, err)
		require.Equal(t, storage.Access{Exists: true}, access)

		access, err = ds.ReadAccess(ctx, owner, uuid.NewString())
		require.NoError(t, err)
		require.Equal(t, storage.Access{}, access)
	})

	t.Run("owner_is_created_on_first_sight", func(t *testing.T) {
		user, err := ds.ReadUser(ctx, owner)
		require.NoError(t, err)
		require.Equal(t, owner, user.FUID)
		require.NotEmpty(t, user.UUID)
		require.False(t, user.IsPublic)
	})
}

func IdempotentCreateTest(t *testing.T, ds storage.CatalogDatastore) {
	ctx := context.Background()
	m := marker(t)
	owner := identity(t, "owner")
	other := identity(t, "other")
	now := time.Now()

	first := newRecord(m+" first", "https://example.com/"+m, now, true)
	dup := newRecord(m+" duplicate in batch", "https://example.com/"+m, now, true)

	created, err := ds.CreateRecords(ctx, owner, []storage.Record{first, dup})
	require.NoError(t, err)
	require.Equal(t, []string{first.ID}, ids(created))

	again := newRecord(m+" again", "https://example.com/"+m, now, true)
	created, err = ds.CreateRecords(ctx, owner, []storage.Record{again})
	require.NoError(t, err)
	require.Empty(t, created)

	// the same source_url is free for another owner
	theirs := newRecord(m+" theirs", "https://example.com/"+m, now, true)
	created, err = ds.CreateRecords(ctx, other, []storage.Record{theirs})
	require.NoError(t, err)
	require.Equal(t, []string{theirs.ID}, ids(created))

	require.ElementsMatch(t, []string{first.ID, theirs.ID}, ids(search(t, ds, m, "")))
}

func SearchMatchingTest(t *testing.T, ds storage.CatalogDatastore) {
	ctx := context.Background()
	m := marker(t)
	owner := identity(t, "owner")
	now := time.Now()

	byName := newRecord("Graph "+m, "https://example.com/"+m+"/1", now, true)
	byDescription := newRecord("unrelated", "https://example.com/"+m+"/2", now.Add(-time.Second), true)
	byDescription.Description = ptr("mentions Graph " + m + " inside")

	_, err := ds.CreateRecords(ctx, owner, []storage.Record{byName, byDescription})
	require.NoError(t, err)

	require.Equal(t, []string{byName.ID, byDescription.ID}, ids(search(t, ds, "Graph "+m, "")))
	require.Empty(t, search(t, ds, "graph "+m, ""), "matching is case-sensitive")
	require.Empty(t, search(t, ds, "https://example.com/"+m, ""), "source_url is not searched")

	all := search(t, ds, "", owner)
	require.Subset(t, ids(all), []string{byName.ID, byDescription.ID})
}

func SearchPaginationTest(t *testing.T, ds storage.CatalogDatastore) {
	ctx := context.Background()
	m := marker(t)
	owner := identity(t, "owner")
	base := time.Now().Add(-time.Hour)

	var records []storage.Record
	for i := 0; i < 7; i++ {
		records = append(records, newRecord(fmt.Sprintf("%s %d", m, i), fmt.Sprintf("https://example.com/%s/%d", m, i), base.Add(time.Duration(i)*time.Minute), i%2 == 0))
	}
	_, err := ds.CreateRecords(ctx, owner, records)
	require.NoError(t, err)

	var pages []string
	for offset := 0; offset < 7; offset += 3 {
		page, err := ds.SearchRecords(ctx, storage.SearchFilter{Term: m, Identity: owner, Limit: 3, Offset: offset})
		require.NoError(t, err)
		require.LessOrEqual(t, len(page), 3)

		again, err := ds.SearchRecords(ctx, storage.SearchFilter{Term: m, Identity: owner, Limit: 3, Offset: offset})
		require.NoError(t, err)
		require.Equal(t, ids(page), ids(again), "pages are deterministic")

		pages = append(pages, ids(page)...)
	}

	expected := make([]string, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		expected = append(expected, records[i].ID)
	}
	require.Equal(t, expected, pages)

	beyond, err := ds.SearchRecords(ctx, storage.SearchFilter{Term: m, Identity: owner, Limit: 3, Offset: 100})
	require.NoError(t, err)
	require.NotNil(t, beyond)
	require.Empty(t, beyond)

	count, err := ds.CountRecords(ctx, storage.SearchFilter{Term: m, Identity: owner})
	require.NoError(t, err)
	require.Equal(t, 7, count)

	count, err = ds.CountRecords(ctx, storage.SearchFilter{Term: m})
	require.NoError(t, err)
	require.Equal(t, 4, count)
}

func ReadTagsTest(t *testing.T, ds storage.CatalogDatastore) {
	ctx := context.Background()
	m := marker(t)
	owner := identity(t, "owner")
	now := time.Now()

	tagged := newRecord(m+" tagged", "https://example.com/"+m+"/1", now, true)
	tagged.Tags = []string{"Food", "biology", " food "}
	plain := newRecord(m+" plain", "https://example.com/"+m+"/2", now, true)

	_, err := ds.CreateRecords(ctx, owner, []storage.Record{tagged, plain})
	require.NoError(t, err)

	tags, err := ds.ReadTags(ctx, []string{tagged.ID, plain.ID, uuid.NewString()})
	require.NoError(t, err)
	require.Equal(t, map[string][]string{tagged.ID: {"biology", "food"}}, tags)

	tags, err = ds.ReadTags(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, tags)
}

func UpdateRecordTest(t *testing.T, ds storage.CatalogDatastore) {
	ctx := context.Background()
	m := marker(t)
	owner := identity(t, "owner")
	editor := identity(t, "editor")
	now := time.Now()

	r := newRecord(m+" original", "https://example.com/"+m, now, false)
	r.Tags = []string{"old"}
	_, err := ds.CreateRecords(ctx, owner, []storage.Record{r})
	require.NoError(t, err)

	t.Run("owner_updates_fields_and_tags", func(t *testing.T) {
		updatedAt := now.Add(time.Minute).UTC().Truncate(time.Microsecond)
		updated, err := ds.UpdateRecord(ctx, owner, r.ID, storage.RecordPatch{
			Name:        ptr(m + " renamed"),
			Description: ptr("new description"),
			Score:       ptr(3.25),
			IsPublic:    ptr(true),
			Tags:        ptr([]string{"new", "Other"}),
			UpdatedAt:   updatedAt,
		})
		require.NoError(t, err)

		expected := r
		expected.Name = m + " renamed"
		expected.Description = ptr("new description")
		expected.Score = ptr(3.25)
		expected.IsPublic = true
		expected.Tags = []string{"new", "other"}
		expected.UpdatedAt = updatedAt
		if diff := cmp.Diff(expected, *updated, cmpOpts...); diff != "" {
			t.Fatalf("mismatch (-want +got):\n%s", diff)
		}

		require.Equal(t, []string{r.ID}, ids(search(t, ds, m+" renamed", "")))

		tags, err := ds.ReadTags(ctx, []string{r.ID})
		require.NoError(t, err)
		require.Equal(t, []string{"new", "other"}, tags[r.ID])
	})

	t.Run("nil_tags_keep_tags", func(t *testing.T) {
		updated, err := ds.UpdateRecord(ctx, owner, r.ID, storage.RecordPatch{
			NodeCount: ptr(int64(10)),
			UpdatedAt: now.Add(2 * time.Minute).UTC().Truncate(time.Microsecond),
		})
		require.NoError(t, err)
		require.Equal(t, []string{"new", "other"}, updated.Tags)
		require.Equal(t, int64(10), *updated.NodeCount)
		require.Equal(t, m+" renamed", updated.Name)
	})

	t.Run("empty_tags_clear_tags", func(t *testing.T) {
		updated, err := ds.UpdateRecord(ctx, owner, r.ID, storage.RecordPatch{
			Tags:      ptr([]string{}),
			UpdatedAt: now.Add(3 * time.Minute).UTC().Truncate(time.Microsecond),
		})
		require.NoError(t, err)
		require.Empty(t, updated.Tags)

		tags, err := ds.ReadTags(ctx, []string{r.ID})
		require.NoError(t, err)
		require.Empty(t, tags)
	})

	t.Run("without_edge_is_not_found", func(t *testing.T) {
		_, err := ds.UpdateRecord(ctx, editor, r.ID, storage.RecordPatch{Name: ptr("hijack"), UpdatedAt: now})
		require.ErrorIs(t, err, storage.ErrNotFound)

		_, err = ds.UpdateRecord(ctx, owner, uuid.NewString(), storage.RecordPatch{Name: ptr("x"), UpdatedAt: now})
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("grant_then_revoke", func(t *testing.T) {
		require.NoError(t, ds.WriteCapability(ctx, editor, r.ID, storage.CapabilityCanEdit))

		updated, err := ds.UpdateRecord(ctx, editor, r.ID, storage.RecordPatch{
			Name:      ptr(m + " edited"),
			UpdatedAt: now.Add(4 * time.Minute).UTC().Truncate(time.Microsecond),
		})
		require.NoError(t, err)
		require.Equal(t, m+" edited", updated.Name)

		require.NoError(t, ds.DeleteCapability(ctx, editor, r.ID, storage.CapabilityCanEdit))

		_, err = ds.UpdateRecord(ctx, editor, r.ID, storage.RecordPatch{Name: ptr("too late"), UpdatedAt: now})
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func DeleteRecordsTest(t *testing.T, ds storage.CatalogDatastore) {
	ctx := context.Background()
	m := marker(t)
	owner := identity(t, "owner")
	deleter := identity(t, "deleter")
	now := time.Now()

	a := newRecord(m+" a", "https://example.com/"+m+"/a", now, true)
	a.Tags = []string{"tag"}
	b := newRecord(m+" b", "https://example.com/"+m+"/b", now, true)
	c := newRecord(m+" c", "https://example.com/"+m+"/c", now, true)
	_, err := ds.CreateRecords(ctx, owner, []storage.Record{a, b, c})
	require.NoError(t, err)

	deleted, err := ds.DeleteRecords(ctx, deleter, []string{a.ID, b.ID})
	require.NoError(t, err)
	require.Zero(t, deleted)

	// CAN_EDIT does not grant deletion
	require.NoError(t, ds.WriteCapability(ctx, deleter, a.ID, storage.CapabilityCanEdit))
	deleted, err = ds.DeleteRecords(ctx, deleter, []string{a.ID})
	require.NoError(t, err)
	require.Zero(t, deleted)

	require.NoError(t, ds.WriteCapability(ctx, deleter, b.ID, storage.CapabilityCanDelete))

	deleted, err = ds.DeleteRecords(ctx, deleter, []string{a.ID, b.ID, uuid.NewString()})
	require.NoError(t, err)
	require.Equal(t, 1, deleted)

	deleted, err = ds.DeleteRecords(ctx, owner, []string{a.ID})
	require.NoError(t, err)
	require.Equal(t, 1, deleted)

	require.Equal(t, []string{c.ID}, ids(search(t, ds, m, "")))

	access, err := ds.ReadAccess(ctx, deleter, b.ID)
	require.NoError(t, err)
	require.False(t, access.Exists)

	tags, err := ds.ReadTags(ctx, []string{a.ID})
	require.NoError(t, err)
	require.Empty(t, tags)

	listed, err := ds.ListRecordIDs(ctx, deleter, storage.CapabilityCanDelete)
	require.NoError(t, err)
	require.Empty(t, listed)
}

func CapabilitiesTest(t *testing.T, ds storage.CatalogDatastore) {
	ctx := context.Background()
	m := marker(t)
	owner := identity(t, "owner")
	grantee := identity(t, "grantee")
	now := time.Now()

	a := newRecord(m+" a", "https://example.com/"+m+"/a", now, false)
	b := newRecord(m+" b", "https://example.com/"+m+"/b", now, false)
	_, err := ds.CreateRecords(ctx, owner, []storage.Record{a, b})
	require.NoError(t, err)

	err = ds.WriteCapability(ctx, grantee, uuid.NewString(), storage.CapabilityCanEdit)
	require.ErrorIs(t, err, storage.ErrNotFound)

	err = ds.WriteCapability(ctx, grantee, a.ID, storage.CapabilityCreated)
	require.ErrorIs(t, err, storage.ErrInvalidCapability)

	require.NoError(t, ds.WriteCapability(ctx, grantee, a.ID, storage.CapabilityCanEdit))
	require.NoError(t, ds.WriteCapability(ctx, grantee, a.ID, storage.CapabilityCanEdit))
	require.NoError(t, ds.WriteCapability(ctx, grantee, b.ID, storage.CapabilityCanDelete))

	access, err := ds.ReadAccess(ctx, grantee, a.ID)
	require.NoError(t, err)
	require.Equal(t, storage.Access{Exists: true, CanEdit: true}, access)

	editable, err := ds.ListRecordIDs(ctx, grantee, storage.CapabilityCanEdit)
	require.NoError(t, err)
	require.Equal(t, []string{a.ID}, editable)

	deletable, err := ds.ListRecordIDs(ctx, grantee, storage.CapabilityCanDelete)
	require.NoError(t, err)
	require.Equal(t, []string{b.ID}, deletable)

	owned, err := ds.ListRecordIDs(ctx, owner, storage.CapabilityCanEdit)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{a.ID, b.ID}, owned)

	require.NoError(t, ds.DeleteCapability(ctx, grantee, a.ID, storage.CapabilityCanEdit))
	require.NoError(t, ds.DeleteCapability(ctx, grantee, a.ID, storage.CapabilityCanEdit))

	access, err = ds.ReadAccess(ctx, grantee, a.ID)
	require.NoError(t, err)
	require.Equal(t, storage.Access{Exists: true}, access)

	user, err := ds.ReadUser(ctx, grantee)
	require.NoError(t, err)
	require.Equal(t, grantee, user.FUID)
}

func VisibilityThroughGrantsTest(t *testing.T, ds storage.CatalogDatastore) {
	ctx := context.Background()
	m := marker(t)
	owner := identity(t, "owner")
	grantee := identity(t, "grantee")

	private := newRecord(m+" private", "https://example.com/"+m, time.Now(), false)
	_, err := ds.CreateRecords(ctx, owner, []storage.Record{private})
	require.NoError(t, err)

	require.Empty(t, search(t, ds, m, grantee))

	require.NoError(t, ds.WriteCapability(ctx, grantee, private.ID, storage.CapabilityCanDelete))
	require.Equal(t, []string{private.ID}, ids(search(t, ds, m, grantee)))

	require.NoError(t, ds.DeleteCapability(ctx, grantee, private.ID, storage.CapabilityCanDelete))
	require.Empty(t, search(t, ds, m, grantee))
}

func UsersTest(t *testing.T, ds storage.CatalogDatastore) {
	ctx := context.Background()
	fuid := identity(t, "user")

	_, err := ds.ReadUser(ctx, fuid)
	require.ErrorIs(t, err, storage.ErrNotFound)

	created, err := ds.UpsertUserVisibility(ctx, fuid, true)
	require.NoError(t, err)
	require.Equal(t, fuid, created.FUID)
	require.True(t, created.IsPublic)
	require.NotEmpty(t, created.UUID)

	updated, err := ds.UpsertUserVisibility(ctx, fuid, false)
	require.NoError(t, err)
	require.False(t, updated.IsPublic)
	require.Equal(t, created.UUID, updated.UUID)

	read, err := ds.ReadUser(ctx, fuid)
	require.NoError(t, err)
	require.Equal(t, created.UUID, read.UUID)
	require.False(t, read.IsPublic)
}
