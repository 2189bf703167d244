package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ontologymarket/catalog/pkg/storage"
	"github.com/ontologymarket/catalog/pkg/storage/test"
)

func TestMemdbStorage(t *testing.T) {
	ds := New()
	test.RunAllTests(t, ds)
}

func TestCancelledContext(t *testing.T) {
	ds := New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ds.SearchRecords(ctx, storage.SearchFilter{Limit: 10})
	require.ErrorIs(t, err, context.Canceled)

	_, err = ds.CreateRecords(ctx, "owner", nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	ds := New()

	now := time.Now().UTC()
	r := storage.Record{ID: uuid.NewString(), Name: "name", SourceURL: "https://a", IsPublic: true, CreatedAt: now, UpdatedAt: now, Tags: []string{"x"}}
	created, err := ds.CreateRecords(ctx, "owner", []storage.Record{r})
	require.NoError(t, err)

	created[0].Name = "mutated"
	created[0].Tags[0] = "mutated"

	page, err := ds.SearchRecords(ctx, storage.SearchFilter{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, "name", page[0].Name)

	tags, err := ds.ReadTags(ctx, []string{r.ID})
	require.NoError(t, err)
	require.Equal(t, []string{"x"}, tags[r.ID])
}

func TestConcurrentWritesAndSearches(t *testing.T) {
	ctx := context.Background()
	ds := New()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				now := time.Now().UTC()
				r := storage.Record{ID: uuid.NewString(), Name: "r", SourceURL: uuid.NewString(), IsPublic: true, CreatedAt: now, UpdatedAt: now}
				_, err := ds.CreateRecords(ctx, "owner", []storage.Record{r})
				require.NoError(t, err)

				_, err = ds.SearchRecords(ctx, storage.SearchFilter{Term: "r", Limit: 10})
				require.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	count, err := ds.CountRecords(ctx, storage.SearchFilter{})
	require.NoError(t, err)
	require.Equal(t, 400, count)
}

func TestWithClock(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ds := New(WithClock(func() time.Time { return at }))

	user, err := ds.UpsertUserVisibility(context.Background(), "fuid", true)
	require.NoError(t, err)
	require.Equal(t, at, user.CreatedAt)
}
