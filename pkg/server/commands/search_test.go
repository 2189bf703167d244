package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	catalogerrors "github.com/ontologymarket/catalog/internal/errors"
	"github.com/ontologymarket/catalog/internal/mocks"
	serverErrors "github.com/ontologymarket/catalog/pkg/server/errors"
	"github.com/ontologymarket/catalog/pkg/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNormalizeSearchRequest(t *testing.T) {
	tests := map[string]struct {
		in       SearchRequest
		expected SearchRequest
	}{
		`defaults_are_clamped`: {
			in:       SearchRequest{},
			expected: SearchRequest{Limit: 1},
		},
		`limit_above_maximum`: {
			in:       SearchRequest{Limit: 1000, Offset: 5},
			expected: SearchRequest{Limit: storage.MaxSearchLimit, Offset: 5},
		},
		`negative_offset`: {
			in:       SearchRequest{Limit: 10, Offset: -3},
			expected: SearchRequest{Limit: 10},
		},
		`term_is_trimmed_and_lowercased`: {
			in:       SearchRequest{Term: "  Pizza ", Limit: 10, Identity: "User-A"},
			expected: SearchRequest{Term: "pizza", Limit: 10, Identity: "User-A"},
		},
		`blank_term_is_absent`: {
			in:       SearchRequest{Term: " \t", Limit: 10},
			expected: SearchRequest{Limit: 10},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, test.expected, NormalizeSearchRequest(test.in))
		})
	}
}

func TestSearchQuery(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	records := []storage.Record{
		{ID: "b", Name: "pizza graph", SourceURL: "https://b", IsPublic: true, CreatedAt: now, UpdatedAt: now},
		{ID: "a", Name: "pizza ontology", SourceURL: "https://a", IsPublic: true, CreatedAt: now.Add(-time.Hour), UpdatedAt: now},
	}

	t.Run("attaches_tags", func(t *testing.T) {
		mockController := gomock.NewController(t)
		mockDatastore := mocks.NewMockCatalogDatastore(mockController)

		filter := storage.SearchFilter{Term: "pizza", Identity: "user-a", Limit: 2, Offset: 4}
		mockDatastore.EXPECT().SearchRecords(gomock.Any(), filter).Return(records, nil)
		mockDatastore.EXPECT().CountRecords(gomock.Any(), filter).Return(9, nil)
		mockDatastore.EXPECT().ReadTags(gomock.Any(), []string{"b", "a"}).Return(map[string][]string{"a": {"food"}}, nil)

		res, err := NewSearchQuery(mockDatastore).Execute(context.Background(), SearchRequest{
			Term:     "Pizza",
			Limit:    2,
			Offset:   4,
			Identity: "user-a",
		})
		require.NoError(t, err)
		require.Equal(t, 2, res.Count)
		require.Equal(t, 9, res.Total)
		require.Equal(t, 4, res.Offset)
		require.Equal(t, 2, res.Limit)
		require.Equal(t, []string{}, res.Results[0].Tags)
		require.Equal(t, []string{"food"}, res.Results[1].Tags)
	})

	t.Run("empty_page_is_not_nil", func(t *testing.T) {
		mockController := gomock.NewController(t)
		mockDatastore := mocks.NewMockCatalogDatastore(mockController)

		mockDatastore.EXPECT().SearchRecords(gomock.Any(), gomock.Any()).Return(nil, nil)
		mockDatastore.EXPECT().CountRecords(gomock.Any(), gomock.Any()).Return(0, nil)

		res, err := NewSearchQuery(mockDatastore).Execute(context.Background(), SearchRequest{Limit: 10})
		require.NoError(t, err)
		require.NotNil(t, res.Results)
		require.Empty(t, res.Results)
		require.Zero(t, res.Total)
	})

	t.Run("store_error_is_hidden", func(t *testing.T) {
		mockController := gomock.NewController(t)
		mockDatastore := mocks.NewMockCatalogDatastore(mockController)

		mockDatastore.EXPECT().SearchRecords(gomock.Any(), gomock.Any()).Return(nil, errors.New("syntax error at MATCH"))
		mockDatastore.EXPECT().CountRecords(gomock.Any(), gomock.Any()).Return(0, nil).AnyTimes()

		res, err := NewSearchQuery(mockDatastore).Execute(context.Background(), SearchRequest{Limit: 10})
		require.Nil(t, res)
		require.Equal(t, serverErrors.KindStore, serverErrors.KindOf(err))
		require.Equal(t, serverErrors.InternalServerErrorMsg, err.Error())
	})

	t.Run("transient_error_is_a_timeout", func(t *testing.T) {
		mockController := gomock.NewController(t)
		mockDatastore := mocks.NewMockCatalogDatastore(mockController)

		mockDatastore.EXPECT().SearchRecords(gomock.Any(), gomock.Any()).Return(records, nil).AnyTimes()
		mockDatastore.EXPECT().CountRecords(gomock.Any(), gomock.Any()).Return(0, catalogerrors.With(errors.New("leader switch"), storage.ErrTransient))

		_, err := NewSearchQuery(mockDatastore).Execute(context.Background(), SearchRequest{Limit: 10})
		require.Equal(t, serverErrors.KindTimeout, serverErrors.KindOf(err))
	})

	t.Run("tag_error", func(t *testing.T) {
		mockController := gomock.NewController(t)
		mockDatastore := mocks.NewMockCatalogDatastore(mockController)

		mockDatastore.EXPECT().SearchRecords(gomock.Any(), gomock.Any()).Return(records, nil)
		mockDatastore.EXPECT().CountRecords(gomock.Any(), gomock.Any()).Return(2, nil)
		mockDatastore.EXPECT().ReadTags(gomock.Any(), gomock.Any()).Return(nil, errors.New("boom"))

		_, err := NewSearchQuery(mockDatastore).Execute(context.Background(), SearchRequest{Limit: 10})
		require.Equal(t, serverErrors.KindStore, serverErrors.KindOf(err))
	})
}
