package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	catalogerrors "github.com/ontologymarket/catalog/internal/errors"
	"github.com/ontologymarket/catalog/pkg/storage"
)

func TestStoreErrorDontLeakInternals(t *testing.T) {
	err := StoreError("public", errors.New("internal"))

	require.NotContains(t, err.Error(), "internal")
	require.Equal(t, "public", err.Error())
}

func TestStoreErrorWithNoMessageReturnsInternalServerError(t *testing.T) {
	err := StoreError("", errors.New("internal"))

	require.Equal(t, InternalServerErrorMsg, err.Error())
}

func TestHandleStorageErrors(t *testing.T) {
	tests := map[string]struct {
		storageErr   error
		public       string
		expectedKind Kind
		expectedMsg  string
	}{
		`deadline`: {
			storageErr:   fmt.Errorf("query: %w", context.DeadlineExceeded),
			expectedKind: KindTimeout,
			expectedMsg:  TimeoutErrorMsg,
		},
		`transient`: {
			storageErr:   catalogerrors.With(errors.New("leader lost"), storage.ErrTransient),
			expectedKind: KindTimeout,
			expectedMsg:  TimeoutErrorMsg,
		},
		`not_found`: {
			storageErr:   storage.ErrNotFound,
			public:       "No ontology found with the provided ID",
			expectedKind: KindNotFound,
			expectedMsg:  "No ontology found with the provided ID",
		},
		`invalid_capability`: {
			storageErr:   storage.InvalidCapabilityError("CREATED"),
			expectedKind: KindValidation,
			expectedMsg:  "Capability must be CAN_EDIT or CAN_DELETE",
		},
		`other`: {
			storageErr:   errors.New("syntax error near MATCH"),
			public:       "Failed to update ontology",
			expectedKind: KindStore,
			expectedMsg:  "Failed to update ontology",
		},
		`other_without_public_message`: {
			storageErr:   errors.New("connection reset"),
			expectedKind: KindStore,
			expectedMsg:  InternalServerErrorMsg,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			err := HandleError(test.public, test.storageErr)
			require.Equal(t, test.expectedKind, KindOf(err))
			require.Equal(t, test.expectedMsg, err.Error())
		})
	}
}

func TestHandleErrorPassesTypedErrorsThrough(t *testing.T) {
	original := AuthorizationError("Not authorized to update this ontology")

	err := HandleError("ignored", fmt.Errorf("wrapped: %w", original))
	require.Same(t, original, err)
	require.Nil(t, HandleError("ignored", nil))
}

func TestCauseIsKept(t *testing.T) {
	cause := errors.New("driver exploded")

	err := HandleError("public", cause)
	require.ErrorIs(t, err, cause)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{AuthenticationError(nil), http.StatusUnauthorized},
		{AuthorizationError("no"), http.StatusForbidden},
		{ValidationError("bad"), http.StatusBadRequest},
		{NotFoundError("gone"), http.StatusNotFound},
		{TimeoutError(context.DeadlineExceeded), http.StatusServiceUnavailable},
		{StoreError("", nil), http.StatusInternalServerError},
		{errors.New("untyped"), http.StatusInternalServerError},
	}

	for _, test := range tests {
		require.Equal(t, test.expected, HTTPStatus(test.err), test.err.Error())
	}
}

func TestPublicMessage(t *testing.T) {
	require.Equal(t, "gone", PublicMessage(NotFoundError("gone")))
	require.Equal(t, InternalServerErrorMsg, PublicMessage(errors.New("pq: relation does not exist")))
}

func TestAuthenticationErrorMessage(t *testing.T) {
	require.Equal(t, AuthenticationErrorMsg, AuthenticationError(nil).Error())
	require.Equal(t, "Authentication failed: token is expired", AuthenticationError(errors.New("token is expired")).Error())
}

func TestErrorsIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFoundError("gone"))
	require.ErrorIs(t, err, NotFoundError("gone"))
	require.NotErrorIs(t, err, NotFoundError("other"))
}

func TestKindString(t *testing.T) {
	require.Equal(t, "not_found", KindNotFound.String())
	require.Equal(t, "internal_error", KindStore.String())
	require.Equal(t, "unknown", Kind(99).String())
}
