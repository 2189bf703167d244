package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

var errSentinel = fmt.Errorf("sentinel error")

type driverError struct {
	code string
}

func (d *driverError) Error() string {
	return "driver: " + d.code
}

func TestWith(t *testing.T) {
	cause := &driverError{code: "ServiceUnavailable"}
	require.NotErrorIs(t, cause, errSentinel)

	err := With(cause, errSentinel)
	require.ErrorIs(t, err, errSentinel)
	require.Equal(t, cause.Error(), err.Error())

	var target *driverError
	require.ErrorAs(t, err, &target)
	require.Equal(t, "ServiceUnavailable", target.code)

	wrapped := fmt.Errorf("search records: %w", err)
	require.ErrorIs(t, wrapped, errSentinel)
	require.ErrorAs(t, wrapped, &target)
}

func TestWithNil(t *testing.T) {
	require.NoError(t, With(nil, nil))
	require.Equal(t, errSentinel, With(nil, errSentinel))

	cause := errors.New("boom")
	require.Equal(t, cause, With(cause, nil))
}

func ExampleWith() {
	sentinel := fmt.Errorf("transient")
	cause := &driverError{code: "SessionExpired"}

	if !errors.Is(cause, sentinel) {
		fmt.Println("1")
	}

	if errors.Is(With(cause, sentinel), sentinel) {
		fmt.Println("2")
	}

	// Output: 1
	// 2
}
