package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapsEveryKind(t *testing.T) {
	cases := []struct {
		err      *Error
		wantCode int
	}{
		{Validation("bad input"), http.StatusBadRequest},
		{ServiceNotFound("missing"), http.StatusNotFound},
		{StaleData(120), http.StatusServiceUnavailable},
		{SourceUnavailable(nil, "/graph/health"), http.StatusServiceUnavailable},
		{SourceTimeout(nil, "/graph/health"), http.StatusGatewayTimeout},
		{UpstreamErr(nil, "bad gateway"), http.StatusBadGateway},
		{Internal(nil, "boom"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		assert.Equal(t, c.wantCode, c.err.HTTPStatus())
	}
}

func TestAsUnwrapsWrappedError(t *testing.T) {
	inner := Validation("invalid depth")
	wrapped := fmt.Errorf("request failed: %w", inner)

	e, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindValidation, e.Kind)
}

func TestAsReturnsFalseForPlainError(t *testing.T) {
	_, ok := As(errors.New("plain"))
	assert.False(t, ok)
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindValidation, KindOf(Validation("bad")))
}

func TestStaleDataCarriesLastUpdatedSecondsAgo(t *testing.T) {
	e := StaleData(45)
	assert.Equal(t, 45, e.LastUpdatedSecondsAgo)
	assert.Contains(t, e.Error(), "45s ago")
}

func TestErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	e := SourceUnavailable(cause, "/graph/health")
	assert.Same(t, cause, errors.Unwrap(e))
}
