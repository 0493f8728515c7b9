package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	warns, errors int
}

func (l *recordingLogger) Error(string, map[string]interface{}) { l.errors++ }
func (l *recordingLogger) Warn(string, map[string]interface{})  { l.warns++ }

func TestStandardError_HTTPStatus(t *testing.T) {
	tests := []struct {
		err  *StandardError
		want int
	}{
		{NewMissingCredentialError(), http.StatusUnauthorized},
		{NewInvalidParameterError("offset", "must be >= 0"), http.StatusBadRequest},
		{NewPreconditionFailedError("username and password are required"), http.StatusBadRequest},
		{NewQueryNotFoundError("nope"), http.StatusNotFound},
		{NewRateLimitedError(20), http.StatusTooManyRequests},
		{NewUpstreamFailureError("https://x", 0, "reset"), http.StatusBadGateway},
		{NewUpstreamTimeoutError("https://x", fmt.Errorf("deadline")), http.StatusGatewayTimeout},
		{NewConfigurationError("ca bundle", fmt.Errorf("no certs")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestIsPrecondition(t *testing.T) {
	assert.True(t, IsPrecondition(NewMissingCredentialError()))
	assert.True(t, IsPrecondition(fmt.Errorf("wrapped: %w", NewInvalidParameterError("limit", "x"))))
	assert.False(t, IsPrecondition(NewUpstreamFailureError("u", 500, "")))
	assert.False(t, IsPrecondition(stderrors.New("plain")))
}

func TestNormalize_WrapsPlainErrors(t *testing.T) {
	cause := stderrors.New("boom")
	se := Normalize(cause)
	assert.Equal(t, ErrCodeInternal, se.Code)
	assert.ErrorIs(t, se, cause)

	orig := NewMissingCredentialError()
	assert.Same(t, orig, Normalize(fmt.Errorf("ctx: %w", orig)))
}

func TestPartialAggregationError_Unwraps(t *testing.T) {
	cause := stderrors.New("timeout")
	err := NewPartialAggregationError("kpis", "propostasAtivas", cause)
	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, ErrCodePartialAggregation))
	assert.Equal(t, "propostasAtivas", err.Metadata["part"])
}

func TestHTTPErrorHandler_Handle(t *testing.T) {
	log := &recordingLogger{}
	h := NewHTTPErrorHandler(log)

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/backend/kpis", nil), NewMissingCredentialError())

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Authorization header is required", body["error"])
	assert.Equal(t, 1, log.warns)

	rec = httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/x", nil), stderrors.New("kaput"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1, log.errors)
}
