package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashboard-gateway/internal/common/errors"
	"dashboard-gateway/internal/common/logger"
)

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	opts.Logger = logger.NewTestLogger(t)
	c, err := NewClient(opts)
	require.NoError(t, err)
	return c
}

// ==========================
// Success
// ==========================

func TestClient_Do_Success(t *testing.T) {
	var gotAuth, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"paginacao":{"count":3}}`))
	}))
	defer server.Close()

	c := newTestClient(t, Options{})
	outcome := c.Do(context.Background(), Call{
		URL:               server.URL + "/filtros?offset=0&limit=1",
		Authorization:     "Bearer abc",
		RequireCredential: true,
	})

	require.True(t, outcome.OK())
	assert.JSONEq(t, `{"paginacao":{"count":3}}`, string(outcome.Payload))
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, "offset=0&limit=1", gotQuery)
}

func TestClient_Do_PostsBody(t *testing.T) {
	var gotBody, gotType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"access_token":"t"}`))
	}))
	defer server.Close()

	c := newTestClient(t, Options{})
	outcome := c.Do(context.Background(), Call{
		Method:  http.MethodPost,
		URL:     server.URL,
		Headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Body:    []byte("grant_type=password"),
	})

	require.True(t, outcome.OK())
	assert.Equal(t, "grant_type=password", gotBody)
	assert.Equal(t, "application/x-www-form-urlencoded", gotType)
}

// ==========================
// Failures
// ==========================

func TestClient_Do_MissingCredentialMakesNoCall(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	c := newTestClient(t, Options{})
	outcome := c.Do(context.Background(), Call{URL: server.URL, RequireCredential: true})

	require.False(t, outcome.OK())
	assert.True(t, errors.HasCode(outcome.Failure.Err, errors.ErrCodeMissingCredential))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestClient_Do_HTTPErrorKeepsStatusAndBody(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantBody string
	}{
		{"json body", http.StatusForbidden, `{"error":"forbidden"}`, `{"error":"forbidden"}`},
		{"text body", http.StatusBadGateway, `bad gateway`, `"bad gateway"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := newTestClient(t, Options{})
			outcome := c.Do(context.Background(), Call{URL: server.URL})

			require.False(t, outcome.OK())
			assert.Equal(t, tt.status, outcome.Failure.StatusCode)
			assert.JSONEq(t, tt.wantBody, string(outcome.Failure.Body))
			assert.False(t, outcome.Failure.Timeout)
		})
	}
}

func TestClient_Do_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := newTestClient(t, Options{Timeout: time.Second})
	outcome := c.Do(context.Background(), Call{URL: server.URL, Timeout: 50 * time.Millisecond})

	require.False(t, outcome.OK())
	assert.True(t, outcome.Failure.Timeout)
	assert.Zero(t, outcome.Failure.StatusCode)
	assert.True(t, errors.HasCode(outcome.Failure.Err, errors.ErrCodeUpstreamTimeout))
}

func TestClient_Do_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	c := newTestClient(t, Options{})
	outcome := c.Do(context.Background(), Call{URL: addr})

	require.False(t, outcome.OK())
	assert.Zero(t, outcome.Failure.StatusCode)
	assert.NotEmpty(t, outcome.Failure.Message)
}

func TestClient_Do_OversizedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":"` + strings.Repeat("x", 200) + `"}`))
	}))
	defer server.Close()

	c := newTestClient(t, Options{MaxResponseBytes: 64})
	outcome := c.Do(context.Background(), Call{URL: server.URL})

	require.False(t, outcome.OK())
	assert.Zero(t, outcome.Failure.StatusCode)
	assert.Contains(t, outcome.Failure.Message, "RESPONSE_TOO_LARGE")
}

func TestClient_Do_NonJSONSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>login</html>`))
	}))
	defer server.Close()

	c := newTestClient(t, Options{})
	outcome := c.Do(context.Background(), Call{URL: server.URL})

	require.False(t, outcome.OK())
	assert.Zero(t, outcome.Failure.StatusCode)
}

// ==========================
// Configuration
// ==========================

func TestNewClient_InvalidCABundle(t *testing.T) {
	caFile := filepath.Join(t.TempDir(), "ca.cer")
	require.NoError(t, os.WriteFile(caFile, []byte("garbage"), 0o600))

	_, err := NewClient(Options{CAFile: caFile})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfigurationFailure))
}
