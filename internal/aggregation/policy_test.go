package aggregation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashboard-gateway/internal/common/errors"
	"dashboard-gateway/internal/common/logger"
	"dashboard-gateway/internal/common/observability"
	"dashboard-gateway/internal/fallback"
	"dashboard-gateway/internal/models"
	"dashboard-gateway/internal/upstream"
)

var anchor = time.Date(2025, time.May, 10, 9, 30, 0, 0, time.UTC)

type fixture struct {
	policy  *Policy
	catalog *fallback.Catalog
	calls   *int32
}

func newFixture(t *testing.T, handler http.HandlerFunc, timeout time.Duration) fixture {
	t.Helper()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := upstream.NewClient(upstream.Options{Timeout: timeout, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)

	catalog := fallback.NewCatalog(anchor)
	return fixture{
		policy:  NewPolicy(client, catalog, server.URL, logger.NewTestLogger(t), observability.NewNoop()),
		catalog: catalog,
		calls:   &calls,
	}
}

func fallbackJSON(t *testing.T, c *fallback.Catalog, name models.LogicalQuery) string {
	t.Helper()
	v, ok := c.Fallback(name)
	require.True(t, ok)
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func historySpec() ProxySpec {
	return ProxySpec{
		Name:          models.QueryProposalHistory,
		Path:          "/backend/monitoracao/v1/propostas/{id}/historico",
		ForwardParams: []string{"offset", "limit"},
		Defaults:      map[string]string{"offset": "0", "limit": "100"},
		ErrorMessage:  "Erro ao consultar histórico da proposta",
	}
}

// ==========================
// Proxy
// ==========================

func TestPolicy_Proxy_Success(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotAuth = r.URL.Path, r.URL.RawQuery, r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, `{"historico":[{"sgSituacaoProposta":"GER"}]}`)
	}, time.Second)

	result, err := f.policy.Proxy(context.Background(), historySpec(), Request{
		Authorization: "Bearer t",
		Query:         url.Values{"limit": {"5"}, "ignored": {"x"}},
		PathParams:    map[string]string{"id": "123"},
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.Status)
	assert.False(t, result.Fallback)
	assert.JSONEq(t, `{"historico":[{"sgSituacaoProposta":"GER"}]}`, string(result.Body))
	assert.Equal(t, "/backend/monitoracao/v1/propostas/123/historico", gotPath)
	assert.Equal(t, "limit=5&offset=0", gotQuery)
	assert.Equal(t, "Bearer t", gotAuth)
}

func TestPolicy_Proxy_PassesThroughUpstreamError(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, `{"message":"token expired"}`)
	}, time.Second)

	result, err := f.policy.Proxy(context.Background(), historySpec(), Request{
		Authorization: "Bearer t",
		PathParams:    map[string]string{"id": "1"},
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, result.Status)
	assert.JSONEq(t, `{"message":"token expired"}`, string(result.Body))
}

func TestPolicy_Proxy_NetworkFailureIs500(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}, 20*time.Millisecond)

	result, err := f.policy.Proxy(context.Background(), historySpec(), Request{
		Authorization: "Bearer t",
		PathParams:    map[string]string{"id": "1"},
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, result.Status)

	var body map[string]string
	require.NoError(t, json.Unmarshal(result.Body, &body))
	assert.Equal(t, "Erro ao consultar histórico da proposta", body["error"])
	assert.NotEmpty(t, body["details"])
}

func TestPolicy_Proxy_FallbackTolerant(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, `{"error":"down"}`)
	}, time.Second)

	spec := ProxySpec{
		Name:             models.QuerySituationDistribution,
		Path:             "/backend/monitoracao/v1/relatorios/situacoes",
		FallbackTolerant: true,
	}
	result, err := f.policy.Proxy(context.Background(), spec, Request{Authorization: "Bearer t"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.Status)
	assert.True(t, result.Fallback)
	assert.JSONEq(t, fallbackJSON(t, f.catalog, models.QuerySituationDistribution), string(result.Body))
}

func TestPolicy_Proxy_MissingCredential(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	}, time.Second)

	_, err := f.policy.Proxy(context.Background(), historySpec(), Request{PathParams: map[string]string{"id": "1"}})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingCredential))
	assert.Equal(t, int32(0), atomic.LoadInt32(f.calls))
}

// ==========================
// Aggregate
// ==========================

func kpiHandler(activeDelay time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("sgSituacaoProposta") {
		case "ATV":
			if activeDelay > 0 {
				select {
				case <-time.After(activeDelay):
				case <-r.Context().Done():
					return
				}
			}
			writeJSON(w, http.StatusOK, `{"paginacao":{"offset":0,"limit":1,"count":40}}`)
		case "GER":
			writeJSON(w, http.StatusOK, `{"paginacao":{"offset":0,"limit":1,"count":3}}`)
		default:
			writeJSON(w, http.StatusOK, `{"paginacao":{"offset":0,"limit":1,"count":64}}`)
		}
	}
}

func TestPolicy_Aggregate_AllPartsSucceed(t *testing.T) {
	f := newFixture(t, kpiHandler(0), time.Second)

	result, err := f.policy.Aggregate(context.Background(), KPISpec(), Request{Authorization: "Bearer t"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.Status)
	assert.False(t, result.Fallback)
	assert.JSONEq(t, `{"totalPropostas":64,"propostasAtivas":40,"propostasGER2h":3,"taxaConversao":62.5}`, string(result.Body))
	assert.Equal(t, int32(3), atomic.LoadInt32(f.calls))
}

func TestPolicy_Aggregate_ActivePartTimesOut(t *testing.T) {
	f := newFixture(t, kpiHandler(500*time.Millisecond), 50*time.Millisecond)

	result, err := f.policy.Aggregate(context.Background(), KPISpec(), Request{Authorization: "Bearer t"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.Status)
	assert.True(t, result.Fallback)
	assert.JSONEq(t, fallbackJSON(t, f.catalog, models.QueryKPIs), string(result.Body))
}

func TestPolicy_Aggregate_ExtractionMissIsFailure(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"unexpected":true}`)
	}, time.Second)

	result, err := f.policy.Aggregate(context.Background(), KPISpec(), Request{Authorization: "Bearer t"})

	require.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.JSONEq(t, fallbackJSON(t, f.catalog, models.QueryKPIs), string(result.Body))
}

func TestPolicy_Aggregate_ForwardsDateRange(t *testing.T) {
	var withRange int32
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("dataInicio") == "2025-01-01" {
			atomic.AddInt32(&withRange, 1)
		}
		kpiHandler(0)(w, r)
	}, time.Second)

	_, err := f.policy.Aggregate(context.Background(), KPISpec(), Request{
		Authorization: "Bearer t",
		Query:         url.Values{"dataInicio": {"2025-01-01"}},
	})

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&withRange))
}

func TestPolicy_Aggregate_MissingCredential(t *testing.T) {
	f := newFixture(t, kpiHandler(0), time.Second)

	_, err := f.policy.Aggregate(context.Background(), KPISpec(), Request{})

	assert.True(t, errors.IsPrecondition(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(f.calls))
}

func TestDeriveConversionRate(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]interface{}
		want    float64
		wantErr bool
	}{
		{"rounded to one decimal", map[string]interface{}{"totalPropostas": 3.0, "propostasAtivas": 2.0}, 66.7, false},
		{"zero total", map[string]interface{}{"totalPropostas": 0.0, "propostasAtivas": 0.0}, 0, false},
		{"non numeric", map[string]interface{}{"totalPropostas": "x", "propostasAtivas": 1.0}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := deriveConversionRate(tt.values)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tt.values["taxaConversao"])
		})
	}
}
