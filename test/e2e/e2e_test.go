// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashboard-gateway/internal/common/config"
	"dashboard-gateway/internal/common/database"
	"dashboard-gateway/internal/common/logger"
	"dashboard-gateway/internal/common/observability"
	"dashboard-gateway/internal/fallback"
	"dashboard-gateway/internal/filter"
	"dashboard-gateway/internal/gateway"
	"dashboard-gateway/internal/models"
	"dashboard-gateway/internal/records"
	"dashboard-gateway/internal/upstream"
)

const snapshotPath = "../../data/massa-historico.json"

// The suite needs PostgreSQL, Redis and Elasticsearch on localhost.
func TestMain(m *testing.M) {
	if os.Getenv("E2E") == "" {
		fmt.Println("E2E not set, skipping end-to-end suite")
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func e2eConfig() config.Config {
	return config.Config{
		Records: config.RecordsConfig{
			Table:    "proposta_historico_e2e",
			RedisKey: "dashboard:propostas:e2e",
			Index:    "propostas-e2e",
			Path:     snapshotPath,
			MaxItems: 10000,
		},
		Database: config.DatabaseConfig{
			Postgres: config.PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: envOr("POSTGRES_DB", "dashboard"),
				User:     envOr("POSTGRES_USER", "dashboard"),
				Password: os.Getenv("POSTGRES_PASSWORD"),
				SSLMode:  "disable",
			},
			Redis:         config.RedisConfig{Address: "localhost:6379"},
			Elasticsearch: config.ElasticsearchConfig{URL: "http://localhost:9200"},
		},
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func ids(records []models.Proposal) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.NuPropostaSeguridade
	}
	return out
}

func TestRecordStoresServeTheSameCollection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg := e2eConfig()
	log := logger.NewTestLogger(t)

	snapshot, err := os.ReadFile(snapshotPath)
	require.NoError(t, err)
	fromFile, err := records.NewFileSource(snapshotPath, 0, log).LoadAllRecords(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, fromFile)

	// ==========================
	// PostgreSQL
	// ==========================
	pg, err := database.ConnectPostgres(ctx, cfg.Database.Postgres)
	require.NoError(t, err)
	defer pg.Close()

	table := pq.QuoteIdentifier(cfg.Records.Table)
	_, err = pg.DB.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table))
	require.NoError(t, err)
	_, err = pg.DB.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %s (id SERIAL PRIMARY KEY, payload JSONB NOT NULL)`, table))
	require.NoError(t, err)
	for _, r := range fromFile {
		_, err = pg.DB.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (payload) VALUES ($1)`, table), string(r.Raw))
		require.NoError(t, err)
	}

	// ==========================
	// Redis
	// ==========================
	rc := database.NewRedis(cfg.Database.Redis)
	defer rc.Close()
	require.NoError(t, rc.Ping(ctx))
	require.NoError(t, rc.Client.Set(ctx, cfg.Records.RedisKey, snapshot, 0).Err())

	// ==========================
	// Elasticsearch
	// ==========================
	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	require.NoError(t, err)
	require.NoError(t, es.Ping(ctx))

	del, err := esapi.IndicesDeleteRequest{Index: []string{cfg.Records.Index}}.Do(ctx, es.Client)
	require.NoError(t, err)
	del.Body.Close()
	for _, r := range fromFile {
		res, err := esapi.IndexRequest{
			Index:      cfg.Records.Index,
			DocumentID: strconv.FormatInt(r.NuPropostaSeguridade, 10),
			Body:       bytes.NewReader(r.Raw),
			Refresh:    "true",
		}.Do(ctx, es.Client)
		require.NoError(t, err)
		require.False(t, res.IsError(), res.String())
		res.Body.Close()
	}

	clients := records.Clients{Postgres: pg.DB, Redis: rc.Client, Elasticsearch: es.Client}
	for _, source := range []string{records.SourcePostgres, records.SourceRedis, records.SourceElasticsearch} {
		t.Run(source, func(t *testing.T) {
			rcfg := cfg.Records
			rcfg.Source = source

			src, err := records.New(rcfg, clients, log)
			require.NoError(t, err)
			got, err := src.LoadAllRecords(ctx)
			require.NoError(t, err)

			assert.ElementsMatch(t, ids(fromFile), ids(got))
		})
	}
}

func TestGatewayOverSnapshot(t *testing.T) {
	reporting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"paginacao":{"count":7}}`))
	}))
	defer reporting.Close()

	cfg := e2eConfig()
	cfg.Upstreams = config.UpstreamsConfig{ReportingBaseURL: reporting.URL, AuthBaseURL: reporting.URL, Realm: "intranet"}
	cfg.Server.AllowedOrigins = []string{"*"}

	log := logger.NewTestLogger(t)
	collection, err := records.NewFileSource(snapshotPath, 0, log).LoadAllRecords(context.Background())
	require.NoError(t, err)

	client, err := upstream.NewClient(upstream.Options{Timeout: 5 * time.Second, Logger: log})
	require.NoError(t, err)

	gw, err := gateway.New(gateway.Deps{
		Config:        &cfg,
		Upstream:      client,
		Catalog:       fallback.NewCatalog(time.Now()),
		Engine:        filter.NewEngine(log, time.Now, time.UTC),
		Records:       collection,
		Logger:        log,
		Observability: observability.NewNoop(),
	})
	require.NoError(t, err)

	server := httptest.NewServer(gw.Router())
	defer server.Close()

	get := func(path string) map[string]interface{} {
		req, err := http.NewRequest(http.MethodGet, server.URL+path, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer e2e")
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
		return body
	}

	kpis := get("/backend/kpis")
	assert.Equal(t, 7.0, kpis["totalPropostas"])
	assert.Equal(t, 100.0, kpis["taxaConversao"])

	page := get("/mock/backend/monitoracao/v1/propostas/filtros?limit=5")
	pagination := page["paginacao"].(map[string]interface{})
	assert.Equal(t, float64(len(collection)), pagination["count"])
	assert.Len(t, page["propostas"], 5)
}
