// Package gateway is the HTTP route layer of the dashboard backend. Each
// route resolves to a LogicalQuery answered by one strategy: proxy,
// aggregate, local filter or fallback only.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dashboard-gateway/internal/aggregation"
	"dashboard-gateway/internal/common/auth"
	"dashboard-gateway/internal/common/config"
	"dashboard-gateway/internal/common/errors"
	"dashboard-gateway/internal/common/logger"
	"dashboard-gateway/internal/common/metrics"
	"dashboard-gateway/internal/common/observability"
	"dashboard-gateway/internal/fallback"
	"dashboard-gateway/internal/filter"
	"dashboard-gateway/internal/models"
)

// Deps are the collaborators built in main.
type Deps struct {
	Config        *config.Config
	Upstream      aggregation.Doer
	Catalog       *fallback.Catalog
	Engine        *filter.Engine
	Records       []models.Proposal
	Logger        logger.Logger
	Observability *observability.Observability
}

type Gateway struct {
	cfg      *config.Config
	routes   []Route
	upstream aggregation.Doer
	policy   *aggregation.Policy
	engine   *filter.Engine
	records  []models.Proposal
	keycloak *auth.KeycloakEndpoint
	errs     *errors.HTTPErrorHandler
	logger   logger.Logger
	obs      *observability.Observability
}

// New resolves the route table against the configuration. A route that
// cannot be served as configured is a ConfigurationFailure.
func New(deps Deps) (*Gateway, error) {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	routes, err := resolveRoutes(DefaultRoutes(cfg.Upstreams.Realm), cfg.Queries, deps.Catalog)
	if err != nil {
		return nil, err
	}

	records := deps.Records
	if records == nil {
		records = []models.Proposal{}
	}

	return &Gateway{
		cfg:      cfg,
		routes:   routes,
		upstream: deps.Upstream,
		policy:   aggregation.NewPolicy(deps.Upstream, deps.Catalog, cfg.Upstreams.ReportingBaseURL, log, deps.Observability),
		engine:   deps.Engine,
		records:  records,
		keycloak: auth.NewKeycloakEndpoint(cfg.Upstreams.AuthBaseURL, cfg.Upstreams.Realm, cfg.Upstreams.PasswordClientID),
		errs:     errors.NewHTTPErrorHandler(log),
		logger:   log,
		obs:      deps.Observability,
	}, nil
}

// Routes returns the resolved route table.
func (g *Gateway) Routes() []Route {
	out := make([]Route, len(g.routes))
	copy(out, g.routes)
	return out
}

func (g *Gateway) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(accessLog(g.logger))
	r.Use(cors(g.cfg.Server.AllowedOrigins))
	if g.cfg.Server.RateLimit.Enabled {
		r.Use(newRateLimiter(g.cfg.Server.RateLimit.RequestsPerSecond, g.cfg.Server.RateLimit.Burst, g.errs).Handler)
	}

	r.Get("/healthz", g.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	for _, route := range g.routes {
		if route.Public {
			r.Method(route.Method, route.Pattern, g.instrument(route, g.handlerFor(route)))
		}
	}

	r.Group(func(r chi.Router) {
		r.Use(requireAuthorization(g.errs))
		for _, route := range g.routes {
			if !route.Public {
				r.Method(route.Method, route.Pattern, g.instrument(route, g.handlerFor(route)))
			}
		}
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		g.errs.Handle(w, req, errors.NewQueryNotFoundError(req.URL.Path))
	})

	return r
}

type queryHandler func(ctx context.Context, r *http.Request) (aggregation.Result, error)

func (g *Gateway) handlerFor(route Route) queryHandler {
	if route.Query == models.QueryToken {
		return g.handleToken
	}

	switch route.Strategy {
	case models.StrategyProxy:
		return g.proxy(route)
	case models.StrategyAggregate:
		return g.aggregate(route)
	case models.StrategyLocalFilter:
		return g.localFilter(route)
	default:
		return g.fallbackOnly(route)
	}
}

// instrument writes the handler's result verbatim and records metrics.
func (g *Gateway) instrument(route Route, h queryHandler) http.Handler {
	strategy := string(route.Strategy)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		result, err := h(r.Context(), r)
		status := result.Status
		if err != nil {
			status = errors.Normalize(err).HTTPStatus()
			g.errs.Handle(w, r, err)
		} else {
			writeResult(w, result)
		}

		metrics.GatewayRequests.WithLabelValues(string(route.Query), strategy, strconv.Itoa(status)).Inc()
		metrics.GatewayRequestDuration.WithLabelValues(string(route.Query), strategy).Observe(time.Since(start).Seconds())
	})
}

func (g *Gateway) proxy(route Route) queryHandler {
	spec := *route.Proxy
	return func(ctx context.Context, r *http.Request) (aggregation.Result, error) {
		if _, err := filter.ParseSpec(r.URL.Query(), route.DefaultLimit); err != nil {
			return aggregation.Result{}, err
		}

		params := map[string]string{}
		if id := chi.URLParam(r, "id"); id != "" {
			if _, err := strconv.ParseInt(id, 10, 64); err != nil {
				return aggregation.Result{}, errors.NewInvalidParameterError("id", "proposal id must be numeric")
			}
			params["id"] = id
		}

		return g.policy.Proxy(ctx, spec, aggregation.Request{
			Authorization: r.Header.Get("Authorization"),
			Query:         r.URL.Query(),
			PathParams:    params,
		})
	}
}

func (g *Gateway) aggregate(route Route) queryHandler {
	spec := *route.Composite
	return func(ctx context.Context, r *http.Request) (aggregation.Result, error) {
		if _, err := filter.ParseSpec(r.URL.Query(), filter.DefaultLimit); err != nil {
			return aggregation.Result{}, err
		}
		return g.policy.Aggregate(ctx, spec, aggregation.Request{
			Authorization: r.Header.Get("Authorization"),
			Query:         r.URL.Query(),
		})
	}
}

func (g *Gateway) localFilter(route Route) queryHandler {
	return func(ctx context.Context, r *http.Request) (aggregation.Result, error) {
		start := time.Now()
		spec, err := filter.ParseSpec(r.URL.Query(), route.DefaultLimit)
		if err != nil {
			return aggregation.Result{}, err
		}

		body, err := json.Marshal(g.engine.Filter(g.records, spec))
		if err != nil {
			return aggregation.Result{}, err
		}
		g.obs.RecordRequest(ctx, string(route.Query), "local", time.Since(start))
		return aggregation.Result{Status: http.StatusOK, Body: body}, nil
	}
}

func (g *Gateway) fallbackOnly(route Route) queryHandler {
	return func(ctx context.Context, r *http.Request) (aggregation.Result, error) {
		start := time.Now()
		result, err := g.policy.Fallback(route.FallbackName, "fallback_only")
		g.obs.RecordRequest(ctx, string(route.Query), "fallback", time.Since(start))
		return result, err
	}
}

// handleToken relays a client_credentials or password grant to the
// identity provider and passes its answer through.
func (g *Gateway) handleToken(ctx context.Context, r *http.Request) (aggregation.Result, error) {
	creds, err := auth.ParseCredentials(r)
	if err != nil {
		return aggregation.Result{}, err
	}

	grant, call, err := g.keycloak.TokenCall(creds)
	if err != nil {
		return aggregation.Result{}, err
	}

	g.logger.Debug("Relaying token grant", map[string]interface{}{
		"grantType": string(grant),
		"requestId": RequestIDFromContext(ctx),
	})

	outcome := g.upstream.Do(ctx, call)
	return g.policy.Resolve(models.QueryToken, outcome, false, "Failed to authenticate with the identity provider")
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": g.cfg.App.Name,
		"records": len(g.records),
	})
}

func writeResult(w http.ResponseWriter, result aggregation.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.Status)
	_, _ = w.Write(result.Body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
