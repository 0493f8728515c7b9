package gateway

import (
	"fmt"
	"net/http"
	"strings"

	"dashboard-gateway/internal/aggregation"
	"dashboard-gateway/internal/common/config"
	"dashboard-gateway/internal/common/errors"
	"dashboard-gateway/internal/fallback"
	"dashboard-gateway/internal/filter"
	"dashboard-gateway/internal/models"
)

const (
	proposalHistoryPath       = "/backend/monitoracao/v1/propostas/{id}/historico"
	proposalsFilterPath       = "/backend/monitoracao/v1/propostas/filtros"
	situationDistributionPath = "/backend/monitoracao/v1/relatorios/situacoes"

	proxyDefaultLimit = 100
)

// Route binds one inbound path to a LogicalQuery and the strategy that
// answers it. Routes are resolved once at startup and never change.
type Route struct {
	Query    models.LogicalQuery
	Method   string
	Pattern  string
	Strategy models.Strategy
	// Public routes skip the Authorization check.
	Public bool

	Proxy     *aggregation.ProxySpec
	Composite *aggregation.CompositeSpec
	// Filterable routes may be served from the local record collection.
	Filterable   bool
	DefaultLimit int
	// FallbackName is the catalog entry served for this route.
	FallbackName models.LogicalQuery
}

func reportFilterParams() []string {
	return []string{filter.ParamDateFrom, filter.ParamDateTo, filter.ParamOffset, filter.ParamLimit}
}

func pageDefaults(limit int) map[string]string {
	return map[string]string{filter.ParamOffset: "0", filter.ParamLimit: fmt.Sprint(limit)}
}

// DefaultRoutes is the dashboard's route table before configuration
// overrides.
func DefaultRoutes(realm string) []Route {
	kpis := aggregation.KPISpec()

	fallbackOnly := func(name models.LogicalQuery, pattern string) Route {
		return Route{Query: name, Method: http.MethodGet, Pattern: pattern, Strategy: models.StrategyFallbackOnly, FallbackName: name}
	}

	return []Route{
		{
			Query:    models.QueryToken,
			Method:   http.MethodPost,
			Pattern:  fmt.Sprintf("/backend/auth/realms/%s/protocol/openid-connect/token", realm),
			Strategy: models.StrategyProxy,
			Public:   true,
		},
		{
			Query:    models.QueryProposalHistory,
			Method:   http.MethodGet,
			Pattern:  proposalHistoryPath,
			Strategy: models.StrategyProxy,
			Proxy: &aggregation.ProxySpec{
				Name:          models.QueryProposalHistory,
				Path:          proposalHistoryPath,
				ForwardParams: []string{filter.ParamOffset, filter.ParamLimit},
				Defaults:      pageDefaults(proxyDefaultLimit),
				ErrorMessage:  "Failed to query proposal history",
			},
			DefaultLimit: proxyDefaultLimit,
			FallbackName: models.QueryProposalHistory,
		},
		{
			Query:    models.QueryProposalsFilter,
			Method:   http.MethodGet,
			Pattern:  proposalsFilterPath,
			Strategy: models.StrategyProxy,
			Proxy: &aggregation.ProxySpec{
				Name: models.QueryProposalsFilter,
				Path: proposalsFilterPath,
				ForwardParams: append([]string{filter.ParamProposalID, filter.ParamStatus},
					reportFilterParams()...),
				Defaults:     pageDefaults(proxyDefaultLimit),
				ErrorMessage: "Failed to query proposal filter",
			},
			Filterable:   true,
			DefaultLimit: proxyDefaultLimit,
			FallbackName: models.QueryProposalsFilter,
		},
		{
			Query:    models.QuerySituationDistribution,
			Method:   http.MethodGet,
			Pattern:  situationDistributionPath,
			Strategy: models.StrategyProxy,
			Proxy: &aggregation.ProxySpec{
				Name:             models.QuerySituationDistribution,
				Path:             situationDistributionPath,
				ForwardParams:    reportFilterParams(),
				Defaults:         pageDefaults(proxyDefaultLimit),
				FallbackTolerant: true,
				ErrorMessage:     "Failed to query situation report",
			},
			DefaultLimit: proxyDefaultLimit,
			FallbackName: models.QuerySituationDistribution,
		},
		{
			Query:        models.QueryKPIs,
			Method:       http.MethodGet,
			Pattern:      "/backend/kpis",
			Strategy:     models.StrategyAggregate,
			Composite:    &kpis,
			FallbackName: models.QueryKPIs,
		},
		fallbackOnly(models.QueryGEROver2h, "/backend/propostas-ger-2h"),
		fallbackOnly(models.QueryProposalEvolution, "/backend/evolucao-propostas"),
		fallbackOnly(models.QueryAverageTimeBySituation, "/backend/tempo-medio-situacao"),
		fallbackOnly(models.QueryStageConversion, "/backend/conversao-etapas"),
		fallbackOnly(models.QueryRejectionReasons, "/backend/motivos-rejeicao"),
		fallbackOnly(models.QueryChannelPerformance, "/backend/desempenho-canal"),
		fallbackOnly(models.QueryMonitoringVolume, "/backend/volume-monitoracao"),
		{
			Query:        models.QueryProposalsFilterLocal,
			Method:       http.MethodGet,
			Pattern:      "/mock" + proposalsFilterPath,
			Strategy:     models.StrategyLocalFilter,
			Filterable:   true,
			DefaultLimit: filter.DefaultLimit,
		},
		{
			Query:        models.QuerySituationDistMock,
			Method:       http.MethodGet,
			Pattern:      "/mock" + situationDistributionPath,
			Strategy:     models.StrategyFallbackOnly,
			FallbackName: models.QuerySituationDistribution,
		},
	}
}

// resolveRoutes applies queries.<name> overrides and checks every route can
// be served as configured. Any problem is a ConfigurationFailure.
func resolveRoutes(routes []Route, overrides map[string]config.QueryConfig, catalog *fallback.Catalog) ([]Route, error) {
	resolved := make([]Route, 0, len(routes))

	for _, route := range routes {
		// viper lower-cases map keys
		if o, ok := overrides[strings.ToLower(string(route.Query))]; ok {
			route = applyOverride(route, o)
		}
		if err := checkRoute(route, catalog); err != nil {
			return nil, errors.NewConfigurationError(fmt.Sprintf("query %s", route.Query), err)
		}
		resolved = append(resolved, route)
	}

	return resolved, nil
}

func applyOverride(route Route, o config.QueryConfig) Route {
	if o.Strategy != "" {
		route.Strategy = models.Strategy(o.Strategy)
	}
	if o.FallbackTolerant != nil && route.Proxy != nil {
		spec := *route.Proxy
		spec.FallbackTolerant = *o.FallbackTolerant
		route.Proxy = &spec
	}
	if o.DefaultLimit > 0 {
		route.DefaultLimit = o.DefaultLimit
		if route.Proxy != nil {
			spec := *route.Proxy
			spec.Defaults = pageDefaults(o.DefaultLimit)
			route.Proxy = &spec
		}
	}
	return route
}

func checkRoute(route Route, catalog *fallback.Catalog) error {
	if route.Query == models.QueryToken {
		if route.Strategy != models.StrategyProxy {
			return fmt.Errorf("token route can only be proxied")
		}
		return nil
	}

	switch route.Strategy {
	case models.StrategyProxy:
		if route.Proxy == nil {
			return fmt.Errorf("route has no upstream to proxy")
		}
	case models.StrategyAggregate:
		if route.Composite == nil {
			return fmt.Errorf("route has no composite definition")
		}
	case models.StrategyLocalFilter:
		if !route.Filterable {
			return fmt.Errorf("route cannot be served from local records")
		}
		return nil
	case models.StrategyFallbackOnly:
	default:
		return fmt.Errorf("unknown strategy %q", route.Strategy)
	}

	if !catalog.Has(route.FallbackName) {
		return fmt.Errorf("no fallback entry for %s", route.FallbackName)
	}
	return nil
}
