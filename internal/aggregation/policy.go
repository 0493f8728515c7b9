// Package aggregation turns upstream outcomes into gateway responses, either
// for a single proxied call or for a composite fan-out with all-or-nothing
// fallback substitution.
package aggregation

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"dashboard-gateway/internal/common/errors"
	"dashboard-gateway/internal/common/logger"
	"dashboard-gateway/internal/common/metrics"
	"dashboard-gateway/internal/common/observability"
	"dashboard-gateway/internal/fallback"
	"dashboard-gateway/internal/models"
	"dashboard-gateway/internal/upstream"
)

var (
	ErrExtractionMissed = stderrors.New("EXTRACTION_MISSED")
	ErrNoFallback       = stderrors.New("NO_FALLBACK")
)

// Doer performs one upstream call.
type Doer interface {
	Do(ctx context.Context, call upstream.Call) upstream.Outcome
}

type Policy struct {
	doer    Doer
	catalog *fallback.Catalog
	baseURL string
	logger  logger.Logger
	obs     *observability.Observability
}

func NewPolicy(doer Doer, catalog *fallback.Catalog, baseURL string, log logger.Logger, obs *observability.Observability) *Policy {
	return &Policy{
		doer:    doer,
		catalog: catalog,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  log,
		obs:     obs,
	}
}

// Proxy issues one call and maps its outcome to a response.
func (p *Policy) Proxy(ctx context.Context, spec ProxySpec, req Request) (Result, error) {
	if strings.TrimSpace(req.Authorization) == "" {
		return Result{}, errors.NewMissingCredentialError()
	}

	target, err := p.buildURL(spec.Path, req.PathParams, forwarded(req.Query, spec.ForwardParams, spec.Defaults))
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	outcome := p.doer.Do(ctx, upstream.Call{
		Method:            http.MethodGet,
		URL:               target,
		Authorization:     req.Authorization,
		RequireCredential: true,
	})
	result, err := p.Resolve(spec.Name, outcome, spec.FallbackTolerant, spec.ErrorMessage)
	p.obs.RecordRequest(ctx, string(spec.Name), sourceOf(result), time.Since(start))
	return result, err
}

// Resolve maps an outcome: payload verbatim on success; on failure either
// the fallback entry (tolerant) or the upstream's status and body.
func (p *Policy) Resolve(name models.LogicalQuery, outcome upstream.Outcome, tolerant bool, errorMessage string) (Result, error) {
	if outcome.OK() {
		return Result{Status: http.StatusOK, Body: outcome.Payload}, nil
	}

	failure := outcome.Failure
	if errors.IsPrecondition(failure.Err) {
		return Result{}, failure.Err
	}

	if tolerant {
		p.logger.Warn("Serving fallback after upstream failure", map[string]interface{}{
			"query":      string(name),
			"statusCode": failure.StatusCode,
			"error":      failure.Message,
		})
		return p.Fallback(name, "upstream_failure")
	}

	if failure.StatusCode > 0 {
		body := failure.Body
		if len(body) == 0 {
			body = mustMarshal(map[string]string{"error": failure.Message})
		}
		return Result{Status: failure.StatusCode, Body: body}, nil
	}

	if errorMessage == "" {
		errorMessage = "Upstream request failed"
	}
	return Result{
		Status: http.StatusInternalServerError,
		Body:   mustMarshal(map[string]string{"error": errorMessage, "details": failure.Message}),
	}, nil
}

// Fallback serves the catalog entry for name with status 200.
func (p *Policy) Fallback(name models.LogicalQuery, reason string) (Result, error) {
	payload, ok := p.catalog.Fallback(name)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrNoFallback, name)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("encode fallback %s: %w", name, err)
	}
	metrics.FallbackSubstitutions.WithLabelValues(string(name), reason).Inc()
	return Result{Status: http.StatusOK, Body: body, Fallback: true}, nil
}

// Aggregate issues every part concurrently and waits for all of them. Any
// failing part replaces the whole result with the fallback entry.
func (p *Policy) Aggregate(ctx context.Context, spec CompositeSpec, req Request) (Result, error) {
	if strings.TrimSpace(req.Authorization) == "" {
		return Result{}, errors.NewMissingCredentialError()
	}

	start := time.Now()
	shared := forwarded(req.Query, spec.ForwardParams, nil)

	type partResult struct {
		value interface{}
		err   error
	}
	results := make([]partResult, len(spec.Parts))

	var wg sync.WaitGroup
	for i, part := range spec.Parts {
		wg.Add(1)
		go func(i int, part Part) {
			defer wg.Done()
			value, err := p.runPart(ctx, part, shared, req.Authorization)
			results[i] = partResult{value: value, err: err}
		}(i, part)
	}
	wg.Wait()
	p.obs.RecordFanOut(ctx, string(spec.Name), len(spec.Parts))

	values := make(map[string]interface{}, len(spec.Parts))
	for i, r := range results {
		if r.err != nil {
			if errors.IsPrecondition(r.err) {
				return Result{}, r.err
			}
			partial := errors.NewPartialAggregationError(string(spec.Name), spec.Parts[i].Key, r.err)
			p.logger.Warn("Composite query degraded to fallback", map[string]interface{}{
				"query":     string(spec.Name),
				"part":      spec.Parts[i].Key,
				"errorCode": string(partial.Code),
				"error":     partial.Details,
			})
			result, err := p.Fallback(spec.Name, "partial_failure")
			p.obs.RecordRequest(ctx, string(spec.Name), sourceOf(result), time.Since(start))
			return result, err
		}
		values[spec.Parts[i].Key] = r.value
	}

	if spec.Derive != nil {
		if err := spec.Derive(values); err != nil {
			p.logger.Warn("Composite derivation failed", map[string]interface{}{
				"query": string(spec.Name),
				"error": err.Error(),
			})
			result, fbErr := p.Fallback(spec.Name, "derive_failure")
			p.obs.RecordRequest(ctx, string(spec.Name), sourceOf(result), time.Since(start))
			return result, fbErr
		}
	}

	body, err := json.Marshal(values)
	if err != nil {
		return Result{}, fmt.Errorf("encode composite %s: %w", spec.Name, err)
	}
	p.obs.RecordRequest(ctx, string(spec.Name), "live", time.Since(start))
	return Result{Status: http.StatusOK, Body: body}, nil
}

func (p *Policy) runPart(ctx context.Context, part Part, shared url.Values, authorization string) (interface{}, error) {
	query := url.Values{}
	for k, v := range shared {
		query[k] = v
	}
	for k, v := range part.Params {
		query[k] = v
	}

	target, err := p.buildURL(part.Path, nil, query)
	if err != nil {
		return nil, err
	}

	outcome := p.doer.Do(ctx, upstream.Call{
		Method:            http.MethodGet,
		URL:               target,
		Authorization:     authorization,
		RequireCredential: true,
	})
	if !outcome.OK() {
		return nil, outcome.Failure.Err
	}

	extracted := gjson.GetBytes(outcome.Payload, part.Extract)
	if !extracted.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrExtractionMissed, part.Extract)
	}
	return extracted.Value(), nil
}

func (p *Policy) buildURL(path string, params map[string]string, query url.Values) (string, error) {
	for name, value := range params {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	if strings.Contains(path, "{") {
		return "", fmt.Errorf("unresolved path parameter in %s", path)
	}

	target := p.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}
	return target, nil
}

// forwarded keeps the non-empty recognised parameters and fills defaults.
func forwarded(in url.Values, names []string, defaults map[string]string) url.Values {
	out := url.Values{}
	for _, name := range names {
		if v := in.Get(name); v != "" {
			out.Set(name, v)
		}
	}
	for name, v := range defaults {
		if out.Get(name) == "" {
			out.Set(name, v)
		}
	}
	return out
}

func sourceOf(r Result) string {
	if r.Fallback {
		return "fallback"
	}
	return "live"
}

func mustMarshal(v interface{}) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
