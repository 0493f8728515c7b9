package aggregation

import (
	"encoding/json"
	"net/url"

	"dashboard-gateway/internal/models"
)

// Request carries what the route layer extracted from the inbound request.
type Request struct {
	Authorization string
	Query         url.Values
	PathParams    map[string]string
}

// Result is written verbatim as the response.
type Result struct {
	Status   int
	Body     json.RawMessage
	Fallback bool
}

// ProxySpec describes one single-call endpoint.
type ProxySpec struct {
	Name models.LogicalQuery
	// Path is relative to the reporting base URL; {name} segments are
	// replaced from Request.PathParams.
	Path          string
	ForwardParams []string
	// Defaults are sent when the caller did not supply the parameter.
	Defaults         map[string]string
	FallbackTolerant bool
	// ErrorMessage is the {error} text of a network failure pass-through.
	ErrorMessage string
}

// Part is one sub-call of a composite query.
type Part struct {
	Key    string
	Path   string
	Params url.Values
	// Extract is a gjson path into the part's payload.
	Extract string
}

// CompositeSpec describes a metric assembled from several upstream calls.
type CompositeSpec struct {
	Name          models.LogicalQuery
	Parts         []Part
	ForwardParams []string
	// Derive adds computed fields once every part has succeeded.
	Derive func(values map[string]interface{}) error
}
