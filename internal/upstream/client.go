package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dashboard-gateway/internal/common/errors"
	commonhttp "dashboard-gateway/internal/common/http"
	"dashboard-gateway/internal/common/logger"
	"dashboard-gateway/internal/common/metrics"
)

const (
	defaultTimeout          = 30 * time.Second
	defaultMaxResponseBytes = 10 << 20
)

var ErrResponseTooLarge = stderrors.New("RESPONSE_TOO_LARGE")

type Options struct {
	Timeout          time.Duration
	MaxResponseBytes int64
	CAFile           string
	Transport        http.RoundTripper
	Logger           logger.Logger
}

// Client performs single outbound calls. 4xx/5xx answers and transport
// errors are returned as Failure outcomes, never as Go errors. Calls are not
// retried.
type Client struct {
	http     *commonhttp.Client
	timeout  time.Duration
	maxBytes int64
	logger   logger.Logger
}

// NewClient returns a ConfigurationFailure when the CA bundle is unusable.
func NewClient(opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxResponseBytes <= 0 {
		opts.MaxResponseBytes = defaultMaxResponseBytes
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}

	// Deadlines come from the per-call context, not the http.Client.
	httpClient, err := commonhttp.NewClient(commonhttp.Options{
		CAFile:    opts.CAFile,
		Transport: opts.Transport,
	})
	if err != nil {
		return nil, errors.NewConfigurationError("upstream CA bundle", err)
	}

	return &Client{
		http:     httpClient,
		timeout:  opts.Timeout,
		maxBytes: opts.MaxResponseBytes,
		logger:   opts.Logger,
	}, nil
}

func (c *Client) Do(ctx context.Context, call Call) Outcome {
	if call.RequireCredential && strings.TrimSpace(call.Authorization) == "" {
		stdErr := errors.NewMissingCredentialError()
		return failed(&Failure{Message: stdErr.Message, Err: stdErr})
	}

	timeout := c.timeout
	if call.Timeout > 0 {
		timeout = call.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	host := hostOf(call.URL)
	start := time.Now()
	outcome := c.do(ctx, call)
	metrics.UpstreamCallDuration.WithLabelValues(host).Observe(time.Since(start).Seconds())
	metrics.UpstreamCalls.WithLabelValues(host, outcomeLabel(outcome)).Inc()

	if !outcome.OK() {
		c.logger.Warn("Upstream call failed", map[string]interface{}{
			"url":        call.URL,
			"statusCode": outcome.Failure.StatusCode,
			"timeout":    outcome.Failure.Timeout,
			"error":      outcome.Failure.Message,
			"durationMs": time.Since(start).Milliseconds(),
		})
	}
	return outcome
}

func (c *Client) do(ctx context.Context, call Call) Outcome {
	method := call.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if call.Body != nil {
		body = bytes.NewReader(call.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, call.URL, body)
	if err != nil {
		return c.networkFailure(call.URL, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range call.Headers {
		req.Header.Set(k, v)
	}
	if call.Authorization != "" {
		req.Header.Set("Authorization", call.Authorization)
	}

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return c.networkFailure(call.URL, err)
	}
	defer resp.Body.Close()

	payload, err := c.readBody(resp.Body)
	if err != nil {
		return c.networkFailure(call.URL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := fmt.Sprintf("upstream responded with status %d", resp.StatusCode)
		return failed(&Failure{
			StatusCode: resp.StatusCode,
			Body:       asJSON(payload),
			Message:    message,
			Err:        errors.NewUpstreamFailureError(call.URL, resp.StatusCode, message),
		})
	}

	if !json.Valid(payload) {
		message := "upstream returned a non-JSON body"
		return failed(&Failure{
			Message: message,
			Err:     errors.NewUpstreamFailureError(call.URL, 0, message),
		})
	}

	return success(payload)
}

func (c *Client) readBody(r io.Reader) ([]byte, error) {
	payload, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(payload)) > c.maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrResponseTooLarge, c.maxBytes)
	}
	return payload, nil
}

func (c *Client) networkFailure(target string, err error) Outcome {
	if isTimeout(err) {
		return failed(&Failure{
			Message: err.Error(),
			Timeout: true,
			Err:     errors.NewUpstreamTimeoutError(target, err),
		})
	}
	return failed(&Failure{
		Message: err.Error(),
		Err:     errors.NewUpstreamFailureError(target, 0, err.Error()),
	})
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

// asJSON keeps JSON bodies as-is and wraps anything else as a JSON string.
func asJSON(body []byte) json.RawMessage {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, _ := json.Marshal(string(body))
	return quoted
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

func outcomeLabel(o Outcome) string {
	switch {
	case o.OK():
		return "success"
	case o.Failure.Timeout:
		return "timeout"
	case o.Failure.StatusCode > 0:
		return "http_error"
	default:
		return "network_error"
	}
}
