// Package trigger starts Databricks job runs through the run-now REST API.
package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dwsmith1983/jobtrigger/pkg/types"
)

// DefaultTimeout bounds the run-now request.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent identifies requests sent by the invoker.
const DefaultUserAgent = "jobtrigger"

const maxResponseBytes = 1 << 20

var defaultHTTPClient = &http.Client{
	Transport: otelhttp.NewTransport(http.DefaultTransport),
}

// Invoker sends one run-now request per call and classifies the response.
// It holds no per-invocation state and is safe for concurrent use.
type Invoker struct {
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	tracer     trace.Tracer
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) InvokerOption {
	return func(i *Invoker) {
		if c != nil {
			i.httpClient = c
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) InvokerOption {
	return func(i *Invoker) {
		if d > 0 {
			i.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) InvokerOption {
	return func(i *Invoker) {
		if ua != "" {
			i.userAgent = ua
		}
	}
}

// WithTracerProvider sets the provider used for the run-now span.
func WithTracerProvider(tp trace.TracerProvider) InvokerOption {
	return func(i *Invoker) {
		if tp != nil {
			i.tracer = tp.Tracer(tracerName)
		}
	}
}

const tracerName = "github.com/dwsmith1983/jobtrigger/internal/trigger"

// NewInvoker creates an Invoker with the given options.
func NewInvoker(opts ...InvokerOption) *Invoker {
	i := &Invoker{
		httpClient: defaultHTTPClient,
		timeout:    DefaultTimeout,
		userAgent:  DefaultUserAgent,
		tracer:     otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Timeout returns the request bound.
func (i *Invoker) Timeout() time.Duration { return i.timeout }

// Invoke starts a run of cfg.JobID. Exactly one request is attempted; the
// run-now endpoint is not idempotent so nothing here retries.
func (i *Invoker) Invoke(ctx context.Context, cfg types.TriggerConfig, cred types.Credential, params map[string]interface{}) types.Outcome {
	ctx, span := i.tracer.Start(ctx, "databricks.run_now", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("databricks.job_id", cfg.JobID)))
	defer span.End()

	out := i.invoke(ctx, cfg, cred, params)

	span.SetAttributes(attribute.String("jobtrigger.outcome", string(out.Kind)))
	if out.HTTPStatus != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", out.HTTPStatus))
	}
	if out.OK() {
		span.SetAttributes(attribute.String("databricks.run_id", out.RunID))
	} else {
		span.SetStatus(codes.Error, string(out.Kind))
	}
	return out
}

func (i *Invoker) invoke(ctx context.Context, cfg types.TriggerConfig, cred types.Credential, params map[string]interface{}) types.Outcome {
	body, err := json.Marshal(newRunNowRequest(cfg.JobID, params))
	if err != nil {
		return types.Failure(types.KindInternal, 0, fmt.Sprintf("marshaling run-now payload: %v", err))
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, RunNowURL(cfg.BaseURL), bytes.NewReader(body))
	if err != nil {
		return types.Failure(types.KindConfig, 0, fmt.Sprintf("creating request: %v", err))
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", i.userAgent)

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return transportFailure(ctx, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return transportFailure(ctx, "reading response", err)
	}
	if len(respBody) > maxResponseBytes {
		return oversized(resp.StatusCode, respBody[:maxResponseBytes])
	}

	return Classify(resp.StatusCode, respBody)
}

// TruncatedSuffix marks a remote error body cut at the read cap.
var TruncatedSuffix = fmt.Sprintf("\n[truncated: response exceeded %d bytes]", maxResponseBytes)

// oversized reports a response larger than the read cap. Error bodies keep
// their first maxResponseBytes followed by TruncatedSuffix; a success body
// cannot be parsed partially and is treated as malformed.
func oversized(status int, head []byte) types.Outcome {
	if status < 200 || status > 299 {
		return types.Failure(types.KindRemote, status, string(head)+TruncatedSuffix)
	}
	return types.Failure(types.KindMalformedResponse, status,
		fmt.Sprintf("run-now response exceeds %d bytes", maxResponseBytes))
}

// transportFailure separates deadline expiry from other network errors.
func transportFailure(ctx context.Context, what string, err error) types.Outcome {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded || os.IsTimeout(err) {
		return types.Failure(types.KindTimeout, 0, fmt.Sprintf("run-now %s: timed out", what))
	}
	return types.Failure(types.KindNetwork, 0, fmt.Sprintf("run-now %s: %v", what, err))
}
