// Package handler runs one trigger invocation end to end: resolve the
// configuration, fetch the credential, call run-now and render the response.
// It is shared by the Lambda, Cloud Function, HTTP server and CLI entry points.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dwsmith1983/jobtrigger/internal/config"
	"github.com/dwsmith1983/jobtrigger/internal/credential"
	"github.com/dwsmith1983/jobtrigger/internal/metrics"
	"github.com/dwsmith1983/jobtrigger/pkg/types"
)

// SuccessMessage is the message field of every success body.
const SuccessMessage = "Databricks Job triggered successfully"

const (
	tracerName   = "github.com/dwsmith1983/jobtrigger/internal/handler"
	flushTimeout = 2 * time.Second
	alertTimeout = 5 * time.Second
)

// Invoker starts a job run. *trigger.Invoker satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, cfg types.TriggerConfig, cred types.Credential, params map[string]interface{}) types.Outcome
}

// Handler is safe for concurrent use; it keeps no state between invocations.
type Handler struct {
	env      config.Env
	provider credential.Provider
	invoker  Invoker
	logger   *slog.Logger
	metrics  *metrics.Recorder
	tracer   trace.Tracer
	flush    func(context.Context) error
	alert    func(context.Context, types.Alert)
}

// Option configures a Handler.
type Option func(*Handler)

// WithEnv sets the environment lookup used by Resolve. Defaults to the process environment.
func WithEnv(env config.Env) Option {
	return func(h *Handler) { h.env = env }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(h *Handler) { h.metrics = r }
}

// WithTracerProvider sets the provider for the invocation spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *Handler) {
		if tp != nil {
			h.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithFlush sets a function called after each invocation to export telemetry.
func WithFlush(fn func(context.Context) error) Option {
	return func(h *Handler) { h.flush = fn }
}

// WithAlertFunc sets a callback invoked for every failed invocation.
func WithAlertFunc(fn func(context.Context, types.Alert)) Option {
	return func(h *Handler) { h.alert = fn }
}

// New creates a Handler.
func New(prov credential.Provider, inv Invoker, opts ...Option) *Handler {
	h := &Handler{
		env:      config.OSEnv(),
		provider: prov,
		invoker:  inv,
		logger:   slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		tracer:   otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Handle runs one invocation and renders the response. It never returns an
// error: every failure is reported through the status code and body.
func (h *Handler) Handle(ctx context.Context, req types.InvocationRequest) types.Response {
	start := time.Now()
	id := InvocationID(ctx)
	logger := h.logger.With("invocationID", id)

	logger.Info("invocation received",
		"jobID", string(req.JobID),
		"paramKeys", paramKeys(req.Parameters),
	)

	out := h.Trigger(WithInvocationID(ctx, id), req)
	elapsed := time.Since(start)

	attrs := []any{
		"kind", out.Kind,
		"status", out.StatusCode(),
		"duration", elapsed,
	}
	if out.OK() {
		logger.Info("job triggered", append(attrs, "runID", out.RunID)...)
	} else {
		logger.Error("trigger failed", append(attrs, "error", out.Message)...)
	}

	h.metrics.RecordInvocation(ctx, out, elapsed)
	if !out.OK() && h.alert != nil {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
		h.alert(actx, types.Alert{
			InvocationID: id,
			JobID:        h.jobID(req),
			Kind:         out.Kind,
			Status:       out.StatusCode(),
			Message:      PublicMessage(out),
			Timestamp:    time.Now().UTC(),
		})
		cancel()
	}
	if h.flush != nil {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
		if err := h.flush(fctx); err != nil {
			logger.Warn("telemetry flush failed", "error", err)
		}
		cancel()
	}

	return Render(out)
}

// Trigger resolves, authenticates and invokes. Panics are converted to
// internal_error outcomes.
func (h *Handler) Trigger(ctx context.Context, req types.InvocationRequest) (out types.Outcome) {
	ctx, span := h.tracer.Start(ctx, "jobtrigger.invoke")
	defer func() {
		if r := recover(); r != nil {
			out = types.Failure(types.KindInternal, 0, fmt.Sprintf("panic: %v", r))
		}
		span.SetAttributes(attribute.String("jobtrigger.outcome", string(out.Kind)))
		if !out.OK() {
			span.SetStatus(codes.Error, string(out.Kind))
		}
		span.End()
	}()

	cfg, err := config.Resolve(req, h.env)
	if err != nil {
		return OutcomeFromError(err)
	}
	span.SetAttributes(attribute.String("databricks.job_id", cfg.JobID))

	cred, err := h.fetch(ctx, cfg.CredentialRef)
	if err != nil {
		return OutcomeFromError(err)
	}

	h.logger.Debug("trigger attempt",
		"invocationID", InvocationID(ctx),
		"jobID", cfg.JobID,
		"baseURL", cfg.BaseURL,
		"credentialMode", h.provider.Name(),
	)
	return h.invoker.Invoke(ctx, cfg, cred, req.Parameters)
}

// jobID names the job for notifications without resolving the full config.
func (h *Handler) jobID(req types.InvocationRequest) string {
	if id := strings.TrimSpace(string(req.JobID)); id != "" {
		return id
	}
	if h.env == nil {
		return ""
	}
	v, _ := h.env(config.EnvJobID)
	return strings.TrimSpace(v)
}

func (h *Handler) fetch(ctx context.Context, ref string) (types.Credential, error) {
	name := h.provider.Name()
	if name == string(types.CredentialDirect) {
		return h.provider.Fetch(ctx, ref)
	}

	ctx, span := h.tracer.Start(ctx, "credential.fetch",
		trace.WithAttributes(attribute.String("credential.provider", name)))
	defer span.End()

	cred, err := h.provider.Fetch(ctx, ref)
	h.metrics.RecordLookup(ctx, name, err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "credential lookup failed")
	}
	return cred, err
}

// OutcomeFromError classifies errors raised before the run-now request.
func OutcomeFromError(err error) types.Outcome {
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		return types.Failure(types.KindConfig, 0, cfgErr.Error())
	}
	var credErr *credential.Error
	if errors.As(err, &credErr) {
		if credErr.Timeout() {
			return types.Failure(types.KindTimeout, 0, credErr.Error())
		}
		return types.Failure(credErr.Kind, 0, credErr.Error())
	}
	return types.Failure(types.KindInternal, 0, err.Error())
}

// PublicMessage is the failure text safe to show callers. Remote and config
// errors carry their message; other failures expose only the kind description.
func PublicMessage(out types.Outcome) string {
	switch out.Kind {
	case types.KindSuccess:
		return SuccessMessage
	case types.KindRemote, types.KindConfig:
		return out.Message
	default:
		return out.Kind.Description()
	}
}

// Render converts an outcome to the wire response.
func Render(out types.Outcome) types.Response {
	var body interface{}
	if out.OK() {
		body = types.SuccessBody{Message: SuccessMessage, RunID: out.RunID, Response: out.Response}
	} else {
		body = types.ErrorBody{Error: PublicMessage(out), Kind: out.Kind}
	}

	b, err := json.Marshal(body)
	if err != nil {
		return types.Response{
			StatusCode: types.KindInternal.DefaultStatus(),
			Body:       `{"error":"internal error","kind":"internal_error"}`,
		}
	}
	return types.Response{StatusCode: out.StatusCode(), Body: string(b)}
}

func paramKeys(params map[string]interface{}) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type invocationIDKey struct{}

// WithInvocationID stores an invocation id on ctx.
func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, invocationIDKey{}, id)
}

// InvocationID returns the Lambda request id when running on Lambda, an id
// stored with WithInvocationID, or a fresh ULID.
func InvocationID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	if id, ok := ctx.Value(invocationIDKey{}).(string); ok && id != "" {
		return id
	}
	return ulid.Make().String()
}
