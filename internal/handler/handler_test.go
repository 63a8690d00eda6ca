package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwsmith1983/jobtrigger/internal/config"
	"github.com/dwsmith1983/jobtrigger/internal/credential"
	"github.com/dwsmith1983/jobtrigger/internal/trigger"
	"github.com/dwsmith1983/jobtrigger/pkg/types"
)

type mockSecretsManager struct {
	calls  atomic.Int32
	secret string
	err    error
	block  bool
}

func (m *mockSecretsManager) GetSecretValue(ctx context.Context, _ *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	m.calls.Add(1)
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(m.secret)}, nil
}

type platform struct {
	srv    *httptest.Server
	hits   atomic.Int32
	auth   atomic.Value
	body   atomic.Value
	status int
	reply  string
}

func newPlatform(t *testing.T, status int, reply string) *platform {
	t.Helper()
	p := &platform{status: status, reply: reply}
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.hits.Add(1)
		raw, _ := io.ReadAll(r.Body)
		p.auth.Store(r.Header.Get("Authorization"))
		p.body.Store(string(raw))
		w.WriteHeader(p.status)
		_, _ = w.Write([]byte(p.reply))
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *platform) env(ref string) config.Env {
	return config.MapEnv(map[string]string{
		config.EnvWorkspaceURL:  p.srv.URL,
		config.EnvJobID:         "123",
		config.EnvCredentialRef: ref,
	})
}

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func decodeBody(t *testing.T, resp types.Response) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &m), resp.Body)
	return m
}

func TestHandle_DirectSuccess(t *testing.T) {
	p := newPlatform(t, http.StatusCreated, `{"run_id":42}`)
	var logs bytes.Buffer
	h := New(credential.NewDirect(), trigger.NewInvoker(trigger.WithHTTPClient(p.srv.Client())),
		WithEnv(p.env("dapi-direct")), WithLogger(testLogger(&logs)))

	resp := h.Handle(context.Background(), types.InvocationRequest{})

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, SuccessMessage, body["message"])
	assert.Equal(t, "42", body["run_id"])
	assert.Equal(t, "Bearer dapi-direct", p.auth.Load())
	assert.Equal(t, int32(1), p.hits.Load())
	assert.NotContains(t, logs.String(), "dapi-direct")
}

func TestHandle_SecretsManagerExactlyOneLookup(t *testing.T) {
	p := newPlatform(t, http.StatusOK, `{"run_id":"7"}`)
	sm := &mockSecretsManager{secret: `{"token":"dapi-from-store"}`}
	var logs bytes.Buffer
	h := New(credential.NewSecretsManagerWithClient(sm), trigger.NewInvoker(trigger.WithHTTPClient(p.srv.Client())),
		WithEnv(p.env("prod/databricks")), WithLogger(testLogger(&logs)))

	resp := h.Handle(context.Background(), types.InvocationRequest{})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), sm.calls.Load())
	assert.Equal(t, "Bearer dapi-from-store", p.auth.Load())
	assert.NotContains(t, logs.String(), "dapi-from-store")
	assert.NotContains(t, resp.Body, "dapi-from-store")
}

func TestHandle_MissingConfigListsAllKeys(t *testing.T) {
	p := newPlatform(t, http.StatusOK, `{}`)
	sm := &mockSecretsManager{secret: `{"token":"x"}`}
	h := New(credential.NewSecretsManagerWithClient(sm), trigger.NewInvoker(),
		WithEnv(config.MapEnv(nil)), WithLogger(testLogger(&bytes.Buffer{})))

	resp := h.Handle(context.Background(), types.InvocationRequest{})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, string(types.KindConfig), body["kind"])
	msg, _ := body["error"].(string)
	assert.Contains(t, msg, config.EnvWorkspaceURL)
	assert.Contains(t, msg, config.EnvJobID)
	assert.Contains(t, msg, config.EnvCredentialRef)
	assert.Zero(t, sm.calls.Load())
	assert.Zero(t, p.hits.Load())
}

func TestHandle_RequestJobIDOverridesEnv(t *testing.T) {
	p := newPlatform(t, http.StatusOK, `{"run_id":1}`)
	h := New(credential.NewDirect(), trigger.NewInvoker(trigger.WithHTTPClient(p.srv.Client())),
		WithEnv(p.env("t")), WithLogger(testLogger(&bytes.Buffer{})))

	resp := h.Handle(context.Background(), types.InvocationRequest{
		JobID:      "999",
		Parameters: map[string]interface{}{"x": 1},
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"job_id":999,"notebook_params":{"x":1}}`, p.body.Load().(string))
}

func TestHandle_RemoteErrorForwarded(t *testing.T) {
	p := newPlatform(t, http.StatusForbidden, `{"message":"forbidden"}`)
	h := New(credential.NewDirect(), trigger.NewInvoker(trigger.WithHTTPClient(p.srv.Client())),
		WithEnv(p.env("t")), WithLogger(testLogger(&bytes.Buffer{})))

	resp := h.Handle(context.Background(), types.InvocationRequest{})

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, `{"message":"forbidden"}`, body["error"])
	assert.Equal(t, string(types.KindRemote), body["kind"])
}

func TestHandle_CredentialNotFound(t *testing.T) {
	p := newPlatform(t, http.StatusOK, `{}`)
	sm := &mockSecretsManager{err: &smtypes.ResourceNotFoundException{Message: aws.String("gone")}}
	h := New(credential.NewSecretsManagerWithClient(sm), trigger.NewInvoker(),
		WithEnv(p.env("missing/secret")), WithLogger(testLogger(&bytes.Buffer{})))

	resp := h.Handle(context.Background(), types.InvocationRequest{})

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, string(types.KindCredentialNotFound), decodeBody(t, resp)["kind"])
	assert.Zero(t, p.hits.Load())
}

func TestHandle_CredentialTimeout(t *testing.T) {
	p := newPlatform(t, http.StatusOK, `{}`)
	sm := &mockSecretsManager{block: true}
	h := New(credential.NewSecretsManagerWithClient(sm, credential.WithTimeout(50*time.Millisecond)), trigger.NewInvoker(),
		WithEnv(p.env("slow/secret")), WithLogger(testLogger(&bytes.Buffer{})))

	resp := h.Handle(context.Background(), types.InvocationRequest{})

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, string(types.KindTimeout), decodeBody(t, resp)["kind"])
	assert.Equal(t, int32(1), sm.calls.Load())
}

type panicInvoker struct{}

func (panicInvoker) Invoke(context.Context, types.TriggerConfig, types.Credential, map[string]interface{}) types.Outcome {
	panic("boom")
}

func TestHandle_PanicBecomesInternalError(t *testing.T) {
	p := newPlatform(t, http.StatusOK, `{}`)
	h := New(credential.NewDirect(), panicInvoker{}, WithEnv(p.env("t")), WithLogger(testLogger(&bytes.Buffer{})))

	resp := h.Handle(context.Background(), types.InvocationRequest{})

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, string(types.KindInternal), body["kind"])
	assert.Equal(t, "internal error", body["error"])
}

func TestHandle_FlushesOncePerInvocation(t *testing.T) {
	p := newPlatform(t, http.StatusOK, `{"run_id":1}`)
	var flushes atomic.Int32
	h := New(credential.NewDirect(), trigger.NewInvoker(trigger.WithHTTPClient(p.srv.Client())),
		WithEnv(p.env("t")), WithLogger(testLogger(&bytes.Buffer{})),
		WithFlush(func(ctx context.Context) error {
			flushes.Add(1)
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return errors.New("collector down")
		}))

	resp := h.Handle(context.Background(), types.InvocationRequest{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), flushes.Load())
}

func TestHandle_LogsInvocationIDAndParamKeysOnly(t *testing.T) {
	p := newPlatform(t, http.StatusOK, `{"run_id":1}`)
	var logs bytes.Buffer
	h := New(credential.NewDirect(), trigger.NewInvoker(trigger.WithHTTPClient(p.srv.Client())),
		WithEnv(p.env("t")), WithLogger(testLogger(&logs)))

	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-123"})
	h.Handle(ctx, types.InvocationRequest{Parameters: map[string]interface{}{"date": "secret-value"}})

	out := logs.String()
	assert.Contains(t, out, `"invocationID":"req-123"`)
	assert.Contains(t, out, `"paramKeys":["date"]`)
	assert.NotContains(t, out, "secret-value")
}

func TestInvocationID(t *testing.T) {
	ctx := WithInvocationID(context.Background(), "abc")
	assert.Equal(t, "abc", InvocationID(ctx))

	lctx := lambdacontext.NewContext(ctx, &lambdacontext.LambdaContext{AwsRequestID: "aws-1"})
	assert.Equal(t, "aws-1", InvocationID(lctx))

	generated := InvocationID(context.Background())
	assert.Len(t, generated, 26)
	assert.NotEqual(t, generated, InvocationID(context.Background()))
}

func TestOutcomeFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want types.Kind
	}{
		{"config", &config.Error{Missing: []string{"X"}}, types.KindConfig},
		{"credential", &credential.Error{Kind: types.KindCredentialMalformed}, types.KindCredentialMalformed},
		{"credential timeout", &credential.Error{Kind: types.KindCredentialUnreachable, Err: context.DeadlineExceeded}, types.KindTimeout},
		{"wrapped config", errors.Join(errors.New("init"), &config.Error{Reason: "bad"}), types.KindConfig},
		{"other", errors.New("boom"), types.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutcomeFromError(tt.err).Kind)
		})
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		out    types.Outcome
		status int
		body   string
	}{
		{
			name:   "success",
			out:    types.Success(201, "42", map[string]interface{}{"run_id": "42"}),
			status: 201,
			body:   `{"message":"Databricks Job triggered successfully","run_id":"42","response":{"run_id":"42"}}`,
		},
		{
			name:   "remote",
			out:    types.Failure(types.KindRemote, 429, "slow down"),
			status: 429,
			body:   `{"error":"slow down","kind":"remote_error"}`,
		},
		{
			name:   "network hides detail",
			out:    types.Failure(types.KindNetwork, 0, "dial tcp 10.0.0.1:443: connection refused"),
			status: 502,
			body:   `{"error":"job platform unreachable","kind":"network_error"}`,
		},
		{
			name:   "credential hides secret id",
			out:    types.Failure(types.KindCredentialUnreachable, 0, `secret "prod/x": denied`),
			status: 500,
			body:   `{"error":"secret store unreachable","kind":"credential_unreachable"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := Render(tt.out)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.JSONEq(t, tt.body, resp.Body)
		})
	}
}

func TestHandle_AlertsOnFailureOnly(t *testing.T) {
	p := newPlatform(t, http.StatusForbidden, `{"message":"forbidden"}`)
	alerts := make(chan types.Alert, 2)
	h := New(credential.NewDirect(), trigger.NewInvoker(trigger.WithHTTPClient(p.srv.Client())),
		WithEnv(p.env("dapi-secret")), WithLogger(testLogger(&bytes.Buffer{})),
		WithAlertFunc(func(ctx context.Context, a types.Alert) {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			alerts <- a
		}))

	ctx := WithInvocationID(context.Background(), "inv-9")
	h.Handle(ctx, types.InvocationRequest{JobID: "456"})

	require.Len(t, alerts, 1)
	a := <-alerts
	assert.Equal(t, "inv-9", a.InvocationID)
	assert.Equal(t, "456", a.JobID)
	assert.Equal(t, types.KindRemote, a.Kind)
	assert.Equal(t, http.StatusForbidden, a.Status)
	assert.Equal(t, `{"message":"forbidden"}`, a.Message)
	assert.NotContains(t, a.Message, "dapi-secret")

	ok := newPlatform(t, http.StatusOK, `{"run_id":1}`)
	h = New(credential.NewDirect(), trigger.NewInvoker(trigger.WithHTTPClient(ok.srv.Client())),
		WithEnv(ok.env("dapi-secret")), WithLogger(testLogger(&bytes.Buffer{})),
		WithAlertFunc(func(_ context.Context, a types.Alert) { alerts <- a }))
	h.Handle(ctx, types.InvocationRequest{})
	assert.Empty(t, alerts)
}

func TestHandle_AlertJobIDFromEnv(t *testing.T) {
	alerts := make(chan types.Alert, 1)
	h := New(credential.NewDirect(), panicInvoker{},
		WithEnv(config.MapEnv(map[string]string{config.EnvJobID: "99"})),
		WithLogger(testLogger(&bytes.Buffer{})),
		WithAlertFunc(func(_ context.Context, a types.Alert) { alerts <- a }))

	h.Handle(context.Background(), types.InvocationRequest{})

	a := <-alerts
	assert.Equal(t, "99", a.JobID)
	assert.Equal(t, types.KindConfig, a.Kind)
	assert.Contains(t, a.Message, config.EnvWorkspaceURL)
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, SuccessMessage, PublicMessage(types.Success(200, "1", nil)))
	assert.Equal(t, "body", PublicMessage(types.Failure(types.KindRemote, 500, "body")))
	assert.Equal(t, "request timed out", PublicMessage(types.Failure(types.KindTimeout, 0, "dial tcp 10.0.0.1: i/o timeout")))
}
