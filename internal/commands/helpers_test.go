package commands

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwsmith1983/jobtrigger/internal/config"
	"github.com/dwsmith1983/jobtrigger/pkg/types"
)

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"date=2026-10-16", "mode=full=true", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"date":  "2026-10-16",
		"mode":  "full=true",
		"empty": "",
	}, params)

	_, err = parseParams([]string{"novalue"})
	assert.Error(t, err)

	_, err = parseParams([]string{"=x"})
	assert.Error(t, err)
}

func TestLoadParamsFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("date: \"2026-10-16\"\nlimit: 10\n"), 0o644))

	params, err := loadParamsFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16", params["date"])
	assert.Equal(t, 10, params["limit"])
}

func TestLoadParamsFile_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"region":"eu","dry_run":true}`), 0o644))

	params, err := loadParamsFile(path)
	require.NoError(t, err)
	assert.Equal(t, "eu", params["region"])
	assert.Equal(t, true, params["dry_run"])
}

func TestLoadParamsFile_Errors(t *testing.T) {
	_, err := loadParamsFile("/nonexistent/path/xyzzy.yaml")
	assert.Error(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n  :\n  - [invalid"), 0o644))
	_, err = loadParamsFile(path)
	assert.Error(t, err)
}

func TestMergeParams(t *testing.T) {
	assert.Nil(t, mergeParams(nil, nil))
	merged := mergeParams(map[string]interface{}{"a": 1, "b": 2}, map[string]interface{}{"b": "flag"})
	assert.Equal(t, map[string]interface{}{"a": 1, "b": "flag"}, merged)
}

func TestBuildRequest(t *testing.T) {
	req, err := buildRequest(runOptions{jobID: "42", params: []string{"k=v"}})
	require.NoError(t, err)
	assert.Equal(t, types.JobID("42"), req.JobID)
	assert.Equal(t, "v", req.Parameters["k"])
}

func TestPrintResponse(t *testing.T) {
	var out bytes.Buffer
	err := printResponse(&out, types.Response{StatusCode: 200, Body: `{"message":"ok","run_id":"9"}`})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "run_id: 9")

	out.Reset()
	err = printResponse(&out, types.Response{StatusCode: 403, Body: `{"error":"forbidden","kind":"remote_error"}`})
	require.Error(t, err)
	assert.Contains(t, out.String(), "forbidden")
	assert.Contains(t, out.String(), "remote_error")
}

func TestRunTrigger(t *testing.T) {
	bodies := make(chan string, 1)
	platform := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		bodies <- string(raw)
		_, _ = w.Write([]byte(`{"run_id":5}`))
	}))
	defer platform.Close()

	env := config.MapEnv(map[string]string{
		config.EnvWorkspaceURL:  platform.URL,
		config.EnvJobID:         "1",
		config.EnvCredentialRef: "dapi",
	})

	var out bytes.Buffer
	err := runTrigger(context.Background(), &out, env, runOptions{jobID: "77", params: []string{"a=b"}})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "run_id: 5")
	assert.JSONEq(t, `{"job_id":77,"notebook_params":{"a":"b"}}`, <-bodies)
}

func TestRunTrigger_MissingConfig(t *testing.T) {
	var out bytes.Buffer
	err := runTrigger(context.Background(), &out, config.MapEnv(nil), runOptions{})
	require.Error(t, err)
	assert.Contains(t, out.String(), config.EnvWorkspaceURL)
}
