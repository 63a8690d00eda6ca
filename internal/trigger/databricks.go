package trigger

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/dwsmith1983/jobtrigger/pkg/types"
)

// RunNowPath is the Jobs API 2.1 endpoint that starts a run of an existing job.
const RunNowPath = "/api/2.1/jobs/run-now"

// RunNowURL joins a workspace URL and RunNowPath.
func RunNowURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + RunNowPath
}

type runNowRequest struct {
	JobID          interface{}            `json:"job_id"`
	NotebookParams map[string]interface{} `json:"notebook_params,omitempty"`
}

// newRunNowRequest builds the request body. Databricks job ids are int64, so
// an id in canonical decimal form is sent as a JSON number; anything else,
// including "007" or "+7", goes as the unchanged string.
func newRunNowRequest(jobID string, params map[string]interface{}) runNowRequest {
	var id interface{} = jobID
	if n, err := strconv.ParseInt(jobID, 10, 64); err == nil && strconv.FormatInt(n, 10) == jobID {
		id = n
	}
	return runNowRequest{JobID: id, NotebookParams: params}
}

// Classify maps a run-now response to an outcome. It is a pure function of
// its inputs: replaying a response always yields the same kind and status.
func Classify(status int, body []byte) types.Outcome {
	if status < 200 || status > 299 {
		return types.Failure(types.KindRemote, status, string(body))
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var parsed map[string]interface{}
	if err := dec.Decode(&parsed); err != nil || parsed == nil {
		return types.Failure(types.KindMalformedResponse, status, "run-now response is not a JSON object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return types.Failure(types.KindMalformedResponse, status, "run-now response has trailing data")
	}

	return types.Success(status, runID(parsed["run_id"]), parsed)
}

func runID(v interface{}) string {
	switch id := v.(type) {
	case json.Number:
		return id.String()
	case string:
		return id
	default:
		return ""
	}
}
