// Package types defines the public domain types for triggering Databricks job runs.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// InvocationRequest is the payload handed to the trigger handler by its runtime.
// Both fields are optional: JobID overrides DATABRICKS_JOB_ID, Parameters are
// forwarded to the job as notebook_params without inspection.
type InvocationRequest struct {
	JobID      JobID                  `json:"job_id,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// UnmarshalJSON decodes numbers in Parameters as json.Number so they are
// forwarded with their original digits instead of being rounded to float64.
func (r *InvocationRequest) UnmarshalJSON(data []byte) error {
	type plain InvocationRequest
	var p plain
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return err
	}
	*r = InvocationRequest(p)
	return nil
}

// JobID is a Databricks job identifier. It decodes from either a JSON string
// or a JSON number so callers may send {"job_id": 123} or {"job_id": "123"}.
type JobID string

// UnmarshalJSON accepts strings, numbers and null.
func (j *JobID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*j = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*j = JobID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("job_id must be a string or a number: %w", err)
	}
	*j = JobID(n.String())
	return nil
}

// Credential is a bearer token. It lives for a single invocation and formats
// as a redacted placeholder so it cannot leak through logs or error strings.
type Credential string

const redacted = "[REDACTED]"

// Token returns the raw bearer token for use in the Authorization header.
func (c Credential) Token() string { return string(c) }

// String implements fmt.Stringer with a redacted value.
func (c Credential) String() string { return redacted }

// GoString keeps %#v redacted as well.
func (c Credential) GoString() string { return redacted }

// LogValue implements slog.LogValuer.
func (c Credential) LogValue() slog.Value { return slog.StringValue(redacted) }

// Response is the object returned to the invoking runtime. Body is a JSON
// document encoded as a string, matching the API Gateway proxy convention.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// SuccessBody is the JSON body returned when a run was started.
type SuccessBody struct {
	Message  string                 `json:"message"`
	RunID    string                 `json:"run_id,omitempty"`
	Response map[string]interface{} `json:"response,omitempty"`
}

// ErrorBody is the JSON body returned for every failure outcome.
type ErrorBody struct {
	Error string `json:"error"`
	Kind  Kind   `json:"kind"`
}
