package types

import "time"

// Alert describes a failed invocation for notification sinks. Message is the
// caller-facing text, never the credential or internal error detail.
type Alert struct {
	InvocationID string    `json:"invocationId"`
	JobID        string    `json:"jobId,omitempty"`
	Kind         Kind      `json:"kind"`
	Status       int       `json:"status"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
}
