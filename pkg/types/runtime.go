package types

// Outcome is the tagged result of one trigger invocation. Kind is KindSuccess
// for a started run; every other kind is a failure.
type Outcome struct {
	Kind Kind
	// HTTPStatus is the status returned by the job platform, or 0 when no
	// response was received.
	HTTPStatus int
	// RunID is the run_id reported by the platform on success, if any.
	RunID string
	// Response is the parsed success body.
	Response map[string]interface{}
	// Message describes a failure. For KindRemote it is the raw response body.
	Message string
}

// Success builds a success outcome.
func Success(status int, runID string, body map[string]interface{}) Outcome {
	return Outcome{Kind: KindSuccess, HTTPStatus: status, RunID: runID, Response: body}
}

// Failure builds a failure outcome. status may be 0 when no response was received.
func Failure(kind Kind, status int, message string) Outcome {
	return Outcome{Kind: kind, HTTPStatus: status, Message: message}
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool { return o.Kind == KindSuccess }

// StatusCode is the status to return to the caller. Successes and remote
// errors forward the platform's status; other failures use the kind default.
func (o Outcome) StatusCode() int {
	switch o.Kind {
	case KindSuccess, KindRemote:
		if o.HTTPStatus != 0 {
			return o.HTTPStatus
		}
	}
	return o.Kind.DefaultStatus()
}
