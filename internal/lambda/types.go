// Package lambda provides shared types and initialization for the trigger Lambda.
package lambda

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/dwsmith1983/jobtrigger/internal/config"
	"github.com/dwsmith1983/jobtrigger/pkg/types"
)

// DecodeEvent accepts either a direct invocation payload or an API Gateway
// proxy request whose body carries one. An empty or null event is an empty
// request. Decoding failures are reported as *config.Error.
func DecodeEvent(raw json.RawMessage) (types.InvocationRequest, error) {
	var req types.InvocationRequest
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return req, nil
	}

	var proxy events.APIGatewayProxyRequest
	if err := json.Unmarshal(trimmed, &proxy); err == nil && isProxyRequest(proxy) {
		body := []byte(proxy.Body)
		if proxy.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(proxy.Body)
			if err != nil {
				return req, &config.Error{Reason: fmt.Sprintf("request body is not valid base64: %v", err)}
			}
			body = decoded
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return req, nil
		}
		trimmed = body
	}

	if err := json.Unmarshal(trimmed, &req); err != nil {
		return types.InvocationRequest{}, &config.Error{Reason: fmt.Sprintf("invalid request payload: %v", err)}
	}
	return req, nil
}

func isProxyRequest(p events.APIGatewayProxyRequest) bool {
	return p.HTTPMethod != "" || p.RequestContext.RequestID != ""
}
