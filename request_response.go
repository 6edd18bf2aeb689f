package sessionbridge

import (
	"encoding/json"
	"net/http"
	"time"
)

// OutgoingRequest is what a caller asks the RequestExecutor to send.
type OutgoingRequest struct {
	Method   string
	Endpoint string
	Headers  http.Header
	Payload  any
	Timeout  time.Duration
}

// NormalizedRequest is the encoded form handed to a Transport.
type NormalizedRequest struct {
	Method   string
	Endpoint string
	Headers  http.Header
	Body     []byte
}

type NormalizedResponse struct {
	StatusCode int
	Headers    http.Header
	Data       []byte
}

// ParseBody decodes a response body as JSON. Empty or malformed bodies yield nil.
func ParseBody(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	return v
}

// stringField returns body[key] when body is a JSON object and the value is a string.
func stringField(body any, key string) string {
	m, ok := body.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := m[key].(string)
	return s
}
