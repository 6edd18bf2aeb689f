// errors.go
// ---------
// Error taxonomy shared by the executor, the classifier and the session guard.
//
// ClientError carries everything a caller needs to render a failure: the kind, the
// HTTP status (0 when no response was received), a human-readable detail and the
// raw body. ValidationError is raised before any request is built and is never a
// ClientError.
package sessionbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	KindValidation  ErrorKind = "VALIDATION"
	KindAuthMissing ErrorKind = "AUTH_MISSING"
	KindTimeout     ErrorKind = "TIMEOUT"
	KindHTTPError   ErrorKind = "HTTP_ERROR"
	KindAuthInvalid ErrorKind = "AUTH_INVALID"
	KindNetwork     ErrorKind = "NETWORK"
	KindCanceled    ErrorKind = "CANCELED"
)

const (
	detailMissingToken = "missing_token"
	detailTimeout      = "timeout"
	detailCanceled     = "canceled"
)

var (
	ErrActionPending     = errors.New("a request for this action is already pending")
	ErrSessionTerminated = errors.New("session terminated")
	ErrNoAccessToken     = errors.New("no access_token in server response")
	ErrNoToken           = errors.New("no session token")
)

// ClientError is a classified request failure.
type ClientError struct {
	Kind    ErrorKind
	Status  int
	Detail  string
	RawBody any
	Cause   error
}

func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *ClientError) Unwrap() error { return e.Cause }

// HasStatus reports whether a response status was received.
func (e *ClientError) HasStatus() bool { return e.Status != 0 }

// ValidationError lists the reasons user input was rejected.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Reasons, " ")
}

// KindOf returns the kind of err without applying any logout policy.
func KindOf(err error) ErrorKind {
	var cerr *ClientError
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return KindValidation
	}
	return ""
}

// ExtractDetail picks the message shown for a failed response:
// body.detail, then body.message, then the raw text, then "HTTP <status>".
func ExtractDetail(parsed any, text string, status int) string {
	if m, ok := parsed.(map[string]any); ok {
		if d := detailString(m["detail"]); d != "" {
			return d
		}
		if msg, ok := m["message"].(string); ok && msg != "" {
			return msg
		}
	}
	if text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}

// detailString flattens a "detail" value. Objects with a message (the backend's
// structured 401 payload) yield that message; other non-string values are
// rendered as compact JSON.
func detailString(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case string:
		return d
	case bool:
		if !d {
			return ""
		}
	case float64:
		if d == 0 {
			return ""
		}
	case map[string]any:
		if msg, ok := d["message"].(string); ok && msg != "" {
			return msg
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func newHTTPError(status int, data []byte, parsed any) *ClientError {
	text := string(data)
	var raw any = text
	if parsed != nil {
		raw = parsed
	}
	return &ClientError{
		Kind:    KindHTTPError,
		Status:  status,
		Detail:  ExtractDetail(parsed, text, status),
		RawBody: raw,
	}
}
