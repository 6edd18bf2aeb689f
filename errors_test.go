package sessionbridge_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	sessionbridge "github.com/opengovern/session-bridge"
)

func TestExtractDetail_Precedence(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"detail wins", `{"detail":"a","message":"ignored"}`, 400, "a"},
		{"message when no detail", `{"message":"b"}`, 400, "b"},
		{"plain text", `c`, 400, "c"},
		{"empty body", ``, 500, "HTTP 500"},
		{"empty detail falls through", `{"detail":"","message":"m"}`, 400, "m"},
		{"object without known keys uses raw text", `{"foo":1}`, 418, `{"foo":1}`},
		{"structured detail uses its message", `{"detail":{"code":"token_expired","message":"Token is expired"}}`, 401, "Token is expired"},
		{"list detail rendered as json", `{"detail":[{"loc":"email"}]}`, 422, `[{"loc":"email"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := sessionbridge.ParseBody([]byte(tt.body))
			assert.Equal(t, tt.want, sessionbridge.ExtractDetail(parsed, tt.body, tt.status))
		})
	}
}

func TestParseBody(t *testing.T) {
	assert.Nil(t, sessionbridge.ParseBody(nil))
	assert.Nil(t, sessionbridge.ParseBody([]byte("")))
	assert.Nil(t, sessionbridge.ParseBody([]byte("<html>")))
	assert.Nil(t, sessionbridge.ParseBody([]byte("null")))
	assert.Equal(t, map[string]any{"reply": "hi"}, sessionbridge.ParseBody([]byte(`{"reply":"hi"}`)))
}

func TestClientError(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := &sessionbridge.ClientError{Kind: sessionbridge.KindNetwork, Detail: cause.Error(), Cause: cause}
	assert.Equal(t, "NETWORK: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.False(t, err.HasStatus())

	httpErr := &sessionbridge.ClientError{Kind: sessionbridge.KindHTTPError, Status: 409, Detail: "User already exists"}
	assert.Equal(t, "HTTP_ERROR (409): User already exists", httpErr.Error())
	assert.Equal(t, sessionbridge.KindHTTPError, sessionbridge.KindOf(httpErr))

	verr := &sessionbridge.ValidationError{Reasons: []string{"Name: bad.", "Email: bad."}}
	assert.Equal(t, "Name: bad. Email: bad.", verr.Error())
	assert.Equal(t, sessionbridge.KindValidation, sessionbridge.KindOf(verr))
	assert.Equal(t, sessionbridge.ErrorKind(""), sessionbridge.KindOf(errors.New("other")))
}
