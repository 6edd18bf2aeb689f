package sessionbridge_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sessionbridge "github.com/opengovern/session-bridge"
	"github.com/opengovern/session-bridge/mock"
	"github.com/opengovern/session-bridge/validation"
)

func backend(routes map[string]*sessionbridge.NormalizedResponse) *mock.Transport {
	return &mock.Transport{Responder: mock.Routes(routes)}
}

func TestRoundTrip_LoginThenChat(t *testing.T) {
	tr := backend(map[string]*sessionbridge.NormalizedResponse{
		"/login": mock.Response(http.StatusOK, `{"access_token":"T","token_type":"bearer"}`),
		"/chat":  mock.Response(http.StatusOK, `{"reply":"hello there"}`),
	})
	f := newBridge(t, testConfig(), tr)

	out := f.bridge.SubmitLogin(context.Background(), "  User@Example.COM ", "secret")
	require.Equal(t, sessionbridge.NoticeSuccess, out.Level, out.Message)
	assert.Equal(t, "mainpage.html", out.Redirect)
	assert.Equal(t, "mainpage.html", waitNavigation(t, f.nav))

	tok, ok := f.store.Get()
	require.True(t, ok)
	assert.Equal(t, "T", tok)

	var login map[string]string
	require.NoError(t, json.Unmarshal(tr.Requests()[0].Body, &login))
	assert.Equal(t, "user@example.com", login["email"])
	assert.Empty(t, tr.Requests()[0].Headers.Get("Authorization"))

	out = f.bridge.SendChatMessage(context.Background(), "  hi  ")
	require.NoError(t, out.Err)
	assert.Equal(t, "hello there", out.Reply)

	chat := tr.LastRequest()
	assert.Equal(t, "Bearer T", chat.Headers.Get("Authorization"))
	assert.JSONEq(t, `{"message":"hi"}`, string(chat.Body))
	assert.Equal(t, sessionbridge.StateSuccess, f.bridge.ChatState())
}

func TestLogin_BadCredentialsDoNotTouchSession(t *testing.T) {
	tr := backend(map[string]*sessionbridge.NormalizedResponse{
		"/login": mock.Response(http.StatusUnauthorized, `{"detail":"Invalid email or password"}`),
	})
	f := newBridge(t, testConfig(), tr)
	f.store.Set("previous")

	out := f.bridge.SubmitLogin(context.Background(), "a@b.co", "wrong")

	assert.Equal(t, sessionbridge.NoticeError, out.Level)
	assert.Equal(t, "Invalid email or password.", out.Message)
	assert.Empty(t, out.Redirect)
	tok, ok := f.store.Get()
	assert.True(t, ok, "a 401 on login is not a session failure")
	assert.Equal(t, "previous", tok)
	assert.Empty(t, f.nav.Targets())
}

func TestLogin_MissingAccessToken(t *testing.T) {
	tr := backend(map[string]*sessionbridge.NormalizedResponse{
		"/login": mock.Response(http.StatusOK, `{"token_type":"bearer"}`),
	})
	f := newBridge(t, testConfig(), tr)

	out := f.bridge.SubmitLogin(context.Background(), "a@b.co", "pw")

	assert.Equal(t, sessionbridge.NoticeError, out.Level)
	assert.Equal(t, "No access_token in server response.", out.Message)
	assert.ErrorIs(t, out.Err, sessionbridge.ErrNoAccessToken)
	_, ok := f.store.Get()
	assert.False(t, ok)
}

func TestLogin_ValidationNeverSends(t *testing.T) {
	tr := &mock.Transport{}
	f := newBridge(t, testConfig(), tr)

	out := f.bridge.SubmitLogin(context.Background(), "   ", "pw")

	assert.Equal(t, sessionbridge.NoticeError, out.Level)
	assert.Equal(t, "Enter email and password.", out.Message)
	assert.Equal(t, sessionbridge.KindValidation, sessionbridge.KindOf(out.Err))
	assert.Equal(t, 0, tr.Calls())
}

func TestLogin_Timeout(t *testing.T) {
	cfg := testConfig()
	cfg.RequestTimeout = 30 * time.Millisecond
	f := newBridge(t, cfg, &mock.Transport{Hang: true})

	out := f.bridge.SubmitLogin(context.Background(), "a@b.co", "pw")

	assert.Equal(t, "Server is not responding (timeout).", out.Message)
	assert.Equal(t, sessionbridge.KindTimeout, sessionbridge.KindOf(out.Err))
}

func TestRegister_Conflict(t *testing.T) {
	tr := backend(map[string]*sessionbridge.NormalizedResponse{
		"/register": mock.Response(http.StatusConflict, `{"detail":"User already exists"}`),
	})
	f := newBridge(t, testConfig(), tr, sessionbridge.WithValidator(validation.Default()))
	f.store.Set("keep")

	conflict := f.bridge.SubmitRegister(context.Background(), "Anna  Smith", "anna@example.com", "password1")

	assert.Equal(t, sessionbridge.NoticeError, conflict.Level)
	assert.Equal(t, "User already exists. Go to sign in.", conflict.Message)
	tok, ok := f.store.Get()
	assert.True(t, ok)
	assert.Equal(t, "keep", tok)

	var sent map[string]string
	require.NoError(t, json.Unmarshal(tr.LastRequest().Body, &sent))
	assert.Equal(t, "Anna Smith", sent["name"])

	generic := newBridge(t, testConfig(), &mock.Transport{Responder: mock.Respond(http.StatusInternalServerError, "")})
	other := generic.bridge.SubmitRegister(context.Background(), "Anna", "anna@example.com", "password1")
	assert.Equal(t, "HTTP 500", other.Message)
	assert.NotEqual(t, conflict.Message, other.Message)
}

func TestRegister_SuccessNavigatesToLogin(t *testing.T) {
	tr := backend(map[string]*sessionbridge.NormalizedResponse{
		"/register": mock.Response(http.StatusOK, ``),
	})
	f := newBridge(t, testConfig(), tr)

	out := f.bridge.SubmitRegister(context.Background(), "Anna", "anna@example.com", "password1")

	assert.Equal(t, sessionbridge.NoticeSuccess, out.Level)
	assert.Equal(t, "login.html", waitNavigation(t, f.nav))
	_, ok := f.store.Get()
	assert.False(t, ok)
}

func TestRegister_ValidationReasonsJoined(t *testing.T) {
	tr := &mock.Transport{}
	f := newBridge(t, testConfig(), tr, sessionbridge.WithValidator(validation.Default()))

	out := f.bridge.SubmitRegister(context.Background(), "A", "bad", "short")

	assert.Equal(t, sessionbridge.NoticeError, out.Level)
	assert.Contains(t, out.Message, "Name:")
	assert.Contains(t, out.Message, "Email:")
	assert.Contains(t, out.Message, "Password:")
	assert.Equal(t, 0, tr.Calls())
}

func TestChat_401EndsSession(t *testing.T) {
	for _, detail := range []string{"rate limited", "token expired"} {
		t.Run(detail, func(t *testing.T) {
			body, _ := json.Marshal(map[string]string{"detail": detail})
			tr := backend(map[string]*sessionbridge.NormalizedResponse{
				"/chat": mock.Response(http.StatusUnauthorized, string(body)),
			})
			f := newBridge(t, testConfig(), tr)
			f.store.Set("T")

			out := f.bridge.SendChatMessage(context.Background(), "hello")

			assert.Equal(t, sessionbridge.NoticeError, out.Level)
			assert.Equal(t, "No access: "+detail, out.Message)
			assert.Equal(t, "login.html?reason=401", out.Redirect)
			_, ok := f.store.Get()
			assert.False(t, ok)
			assert.Equal(t, "login.html?reason=401", waitNavigation(t, f.nav))
			assert.Equal(t, sessionbridge.StateSessionTerminated, f.bridge.ChatState())

			again := f.bridge.SendChatMessage(context.Background(), "still there?")
			assert.ErrorIs(t, again.Err, sessionbridge.ErrSessionTerminated)
			assert.Equal(t, 1, tr.Calls())
		})
	}
}

func TestChat_KeywordPolicyKeepsSessionOnUnrelated401(t *testing.T) {
	cfg := testConfig()
	cfg.LogoutPolicy = sessionbridge.PolicyKeyword
	tr := backend(map[string]*sessionbridge.NormalizedResponse{
		"/chat": mock.Response(http.StatusUnauthorized, `{"detail":"rate limited"}`),
	})
	f := newBridge(t, cfg, tr)
	f.store.Set("T")

	out := f.bridge.SendChatMessage(context.Background(), "hello")

	assert.Equal(t, "No access: rate limited", out.Message)
	assert.Empty(t, out.Redirect)
	_, ok := f.store.Get()
	assert.True(t, ok)
	assert.Equal(t, sessionbridge.StateFailedRecoverable, f.bridge.ChatState())
}

func TestChat_NoTokenRedirectsWithoutNetwork(t *testing.T) {
	tr := &mock.Transport{}
	f := newBridge(t, testConfig(), tr)

	out := f.bridge.SendChatMessage(context.Background(), "hello")

	assert.Equal(t, "No access: missing_token", out.Message)
	assert.Equal(t, "login.html?reason=401", out.Redirect)
	assert.Equal(t, 0, tr.Calls())
}

func TestChat_ServerErrorIsRecoverable(t *testing.T) {
	tr := backend(map[string]*sessionbridge.NormalizedResponse{
		"/chat": mock.Response(http.StatusBadGateway, `{"detail":"LLM error: upstream"}`),
	})
	f := newBridge(t, testConfig(), tr)
	f.store.Set("T")

	out := f.bridge.SendChatMessage(context.Background(), "hello")

	assert.Equal(t, "Error: LLM error: upstream", out.Message)
	assert.Empty(t, out.Redirect)
	_, ok := f.store.Get()
	assert.True(t, ok)
	assert.Equal(t, sessionbridge.StateFailedRecoverable, f.bridge.ChatState())
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, f.nav.Targets())
}

func TestChat_EmptyReplyAndEmptyMessage(t *testing.T) {
	tr := backend(map[string]*sessionbridge.NormalizedResponse{
		"/chat": mock.Response(http.StatusOK, `{}`),
	})
	f := newBridge(t, testConfig(), tr)
	f.store.Set("T")

	out := f.bridge.SendChatMessage(context.Background(), "   ")
	assert.Equal(t, "Nothing to send.", out.Message)
	assert.Equal(t, 0, tr.Calls())

	out = f.bridge.SendChatMessage(context.Background(), "hi")
	assert.Equal(t, "Empty reply.", out.Reply)
}

func TestChat_OneOutstandingRequest(t *testing.T) {
	release := make(chan struct{})
	tr := &mock.Transport{Release: release, Responder: mock.Respond(http.StatusOK, `{"reply":"ok"}`)}
	f := newBridge(t, testConfig(), tr)
	f.store.Set("T")

	var wg sync.WaitGroup
	wg.Add(1)
	var first sessionbridge.Outcome
	go func() {
		defer wg.Done()
		first = f.bridge.SendChatMessage(context.Background(), "one")
	}()
	require.Eventually(t, func() bool { return tr.Calls() == 1 }, time.Second, 5*time.Millisecond)

	second := f.bridge.SendChatMessage(context.Background(), "two")
	assert.ErrorIs(t, second.Err, sessionbridge.ErrActionPending)

	close(release)
	wg.Wait()
	assert.Equal(t, "ok", first.Reply)
	assert.Equal(t, 1, tr.Calls())
}

func TestLogout_ClearsEvenWhenServerFails(t *testing.T) {
	tr := &mock.Transport{Responder: mock.Respond(http.StatusInternalServerError, "")}
	f := newBridge(t, testConfig(), tr)
	f.store.Set("T")

	out := f.bridge.Logout(context.Background())

	assert.Equal(t, sessionbridge.NoticeSuccess, out.Level)
	assert.Error(t, out.Err)
	_, ok := f.store.Get()
	assert.False(t, ok)
	assert.Equal(t, "login.html", waitNavigation(t, f.nav))
	assert.Equal(t, "/logout", tr.LastRequest().Endpoint)
}

func TestEnsureSession(t *testing.T) {
	f := newBridge(t, testConfig(), &mock.Transport{})

	d := f.bridge.EnsureSession()
	assert.True(t, d.ShouldRedirect)
	assert.Equal(t, "login.html", d.RedirectTarget)
	assert.Equal(t, "login.html", waitNavigation(t, f.nav))

	f.store.Set("T")
	assert.False(t, f.bridge.EnsureSession().ShouldRedirect)
}

func TestSetDebug_LogsRequests(t *testing.T) {
	var buf bytes.Buffer
	tr := backend(map[string]*sessionbridge.NormalizedResponse{
		"/chat": mock.Response(http.StatusOK, `{"reply":"ok"}`),
	})
	f := newBridge(t, testConfig(), tr, sessionbridge.WithLogger(zerolog.New(&buf).Level(zerolog.InfoLevel)))
	f.store.Set("a-long-token-value-0123456789")

	f.bridge.SendChatMessage(context.Background(), "quiet")
	assert.Empty(t, buf.String())

	f.bridge.SetDebug(true)
	f.bridge.SendChatMessage(context.Background(), "loud")
	assert.Contains(t, buf.String(), "sending request")
	assert.Contains(t, buf.String(), "request_id")
	assert.NotContains(t, buf.String(), "a-long-token-value-0123456789")
}

func TestSetDebug_WhileRequestsRun(t *testing.T) {
	tr := backend(map[string]*sessionbridge.NormalizedResponse{
		"/chat": mock.Response(http.StatusUnauthorized, `{"detail":"rate limited"}`),
	})
	f := newBridge(t, testConfig(), tr, sessionbridge.WithLogger(zerolog.New(io.Discard)))
	f.store.Set("T")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			f.bridge.SetDebug(i%2 == 0)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_, _ = f.bridge.Executor().Execute(context.Background(), chatRequest(time.Second), true)
			f.bridge.Guard().Handle(&sessionbridge.ClientError{Kind: sessionbridge.KindHTTPError, Status: http.StatusUnauthorized, Detail: "expired"})
		}
	}()
	wg.Wait()

	f.bridge.SetDebug(true)
	assert.True(t, f.bridge.Debug())
	f.bridge.SetDebug(false)
	assert.False(t, f.bridge.Debug())
}
