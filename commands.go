package sessionbridge

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/opengovern/session-bridge/internal"
)

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Outcome is the single user-visible result of a command. Message is never empty.
type Outcome struct {
	Level    NoticeLevel
	Message  string
	Reply    string // chat only
	Redirect string // scheduled navigation target, if any
	Err      error
}

const (
	msgTimeout         = "Server is not responding (timeout)."
	msgCanceled        = "Request canceled."
	msgBusy            = "Please wait for the current request to finish."
	msgSessionEnded    = "Your session has ended. Please sign in again."
	msgBadCredentials  = "Invalid email or password."
	msgLoginFailed     = "Sign-in failed."
	msgLoginOK         = "Signed in. Redirecting…"
	msgUserExists      = "User already exists. Go to sign in."
	msgRegisterFailed  = "Registration failed."
	msgRegisterOK      = "Account created. Please sign in…"
	msgEmptyReply      = "Empty reply."
	msgEmptyMessage    = "Nothing to send."
	msgLoggedOut       = "Signed out."
	msgMissingAccess   = "No access_token in server response."
	prefixNoAccess     = "No access: "
	prefixChatError    = "Error: "
	fallbackChatDetail = "unknown error"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type chatRequest struct {
	Message string `json:"message"`
}

// SubmitLogin authenticates and stores the returned token. A 401 here means bad
// credentials, so the session guard is not consulted.
func (sb *SessionBridge) SubmitLogin(ctx context.Context, email, password string) Outcome {
	if err := sb.login.Begin(); err != nil {
		return busyOutcome(err)
	}

	email = internal.NormalizeEmail(email)
	if reasons := sb.validator.ValidateLogin(email, password); len(reasons) > 0 {
		sb.login.Fail(false)
		return validationOutcome(reasons)
	}

	body, err := sb.executor.Execute(ctx, OutgoingRequest{
		Method:   http.MethodPost,
		Endpoint: sb.config.LoginEndpoint,
		Payload:  loginRequest{Email: email, Password: password},
		Timeout:  sb.config.RequestTimeout,
	}, false)
	if err != nil {
		sb.login.Fail(false)
		sb.logFailure("login", err)
		return errorOutcome(loginMessage(err), err)
	}

	token := stringField(body, "access_token")
	if token == "" {
		sb.login.Fail(false)
		sb.logFailure("login", ErrNoAccessToken)
		return errorOutcome(msgMissingAccess, ErrNoAccessToken)
	}

	sb.store.Set(token)
	sb.login.Succeed()
	sb.chat.Reset()
	sb.debugf("login ok, redirecting to %s", sb.config.MainPath)
	sb.redirects.after(sb.config.LoginRedirectDelay, sb.config.MainPath)
	return Outcome{Level: NoticeSuccess, Message: msgLoginOK, Redirect: sb.config.MainPath}
}

// SubmitRegister creates an account. It never touches the session store.
func (sb *SessionBridge) SubmitRegister(ctx context.Context, name, email, password string) Outcome {
	if err := sb.register.Begin(); err != nil {
		return busyOutcome(err)
	}

	name = internal.NormalizeSpaces(name)
	email = internal.NormalizeEmail(email)
	if reasons := sb.validator.ValidateRegistration(name, email, password); len(reasons) > 0 {
		sb.register.Fail(false)
		return validationOutcome(reasons)
	}

	_, err := sb.executor.Execute(ctx, OutgoingRequest{
		Method:   http.MethodPost,
		Endpoint: sb.config.RegisterEndpoint,
		Payload:  registerRequest{Name: name, Email: email, Password: password},
		Timeout:  sb.config.RequestTimeout,
	}, false)
	if err != nil {
		sb.register.Fail(false)
		sb.logFailure("register", err)
		return errorOutcome(registerMessage(err), err)
	}

	sb.register.Succeed()
	sb.debugf("registration ok, redirecting to %s", sb.config.LoginPath)
	sb.redirects.after(sb.config.RegisterRedirectDelay, sb.config.LoginPath)
	return Outcome{Level: NoticeSuccess, Message: msgRegisterOK, Redirect: sb.config.LoginPath}
}

// SendChatMessage sends one chat turn. Errors go through the session guard, which
// may end the session.
func (sb *SessionBridge) SendChatMessage(ctx context.Context, text string) Outcome {
	msg := strings.TrimSpace(text)
	if msg == "" {
		return Outcome{Level: NoticeInfo, Message: msgEmptyMessage}
	}
	if err := sb.chat.Begin(); err != nil {
		return busyOutcome(err)
	}
	if reasons := sb.validator.ValidateChatMessage(msg); len(reasons) > 0 {
		sb.chat.Fail(false)
		return validationOutcome(reasons)
	}

	body, err := sb.executor.Execute(ctx, OutgoingRequest{
		Method:   http.MethodPost,
		Endpoint: sb.config.ChatEndpoint,
		Payload:  chatRequest{Message: msg},
		Timeout:  sb.config.ChatTimeout,
	}, true)
	if err != nil {
		sb.logFailure("chat", err)
		decision := sb.guard.Handle(err)
		detail := displayDetail(err)
		if decision.ShouldRedirect {
			sb.chat.Fail(true)
			return Outcome{Level: NoticeError, Message: prefixNoAccess + detail, Redirect: decision.RedirectTarget, Err: err}
		}
		sb.chat.Fail(false)
		var cerr *ClientError
		if errors.As(err, &cerr) && cerr.Status == http.StatusUnauthorized {
			return errorOutcome(prefixNoAccess+detail, err)
		}
		return errorOutcome(prefixChatError+detail, err)
	}

	reply := stringField(body, "reply")
	if reply == "" {
		reply = msgEmptyReply
	}
	sb.chat.Succeed()
	return Outcome{Level: NoticeInfo, Message: reply, Reply: reply}
}

// Logout asks the server to drop its refresh session, then clears the local
// session whatever the server said and navigates to the login surface.
func (sb *SessionBridge) Logout(ctx context.Context) Outcome {
	_, err := sb.executor.Execute(ctx, OutgoingRequest{
		Method:   http.MethodPost,
		Endpoint: sb.config.LogoutEndpoint,
		Timeout:  sb.config.RequestTimeout,
	}, false)
	if err != nil {
		sb.log().Warn().Err(err).Msg("server logout failed, clearing local session anyway")
	}

	sb.store.Clear()
	sb.chat.Terminate()
	sb.redirects.after(0, sb.config.LoginPath)
	return Outcome{Level: NoticeSuccess, Message: msgLoggedOut, Redirect: sb.config.LoginPath, Err: err}
}

// EnsureSession is the chat surface entry check: without a token the user is sent
// to the login surface straight away.
func (sb *SessionBridge) EnsureSession() Decision {
	if tok, ok := sb.store.Get(); ok && tok != "" {
		return Decision{}
	}
	sb.chat.Terminate()
	sb.redirects.after(0, sb.config.LoginPath)
	return Decision{ShouldRedirect: true, RedirectTarget: sb.config.LoginPath, Kind: KindAuthMissing}
}

func (sb *SessionBridge) logFailure(action string, err error) {
	ev := sb.log().Error().Err(err).Str("action", action)
	var cerr *ClientError
	if errors.As(err, &cerr) {
		ev = ev.Str("kind", string(cerr.Kind)).Int("status", cerr.Status).Str("detail", cerr.Detail)
	}
	ev.Msg("request failed")
}

func loginMessage(err error) string {
	var cerr *ClientError
	if !errors.As(err, &cerr) {
		return msgLoginFailed
	}
	switch {
	case cerr.Kind == KindTimeout:
		return msgTimeout
	case cerr.Kind == KindCanceled:
		return msgCanceled
	case cerr.Status == http.StatusUnauthorized:
		return msgBadCredentials
	case cerr.Detail != "":
		return cerr.Detail
	}
	return msgLoginFailed
}

func registerMessage(err error) string {
	var cerr *ClientError
	if !errors.As(err, &cerr) {
		return msgRegisterFailed
	}
	switch {
	case cerr.Kind == KindTimeout:
		return msgTimeout
	case cerr.Kind == KindCanceled:
		return msgCanceled
	case cerr.Status == http.StatusConflict:
		return msgUserExists
	case cerr.Detail != "":
		return cerr.Detail
	}
	return msgRegisterFailed
}

func displayDetail(err error) string {
	var cerr *ClientError
	if !errors.As(err, &cerr) {
		return err.Error()
	}
	if cerr.Detail != "" {
		return cerr.Detail
	}
	return fallbackChatDetail
}

func busyOutcome(err error) Outcome {
	if errors.Is(err, ErrSessionTerminated) {
		return errorOutcome(msgSessionEnded, err)
	}
	return errorOutcome(msgBusy, err)
}

func validationOutcome(reasons []string) Outcome {
	verr := &ValidationError{Reasons: reasons}
	return errorOutcome(verr.Error(), verr)
}

func errorOutcome(msg string, err error) Outcome {
	return Outcome{Level: NoticeError, Message: msg, Err: err}
}

// requiredFields is the fallback Validator: it only rejects empty input.
type requiredFields struct{}

func (requiredFields) ValidateLogin(email, password string) []string {
	if email == "" || password == "" {
		return []string{"Enter email and password."}
	}
	return nil
}

func (requiredFields) ValidateRegistration(name, email, password string) []string {
	if name == "" || email == "" || password == "" {
		return []string{"Enter name, email and password."}
	}
	return nil
}

func (requiredFields) ValidateChatMessage(string) []string {
	return nil
}
