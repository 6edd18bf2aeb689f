// session_guard.go
// ----------------
// SessionGuard consumes errors from guarded endpoints (chat) and decides whether
// the session is over. When the classifier reports AUTH_INVALID it clears the
// SessionStore and schedules navigation to the login surface with the failure
// reason in the query string. Every other error is left to the caller to display.
package sessionbridge

import (
	"errors"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Decision is what the guard did with an error.
type Decision struct {
	ShouldRedirect bool
	RedirectTarget string
	Kind           ErrorKind
}

type GuardOptions struct {
	LoginPath string
	Delay     time.Duration
	Logger    *zerolog.Logger
	Metrics   *Metrics
}

type SessionGuard struct {
	store      SessionStore
	classifier Classifier
	loginPath  string
	delay      time.Duration
	logger     atomic.Pointer[zerolog.Logger]
	metrics    *Metrics
	redirects  *redirector
}

func NewSessionGuard(store SessionStore, classifier Classifier, navigator Navigator, opts GuardOptions) *SessionGuard {
	g := &SessionGuard{
		store:      store,
		classifier: classifier,
		loginPath:  opts.LoginPath,
		delay:      opts.Delay,
		metrics:    opts.Metrics,
		redirects:  newRedirector(navigator),
	}
	if g.loginPath == "" {
		g.loginPath = DefaultConfig().LoginPath
	}
	if g.delay < 0 {
		g.delay = DefaultRedirectDelay
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	g.SetLogger(logger)
	return g
}

// Handle clears the session and schedules a redirect when err is an
// authentication failure under the configured policy.
func (g *SessionGuard) Handle(err error) Decision {
	var cerr *ClientError
	if !errors.As(err, &cerr) {
		return Decision{Kind: KindOf(err)}
	}

	kind := g.classifier.Classify(cerr)
	if kind != KindAuthInvalid {
		return Decision{Kind: kind}
	}

	g.store.Clear()
	g.metrics.observeTermination()
	target := LoginRedirectTarget(g.loginPath, cerr.Status)
	g.logger.Load().Warn().
		Str("kind", string(cerr.Kind)).
		Int("status", cerr.Status).
		Str("detail", cerr.Detail).
		Str("target", target).
		Msg("session terminated")
	g.redirects.after(g.delay, target)

	return Decision{ShouldRedirect: true, RedirectTarget: target, Kind: kind}
}

// SetLogger replaces the logger. Safe to call concurrently with Handle.
func (g *SessionGuard) SetLogger(l zerolog.Logger) {
	g.logger.Store(&l)
}

// PendingRedirects reports how many scheduled navigations have not fired yet.
func (g *SessionGuard) PendingRedirects() int {
	return g.redirects.pending()
}

// Close cancels navigation that has not fired yet.
func (g *SessionGuard) Close() {
	g.redirects.stop()
}

// LoginRedirectTarget appends reason=<status> to the login surface path.
func LoginRedirectTarget(loginPath string, status int) string {
	reason := strconv.Itoa(status)
	u, err := url.Parse(loginPath)
	if err != nil {
		return loginPath + "?reason=" + url.QueryEscape(reason)
	}
	q := u.Query()
	q.Set("reason", reason)
	u.RawQuery = q.Encode()
	return u.String()
}

// redirector schedules delayed navigation and can cancel what has not fired.
// Timers drop out of the pending set once they fire.
type redirector struct {
	nav    Navigator
	mu     sync.Mutex
	timers map[*time.Timer]struct{}
}

func newRedirector(nav Navigator) *redirector {
	return &redirector{nav: nav, timers: make(map[*time.Timer]struct{})}
}

func (r *redirector) after(d time.Duration, target string) {
	if r.nav == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		r.mu.Lock()
		delete(r.timers, t)
		r.mu.Unlock()
		r.nav.Navigate(target)
	})
	r.timers[t] = struct{}{}
}

// pending reports how many navigations are scheduled and not yet fired.
func (r *redirector) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

func (r *redirector) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for t := range r.timers {
		t.Stop()
	}
	r.timers = make(map[*time.Timer]struct{})
}
