// sdk.go
// ------
// The sdk.go file contains the core SessionBridge struct and its constructor.
// This is the main entry point of the SDK for users.
//
// Key functionalities include:
// - Initializing the SDK with NewSessionBridge()
// - Command methods for the login, registration and chat flows (commands.go)
// - Wiring the RequestExecutor, Classifier and SessionGuard around one SessionStore
//
// The SessionBridge never renders anything; every command returns an Outcome the UI
// layer turns into a notice.
package sessionbridge

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

type SessionBridge struct {
	mu        sync.Mutex
	config    Config
	store     SessionStore
	validator Validator
	executor  *RequestExecutor
	guard     *SessionGuard
	redirects *redirector
	logger    atomic.Pointer[zerolog.Logger]
	metrics   *Metrics

	login    *Action
	register *Action
	chat     *Action

	debug atomic.Bool // log at debug level
}

// Option customizes a SessionBridge.
type Option func(*bridgeOptions)

type bridgeOptions struct {
	navigator Navigator
	validator Validator
	logger    *zerolog.Logger
	metrics   *Metrics
}

func WithNavigator(n Navigator) Option {
	return func(o *bridgeOptions) { o.navigator = n }
}

func WithValidator(v Validator) Option {
	return func(o *bridgeOptions) { o.validator = v }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *bridgeOptions) { o.logger = &l }
}

func WithMetrics(m *Metrics) Option {
	return func(o *bridgeOptions) { o.metrics = m }
}

// NewSessionBridge builds the client layer around store and transport. Zero
// fields in cfg take their DefaultConfig values.
func NewSessionBridge(cfg Config, store SessionStore, transport Transport, opts ...Option) *SessionBridge {
	o := bridgeOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	cfg = cfg.withDefaults()

	logger := zerolog.Nop()
	if o.logger != nil {
		logger = *o.logger
	}
	validator := o.validator
	if validator == nil {
		validator = requiredFields{}
	}

	sb := &SessionBridge{
		config:    cfg,
		store:     store,
		validator: validator,
		redirects: newRedirector(o.navigator),
		metrics:   o.metrics,
		login:     NewAction("login"),
		register:  NewAction("register"),
		chat:      NewAction("chat"),
	}
	sb.logger.Store(&logger)
	sb.executor = NewRequestExecutor(store, transport, ExecutorOptions{
		DefaultTimeout: cfg.RequestTimeout,
		Logger:         &logger,
		Metrics:        o.metrics,
	})
	sb.guard = NewSessionGuard(store, Classifier{Policy: cfg.LogoutPolicy}, o.navigator, GuardOptions{
		LoginPath: cfg.LoginPath,
		Delay:     cfg.RedirectDelay,
		Logger:    &logger,
		Metrics:   o.metrics,
	})
	return sb
}

// SetDebug enables or disables debug logging for the SDK. It may be called
// while commands are running.
func (sb *SessionBridge) SetDebug(enabled bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	level := zerolog.InfoLevel
	if enabled {
		level = zerolog.DebugLevel
	}
	logger := sb.logger.Load().Level(level)
	sb.logger.Store(&logger)
	sb.executor.SetLogger(logger)
	sb.guard.SetLogger(logger)
	sb.debug.Store(enabled)
}

// Debug reports whether debug logging is on.
func (sb *SessionBridge) Debug() bool {
	return sb.debug.Load()
}

func (sb *SessionBridge) log() *zerolog.Logger {
	return sb.logger.Load()
}

// Config returns the effective configuration.
func (sb *SessionBridge) Config() Config {
	return sb.config
}

// Executor exposes the underlying RequestExecutor for endpoints the bridge does
// not wrap.
func (sb *SessionBridge) Executor() *RequestExecutor {
	return sb.executor
}

// Guard exposes the SessionGuard so other guarded call sites can share it.
func (sb *SessionBridge) Guard() *SessionGuard {
	return sb.guard
}

// ChatState reports where the chat action is in its lifecycle.
func (sb *SessionBridge) ChatState() CallState {
	return sb.chat.State()
}

// Close cancels pending navigation.
func (sb *SessionBridge) Close() {
	sb.redirects.stop()
	sb.guard.Close()
}

// NewConsoleLogger returns the human-readable logger the CLI and examples use.
func NewConsoleLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func (sb *SessionBridge) debugf(format string, args ...interface{}) {
	if sb.debug.Load() {
		sb.log().Debug().Msgf(format, args...)
	}
}
