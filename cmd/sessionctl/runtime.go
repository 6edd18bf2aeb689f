package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	sessionbridge "github.com/opengovern/session-bridge"
	"github.com/opengovern/session-bridge/adapters"
	"github.com/opengovern/session-bridge/store"
	"github.com/opengovern/session-bridge/validation"
)

// navigationGrace is added to the longest configured delay while waiting for a
// scheduled navigation before the process exits.
const navigationGrace = time.Second

// runtime is everything one sessionctl invocation needs.
type runtime struct {
	cfg      *cliConfig
	logger   zerolog.Logger
	store    sessionbridge.SessionStore
	bridge   *sessionbridge.SessionBridge
	nav      *printNavigator
	registry *prometheus.Registry
	closers  []func() error
	out      io.Writer
}

// newRuntime loads configuration from the command's flags and builds the bridge.
// The caller must call close.
func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:    cfg,
		logger: sessionbridge.NewConsoleLogger(cfg.Debug),
		out:    &lockedWriter{w: cmd.OutOrStdout()},
	}
	rt.nav = newPrintNavigator(rt.out)

	st, err := rt.openStore()
	if err != nil {
		return nil, err
	}
	rt.store = st

	opts := []sessionbridge.Option{
		sessionbridge.WithNavigator(rt.nav),
		sessionbridge.WithValidator(validation.Default()),
		sessionbridge.WithLogger(rt.logger),
	}
	if cfg.Metrics {
		rt.registry = prometheus.NewRegistry()
		opts = append(opts, sessionbridge.WithMetrics(sessionbridge.NewMetrics(rt.registry)))
	}

	rt.bridge = sessionbridge.NewSessionBridge(cfg.Config, st, adapters.NewHTTPAdapter(cfg.BaseURL), opts...)
	rt.bridge.SetDebug(cfg.Debug)
	return rt, nil
}

func (rt *runtime) openStore() (sessionbridge.SessionStore, error) {
	switch rt.cfg.Store {
	case storeMemory:
		return store.NewMemory(), nil
	case storeRedis:
		client := redis.NewClient(&redis.Options{Addr: rt.cfg.RedisAddr})
		rt.closers = append(rt.closers, client.Close)
		opts := []store.RedisOption{store.WithRedisLogger(rt.logger)}
		if rt.cfg.RedisKey != "" {
			opts = append(opts, store.WithRedisKey(rt.cfg.RedisKey))
		}
		return store.NewRedis(client, opts...), nil
	default:
		opts := []store.FileOption{store.WithFileLogger(rt.logger)}
		if raw := os.Getenv(EnvSecretKey); raw != "" {
			key, err := store.ParseSecretKey(raw)
			if err != nil {
				return nil, err
			}
			opts = append(opts, store.WithSecretKey(key))
		}
		fs := store.NewFile(rt.cfg.SessionFile, opts...)
		rt.logger.Debug().Str("path", fs.Path()).Msg("using session file")
		return fs, nil
	}
}

// finish prints an outcome and waits for any navigation it scheduled. Error
// outcomes are returned so the process exits non-zero.
func (rt *runtime) finish(out sessionbridge.Outcome) error {
	rt.report(out)
	if out.Level == sessionbridge.NoticeError {
		return out.Err
	}
	return nil
}

func (rt *runtime) report(out sessionbridge.Outcome) {
	fmt.Fprintf(rt.out, "[%s] %s\n", out.Level, out.Message)
	if out.Redirect != "" {
		rt.nav.wait(rt.longestDelay() + navigationGrace)
	}
}

func (rt *runtime) longestDelay() time.Duration {
	c := rt.bridge.Config()
	d := c.RedirectDelay
	for _, v := range []time.Duration{c.LoginRedirectDelay, c.RegisterRedirectDelay} {
		if v > d {
			d = v
		}
	}
	return d
}

func (rt *runtime) close() {
	rt.bridge.Close()
	for _, c := range rt.closers {
		if err := c(); err != nil {
			rt.logger.Warn().Err(err).Msg("close")
		}
	}
	if rt.registry != nil {
		if err := dumpMetrics(os.Stderr, rt.registry); err != nil {
			rt.logger.Warn().Err(err).Msg("write metrics")
		}
	}
}

func dumpMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// lockedWriter serializes writes from command code and navigation timers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// printNavigator stands in for page navigation: it prints the target. out must
// be safe for concurrent use.
type printNavigator struct {
	out  io.Writer
	done chan string
}

func newPrintNavigator(out io.Writer) *printNavigator {
	return &printNavigator{out: out, done: make(chan string, 4)}
}

func (p *printNavigator) Navigate(target string) {
	fmt.Fprintf(p.out, "-> %s\n", target)
	select {
	case p.done <- target:
	default:
	}
}

func (p *printNavigator) wait(limit time.Duration) {
	select {
	case <-p.done:
	case <-time.After(limit):
	}
}
