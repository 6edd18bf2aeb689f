package sessionbridge_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	sessionbridge "github.com/opengovern/session-bridge"
	"github.com/opengovern/session-bridge/mock"
	"github.com/opengovern/session-bridge/store"
)

func requireClientError(t *testing.T, err error) *sessionbridge.ClientError {
	t.Helper()
	require.Error(t, err)
	var cerr *sessionbridge.ClientError
	require.ErrorAs(t, err, &cerr)
	return cerr
}

func testConfig() sessionbridge.Config {
	cfg := sessionbridge.DefaultConfig()
	cfg.RedirectDelay = 10 * time.Millisecond
	cfg.LoginRedirectDelay = 10 * time.Millisecond
	cfg.RegisterRedirectDelay = 10 * time.Millisecond
	return cfg
}

type bridgeFixture struct {
	bridge    *sessionbridge.SessionBridge
	store     *store.Memory
	transport *mock.Transport
	nav       *mock.Navigator
}

func newBridge(t *testing.T, cfg sessionbridge.Config, tr *mock.Transport, opts ...sessionbridge.Option) *bridgeFixture {
	t.Helper()
	st := store.NewMemory()
	nav := mock.NewNavigator()
	opts = append([]sessionbridge.Option{sessionbridge.WithNavigator(nav)}, opts...)
	b := sessionbridge.NewSessionBridge(cfg, st, tr, opts...)
	t.Cleanup(b.Close)
	return &bridgeFixture{bridge: b, store: st, transport: tr, nav: nav}
}

func waitNavigation(t *testing.T, nav *mock.Navigator) string {
	t.Helper()
	select {
	case target := <-nav.C():
		return target
	case <-time.After(2 * time.Second):
		t.Fatal("no navigation happened")
		return ""
	}
}
