// config.go
// ----------
// This file defines the Config structure, which controls endpoint paths, request
// deadlines, the 401 logout policy and the navigation targets/delays used by
// SessionBridge and SessionGuard.
//
// The koanf tags let the CLI load the same struct from YAML and flags.
package sessionbridge

import (
	"net/url"
	"time"

	"github.com/samber/oops"
)

const (
	DefaultRequestTimeout        = 15 * time.Second
	DefaultChatTimeout           = 60 * time.Second
	DefaultRedirectDelay         = 400 * time.Millisecond
	DefaultLoginRedirectDelay    = 300 * time.Millisecond
	DefaultRegisterRedirectDelay = 400 * time.Millisecond
)

// Config allows customization of endpoints, deadlines and navigation.
type Config struct {
	BaseURL string `koanf:"base_url"`

	LoginEndpoint    string `koanf:"login_endpoint"`
	RegisterEndpoint string `koanf:"register_endpoint"`
	ChatEndpoint     string `koanf:"chat_endpoint"`
	LogoutEndpoint   string `koanf:"logout_endpoint"`

	RequestTimeout time.Duration `koanf:"request_timeout"` // login, register, logout
	ChatTimeout    time.Duration `koanf:"chat_timeout"`

	LogoutPolicy LogoutPolicy `koanf:"logout_policy"`

	LoginPath             string        `koanf:"login_path"` // login surface
	MainPath              string        `koanf:"main_path"`  // surface shown after login
	RedirectDelay         time.Duration `koanf:"redirect_delay"`
	LoginRedirectDelay    time.Duration `koanf:"login_redirect_delay"`
	RegisterRedirectDelay time.Duration `koanf:"register_redirect_delay"`
}

// DefaultConfig mirrors the values the web client shipped with.
func DefaultConfig() Config {
	return Config{
		BaseURL:               "http://127.0.0.1:8000",
		LoginEndpoint:         "/login",
		RegisterEndpoint:      "/register",
		ChatEndpoint:          "/chat",
		LogoutEndpoint:        "/logout",
		RequestTimeout:        DefaultRequestTimeout,
		ChatTimeout:           DefaultChatTimeout,
		LogoutPolicy:          PolicyStrict,
		LoginPath:             "login.html",
		MainPath:              "mainpage.html",
		RedirectDelay:         DefaultRedirectDelay,
		LoginRedirectDelay:    DefaultLoginRedirectDelay,
		RegisterRedirectDelay: DefaultRegisterRedirectDelay,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.LoginEndpoint == "" {
		c.LoginEndpoint = d.LoginEndpoint
	}
	if c.RegisterEndpoint == "" {
		c.RegisterEndpoint = d.RegisterEndpoint
	}
	if c.ChatEndpoint == "" {
		c.ChatEndpoint = d.ChatEndpoint
	}
	if c.LogoutEndpoint == "" {
		c.LogoutEndpoint = d.LogoutEndpoint
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.ChatTimeout <= 0 {
		c.ChatTimeout = d.ChatTimeout
	}
	if c.LogoutPolicy == "" {
		c.LogoutPolicy = d.LogoutPolicy
	}
	if c.LoginPath == "" {
		c.LoginPath = d.LoginPath
	}
	if c.MainPath == "" {
		c.MainPath = d.MainPath
	}
	if c.RedirectDelay < 0 {
		c.RedirectDelay = d.RedirectDelay
	}
	if c.LoginRedirectDelay < 0 {
		c.LoginRedirectDelay = d.LoginRedirectDelay
	}
	if c.RegisterRedirectDelay < 0 {
		c.RegisterRedirectDelay = d.RegisterRedirectDelay
	}
	return c
}

// Validate rejects configurations that cannot produce a working client.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return oops.Code("config_invalid").With("base_url", c.BaseURL).Wrapf(err, "parse base url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return oops.Code("config_invalid").With("base_url", c.BaseURL).Errorf("base url must be http or https")
	}
	if _, err := ParseLogoutPolicy(string(c.LogoutPolicy)); err != nil {
		return err
	}
	if c.RequestTimeout < 0 || c.ChatTimeout < 0 {
		return oops.Code("config_invalid").Errorf("timeouts must not be negative")
	}
	return nil
}
