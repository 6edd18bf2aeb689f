package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	sessionbridge "github.com/opengovern/session-bridge"
)

// EnvSecretKey holds the base64 key used to seal the token in the session file.
// It is only read from the environment so it never lands in shell history.
const EnvSecretKey = "SESSIONCTL_SECRET_KEY"

const (
	storeFile   = "file"
	storeMemory = "memory"
	storeRedis  = "redis"
)

// cliConfig is the bridge configuration plus the settings only the CLI needs.
type cliConfig struct {
	sessionbridge.Config `koanf:",squash"`

	Store       string `koanf:"store"`
	SessionFile string `koanf:"session_file"`
	RedisAddr   string `koanf:"redis_addr"`
	RedisKey    string `koanf:"redis_key"`
	Debug       bool   `koanf:"debug"`
	Metrics     bool   `koanf:"metrics"`
}

func registerGlobalFlags(fs *pflag.FlagSet) {
	d := sessionbridge.DefaultConfig()

	fs.String("config", "", "config file path (YAML)")
	fs.String("base-url", d.BaseURL, "backend base URL")
	fs.String("login-endpoint", d.LoginEndpoint, "login endpoint path")
	fs.String("register-endpoint", d.RegisterEndpoint, "registration endpoint path")
	fs.String("chat-endpoint", d.ChatEndpoint, "chat endpoint path")
	fs.String("logout-endpoint", d.LogoutEndpoint, "logout endpoint path")
	fs.Duration("request-timeout", d.RequestTimeout, "deadline for login, register and logout")
	fs.Duration("chat-timeout", d.ChatTimeout, "deadline for one chat turn")
	fs.String("logout-policy", string(d.LogoutPolicy), "when a 401 ends the session (strict or keyword)")
	fs.String("login-path", d.LoginPath, "navigation target of the login surface")
	fs.String("main-path", d.MainPath, "navigation target after sign-in")
	fs.Duration("redirect-delay", d.RedirectDelay, "delay before leaving a terminated session")
	fs.Duration("login-redirect-delay", d.LoginRedirectDelay, "delay before leaving the login surface")
	fs.Duration("register-redirect-delay", d.RegisterRedirectDelay, "delay before leaving the registration surface")

	fs.String("store", storeFile, "session store (file, memory or redis)")
	fs.String("session-file", defaultSessionFile(), "session file used by the file store")
	fs.String("redis-addr", "127.0.0.1:6379", "redis address used by the redis store")
	fs.String("redis-key", "", "redis key the token is kept under")
	fs.Bool("debug", false, "log requests at debug level")
	fs.Bool("metrics", false, "print request metrics to stderr on exit")
}

// loadConfig layers the config file under the command line. Flags left at their
// defaults do not override values from the file.
func loadConfig(fs *pflag.FlagSet) (*cliConfig, error) {
	k := koanf.New(".")

	path, _ := fs.GetString("config")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("config_invalid").With("path", path).Wrapf(err, "load config file")
		}
	}

	flags := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
		if f.Name == "config" {
			return "", nil
		}
		return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(fs, f)
	})
	if err := k.Load(flags, nil); err != nil {
		return nil, oops.Code("config_invalid").Wrapf(err, "load flags")
	}

	cfg := &cliConfig{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("config_invalid").Wrapf(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Store {
	case storeFile, storeMemory, storeRedis:
	default:
		return nil, oops.Code("config_invalid").With("store", cfg.Store).Errorf("unknown session store")
	}
	return cfg, nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "sessionctl", "session.json")
}
