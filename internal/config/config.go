package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("mobsq version %s, commit %s, built at %s", version, commit, date)
}

const envPrefix = "MOBSQ"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Facebook FacebookConfig `mapstructure:"facebook"`
	Session  SessionConfig  `mapstructure:"session"`
	Store    StoreConfig    `mapstructure:"store"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port            int             `mapstructure:"port"`
	Host            string          `mapstructure:"host"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig throttles the unauthenticated login endpoints per client IP.
// X-Forwarded-For is only read when the peer is one of TrustedProxies (IPs or
// CIDRs).
type RateLimitConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	PerSecond      float64  `mapstructure:"per_second"`
	Burst          int      `mapstructure:"burst"`
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// FacebookConfig identifies the application to the Graph API.
type FacebookConfig struct {
	AppID           string        `mapstructure:"app_id"`
	AppSecret       string        `mapstructure:"app_secret"`
	RedirectBaseURL string        `mapstructure:"redirect_base_url"`
	DialogURL       string        `mapstructure:"dialog_url"`
	GraphURL        string        `mapstructure:"graph_url"`
	Scopes          []string      `mapstructure:"scopes"`
	PlacesRadius    int           `mapstructure:"places_radius"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// CallbackURL is the fixed redirect URI registered with the provider.
func (f FacebookConfig) CallbackURL() string {
	return strings.TrimRight(f.RedirectBaseURL, "/") + "/callback"
}

type SessionConfig struct {
	CookieName   string        `mapstructure:"cookie_name"`
	CookieSecret string        `mapstructure:"cookie_secret"`
	MaxAge       time.Duration `mapstructure:"max_age"`
	VerifyStore  bool          `mapstructure:"verify_store"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"` // memory, sqlite, pgx
	DSN    string `mapstructure:"dsn"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// requiredKeys have no default and must come from the config file, env or flags.
var requiredKeys = []string{
	"facebook.app_id",
	"facebook.app_secret",
	"facebook.redirect_base_url",
	"session.cookie_secret",
}

// ErrMissingConfig is returned by Load when a required key is unset.
var ErrMissingConfig = errors.New("missing required configuration")

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8888)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 5*time.Second)
	viper.SetDefault("server.rate_limit.enabled", true)
	viper.SetDefault("server.rate_limit.per_second", 5)
	viper.SetDefault("server.rate_limit.burst", 10)
	viper.SetDefault("server.rate_limit.trusted_proxies", []string{})

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")

	viper.SetDefault("facebook.dialog_url", "https://www.facebook.com/dialog/oauth")
	viper.SetDefault("facebook.graph_url", "https://graph.facebook.com")
	viper.SetDefault("facebook.scopes", []string{"email", "user_checkins", "publish_checkins", "manage_friendlists"})
	viper.SetDefault("facebook.places_radius", 1000)
	viper.SetDefault("facebook.timeout", 10*time.Second)

	viper.SetDefault("session.cookie_name", "user_id")
	viper.SetDefault("session.max_age", 31*24*time.Hour)
	viper.SetDefault("session.verify_store", true)

	viper.SetDefault("store.driver", "sqlite")
	viper.SetDefault("store.dsn", "data/mobsq.db")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
}

// InitFlags initializes command line flags (without parsing)
func InitFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to the config file")
	fs.Int("server.port", 8888, "HTTP listen port")
	fs.String("store.driver", "sqlite", "Profile store driver (memory|sqlite|pgx)")
	fs.String("store.dsn", "data/mobsq.db", "Profile store DSN or file path")
	fs.String("logging.level", "info", "Log level")
}

// Load reads configuration from ./config.yaml (or /etc/mobsq/config.yaml, or the
// --config flag), MOBSQ_* environment variables and bound flags, in increasing
// order of precedence.
func Load(fs *pflag.FlagSet) (*Config, error) {
	viper.Reset() // Ensure clean state

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	setDefaults()

	// AutomaticEnv only resolves keys viper already knows about.
	for _, key := range requiredKeys {
		if err := viper.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if fs != nil {
		// Only flags the user actually set override the file and env.
		var bindErr error
		fs.Visit(func(f *pflag.Flag) {
			if f.Name == "config" {
				return
			}
			if err := viper.BindPFlag(f.Name, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	if path := configFlag(fs); path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/mobsq")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func configFlag(fs *pflag.FlagSet) string {
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			return f.Value.String()
		}
	}
	return os.Getenv(envPrefix + "_CONFIG")
}

// Validate reports every missing required key in one error.
func (c *Config) Validate() error {
	var missing []string
	values := map[string]string{
		"facebook.app_id":            c.Facebook.AppID,
		"facebook.app_secret":        c.Facebook.AppSecret,
		"facebook.redirect_base_url": c.Facebook.RedirectBaseURL,
		"session.cookie_secret":      c.Session.CookieSecret,
	}
	for _, key := range requiredKeys {
		if strings.TrimSpace(values[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s (set them in config.yaml or as %s_* environment variables)",
			ErrMissingConfig, strings.Join(missing, ", "), envPrefix)
	}

	switch c.Store.Driver {
	case "memory", "sqlite", "pgx":
	default:
		return fmt.Errorf("unsupported store driver: %q", c.Store.Driver)
	}
	if c.Facebook.Timeout <= 0 {
		return fmt.Errorf("facebook.timeout must be positive")
	}
	return nil
}

// Module exposes each config section on its own so packages depend only on
// the part they read
var Module = fx.Module("config",
	fx.Provide(
		func(c *Config) *ServerConfig { return &c.Server },
		func(c *Config) *LoggingConfig { return &c.Logging },
		func(c *Config) *FacebookConfig { return &c.Facebook },
		func(c *Config) *SessionConfig { return &c.Session },
		func(c *Config) *StoreConfig { return &c.Store },
		func(c *Config) *MetricsConfig { return &c.Metrics },
	),
)
