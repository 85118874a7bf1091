package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/crimson-sun/rcwatch/internal/model"
)

// Version is the rcwatch release, overridden at build time with
// -ldflags "-X github.com/crimson-sun/rcwatch/internal/config.Version=...".
var Version = "0.4.0-dev"

// EnvPrefix prefixes every environment variable rcwatch reads,
// e.g. RCWATCH_FEED_NICK for feed.nick.
const EnvPrefix = "RCWATCH"

// Config holds all rcwatch configuration.
// Values are populated from rcwatch.yaml, RCWATCH_* env vars, and CLI flags.
type Config struct {
	Feed   FeedConfig   `mapstructure:"feed"`
	Store  StoreConfig  `mapstructure:"store"`
	Fetch  FetchConfig  `mapstructure:"fetch"`
	Output OutputConfig `mapstructure:"output"`
	Debug  DebugConfig  `mapstructure:"debug"`
	HTTP   HTTPConfig   `mapstructure:"http"`
	Log    LogConfig    `mapstructure:"log"`
}

// FeedConfig selects where raw lines come from.
type FeedConfig struct {
	Connector  string   `mapstructure:"connector"` // "irc" or "replay"
	Server     string   `mapstructure:"server"`
	Nick       string   `mapstructure:"nick"`
	Projects   []string `mapstructure:"projects"`
	ReplayFile string   `mapstructure:"replay_file"`
	RecordFile string   `mapstructure:"record_file"`
}

// StoreConfig selects where project records persist.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "file" or "sqlite"
	Path   string `mapstructure:"path"`
	Watch  bool   `mapstructure:"watch"`
}

// FetchConfig tunes wiki document fetches.
type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// OutputConfig holds output destination settings.
type OutputConfig struct {
	Format      string   `mapstructure:"format"` // comma list of stdout, file, webhook, websocket
	Pretty      bool     `mapstructure:"pretty"`
	Text        bool     `mapstructure:"text"`
	Verbosity   string   `mapstructure:"verbosity"`
	FilePath    string   `mapstructure:"file_path"`
	WebhookURL  string   `mapstructure:"webhook_url"`
	AsyncBuffer int      `mapstructure:"async_buffer"`
	Kinds       []string `mapstructure:"kinds"`
}

// DebugConfig configures the anomaly report sink.
type DebugConfig struct {
	NATSURL        string        `mapstructure:"nats_url"`
	Subject        string        `mapstructure:"subject"`
	SuppressWindow time.Duration `mapstructure:"suppress_window"`
}

// HTTPConfig configures the metrics and websocket listener.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Formats returns the configured output formats, trimmed and lower-cased.
func (o OutputConfig) Formats() []string {
	var out []string
	for _, f := range strings.Split(o.Format, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Channels returns the IRC channels for the configured projects.
func (f FeedConfig) Channels() []string {
	out := make([]string, 0, len(f.Projects))
	for _, p := range f.Projects {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, "#"+strings.TrimLeft(p, "#"))
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("feed.connector", "irc")
	v.SetDefault("feed.server", "irc.wikimedia.org:6667")
	v.SetDefault("feed.nick", "rcwatch")
	v.SetDefault("feed.projects", []string{})
	v.SetDefault("feed.replay_file", "")
	v.SetDefault("feed.record_file", "")
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", "projects")
	v.SetDefault("store.watch", false)
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.user_agent", "rcwatch/"+Version)
	v.SetDefault("output.format", "stdout")
	v.SetDefault("output.pretty", false)
	v.SetDefault("output.text", false)
	v.SetDefault("output.verbosity", "standard")
	v.SetDefault("output.file_path", "")
	v.SetDefault("output.webhook_url", "")
	v.SetDefault("output.async_buffer", 1024)
	v.SetDefault("output.kinds", []string{})
	v.SetDefault("debug.nats_url", "")
	v.SetDefault("debug.subject", "rcwatch.debug")
	v.SetDefault("debug.suppress_window", time.Minute)
	v.SetDefault("http.addr", "")
	v.SetDefault("log.level", "info")
}

// Load reads configuration from the global viper instance, applying
// built-in defaults for any values not set by config file, environment,
// or flags.
func Load() (Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads configuration from v.
func LoadFrom(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem with cfg at once.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.Feed.Connector {
	case "irc":
		if c.Feed.Server == "" {
			add("feed.server is required for the irc connector")
		}
	case "replay":
		if c.Feed.ReplayFile == "" {
			add("feed.replay_file is required for the replay connector")
		}
	default:
		add("feed.connector must be irc or replay, got %q", c.Feed.Connector)
	}

	switch c.Store.Driver {
	case "file", "sqlite":
		if c.Store.Path == "" {
			add("store.path is required")
		}
	default:
		add("store.driver must be file or sqlite, got %q", c.Store.Driver)
	}

	if c.Fetch.Timeout <= 0 {
		add("fetch.timeout must be positive, got %v", c.Fetch.Timeout)
	}

	switch c.Output.Verbosity {
	case "minimal", "standard", "full":
	default:
		add("output.verbosity must be minimal, standard, or full, got %q", c.Output.Verbosity)
	}
	formats := c.Output.Formats()
	if len(formats) == 0 {
		add("output.format names no output")
	}
	for _, f := range formats {
		switch f {
		case "stdout":
		case "file":
			if c.Output.FilePath == "" {
				add("output.file_path is required for the file output")
			}
		case "webhook":
			if c.Output.WebhookURL == "" {
				add("output.webhook_url is required for the webhook output")
			}
		case "websocket":
			if c.HTTP.Addr == "" {
				add("http.addr is required for the websocket output")
			}
		default:
			add("unknown output format %q", f)
		}
	}
	if c.Output.AsyncBuffer < 0 {
		add("output.async_buffer must be >= 0, got %d", c.Output.AsyncBuffer)
	}
	for _, k := range c.Output.Kinds {
		if _, ok := model.ParseKind(k); !ok {
			add("output.kinds: unknown kind %q", k)
		}
	}

	if c.Debug.SuppressWindow < 0 {
		add("debug.suppress_window must be >= 0, got %v", c.Debug.SuppressWindow)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("log.level must be debug, info, warn, or error, got %q", c.Log.Level)
	}

	return errors.Join(errs...)
}
