package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds everything the fib-api service reads at startup.
type Config struct {
	HTTP   HTTPConfig   `mapstructure:"http"`
	NATS   NATSConfig   `mapstructure:"nats"`
	Fib    FibConfig    `mapstructure:"fib"`
	Runner RunnerConfig `mapstructure:"runner"`
	Log    LogConfig    `mapstructure:"log"`

	v *viper.Viper
}

// HTTPConfig configures the listener; timeouts are in seconds.
type HTTPConfig struct {
	Addr            string `mapstructure:"addr"`
	ReadTimeoutSec  int    `mapstructure:"readTimeoutSec"`
	WriteTimeoutSec int    `mapstructure:"writeTimeoutSec"`
}

// NATSConfig configures the optional request/reply transport.
type NATSConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	URL              string `mapstructure:"url"`
	RequestSubject   string `mapstructure:"requestSubject"`
	ResultSubject    string `mapstructure:"resultSubject"`
	QueueGroup       string `mapstructure:"queueGroup"`
	MaxReconnects    int    `mapstructure:"maxReconnects"`
	ReconnectWaitSec int    `mapstructure:"reconnectWaitSec"`
	ReplyTimeoutSec  int    `mapstructure:"replyTimeoutSec"`
}

// FibConfig carries the ceiling. It is read once at startup and never reloaded.
type FibConfig struct {
	Ceiling uint64 `mapstructure:"ceiling"`
}

// RunnerConfig bounds concurrent computations.
type RunnerConfig struct {
	MaxConcurrentJobs int `mapstructure:"maxConcurrentJobs"` // 0 means unlimited
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// LoadConfig reads config.yaml (if any), then FIBAPI_* environment variables.
// A .env file in the working directory is loaded into the environment first.
func LoadConfig(configPaths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	for _, path := range configPaths {
		v.AddConfigPath(path)
	}
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/fib-api/")

	// FIBAPI_NATS_URL maps to nats.url
	v.SetEnvPrefix("FIBAPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		logrus.Debug("Config file not found; using defaults and environment variables.")
	} else {
		logrus.Infof("Using config file: %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.v = v

	logrus.Debugf("Configuration loaded successfully: %+v", cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeoutSec", 10)
	v.SetDefault("http.writeTimeoutSec", 10)
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.requestSubject", "fib.request")
	v.SetDefault("nats.resultSubject", "fib.result")
	v.SetDefault("nats.queueGroup", "fib-api-group")
	v.SetDefault("nats.maxReconnects", 5)
	v.SetDefault("nats.reconnectWaitSec", 2)
	v.SetDefault("nats.replyTimeoutSec", 5)
	v.SetDefault("fib.ceiling", 1000)
	v.SetDefault("runner.maxConcurrentJobs", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Fib.Ceiling == 0 {
		return errors.New("fib.ceiling must be greater than zero")
	}
	if c.Runner.MaxConcurrentJobs < 0 {
		return fmt.Errorf("runner.maxConcurrentJobs must not be negative, got %d", c.Runner.MaxConcurrentJobs)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	if c.NATS.Enabled && c.NATS.RequestSubject == "" {
		return errors.New("nats.requestSubject is required when nats is enabled")
	}
	return nil
}

// OnLogLevelChange watches the config file and calls fn with the new level
// whenever it changes. It returns false when no config file is in use.
func (c *Config) OnLogLevelChange(fn func(level string)) bool {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return false
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		level := c.v.GetString("log.level")
		if _, err := logrus.ParseLevel(level); err != nil {
			logrus.Warnf("Ignoring invalid log.level %q from %s", level, e.Name)
			return
		}
		fn(level)
	})
	c.v.WatchConfig()
	return true
}
