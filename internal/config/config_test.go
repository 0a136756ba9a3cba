package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Fib.Ceiling != 1000 {
		t.Fatalf("ceiling = %d", cfg.Fib.Ceiling)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.Runner.MaxConcurrentJobs != 100 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.NATS.Enabled || cfg.NATS.RequestSubject != "fib.request" || cfg.NATS.ResultSubject != "fib.result" {
		t.Fatalf("unexpected nats defaults %+v", cfg.NATS)
	}
	if cfg.OnLogLevelChange(func(string) {}) {
		t.Fatalf("no config file is in use, nothing to watch")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := strings.Join([]string{
		"http:",
		"  addr: \":9090\"",
		"fib:",
		"  ceiling: 250",
		"nats:",
		"  enabled: true",
		"  url: nats://example:4222",
		"log:",
		"  level: debug",
		"  format: json",
	}, "\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" || cfg.Fib.Ceiling != 250 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if !cfg.NATS.Enabled || cfg.NATS.URL != "nats://example:4222" || cfg.NATS.QueueGroup != "fib-api-group" {
		t.Fatalf("unexpected nats config %+v", cfg.NATS)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected log config %+v", cfg.Log)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("FIBAPI_FIB_CEILING", "42")
	t.Setenv("FIBAPI_RUNNER_MAXCONCURRENTJOBS", "3")
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Fib.Ceiling != 42 || cfg.Runner.MaxConcurrentJobs != 3 {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestLoadConfigRejectsZeroCeiling(t *testing.T) {
	t.Setenv("FIBAPI_FIB_CEILING", "0")
	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Fatalf("expected error for zero ceiling")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Fib:  FibConfig{Ceiling: 1000},
		Log:  LogConfig{Level: "info", Format: "text"},
		NATS: NATSConfig{RequestSubject: "fib.request"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := map[string]func(c *Config){
		"format":   func(c *Config) { c.Log.Format = "xml" },
		"level":    func(c *Config) { c.Log.Level = "loud" },
		"jobs":     func(c *Config) { c.Runner.MaxConcurrentJobs = -1 },
		"ceiling":  func(c *Config) { c.Fib.Ceiling = 0 },
		"nats sub": func(c *Config) { c.NATS.Enabled = true; c.NATS.RequestSubject = "" },
	}
	for name, mutate := range cases {
		c := base
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func writeLogLevel(t *testing.T, path, level string) {
	t.Helper()
	body := "log:\n  level: " + level + "\n  format: text\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

// waitForLevel reads reported levels until want arrives, failing on any
// level listed in never.
func waitForLevel(t *testing.T, levels <-chan string, want string, never ...string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-levels:
			for _, bad := range never {
				if got == bad {
					t.Fatalf("callback received %q", got)
				}
			}
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for level %q", want)
		}
	}
}

func TestOnLogLevelChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeLogLevel(t, path, "info")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	levels := make(chan string, 16)
	if !cfg.OnLogLevelChange(func(level string) {
		select {
		case levels <- level:
		default:
		}
	}) {
		t.Fatalf("a config file is in use, expected a watcher")
	}

	writeLogLevel(t, path, "debug")
	waitForLevel(t, levels, "debug")

	// An invalid level never reaches the callback; the next valid one does.
	writeLogLevel(t, path, "loud")
	time.Sleep(200 * time.Millisecond)
	writeLogLevel(t, path, "warn")
	waitForLevel(t, levels, "warn", "loud")
}
