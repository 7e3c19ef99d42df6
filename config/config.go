package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
	pkgerrors "github.com/pkg/errors"
)

// Config is the contents of config.toml.
type Config struct {
	LogLevel        string   `toml:"log_level"`
	Development     bool     `toml:"development"`
	EventQueueLimit int      `toml:"event_queue_limit"`
	ChunkCacheSize  int      `toml:"chunk_cache_size"`
	ExitWhenIdle    bool     `toml:"exit_when_idle"`
	DebugInterval   Duration `toml:"debug_interval"`
}

// Duration is a time.Duration decoded from strings such as "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		LogLevel:        "info",
		EventQueueLimit: 50000,
		ChunkCacheSize:  64,
		ExitWhenIdle:    true,
		DebugInterval:   Duration{5 * time.Second},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, pkgerrors.WithMessage(err, path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, pkgerrors.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if cfg.EventQueueLimit < 0 {
		return Config{}, pkgerrors.Errorf("%s: event_queue_limit must not be negative", path)
	}
	if cfg.DebugInterval.Duration <= 0 {
		cfg.DebugInterval = Default().DebugInterval
	}
	return cfg, nil
}

// DebugEnabled returns true if debug mode is active (HOSTBRIDGE_DEBUG=1).
func DebugEnabled() bool {
	return os.Getenv("HOSTBRIDGE_DEBUG") == "1"
}

// Dir returns the hostbridge configuration directory.
// Respects XDG_CONFIG_HOME on Unix, APPDATA on Windows.
func Dir() string {
	var base string

	if runtime.GOOS == "windows" {
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	} else {
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(base, "hostbridge")
}

// File returns the path to config.toml
func File() string {
	return filepath.Join(Dir(), "config.toml")
}
