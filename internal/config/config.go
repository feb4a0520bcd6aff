package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
)

// EnvAPIBase overrides api_base when set, even to the empty string.
const EnvAPIBase = "LECTOR_API_BASE"

// Config is lector's resolved configuration. The toml tags name each field's
// key in the config file and in validation errors.
type Config struct {
	APIBase        string        `toml:"api_base" validate:"omitempty,url"`
	Origin         string        `toml:"origin" validate:"required,url"`
	ProbeTimeout   time.Duration `toml:"probe_timeout" validate:"gt=0"`
	RequestTimeout time.Duration `toml:"request_timeout" validate:"gt=0"`
	MaxUploadMB    int           `toml:"max_upload_mb" validate:"gt=0"`
	StateDir       string        `toml:"state_dir" validate:"required"`
	LogLevel       string        `toml:"log_level" validate:"oneof=debug info warn error"`
	PollInterval   time.Duration `toml:"poll_interval" validate:"gt=0"`
}

const (
	defaultConfigPath     = "~/.config/lector/config.toml"
	defaultStateDir       = "~/.local/share/lector"
	defaultOrigin         = "http://127.0.0.1:5000"
	defaultProbeTimeout   = 4 * time.Second
	defaultRequestTimeout = 10 * time.Second
	defaultMaxUploadMB    = 16
	defaultLogLevel       = "info"
	defaultPollInterval   = 15 * time.Second
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Origin:         defaultOrigin,
		ProbeTimeout:   defaultProbeTimeout,
		RequestTimeout: defaultRequestTimeout,
		MaxUploadMB:    defaultMaxUploadMB,
		StateDir:       mustExpand(defaultStateDir),
		LogLevel:       defaultLogLevel,
		PollInterval:   defaultPollInterval,
	}
}

type rawConfig struct {
	APIBase        *string `toml:"api_base"`
	Origin         string  `toml:"origin"`
	ProbeTimeout   string  `toml:"probe_timeout"`
	RequestTimeout string  `toml:"request_timeout"`
	MaxUploadMB    int     `toml:"max_upload_mb"`
	StateDir       string  `toml:"state_dir"`
	LogLevel       string  `toml:"log_level"`
	PollInterval   string  `toml:"poll_interval"`
}

// Load reads the config file at path (or the default location), applies
// defaults for anything missing, then applies the LECTOR_API_BASE override.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		var raw rawConfig
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		if err := raw.apply(&cfg); err != nil {
			return Config{}, err
		}
	}

	if base, ok := os.LookupEnv(EnvAPIBase); ok {
		cfg.APIBase = strings.TrimSpace(base)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("toml"), ",")
		return name
	})
	return v
}

// Validate reports the first invalid setting by its config file key.
func (c Config) Validate() error {
	err := validate.Struct(c)
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) || len(invalid) == 0 {
		return err
	}
	fe := invalid[0]
	switch fe.Tag() {
	case "url":
		return fmt.Errorf("invalid config: %s must be an absolute URL, got %q", fe.Field(), fe.Value())
	case "oneof":
		return fmt.Errorf("invalid config: %s must be one of %s, got %q", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	case "required":
		return fmt.Errorf("invalid config: %s is required", fe.Field())
	default:
		return fmt.Errorf("invalid config: %s must be positive, got %v", fe.Field(), fe.Value())
	}
}

func (raw rawConfig) apply(cfg *Config) error {
	if raw.APIBase != nil {
		cfg.APIBase = strings.TrimSpace(*raw.APIBase)
	}
	if origin := strings.TrimSpace(raw.Origin); origin != "" {
		cfg.Origin = origin
	}
	if dir := strings.TrimSpace(raw.StateDir); dir != "" {
		cfg.StateDir = mustExpand(dir)
	}
	if level := strings.TrimSpace(raw.LogLevel); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}
	if raw.MaxUploadMB < 0 {
		return fmt.Errorf("max_upload_mb must be positive, got %d", raw.MaxUploadMB)
	}
	if raw.MaxUploadMB > 0 {
		cfg.MaxUploadMB = raw.MaxUploadMB
	}

	durations := []struct {
		key   string
		value string
		dest  *time.Duration
	}{
		{"probe_timeout", raw.ProbeTimeout, &cfg.ProbeTimeout},
		{"request_timeout", raw.RequestTimeout, &cfg.RequestTimeout},
		{"poll_interval", raw.PollInterval, &cfg.PollInterval},
	}
	for _, d := range durations {
		value := strings.TrimSpace(d.value)
		if value == "" {
			continue
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}
		if parsed <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.key, value)
		}
		*d.dest = parsed
	}
	return nil
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c Config) MaxUploadBytes() int64 {
	mb := c.MaxUploadMB
	if mb <= 0 {
		mb = defaultMaxUploadMB
	}
	return int64(mb) * 1024 * 1024
}

// LogPath returns the path of lector's own log file.
func (c Config) LogPath() string {
	return filepath.Join(c.stateDir(), "lector.log")
}

// CookiePath returns where session cookies are persisted between runs.
func (c Config) CookiePath() string {
	return filepath.Join(c.stateDir(), "cookies.toml")
}

func (c Config) stateDir() string {
	if strings.TrimSpace(c.StateDir) == "" {
		return mustExpand(defaultStateDir)
	}
	return c.StateDir
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
