package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	platformerrors "leafai-server-go/internal/platform/errors"
)

const defaultConfigPath = "config.yaml"

// Loader reads the yaml configuration file and applies environment
// overrides on top of it.
type Loader struct {
	path      string
	useDotEnv bool
}

func NewLoader() *Loader {
	return &Loader{useDotEnv: true}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the configuration file location (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load reads the config file when present, falling back to defaults when it
// is not, so a bare checkout starts with environment-only configuration.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// Missing .env is fine, system environment still applies.
		_ = godotenv.Load()
	}

	path := l.path
	if path == "" {
		path = os.Getenv("LEAFAI_CONFIG")
	}
	if path == "" {
		path = defaultConfigPath
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, platformerrors.Wrap(
				platformerrors.KindConfig,
				"config.load",
				fmt.Sprintf("parse %s", path),
				err,
			)
		}
	case os.IsNotExist(err):
		path = ""
	default:
		return nil, platformerrors.Wrap(platformerrors.KindConfig, "config.load", "read config file", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return &Result{
		Config: cfg,
		Path:   path,
	}, nil
}

// applyEnvOverrides keeps the original deployment contract: the upstream
// credentials and model arrive through the environment.
func applyEnvOverrides(cfg *Config) {
	selected := cfg.Vision[cfg.Selected.Vision]
	if key := os.Getenv("PERPLEXITY_API_KEY"); key != "" && selected.APIKey == "" {
		selected.APIKey = key
	}
	if model := os.Getenv("PERPLEXITY_MODEL"); model != "" {
		selected.ModelName = model
	}
	cfg.Vision[cfg.Selected.Vision] = selected

	if origin := os.Getenv("FRONTEND_ORIGIN"); origin != "" {
		cfg.Web.AllowedOrigins = append(cfg.Web.AllowedOrigins, origin)
	}
}

// Validate rejects configurations the server cannot start with.
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return platformerrors.New(
			platformerrors.KindConfig,
			"config.validate",
			fmt.Sprintf("invalid server port: %d", cfg.Server.Port),
		)
	}

	switch cfg.Analyze.Mode {
	case "upstream":
		if _, ok := cfg.Vision[cfg.Selected.Vision]; !ok {
			return platformerrors.New(
				platformerrors.KindConfig,
				"config.validate",
				fmt.Sprintf("selected vision model %q is not configured", cfg.Selected.Vision),
			)
		}
	case "remote":
		if cfg.Analyze.RemoteURL == "" {
			return platformerrors.New(
				platformerrors.KindConfig,
				"config.validate",
				"analyze.remote_url is required in remote mode",
			)
		}
	default:
		return platformerrors.New(
			platformerrors.KindConfig,
			"config.validate",
			fmt.Sprintf("unknown analyze mode: %q", cfg.Analyze.Mode),
		)
	}

	switch cfg.Cache.Driver {
	case "memory", "redis":
	default:
		return platformerrors.New(
			platformerrors.KindConfig,
			"config.validate",
			fmt.Sprintf("unknown cache driver: %q", cfg.Cache.Driver),
		)
	}

	return nil
}
